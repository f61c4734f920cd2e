package usecases

import (
	"fmt"
	"strings"
	"time"

	"casepulse/internal/entities"
)

// Keyword lists driving the heuristic analytics. Matching is lowercase
// substring, which is crude but works well on short client texts.
var (
	positiveKeywords = []string{
		"thank", "great", "good", "appreciate", "happy", "excellent",
		"wonderful", "better", "relief", "glad",
	}
	negativeKeywords = []string{
		"angry", "upset", "frustrated", "bad", "terrible", "pain", "worse",
		"unhappy", "disappointed", "confused", "worried", "stress",
	}
	topicKeywords = map[string][]string{
		"legal":         {"case", "lawyer", "attorney", "court", "settlement", "claim"},
		"medical":       {"doctor", "pain", "treatment", "therapy", "surgery", "appointment"},
		"timeline":      {"when", "how long", "update", "status", "progress"},
		"financial":     {"money", "bill", "payment", "insurance", "cost"},
		"communication": {"call", "text", "email", "reach", "contact"},
	}
	escalationKeywords = []string{"forwarded", "escalated", "manager", "attorney", "review"}

	// Stable render order for topic counts.
	topicOrder = []string{"legal", "medical", "timeline", "financial", "communication"}
)

// ClientContext is the analytics block built from a client's profile and
// recent history. It feeds both the LLM prompts and the dashboard.
type ClientContext struct {
	Client            *entities.Client `json:"-"`
	CaseStage         string           `json:"case_stage"`
	SignupStage       string           `json:"signup_stage"`
	DaysSinceAccident int              `json:"days_since_accident"`
	DaysSinceSignup   int              `json:"days_since_signup"`
	InboundCount      int              `json:"inbound_count"`
	OutboundCount     int              `json:"outbound_count"`
	PositiveHits      int              `json:"positive_hits"`
	NegativeHits      int              `json:"negative_hits"`
	TopicCounts       map[string]int   `json:"topic_counts"`
	EscalationSignals []string         `json:"escalation_signals"`
	Engagement        string           `json:"engagement"`
}

// contextHistoryLimit caps how much history feeds the analytics.
const contextHistoryLimit = 50

// BuildClientContext derives the context block from the client profile and
// recent messages (chronological order expected).
func BuildClientContext(client *entities.Client, history []entities.Message, now time.Time) *ClientContext {
	if len(history) > contextHistoryLimit {
		history = history[len(history)-contextHistoryLimit:]
	}

	ctx := &ClientContext{
		Client:            client,
		DaysSinceAccident: client.DaysSinceAccident(now),
		DaysSinceSignup:   client.DaysSinceSignup(now),
		TopicCounts:       map[string]int{},
	}
	ctx.CaseStage = caseStage(ctx.DaysSinceAccident)
	ctx.SignupStage = signupStage(ctx.DaysSinceSignup)

	recentInbound := 0
	cutoff := now.AddDate(0, 0, -14)
	seenEscalation := map[string]bool{}

	for _, msg := range history {
		if msg.Status == entities.OutboundCapped {
			continue // marker row, nothing was sent
		}
		switch msg.Direction {
		case entities.DirectionInbound:
			ctx.InboundCount++
			if msg.CreatedAt.After(cutoff) {
				recentInbound++
			}
		case entities.DirectionOutbound:
			ctx.OutboundCount++
			continue // analytics below read client words only
		}

		body := strings.ToLower(msg.Body)
		for _, kw := range positiveKeywords {
			if strings.Contains(body, kw) {
				ctx.PositiveHits++
			}
		}
		for _, kw := range negativeKeywords {
			if strings.Contains(body, kw) {
				ctx.NegativeHits++
			}
		}
		for topic, words := range topicKeywords {
			for _, kw := range words {
				if strings.Contains(body, kw) {
					ctx.TopicCounts[topic]++
					break
				}
			}
		}
		for _, kw := range escalationKeywords {
			if strings.Contains(body, kw) && !seenEscalation[kw] {
				seenEscalation[kw] = true
				ctx.EscalationSignals = append(ctx.EscalationSignals, kw)
			}
		}
	}

	switch {
	case recentInbound >= 8:
		ctx.Engagement = "high"
	case recentInbound >= 3:
		ctx.Engagement = "medium"
	default:
		ctx.Engagement = "low"
	}
	return ctx
}

func caseStage(daysSinceAccident int) string {
	switch {
	case daysSinceAccident < 30:
		return "fresh incident"
	case daysSinceAccident < 90:
		return "early case"
	case daysSinceAccident < 365:
		return "active case"
	default:
		return "mature case"
	}
}

func signupStage(daysSinceSignup int) string {
	switch {
	case daysSinceSignup < 7:
		return "new client onboarding"
	case daysSinceSignup < 30:
		return "recently onboarded"
	case daysSinceSignup < 90:
		return "settling in"
	default:
		return "established"
	}
}

// PromptBlock renders the context as the compact text fed into prompts.
func (c *ClientContext) PromptBlock() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s | Case type: %s | Case manager: %s\n",
		c.Client.Name, orUnknown(c.Client.CaseType), c.Client.CaseManager)
	fmt.Fprintf(&sb, "Case stage: %s (%d days since accident), %s (%d days since signup)\n",
		c.CaseStage, c.DaysSinceAccident, c.SignupStage, c.DaysSinceSignup)
	fmt.Fprintf(&sb, "Risk: %s (%.1f) | Last sentiment: %s\n",
		c.Client.RiskLevel, c.Client.RiskScore, c.Client.LastSentiment)
	fmt.Fprintf(&sb, "Recent conversation: %d inbound / %d outbound, engagement %s",
		c.InboundCount, c.OutboundCount, c.Engagement)

	topics := []string{}
	for _, topic := range topicOrder {
		if n := c.TopicCounts[topic]; n > 0 {
			topics = append(topics, fmt.Sprintf("%s (%d)", topic, n))
		}
	}
	if len(topics) > 0 {
		fmt.Fprintf(&sb, "\nTopics raised: %s", strings.Join(topics, ", "))
	}
	if len(c.EscalationSignals) > 0 {
		fmt.Fprintf(&sb, "\nEscalation signals: %s", strings.Join(c.EscalationSignals, ", "))
	}
	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// renderTranscript formats messages for risk and report prompts.
func renderTranscript(messages []entities.Message) string {
	if len(messages) == 0 {
		return "(no messages)"
	}
	var sb strings.Builder
	for _, msg := range messages {
		if msg.Status == entities.OutboundCapped {
			continue
		}
		who := "Client"
		if msg.Direction == entities.DirectionOutbound {
			who = "Firm"
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", msg.CreatedAt.Format("Jan 2 15:04"), who, msg.Body)
	}
	return sb.String()
}
