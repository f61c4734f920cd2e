package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/interfaces"
	"casepulse/internal/repository"
)

// Follow-up keyword lists from the case team's playbook. A mention books an
// action item with the matching horizon.
var (
	medicalFollowupKeywords   = []string{"doctor", "appointment", "surgery", "therapy", "treatment"}
	financialFollowupKeywords = []string{"bill", "insurance", "payment", "money", "cost"}
)

type insightPayload struct {
	Type               string   `json:"type"`
	Category           string   `json:"category"`
	Message            string   `json:"message"`
	Confidence         float64  `json:"confidence"`
	SupportingEvidence []string `json:"supporting_evidence"`
	RecommendedActions []string `json:"recommended_actions"`
	Priority           string   `json:"priority"`
}

type reportPayload struct {
	ExecutiveSummary          string   `json:"executive_summary"`
	CurrentSentiment          string   `json:"current_sentiment"`
	KeyConcerns               []string `json:"key_concerns"`
	CommunicationStyle        string   `json:"communication_style"`
	RelationshipHealth        int      `json:"relationship_health"`
	ActionItems               []string `json:"action_items"`
	WarningSigns              []string `json:"warning_signs"`
	Strengths                 []string `json:"strengths"`
	NextContactRecommendation string   `json:"next_contact_recommendation"`
	PriorityLevel             string   `json:"priority_level"`
}

// InsightService extracts per-message insights, books follow-up action
// items, and writes the periodic client reports.
type InsightService struct {
	llm      interfaces.LLMClient
	insights *repository.InsightRepository
	reports  *repository.ReportRepository
	messages *repository.MessageRepository
	actions  *repository.ActionItemRepository
	logger   *zap.Logger
}

func NewInsightService(
	llm interfaces.LLMClient,
	insights *repository.InsightRepository,
	reports *repository.ReportRepository,
	messages *repository.MessageRepository,
	actions *repository.ActionItemRepository,
	logger *zap.Logger,
) *InsightService {
	return &InsightService{
		llm:      llm,
		insights: insights,
		reports:  reports,
		messages: messages,
		actions:  actions,
		logger:   logger,
	}
}

// ExtractFromMessage derives insights from one triaged inbound message and
// persists them. Model failure degrades to rule-derived insights.
func (s *InsightService) ExtractFromMessage(ctx context.Context, client *entities.Client, cctx *ClientContext, msg *entities.Message, result *entities.TriageResult) ([]entities.Insight, error) {
	payloads := s.askModel(ctx, cctx, msg.Body, result)
	if payloads == nil {
		payloads = ruleInsights(msg.Body, result)
	}

	now := time.Now().UTC()
	insights := make([]entities.Insight, 0, len(payloads))
	for _, p := range payloads {
		insight := entities.Insight{
			ID:                 uuid.NewString(),
			ClientID:           client.ID,
			Type:               normalizeInsightType(p.Type),
			Category:           p.Category,
			Message:            p.Message,
			Confidence:         clampUnit(p.Confidence),
			SupportingEvidence: p.SupportingEvidence,
			RecommendedActions: p.RecommendedActions,
			Priority:           normalizePriority(p.Priority),
			Status:             entities.InsightActive,
			SourceMessageID:    msg.ID,
			CreatedAt:          now,
		}
		if insight.Message == "" {
			continue
		}
		if err := s.insights.Create(ctx, &insight); err != nil {
			return insights, fmt.Errorf("store insight: %w", err)
		}
		insights = append(insights, insight)
	}
	return insights, nil
}

func (s *InsightService) askModel(ctx context.Context, cctx *ClientContext, body string, result *entities.TriageResult) []insightPayload {
	raw, err := s.llm.Complete(ctx, insightSystemPrompt,
		fmt.Sprintf(insightUserPrompt, cctx.PromptBlock(), body,
			result.Sentiment, result.ConcernLevel, result.ShouldFlag))
	if err != nil {
		s.logger.Debug("insight extraction failed, using rules", zap.Error(err))
		return nil
	}
	var payloads []insightPayload
	if !decodeModelJSON(raw, &payloads) {
		return nil
	}
	if len(payloads) > 3 {
		payloads = payloads[:3]
	}
	return payloads
}

// ruleInsights is the no-model fallback: a flagged message becomes a
// concern insight, follow-up keywords become action_required ones.
func ruleInsights(body string, result *entities.TriageResult) []insightPayload {
	payloads := []insightPayload{}
	if result.ShouldFlag {
		payloads = append(payloads, insightPayload{
			Type:       entities.InsightConcern,
			Category:   "case_concern",
			Message:    "Message flagged for staff review: " + result.Reasoning,
			Confidence: 0.4,
			Priority:   result.ConcernLevel,
		})
	}
	lower := strings.ToLower(body)
	if kw := firstMatch(lower, medicalFollowupKeywords); kw != "" {
		payloads = append(payloads, insightPayload{
			Type:               entities.InsightActionRequired,
			Category:           "medical",
			Message:            "Client mentioned a medical matter; schedule a treatment status follow-up.",
			Confidence:         0.4,
			SupportingEvidence: []string{kw},
			Priority:           entities.ConcernMedium,
		})
	}
	if kw := firstMatch(lower, financialFollowupKeywords); kw != "" {
		payloads = append(payloads, insightPayload{
			Type:               entities.InsightActionRequired,
			Category:           "financial",
			Message:            "Client raised a financial matter; follow up on bills or insurance.",
			Confidence:         0.4,
			SupportingEvidence: []string{kw},
			Priority:           entities.ConcernHigh,
		})
	}
	return payloads
}

// DeriveActionItems books follow-up tasks from the message text. Medical
// mentions get a 14-day horizon, financial ones 7 days.
func (s *InsightService) DeriveActionItems(ctx context.Context, client *entities.Client, body string, now time.Time) ([]entities.ActionItem, error) {
	lower := strings.ToLower(body)
	items := []entities.ActionItem{}

	if kw := firstMatch(lower, medicalFollowupKeywords); kw != "" {
		items = append(items, entities.ActionItem{
			ClientID:    client.ID,
			Kind:        entities.FollowupMedical,
			Description: fmt.Sprintf("Follow up on %s's medical status (mentioned %q)", client.Name, kw),
			DueAt:       now.AddDate(0, 0, 14),
			Priority:    entities.ConcernMedium,
			Status:      entities.ActionOpen,
		})
	}
	if kw := firstMatch(lower, financialFollowupKeywords); kw != "" {
		items = append(items, entities.ActionItem{
			ClientID:    client.ID,
			Kind:        entities.FollowupFinancial,
			Description: fmt.Sprintf("Resolve %s's financial question (mentioned %q)", client.Name, kw),
			DueAt:       now.AddDate(0, 0, 7),
			Priority:    entities.ConcernHigh,
			Status:      entities.ActionOpen,
		})
	}

	for i := range items {
		if err := s.actions.Create(ctx, &items[i]); err != nil {
			return items[:i], fmt.Errorf("store action item: %w", err)
		}
	}
	return items, nil
}

// GenerateReport writes the periodic relationship report for one client.
// assessment may be nil; when present its JSON rides along as the risk
// snapshot.
func (s *InsightService) GenerateReport(ctx context.Context, client *entities.Client, assessment *entities.RiskAssessment, now time.Time) (*entities.InsightReport, error) {
	periodStart := now.AddDate(0, 0, -7)
	period, err := s.messages.Between(ctx, client.ID, periodStart, now)
	if err != nil {
		return nil, fmt.Errorf("load period messages: %w", err)
	}
	cctx := BuildClientContext(client, period, now)

	report := &entities.InsightReport{
		ID:          uuid.NewString(),
		ClientID:    client.ID,
		PeriodStart: periodStart,
		PeriodEnd:   now,
		GeneratedAt: now,
	}

	var payload reportPayload
	raw, llmErr := s.llm.Complete(ctx, reportSystemPrompt,
		fmt.Sprintf(reportUserPrompt, cctx.PromptBlock(), renderTranscript(period)))
	if llmErr == nil && decodeModelJSON(raw, &payload) {
		report.ExecutiveSummary = payload.ExecutiveSummary
		report.CurrentSentiment = entities.ParseSentiment(payload.CurrentSentiment)
		report.KeyConcerns = payload.KeyConcerns
		report.CommunicationStyle = payload.CommunicationStyle
		report.RelationshipHealth = clampHealth(payload.RelationshipHealth)
		report.ActionItems = payload.ActionItems
		report.WarningSigns = payload.WarningSigns
		report.Strengths = payload.Strengths
		report.NextContactRecommendation = payload.NextContactRecommendation
		report.PriorityLevel = normalizePriority(payload.PriorityLevel)
	} else {
		if llmErr != nil {
			s.logger.Debug("report generation failed, using summary fallback",
				zap.Int("client_id", client.ID), zap.Error(llmErr))
		}
		fillFallbackReport(report, client, cctx, period)
	}

	if assessment != nil {
		if snapshot, err := json.Marshal(assessment); err == nil {
			report.RiskSnapshot = string(snapshot)
		}
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	return report, nil
}

// fillFallbackReport builds a counts-based report when the model is down.
func fillFallbackReport(report *entities.InsightReport, client *entities.Client, cctx *ClientContext, period []entities.Message) {
	report.CurrentSentiment = client.LastSentiment
	report.PriorityLevel = string(client.RiskLevel)

	recent := recentInboundSentiments(period, 10)
	negatives := 0
	for _, s := range recent {
		if s == entities.SentimentNegative {
			negatives++
		}
	}

	switch {
	case cctx.InboundCount == 0:
		report.ExecutiveSummary = fmt.Sprintf(
			"%s did not reach out this period. Consider a proactive check-in to keep the relationship warm.",
			client.Name)
		report.RelationshipHealth = 5
		report.NextContactRecommendation = "send a check-in this week"
	case negatives >= 3:
		report.ExecutiveSummary = fmt.Sprintf(
			"%s sent %d messages this period with repeated negative sentiment. The relationship needs direct attention.",
			client.Name, cctx.InboundCount)
		report.RelationshipHealth = 3
		report.WarningSigns = []string{"repeated negative messages"}
		report.NextContactRecommendation = "case manager should call within 1-2 days"
	case negatives > 0:
		report.ExecutiveSummary = fmt.Sprintf(
			"%s sent %d messages this period, mostly routine with some frustration. Keep responses prompt.",
			client.Name, cctx.InboundCount)
		report.RelationshipHealth = 5
		report.NextContactRecommendation = "respond promptly and check in within the week"
	default:
		report.ExecutiveSummary = fmt.Sprintf(
			"%s sent %d messages this period with steady or positive sentiment. The relationship is in good shape.",
			client.Name, cctx.InboundCount)
		report.RelationshipHealth = 7
		report.Strengths = []string{"steady engagement"}
		report.NextContactRecommendation = "maintain the current cadence"
	}
}

func firstMatch(lower string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

func normalizeInsightType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case entities.InsightPositive:
		return entities.InsightPositive
	case entities.InsightActionRequired:
		return entities.InsightActionRequired
	default:
		return entities.InsightConcern
	}
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case entities.ConcernLow:
		return entities.ConcernLow
	case entities.ConcernHigh:
		return entities.ConcernHigh
	default:
		return entities.ConcernMedium
	}
}

func clampHealth(h int) int {
	if h < 1 {
		return 1
	}
	if h > 10 {
		return 10
	}
	return h
}
