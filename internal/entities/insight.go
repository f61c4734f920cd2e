package entities

import "time"

// Insight types
const (
	InsightPositive       = "positive"
	InsightConcern        = "concern"
	InsightActionRequired = "action_required"
)

// Insight statuses
const (
	InsightActive       = "active"
	InsightAcknowledged = "acknowledged"
	InsightResolved     = "resolved"
)

// Insight is a single observation extracted from a client conversation.
type Insight struct {
	ID                 string    `json:"id"`
	ClientID           int       `json:"client_id"`
	Type               string    `json:"insight_type"`
	Category           string    `json:"category"`
	Message            string    `json:"message"`
	Confidence         float64   `json:"confidence"`
	SupportingEvidence []string  `json:"supporting_evidence"`
	RecommendedActions []string  `json:"recommended_actions"`
	Priority           string    `json:"priority"`
	Status             string    `json:"status"`
	SourceMessageID    string    `json:"source_message_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// InsightReport is the periodic deep-dive summary for one client.
type InsightReport struct {
	ID                        string    `json:"id"`
	ClientID                  int       `json:"client_id"`
	PeriodStart               time.Time `json:"period_start"`
	PeriodEnd                 time.Time `json:"period_end"`
	ExecutiveSummary          string    `json:"executive_summary"`
	CurrentSentiment          Sentiment `json:"current_sentiment"`
	KeyConcerns               []string  `json:"key_concerns"`
	CommunicationStyle        string    `json:"communication_style"`
	RelationshipHealth        int       `json:"relationship_health"`
	ActionItems               []string  `json:"action_items"`
	WarningSigns              []string  `json:"warning_signs"`
	Strengths                 []string  `json:"strengths"`
	NextContactRecommendation string    `json:"next_contact_recommendation"`
	PriorityLevel             string    `json:"priority_level"`
	RiskSnapshot              string    `json:"risk_snapshot,omitempty"`
	GeneratedAt               time.Time `json:"generated_at"`
}
