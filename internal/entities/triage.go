package entities

import (
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment normalizes a free-form sentiment label, defaulting to neutral.
func ParseSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

type Action string

const (
	ActionFlag    Action = "flag"
	ActionRespond Action = "respond"
	ActionIgnore  Action = "ignore"
)

// ParseAction normalizes a free-form action label, defaulting to flag so that
// unparseable model output always reaches a human.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "respond":
		return ActionRespond
	case "ignore":
		return ActionIgnore
	default:
		return ActionFlag
	}
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel normalizes a free-form risk label, defaulting to medium.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "high":
		return RiskHigh
	default:
		return RiskMedium
	}
}

// Concern levels share the low/medium/high scale as plain strings.
const (
	ConcernLow    = "low"
	ConcernMedium = "medium"
	ConcernHigh   = "high"
)

// SentimentAnalysis is the detailed per-message sentiment reading.
type SentimentAnalysis struct {
	Sentiment           Sentiment `json:"sentiment"`
	Confidence          float64   `json:"confidence"`
	EmotionalIndicators []string  `json:"emotional_indicators"`
	Keywords            []string  `json:"keywords"`
	Intensity           float64   `json:"intensity"`
	Concerns            []string  `json:"concerns"`
	PainIndicators      []string  `json:"pain_indicators"`
	SatisfactionLevel   string    `json:"satisfaction_level"`
}

// StageTrace records one pipeline stage outcome for observability.
type StageTrace struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Fallback bool          `json:"fallback"`
	Duration time.Duration `json:"duration"`
}

// TriageResult is the complete outcome of processing one inbound message.
type TriageResult struct {
	Action              Action       `json:"action"`
	ShouldRespond       bool         `json:"should_respond"`
	ShouldFlag          bool         `json:"should_flag"`
	Sentiment           Sentiment    `json:"sentiment"`
	SentimentConfidence float64      `json:"sentiment_confidence"`
	ConcernLevel        string       `json:"concern_level"`
	RiskLevel           RiskLevel    `json:"risk_level"`
	ResponseText        string       `json:"response_text,omitempty"`
	Reasoning           string       `json:"reasoning"`
	Confidence          float64      `json:"confidence"`
	DetectedIssues      []string     `json:"detected_issues"`
	RecommendedTone     string       `json:"recommended_tone"`
	CapReached          bool         `json:"cap_reached"`
	Stages              []StageTrace `json:"stages"`
}

// RiskAssessment is the periodic whole-client risk evaluation.
type RiskAssessment struct {
	RiskLevel          RiskLevel `json:"risk_level"`
	RiskScore          float64   `json:"risk_score"`
	PrimaryRiskFactors []string  `json:"primary_risk_factors"`
	SentimentTrend     string    `json:"sentiment_trend"`
	EngagementLevel    string    `json:"engagement_level"`
	Recommendations    []string  `json:"recommendations"`
	Urgency            string    `json:"urgency"`
	Confidence         float64   `json:"confidence"`
	AssessedAt         time.Time `json:"assessed_at"`
}
