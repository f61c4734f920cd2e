package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/interfaces"
	"casepulse/internal/repository"
)

type riskPayload struct {
	RiskLevel          string   `json:"risk_level"`
	RiskScore          float64  `json:"risk_score"`
	PrimaryRiskFactors []string `json:"primary_risk_factors"`
	SentimentTrend     string   `json:"sentiment_trend"`
	EngagementLevel    string   `json:"engagement_level"`
	Recommendations    []string `json:"recommendations"`
	Urgency            string   `json:"urgency"`
	Confidence         float64  `json:"confidence"`
}

// RiskAssessor evaluates whole-client relationship risk and raises the
// alarm when a client transitions to high.
type RiskAssessor struct {
	llm      interfaces.LLMClient
	clients  *repository.ClientRepository
	messages *repository.MessageRepository
	notifier interfaces.AlertNotifier
	logger   *zap.Logger
}

func NewRiskAssessor(
	llm interfaces.LLMClient,
	clients *repository.ClientRepository,
	messages *repository.MessageRepository,
	notifier interfaces.AlertNotifier,
	logger *zap.Logger,
) *RiskAssessor {
	return &RiskAssessor{
		llm:      llm,
		clients:  clients,
		messages: messages,
		notifier: notifier,
		logger:   logger,
	}
}

// Assess evaluates the client, persists the outcome on the client row, and
// notifies the case manager on a transition to high risk.
func (r *RiskAssessor) Assess(ctx context.Context, client *entities.Client, now time.Time) (*entities.RiskAssessment, error) {
	history, err := r.messages.History(ctx, client.ID, contextHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	cctx := BuildClientContext(client, history, now)

	assessment := r.evaluate(ctx, cctx, history)
	assessment.AssessedAt = now

	previous := client.RiskLevel
	if err := r.clients.UpdateRisk(ctx, client.ID, assessment.RiskLevel, assessment.RiskScore); err != nil {
		return nil, fmt.Errorf("persist risk: %w", err)
	}
	client.RiskLevel = assessment.RiskLevel
	client.RiskScore = assessment.RiskScore

	if assessment.RiskLevel == entities.RiskHigh && previous != entities.RiskHigh {
		if err := r.notifier.NotifyRisk(ctx, interfaces.RiskAlert{
			Client:     client,
			Assessment: assessment,
		}); err != nil {
			r.logger.Error("risk alert delivery failed",
				zap.Int("client_id", client.ID), zap.Error(err))
		}
	}
	return assessment, nil
}

func (r *RiskAssessor) evaluate(ctx context.Context, cctx *ClientContext, history []entities.Message) *entities.RiskAssessment {
	var payload riskPayload
	raw, err := r.llm.Complete(ctx, riskSystemPrompt,
		fmt.Sprintf(riskUserPrompt, cctx.PromptBlock(), renderTranscript(history)))
	if err == nil && decodeModelJSON(raw, &payload) {
		return &entities.RiskAssessment{
			RiskLevel:          entities.ParseRiskLevel(payload.RiskLevel),
			RiskScore:          clampScore(payload.RiskScore),
			PrimaryRiskFactors: payload.PrimaryRiskFactors,
			SentimentTrend:     payload.SentimentTrend,
			EngagementLevel:    payload.EngagementLevel,
			Recommendations:    payload.Recommendations,
			Urgency:            payload.Urgency,
			Confidence:         clampUnit(payload.Confidence),
		}
	}

	if err != nil {
		r.logger.Debug("risk assessment failed, using sentiment fallback", zap.Error(err))
	}
	return fallbackRisk(cctx, history)
}

// fallbackRisk derives risk from recent sentiment counts when the model is
// unavailable.
func fallbackRisk(cctx *ClientContext, history []entities.Message) *entities.RiskAssessment {
	recent := recentInboundSentiments(history, 10)
	negatives, positives := 0, 0
	for _, s := range recent {
		switch s {
		case entities.SentimentNegative:
			negatives++
		case entities.SentimentPositive:
			positives++
		}
	}

	assessment := &entities.RiskAssessment{
		SentimentTrend:  sentimentTrend(recent),
		EngagementLevel: cctx.Engagement,
		Confidence:      0.4,
	}
	switch {
	case negatives >= 3:
		assessment.RiskLevel = entities.RiskHigh
		assessment.RiskScore = 7.5
		assessment.PrimaryRiskFactors = []string{"repeated negative messages"}
		assessment.Urgency = "soon"
		assessment.Recommendations = []string{"case manager should call the client"}
	case negatives > 0:
		assessment.RiskLevel = entities.RiskMedium
		assessment.RiskScore = 5
		assessment.PrimaryRiskFactors = []string{"recent negative message"}
		assessment.Urgency = "routine"
	default:
		assessment.RiskLevel = entities.RiskLow
		assessment.RiskScore = 2.5
		assessment.Urgency = "routine"
		if positives > 0 {
			assessment.RiskScore = 1.5
		}
	}
	return assessment
}

// recentInboundSentiments collects up to n triaged inbound sentiments,
// newest first.
func recentInboundSentiments(history []entities.Message, n int) []entities.Sentiment {
	sentiments := []entities.Sentiment{}
	for i := len(history) - 1; i >= 0 && len(sentiments) < n; i-- {
		msg := history[i]
		if msg.Direction == entities.DirectionInbound && msg.Sentiment != "" {
			sentiments = append(sentiments, msg.Sentiment)
		}
	}
	return sentiments
}

// sentimentTrend compares the newer half of the window against the older
// half. Input is newest first.
func sentimentTrend(recent []entities.Sentiment) string {
	if len(recent) < 4 {
		return "stable"
	}
	half := len(recent) / 2
	newer, older := 0, 0
	for i, s := range recent {
		if s != entities.SentimentNegative {
			continue
		}
		if i < half {
			newer++
		} else {
			older++
		}
	}
	switch {
	case newer > older:
		return "declining"
	case older > newer:
		return "improving"
	default:
		return "stable"
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
