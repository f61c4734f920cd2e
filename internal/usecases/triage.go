package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/interfaces"
)

// cannedReply is the last-resort outbound text when generation and the
// firm's fallback template are both unavailable. It makes no promises.
const cannedReply = "Thanks for reaching out. Your case team has your message and will follow up with you soon."

// TriageAnalyzer runs the staged triage pipeline. Every stage is one LLM
// call with a deterministic fallback, so triage always completes even with
// the model down.
type TriageAnalyzer struct {
	llm    interfaces.LLMClient
	logger *zap.Logger
}

func NewTriageAnalyzer(llm interfaces.LLMClient, logger *zap.Logger) *TriageAnalyzer {
	return &TriageAnalyzer{llm: llm, logger: logger}
}

type sentimentPayload struct {
	Sentiment           string   `json:"sentiment"`
	Confidence          float64  `json:"confidence"`
	EmotionalIndicators []string `json:"emotional_indicators"`
	Keywords            []string `json:"keywords"`
	Intensity           float64  `json:"intensity"`
	Concerns            []string `json:"concerns"`
	PainIndicators      []string `json:"pain_indicators"`
	SatisfactionLevel   string   `json:"satisfaction_level"`
}

type concernPayload struct {
	ConcernLevel string   `json:"concern_level"`
	Confidence   float64  `json:"confidence"`
	Drivers      []string `json:"drivers"`
}

type flagPayload struct {
	ShouldFlag bool    `json:"should_flag"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type respondPayload struct {
	ShouldRespond bool    `json:"should_respond"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// Triage processes one inbound message. allowResponse is false once the
// client's weekly reply cap is reached; the decision stages still run so
// flags and analytics are unaffected, only generation is skipped.
// fallbackReply is the firm's configured template, empty for the built-in.
func (a *TriageAnalyzer) Triage(ctx context.Context, cctx *ClientContext, body string, allowResponse bool, fallbackReply string) *entities.TriageResult {
	result := &entities.TriageResult{}
	confidences := []float64{}
	contextBlock := cctx.PromptBlock()

	// Stage 1: sentiment.
	sentiment, trace := a.analyzeSentiment(ctx, contextBlock, body)
	result.Stages = append(result.Stages, trace)
	confidences = append(confidences, sentiment.Confidence)
	result.Sentiment = sentiment.Sentiment
	result.SentimentConfidence = sentiment.Confidence
	result.DetectedIssues = append(result.DetectedIssues, sentiment.Concerns...)
	result.DetectedIssues = append(result.DetectedIssues, sentiment.PainIndicators...)

	// Stage 2: concern level.
	concern, concernConf, trace := a.assessConcern(ctx, contextBlock, body, sentiment)
	result.Stages = append(result.Stages, trace)
	confidences = append(confidences, concernConf)
	result.ConcernLevel = concern

	// Stage 3: flag decision.
	flag, trace := a.decideFlag(ctx, contextBlock, body, sentiment.Sentiment, concern)
	result.Stages = append(result.Stages, trace)
	confidences = append(confidences, flag.Confidence)
	result.ShouldFlag = flag.ShouldFlag

	// Stage 4: respond decision.
	respond, trace := a.decideRespond(ctx, contextBlock, body, sentiment.Sentiment, concern, flag.ShouldFlag)
	result.Stages = append(result.Stages, trace)
	confidences = append(confidences, respond.Confidence)
	result.ShouldRespond = respond.ShouldRespond

	result.RecommendedTone = toneForSentiment(sentiment.Sentiment)

	// Stage 5: response generation, only for unflagged messages under cap.
	if result.ShouldRespond && !result.ShouldFlag {
		if !allowResponse {
			result.CapReached = true
		} else {
			text, trace := a.generateResponse(ctx, contextBlock, result.RecommendedTone, body, fallbackReply)
			result.Stages = append(result.Stages, trace)
			result.ResponseText = text
		}
	}

	// Compile.
	switch {
	case result.ShouldFlag:
		result.Action = entities.ActionFlag
		result.Reasoning = flag.Reasoning
	case result.ShouldRespond:
		result.Action = entities.ActionRespond
		result.Reasoning = respond.Reasoning
	default:
		result.Action = entities.ActionIgnore
		result.Reasoning = respond.Reasoning
	}
	if result.Reasoning == "" {
		result.Reasoning = "routine message"
	}
	result.RiskLevel = riskFromConcern(concern, sentiment.Sentiment)
	result.Confidence = minConfidence(confidences)

	if allStagesFellBack(result.Stages) {
		// Model fully unavailable: fail toward human attention.
		result.Action = entities.ActionFlag
		result.ShouldFlag = true
		result.ShouldRespond = false
		result.ResponseText = ""
		result.RiskLevel = entities.RiskHigh
		result.Confidence = 0.1
		result.Reasoning = "automatic escalation: message analysis unavailable"
	}
	return result
}

func (a *TriageAnalyzer) analyzeSentiment(ctx context.Context, contextBlock, body string) (entities.SentimentAnalysis, entities.StageTrace) {
	start := time.Now()
	trace := entities.StageTrace{Name: "sentiment"}

	var payload sentimentPayload
	raw, err := a.llm.Complete(ctx, sentimentSystemPrompt,
		fmt.Sprintf(sentimentUserPrompt, contextBlock, body))
	if err == nil && decodeModelJSON(raw, &payload) {
		trace.OK = true
		trace.Duration = time.Since(start)
		return entities.SentimentAnalysis{
			Sentiment:           entities.ParseSentiment(payload.Sentiment),
			Confidence:          clampUnit(payload.Confidence),
			EmotionalIndicators: payload.EmotionalIndicators,
			Keywords:            payload.Keywords,
			Intensity:           clampUnit(payload.Intensity),
			Concerns:            payload.Concerns,
			PainIndicators:      payload.PainIndicators,
			SatisfactionLevel:   payload.SatisfactionLevel,
		}, trace
	}

	a.stageFailed("sentiment", err)
	trace.Fallback = true
	trace.Duration = time.Since(start)
	return heuristicSentiment(body), trace
}

// heuristicSentiment is the no-model fallback: keyword buckets with a small
// intensity boost from exclamation marks.
func heuristicSentiment(body string) entities.SentimentAnalysis {
	lower := strings.ToLower(body)
	positive, negative := 0, 0
	hits := []string{}
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			positive++
			hits = append(hits, kw)
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			negative++
			hits = append(hits, kw)
		}
	}

	analysis := entities.SentimentAnalysis{
		Sentiment:         entities.SentimentNeutral,
		Confidence:        0.3,
		Keywords:          hits,
		SatisfactionLevel: "unknown",
	}
	switch {
	case positive > negative:
		analysis.Sentiment = entities.SentimentPositive
		analysis.Confidence = 0.6
	case negative > positive:
		analysis.Sentiment = entities.SentimentNegative
		analysis.Confidence = 0.6
	}
	analysis.Intensity = clampUnit(0.3 + 0.1*float64(strings.Count(body, "!")))
	return analysis
}

func (a *TriageAnalyzer) assessConcern(ctx context.Context, contextBlock, body string, sentiment entities.SentimentAnalysis) (string, float64, entities.StageTrace) {
	start := time.Now()
	trace := entities.StageTrace{Name: "concern"}

	var payload concernPayload
	raw, err := a.llm.Complete(ctx, concernSystemPrompt,
		fmt.Sprintf(concernUserPrompt, contextBlock, body, sentiment.Sentiment, sentiment.Confidence))
	if err == nil && decodeModelJSON(raw, &payload) && validConcern(payload.ConcernLevel) {
		trace.OK = true
		trace.Duration = time.Since(start)
		return payload.ConcernLevel, clampUnit(payload.Confidence), trace
	}

	a.stageFailed("concern", err)
	trace.Fallback = true
	trace.Duration = time.Since(start)
	return entities.ConcernMedium, 0.3, trace
}

func (a *TriageAnalyzer) decideFlag(ctx context.Context, contextBlock, body string, sentiment entities.Sentiment, concern string) (flagPayload, entities.StageTrace) {
	start := time.Now()
	trace := entities.StageTrace{Name: "flag"}

	var payload flagPayload
	raw, err := a.llm.Complete(ctx, flagSystemPrompt,
		fmt.Sprintf(flagUserPrompt, contextBlock, body, sentiment, concern))
	if err == nil && decodeModelJSON(raw, &payload) {
		payload.Confidence = clampUnit(payload.Confidence)
		trace.OK = true
		trace.Duration = time.Since(start)
		return payload, trace
	}

	a.stageFailed("flag", err)
	trace.Fallback = true
	trace.Duration = time.Since(start)
	// Fail toward human attention.
	return flagPayload{
		ShouldFlag: true,
		Confidence: 0.2,
		Reasoning:  "flag analysis unavailable, routed to staff",
	}, trace
}

func (a *TriageAnalyzer) decideRespond(ctx context.Context, contextBlock, body string, sentiment entities.Sentiment, concern string, flagged bool) (respondPayload, entities.StageTrace) {
	start := time.Now()
	trace := entities.StageTrace{Name: "respond"}

	var payload respondPayload
	raw, err := a.llm.Complete(ctx, respondSystemPrompt,
		fmt.Sprintf(respondUserPrompt, contextBlock, body, sentiment, concern, flagged))
	if err == nil && decodeModelJSON(raw, &payload) {
		payload.Confidence = clampUnit(payload.Confidence)
		trace.OK = true
		trace.Duration = time.Since(start)
		return payload, trace
	}

	a.stageFailed("respond", err)
	trace.Fallback = true
	trace.Duration = time.Since(start)
	// Fail away from unsupervised sending.
	return respondPayload{
		ShouldRespond: false,
		Confidence:    0.2,
		Reasoning:     "respond analysis unavailable, holding reply",
	}, trace
}

func (a *TriageAnalyzer) generateResponse(ctx context.Context, contextBlock, tone, body, fallbackReply string) (string, entities.StageTrace) {
	start := time.Now()
	trace := entities.StageTrace{Name: "response"}

	raw, err := a.llm.Complete(ctx, responseSystemPrompt,
		fmt.Sprintf(responseUserPrompt, contextBlock, tone, body))
	text := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if err == nil && text != "" {
		trace.OK = true
		trace.Duration = time.Since(start)
		return text, trace
	}

	a.stageFailed("response", err)
	trace.Fallback = true
	trace.Duration = time.Since(start)
	if fallbackReply != "" {
		return fallbackReply, trace
	}
	return cannedReply, trace
}

func (a *TriageAnalyzer) stageFailed(stage string, err error) {
	if err != nil {
		a.logger.Debug("triage stage failed", zap.String("stage", stage), zap.Error(err))
	} else {
		a.logger.Debug("triage stage returned unparseable output", zap.String("stage", stage))
	}
}

func toneForSentiment(s entities.Sentiment) string {
	switch s {
	case entities.SentimentNegative:
		return "empathetic and reassuring"
	case entities.SentimentPositive:
		return "warm and upbeat"
	default:
		return "friendly and professional"
	}
}

func riskFromConcern(concern string, sentiment entities.Sentiment) entities.RiskLevel {
	switch concern {
	case entities.ConcernHigh:
		return entities.RiskHigh
	case entities.ConcernMedium:
		return entities.RiskMedium
	default:
		if sentiment == entities.SentimentNegative {
			return entities.RiskMedium
		}
		return entities.RiskLow
	}
}

func validConcern(level string) bool {
	switch level {
	case entities.ConcernLow, entities.ConcernMedium, entities.ConcernHigh:
		return true
	}
	return false
}

func minConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	lowest := confidences[0]
	for _, c := range confidences[1:] {
		if c < lowest {
			lowest = c
		}
	}
	return lowest
}

func allStagesFellBack(stages []entities.StageTrace) bool {
	for _, s := range stages {
		if !s.Fallback {
			return false
		}
	}
	return len(stages) > 0
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type triageOncePayload struct {
	Action          string   `json:"action"`
	ShouldRespond   bool     `json:"should_respond"`
	ShouldFlag      bool     `json:"should_flag"`
	RiskLevel       string   `json:"risk_level"`
	Sentiment       string   `json:"sentiment"`
	Reasoning       string   `json:"reasoning"`
	Confidence      float64  `json:"confidence"`
	DetectedIssues  []string `json:"detected_issues"`
	RecommendedTone string   `json:"recommended_response_tone"`
}

// TriageOnce is the single-call variant used by the dashboard test endpoint.
// Nothing is persisted and nothing is sent.
func (a *TriageAnalyzer) TriageOnce(ctx context.Context, cctx *ClientContext, body string) *entities.TriageResult {
	start := time.Now()
	trace := entities.StageTrace{Name: "triage_once"}

	var payload triageOncePayload
	raw, err := a.llm.Complete(ctx, triageOnceSystemPrompt,
		fmt.Sprintf(triageOnceUserPrompt, cctx.PromptBlock(), body))
	if err == nil && decodeModelJSON(raw, &payload) {
		trace.OK = true
		trace.Duration = time.Since(start)
		return &entities.TriageResult{
			Action:          entities.ParseAction(payload.Action),
			ShouldRespond:   payload.ShouldRespond,
			ShouldFlag:      payload.ShouldFlag,
			Sentiment:       entities.ParseSentiment(payload.Sentiment),
			RiskLevel:       entities.ParseRiskLevel(payload.RiskLevel),
			Reasoning:       payload.Reasoning,
			Confidence:      clampUnit(payload.Confidence),
			DetectedIssues:  payload.DetectedIssues,
			RecommendedTone: payload.RecommendedTone,
			Stages:          []entities.StageTrace{trace},
		}
	}

	a.stageFailed("triage_once", err)
	trace.Fallback = true
	trace.Duration = time.Since(start)
	return &entities.TriageResult{
		Action:     entities.ActionFlag,
		ShouldFlag: true,
		Sentiment:  entities.SentimentNeutral,
		RiskLevel:  entities.RiskHigh,
		Reasoning:  "automatic escalation: message analysis unavailable",
		Confidence: 0.1,
		Stages:     []entities.StageTrace{trace},
	}
}
