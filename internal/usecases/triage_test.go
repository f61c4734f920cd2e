package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"casepulse/internal/entities"
)

// scriptedLLM plays back canned output per pipeline stage, keyed off the
// system prompt. Stages with no script fail like a dead provider.
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (s *scriptedLLM) Complete(_ context.Context, system, _ string) (string, error) {
	stage := stageOf(system)
	s.mu.Lock()
	s.calls = append(s.calls, stage)
	s.mu.Unlock()

	if err, ok := s.errs[stage]; ok {
		return "", err
	}
	if out, ok := s.replies[stage]; ok {
		return out, nil
	}
	return "", errors.New("llm unavailable")
}

func (s *scriptedLLM) called(stage string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == stage {
			return true
		}
	}
	return false
}

func stageOf(system string) string {
	switch {
	case strings.Contains(system, "sentiment analyst"):
		return "sentiment"
	case strings.Contains(system, "how concerning"):
		return "concern"
	case strings.Contains(system, "flagged for immediate"):
		return "flag"
	case strings.Contains(system, "should send a reply"):
		return "respond"
	case strings.Contains(system, "short, warm reply"):
		return "response"
	case strings.Contains(system, "single pass"):
		return "triage_once"
	case strings.Contains(system, "relationship risk"):
		return "risk"
	case strings.Contains(system, "actionable insights"):
		return "insight"
	case strings.Contains(system, "relationship report"):
		return "report"
	case strings.Contains(system, "proactive check-in"):
		return "checkin"
	}
	return "unknown"
}

func triageClient(now time.Time) *entities.Client {
	return &entities.Client{
		ID:               7,
		Name:             "Dana Brooks",
		Phone:            "+15550100199",
		CaseManager:      "Alex Reed",
		CaseType:         "auto accident",
		AccidentDate:     now.AddDate(0, 0, -45),
		SignupDate:       now.AddDate(0, 0, -40),
		RiskLevel:        entities.RiskLow,
		LastSentiment:    entities.SentimentNeutral,
		PreferredChannel: entities.ChannelSMS,
		Status:           entities.ClientActive,
	}
}

func newTestAnalyzer(llm *scriptedLLM) (*TriageAnalyzer, *ClientContext) {
	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)
	cctx := BuildClientContext(triageClient(now), nil, now)
	return NewTriageAnalyzer(llm, zap.NewNop()), cctx
}

func TestTriageHappyPath(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		"sentiment": `{"sentiment":"positive","confidence":0.9,"intensity":0.4,"satisfaction_level":"satisfied"}`,
		"concern":   `{"concern_level":"low","confidence":0.8,"drivers":[]}`,
		"flag":      `{"should_flag":false,"confidence":0.85,"reasoning":"routine gratitude"}`,
		"respond":   `{"should_respond":true,"confidence":0.7,"reasoning":"friendly thanks deserves a reply"}`,
		"response":  `So glad to hear it, Dana! We'll keep you posted.`,
	}}
	a, cctx := newTestAnalyzer(llm)

	result := a.Triage(context.Background(), cctx, "Thank you all for the update, great news!", true, "")

	assert.Equal(t, entities.ActionRespond, result.Action)
	assert.Equal(t, entities.SentimentPositive, result.Sentiment)
	assert.True(t, result.ShouldRespond)
	assert.False(t, result.ShouldFlag)
	assert.False(t, result.CapReached)
	assert.Equal(t, "So glad to hear it, Dana! We'll keep you posted.", result.ResponseText)
	assert.Equal(t, entities.ConcernLow, result.ConcernLevel)
	assert.Equal(t, entities.RiskLow, result.RiskLevel)
	assert.Equal(t, "warm and upbeat", result.RecommendedTone)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9, "confidence is the lowest across stages")

	require.Len(t, result.Stages, 5)
	for _, st := range result.Stages {
		assert.True(t, st.OK, st.Name)
		assert.False(t, st.Fallback, st.Name)
	}
}

func TestTriageFlaggedMessageSkipsGeneration(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		"sentiment": `{"sentiment":"negative","confidence":0.8,"intensity":0.9}`,
		"concern":   `{"concern_level":"high","confidence":0.9,"drivers":["mentions another firm"]}`,
		"flag":      `{"should_flag":true,"confidence":0.9,"reasoning":"client mentioned hiring another lawyer"}`,
		"respond":   `{"should_respond":false,"confidence":0.9,"reasoning":"needs a human"}`,
	}}
	a, cctx := newTestAnalyzer(llm)

	result := a.Triage(context.Background(), cctx, "I'm thinking about calling another lawyer about this.", true, "")

	assert.Equal(t, entities.ActionFlag, result.Action)
	assert.True(t, result.ShouldFlag)
	assert.False(t, result.ShouldRespond)
	assert.Equal(t, "client mentioned hiring another lawyer", result.Reasoning)
	assert.Equal(t, entities.RiskHigh, result.RiskLevel)
	assert.Empty(t, result.ResponseText)
	assert.False(t, llm.called("response"))
	assert.Len(t, result.Stages, 4)
}

func TestTriageWeeklyCapSkipsGeneration(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		"sentiment": `{"sentiment":"neutral","confidence":0.8}`,
		"concern":   `{"concern_level":"low","confidence":0.8}`,
		"flag":      `{"should_flag":false,"confidence":0.8,"reasoning":"routine"}`,
		"respond":   `{"should_respond":true,"confidence":0.8,"reasoning":"simple status question"}`,
	}}
	a, cctx := newTestAnalyzer(llm)

	result := a.Triage(context.Background(), cctx, "Any news on my paperwork?", false, "")

	assert.True(t, result.CapReached)
	assert.True(t, result.ShouldRespond)
	assert.Equal(t, entities.ActionRespond, result.Action)
	assert.Empty(t, result.ResponseText)
	assert.False(t, llm.called("response"), "cap must not burn a generation call")
	assert.Len(t, result.Stages, 4)
}

func TestTriageSentimentFallbackUsesHeuristic(t *testing.T) {
	llm := &scriptedLLM{
		errs: map[string]error{"sentiment": errors.New("rate limited")},
		replies: map[string]string{
			"concern": `{"concern_level":"medium","confidence":0.8}`,
			"flag":    `{"should_flag":false,"confidence":0.8,"reasoning":"venting"}`,
			"respond": `{"should_respond":false,"confidence":0.8,"reasoning":"no reply needed"}`,
		},
	}
	a, cctx := newTestAnalyzer(llm)

	result := a.Triage(context.Background(), cctx, "I am so frustrated and upset about all of this", true, "")

	assert.Equal(t, entities.SentimentNegative, result.Sentiment)
	assert.InDelta(t, 0.6, result.SentimentConfidence, 1e-9)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9, "heuristic confidence drags the floor down")
	assert.Equal(t, entities.ActionIgnore, result.Action)
	require.Len(t, result.Stages, 4)
	assert.True(t, result.Stages[0].Fallback)
	assert.False(t, result.Stages[0].OK)
	assert.False(t, result.Stages[1].Fallback)
}

func TestTriageStageFallbackDefaults(t *testing.T) {
	t.Run("concern defaults to medium", func(t *testing.T) {
		llm := &scriptedLLM{
			errs: map[string]error{"concern": errors.New("timeout")},
			replies: map[string]string{
				"sentiment": `{"sentiment":"neutral","confidence":0.8}`,
				"flag":      `{"should_flag":false,"confidence":0.8,"reasoning":"routine"}`,
				"respond":   `{"should_respond":false,"confidence":0.8,"reasoning":"routine"}`,
			},
		}
		a, cctx := newTestAnalyzer(llm)
		result := a.Triage(context.Background(), cctx, "hello there", true, "")

		assert.Equal(t, entities.ConcernMedium, result.ConcernLevel)
		assert.InDelta(t, 0.3, result.Confidence, 1e-9)
		assert.True(t, result.Stages[1].Fallback)
	})

	t.Run("flag failure fails toward staff", func(t *testing.T) {
		llm := &scriptedLLM{
			errs: map[string]error{"flag": errors.New("timeout")},
			replies: map[string]string{
				"sentiment": `{"sentiment":"neutral","confidence":0.8}`,
				"concern":   `{"concern_level":"low","confidence":0.8}`,
				"respond":   `{"should_respond":true,"confidence":0.8,"reasoning":"routine"}`,
			},
		}
		a, cctx := newTestAnalyzer(llm)
		result := a.Triage(context.Background(), cctx, "hello there", true, "")

		assert.True(t, result.ShouldFlag)
		assert.Equal(t, entities.ActionFlag, result.Action)
		assert.Empty(t, result.ResponseText, "flagged messages never get an automated reply")
		assert.True(t, result.Stages[2].Fallback)
	})

	t.Run("respond failure holds the reply", func(t *testing.T) {
		llm := &scriptedLLM{
			errs: map[string]error{"respond": errors.New("timeout")},
			replies: map[string]string{
				"sentiment": `{"sentiment":"neutral","confidence":0.8}`,
				"concern":   `{"concern_level":"low","confidence":0.8}`,
				"flag":      `{"should_flag":false,"confidence":0.8,"reasoning":"routine"}`,
			},
		}
		a, cctx := newTestAnalyzer(llm)
		result := a.Triage(context.Background(), cctx, "hello there", true, "")

		assert.False(t, result.ShouldRespond)
		assert.Equal(t, entities.ActionIgnore, result.Action)
		assert.False(t, llm.called("response"))
		assert.True(t, result.Stages[3].Fallback)
	})
}

func TestTriageResponseFallback(t *testing.T) {
	script := func() *scriptedLLM {
		return &scriptedLLM{
			errs: map[string]error{"response": errors.New("timeout")},
			replies: map[string]string{
				"sentiment": `{"sentiment":"neutral","confidence":0.8}`,
				"concern":   `{"concern_level":"low","confidence":0.8}`,
				"flag":      `{"should_flag":false,"confidence":0.8,"reasoning":"routine"}`,
				"respond":   `{"should_respond":true,"confidence":0.8,"reasoning":"status question"}`,
			},
		}
	}

	t.Run("firm template wins", func(t *testing.T) {
		a, cctx := newTestAnalyzer(script())
		result := a.Triage(context.Background(), cctx, "Any update?", true, "Our office will be in touch shortly.")
		assert.Equal(t, "Our office will be in touch shortly.", result.ResponseText)
		require.Len(t, result.Stages, 5)
		assert.True(t, result.Stages[4].Fallback)
	})

	t.Run("built-in text otherwise", func(t *testing.T) {
		a, cctx := newTestAnalyzer(script())
		result := a.Triage(context.Background(), cctx, "Any update?", true, "")
		assert.Equal(t, cannedReply, result.ResponseText)
	})
}

func TestTriageTotalFailureEscalates(t *testing.T) {
	llm := &scriptedLLM{} // every stage errors
	a, cctx := newTestAnalyzer(llm)

	result := a.Triage(context.Background(), cctx, "checking in on things", true, "")

	assert.Equal(t, entities.ActionFlag, result.Action)
	assert.True(t, result.ShouldFlag)
	assert.False(t, result.ShouldRespond)
	assert.Equal(t, entities.RiskHigh, result.RiskLevel)
	assert.InDelta(t, 0.1, result.Confidence, 1e-9)
	assert.Equal(t, "automatic escalation: message analysis unavailable", result.Reasoning)
	assert.Empty(t, result.ResponseText)

	require.Len(t, result.Stages, 4)
	for _, st := range result.Stages {
		assert.True(t, st.Fallback, st.Name)
	}
}

func TestHeuristicSentiment(t *testing.T) {
	cases := []struct {
		name string
		body string
		want entities.Sentiment
		conf float64
	}{
		{"positive keywords", "Thank you, this is great news", entities.SentimentPositive, 0.6},
		{"negative keywords", "I'm frustrated and the pain is getting worse", entities.SentimentNegative, 0.6},
		{"no keywords", "Just checking in on the paperwork", entities.SentimentNeutral, 0.3},
		{"tied keywords", "happy but worried", entities.SentimentNeutral, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := heuristicSentiment(tc.body)
			assert.Equal(t, tc.want, got.Sentiment)
			assert.InDelta(t, tc.conf, got.Confidence, 1e-9)
		})
	}

	t.Run("exclamation marks boost intensity", func(t *testing.T) {
		calm := heuristicSentiment("this is great")
		loud := heuristicSentiment("this is great!!!")
		assert.InDelta(t, 0.3, calm.Intensity, 1e-9)
		assert.InDelta(t, 0.6, loud.Intensity, 1e-9)
	})
}

func TestToneForSentiment(t *testing.T) {
	assert.Equal(t, "empathetic and reassuring", toneForSentiment(entities.SentimentNegative))
	assert.Equal(t, "warm and upbeat", toneForSentiment(entities.SentimentPositive))
	assert.Equal(t, "friendly and professional", toneForSentiment(entities.SentimentNeutral))
}

func TestRiskFromConcern(t *testing.T) {
	assert.Equal(t, entities.RiskHigh, riskFromConcern(entities.ConcernHigh, entities.SentimentPositive))
	assert.Equal(t, entities.RiskMedium, riskFromConcern(entities.ConcernMedium, entities.SentimentNeutral))
	assert.Equal(t, entities.RiskMedium, riskFromConcern(entities.ConcernLow, entities.SentimentNegative))
	assert.Equal(t, entities.RiskLow, riskFromConcern(entities.ConcernLow, entities.SentimentNeutral))
}

func TestMinConfidence(t *testing.T) {
	assert.Equal(t, 0.0, minConfidence(nil))
	assert.InDelta(t, 0.2, minConfidence([]float64{0.9, 0.2, 0.5}), 1e-9)
}

func TestTriageOnce(t *testing.T) {
	t.Run("parses the single-call verdict", func(t *testing.T) {
		llm := &scriptedLLM{replies: map[string]string{
			"triage_once": `{"action":"respond","should_respond":true,"should_flag":false,"risk_level":"low","sentiment":"positive","reasoning":"friendly thanks","confidence":0.8,"recommended_response_tone":"warm"}`,
		}}
		a, cctx := newTestAnalyzer(llm)

		result := a.TriageOnce(context.Background(), cctx, "thanks again!")

		assert.Equal(t, entities.ActionRespond, result.Action)
		assert.True(t, result.ShouldRespond)
		assert.Equal(t, entities.SentimentPositive, result.Sentiment)
		assert.Equal(t, entities.RiskLow, result.RiskLevel)
		assert.InDelta(t, 0.8, result.Confidence, 1e-9)
		require.Len(t, result.Stages, 1)
		assert.True(t, result.Stages[0].OK)
	})

	t.Run("escalates when the model is down", func(t *testing.T) {
		a, cctx := newTestAnalyzer(&scriptedLLM{})

		result := a.TriageOnce(context.Background(), cctx, "thanks again!")

		assert.Equal(t, entities.ActionFlag, result.Action)
		assert.True(t, result.ShouldFlag)
		assert.Equal(t, entities.RiskHigh, result.RiskLevel)
		assert.InDelta(t, 0.1, result.Confidence, 1e-9)
		require.Len(t, result.Stages, 1)
		assert.True(t, result.Stages[0].Fallback)
	})
}
