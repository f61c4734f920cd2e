package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/entities"
)

func triagedInbound(s entities.Sentiment, at time.Time) entities.Message {
	m := inboundAt("message text", at)
	m.Sentiment = s
	return m
}

func TestFallbackRisk(t *testing.T) {
	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)
	client := contextClient(now, 60, 55)

	t.Run("three negatives escalate to high", func(t *testing.T) {
		history := []entities.Message{
			triagedInbound(entities.SentimentNegative, now.AddDate(0, 0, -3)),
			triagedInbound(entities.SentimentNegative, now.AddDate(0, 0, -2)),
			triagedInbound(entities.SentimentNegative, now.AddDate(0, 0, -1)),
		}
		cctx := BuildClientContext(client, history, now)

		got := fallbackRisk(cctx, history)

		assert.Equal(t, entities.RiskHigh, got.RiskLevel)
		assert.InDelta(t, 7.5, got.RiskScore, 1e-9)
		assert.Equal(t, []string{"repeated negative messages"}, got.PrimaryRiskFactors)
		assert.Equal(t, "soon", got.Urgency)
		assert.Equal(t, []string{"case manager should call the client"}, got.Recommendations)
		assert.InDelta(t, 0.4, got.Confidence, 1e-9)
		assert.Equal(t, "medium", got.EngagementLevel, "engagement carried from the context")
		assert.Equal(t, "stable", got.SentimentTrend, "window too small to call a trend")
	})

	t.Run("one negative is medium", func(t *testing.T) {
		history := []entities.Message{
			triagedInbound(entities.SentimentNeutral, now.AddDate(0, 0, -3)),
			triagedInbound(entities.SentimentNegative, now.AddDate(0, 0, -1)),
		}
		cctx := BuildClientContext(client, history, now)

		got := fallbackRisk(cctx, history)

		assert.Equal(t, entities.RiskMedium, got.RiskLevel)
		assert.InDelta(t, 5, got.RiskScore, 1e-9)
		assert.Equal(t, []string{"recent negative message"}, got.PrimaryRiskFactors)
		assert.Equal(t, "routine", got.Urgency)
	})

	t.Run("positives pull the low score down", func(t *testing.T) {
		history := []entities.Message{
			triagedInbound(entities.SentimentPositive, now.AddDate(0, 0, -2)),
			triagedInbound(entities.SentimentPositive, now.AddDate(0, 0, -1)),
		}
		cctx := BuildClientContext(client, history, now)

		got := fallbackRisk(cctx, history)

		assert.Equal(t, entities.RiskLow, got.RiskLevel)
		assert.InDelta(t, 1.5, got.RiskScore, 1e-9)
		assert.Equal(t, "routine", got.Urgency)
	})

	t.Run("quiet history is low", func(t *testing.T) {
		cctx := BuildClientContext(client, nil, now)

		got := fallbackRisk(cctx, nil)

		assert.Equal(t, entities.RiskLow, got.RiskLevel)
		assert.InDelta(t, 2.5, got.RiskScore, 1e-9)
		assert.Equal(t, "stable", got.SentimentTrend)
		assert.Equal(t, "low", got.EngagementLevel)
	})
}

func TestRecentInboundSentiments(t *testing.T) {
	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)

	t.Run("newest first, skipping outbound and untriaged", func(t *testing.T) {
		history := []entities.Message{
			triagedInbound(entities.SentimentPositive, now.AddDate(0, 0, -4)),
			outboundAt("we got it", now.AddDate(0, 0, -3)),
			inboundAt("not yet triaged", now.AddDate(0, 0, -2)),
			triagedInbound(entities.SentimentNegative, now.AddDate(0, 0, -1)),
		}

		got := recentInboundSentiments(history, 10)

		require.Equal(t, []entities.Sentiment{
			entities.SentimentNegative,
			entities.SentimentPositive,
		}, got)
	})

	t.Run("caps the window", func(t *testing.T) {
		var history []entities.Message
		for i := 0; i < 12; i++ {
			history = append(history, triagedInbound(entities.SentimentNeutral, now.Add(time.Duration(i)*time.Minute)))
		}

		got := recentInboundSentiments(history, 10)
		assert.Len(t, got, 10)
	})

	t.Run("empty history", func(t *testing.T) {
		assert.Empty(t, recentInboundSentiments(nil, 10))
	})
}

func TestSentimentTrend(t *testing.T) {
	neg := entities.SentimentNegative
	pos := entities.SentimentPositive

	cases := []struct {
		name   string
		recent []entities.Sentiment
		want   string
	}{
		{"too few to call", []entities.Sentiment{neg, neg, neg}, "stable"},
		{"negatives concentrated recently", []entities.Sentiment{neg, neg, pos, pos}, "declining"},
		{"negatives fading", []entities.Sentiment{pos, pos, neg, neg}, "improving"},
		{"balanced", []entities.Sentiment{neg, pos, pos, neg}, "stable"},
		{"odd window leans on the newer half", []entities.Sentiment{neg, neg, pos, pos, pos}, "declining"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sentimentTrend(tc.recent))
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-1))
	assert.Equal(t, 5.0, clampScore(5))
	assert.Equal(t, 10.0, clampScore(15))
}
