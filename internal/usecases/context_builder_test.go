package usecases

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/entities"
)

func contextClient(now time.Time, accidentDaysAgo, signupDaysAgo int) *entities.Client {
	return &entities.Client{
		ID:            3,
		Name:          "Morgan Lee",
		CaseManager:   "Alex Reed",
		CaseType:      "slip and fall",
		AccidentDate:  now.AddDate(0, 0, -accidentDaysAgo),
		SignupDate:    now.AddDate(0, 0, -signupDaysAgo),
		RiskLevel:     entities.RiskMedium,
		RiskScore:     5,
		LastSentiment: entities.SentimentNeutral,
	}
}

func inboundAt(body string, at time.Time) entities.Message {
	return entities.Message{
		ClientID:  3,
		Direction: entities.DirectionInbound,
		Channel:   entities.ChannelSMS,
		Body:      body,
		CreatedAt: at,
	}
}

func outboundAt(body string, at time.Time) entities.Message {
	return entities.Message{
		ClientID:  3,
		Direction: entities.DirectionOutbound,
		Channel:   entities.ChannelSMS,
		Body:      body,
		CreatedAt: at,
		Status:    entities.OutboundSent,
	}
}

func TestCaseStage(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, "fresh incident"},
		{29, "fresh incident"},
		{30, "early case"},
		{89, "early case"},
		{90, "active case"},
		{364, "active case"},
		{365, "mature case"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, caseStage(tc.days), "days=%d", tc.days)
	}
}

func TestSignupStage(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, "new client onboarding"},
		{6, "new client onboarding"},
		{7, "recently onboarded"},
		{29, "recently onboarded"},
		{30, "settling in"},
		{89, "settling in"},
		{90, "established"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, signupStage(tc.days), "days=%d", tc.days)
	}
}

func TestBuildClientContextCounts(t *testing.T) {
	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)
	client := contextClient(now, 45, 40)

	history := []entities.Message{
		inboundAt("Thank you for the update", now.AddDate(0, 0, -2)),
		outboundAt("We are working on your case", now.AddDate(0, 0, -2).Add(time.Hour)),
		inboundAt("The doctor said the pain is worse", now.AddDate(0, 0, -1)),
		{
			ClientID:  3,
			Direction: entities.DirectionOutbound,
			Body:      "weekly reply limit reached",
			CreatedAt: now.AddDate(0, 0, -1).Add(time.Hour),
			Status:    entities.OutboundCapped,
		},
		inboundAt("My attorney said it was escalated for review", now.Add(-3*time.Hour)),
		inboundAt("Was it escalated yet?", now.Add(-time.Hour)),
	}

	cctx := BuildClientContext(client, history, now)

	assert.Equal(t, "early case", cctx.CaseStage)
	assert.Equal(t, "settling in", cctx.SignupStage)
	assert.Equal(t, 45, cctx.DaysSinceAccident)
	assert.Equal(t, 40, cctx.DaysSinceSignup)

	assert.Equal(t, 4, cctx.InboundCount)
	assert.Equal(t, 1, cctx.OutboundCount, "capped marker rows are not deliveries")

	assert.Equal(t, 1, cctx.PositiveHits)
	assert.Equal(t, 2, cctx.NegativeHits, "pain and worse both count")

	assert.Equal(t, 1, cctx.TopicCounts["medical"], "one topic hit per message")
	assert.Equal(t, 1, cctx.TopicCounts["legal"])
	assert.Equal(t, 1, cctx.TopicCounts["timeline"])
	assert.Zero(t, cctx.TopicCounts["financial"])
	assert.Zero(t, cctx.TopicCounts["communication"], "outbound words are not analyzed")

	assert.Equal(t, []string{"escalated", "attorney", "review"}, cctx.EscalationSignals,
		"signals deduped, keyword order preserved")

	assert.Equal(t, "medium", cctx.Engagement)
}

func TestBuildClientContextEngagement(t *testing.T) {
	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)
	client := contextClient(now, 100, 95)

	build := func(recent, stale int) *ClientContext {
		var history []entities.Message
		for i := 0; i < stale; i++ {
			history = append(history, inboundAt("hello", now.AddDate(0, 0, -20).Add(time.Duration(i)*time.Minute)))
		}
		for i := 0; i < recent; i++ {
			history = append(history, inboundAt("hello", now.AddDate(0, 0, -3).Add(time.Duration(i)*time.Minute)))
		}
		return BuildClientContext(client, history, now)
	}

	t.Run("high at eight recent", func(t *testing.T) {
		assert.Equal(t, "high", build(8, 0).Engagement)
	})
	t.Run("medium at three recent", func(t *testing.T) {
		assert.Equal(t, "medium", build(3, 0).Engagement)
	})
	t.Run("low below three", func(t *testing.T) {
		assert.Equal(t, "low", build(2, 0).Engagement)
	})
	t.Run("stale inbound counts but does not engage", func(t *testing.T) {
		cctx := build(0, 5)
		assert.Equal(t, "low", cctx.Engagement)
		assert.Equal(t, 5, cctx.InboundCount)
	})
}

func TestBuildClientContextTrimsHistory(t *testing.T) {
	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)
	client := contextClient(now, 100, 95)

	var history []entities.Message
	for i := 0; i < 5; i++ {
		history = append(history, inboundAt("thank you so much", now.AddDate(0, 0, -30)))
	}
	for i := 0; i < 55; i++ {
		history = append(history, inboundAt("hello", now.AddDate(0, 0, -20)))
	}

	cctx := BuildClientContext(client, history, now)

	assert.Equal(t, 50, cctx.InboundCount, "only the newest rows feed analytics")
	assert.Zero(t, cctx.PositiveHits, "trimmed rows contribute nothing")
}

func TestPromptBlock(t *testing.T) {
	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)
	client := contextClient(now, 45, 40)
	history := []entities.Message{
		inboundAt("The doctor said the pain is worse", now.AddDate(0, 0, -1)),
		inboundAt("My attorney said it was escalated for review", now.Add(-3*time.Hour)),
	}

	block := BuildClientContext(client, history, now).PromptBlock()

	assert.Contains(t, block, "Name: Morgan Lee")
	assert.Contains(t, block, "Case type: slip and fall")
	assert.Contains(t, block, "Case stage: early case (45 days since accident)")
	assert.Contains(t, block, "Risk: medium (5.0)")
	assert.Contains(t, block, "2 inbound / 0 outbound")
	assert.Contains(t, block, "Topics raised: legal (1), medical (1)", "stable topic order")
	assert.Contains(t, block, "Escalation signals: escalated, attorney, review")

	t.Run("quiet client omits topic lines", func(t *testing.T) {
		quiet := BuildClientContext(client, nil, now).PromptBlock()
		assert.NotContains(t, quiet, "Topics raised")
		assert.NotContains(t, quiet, "Escalation signals")
		assert.Contains(t, quiet, "engagement low")
	})

	t.Run("blank case type reads unknown", func(t *testing.T) {
		bare := contextClient(now, 45, 40)
		bare.CaseType = ""
		block := BuildClientContext(bare, nil, now).PromptBlock()
		assert.Contains(t, block, "Case type: unknown")
	})
}

func TestRenderTranscript(t *testing.T) {
	assert.Equal(t, "(no messages)", renderTranscript(nil))

	now := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)
	messages := []entities.Message{
		inboundAt("any news?", now),
		outboundAt("we will call you tomorrow", now.Add(time.Minute)),
		{
			Direction: entities.DirectionOutbound,
			Body:      "weekly reply limit reached",
			CreatedAt: now.Add(2 * time.Minute),
			Status:    entities.OutboundCapped,
		},
	}

	out := renderTranscript(messages)
	require.Contains(t, out, "Client: any news?")
	require.Contains(t, out, "Firm: we will call you tomorrow")
	assert.NotContains(t, out, "weekly reply limit reached")
	assert.Contains(t, out, fmt.Sprintf("[%s]", now.Format("Jan 2 15:04")))
}
