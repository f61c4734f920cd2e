package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/infrastructure"
	"casepulse/internal/interfaces"
	"casepulse/internal/repository"
)

// inboundProcessTimeout bounds one pipeline run: model calls plus the
// human-feel reply delay.
const inboundProcessTimeout = 3 * time.Minute

// OutboundRouter picks the sender for a client's preferred channel.
type OutboundRouter struct {
	SMS      interfaces.MessageSender
	WhatsApp interfaces.MessageSender
}

// For returns the sender and the channel it delivers on. A whatsapp
// preference falls back to SMS when no device is paired.
func (r *OutboundRouter) For(channel string) (interfaces.MessageSender, string) {
	if channel == entities.ChannelWhatsApp && r.WhatsApp != nil {
		return r.WhatsApp, entities.ChannelWhatsApp
	}
	return r.SMS, entities.ChannelSMS
}

// typist is implemented by senders that can show a typing indicator while
// the reply delay runs.
type typist interface {
	Composing(ctx context.Context, to string)
}

// MessageServiceConfig carries the intake pipeline knobs.
type MessageServiceConfig struct {
	WeeklyReplyCap int
	RatePerMinute  float64
	RateBurst      int
	Debounce       time.Duration
}

// MessageService runs the inbound pipeline for client texts: resolve the
// sender, triage, persist, extract insights, reassess risk, alert, reply.
type MessageService struct {
	clients  *repository.ClientRepository
	messages *repository.MessageRepository
	usage    *repository.UsageRepository
	settings *repository.SettingsRepository
	triage   *TriageAnalyzer
	risk     *RiskAssessor
	insights *InsightService
	checkins *CheckInService
	delay    *DelayCalculator
	router   *OutboundRouter
	notifier interfaces.AlertNotifier
	limiter  *infrastructure.MessageRateLimiter
	sessions *infrastructure.SessionManager
	cfg      MessageServiceConfig
	logger   *zap.Logger
}

func NewMessageService(
	clients *repository.ClientRepository,
	messages *repository.MessageRepository,
	usage *repository.UsageRepository,
	settings *repository.SettingsRepository,
	triage *TriageAnalyzer,
	risk *RiskAssessor,
	insights *InsightService,
	checkins *CheckInService,
	delay *DelayCalculator,
	router *OutboundRouter,
	notifier interfaces.AlertNotifier,
	cfg MessageServiceConfig,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		clients:  clients,
		messages: messages,
		usage:    usage,
		settings: settings,
		triage:   triage,
		risk:     risk,
		insights: insights,
		checkins: checkins,
		delay:    delay,
		router:   router,
		notifier: notifier,
		limiter:  infrastructure.NewMessageRateLimiter(cfg.RatePerMinute, cfg.RateBurst),
		sessions: infrastructure.NewSessionManager(cfg.Debounce),
		cfg:      cfg,
		logger:   logger,
	}
}

// Stop releases the limiter's background goroutine.
func (s *MessageService) Stop() { s.limiter.Stop() }

// LimiterStats reports rate limiter counters for the admin status endpoint.
func (s *MessageService) LimiterStats() map[string]interface{} { return s.limiter.Stats() }

// HandleInboundAsync runs HandleInbound in the background on a fresh
// context with panic recovery, so the webhook can acknowledge the provider
// before triage starts.
func (s *MessageService) HandleInboundAsync(channel, from, body string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("inbound pipeline panic",
					zap.Any("panic", r), zap.String("from", from), zap.Stack("stack"))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), inboundProcessTimeout)
		defer cancel()

		if err := s.HandleInbound(ctx, channel, from, body); err != nil {
			s.logger.Error("inbound pipeline", zap.Error(err), zap.String("from", from))
		}
	}()
}

// HandleInbound processes one inbound message end to end.
func (s *MessageService) HandleInbound(ctx context.Context, channel, from, body string) error {
	start := time.Now()

	phone := entities.NormalizePhone(from)
	if phone == "" || strings.TrimSpace(body) == "" {
		return fmt.Errorf("intake: empty sender or body")
	}

	client, err := s.clients.GetByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("intake: resolve sender: %w", err)
	}
	if client == nil {
		return s.handleUnknownSender(ctx, channel, phone, body)
	}

	// Rate limit before anything else so a flood cannot burn model calls.
	if !s.limiter.Allow(phone) {
		return s.handleRateLimited(ctx, client, channel, body)
	}

	session := s.sessions.GetOrCreate(phone)
	if !session.TryStart(s.sessions.Debounce()) {
		// Another run is in flight. Store the text; that run's context and
		// the next one see it through history.
		msg := s.newInbound(client.ID, channel, body)
		if err := s.messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("intake: store debounced message: %w", err)
		}
		s.logger.Debug("message folded into active session", zap.Int("client_id", client.ID))
		return nil
	}
	defer session.Finish()

	msg := s.newInbound(client.ID, channel, body)
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("intake: store message: %w", err)
	}

	history, err := s.messages.History(ctx, client.ID, contextHistoryLimit)
	if err != nil {
		s.logger.Warn("load history", zap.Error(err), zap.Int("client_id", client.ID))
	}
	now := time.Now().UTC()
	cctx := BuildClientContext(client, history, now)

	used, err := s.usage.RepliesThisWeek(ctx, client.ID, now)
	if err != nil {
		s.logger.Warn("read weekly usage", zap.Error(err), zap.Int("client_id", client.ID))
	}
	allowResponse := used < s.cfg.WeeklyReplyCap

	result := s.triage.Triage(ctx, cctx, body, allowResponse, s.fallbackReply(ctx))

	msg.Sentiment = result.Sentiment
	msg.Action = result.Action
	msg.Confidence = result.Confidence
	msg.ConcernLevel = result.ConcernLevel
	msg.Flagged = result.ShouldFlag
	if err := s.messages.UpdateTriage(ctx, msg); err != nil {
		s.logger.Error("persist triage outcome", zap.Error(err), zap.String("message_id", msg.ID))
	}
	if err := s.clients.TouchContact(ctx, client.ID, result.Sentiment, now); err != nil {
		s.logger.Error("touch client contact", zap.Error(err), zap.Int("client_id", client.ID))
	}
	client.LastSentiment = result.Sentiment
	client.LastContactAt = now

	if _, err := s.insights.ExtractFromMessage(ctx, client, cctx, msg, result); err != nil {
		s.logger.Warn("extract insights", zap.Error(err), zap.Int("client_id", client.ID))
	}
	if _, err := s.insights.DeriveActionItems(ctx, client, body, now); err != nil {
		s.logger.Warn("derive action items", zap.Error(err), zap.Int("client_id", client.ID))
	}

	if _, err := s.risk.Assess(ctx, client, now); err != nil {
		s.logger.Warn("assess risk", zap.Error(err), zap.Int("client_id", client.ID))
	}

	if result.ShouldFlag {
		s.notifyFlag(ctx, client, msg, result)
	}

	switch {
	case result.ShouldRespond && !result.ShouldFlag && result.ResponseText != "":
		s.deliverReply(ctx, client, msg, result)
	case result.ShouldRespond && !result.ShouldFlag && result.CapReached:
		s.recordCapped(ctx, client, now)
	}

	if err := s.checkins.EnsureScheduled(ctx, client, now); err != nil {
		s.logger.Warn("ensure check-in", zap.Error(err), zap.Int("client_id", client.ID))
	}

	s.logger.Info("inbound processed",
		zap.Int("client_id", client.ID),
		zap.String("action", string(result.Action)),
		zap.String("sentiment", string(result.Sentiment)),
		zap.Bool("flagged", result.ShouldFlag),
		zap.Bool("cap_reached", result.CapReached),
		zap.Duration("took", time.Since(start)))
	return nil
}

// handleUnknownSender stores the message flagged for review and alerts
// staff. Strangers never get an automated reply.
func (s *MessageService) handleUnknownSender(ctx context.Context, channel, phone, body string) error {
	msg := s.newInbound(0, channel, body)
	msg.Action = entities.ActionFlag
	msg.Flagged = true
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("intake: store unknown-sender message: %w", err)
	}
	s.logger.Info("message from unknown number",
		zap.String("phone", phone), zap.String("channel", channel))

	// Transient client record so the alert names the number; nothing is
	// written to the roster.
	alert := interfaces.FlagAlert{
		Client:    &entities.Client{Name: "Unknown number", Phone: phone},
		Message:   msg,
		Reasoning: "sender is not on the client roster",
		RiskLevel: entities.RiskMedium,
	}
	if err := s.notifier.NotifyFlag(ctx, alert); err != nil {
		s.logger.Warn("unknown-sender alert", zap.Error(err))
	}
	return nil
}

// handleRateLimited stores the message without triaging it and alerts staff
// about the flood.
func (s *MessageService) handleRateLimited(ctx context.Context, client *entities.Client, channel, body string) error {
	msg := s.newInbound(client.ID, channel, body)
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("intake: store rate-limited message: %w", err)
	}
	s.logger.Warn("client over message rate limit",
		zap.Int("client_id", client.ID),
		zap.Duration("retry_in", s.limiter.WaitTime(client.Phone)))

	alert := interfaces.FlagAlert{
		Client:    client,
		Message:   msg,
		Reasoning: "message rate limit exceeded, triage skipped",
		RiskLevel: client.RiskLevel,
	}
	if err := s.notifier.NotifyFlag(ctx, alert); err != nil {
		s.logger.Warn("rate-limit alert", zap.Error(err))
	}
	return nil
}

// deliverReply waits the human-feel delay, sends on the client's channel,
// stores the outbound row, and counts it against the weekly cap.
func (s *MessageService) deliverReply(ctx context.Context, client *entities.Client, inbound *entities.Message, result *entities.TriageResult) {
	sender, channel := s.router.For(client.PreferredChannel)
	if sender == nil {
		s.logger.Error("no sender for channel", zap.String("channel", client.PreferredChannel))
		return
	}

	wait := s.delay.Compute(inbound.Body, result.ResponseText)
	if wait > 0 {
		if t, ok := sender.(typist); ok {
			t.Composing(ctx, client.Phone)
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			s.logger.Warn("reply delay interrupted",
				zap.Int("client_id", client.ID), zap.Error(ctx.Err()))
			return
		case <-timer.C:
		}
	}

	out := &entities.Message{
		ID:           uuid.NewString(),
		ClientID:     client.ID,
		Direction:    entities.DirectionOutbound,
		Channel:      channel,
		Body:         result.ResponseText,
		CreatedAt:    time.Now().UTC(),
		DelaySeconds: wait.Seconds(),
		Status:       entities.OutboundSent,
	}
	if err := sender.Send(ctx, client.Phone, result.ResponseText); err != nil {
		out.Status = entities.OutboundFailed
		s.logger.Error("send reply", zap.Error(err),
			zap.Int("client_id", client.ID), zap.String("channel", channel))
	}
	if err := s.messages.Create(ctx, out); err != nil {
		s.logger.Error("store outbound", zap.Error(err), zap.Int("client_id", client.ID))
	}
	if out.Status == entities.OutboundSent {
		if err := s.usage.IncrementReply(ctx, client.ID, out.CreatedAt); err != nil {
			s.logger.Error("increment reply usage", zap.Error(err), zap.Int("client_id", client.ID))
		}
	}
}

// recordCapped stores an empty outbound row so history shows the reply the
// weekly cap withheld.
func (s *MessageService) recordCapped(ctx context.Context, client *entities.Client, now time.Time) {
	out := &entities.Message{
		ID:        uuid.NewString(),
		ClientID:  client.ID,
		Direction: entities.DirectionOutbound,
		Channel:   client.PreferredChannel,
		CreatedAt: now,
		Status:    entities.OutboundCapped,
	}
	if err := s.messages.Create(ctx, out); err != nil {
		s.logger.Error("store capped marker", zap.Error(err), zap.Int("client_id", client.ID))
	}
	s.logger.Info("weekly reply cap reached", zap.Int("client_id", client.ID))
}

func (s *MessageService) notifyFlag(ctx context.Context, client *entities.Client, msg *entities.Message, result *entities.TriageResult) {
	alert := interfaces.FlagAlert{
		Client:    client,
		Message:   msg,
		Reasoning: result.Reasoning,
		RiskLevel: result.RiskLevel,
	}
	if err := s.notifier.NotifyFlag(ctx, alert); err != nil {
		s.logger.Warn("flag alert delivery", zap.Error(err), zap.Int("client_id", client.ID))
	}
}

// fallbackReply loads the firm's configured fallback template, if any.
func (s *MessageService) fallbackReply(ctx context.Context) string {
	tpl, err := s.settings.GetTemplate(ctx, "fallback")
	if err != nil || tpl == nil {
		return ""
	}
	return tpl.Body
}

func (s *MessageService) newInbound(clientID int, channel, body string) *entities.Message {
	return &entities.Message{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Direction: entities.DirectionInbound,
		Channel:   channel,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

var (
	// ErrMessageNotFound is returned when a resend targets an unknown message.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotResendable is returned when the target is not a failed outbound.
	ErrNotResendable = errors.New("only failed outbound messages can be resent")
)

// Resend retries a failed outbound message on its original channel and
// records the outcome. A successful retry counts against the weekly cap
// like the first attempt would have.
func (s *MessageService) Resend(ctx context.Context, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.Direction != entities.DirectionOutbound || msg.Status != entities.OutboundFailed {
		return ErrNotResendable
	}

	client, err := s.clients.GetByID(ctx, msg.ClientID)
	if err != nil {
		return fmt.Errorf("load client: %w", err)
	}
	if client == nil {
		return ErrClientNotFound
	}

	sender, _ := s.router.For(msg.Channel)
	if sender == nil {
		return fmt.Errorf("no sender configured for channel %s", msg.Channel)
	}
	if err := sender.Send(ctx, client.Phone, msg.Body); err != nil {
		return fmt.Errorf("resend message: %w", err)
	}

	if err := s.messages.UpdateStatus(ctx, msg.ID, entities.OutboundSent); err != nil {
		s.logger.Error("mark resent", zap.Error(err), zap.String("message_id", msg.ID))
	}
	if err := s.usage.IncrementReply(ctx, client.ID, time.Now().UTC()); err != nil {
		s.logger.Error("increment reply usage", zap.Error(err), zap.Int("client_id", client.ID))
	}
	return nil
}

// Preview runs the one-shot classifier against a client's live context
// without storing anything. The dashboard uses it to test tuning changes.
func (s *MessageService) Preview(ctx context.Context, clientID int, body string) (*entities.TriageResult, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	history, err := s.messages.History(ctx, client.ID, contextHistoryLimit)
	if err != nil {
		return nil, err
	}
	cctx := BuildClientContext(client, history, time.Now().UTC())
	return s.triage.TriageOnce(ctx, cctx, body), nil
}
