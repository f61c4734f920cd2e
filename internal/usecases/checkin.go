package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/interfaces"
	"casepulse/internal/repository"
)

// defaultCheckinBody is used when generation and the firm template both fail.
const defaultCheckinBody = "Hi %s, just checking in to see how you're doing. Let us know if there's anything you need."

// CadenceFor maps days since the accident to a check-in cadence. Fresh
// cases get daily contact, settled ones monthly.
func CadenceFor(daysSinceAccident int) string {
	switch {
	case daysSinceAccident <= 7:
		return entities.CadenceDaily
	case daysSinceAccident <= 30:
		return entities.CadenceEveryFew
	case daysSinceAccident <= 90:
		return entities.CadenceWeekly
	default:
		return entities.CadenceMonthly
	}
}

// NextDue returns when the next check-in should go out.
func NextDue(cadence string, from time.Time) time.Time {
	switch cadence {
	case entities.CadenceDaily:
		return from.AddDate(0, 0, 1)
	case entities.CadenceEveryFew:
		return from.AddDate(0, 0, 3)
	case entities.CadenceWeekly:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 0, 30)
	}
}

// CheckInTone picks the voice for proactive outreach from the client's
// last observed sentiment.
func CheckInTone(lastSentiment entities.Sentiment) string {
	switch lastSentiment {
	case entities.SentimentNegative:
		return "extra empathetic and supportive"
	case entities.SentimentPositive:
		return "upbeat and friendly"
	default:
		return "warm and professional"
	}
}

// CheckInService schedules and sends proactive client touch-points.
// Check-ins do not consume the weekly reply cap.
type CheckInService struct {
	clients  *repository.ClientRepository
	checkins *repository.CheckInRepository
	messages *repository.MessageRepository
	settings *repository.SettingsRepository
	llm      interfaces.LLMClient
	router   *OutboundRouter
	logger   *zap.Logger
}

func NewCheckInService(
	clients *repository.ClientRepository,
	checkins *repository.CheckInRepository,
	messages *repository.MessageRepository,
	settings *repository.SettingsRepository,
	llm interfaces.LLMClient,
	router *OutboundRouter,
	logger *zap.Logger,
) *CheckInService {
	return &CheckInService{
		clients:  clients,
		checkins: checkins,
		messages: messages,
		settings: settings,
		llm:      llm,
		router:   router,
		logger:   logger,
	}
}

// EnsureScheduled books the next check-in for a client unless one is
// already pending.
func (s *CheckInService) EnsureScheduled(ctx context.Context, client *entities.Client, now time.Time) error {
	if client.Status != entities.ClientActive {
		return nil
	}
	pending, err := s.checkins.HasPending(ctx, client.ID)
	if err != nil {
		return fmt.Errorf("check pending check-in: %w", err)
	}
	if pending {
		return nil
	}

	cadence := CadenceFor(client.DaysSinceAccident(now))
	checkin := &entities.CheckIn{
		ClientID: client.ID,
		DueAt:    NextDue(cadence, now),
		Status:   entities.CheckInPending,
		Cadence:  cadence,
	}
	if err := s.checkins.Schedule(ctx, checkin); err != nil {
		return fmt.Errorf("schedule check-in: %w", err)
	}
	return nil
}

// SendDue delivers every due check-in and books the follow-on one.
// Individual failures are logged and skipped so one bad client cannot
// stall the pass. Returns the number sent.
//
// The whole pass is skipped while the checkins_enabled firm setting is
// switched off. TriggerNow ignores the switch: staff asked explicitly.
func (s *CheckInService) SendDue(ctx context.Context, now time.Time) (int, error) {
	if !s.enabled(ctx) {
		s.logger.Info("check-ins disabled by firm setting, skipping pass")
		return 0, nil
	}
	due, err := s.checkins.Due(ctx, now, 100)
	if err != nil {
		return 0, fmt.Errorf("list due check-ins: %w", err)
	}

	sent := 0
	for _, checkin := range due {
		if err := s.sendOne(ctx, &checkin, now); err != nil {
			s.logger.Error("check-in send failed",
				zap.Int("checkin_id", checkin.ID),
				zap.Int("client_id", checkin.ClientID),
				zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// enabled reads the checkins_enabled firm setting. Unset, unreadable and
// unrecognised values all count as on, so a settings outage never silences
// outreach.
func (s *CheckInService) enabled(ctx context.Context) bool {
	if s.settings == nil {
		return true
	}
	value, err := s.settings.GetSetting(ctx, "checkins_enabled")
	if err != nil {
		s.logger.Warn("checkins_enabled lookup failed", zap.Error(err))
		return true
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "off", "0", "no":
		return false
	}
	return true
}

func (s *CheckInService) sendOne(ctx context.Context, checkin *entities.CheckIn, now time.Time) error {
	client, err := s.clients.GetByID(ctx, checkin.ClientID)
	if err != nil {
		return fmt.Errorf("load client: %w", err)
	}
	if client == nil || client.Status != entities.ClientActive {
		return s.checkins.MarkSkipped(ctx, checkin.ID)
	}

	body := s.composeBody(ctx, client, now)
	sender, channel := s.router.For(client.PreferredChannel)
	if sender == nil {
		return fmt.Errorf("no sender configured for channel %s", channel)
	}
	if err := sender.Send(ctx, client.Phone, body); err != nil {
		return fmt.Errorf("deliver check-in: %w", err)
	}

	if err := s.checkins.MarkSent(ctx, checkin.ID, now, body); err != nil {
		return fmt.Errorf("mark check-in sent: %w", err)
	}
	outbound := &entities.Message{
		ID:        uuid.NewString(),
		ClientID:  client.ID,
		Direction: entities.DirectionOutbound,
		Channel:   channel,
		Body:      body,
		Status:    entities.OutboundSent,
		CreatedAt: now,
	}
	if err := s.messages.Create(ctx, outbound); err != nil {
		return fmt.Errorf("store check-in message: %w", err)
	}

	// Book the next one right away so the cadence never stalls.
	if err := s.EnsureScheduled(ctx, client, now); err != nil {
		s.logger.Warn("reschedule after check-in failed",
			zap.Int("client_id", client.ID), zap.Error(err))
	}
	return nil
}

// TriggerNow sends a check-in immediately, outside the normal cadence.
// The send is recorded like a scheduled one so history stays coherent.
// Returns the body that went out.
func (s *CheckInService) TriggerNow(ctx context.Context, clientID int, now time.Time) (string, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("load client: %w", err)
	}
	if client == nil {
		return "", ErrClientNotFound
	}

	body := s.composeBody(ctx, client, now)
	sender, channel := s.router.For(client.PreferredChannel)
	if sender == nil {
		return "", fmt.Errorf("no sender configured for channel %s", channel)
	}
	if err := sender.Send(ctx, client.Phone, body); err != nil {
		return "", fmt.Errorf("deliver check-in: %w", err)
	}

	checkin := &entities.CheckIn{
		ClientID: client.ID,
		DueAt:    now,
		Status:   entities.CheckInPending,
		Cadence:  CadenceFor(client.DaysSinceAccident(now)),
	}
	if err := s.checkins.Schedule(ctx, checkin); err != nil {
		return "", fmt.Errorf("record check-in: %w", err)
	}
	if err := s.checkins.MarkSent(ctx, checkin.ID, now, body); err != nil {
		return "", fmt.Errorf("mark check-in sent: %w", err)
	}

	outbound := &entities.Message{
		ID:        uuid.NewString(),
		ClientID:  client.ID,
		Direction: entities.DirectionOutbound,
		Channel:   channel,
		Body:      body,
		Status:    entities.OutboundSent,
		CreatedAt: now,
	}
	if err := s.messages.Create(ctx, outbound); err != nil {
		return "", fmt.Errorf("store check-in message: %w", err)
	}
	return body, nil
}

func (s *CheckInService) composeBody(ctx context.Context, client *entities.Client, now time.Time) string {
	history, err := s.messages.History(ctx, client.ID, contextHistoryLimit)
	if err != nil {
		s.logger.Warn("check-in history load failed", zap.Int("client_id", client.ID), zap.Error(err))
	}
	cctx := BuildClientContext(client, history, now)
	tone := CheckInTone(client.LastSentiment)

	raw, err := s.llm.Complete(ctx, checkinSystemPrompt,
		fmt.Sprintf(checkinUserPrompt, cctx.PromptBlock(), tone))
	if err == nil {
		if text := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`)); text != "" {
			return text
		}
	}

	if s.settings != nil {
		if tpl, err := s.settings.GetTemplate(ctx, "checkin"); err == nil && tpl != nil {
			return strings.ReplaceAll(tpl.Body, "{name}", client.Name)
		}
	}
	return fmt.Sprintf(defaultCheckinBody, firstName(client.Name))
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
