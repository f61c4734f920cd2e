package infrastructure

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/interfaces"
)

// StaffDirectory is the subset of staff storage the alerter needs to route
// alerts and link chats.
type StaffDirectory interface {
	GetByUsername(ctx context.Context, username string) (*entities.StaffUser, error)
	GetByID(ctx context.Context, id int) (*entities.StaffUser, error)
	LinkTelegram(ctx context.Context, staffID int, chatID int64) error
	ListLinked(ctx context.Context) ([]entities.StaffUser, error)
}

// TelegramAlerter is the firm's internal alert bot. Case managers link their
// personal chat once, then receive flag and risk alerts for their clients.
type TelegramAlerter struct {
	bot      *tgbotapi.BotAPI
	staff    StaffDirectory
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	linkCodes map[string]linkCode
}

type linkCode struct {
	staffID   int
	expiresAt time.Time
}

func NewTelegramAlerter(token string, staff StaffDirectory, logger *zap.Logger) (*TelegramAlerter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &TelegramAlerter{
		bot:       bot,
		staff:     staff,
		logger:    logger,
		stopChan:  make(chan struct{}),
		linkCodes: make(map[string]linkCode),
	}, nil
}

// BotName returns the bot's Telegram username for the status endpoint.
func (t *TelegramAlerter) BotName() string {
	return t.bot.Self.UserName
}

// MintLinkCode creates a short-lived code a staff member sends to the bot to
// tie their chat to their account.
func (t *TelegramAlerter) MintLinkCode(staffID int) string {
	buf := make([]byte, 4)
	rand.Read(buf)
	code := strings.ToUpper(hex.EncodeToString(buf))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.linkCodes[code] = linkCode{staffID: staffID, expiresAt: time.Now().Add(10 * time.Minute)}
	return code
}

func (t *TelegramAlerter) consumeLinkCode(code string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lc, ok := t.linkCodes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || time.Now().After(lc.expiresAt) {
		return 0, false
	}
	delete(t.linkCodes, strings.ToUpper(strings.TrimSpace(code)))
	return lc.staffID, true
}

// Start runs the update loop until Stop or ctx cancellation.
func (t *TelegramAlerter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	t.logger.Info("telegram alerter started", zap.String("bot", t.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case update := <-updates:
			switch {
			case update.CallbackQuery != nil:
				t.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				t.handleMessage(ctx, update.Message)
			}
		}
	}
}

// Stop terminates the update loop.
func (t *TelegramAlerter) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.bot.StopReceivingUpdates()
	})
}

func (t *TelegramAlerter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}
	switch msg.Command() {
	case "start":
		reply := tgbotapi.NewMessage(msg.Chat.ID,
			"CasePulse alert bot. Get a link code from your dashboard profile and send /link <code>.")
		t.bot.Send(reply)
	case "link":
		code := strings.TrimSpace(msg.CommandArguments())
		staffID, ok := t.consumeLinkCode(code)
		if !ok {
			t.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Invalid or expired link code."))
			return
		}
		if err := t.staff.LinkTelegram(ctx, staffID, msg.Chat.ID); err != nil {
			t.logger.Error("link telegram chat", zap.Error(err), zap.Int("staff_id", staffID))
			t.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Linking failed, try again later."))
			return
		}
		t.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Linked. You will now receive client alerts here."))
	}
}

func (t *TelegramAlerter) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	t.bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	if cb.Message == nil || !strings.HasPrefix(cb.Data, "ack:") {
		return
	}
	// Replace the keyboard with an acknowledgement note.
	edited := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
		cb.Message.Text+"\n\n✅ Acknowledged by "+cb.From.UserName)
	if _, err := t.bot.Send(edited); err != nil {
		t.logger.Warn("edit alert message", zap.Error(err))
	}
}

// NotifyFlag sends a flagged-message alert to the client's case manager, or
// to every linked staff member when the manager has no linked chat.
func (t *TelegramAlerter) NotifyFlag(ctx context.Context, alert interfaces.FlagAlert) error {
	text := fmt.Sprintf("⚠️ Flagged message\nClient: %s (%s)\nRisk: %s\nMessage: %s",
		alert.Client.Name, alert.Client.Phone, alert.RiskLevel, truncateAlertBody(alert.Message.Body))
	if alert.Reasoning != "" {
		text += "\nReason: " + alert.Reasoning
	}
	return t.deliver(ctx, alert.Client.CaseManager, text, alertKeyboard(alert.Message.ID))
}

// NotifyRisk sends a high-risk transition alert.
func (t *TelegramAlerter) NotifyRisk(ctx context.Context, alert interfaces.RiskAlert) error {
	text := fmt.Sprintf("🚨 Client risk raised to %s\nClient: %s (%s)\nScore: %.1f\nTrend: %s",
		alert.Assessment.RiskLevel, alert.Client.Name, alert.Client.Phone,
		alert.Assessment.RiskScore, alert.Assessment.SentimentTrend)
	if len(alert.Assessment.PrimaryRiskFactors) > 0 {
		text += "\nFactors: " + strings.Join(alert.Assessment.PrimaryRiskFactors, "; ")
	}
	return t.deliver(ctx, alert.Client.CaseManager, text, alertKeyboard(""))
}

func (t *TelegramAlerter) deliver(ctx context.Context, manager, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	chatIDs := t.resolveChats(ctx, manager)
	if len(chatIDs) == 0 {
		return fmt.Errorf("telegram: no linked chat for %q", manager)
	}
	var lastErr error
	for _, chatID := range chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		if _, err := t.bot.Send(msg); err != nil {
			lastErr = err
			t.logger.Warn("send alert", zap.Error(err), zap.Int64("chat_id", chatID))
		}
	}
	return lastErr
}

// resolveChats prefers the named case manager, falling back to all linked
// staff so alerts are never silently dropped.
func (t *TelegramAlerter) resolveChats(ctx context.Context, manager string) []int64 {
	if manager != "" {
		if staff, err := t.staff.GetByUsername(ctx, manager); err == nil && staff != nil && staff.TelegramChatID != 0 {
			return []int64{staff.TelegramChatID}
		}
	}
	linked, err := t.staff.ListLinked(ctx)
	if err != nil {
		t.logger.Error("list linked staff", zap.Error(err))
		return nil
	}
	ids := make([]int64, 0, len(linked))
	for _, s := range linked {
		if s.TelegramChatID != 0 {
			ids = append(ids, s.TelegramChatID)
		}
	}
	return ids
}

func alertKeyboard(messageID string) *tgbotapi.InlineKeyboardMarkup {
	data := "ack:" + messageID
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Acknowledge", data),
		),
	)
	return &kb
}

func truncateAlertBody(body string) string {
	if len(body) > 300 {
		return body[:300] + "..."
	}
	return body
}

// NoopNotifier satisfies AlertNotifier when no alert channel is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyFlag(ctx context.Context, alert interfaces.FlagAlert) error { return nil }
func (NoopNotifier) NotifyRisk(ctx context.Context, alert interfaces.RiskAlert) error { return nil }
