// Package notify posts race scoring summaries to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/types"
	"github.com/okian/pitwall/pkg/logger"
)

// Telegram allows roughly 30 messages a minute per chat.
const defaultSendInterval = 2 * time.Second

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram implements service.Notifier.
type Telegram struct {
	sender   Sender
	chatID   int64
	interval time.Duration

	mu       sync.Mutex
	lastSend time.Time
	log      logger.Logger
}

var _ service.Notifier = (*Telegram)(nil)

// Option configures Telegram.
type Option func(*Telegram)

// WithSendInterval sets the minimum gap between two messages.
func WithSendInterval(d time.Duration) Option {
	return func(t *Telegram) {
		if d >= 0 {
			t.interval = d
		}
	}
}

// WithLogger sets the notifier logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Telegram) {
		if l != nil {
			t.log = l
		}
	}
}

// NewTelegram connects a bot with token and checks it with getMe.
func NewTelegram(token string, chatID int64, opts ...Option) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false
	return NewTelegramWithSender(bot, chatID, opts...), nil
}

// NewTelegramWithSender builds a notifier over an existing sender.
func NewTelegramWithSender(sender Sender, chatID int64, opts ...Option) *Telegram {
	t := &Telegram{
		sender:   sender,
		chatID:   chatID,
		interval: defaultSendInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get().Named("telegram")
	}
	return t
}

// RaceScored posts the race podium and the run summary.
func (t *Telegram) RaceScored(ctx context.Context, race model.Race, report service.Report, top []types.Entry) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatRaceScored(race, report, top))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if err := t.wait(ctx); err != nil {
		return err
	}
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.log.Info(ctx, "race summary sent",
		logger.String("race_id", race.ID),
		logger.Int64("chat_id", t.chatID))
	return nil
}

// wait enforces the send interval.
func (t *Telegram) wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if delay := t.interval - time.Since(t.lastSend); delay > 0 && !t.lastSend.IsZero() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	t.lastSend = time.Now()
	return nil
}

// FormatRaceScored renders the Markdown message for a scored race.
func FormatRaceScored(race model.Race, report service.Report, top []types.Entry) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%d round %d) scored\n", esc(race.Name), race.Season, race.Round)
	if len(top) == 0 {
		b.WriteString("No bets were placed.\n")
	}
	for _, e := range top {
		fmt.Fprintf(&b, "%d. %s: %d pts\n", e.Rank, esc(e.UserID), e.Score)
	}
	fmt.Fprintf(&b, "\n%d/%d bets scored", report.Scored, report.Bets)
	if n := len(report.Failed); n > 0 {
		fmt.Fprintf(&b, ", %d failed", n)
	}
	if report.Pending > 0 {
		fmt.Fprintf(&b, ", %d pending", report.Pending)
	}
	return b.String()
}
