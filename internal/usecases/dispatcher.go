package usecases

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/logger"
)

// Tier is one delivery attempt. Later tiers carry fewer buttons, because
// Telegram rejects links to users whose privacy settings hide them.
type Tier struct {
	Name      string
	Profile   bool
	Messaging bool
	App       bool
}

var (
	TierFull      = Tier{Name: "full", Profile: true, Messaging: true, App: true}
	TierMessaging = Tier{Name: "messaging", Messaging: true, App: true}
	TierBare      = Tier{Name: "bare"}

	DefaultTiers = []Tier{TierFull, TierMessaging, TierBare}
)

const appButtonLabel = "Перейти до профілю в додатку"

// Delivery describes one message to one chat
type Delivery struct {
	ChatID  int64
	Content string
	// Render replaces Content when the text itself depends on the tier
	Render  func(tier Tier) string
	Contact *Contact
	AppLink string
}

func (d Delivery) text(tier Tier) string {
	if d.Render != nil {
		return d.Render(tier)
	}
	return d.Content
}

type Dispatcher struct {
	messenger interfaces.Messenger
	tiers     []Tier
	limit     int
}

func NewDispatcher(messenger interfaces.Messenger) *Dispatcher {
	return &Dispatcher{messenger: messenger, tiers: DefaultTiers, limit: MessageLimit}
}

// Deliver tries each tier in order and returns the last error once all failed.
// A tier that would resend the same text and buttons as the failed one is skipped.
func (d *Dispatcher) Deliver(ctx context.Context, delivery Delivery) error {
	log := logger.FromContext(ctx).With("chat_id", delivery.ChatID)

	// chunks already delivered are not repeated while the text stays the same
	sent := 0
	var lastErr error
	var prevText string
	var prevMarkup *tgbotapi.InlineKeyboardMarkup
	for i, tier := range d.tiers {
		text := delivery.text(tier)
		markup := BuildKeyboard(delivery.Contact, tier, delivery.AppLink, appButtonLabel)
		if i > 0 && text == prevText && reflect.DeepEqual(markup, prevMarkup) {
			continue
		}
		if text != prevText {
			sent = 0
		}
		prevText, prevMarkup = text, markup

		n, err := d.send(ctx, delivery.ChatID, text, markup, sent)
		if err == nil {
			return nil
		}
		sent = n
		lastErr = err
		log.Warn("Delivery tier failed", "tier", tier.Name, "err", err)
	}
	return fmt.Errorf("failed to deliver message to %d: %w", delivery.ChatID, lastErr)
}

// Notify is Deliver for confirmations nobody waits on; failures are only logged
func (d *Dispatcher) Notify(ctx context.Context, delivery Delivery) {
	if err := d.Deliver(ctx, delivery); err != nil {
		logger.FromContext(ctx).Error("Notification dropped", "chat_id", delivery.ChatID, "err", err)
	}
}

// send delivers chunks from index skip on and returns how many chunks in total
// went out
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup, skip int) (int, error) {
	if strings.TrimSpace(text) == "" {
		return skip, ErrEmptyContent
	}

	chunks := sendableChunks(SplitMessage(text, d.limit))
	for i := skip; i < len(chunks); i++ {
		var m *tgbotapi.InlineKeyboardMarkup
		if i == len(chunks)-1 {
			m = markup
		}
		if err := d.messenger.SendMessage(ctx, chatID, chunks[i], m); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

// sendableChunks trims the line breaks left at cut points and drops chunks
// that held nothing else, since Telegram rejects blank messages
func sendableChunks(chunks []string) []string {
	out := chunks[:0]
	for _, chunk := range chunks {
		if chunk = strings.Trim(chunk, "\n"); strings.TrimSpace(chunk) != "" {
			out = append(out, chunk)
		}
	}
	return out
}
