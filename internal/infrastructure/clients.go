package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"

	"coach_report_bot/internal/markdown"
)

// MaxSendAttempts bounds transport retries of one Telegram request
const MaxSendAttempts = 5

// BotAPI is the part of tgbotapi.BotAPI the transport uses
type BotAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type TelegramClient struct {
	bot      BotAPI
	username string
	backoff  func() retry.Backoff
}

func NewTelegramClient(token string) (*TelegramClient, *tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, nil, fmt.Errorf("telegram bot token issue: %w", err)
	}
	return NewTelegramClientWithAPI(bot, bot.Self.UserName, 500*time.Millisecond), bot, nil
}

// NewTelegramClientWithAPI wraps any BotAPI, base is the first retry delay
func NewTelegramClientWithAPI(bot BotAPI, username string, base time.Duration) *TelegramClient {
	return &TelegramClient{
		bot:      bot,
		username: username,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(MaxSendAttempts-1, retry.WithCappedDuration(30*time.Second, retry.NewExponential(base)))
		},
	}
}

func (t *TelegramClient) BotUsername() string {
	return t.username
}

// retryable reports whether Telegram may accept the same request later
func retryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

func (t *TelegramClient) request(ctx context.Context, c tgbotapi.Chattable) error {
	return retry.Do(ctx, t.backoff(), func(ctx context.Context) error {
		_, err := t.bot.Request(c)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(apiErr.RetryAfter) * time.Second):
			}
		}
		return retry.RetryableError(err)
	})
}

func (t *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = markdown.ParseMode
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if err := t.request(ctx, msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

func (t *TelegramClient) AnswerInlineQuery(ctx context.Context, answer tgbotapi.InlineConfig) error {
	if err := t.request(ctx, answer); err != nil {
		return fmt.Errorf("answer inline query %s: %w", answer.InlineQueryID, err)
	}
	return nil
}
