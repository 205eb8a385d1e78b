package infrastructure

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/inline"
	"coach_report_bot/internal/logger"
	"coach_report_bot/internal/repository"
)

// InlineAnswerer pages inline query results
type InlineAnswerer interface {
	Answer(ctx context.Context, p inline.Params, offset string) ([]inline.Result, string, error)
}

// UserLookup resolves the Telegram account behind an update
type UserLookup interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error)
}

// UpdateSource yields bot updates
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramBotManager runs the bot update loop. Only inline queries are served;
// plain messages are answered by the web app.
type TelegramBotManager struct {
	source  UpdateSource
	client  *TelegramClient
	users   UserLookup
	engine  InlineAnswerer
	limiter *InlineQueryLimiter

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewTelegramBotManager(source UpdateSource, client *TelegramClient, users UserLookup, engine InlineAnswerer, limiter *InlineQueryLimiter) *TelegramBotManager {
	return &TelegramBotManager{
		source:  source,
		client:  client,
		users:   users,
		engine:  engine,
		limiter: limiter,
	}
}

func (m *TelegramBotManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Run polls until ctx is cancelled, then waits for in-flight answers
func (m *TelegramBotManager) Run(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	log := logger.FromContext(ctx).With("component", "telegram")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"inline_query"}
	updates := m.source.GetUpdatesChan(u)
	log.Info("Started polling", "bot", m.client.BotUsername())

	defer func() {
		m.source.StopReceivingUpdates()
		m.wg.Wait()
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		log.Info("Stopped polling")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.InlineQuery == nil {
				continue
			}
			m.wg.Add(1)
			go func(q *tgbotapi.InlineQuery) {
				defer m.wg.Done()
				if err := m.HandleInlineQuery(ctx, q); err != nil {
					log.Error("Inline query failed", "query_id", q.ID, "from", q.From.ID, "err", err)
				}
			}(update.InlineQuery)
		}
	}
}

// HandleInlineQuery answers one inline query. Unknown users and throttled
// queries get an empty answer so the client stops spinning.
func (m *TelegramBotManager) HandleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) error {
	answer := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		CacheTime:     0,
		IsPersonal:    true,
		Results:       []interface{}{},
	}

	if q.From == nil || (m.limiter != nil && !m.limiter.Allow(q.From.ID)) {
		return m.client.AnswerInlineQuery(ctx, answer)
	}

	current, err := m.users.GetByTelegramID(ctx, q.From.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return m.client.AnswerInlineQuery(ctx, answer)
	}
	if err != nil {
		return err
	}

	results, next, err := m.engine.Answer(ctx, inline.Params{
		Query:       inline.ParseQuery(q.Query),
		Current:     current,
		BotUsername: m.client.BotUsername(),
	}, q.Offset)
	if err != nil {
		return err
	}

	for _, r := range results {
		answer.Results = append(answer.Results, r)
	}
	answer.NextOffset = next
	return m.client.AnswerInlineQuery(ctx, answer)
}
