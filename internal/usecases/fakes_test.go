package usecases

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/config"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/repository"
)

// monday noon in Kyiv summer time
var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		DefaultTimezone:  "Europe/Kyiv",
		CurrencySymbol:   "DAY",
		TelegramApp:      "app",
		AppURL:           "https://coach.example.com",
		NonReportingDays: []time.Weekday{time.Saturday, time.Sunday},
		ReminderCron:     "0 20 * * *",
		DidntSendCron:    "0 10 * * *",
	}
}

type sentMessage struct {
	ChatID int64
	Text   string
	Markup *tgbotapi.InlineKeyboardMarkup
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	attempts int
	fail     func(m sentMessage) error
	inline   []tgbotapi.InlineConfig
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := sentMessage{ChatID: chatID, Text: text, Markup: markup}
	f.attempts++
	if f.fail != nil {
		if err := f.fail(m); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMessenger) AnswerInlineQuery(_ context.Context, answer tgbotapi.InlineConfig) error {
	f.inline = append(f.inline, answer)
	return nil
}

func (f *fakeMessenger) BotUsername() string { return "coach_bot" }

func (f *fakeMessenger) to(chatID int64) []sentMessage {
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

var errTelegram = errors.New("Bad Request: BUTTON_USER_PRIVACY_RESTRICTED")

type fakeMessageStore struct {
	messages  []entities.Message
	insertErr error
}

func (f *fakeMessageStore) Latest(_ context.Context, userID string) (*entities.Message, error) {
	var latest *entities.Message
	for i := range f.messages {
		m := &f.messages[i]
		if m.UserID == userID && (latest == nil || m.CreatedAt.After(latest.CreatedAt)) {
			latest = m
		}
	}
	return latest, nil
}

func (f *fakeMessageStore) Pending(_ context.Context, userID string, receiverID int64) ([]entities.Message, error) {
	var out []entities.Message
	for _, m := range f.messages {
		if m.UserID == userID && m.ReceiverID == receiverID && m.DidntSend {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessageStore) Insert(_ context.Context, msg *entities.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, m := range f.messages {
		if m.UserID == msg.UserID && msg.Day != "" && m.Day == msg.Day {
			return repository.ErrDuplicate
		}
	}
	msg.ID = bson.NewObjectID()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageStore) Delete(_ context.Context, id bson.ObjectID) error {
	for i, m := range f.messages {
		if m.ID == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeMessageStore) ClearPending(_ context.Context, ids []bson.ObjectID) error {
	for i := range f.messages {
		for _, id := range ids {
			if f.messages[i].ID == id {
				f.messages[i].DidntSend = false
			}
		}
	}
	return nil
}

func (f *fakeMessageStore) List(_ context.Context, filter interfaces.MessageFilter) ([]entities.Message, error) {
	var out []entities.Message
	for _, m := range f.messages {
		if m.UserID == filter.UserID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) FirstMessages(_ context.Context, userIDs []string) ([]entities.Message, error) {
	return nil, nil
}

type fakeMeasurementStore struct {
	messages  []entities.MeasurementMessage
	insertErr error
}

func (f *fakeMeasurementStore) ExistsCovering(_ context.Context, userID string, ids []string) (bool, error) {
	for _, m := range f.messages {
		if m.UserID != userID {
			continue
		}
		have := map[string]bool{}
		for _, id := range m.IDs() {
			have[id] = true
		}
		all := len(ids) > 0
		for _, id := range ids {
			all = all && have[id]
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMeasurementStore) Insert(_ context.Context, msg *entities.MeasurementMessage) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	msg.ID = bson.NewObjectID()
	f.messages = append(f.messages, *msg)
	return nil
}

type fakeReportFinder struct {
	user *entities.ReportUser
}

func (f *fakeReportFinder) FindReportUser(context.Context, bson.ObjectID, time.Time, string) (*entities.ReportUser, error) {
	if f.user == nil {
		return nil, repository.ErrNotFound
	}
	return f.user, nil
}

type fakeBalances struct {
	balances map[string]decimal.Decimal
	batches  [][]string
}

func (f *fakeBalances) Balance(_ context.Context, address, _ string) (decimal.Decimal, error) {
	return f.balances[address], nil
}

func (f *fakeBalances) Balances(_ context.Context, addresses []string, _ string) (map[string]decimal.Decimal, error) {
	f.batches = append(f.batches, addresses)
	out := map[string]decimal.Decimal{}
	for _, a := range addresses {
		if b, ok := f.balances[a]; ok {
			out[a] = b
		}
	}
	return out, nil
}

type fakeUserStore struct {
	meta map[string]any
}

func (f *fakeUserStore) GetByID(context.Context, bson.ObjectID) (*entities.User, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) GetByTelegramID(context.Context, int64) (*entities.User, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) SetMeta(_ context.Context, _ bson.ObjectID, key string, value any) error {
	if f.meta == nil {
		f.meta = map[string]any{}
	}
	f.meta[key] = value
	return nil
}

type fakeReminderStore struct {
	without []entities.User
	stale   []entities.ReminderUser
	since   time.Time
	start   time.Time
	end     time.Time
}

func (f *fakeReminderStore) WithoutReportSince(_ context.Context, since time.Time) ([]entities.User, error) {
	f.since = since
	return f.without, nil
}

func (f *fakeReminderStore) Stale(_ context.Context, start, end time.Time) ([]entities.ReminderUser, error) {
	f.start, f.end = start, end
	return f.stale, nil
}

type fakeCandidates struct {
	reports      []*entities.ReportUser
	measurements []*entities.MeasurementsUser
	pipelines    []mongo.Pipeline
}

func (f *fakeCandidates) ReportCandidates(_ context.Context, p mongo.Pipeline) ([]*entities.ReportUser, error) {
	f.pipelines = append(f.pipelines, p)
	return f.reports, nil
}

func (f *fakeCandidates) MeasurementCandidates(_ context.Context, p mongo.Pipeline) ([]*entities.MeasurementsUser, error) {
	f.pipelines = append(f.pipelines, p)
	return f.measurements, nil
}

func testUser() *entities.User {
	return &entities.User{
		ID:         bson.NewObjectID(),
		TelegramID: 1001,
		FirstName:  "Олена",
		LastName:   "Коваль",
		Address:    "0xabc",
	}
}
