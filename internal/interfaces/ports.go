package interfaces

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/entities"
)

// Messenger is the bot transport. Every failure must be returned so callers
// can fall back to simpler content.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	AnswerInlineQuery(ctx context.Context, answer tgbotapi.InlineConfig) error
	BotUsername() string
}

type MessageFilter struct {
	UserID    string
	From      *time.Time
	To        *time.Time
	Offset    int64
	Limit     int64
	Ascending bool
}

type MessageStore interface {
	Latest(ctx context.Context, userID string) (*entities.Message, error)
	Pending(ctx context.Context, userID string, receiverID int64) ([]entities.Message, error)
	Insert(ctx context.Context, msg *entities.Message) error
	Delete(ctx context.Context, id bson.ObjectID) error
	ClearPending(ctx context.Context, ids []bson.ObjectID) error
	List(ctx context.Context, filter MessageFilter) ([]entities.Message, error)
	FirstMessages(ctx context.Context, userIDs []string) ([]entities.Message, error)
}

type MeasurementMessageStore interface {
	ExistsCovering(ctx context.Context, userID string, measurementIDs []string) (bool, error)
	Insert(ctx context.Context, msg *entities.MeasurementMessage) error
}

type ReportUserFinder interface {
	FindReportUser(ctx context.Context, userID bson.ObjectID, date time.Time, timezone string) (*entities.ReportUser, error)
}

// CandidateStore runs inline query pipelines over users
type CandidateStore interface {
	ReportCandidates(ctx context.Context, pipeline mongo.Pipeline) ([]*entities.ReportUser, error)
	MeasurementCandidates(ctx context.Context, pipeline mongo.Pipeline) ([]*entities.MeasurementsUser, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id bson.ObjectID) (*entities.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error)
	SetMeta(ctx context.Context, id bson.ObjectID, key string, value any) error
}

// ReminderStore lists managed users for the scheduled notifications
type ReminderStore interface {
	// WithoutReportSince returns managed users with no message created since the instant
	WithoutReportSince(ctx context.Context, since time.Time) ([]entities.User, error)
	// Stale returns managed users whose latest message before end is older than start
	Stale(ctx context.Context, start, end time.Time) ([]entities.ReminderUser, error)
}

type BalanceProvider interface {
	Balance(ctx context.Context, address, currency string) (decimal.Decimal, error)
	Balances(ctx context.Context, addresses []string, currency string) (map[string]decimal.Decimal, error)
}
