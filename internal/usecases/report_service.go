package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"coach_report_bot/internal/config"
	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/logger"
	"coach_report_bot/internal/report"
	"coach_report_bot/internal/repository"
)

// PendingSeparator joins withheld reports with the one being delivered
const PendingSeparator = "\n\n➖➖➖➖➖\n\n"

type SendReportRequest struct {
	Content    string
	ReceiverID int64
	Timezone   string
}

// ReportService sends daily reports from users to their coaches
type ReportService struct {
	gate       *EligibilityGate
	messages   interfaces.MessageStore
	reports    interfaces.ReportUserFinder
	balances   interfaces.BalanceProvider
	dispatcher *Dispatcher
	messenger  interfaces.Messenger
	cfg        *config.Config
	now        func() time.Time
}

func NewReportService(
	gate *EligibilityGate,
	messages interfaces.MessageStore,
	reports interfaces.ReportUserFinder,
	balances interfaces.BalanceProvider,
	dispatcher *Dispatcher,
	messenger interfaces.Messenger,
	cfg *config.Config,
) *ReportService {
	return &ReportService{
		gate:       gate,
		messages:   messages,
		reports:    reports,
		balances:   balances,
		dispatcher: dispatcher,
		messenger:  messenger,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *ReportService) timezone(tz string) string {
	if tz == "" {
		return s.cfg.DefaultTimezone
	}
	return tz
}

func (s *ReportService) CanSend(ctx context.Context, user *entities.User, tz string) (bool, error) {
	return s.gate.CanSendReport(ctx, user.ID.Hex(), s.timezone(tz))
}

// Balance returns the user's remaining subscription days, zero without a wallet
func (s *ReportService) Balance(ctx context.Context, user *entities.User) (decimal.Decimal, error) {
	if user.Address == "" || s.balances == nil {
		return decimal.Zero, nil
	}
	return s.balances.Balance(ctx, user.Address, s.cfg.CurrencySymbol)
}

// Preview renders the report of date without sending it
func (s *ReportService) Preview(ctx context.Context, user *entities.User, date time.Time, tz string, showDate bool) (string, error) {
	tz = s.timezone(tz)
	u, err := s.reports.FindReportUser(ctx, user.ID, date, tz)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNoReportData
	}
	if err != nil {
		return "", err
	}

	balance, err := s.Balance(ctx, user)
	if err != nil {
		return "", err
	}

	opts := report.Options{Date: date, ShowDate: showDate, Timezone: tz}
	if percent, ok := user.Meta.Decimal("maxConsumptionPercent"); ok {
		opts.MaxConsumptionPercent = decimal.NewNullDecimal(percent)
	}
	return report.RenderReport(u, balance, opts)
}

// Send delivers client rendered content to the coach
func (s *ReportService) Send(ctx context.Context, user *entities.User, req SendReportRequest) (*entities.Message, error) {
	req.Timezone = s.timezone(req.Timezone)
	ok, err := s.gate.CanSendReport(ctx, user.ID.Hex(), req.Timezone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadySent
	}
	return s.deliver(ctx, user, req)
}

// SendGenerated renders today's report on the server and delivers it
func (s *ReportService) SendGenerated(ctx context.Context, user *entities.User, receiverID int64, tz string) (*entities.Message, error) {
	tz = s.timezone(tz)
	ok, err := s.gate.CanSendReport(ctx, user.ID.Hex(), tz)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadySent
	}

	content, err := s.Preview(ctx, user, s.now(), tz, false)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, user, SendReportRequest{Content: content, ReceiverID: receiverID, Timezone: tz})
}

func (s *ReportService) deliver(ctx context.Context, user *entities.User, req SendReportRequest) (*entities.Message, error) {
	log := logger.FromContext(ctx).With("user_id", user.ID.Hex(), "receiver_id", req.ReceiverID)

	now := s.now()
	day, err := dates.DayKey(now, req.Timezone, false)
	if err != nil {
		return nil, err
	}
	weekday, err := dates.Weekday(now, req.Timezone, false)
	if err != nil {
		return nil, err
	}
	withheld := s.cfg.IsNonReportingDay(weekday)

	msg := &entities.Message{
		UserID:     user.ID.Hex(),
		Content:    req.Content,
		ReceiverID: req.ReceiverID,
		DidntSend:  withheld,
		Day:        day,
		CreatedAt:  now,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadySent
		}
		return nil, err
	}

	if withheld {
		log.Info("Report withheld on non-reporting day", "weekday", weekday)
	} else {
		if err := s.deliverToReceiver(ctx, user, msg); err != nil {
			if delErr := s.messages.Delete(context.WithoutCancel(ctx), msg.ID); delErr != nil {
				log.Error("Failed to release report day", "err", delErr)
			}
			return nil, err
		}
	}

	s.dispatcher.Notify(ctx, Delivery{
		ChatID:  user.TelegramID,
		Content: msg.Content,
		Contact: ReceiverContact(req.ReceiverID),
	})
	return msg, nil
}

// deliverToReceiver sends msg preceded by reports withheld on earlier days
func (s *ReportService) deliverToReceiver(ctx context.Context, user *entities.User, msg *entities.Message) error {
	pending, err := s.messages.Pending(ctx, msg.UserID, msg.ReceiverID)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(pending)+1)
	ids := make([]bson.ObjectID, 0, len(pending))
	for _, p := range pending {
		parts = append(parts, p.Content)
		ids = append(ids, p.ID)
	}
	parts = append(parts, msg.Content)

	err = s.dispatcher.Deliver(ctx, Delivery{
		ChatID:  msg.ReceiverID,
		Content: strings.Join(parts, PendingSeparator),
		Contact: UserContact(user.TelegramID),
		AppLink: AppLink(s.messenger.BotUsername(), s.cfg.TelegramApp, user.ID),
	})
	if err != nil {
		return err
	}

	if err := s.messages.ClearPending(ctx, ids); err != nil {
		logger.FromContext(ctx).Error("Failed to clear withheld reports", "user_id", msg.UserID, "err", err)
	}
	return nil
}

// SendSelf sends content to the user's own chat
func (s *ReportService) SendSelf(ctx context.Context, user *entities.User, content string) error {
	return s.dispatcher.Deliver(ctx, Delivery{ChatID: user.TelegramID, Content: content})
}

// SendPrivate sends content on behalf of another backend service
func (s *ReportService) SendPrivate(ctx context.Context, receiverID int64, content string) error {
	return s.dispatcher.Deliver(ctx, Delivery{ChatID: receiverID, Content: content})
}

func (s *ReportService) List(ctx context.Context, filter interfaces.MessageFilter) ([]entities.Message, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	messages, err := s.messages.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *ReportService) FirstMessages(ctx context.Context, userIDs []string) ([]entities.Message, error) {
	return s.messages.FirstMessages(ctx, userIDs)
}
