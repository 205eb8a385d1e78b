package usecases

import (
	"context"
	"time"

	"coach_report_bot/internal/config"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/logger"
	"coach_report_bot/internal/report"
)

type MeasurementService struct {
	gate       *EligibilityGate
	store      interfaces.MeasurementMessageStore
	dispatcher *Dispatcher
	messenger  interfaces.Messenger
	cfg        *config.Config
	now        func() time.Time
}

func NewMeasurementService(gate *EligibilityGate, store interfaces.MeasurementMessageStore, dispatcher *Dispatcher, messenger interfaces.Messenger, cfg *config.Config) *MeasurementService {
	return &MeasurementService{
		gate:       gate,
		store:      store,
		dispatcher: dispatcher,
		messenger:  messenger,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *MeasurementService) CanSend(ctx context.Context, user *entities.User, ids []string) (bool, error) {
	return s.gate.CanSendMeasurementMessage(ctx, user.ID.Hex(), ids)
}

// Send notifies the coach about a complete set of body measurements and keeps
// a copy for deduplication. A failed copy is logged, not returned. The check and the insert are not atomic: two
// concurrent submissions of the same ids may both go through.
func (s *MeasurementService) Send(ctx context.Context, user *entities.User, values []entities.MeasurementValue, receiverID int64) (*entities.MeasurementMessage, string, error) {
	msg := &entities.MeasurementMessage{
		UserID:       user.ID.Hex(),
		ReceiverID:   receiverID,
		Measurements: values,
	}

	if ids := msg.IDs(); len(ids) > 0 {
		ok, err := s.gate.CanSendMeasurementMessage(ctx, msg.UserID, ids)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", ErrAlreadySent
		}
	}

	content := report.RenderMeasurementSummary(values, user.ProfileName(), user.TelegramID)

	err := s.dispatcher.Deliver(ctx, Delivery{
		ChatID:  receiverID,
		Content: content,
		Contact: UserContact(user.TelegramID),
		AppLink: AppLink(s.messenger.BotUsername(), s.cfg.TelegramApp, user.ID),
	})
	if err != nil {
		return nil, "", err
	}

	s.dispatcher.Notify(ctx, Delivery{
		ChatID:  user.TelegramID,
		Content: content,
		Contact: ReceiverContact(receiverID),
	})

	// delivered already; a lost record only weakens deduplication
	msg.CreatedAt = s.now()
	if err := s.store.Insert(ctx, msg); err != nil {
		logger.FromContext(ctx).Error("Failed to record measurement message", "user_id", msg.UserID, "receiver_id", receiverID, "err", err)
	}
	return msg, content, nil
}
