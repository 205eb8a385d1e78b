package usecases

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/repository"
)

const receiverID = int64(777)

type reportFixture struct {
	service   *ReportService
	messenger *fakeMessenger
	messages  *fakeMessageStore
	finder    *fakeReportFinder
	now       time.Time
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		messenger: &fakeMessenger{},
		messages:  &fakeMessageStore{},
		finder:    &fakeReportFinder{},
		now:       testNow,
	}
	gate := NewEligibilityGate(f.messages, &fakeMeasurementStore{})
	gate.now = func() time.Time { return f.now }
	balances := &fakeBalances{balances: map[string]decimal.Decimal{"0xabc": decimal.NewFromInt(12)}}
	f.service = NewReportService(gate, f.messages, f.finder, balances, NewDispatcher(f.messenger), f.messenger, testConfig())
	f.service.now = func() time.Time { return f.now }
	return f
}

func TestReportService_Send(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	t.Run("Should deliver to receiver then confirm to sender", func(t *testing.T) {
		f := newReportFixture()
		msg, err := f.service.Send(ctx, user, SendReportRequest{Content: "звіт", ReceiverID: receiverID})
		require.NoError(t, err)

		assert.Equal(t, "2026-10-19", msg.Day)
		assert.False(t, msg.DidntSend)
		require.Len(t, f.messenger.sent, 2)
		assert.Equal(t, receiverID, f.messenger.sent[0].ChatID)
		assert.Equal(t, []string{"Показати користувача", "Написати користувачеві", "Перейти до профілю в додатку"}, buttons(f.messenger.sent[0]))
		assert.Equal(t, user.TelegramID, f.messenger.sent[1].ChatID)
		assert.Equal(t, []string{"Показати отримувача", "Написати отримувачеві"}, buttons(f.messenger.sent[1]))
	})

	t.Run("Should refuse second report of the day", func(t *testing.T) {
		f := newReportFixture()
		_, err := f.service.Send(ctx, user, SendReportRequest{Content: "one", ReceiverID: receiverID})
		require.NoError(t, err)

		f.now = f.now.Add(time.Hour)
		_, err = f.service.Send(ctx, user, SendReportRequest{Content: "two", ReceiverID: receiverID})
		assert.ErrorIs(t, err, ErrAlreadySent)
		assert.Len(t, f.messages.messages, 1)
	})

	t.Run("Should map duplicate day claim to already sent", func(t *testing.T) {
		f := newReportFixture()
		f.messages.insertErr = fmt.Errorf("message for u on day: %w", repository.ErrDuplicate)

		_, err := f.service.Send(ctx, user, SendReportRequest{Content: "x", ReceiverID: receiverID})
		assert.ErrorIs(t, err, ErrAlreadySent)
		assert.Empty(t, f.messenger.sent)
	})

	t.Run("Should withhold on weekend and carry over", func(t *testing.T) {
		f := newReportFixture()
		f.now = time.Date(2026, 10, 24, 9, 0, 0, 0, time.UTC)

		saturday, err := f.service.Send(ctx, user, SendReportRequest{Content: "субота", ReceiverID: receiverID})
		require.NoError(t, err)
		assert.True(t, saturday.DidntSend)
		assert.Empty(t, f.messenger.to(receiverID))
		require.Len(t, f.messenger.to(user.TelegramID), 1)

		f.now = time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC)
		_, err = f.service.Send(ctx, user, SendReportRequest{Content: "понеділок", ReceiverID: receiverID})
		require.NoError(t, err)

		received := f.messenger.to(receiverID)
		require.Len(t, received, 1)
		assert.Equal(t, "субота"+PendingSeparator+"понеділок", received[0].Text)
		pending, _ := f.messages.Pending(ctx, user.ID.Hex(), receiverID)
		assert.Empty(t, pending)
	})

	t.Run("Should keep reports withheld from a previous coach", func(t *testing.T) {
		f := newReportFixture()
		f.now = time.Date(2026, 10, 24, 9, 0, 0, 0, time.UTC)
		_, err := f.service.Send(ctx, user, SendReportRequest{Content: "субота", ReceiverID: receiverID})
		require.NoError(t, err)

		const newCoach int64 = 3003
		f.now = time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC)
		_, err = f.service.Send(ctx, user, SendReportRequest{Content: "понеділок", ReceiverID: newCoach})
		require.NoError(t, err)

		received := f.messenger.to(newCoach)
		require.Len(t, received, 1)
		assert.Equal(t, "понеділок", received[0].Text)
		assert.Empty(t, f.messenger.to(receiverID))
		pending, _ := f.messages.Pending(ctx, user.ID.Hex(), receiverID)
		assert.Len(t, pending, 1)
	})

	t.Run("Should release day when receiver delivery fails", func(t *testing.T) {
		f := newReportFixture()
		f.messenger.fail = func(m sentMessage) error {
			if m.ChatID == receiverID {
				return errTelegram
			}
			return nil
		}

		_, err := f.service.Send(ctx, user, SendReportRequest{Content: "x", ReceiverID: receiverID})
		assert.ErrorIs(t, err, errTelegram)
		assert.Empty(t, f.messages.messages)
		assert.Empty(t, f.messenger.to(user.TelegramID))
	})

	t.Run("Should succeed when only confirmation fails", func(t *testing.T) {
		f := newReportFixture()
		f.messenger.fail = func(m sentMessage) error {
			if m.ChatID == user.TelegramID {
				return errTelegram
			}
			return nil
		}

		_, err := f.service.Send(ctx, user, SendReportRequest{Content: "x", ReceiverID: receiverID})
		assert.NoError(t, err)
		assert.Len(t, f.messenger.to(receiverID), 1)
	})
}

func TestReportService_SendGenerated(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	t.Run("Should fail without report data", func(t *testing.T) {
		f := newReportFixture()
		_, err := f.service.SendGenerated(ctx, user, receiverID, "")
		assert.ErrorIs(t, err, ErrNoReportData)
		assert.Empty(t, f.messages.messages)
	})

	t.Run("Should render and deliver report", func(t *testing.T) {
		f := newReportFixture()
		f.finder.user = &entities.ReportUser{
			User:         *user,
			Measurements: []entities.Measurement{{Type: entities.MeasurementSteps, Meta: entities.MeasurementMeta{Value: entities.NumberPtr("8000")}}},
		}

		msg, err := f.service.SendGenerated(ctx, user, receiverID, "")
		require.NoError(t, err)
		assert.Contains(t, msg.Content, "Олена Коваль")
		assert.Contains(t, msg.Content, "*Кількість днів до завершення підписки:* 12")
		assert.Equal(t, msg.Content, f.messenger.to(receiverID)[0].Text)
	})
}

func TestReportService_Preview(t *testing.T) {
	f := newReportFixture()
	user := testUser()
	user.Address = ""
	user.Meta = entities.Meta{"maxConsumptionPercent": int32(80)}
	f.finder.user = &entities.ReportUser{
		User:         *user,
		Measurements: []entities.Measurement{{Type: entities.MeasurementSteps, Meta: entities.MeasurementMeta{Value: entities.NumberPtr("100")}}},
	}

	content, err := f.service.Preview(context.Background(), user, testNow, "", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "*_Щоденний звіт за 19\\.10\\.2026:_*"))
	assert.Contains(t, content, "підписки:* 0")
}

func TestReportService_SendSelf(t *testing.T) {
	f := newReportFixture()
	user := testUser()

	require.NoError(t, f.service.SendSelf(context.Background(), user, "копія"))
	require.Len(t, f.messenger.sent, 1)
	assert.Equal(t, user.TelegramID, f.messenger.sent[0].ChatID)
	assert.Nil(t, f.messenger.sent[0].Markup)
}
