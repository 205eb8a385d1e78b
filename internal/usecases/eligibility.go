package usecases

import (
	"context"
	"fmt"
	"time"

	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/interfaces"
)

// EligibilityGate answers whether a user may send something now. The checks
// are plain reads; daily reports are additionally protected by the unique
// day index on messages.
type EligibilityGate struct {
	messages            interfaces.MessageStore
	measurementMessages interfaces.MeasurementMessageStore
	now                 func() time.Time
}

func NewEligibilityGate(messages interfaces.MessageStore, measurementMessages interfaces.MeasurementMessageStore) *EligibilityGate {
	return &EligibilityGate{messages: messages, measurementMessages: measurementMessages, now: time.Now}
}

// CanSendReport is true when the user has no message yet or the latest one
// belongs to an earlier day
func (g *EligibilityGate) CanSendReport(ctx context.Context, userID, timezone string) (bool, error) {
	latest, err := g.messages.Latest(ctx, userID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return true, nil
	}
	same, err := dates.ResolveIsSameDay(latest.CreatedAt, g.now(), dates.SameDayOptions{Timezone: timezone})
	if err != nil {
		return false, fmt.Errorf("failed to compare report days: %w", err)
	}
	return !same, nil
}

// CanSendMeasurementMessage is true unless a previous measurement message of
// the user already covers every id
func (g *EligibilityGate) CanSendMeasurementMessage(ctx context.Context, userID string, ids []string) (bool, error) {
	covered, err := g.measurementMessages.ExistsCovering(ctx, userID, ids)
	if err != nil {
		return false, err
	}
	return !covered, nil
}
