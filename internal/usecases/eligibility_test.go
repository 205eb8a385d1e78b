package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
)

func TestEligibilityGate_CanSendReport(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		messages []entities.Message
		want     bool
	}{
		{"Should allow first report", nil, true},
		{"Should allow when latest is from yesterday", []entities.Message{{UserID: "u", CreatedAt: testNow.Add(-24 * time.Hour)}}, true},
		{"Should block second report of the day", []entities.Message{{UserID: "u", CreatedAt: testNow.Add(-2 * time.Hour)}}, false},
		// 01:30 Kyiv still belongs to the previous day
		{"Should apply legacy offset", []entities.Message{{UserID: "u", CreatedAt: time.Date(2026, 10, 18, 22, 30, 0, 0, time.UTC)}}, true},
		{"Should ignore other users", []entities.Message{{UserID: "other", CreatedAt: testNow}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewEligibilityGate(&fakeMessageStore{messages: tt.messages}, &fakeMeasurementStore{})
			gate.now = func() time.Time { return testNow }

			ok, err := gate.CanSendReport(ctx, "u", "Europe/Kyiv")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("Should fail on invalid timezone", func(t *testing.T) {
		gate := NewEligibilityGate(&fakeMessageStore{messages: []entities.Message{{UserID: "u", CreatedAt: testNow}}}, &fakeMeasurementStore{})
		_, err := gate.CanSendReport(ctx, "u", "Mars/Olympus")
		assert.ErrorIs(t, err, dates.ErrInvalidTimezone)
	})
}

func TestEligibilityGate_CanSendMeasurementMessage(t *testing.T) {
	ctx := context.Background()
	store := &fakeMeasurementStore{messages: []entities.MeasurementMessage{{
		UserID:       "u",
		Measurements: []entities.MeasurementValue{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}}}
	gate := NewEligibilityGate(&fakeMessageStore{}, store)

	tests := []struct {
		name string
		ids  []string
		want bool
	}{
		{"Should block the same ids", []string{"a", "b", "c"}, false},
		{"Should block a covered subset", []string{"a", "c"}, false},
		{"Should allow an unseen id", []string{"a", "d"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := gate.CanSendMeasurementMessage(ctx, "u", tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
