package usecases

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/inline"
)

func TestPhotoURL(t *testing.T) {
	tests := []struct {
		name   string
		appURL string
		photo  string
		want   string
	}{
		{"Should proxy last path segment", "https://coach.example.com/app/", "https://t.me/i/userpic/320/abc.jpg",
			"https://coach.example.com/api/message/user-photo/u1.webp?original=abc.jpg"},
		{"Should skip users without photo", "https://coach.example.com", "", ""},
		{"Should skip without app url", "", "https://t.me/i/userpic/320/abc.jpg", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhotoURL(tt.appURL, "u1", tt.photo))
		})
	}
}

func inlineText(t *testing.T, r inline.Result) string {
	t.Helper()
	content, ok := r.InputMessageContent.(tgbotapi.InputTextMessageContent)
	require.True(t, ok)
	return content.Text
}

func TestInlineQueries_Reports(t *testing.T) {
	coach := testUser()
	coach.PhotoURL = "https://t.me/i/userpic/320/coach.jpg"
	client := entities.User{ID: bson.NewObjectID(), TelegramID: 2002, FirstName: "Ігор", Address: "0xdef", Meta: entities.Meta{"managerId": coach.TelegramID}}
	steps := []entities.Measurement{{Type: entities.MeasurementSteps, Meta: entities.MeasurementMeta{Value: entities.NumberPtr("9000")}}}

	candidates := &fakeCandidates{reports: []*entities.ReportUser{
		{User: *coach, Measurements: steps},
		{User: client, Measurements: steps},
	}}
	balances := &fakeBalances{balances: map[string]decimal.Decimal{"0xabc": decimal.NewFromInt(3), "0xdef": decimal.NewFromInt(30)}}
	q := NewInlineQueries(candidates, balances, testConfig())
	q.now = func() time.Time { return testNow }

	results, next, err := q.Engine().Answer(context.Background(), inline.Params{
		Query:       inline.ParseQuery("звіт"),
		Current:     coach,
		BotUsername: "coach_bot",
	}, "")
	require.NoError(t, err)

	assert.Empty(t, next)
	require.Len(t, results, 6)
	assert.Len(t, candidates.pipelines, 3)
	assert.Len(t, balances.batches, 3)

	self := results[0]
	assert.Equal(t, "id-report-"+coach.ID.Hex(), self.ID)
	assert.Equal(t, "Свій звіт за сьогодні", self.Title)
	assert.Equal(t, "Надіслати свій звіт за: 19.10.2026", self.Description)
	assert.Equal(t, "https://coach.example.com/api/message/user-photo/"+coach.ID.Hex()+".webp?original=coach.jpg", self.ThumbURL)
	assert.Contains(t, inlineText(t, self), "*Кількість днів до завершення підписки:* 3")
	require.NotNil(t, self.ReplyMarkup)
	button := self.ReplyMarkup.InlineKeyboard[0][0]
	assert.Equal(t, "Перейти до користувача", button.Text)
	assert.Equal(t, "https://t.me/coach_bot/app?startapp=user_"+coach.ID.Hex(), *button.URL)

	managed := results[1]
	assert.Equal(t, "Звіт за сьогодні від Ігор", managed.Title)
	assert.Equal(t, "Надіслати звіт за: 19.10.2026", managed.Description)
	assert.Empty(t, managed.ThumbURL)
	assert.Contains(t, inlineText(t, managed), "*Кількість днів до завершення підписки:* 30")

	assert.Equal(t, "id-yesterday-report-"+coach.ID.Hex(), results[2].ID)
	assert.Equal(t, "Звіт за позавчора від Ігор", results[5].Title)
	assert.Contains(t, inlineText(t, results[4]), "*_Щоденний звіт за 17\\.10\\.2026:_*")
}

func TestInlineQueries_Measurements(t *testing.T) {
	coach := testUser()
	candidates := &fakeCandidates{measurements: []*entities.MeasurementsUser{{
		User: *coach,
		Measurements: []entities.DayMeasurement{{
			Type:      entities.Weight,
			Timestamp: testNow.UnixMilli(),
			Value:     entities.NewNumber("71"),
		}},
	}}}
	q := NewInlineQueries(candidates, nil, testConfig())
	q.now = func() time.Time { return testNow }

	results, _, err := q.Engine().Answer(context.Background(), inline.Params{
		Query:       inline.ParseQuery("заміри Олена"),
		Current:     coach,
		BotUsername: "coach_bot",
	}, "")
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "id-measurements-"+coach.ID.Hex(), results[0].ID)
	assert.Equal(t, "Свої заміри за сьогодні", results[0].Title)
	assert.Equal(t, "Свої заміри за вчора", results[1].Title)
	assert.Contains(t, inlineText(t, results[0]), "*Поточне значення:* 71 кг")
	assert.Equal(t, "Надіслати свої заміри за: 17.10.2026", results[2].Description)
}

func TestInlineQueries_NoMatch(t *testing.T) {
	q := NewInlineQueries(&fakeCandidates{}, nil, testConfig())
	results, next, err := q.Engine().Answer(context.Background(), inline.Params{
		Query:   inline.ParseQuery("погода"),
		Current: testUser(),
	}, "")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, next)
}
