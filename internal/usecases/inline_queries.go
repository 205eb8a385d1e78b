package usecases

import (
	"context"
	"net/url"
	"path"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/config"
	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/inline"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/report"
	"coach_report_bot/internal/repository"
)

var (
	reportWords       = []string{"звіт", "report", "отчет", "отчёт"}
	measurementsWords = []string{"заміри", "measurements", "замеры"}
)

// inlineDay is one of the days an inline query kind can look at
type inlineDay struct {
	daysAgo int
	key     string
	label   string
}

var inlineDays = []inlineDay{
	{0, "", "сьогодні"},
	{1, "yesterday-", "вчора"},
	{2, "before-yesterday-", "позавчора"},
}

// reportCandidate is a report projection with the balance fetched for its page
type reportCandidate struct {
	*entities.ReportUser
	Balance decimal.Decimal
}

// PhotoURL points to the webp proxy of a user's Telegram photo. Empty when
// the user has no photo or the app URL is unknown.
func PhotoURL(appURL, userID, photoURL string) string {
	if appURL == "" || photoURL == "" {
		return ""
	}
	base, err := url.Parse(appURL)
	if err != nil {
		return ""
	}
	original, err := url.Parse(photoURL)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(&url.URL{Path: "/api/message/user-photo/" + url.PathEscape(userID) + ".webp"})
	u.RawQuery = url.Values{"original": {path.Base(original.Path)}}.Encode()
	return u.String()
}

// InlineQueries defines the report and measurement inline queries
type InlineQueries struct {
	candidates interfaces.CandidateStore
	balances   interfaces.BalanceProvider
	cfg        *config.Config
	now        func() time.Time
}

func NewInlineQueries(candidates interfaces.CandidateStore, balances interfaces.BalanceProvider, cfg *config.Config) *InlineQueries {
	return &InlineQueries{candidates: candidates, balances: balances, cfg: cfg, now: time.Now}
}

// Engine registers every kind in answer order: reports first, then measurements
func (q *InlineQueries) Engine() *inline.Engine {
	handlers := make([]inline.Handler, 0, 2*len(inlineDays))
	for _, d := range inlineDays {
		handlers = append(handlers, inline.Register(q.reportKind(d)))
	}
	for _, d := range inlineDays {
		handlers = append(handlers, inline.Register(q.measurementsKind(d)))
	}
	return inline.NewEngine(handlers...)
}

func (q *InlineQueries) date(d inlineDay) time.Time {
	return q.now().AddDate(0, 0, -d.daysAgo)
}

func (q *InlineQueries) windows(d inlineDay) (day, week dates.Range, err error) {
	return repository.ReportWindows(q.date(d), q.cfg.DefaultTimezone)
}

func thumbnail[R inline.Candidate](appURL string) inline.Value[R, string] {
	return inline.Func(func(_ context.Context, c R, _ *inline.Params) (string, error) {
		u := c.Account()
		return PhotoURL(appURL, u.ID.Hex(), u.PhotoURL), nil
	})
}

func userPage[R inline.Candidate](app string) inline.Value[R, *tgbotapi.InlineKeyboardMarkup] {
	return inline.Func(func(_ context.Context, c R, p *inline.Params) (*tgbotapi.InlineKeyboardMarkup, error) {
		return UserPageKeyboard(AppLink(p.BotUsername, app, c.Account().ID)), nil
	})
}

func dayDescription[R inline.Candidate](prefix string, date func() time.Time, timezone string) inline.Value[R, string] {
	return inline.Func(func(context.Context, R, *inline.Params) (string, error) {
		return prefix + dates.FormatDay(date(), timezone), nil
	})
}

func managedTitle[R inline.Candidate](prefix string) inline.Value[R, string] {
	return inline.Func(func(_ context.Context, c R, _ *inline.Params) (string, error) {
		return prefix + " від " + c.Account().DisplayName(), nil
	})
}

func (q *InlineQueries) reportKind(d inlineDay) inline.Kind[*reportCandidate] {
	id := "id-" + d.key + "report"
	date := func() time.Time { return q.date(d) }

	text := inline.Func(func(_ context.Context, c *reportCandidate, _ *inline.Params) (string, error) {
		return report.RenderReport(c.ReportUser, c.Balance, report.Options{
			Date:     date(),
			ShowDate: true,
			Timezone: q.cfg.DefaultTimezone,
		})
	})

	return inline.Kind[*reportCandidate]{
		SearchWords: reportWords,
		Pipeline: func(_ context.Context, _ *inline.Params) (mongo.Pipeline, error) {
			day, week, err := q.windows(d)
			if err != nil {
				return nil, err
			}
			return repository.ReportStages(day, week), nil
		},
		Self: inline.Article[*reportCandidate]{
			ID:           inline.Static[*reportCandidate](id),
			Title:        inline.Static[*reportCandidate]("Свій звіт за " + d.label),
			Text:         text,
			Description:  dayDescription[*reportCandidate]("Надіслати свій звіт за: ", date, q.cfg.DefaultTimezone),
			ThumbnailURL: thumbnail[*reportCandidate](q.cfg.AppURL),
			ReplyMarkup:  userPage[*reportCandidate](q.cfg.TelegramApp),
		},
		Managed: inline.Article[*reportCandidate]{
			ID:           inline.Static[*reportCandidate](id),
			Title:        managedTitle[*reportCandidate]("Звіт за " + d.label),
			Text:         text,
			Description:  dayDescription[*reportCandidate]("Надіслати звіт за: ", date, q.cfg.DefaultTimezone),
			ThumbnailURL: thumbnail[*reportCandidate](q.cfg.AppURL),
			ReplyMarkup:  userPage[*reportCandidate](q.cfg.TelegramApp),
		},
		Enrich: q.attachBalances,
		Source: func(ctx context.Context, pipeline mongo.Pipeline) ([]*reportCandidate, error) {
			users, err := q.candidates.ReportCandidates(ctx, pipeline)
			if err != nil {
				return nil, err
			}
			out := make([]*reportCandidate, len(users))
			for i, u := range users {
				out[i] = &reportCandidate{ReportUser: u}
			}
			return out, nil
		},
	}
}

// attachBalances fetches the balances of a whole page in one batch
func (q *InlineQueries) attachBalances(ctx context.Context, candidates []*reportCandidate, _ *inline.Params) ([]*reportCandidate, error) {
	if q.balances == nil {
		return candidates, nil
	}
	addresses := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Address != "" {
			addresses = append(addresses, c.Address)
		}
	}
	if len(addresses) == 0 {
		return candidates, nil
	}
	balances, err := q.balances.Balances(ctx, addresses, q.cfg.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		c.Balance = balances[c.Address]
	}
	return candidates, nil
}

func (q *InlineQueries) measurementsKind(d inlineDay) inline.Kind[*entities.MeasurementsUser] {
	id := "id-" + d.key + "measurements"
	date := func() time.Time { return q.date(d) }

	text := inline.Func(func(_ context.Context, u *entities.MeasurementsUser, _ *inline.Params) (string, error) {
		return report.RenderDayMeasurements(u, date(), q.cfg.DefaultTimezone), nil
	})

	return inline.Kind[*entities.MeasurementsUser]{
		SearchWords: measurementsWords,
		Pipeline: func(_ context.Context, _ *inline.Params) (mongo.Pipeline, error) {
			day, _, err := q.windows(d)
			if err != nil {
				return nil, err
			}
			return repository.BodyMeasurementsStages(day), nil
		},
		Self: inline.Article[*entities.MeasurementsUser]{
			ID:           inline.Static[*entities.MeasurementsUser](id),
			Title:        inline.Static[*entities.MeasurementsUser]("Свої заміри за " + d.label),
			Text:         text,
			Description:  dayDescription[*entities.MeasurementsUser]("Надіслати свої заміри за: ", date, q.cfg.DefaultTimezone),
			ThumbnailURL: thumbnail[*entities.MeasurementsUser](q.cfg.AppURL),
			ReplyMarkup:  userPage[*entities.MeasurementsUser](q.cfg.TelegramApp),
		},
		Managed: inline.Article[*entities.MeasurementsUser]{
			ID:           inline.Static[*entities.MeasurementsUser](id),
			Title:        managedTitle[*entities.MeasurementsUser]("Заміри за " + d.label),
			Text:         text,
			Description:  dayDescription[*entities.MeasurementsUser]("Надіслати заміри за: ", date, q.cfg.DefaultTimezone),
			ThumbnailURL: thumbnail[*entities.MeasurementsUser](q.cfg.AppURL),
			ReplyMarkup:  userPage[*entities.MeasurementsUser](q.cfg.TelegramApp),
		},
		Source: q.candidates.MeasurementCandidates,
	}
}
