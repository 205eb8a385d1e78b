package inline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/entities"
)

func TestParseQuery(t *testing.T) {
	t.Run("Should split trigger and name", func(t *testing.T) {
		q := ParseQuery("  звіт Олена Коваль ")
		assert.Equal(t, []string{"звіт"}, q.Requests)
		assert.Equal(t, "Олена Коваль", q.Name)
	})

	t.Run("Should reverse conjunction segments", func(t *testing.T) {
		q := ParseQuery("заміри Та звіт Олена")
		assert.Equal(t, []string{"звіт", "заміри"}, q.Requests)
		assert.Equal(t, "Олена", q.Name)
	})

	t.Run("Should only split on whole words", func(t *testing.T) {
		q := ParseQuery("report andrew")
		assert.Equal(t, []string{"report"}, q.Requests)
		assert.Equal(t, "andrew", q.Name)

		q = ParseQuery("report TA x")
		assert.Equal(t, []string{"report"}, q.Requests)
		assert.Equal(t, "TA x", q.Name)

		q = ParseQuery("report + measurements | звіт")
		assert.Equal(t, []string{"звіт", "measurements", "report"}, q.Requests)
		assert.Empty(t, q.Name)
	})

	t.Run("Should treat empty query as match-all", func(t *testing.T) {
		q := ParseQuery("")
		assert.Equal(t, []string{""}, q.Requests)
		assert.True(t, q.Matches([]string{"звіт"}))
	})
}

func TestQueryMatches(t *testing.T) {
	words := []string{"звіт", "report", "отчет"}
	cases := []struct {
		query string
		want  bool
	}{
		{"зв", true},
		{"REP", true},
		{"заміри", false},
		{"заміри та rep", true},
		{"(", false},
	}
	for _, tc := range cases {
		t.Run("Should match "+tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseQuery(tc.query).Matches(words))
		})
	}
}

func TestCandidatePipeline(t *testing.T) {
	current := &entities.User{ID: bson.NewObjectID(), TelegramID: 99}

	t.Run("Should scope to self and managed users", func(t *testing.T) {
		p := CandidatePipeline(current, "", nil, 5, 10)
		require.Len(t, p, 3)
		match := p[0][0]
		assert.Equal(t, "$match", match.Key)
		and := match.Value.(bson.D)[0].Value.(bson.A)
		require.Len(t, and, 1)
		or := and[0].(bson.D)[0].Value.(bson.A)
		assert.Equal(t, bson.D{{Key: "_id", Value: current.ID}}, or[0])
		assert.Equal(t, bson.D{{Key: "meta.managerId", Value: int64(99)}}, or[1])
		assert.Equal(t, bson.D{{Key: "$skip", Value: int64(5)}}, p[1])
		assert.Equal(t, bson.D{{Key: "$limit", Value: int64(10)}}, p[2])
	})

	t.Run("Should quote name filter and keep custom stages", func(t *testing.T) {
		custom := mongo.Pipeline{bson.D{{Key: "$addFields", Value: bson.D{}}}}
		p := CandidatePipeline(current, "a.b", custom, 0, 50)
		require.Len(t, p, 4)
		assert.Equal(t, "$addFields", p[1][0].Key)

		and := p[0][0].Value.(bson.D)[0].Value.(bson.A)
		require.Len(t, and, 2)
		names := and[1].(bson.D)[0].Value.(bson.A)
		assert.Len(t, names, len(nameFields))
		regex := names[0].(bson.D)[0].Value.(bson.D)[0].Value.(bson.D)
		assert.Equal(t, `a\.b`, regex[1].Value)
		assert.Equal(t, "i", regex[2].Value)
	})
}

type candidate struct {
	entities.User
	note string
}

func (c *candidate) Account() *entities.User { return &c.User }

func TestRegister(t *testing.T) {
	self := &candidate{User: entities.User{ID: bson.NewObjectID(), TelegramID: 1}}
	managed := &candidate{User: entities.User{ID: bson.NewObjectID(), TelegramID: 2, FirstName: "Ira"}}

	var seen mongo.Pipeline
	kind := Kind[*candidate]{
		SearchWords: []string{"звіт"},
		Self: Article[*candidate]{
			ID:    Static[*candidate]("id-report"),
			Title: Static[*candidate]("Свій звіт"),
			Text:  Static[*candidate]("self"),
		},
		Managed: Article[*candidate]{
			ID: Static[*candidate]("id-report"),
			Title: Func(func(_ context.Context, c *candidate, _ *Params) (string, error) {
				return "Звіт від " + c.FirstName, nil
			}),
			Text: Func(func(_ context.Context, c *candidate, _ *Params) (string, error) {
				return c.note, nil
			}),
			ReplyMarkup: Func(func(_ context.Context, c *candidate, p *Params) (*tgbotapi.InlineKeyboardMarkup, error) {
				markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonURL("open", "https://t.me/"+p.BotUsername),
				))
				return &markup, nil
			}),
		},
		Source: func(_ context.Context, pipeline mongo.Pipeline) ([]*candidate, error) {
			seen = pipeline
			return []*candidate{self, managed}, nil
		},
		Enrich: func(_ context.Context, cs []*candidate, _ *Params) ([]*candidate, error) {
			for _, c := range cs {
				c.note = fmt.Sprintf("note-%d", c.TelegramID)
			}
			return cs, nil
		},
	}
	handler := Register(kind)

	t.Run("Should pick article per candidate", func(t *testing.T) {
		results, err := handler(context.Background(), Params{
			Query:       ParseQuery("звіт"),
			Current:     &self.User,
			BotUsername: "coachbot",
			Limit:       50,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "id-report-"+self.ID.Hex(), results[0].ID)
		assert.Equal(t, "Свій звіт", results[0].Title)
		assert.Nil(t, results[0].ReplyMarkup)

		assert.Equal(t, "Звіт від Ira", results[1].Title)
		content := results[1].InputMessageContent.(tgbotapi.InputTextMessageContent)
		assert.Equal(t, "note-2", content.Text)
		assert.Equal(t, "MarkdownV2", content.ParseMode)
		require.NotNil(t, results[1].ReplyMarkup)
		assert.Equal(t, "https://t.me/coachbot", *results[1].ReplyMarkup.InlineKeyboard[0][0].URL)
		assert.NotEmpty(t, seen)
	})

	t.Run("Should skip invisible queries", func(t *testing.T) {
		seen = nil
		results, err := handler(context.Background(), Params{Query: ParseQuery("заміри"), Current: &self.User, Limit: 50})
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Nil(t, seen)
	})
}

// fixedKind returns n results with ids prefixed by name honoring offset and limit
func fixedKind(name string, n int, calls *[]string) Handler {
	return func(_ context.Context, p Params) ([]Result, error) {
		*calls = append(*calls, fmt.Sprintf("%s:%d:%d", name, p.Offset, p.Limit))
		var out []Result
		for i := p.Offset; i < n && len(out) < p.Limit; i++ {
			out = append(out, Result{ID: fmt.Sprintf("%s-%d", name, i)})
		}
		return out, nil
	}
}

func TestEngineAnswer(t *testing.T) {
	t.Run("Should fill page across kinds", func(t *testing.T) {
		var calls []string
		engine := NewEngine(fixedKind("a", 30, &calls), fixedKind("b", 40, &calls), fixedKind("c", 5, &calls))

		results, next, err := engine.Answer(context.Background(), Params{}, "")
		require.NoError(t, err)
		assert.Len(t, results, PageSize)
		assert.Equal(t, "1:20", next)
		assert.Equal(t, []string{"a:0:50", "b:0:20"}, calls)

		calls = nil
		results, next, err = engine.Answer(context.Background(), Params{}, next)
		require.NoError(t, err)
		assert.Len(t, results, 25)
		assert.Equal(t, "b-20", results[0].ID)
		assert.Equal(t, "c-0", results[20].ID)
		assert.Empty(t, next)
		assert.Equal(t, []string{"b:20:50", "c:0:30"}, calls)
	})

	t.Run("Should restart on malformed offset", func(t *testing.T) {
		step, pos := ParseOffset("x:1")
		assert.Zero(t, step)
		assert.Zero(t, pos)
		step, pos = ParseOffset("2:17")
		assert.Equal(t, 2, step)
		assert.Equal(t, 17, pos)
	})

	t.Run("Should surface kind errors", func(t *testing.T) {
		engine := NewEngine(func(context.Context, Params) ([]Result, error) {
			return nil, errors.New("boom")
		})
		_, _, err := engine.Answer(context.Background(), Params{}, "0:0")
		assert.EqualError(t, err, "boom")
	})
}
