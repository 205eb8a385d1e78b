// Package inline answers Telegram inline queries from declarative kinds. A kind
// names its trigger words, the aggregation stages that shape candidates and
// the article templates for the querying user and for the users they manage.
package inline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/entities"
)

// PageSize is the most results Telegram accepts in one answer
const PageSize = 50

type Result = tgbotapi.InlineQueryResultArticle

// Candidate is an aggregation row built on a user document
type Candidate interface {
	Account() *entities.User
}

type Params struct {
	Query       Query
	Current     *entities.User
	BotUsername string
	Offset      int
	Limit       int
}

type Article[R Candidate] struct {
	ID           Value[R, string]
	Title        Value[R, string]
	Text         Value[R, string]
	Description  Value[R, string]
	ThumbnailURL Value[R, string]
	ReplyMarkup  Value[R, *tgbotapi.InlineKeyboardMarkup]
}

type Kind[R Candidate] struct {
	SearchWords []string
	// Pipeline returns the stages run after candidate scoping
	Pipeline func(ctx context.Context, p *Params) (mongo.Pipeline, error)
	Self     Article[R]
	Managed  Article[R]
	// Enrich runs once over the whole page, e.g. to batch external lookups
	Enrich func(ctx context.Context, candidates []R, p *Params) ([]R, error)
	Source func(ctx context.Context, pipeline mongo.Pipeline) ([]R, error)
}

// Handler answers one page of a single kind
type Handler func(ctx context.Context, p Params) ([]Result, error)

var nameFields = []string{"_id", "id", "firstName", "lastName", "username", "meta.firstName", "meta.lastName"}

// CandidatePipeline scopes rows to the current user and the users they manage,
// optionally narrowed by a case-insensitive name filter
func CandidatePipeline(current *entities.User, name string, custom mongo.Pipeline, offset, limit int) mongo.Pipeline {
	scope := bson.A{
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "_id", Value: current.ID}},
			bson.D{{Key: "meta.managerId", Value: current.TelegramID}},
		}}},
	}
	if name = strings.TrimSpace(name); name != "" {
		pattern := regexp.QuoteMeta(name)
		matches := make(bson.A, 0, len(nameFields))
		for _, field := range nameFields {
			matches = append(matches, bson.D{{Key: "$expr", Value: bson.D{{Key: "$regexMatch", Value: bson.D{
				{Key: "input", Value: bson.D{{Key: "$toString", Value: "$" + field}}},
				{Key: "regex", Value: pattern},
				{Key: "options", Value: "i"},
			}}}}})
		}
		scope = append(scope, bson.D{{Key: "$or", Value: matches}})
	}

	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.D{{Key: "$and", Value: scope}}}}}
	pipeline = append(pipeline, custom...)
	return append(pipeline,
		bson.D{{Key: "$skip", Value: int64(offset)}},
		bson.D{{Key: "$limit", Value: int64(limit)}},
	)
}

// Register turns a kind into a Handler
func Register[R Candidate](kind Kind[R]) Handler {
	return func(ctx context.Context, p Params) ([]Result, error) {
		if !p.Query.Matches(kind.SearchWords) || p.Limit <= 0 {
			return nil, nil
		}
		if p.Current == nil {
			return nil, fmt.Errorf("inline query without current user")
		}

		var custom mongo.Pipeline
		if kind.Pipeline != nil {
			stages, err := kind.Pipeline(ctx, &p)
			if err != nil {
				return nil, fmt.Errorf("failed to build pipeline: %w", err)
			}
			custom = stages
		}

		candidates, err := kind.Source(ctx, CandidatePipeline(p.Current, p.Query.Name, custom, p.Offset, p.Limit))
		if err != nil {
			return nil, fmt.Errorf("failed to load candidates: %w", err)
		}
		if kind.Enrich != nil && len(candidates) > 0 {
			if candidates, err = kind.Enrich(ctx, candidates, &p); err != nil {
				return nil, fmt.Errorf("failed to enrich candidates: %w", err)
			}
		}

		results := make([]Result, 0, len(candidates))
		for _, c := range candidates {
			article := kind.Managed
			if c.Account().ID == p.Current.ID {
				article = kind.Self
			}
			result, err := buildArticle(ctx, article, c, &p)
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}
		return results, nil
	}
}

func buildArticle[R Candidate](ctx context.Context, a Article[R], c R, p *Params) (Result, error) {
	var (
		fields [5]string
		err    error
	)
	for i, v := range []Value[R, string]{a.ID, a.Title, a.Text, a.Description, a.ThumbnailURL} {
		if fields[i], err = v.Resolve(ctx, c, p); err != nil {
			return Result{}, fmt.Errorf("failed to render article: %w", err)
		}
	}
	markup, err := a.ReplyMarkup.Resolve(ctx, c, p)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render article markup: %w", err)
	}

	id := fields[0] + "-" + c.Account().ID.Hex()
	result := tgbotapi.NewInlineQueryResultArticleMarkdownV2(id, fields[1], fields[2])
	result.Description = fields[3]
	result.ThumbURL = fields[4]
	result.ReplyMarkup = markup
	return result, nil
}

// Engine pages through several registered kinds in order
type Engine struct {
	handlers []Handler
}

func NewEngine(handlers ...Handler) *Engine {
	return &Engine{handlers: handlers}
}

// ParseOffset reads the "step:position" token; anything malformed restarts at 0:0
func ParseOffset(token string) (step, position int) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	step, err1 := strconv.Atoi(parts[0])
	position, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || step < 0 || position < 0 {
		return 0, 0
	}
	return step, position
}

// Answer collects up to PageSize results starting at offset and returns the
// token of the next page, empty once every kind is exhausted
func (e *Engine) Answer(ctx context.Context, p Params, offset string) ([]Result, string, error) {
	step, position := ParseOffset(offset)

	results := make([]Result, 0, PageSize)
	for i := step; i < len(e.handlers); i++ {
		p.Offset = 0
		if i == step {
			p.Offset = position
		}
		p.Limit = PageSize - len(results)

		page, err := e.handlers[i](ctx, p)
		if err != nil {
			return nil, "", err
		}
		results = append(results, page...)
		if len(results) >= PageSize {
			return results, fmt.Sprintf("%d:%d", i, p.Offset+len(page)), nil
		}
	}
	return results, "", nil
}
