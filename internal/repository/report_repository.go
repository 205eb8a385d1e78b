package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
)

// Catalog collections of both meal plan generations
const (
	CollectionIngredients   = "ingredients"
	CollectionIngredientsV2 = "ingredients-v2"
	CollectionCategories    = "categories"
	CollectionCategoriesV2  = "categories-v2"
	CollectionSets          = "sets"
	CollectionSetsV2        = "sets-v2"
	CollectionNotes         = "notes"
	CollectionNotesV2       = "notes-v2"
)

var sameUser = bson.D{{Key: "$eq", Value: bson.A{"$userId", "$$userId"}}}

// userLookup joins documents of from whose string userId equals the joined
// user's _id
func userLookup(from, as string, match bson.D, stages ...bson.D) bson.D {
	pipeline := bson.A{bson.D{{Key: "$match", Value: append(bson.D{{Key: "$expr", Value: sameUser}}, match...)}}}
	for _, s := range stages {
		pipeline = append(pipeline, s)
	}
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "let", Value: bson.D{{Key: "userId", Value: bson.D{{Key: "$toString", Value: "$_id"}}}}},
		{Key: "pipeline", Value: pipeline},
		{Key: "as", Value: as},
	}}}
}

func millisWindow(r dates.Range) bson.D {
	return bson.D{{Key: "$gte", Value: r.Start.UnixMilli()}, {Key: "$lt", Value: r.End.UnixMilli()}}
}

func dateWindow(r dates.Range) bson.D {
	return bson.D{{Key: "$gte", Value: r.Start}, {Key: "$lt", Value: r.End}}
}

// MeasurementsStage joins the day's measurements
func MeasurementsStage(day dates.Range) bson.D {
	return userLookup(CollectionMeasurements, "measurements", bson.D{{Key: "timestamp", Value: millisWindow(day)}})
}

// CatalogStage joins the user's ingredient catalog, skipping template categories
func CatalogStage(ingredients, categories, as string) bson.D {
	return userLookup(ingredients, as, nil,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: categories},
			{Key: "localField", Value: "categoryId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "categories"},
		}}},
		bson.D{{Key: "$match", Value: bson.D{{Key: "categories.templateId", Value: bson.D{
			{Key: "$not", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}},
		}}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "categories", Value: 0}}}},
	)
}

// SetsStage joins the day's sets and resolves every item's ingredient and
// category in place
func SetsStage(sets, ingredients, categories, as string, day dates.Range) bson.D {
	ingredientModels := bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: ingredients},
		{Key: "let", Value: bson.D{{Key: "ingredientId", Value: "$ingredients.id"}}},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$in", Value: bson.A{bson.D{{Key: "$toString", Value: "$_id"}}, "$$ingredientId"}},
			}}}}},
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: categories},
				{Key: "localField", Value: "categoryId"},
				{Key: "foreignField", Value: "_id"},
				{Key: "as", Value: "categories"},
			}}},
			bson.D{{Key: "$addFields", Value: bson.D{{Key: "category", Value: bson.D{{Key: "$first", Value: "$categories"}}}}}},
			bson.D{{Key: "$project", Value: bson.D{{Key: "categories", Value: 0}}}},
		}},
		{Key: "as", Value: "ingredientModels"},
	}}}

	resolve := bson.D{{Key: "$addFields", Value: bson.D{{Key: "ingredients", Value: bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: "$ingredients"},
		{Key: "as", Value: "ingredient"},
		{Key: "in", Value: bson.D{{Key: "$mergeObjects", Value: bson.A{
			"$$ingredient",
			bson.D{{Key: "ingredient", Value: bson.D{{Key: "$first", Value: bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: "$ingredientModels"},
				{Key: "as", Value: "model"},
				{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{
					bson.D{{Key: "$toString", Value: "$$model._id"}},
					"$$ingredient.id",
				}}}},
			}}}}}}},
		}}}},
	}}}}}}}

	return userLookup(sets, as, bson.D{{Key: "createdAt", Value: dateWindow(day)}},
		ingredientModels,
		resolve,
		bson.D{{Key: "$project", Value: bson.D{{Key: "ingredientModels", Value: 0}}}},
	)
}

// FirstMessageStage joins the user's earliest message
func FirstMessageStage() bson.D {
	return userLookup(CollectionMessages, "messages", nil,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		bson.D{{Key: "$limit", Value: 1}},
	)
}

// NotesStage joins the day's notes in writing order
func NotesStage(from, as string, day dates.Range) bson.D {
	return userLookup(from, as, bson.D{{Key: "createdAt", Value: dateWindow(day)}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
	)
}

// WeeklyWorkoutsStages counts the week's workouts into weeklyWorkoutsCount
func WeeklyWorkoutsStages(week dates.Range) mongo.Pipeline {
	return mongo.Pipeline{
		userLookup(CollectionMeasurements, "weeklyWorkoutCount", bson.D{
			{Key: "type", Value: entities.MeasurementExercise},
			{Key: "timestamp", Value: millisWindow(week)},
		}, bson.D{{Key: "$count", Value: "count"}}),
		{{Key: "$addFields", Value: bson.D{{Key: "weeklyWorkoutsCount", Value: bson.D{
			{Key: "$ifNull", Value: bson.A{bson.D{{Key: "$first", Value: "$weeklyWorkoutCount.count"}}, 0}},
		}}}}},
		{{Key: "$project", Value: bson.D{{Key: "weeklyWorkoutCount", Value: 0}}}},
	}
}

// RequireStepsStage keeps users that recorded steps for the day
func RequireStepsStage() bson.D {
	return bson.D{{Key: "$match", Value: bson.D{{Key: "measurements", Value: bson.D{
		{Key: "$elemMatch", Value: bson.D{{Key: "type", Value: entities.MeasurementSteps}}},
	}}}}}
}

// ReportStages joins everything a daily report needs onto user documents
func ReportStages(day, week dates.Range) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		MeasurementsStage(day),
		CatalogStage(CollectionIngredients, CollectionCategories, "allIngredients"),
		CatalogStage(CollectionIngredientsV2, CollectionCategoriesV2, "allIngredientsV2"),
		SetsStage(CollectionSets, CollectionIngredients, CollectionCategories, "sets", day),
		SetsStage(CollectionSetsV2, CollectionIngredientsV2, CollectionCategoriesV2, "setsV2", day),
		FirstMessageStage(),
		NotesStage(CollectionNotes, "notes", day),
		NotesStage(CollectionNotesV2, "notesV2", day),
	}
	pipeline = append(pipeline, WeeklyWorkoutsStages(week)...)
	return append(pipeline, RequireStepsStage())
}

// ReportWindows resolves the day and week of date with the legacy boundary
func ReportWindows(date time.Time, timezone string) (day, week dates.Range, err error) {
	if day, err = dates.DayRange(date, timezone, false); err != nil {
		return
	}
	week, err = dates.ResolveWeekDateRange(date, timezone, false)
	return
}

type ReportRepository struct {
	users *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{users: db.Collection(CollectionUsers)}
}

// FindReportUser assembles the report projection of one user for date's day.
// ErrNotFound means the user is unknown or has no steps for the day.
func (r *ReportRepository) FindReportUser(ctx context.Context, userID bson.ObjectID, date time.Time, timezone string) (*entities.ReportUser, error) {
	day, week, err := ReportWindows(date, timezone)
	if err != nil {
		return nil, err
	}

	pipeline := append(mongo.Pipeline{{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}}}, ReportStages(day, week)...)
	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate report user: %w", err)
	}
	defer cursor.Close(ctx)
	return firstDocument[entities.ReportUser](ctx, cursor)
}

// documentCursor is the part of *mongo.Cursor needed to read one row
type documentCursor interface {
	Next(ctx context.Context) bool
	Err() error
	Decode(val any) error
}

// firstDocument decodes the first row of cursor; ErrNotFound when it has none
func firstDocument[T any](ctx context.Context, cursor documentCursor) (*T, error) {
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("failed to read report user: %w", err)
		}
		return nil, ErrNotFound
	}
	var doc T
	if err := cursor.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report user: %w", err)
	}
	return &doc, nil
}

// ReportCandidates runs an inline query pipeline producing report projections
func (r *ReportRepository) ReportCandidates(ctx context.Context, pipeline mongo.Pipeline) ([]*entities.ReportUser, error) {
	return aggregateAll[entities.ReportUser](ctx, r.users, pipeline)
}

// MeasurementCandidates runs an inline query pipeline producing users with
// their day measurements
func (r *ReportRepository) MeasurementCandidates(ctx context.Context, pipeline mongo.Pipeline) ([]*entities.MeasurementsUser, error) {
	return aggregateAll[entities.MeasurementsUser](ctx, r.users, pipeline)
}

func aggregateAll[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]*T, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", coll.Name(), err)
	}
	var rows []T
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", coll.Name(), err)
	}
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// BodyMeasurementsStages joins the day's body measurements, each with its
// previous and first recorded value, and drops users without any
func BodyMeasurementsStages(day dates.Range) mongo.Pipeline {
	kinds := make(bson.A, 0, len(entities.BodyMetrics))
	for _, m := range entities.BodyMetrics {
		kinds = append(kinds, string(m))
	}

	history := bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: CollectionMeasurements},
		{Key: "let", Value: bson.D{
			{Key: "type", Value: "$type"},
			{Key: "userId", Value: "$userId"},
			{Key: "timestamp", Value: "$timestamp"},
		}},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$userId", "$$userId"}}},
				bson.D{{Key: "$eq", Value: bson.A{"$type", "$$type"}}},
				bson.D{{Key: "$lt", Value: bson.A{"$timestamp", "$$timestamp"}}},
			}}}}}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
		}},
		{Key: "as", Value: "previousMeasurements"},
	}}}

	project := bson.D{{Key: "$project", Value: bson.D{
		{Key: "_id", Value: 0},
		{Key: "type", Value: 1},
		{Key: "timestamp", Value: 1},
		{Key: "value", Value: "$meta.value"},
		{Key: "previousValue", Value: bson.D{{Key: "$first", Value: "$previousMeasurements.meta.value"}}},
		{Key: "startValue", Value: bson.D{{Key: "$last", Value: "$previousMeasurements.meta.value"}}},
	}}}

	return mongo.Pipeline{
		userLookup(CollectionMeasurements, "measurements", bson.D{
			{Key: "timestamp", Value: millisWindow(day)},
			{Key: "type", Value: bson.D{{Key: "$in", Value: kinds}}},
		},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: 1}}}},
			history,
			project,
		),
		{{Key: "$match", Value: bson.D{{Key: "measurements", Value: bson.D{{Key: "$ne", Value: bson.A{}}}}}}},
	}
}
