package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/entities"
)

type ReminderRepository struct {
	users *mongo.Collection
}

func NewReminderRepository(db *mongo.Database) *ReminderRepository {
	return &ReminderRepository{users: db.Collection(CollectionUsers)}
}

var managedUsers = bson.D{{Key: "$match", Value: bson.D{
	{Key: "meta.managerId", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}},
}}}

func messagesLookup(cond bson.D, stages ...bson.D) bson.D {
	pipeline := bson.A{bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{
			bson.D{{Key: "$toString", Value: "$userId"}},
			bson.D{{Key: "$toString", Value: "$$userId"}},
		}}},
		cond,
	}}}}}}}}
	for _, s := range stages {
		pipeline = append(pipeline, s)
	}
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: CollectionMessages},
		{Key: "let", Value: bson.D{{Key: "userId", Value: "$_id"}}},
		{Key: "pipeline", Value: pipeline},
		{Key: "as", Value: "messages"},
	}}}
}

// WithoutReportPipeline selects managed users that sent nothing since the instant
func WithoutReportPipeline(since time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		managedUsers,
		messagesLookup(bson.D{{Key: "$gte", Value: bson.A{"$createdAt", since}}}, bson.D{{Key: "$limit", Value: 1}}),
		{{Key: "$match", Value: bson.D{{Key: "messages", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "messages", Value: 0}}}},
	}
}

// StalePipeline selects managed users whose latest message up to end is
// older than start, keeping that message
func StalePipeline(start, end time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		managedUsers,
		messagesLookup(bson.D{{Key: "$lte", Value: bson.A{"$createdAt", end}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
			bson.D{{Key: "$limit", Value: 1}},
		),
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "messages", Value: bson.D{{Key: "$size", Value: 0}}}},
			bson.D{{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{"$messages.createdAt", 0}}},
				start,
			}}}}},
		}}}}},
	}
}

func (r *ReminderRepository) WithoutReportSince(ctx context.Context, since time.Time) ([]entities.User, error) {
	cursor, err := r.users.Aggregate(ctx, WithoutReportPipeline(since))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate users without report: %w", err)
	}
	var users []entities.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users without report: %w", err)
	}
	return users, nil
}

func (r *ReminderRepository) Stale(ctx context.Context, start, end time.Time) ([]entities.ReminderUser, error) {
	cursor, err := r.users.Aggregate(ctx, StalePipeline(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stale users: %w", err)
	}
	var users []entities.ReminderUser
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode stale users: %w", err)
	}
	return users, nil
}
