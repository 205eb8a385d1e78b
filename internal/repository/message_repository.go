package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/interfaces"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

const (
	CollectionUsers               = "users"
	CollectionMessages            = "messages"
	CollectionMeasurementMessages = "measurementmessages"
	CollectionMeasurements        = "measurements"
)

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection(CollectionMessages)}
}

// Latest returns the newest message of a user, nil when there is none
func (r *MessageRepository) Latest(ctx context.Context, userID string) (*entities.Message, error) {
	var msg entities.Message
	err := r.coll.FindOne(ctx,
		bson.D{{Key: "userId", Value: userID}},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest message: %w", err)
	}
	return &msg, nil
}

// Pending returns messages withheld from receiverID, oldest first
func (r *MessageRepository) Pending(ctx context.Context, userID string, receiverID int64) ([]entities.Message, error) {
	cursor, err := r.coll.Find(ctx,
		bson.D{{Key: "userId", Value: userID}, {Key: "receiverId", Value: receiverID}, {Key: "didntSend", Value: true}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending messages: %w", err)
	}
	var messages []entities.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode pending messages: %w", err)
	}
	return messages, nil
}

// Insert stores msg and sets its id. A second message for the same report day
// fails with ErrDuplicate.
func (r *MessageRepository) Insert(ctx context.Context, msg *entities.Message) error {
	now := time.Now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, msg)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("message for %s on %s: %w", msg.UserID, msg.Day, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		msg.ID = id
	}
	return nil
}

func (r *MessageRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// ClearPending unsets the withheld flag of delivered messages
func (r *MessageRepository) ClearPending(ctx context.Context, ids []bson.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "didntSend", Value: false},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to clear pending messages: %w", err)
	}
	return nil
}

func (r *MessageRepository) List(ctx context.Context, filter interfaces.MessageFilter) ([]entities.Message, error) {
	query := bson.D{{Key: "userId", Value: filter.UserID}}
	created := bson.D{}
	if filter.From != nil {
		created = append(created, bson.E{Key: "$gte", Value: *filter.From})
	}
	if filter.To != nil {
		created = append(created, bson.E{Key: "$lte", Value: *filter.To})
	}
	if len(created) > 0 {
		query = append(query, bson.E{Key: "createdAt", Value: created})
	}

	direction := -1
	if filter.Ascending {
		direction = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: direction}}).
		SetSkip(filter.Offset)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	messages := []entities.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

// FirstMessages returns the earliest message of each given user
func (r *MessageRepository) FirstMessages(ctx context.Context, userIDs []string) ([]entities.Message, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "userId", Value: bson.D{{Key: "$in", Value: userIDs}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$userId"},
			{Key: "message", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$message"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "userId", Value: 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate first messages: %w", err)
	}
	messages := []entities.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode first messages: %w", err)
	}
	return messages, nil
}
