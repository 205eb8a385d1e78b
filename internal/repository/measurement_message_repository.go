package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"coach_report_bot/internal/entities"
)

type MeasurementMessageRepository struct {
	coll *mongo.Collection
}

func NewMeasurementMessageRepository(db *mongo.Database) *MeasurementMessageRepository {
	return &MeasurementMessageRepository{coll: db.Collection(CollectionMeasurementMessages)}
}

// CoveringFilter matches messages of the user containing every measurement id
func CoveringFilter(userID string, measurementIDs []string) bson.D {
	all := make(bson.A, 0, len(measurementIDs))
	for _, id := range measurementIDs {
		all = append(all, bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "id", Value: id}}}})
	}
	return bson.D{
		{Key: "userId", Value: userID},
		{Key: "measurements", Value: bson.D{{Key: "$all", Value: all}}},
	}
}

// ExistsCovering reports whether a notification already covered all the ids
func (r *MeasurementMessageRepository) ExistsCovering(ctx context.Context, userID string, measurementIDs []string) (bool, error) {
	var found bson.Raw
	err := r.coll.FindOne(ctx, CoveringFilter(userID, measurementIDs)).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to find measurement message: %w", err)
	}
	return true, nil
}

func (r *MeasurementMessageRepository) Insert(ctx context.Context, msg *entities.MeasurementMessage) error {
	now := time.Now()
	msg.CreatedAt, msg.UpdatedAt = now, now
	res, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to insert measurement message: %w", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		msg.ID = id
	}
	return nil
}
