package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"coach_report_bot/internal/repository"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoClient(ctx context.Context, uri, database string) (*MongoClient, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Minute)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	m := &MongoClient{Client: client, Database: client.Database(database)}
	if err := m.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("index setup failed: %w", err)
	}
	return m, nil
}

// Indexes lists the indexes the services rely on, per collection
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		repository.CollectionMessages: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			// one daily report per user; only documents carrying a day are constrained
			{
				Keys: bson.D{{Key: "userId", Value: 1}, {Key: "day", Value: 1}},
				Options: options.Index().
					SetName("userId_day_unique").
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "day", Value: bson.D{{Key: "$exists", Value: true}}}}),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "didntSend", Value: 1}}},
		},
		repository.CollectionMeasurementMessages: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "measurements.id", Value: 1}}},
		},
	}
}

func (m *MongoClient) EnsureIndexes(ctx context.Context) error {
	for collection, models := range Indexes() {
		if _, err := m.Database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}

func (m *MongoClient) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
