package store

import (
	"context"
	"fmt"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore backs the audit trail with a MongoDB collection. Rows are
// inserted once and never updated.
type MongoStore struct {
	client   *mongo.Client
	attempts *mongo.Collection
}

// NewMongoStore connects to the MongoDB deployment at url and prepares the
// attempt collection indexes.
func NewMongoStore(ctx context.Context, url, dbName string) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(url)
	clientOpts.SetMinPoolSize(5)
	clientOpts.SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	attempts := client.Database(dbName).Collection("auth_attempts")
	_, err = attempts.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "identity_key", Value: 1}, {Key: "attempted_at", Value: -1}},
		Options: options.Index(),
	}})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &MongoStore{client: client, attempts: attempts}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Append(ctx context.Context, record *config.AuthAttemptRecord) error {
	_, err := s.attempts.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *MongoStore) History(ctx context.Context, identityKey string, limit int) ([]*config.AuthAttemptRecord, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "attempted_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.attempts.Find(ctx, bson.M{"identity_key": identityKey}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	records := make([]*config.AuthAttemptRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

func (s *MongoStore) CountFailuresSince(ctx context.Context, identityKey string, since time.Time) (int, error) {
	count, err := s.attempts.CountDocuments(ctx, bson.M{
		"identity_key": identityKey,
		"status":       config.StatusFailed,
		"attempted_at": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(count), nil
}
