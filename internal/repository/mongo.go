package repository

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collConversations = "conversations"
	collMessages      = "messages"
)

// Connect dials MongoDB and pings it with exponential backoff so a server
// that is still coming up does not fail the whole process start.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return client.Ping(pctx, nil)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the query indexes the store relies on. Mirrors the
// access paths: member listing, per-conversation history, list ordering.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collConversations).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "participants", Value: 1}}, Options: options.Index().SetName("participants_idx")},
		{Keys: bson.D{{Key: "last_message.timestamp", Value: -1}}, Options: options.Index().SetName("last_message_ts_idx")},
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(collMessages).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "timestamp", Value: 1}}, Options: options.Index().SetName("chat_ts_idx")},
		{Keys: bson.D{{Key: "sender_id", Value: 1}}, Options: options.Index().SetName("sender_idx")},
	})
	return err
}
