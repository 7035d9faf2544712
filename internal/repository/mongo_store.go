package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Pin3appl3ishan/iLike-web/internal/apperr"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
)

// MongoStore persists conversations and messages. The conversation key is the
// document _id, so the pair-uniqueness invariant is enforced by the primary
// index, and the per-send snapshot+increment lands in a single UpdateOne.
type MongoStore struct {
	convs *mongo.Collection
	msgs  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		convs: db.Collection(collConversations),
		msgs:  db.Collection(collMessages),
	}
}

func (s *MongoStore) CreateConversation(ctx context.Context, conv *chat.Conversation) error {
	_, err := s.convs.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("conversation %s exists: %w", conv.Key, apperr.ErrValidation)
	}
	return err
}

func (s *MongoStore) GetConversation(ctx context.Context, key string) (*chat.Conversation, error) {
	var c chat.Conversation
	err := s.convs.FindOne(ctx, bson.M{"_id": key}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) ListActiveConversations(ctx context.Context, userID string) ([]*chat.Conversation, error) {
	cur, err := s.convs.Find(ctx, bson.M{"participants": userID, "is_active": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*chat.Conversation
	for cur.Next(ctx) {
		var c chat.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (s *MongoStore) SetInactive(ctx context.Context, key string) error {
	_, err := s.convs.UpdateByID(ctx, key, bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

func (s *MongoStore) InsertMessage(ctx context.Context, m *chat.Message) error {
	_, err := s.msgs.InsertOne(ctx, m)
	return err
}

func (s *MongoStore) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.msgs.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) ListMessages(ctx context.Context, key string) ([]*chat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.msgs.Find(ctx, bson.M{"chat_key": key}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*chat.Message
	for cur.Next(ctx) {
		var m chat.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *MongoStore) ApplyAppend(ctx context.Context, key string, last chat.LastMessage, incrFor []string) error {
	inc := bson.M{}
	for _, uid := range incrFor {
		inc["unread_counts."+uid] = 1
	}
	update := bson.M{
		"$set": bson.M{
			"last_message": last,
			"updated_at":   time.Now().UTC(),
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	res, err := s.convs.UpdateByID(ctx, key, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *MongoStore) AppendReadReceipts(ctx context.Context, key, userID string, at time.Time) (int64, error) {
	res, err := s.msgs.UpdateMany(ctx,
		bson.M{
			"chat_key":        key,
			"sender_id":       bson.M{"$ne": userID},
			"read_by.user_id": bson.M{"$ne": userID},
		},
		bson.M{
			"$push": bson.M{"read_by": chat.ReadReceipt{UserID: userID, ReadAt: at}},
			"$set":  bson.M{"status": chat.StatusRead},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) ResetUnread(ctx context.Context, key, userID string) error {
	res, err := s.convs.UpdateByID(ctx, key, bson.M{"$set": bson.M{
		"unread_counts." + userID: 0,
		"updated_at":              time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
