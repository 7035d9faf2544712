package directory

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Pin3appl3ishan/iLike-web/internal/apperr"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
)

// Mongo reads the users, profiles and matches collections maintained by the
// account and matching services. This package never writes to them.
type Mongo struct {
	users    *mongo.Collection
	profiles *mongo.Collection
	matches  *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		users:    db.Collection("users"),
		profiles: db.Collection("profiles"),
		matches:  db.Collection("matches"),
	}
}

type userDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type profileDoc struct {
	ProfilePictureURL string `bson:"profile_picture_url"`
}

func (d *Mongo) Card(ctx context.Context, userID string) (chat.UserCard, error) {
	var u userDoc
	err := d.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.UserCard{}, apperr.ErrNotFound
	}
	if err != nil {
		return chat.UserCard{}, err
	}
	card := chat.UserCard{ID: u.ID, Name: u.Name}

	var p profileDoc
	if err := d.profiles.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err == nil {
		card.PhotoURL = p.ProfilePictureURL
	}
	return card, nil
}

func (d *Mongo) AreMatched(ctx context.Context, a, b string) (bool, error) {
	err := d.matches.FindOne(ctx, bson.M{
		"is_match": true,
		"$or": []bson.M{
			{"liker_id": a, "liked_id": b},
			{"liker_id": b, "liked_id": a},
		},
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
