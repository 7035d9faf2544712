// Package presence mirrors "who is online" into redis so HTTP callers can
// query it without reaching into the websocket hub, and so entries expire on
// their own if the process dies without cleaning up.
package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttl = 90 * time.Second

type Store struct {
	rdb    *redis.Client
	prefix string
}

func NewStore(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(userID string) string { return s.prefix + ":presence:" + userID }

// SetOnline marks the user online with a TTL; Refresh must be called while
// the connection stays alive.
func (s *Store) SetOnline(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, s.key(userID), "1", ttl).Err()
}

// Refresh extends the online TTL. Called from the socket read loop.
func (s *Store) Refresh(ctx context.Context, userID string) error {
	return s.rdb.Expire(ctx, s.key(userID), ttl).Err()
}

func (s *Store) SetOffline(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, s.key(userID)).Err()
}

func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	err := s.rdb.Get(ctx, s.key(userID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
