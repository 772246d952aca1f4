package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
)

const keyPrefix = "tour-authoring:draft:"

// Store keeps draft sessions as JSON values with a Redis TTL. Every Put refreshes the TTL,
// so sessions expire after a period of inactivity.
type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, id domain.SessionID) (sessionstore.Session, error) {
	b, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sessionstore.Session{}, sessionstore.ErrNotFound
		}
		return sessionstore.Session{}, fmt.Errorf("redis get session: %w", err)
	}
	var sess sessionstore.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return sessionstore.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return sess, nil
}

// Put stores s. A non-positive ttl keeps the session until it is deleted.
func (s *Store) Put(ctx context.Context, sess sessionstore.Session, ttl time.Duration) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key(sess.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.SessionID) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func key(id domain.SessionID) string { return keyPrefix + string(id) }
