package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestContract_RedisSessionStore(t *testing.T) {
	contracttest.RunSessionStore(t, func(t *testing.T) (sessionstore.Store, func()) {
		t.Helper()
		s, _ := newStore(t)
		return s, nil
	})
}

func TestStore_TTL(t *testing.T) {
	t.Parallel()

	s, mr := newStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, sessionstore.Session{ID: "s1", GuideID: "g1"}, time.Minute); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	if ttl := mr.TTL(key("s1")); ttl != time.Minute {
		t.Fatalf("TTL=%v, want 1m", ttl)
	}

	mr.FastForward(30 * time.Second)
	if err := s.Put(ctx, sessionstore.Session{ID: "s1", GuideID: "g1"}, time.Minute); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	mr.FastForward(45 * time.Second)
	if _, err := s.Get(ctx, "s1"); err != nil {
		t.Fatalf("Get() after refresh err=%v", err)
	}

	mr.FastForward(20 * time.Second)
	if _, err := s.Get(ctx, "s1"); !errors.Is(err, sessionstore.ErrNotFound) {
		t.Fatalf("Get() after expiry err=%v, want ErrNotFound", err)
	}
}

func TestStore_CorruptValue(t *testing.T) {
	t.Parallel()

	s, mr := newStore(t)
	if err := mr.Set(key("bad"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := s.Get(context.Background(), "bad")
	if err == nil || errors.Is(err, sessionstore.ErrNotFound) {
		t.Fatalf("Get() err=%v, want decode error", err)
	}
}
