package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
)

// Store is an in-memory implementation of sessionstore.Store with lazy expiry.
// It is safe for concurrent use.
type Store struct {
	clock clock.Clock

	mu sync.RWMutex
	m  map[domain.SessionID]entry
}

type entry struct {
	sess      sessionstore.Session
	expiresAt time.Time
}

func NewStore(clk clock.Clock) *Store {
	return &Store{
		clock: clk,
		m:     make(map[domain.SessionID]entry),
	}
}

func (s *Store) Get(ctx context.Context, id domain.SessionID) (sessionstore.Session, error) {
	_ = ctx
	s.mu.RLock()
	e, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return sessionstore.Session{}, sessionstore.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.m[id]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.m, id)
		}
		s.mu.Unlock()
		return sessionstore.Session{}, sessionstore.ErrNotFound
	}
	return cloneSession(e.sess), nil
}

// Put stores s. A non-positive ttl keeps the session until it is deleted.
func (s *Store) Put(ctx context.Context, sess sessionstore.Session, ttl time.Duration) error {
	_ = ctx
	e := entry{sess: cloneSession(sess)}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.ID] = e
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.SessionID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func cloneSession(sess sessionstore.Session) sessionstore.Session {
	cp := sess
	cp.Tour.Stops = domain.CloneStops(sess.Tour.Stops)
	return cp
}
