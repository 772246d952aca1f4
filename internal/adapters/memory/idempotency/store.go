package idempotency

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/idempotency"
)

// Store keeps submit responses in process memory. Records never expire; it backs the
// memory storage backend and tests.
type Store struct {
	mu      sync.RWMutex
	records map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{records: map[idempotency.Fingerprint]idempotency.Record{}}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return idempotency.Record{}, false, err
	}
	s.mu.RLock()
	rec, ok := s.records[fp]
	s.mu.RUnlock()
	if !ok {
		return idempotency.Record{}, false, nil
	}
	return withOwnBody(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records[fp] = withOwnBody(rec)
	s.mu.Unlock()
	return nil
}

// withOwnBody detaches the body so replayed bytes cannot be mutated through a caller's slice.
func withOwnBody(rec idempotency.Record) idempotency.Record {
	rec.Body = append([]byte(nil), rec.Body...)
	return rec
}
