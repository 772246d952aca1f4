package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Strategy: key + route + subject + request body hash.
// Route is represented as HTTP method + route template (e.g. "POST /drafts/{sessionId}/submit").
// A record stored with an empty BodyHash is the "meta" record that remembers which body hash
// a key was first used with, so reuse with a different payload can be rejected.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Meta returns the fingerprint of the meta record for fp.
func (fp Fingerprint) Meta() Fingerprint {
	fp.BodyHash = ""
	return fp
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
// Put overwrites an existing record for the same fingerprint.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
