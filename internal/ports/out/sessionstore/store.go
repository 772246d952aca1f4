package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("draft session not found")

// Session is the persisted state of one wizard run.
type Session struct {
	ID      domain.SessionID   `json:"id"`
	GuideID domain.GuideID     `json:"guide_id"`
	Step    domain.Step        `json:"step"`
	Tour    domain.TourPackage `json:"tour"`

	// EditingTourID is set when the session was opened from a persisted tour.
	EditingTourID domain.TourID `json:"editing_tour_id,omitempty"`

	// Published is set once the upstream backend accepted the tour, so a retried submit
	// does not publish it again.
	Published  bool   `json:"published,omitempty"`
	UpstreamID string `json:"upstream_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists draft sessions. Implementations expire sessions after ttl of inactivity.
type Store interface {
	Get(ctx context.Context, id domain.SessionID) (Session, error)
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, id domain.SessionID) error
}
