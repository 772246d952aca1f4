package tours

import (
	"context"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tourform"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// Drafts is the slice of the drafts service that submission needs.
type Drafts interface {
	Finish(ctx context.Context, guide domain.GuideID, id domain.SessionID, fn func(c *tourform.Controller) error) error
	Checkpoint(ctx context.Context, c *tourform.Controller) error
}

// Submitted is returned when a draft has been accepted for review.
type Submitted struct {
	TourID          domain.TourID     `json:"tourId"`
	Status          domain.TourStatus `json:"status"`
	Price           float64           `json:"price"`
	DurationMinutes int               `json:"durationMinutes"`
	UpstreamID      string            `json:"upstreamId,omitempty"`
}

// TourSummary is the list representation of a tour.
type TourSummary struct {
	ID              domain.TourID     `json:"id"`
	Title           string            `json:"title"`
	Status          domain.TourStatus `json:"status"`
	Price           float64           `json:"price"`
	DurationMinutes int               `json:"durationMinutes"`
	StopCount       int               `json:"stopCount"`
}
