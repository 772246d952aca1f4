package tourrepo

import (
	"context"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// Repository provides access to persisted tours.
//
// Stored tours never carry soft-deleted media: callers purge before Create/Save.
// Result ordering expectations:
// - ListByGuide returns tours ordered by CreatedAt descending, then ID, to keep behavior deterministic.
type Repository interface {
	Create(ctx context.Context, t domain.TourPackage) error
	Save(ctx context.Context, t domain.TourPackage) error

	GetByID(ctx context.Context, id domain.TourID) (domain.TourPackage, error)
	ListByGuide(ctx context.Context, guide domain.GuideID) ([]domain.TourPackage, error)
}
