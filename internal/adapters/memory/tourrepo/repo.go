package tourrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/tourrepo"
)

// Repo is an in-memory implementation of tourrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TourID]domain.TourPackage
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TourID]domain.TourPackage),
	}
}

func (r *Repo) Create(ctx context.Context, t domain.TourPackage) error {
	_ = ctx
	if t.ID == "" {
		return tourrepo.ErrAlreadyExists // treat empty ID as invalid for now
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return tourrepo.ErrAlreadyExists
	}
	r.byID[t.ID] = cloneTour(t)
	return nil
}

func (r *Repo) Save(ctx context.Context, t domain.TourPackage) error {
	_ = ctx
	if t.ID == "" {
		return tourrepo.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; !ok {
		return tourrepo.ErrNotFound
	}
	r.byID[t.ID] = cloneTour(t)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TourID) (domain.TourPackage, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return domain.TourPackage{}, tourrepo.ErrNotFound
	}
	return cloneTour(t), nil
}

func (r *Repo) ListByGuide(ctx context.Context, guide domain.GuideID) ([]domain.TourPackage, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TourPackage, 0)
	for _, t := range r.byID {
		if t.GuideID == guide {
			out = append(out, cloneTour(t))
		}
	}
	sortTours(out)
	return out, nil
}

func cloneTour(t domain.TourPackage) domain.TourPackage {
	cp := t
	cp.Stops = domain.CloneStops(t.Stops)
	return cp
}

func sortTours(ts []domain.TourPackage) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
