package tours

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tourform"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/blobstore"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/publisher"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/tourrepo"
)

type Service struct {
	drafts    Drafts
	tours     tourrepo.Repository
	blobs     blobstore.Store
	publisher publisher.Publisher
	clock     clock.Clock
	log       *zap.Logger

	newTourID func() domain.TourID
}

// NewService wires the submission service. pub may be nil, in which case submitted tours are
// only stored locally.
func NewService(drafts Drafts, toursRepo tourrepo.Repository, blobs blobstore.Store, pub publisher.Publisher, clk clock.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		drafts:    drafts,
		tours:     toursRepo,
		blobs:     blobs,
		publisher: pub,
		clock:     clk,
		log:       log.Named("tours"),
		newTourID: func() domain.TourID {
			return domain.TourID(uuid.NewString())
		},
	}
}

// SetNewTourIDForTest overrides tour ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTourIDForTest(fn func() domain.TourID) {
	if fn != nil {
		s.newTourID = fn
	}
}

// Submit finalizes a draft: price and duration are recomputed, soft-deleted media is purged
// and the tour moves to pending_approval. The draft session is removed only on success; a
// draft already accepted upstream is not published again on retry.
func (s *Service) Submit(ctx context.Context, guide domain.GuideID, sessionID domain.SessionID) (Submitted, error) {
	var out Submitted
	err := s.drafts.Finish(ctx, guide, sessionID, func(c *tourform.Controller) error {
		if ok, reasons := c.CanSubmit(); !ok {
			return &Error{Status: 409, Code: "SUBMIT_BLOCKED", Message: "tour cannot be submitted yet", Details: map[string]any{"reasons": reasons}}
		}

		t := c.FinalTour()
		now := s.clock.Now().UTC()

		isNew := true
		if t.ID != "" {
			existing, err := s.tours.GetByID(ctx, t.ID)
			switch {
			case err == nil:
				if existing.GuideID != guide {
					return &Error{Status: 404, Code: "TOUR_NOT_FOUND", Message: "tour not found"}
				}
				isNew = false
				t.CreatedAt = existing.CreatedAt
			case errors.Is(err, tourrepo.ErrNotFound):
				// Imported from an external system; keep its ID.
			default:
				return err
			}
		} else {
			t.ID = s.newTourID()
		}
		if isNew {
			t.CreatedAt = now
		}
		t.UpdatedAt = now

		upstreamID, published := c.Published()
		if s.publisher != nil && !published {
			sub, refs := c.Submission()
			files, err := s.loadFiles(ctx, refs)
			if err != nil {
				return err
			}
			upstreamID, err = s.publisher.Publish(ctx, string(sessionID), sub, files)
			if err != nil {
				s.log.Error("upstream submission failed", zap.String("session", string(sessionID)), zap.Error(err))
				return &Error{Status: 502, Code: "UPSTREAM_ERROR", Message: "tour backend rejected the submission", Details: map[string]any{"cause": err.Error()}}
			}
			// Recorded before the local write so a retry after a failed write reuses it.
			c.MarkPublished(upstreamID)
			if err := s.drafts.Checkpoint(ctx, c); err != nil {
				s.log.Warn("could not record upstream submission", zap.String("session", string(sessionID)), zap.Error(err))
			}
		}

		for i := range t.Stops {
			for j := range t.Stops[i].Media {
				t.Stops[i].Media[j].BlobKey = ""
			}
		}
		if isNew {
			if err := s.tours.Create(ctx, t); err != nil {
				if errors.Is(err, tourrepo.ErrAlreadyExists) {
					return &Error{Status: 409, Code: "TOUR_ID_CONFLICT", Message: "tour id conflict"}
				}
				return err
			}
		} else if err := s.tours.Save(ctx, t); err != nil {
			return err
		}

		s.log.Info("tour submitted",
			zap.String("tour", string(t.ID)),
			zap.String("guide", string(guide)),
			zap.Float64("price", t.Price),
			zap.Int("duration_minutes", t.DurationMinutes),
		)
		out = Submitted{
			TourID:          t.ID,
			Status:          t.Status,
			Price:           t.Price,
			DurationMinutes: t.DurationMinutes,
			UpstreamID:      upstreamID,
		}
		return nil
	})
	if err != nil {
		return Submitted{}, err
	}
	return out, nil
}

func (s *Service) loadFiles(ctx context.Context, refs []domain.FileRef) ([]publisher.File, error) {
	files := make([]publisher.File, 0, len(refs))
	for _, ref := range refs {
		data, err := s.blobs.Get(ctx, ref.BlobKey)
		if err != nil {
			return nil, fmt.Errorf("load blob %s: %w", ref.BlobKey, err)
		}
		files = append(files, publisher.File{
			StopIndex: ref.StopIndex,
			FileName:  ref.FileName,
			FileType:  ref.FileType,
			Data:      data,
		})
	}
	return files, nil
}

func (s *Service) GetTour(ctx context.Context, guide domain.GuideID, id domain.TourID) (domain.TourPackage, error) {
	t, err := s.tours.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, tourrepo.ErrNotFound) {
			return domain.TourPackage{}, &Error{Status: 404, Code: "TOUR_NOT_FOUND", Message: "tour not found"}
		}
		return domain.TourPackage{}, err
	}
	if t.GuideID != guide {
		// Other guides' tours are indistinguishable from missing ones.
		return domain.TourPackage{}, &Error{Status: 404, Code: "TOUR_NOT_FOUND", Message: "tour not found"}
	}
	return t, nil
}

func (s *Service) ListMyTours(ctx context.Context, guide domain.GuideID) ([]TourSummary, error) {
	ts, err := s.tours.ListByGuide(ctx, guide)
	if err != nil {
		return nil, err
	}
	out := make([]TourSummary, 0, len(ts))
	for _, t := range ts {
		out = append(out, TourSummary{
			ID:              t.ID,
			Title:           t.Title,
			Status:          t.Status,
			Price:           t.Price,
			DurationMinutes: t.DurationMinutes,
			StopCount:       len(t.Stops),
		})
	}
	return out, nil
}
