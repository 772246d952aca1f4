package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tourform"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/blobstore"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/mediaprobe"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/publisher"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/tourrepo"
)

// Service coordinates tour form controllers with session persistence, blob storage and
// duration extraction.
type Service struct {
	sessions sessionstore.Store
	blobs    blobstore.Store
	prober   mediaprobe.Prober
	tours    tourrepo.Repository
	upstream publisher.Fetcher
	clock    clock.Clock
	log      *zap.Logger

	ttl          time.Duration
	probeTimeout time.Duration

	locks *sessionLocks

	newSessionID func() domain.SessionID
	newID        func() string
}

func NewService(
	sessions sessionstore.Store,
	blobs blobstore.Store,
	prober mediaprobe.Prober,
	tours tourrepo.Repository,
	clk clock.Clock,
	log *zap.Logger,
	cfg Config,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	return &Service{
		sessions:     sessions,
		blobs:        blobs,
		prober:       prober,
		tours:        tours,
		clock:        clk,
		log:          log.Named("drafts"),
		ttl:          cfg.SessionTTL,
		probeTimeout: cfg.ProbeTimeout,
		locks:        newSessionLocks(),
		newSessionID: func() domain.SessionID {
			return domain.SessionID(uuid.NewString())
		},
		newID: uuid.NewString,
	}
}

// SetNewIDsForTest overrides session and stop/media ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewIDsForTest(session func() domain.SessionID, id func() string) {
	if session != nil {
		s.newSessionID = session
	}
	if id != nil {
		s.newID = id
	}
}

// SetUpstream enables loading tours that only exist in the upstream backend when a guide
// opens them for editing.
func (s *Service) SetUpstream(f publisher.Fetcher) {
	s.upstream = f
}

func (s *Service) CreateSession(ctx context.Context, guide domain.GuideID) (tourform.View, error) {
	c := tourform.New(s.newSessionID(), guide)
	c.UseIDGenerator(s.newID)
	if err := s.create(ctx, c); err != nil {
		return tourform.View{}, err
	}
	return c.View(), nil
}

// ImportTour opens a session from an external tour representation. Media records may be
// flat or nested; they are normalized before anything else sees them.
func (s *Service) ImportTour(ctx context.Context, guide domain.GuideID, raw json.RawMessage) (tourform.View, error) {
	t, err := domain.NormalizeTour(raw)
	if err != nil {
		return tourform.View{}, errValidation("invalid tour", map[string]any{"tour": err.Error()})
	}
	return s.openTour(ctx, guide, t)
}

// OpenForEdit loads a tour owned by guide into a new session. Tours missing locally are
// fetched from the upstream backend when one is configured.
func (s *Service) OpenForEdit(ctx context.Context, guide domain.GuideID, id domain.TourID) (tourform.View, error) {
	t, err := s.tours.GetByID(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, tourrepo.ErrNotFound) && s.upstream != nil:
		t, err = s.fetchUpstream(ctx, id)
		if err != nil {
			return tourform.View{}, err
		}
		if t.GuideID == "" {
			t.GuideID = guide
		}
	case errors.Is(err, tourrepo.ErrNotFound):
		return tourform.View{}, errTourNotFound()
	default:
		return tourform.View{}, err
	}
	if t.GuideID != guide {
		return tourform.View{}, errTourNotFound()
	}
	return s.openTour(ctx, guide, t)
}

func (s *Service) fetchUpstream(ctx context.Context, id domain.TourID) (domain.TourPackage, error) {
	raw, err := s.upstream.FetchTour(ctx, id)
	if err != nil {
		if errors.Is(err, publisher.ErrNotFound) {
			return domain.TourPackage{}, errTourNotFound()
		}
		s.log.Error("upstream fetch failed", zap.String("tour", string(id)), zap.Error(err))
		return domain.TourPackage{}, &Error{Status: 502, Code: "UPSTREAM_ERROR", Message: "tour backend unavailable", Details: map[string]any{"cause": err.Error()}}
	}
	t, err := domain.NormalizeTour(raw)
	if err != nil {
		return domain.TourPackage{}, &Error{Status: 502, Code: "UPSTREAM_ERROR", Message: "tour backend returned an unreadable tour", Details: map[string]any{"cause": err.Error()}}
	}
	if t.ID == "" {
		t.ID = id
	}
	return t, nil
}

func (s *Service) openTour(ctx context.Context, guide domain.GuideID, t domain.TourPackage) (tourform.View, error) {
	t.GuideID = guide
	t.Stops = domain.CloneStops(t.Stops)
	// Missing and repeated ids are replaced; every later operation addresses items by id.
	seenStops := make(map[domain.StopID]bool, len(t.Stops))
	seenMedia := make(map[domain.MediaID]bool)
	for i := range t.Stops {
		if id := t.Stops[i].ID; id == "" || seenStops[id] {
			t.Stops[i].ID = domain.StopID(s.newID())
		}
		seenStops[t.Stops[i].ID] = true
		for j := range t.Stops[i].Media {
			if id := t.Stops[i].Media[j].ID; id == "" || seenMedia[id] {
				t.Stops[i].Media[j].ID = domain.MediaID(s.newID())
			}
			seenMedia[t.Stops[i].Media[j].ID] = true
		}
	}

	c := tourform.FromSession(sessionstore.Session{
		ID:            s.newSessionID(),
		GuideID:       guide,
		Step:          domain.StepBasicInfo,
		Tour:          t,
		EditingTourID: t.ID,
	})
	c.UseIDGenerator(s.newID)
	if err := s.create(ctx, c); err != nil {
		return tourform.View{}, err
	}
	return c.View(), nil
}

func (s *Service) GetState(ctx context.Context, guide domain.GuideID, id domain.SessionID) (tourform.View, error) {
	c, err := s.load(ctx, guide, id)
	if err != nil {
		return tourform.View{}, err
	}
	return c.View(), nil
}

func (s *Service) SetBasicInfo(ctx context.Context, guide domain.GuideID, id domain.SessionID, title, description string) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		c.SetBasicInfo(title, description)
		return nil
	})
}

func (s *Service) AddStop(ctx context.Context, guide domain.GuideID, id domain.SessionID, in StopInput) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		_, err := c.AddStop(domain.Stop{
			ID:          in.ID,
			SequenceNo:  in.SequenceNo,
			Name:        in.Name,
			Description: in.Description,
			Location:    in.Location,
		})
		return err
	})
}

func (s *Service) UpdateStop(ctx context.Context, guide domain.GuideID, id domain.SessionID, stopID domain.StopID, patch tourform.StopPatch) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		_, err := c.UpdateStop(stopID, patch)
		return err
	})
}

func (s *Service) DeleteStop(ctx context.Context, guide domain.GuideID, id domain.SessionID, stopID domain.StopID) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		_, err := c.DeleteStop(stopID)
		return err
	})
}

func (s *Service) ReorderStops(ctx context.Context, guide domain.GuideID, id domain.SessionID, order []domain.StopID) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		_, err := c.ReorderStops(order)
		return err
	})
}

func (s *Service) AdvanceStep(ctx context.Context, guide domain.GuideID, id domain.SessionID) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error { return c.Advance() })
}

func (s *Service) BackStep(ctx context.Context, guide domain.GuideID, id domain.SessionID) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error { return c.Back() })
}

func (s *Service) RemoveMedia(ctx context.Context, guide domain.GuideID, id domain.SessionID, stopID domain.StopID, mediaID domain.MediaID) (tourform.View, error) {
	return s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		return c.RemoveMedia(stopID, mediaID)
	})
}

// UploadMedia attaches files to a stop and extracts audio durations.
//
// All items are attached as pending and the session saved before extraction starts, so the
// session lock is not held while probing. Each extraction is bounded by the probe timeout and
// falls back to 0. Results are merged by media identity as they complete; items removed in the
// meantime drop their result. Extraction and merging outlive a cancelled request so no item is
// left pending. Blobs written for a batch that fails to attach are removed again.
func (s *Service) UploadMedia(ctx context.Context, guide domain.GuideID, id domain.SessionID, stopID domain.StopID, files []Upload) (tourform.View, error) {
	if len(files) == 0 {
		return tourform.View{}, errValidation("no files uploaded", map[string]any{"files": "at least one file is required"})
	}

	type pendingAudio struct {
		mediaID     domain.MediaID
		contentType string
		data        []byte
	}
	var (
		pending []pendingAudio
		written []string
	)

	view, err := s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		if !c.HasStop(stopID) {
			return tourform.ErrStopNotFound
		}
		items := make([]domain.MediaItem, 0, len(files))
		for i, f := range files {
			mt, contentType, ok := s.prober.Sniff(f.FileName, f.Data)
			if !ok {
				return errValidation("unsupported media file", map[string]any{
					fmt.Sprintf("files[%d]", i): fmt.Sprintf("%q is neither audio nor image", f.FileName),
				})
			}
			mediaID := domain.MediaID(s.newID())
			items = append(items, domain.MediaItem{
				ID:       mediaID,
				Type:     mt,
				FileName: f.FileName,
				FileType: contentType,
				FileSize: int64(len(f.Data)),
				BlobKey:  blobKey(id, mediaID),
			})
		}
		for i, item := range items {
			if err := s.blobs.Put(ctx, item.BlobKey, files[i].Data); err != nil {
				return fmt.Errorf("store blob %s: %w", item.BlobKey, err)
			}
			written = append(written, item.BlobKey)
			if _, err := c.AttachMedia(stopID, item); err != nil {
				return err
			}
			if item.Type == domain.MediaTypeAudio {
				pending = append(pending, pendingAudio{mediaID: item.ID, contentType: item.FileType, data: files[i].Data})
			}
		}
		return nil
	})
	if err != nil {
		s.discardBlobs(context.WithoutCancel(ctx), written)
		return view, err
	}
	if len(pending) == 0 {
		return view, nil
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for _, p := range pending {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, s.probeTimeout)
			secs := s.prober.DurationSeconds(pctx, p.contentType, p.data)
			timedOut := pctx.Err() != nil
			cancel()
			if timedOut {
				s.log.Warn("duration extraction timed out", zap.String("session", string(id)), zap.String("media", string(p.mediaID)))
			}
			return s.resolveDuration(gctx, guide, id, p.mediaID, secs)
		})
	}
	if err := g.Wait(); err != nil {
		return tourform.View{}, err
	}
	return s.GetState(ctx, guide, id)
}

func (s *Service) discardBlobs(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.blobs.Delete(ctx, k); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.log.Warn("blob cleanup failed", zap.String("key", k), zap.Error(err))
		}
	}
}

func (s *Service) resolveDuration(ctx context.Context, guide domain.GuideID, id domain.SessionID, mediaID domain.MediaID, secs int) error {
	_, err := s.mutate(ctx, guide, id, func(c *tourform.Controller) error {
		if !c.ResolveDuration(mediaID, secs) {
			s.log.Debug("discarded duration result", zap.String("session", string(id)), zap.String("media", string(mediaID)))
		}
		return nil
	})
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code == "DRAFT_NOT_FOUND" {
		// Session submitted or expired while probing.
		return nil
	}
	return err
}

// Finish runs fn against the session under its lock and deletes the session (and its blobs)
// when fn succeeds. Errors returned by fn are passed through unchanged.
func (s *Service) Finish(ctx context.Context, guide domain.GuideID, id domain.SessionID, fn func(c *tourform.Controller) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, guide, id)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, sessionstore.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	var keys []string
	for _, st := range c.Stops() {
		for _, m := range st.Media {
			if m.BlobKey != "" {
				keys = append(keys, m.BlobKey)
			}
		}
	}
	s.discardBlobs(ctx, keys)
	return nil
}

// Checkpoint persists c while its session is held by Finish. It must only be called from
// inside a Finish callback.
func (s *Service) Checkpoint(ctx context.Context, c *tourform.Controller) error {
	return s.save(ctx, c)
}

func (s *Service) mutate(ctx context.Context, guide domain.GuideID, id domain.SessionID, fn func(c *tourform.Controller) error) (tourform.View, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, guide, id)
	if err != nil {
		return tourform.View{}, err
	}
	if err := fn(c); err != nil {
		return tourform.View{}, mapControllerError(err)
	}
	if err := s.save(ctx, c); err != nil {
		return tourform.View{}, err
	}
	return c.View(), nil
}

// load returns DRAFT_NOT_FOUND for missing, expired and foreign sessions alike.
func (s *Service) load(ctx context.Context, guide domain.GuideID, id domain.SessionID) (*tourform.Controller, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return nil, errDraftNotFound()
		}
		return nil, err
	}
	if sess.GuideID != guide {
		return nil, errDraftNotFound()
	}
	c := tourform.FromSession(sess)
	c.UseIDGenerator(s.newID)
	return c, nil
}

func (s *Service) create(ctx context.Context, c *tourform.Controller) error {
	sess := c.Session()
	now := s.clock.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	if err := s.sessions.Put(ctx, sess, s.ttl); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	s.log.Info("draft session created", zap.String("session", string(sess.ID)), zap.String("guide", string(sess.GuideID)))
	return nil
}

func (s *Service) save(ctx context.Context, c *tourform.Controller) error {
	sess := c.Session()
	sess.UpdatedAt = s.clock.Now().UTC()
	if err := s.sessions.Put(ctx, sess, s.ttl); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func mapControllerError(err error) error {
	var stepErr *tourform.StepError
	switch {
	case errors.As(err, &stepErr):
		return &Error{Status: 409, Code: "STEP_INCOMPLETE", Message: stepErr.Error(), Details: map[string]any{
			"step":    string(stepErr.Step),
			"reasons": stepErr.Reasons,
		}}
	case errors.Is(err, tourform.ErrNoNextStep), errors.Is(err, tourform.ErrNoPreviousStep):
		return &Error{Status: 409, Code: "STEP_INCOMPLETE", Message: err.Error()}
	case errors.Is(err, tourform.ErrStopNotFound):
		return &Error{Status: 404, Code: "STOP_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, tourform.ErrMediaNotFound):
		return &Error{Status: 404, Code: "MEDIA_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, tourform.ErrDuplicateStop):
		return &Error{Status: 409, Code: "STOP_ID_CONFLICT", Message: err.Error()}
	case errors.Is(err, tourform.ErrInvalidOrder):
		return errValidation(err.Error(), map[string]any{"order": "must list every current stop exactly once"})
	case errors.Is(err, tourform.ErrInvalidMedia):
		return errValidation(err.Error(), map[string]any{"media_type": "must be audio or image"})
	case errors.Is(err, domain.ErrInvalidCoordinates):
		return errValidation(err.Error(), map[string]any{"location": "latitude must be in [-90, 90] and longitude in [-180, 180]"})
	}
	return err
}

func blobKey(session domain.SessionID, media domain.MediaID) string {
	return "drafts/" + string(session) + "/" + string(media)
}
