package tourform

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
)

// Controller owns the mutable stop list of one draft and keeps the derived values
// (total audio, price, validation warnings) consistent with it.
//
// A Controller has a single owner and is not safe for concurrent use; the drafts
// service serializes access per session.
type Controller struct {
	sess     sessionstore.Session
	warnings []domain.ValidationWarning

	newID func() string
}

// New starts an empty draft at BASIC_INFO.
func New(id domain.SessionID, guide domain.GuideID) *Controller {
	return FromSession(sessionstore.Session{
		ID:      id,
		GuideID: guide,
		Step:    domain.StepBasicInfo,
		Tour:    domain.TourPackage{GuideID: guide, Status: domain.TourStatusDraft, Stops: []domain.Stop{}},
	})
}

// FromSession restores a controller from persisted session state. Warnings are recomputed,
// never loaded.
func FromSession(s sessionstore.Session) *Controller {
	if !s.Step.Valid() {
		s.Step = domain.StepBasicInfo
	}
	s.Tour.Stops = domain.CloneStops(s.Tour.Stops)
	if s.Tour.Stops == nil {
		s.Tour.Stops = []domain.Stop{}
	}
	c := &Controller{
		sess:  s,
		newID: uuid.NewString,
	}
	c.Revalidate()
	return c
}

// UseIDGenerator replaces the stop/media ID generator (uuid by default).
func (c *Controller) UseIDGenerator(fn func() string) {
	if fn != nil {
		c.newID = fn
	}
}

// Session returns a copy of the state to persist.
func (c *Controller) Session() sessionstore.Session {
	s := c.sess
	s.Tour.Stops = domain.CloneStops(c.sess.Tour.Stops)
	return s
}

func (c *Controller) Stops() []domain.Stop { return domain.CloneStops(c.sess.Tour.Stops) }

func (c *Controller) Step() domain.Step { return c.sess.Step }

func (c *Controller) SetBasicInfo(title, description string) {
	c.sess.Tour.Title = domain.NormalizeHumanName(title)
	c.sess.Tour.Description = domain.NormalizeText(description)
}

// AddStop appends stop. Existing stops are never renumbered; a zero SequenceNo is
// assigned len+1.
func (c *Controller) AddStop(stop domain.Stop) ([]domain.Stop, error) {
	if stop.Location != nil {
		if err := stop.Location.Point.Validate(); err != nil {
			return nil, err
		}
	}
	if stop.ID == "" {
		stop.ID = domain.StopID(c.newID())
	}
	if _, ok := c.indexOfStop(stop.ID); ok {
		return nil, ErrDuplicateStop
	}
	if stop.SequenceNo == 0 {
		stop.SequenceNo = len(c.sess.Tour.Stops) + 1
	}
	stop.Name = domain.NormalizeHumanName(stop.Name)
	stop.Description = domain.NormalizeText(stop.Description)

	media := make([]domain.MediaItem, 0, len(stop.Media))
	for _, m := range stop.Media {
		if !m.Type.Valid() {
			return nil, ErrInvalidMedia
		}
		if m.ID == "" {
			m.ID = domain.MediaID(c.newID())
		}
		media = append(media, m)
	}
	stop.Media = media
	stop = domain.CloneStops([]domain.Stop{stop})[0]

	c.sess.Tour.Stops = append(c.sess.Tour.Stops, stop)
	c.Revalidate()
	return c.Stops(), nil
}

// HasStop reports whether id names a stop of this draft.
func (c *Controller) HasStop(id domain.StopID) bool {
	_, ok := c.indexOfStop(id)
	return ok
}

// UpdateStop merges patch into the stop with the given id. An unknown id is a no-op.
// Invalid coordinates are rejected and leave the draft unchanged.
func (c *Controller) UpdateStop(id domain.StopID, patch StopPatch) ([]domain.Stop, error) {
	i, ok := c.indexOfStop(id)
	if !ok {
		return c.Stops(), nil
	}
	s := c.sess.Tour.Stops[i]

	if patch.Name.IsSpecified() && !patch.Name.IsNull() {
		s.Name = domain.NormalizeHumanName(patch.Name.Value())
	}
	if patch.Description.IsSpecified() {
		if patch.Description.IsNull() {
			s.Description = ""
		} else {
			s.Description = domain.NormalizeText(patch.Description.Value())
		}
	}
	if patch.Location.IsSpecified() {
		if patch.Location.IsNull() {
			s.Location = nil
		} else {
			loc := patch.Location.Value()
			if err := loc.Point.Validate(); err != nil {
				return nil, err
			}
			s.Location = &loc
		}
	}

	c.sess.Tour.Stops[i] = domain.CloneStops([]domain.Stop{s})[0]
	c.Revalidate()
	return c.Stops(), nil
}

// DeleteStop removes the stop and renumbers the remaining stops 1..N.
func (c *Controller) DeleteStop(id domain.StopID) ([]domain.Stop, error) {
	i, ok := c.indexOfStop(id)
	if !ok {
		return nil, ErrStopNotFound
	}
	stops := c.sess.Tour.Stops
	c.sess.Tour.Stops = append(stops[:i:i], stops[i+1:]...)
	domain.RenumberStops(c.sess.Tour.Stops)
	c.Revalidate()
	return c.Stops(), nil
}

// ReorderStops applies a full permutation of the current stop IDs and renumbers 1..N.
func (c *Controller) ReorderStops(order []domain.StopID) ([]domain.Stop, error) {
	cur := c.sess.Tour.Stops
	if len(order) != len(cur) {
		return nil, ErrInvalidOrder
	}
	byID := make(map[domain.StopID]domain.Stop, len(cur))
	for _, s := range cur {
		byID[s.ID] = s
	}
	next := make([]domain.Stop, 0, len(order))
	seen := make(map[domain.StopID]bool, len(order))
	for _, id := range order {
		s, ok := byID[id]
		if !ok || seen[id] {
			return nil, ErrInvalidOrder
		}
		seen[id] = true
		next = append(next, s)
	}
	domain.RenumberStops(next)
	c.sess.Tour.Stops = next
	c.Revalidate()
	return c.Stops(), nil
}

// AttachMedia adds a new media item to a stop. Audio items start unresolved until
// ResolveDuration merges the extracted duration.
func (c *Controller) AttachMedia(stopID domain.StopID, item domain.MediaItem) (domain.MediaID, error) {
	i, ok := c.indexOfStop(stopID)
	if !ok {
		return "", ErrStopNotFound
	}
	if !item.Type.Valid() {
		return "", ErrInvalidMedia
	}
	if item.ID == "" {
		item.ID = domain.MediaID(c.newID())
	}
	item.Deleted = false
	if item.Type == domain.MediaTypeAudio {
		item.DurationSeconds = 0
		item.DurationResolved = false
	} else {
		item.DurationSeconds = 0
		item.DurationResolved = true
	}
	c.sess.Tour.Stops[i].Media = append(c.sess.Tour.Stops[i].Media, item)
	c.Revalidate()
	return item.ID, nil
}

// ResolveDuration merges an asynchronous duration result by media identity. Results for
// items that no longer exist, were removed, or were already resolved are discarded.
func (c *Controller) ResolveDuration(id domain.MediaID, seconds int) bool {
	si, mi, ok := c.indexOfMedia(id)
	if !ok {
		return false
	}
	m := &c.sess.Tour.Stops[si].Media[mi]
	if m.Deleted || m.DurationResolved {
		return false
	}
	if seconds < 0 {
		seconds = 0
	}
	m.DurationSeconds = seconds
	m.DurationResolved = true
	c.Revalidate()
	return true
}

// RemoveMedia soft-deletes a media item; it is purged when the draft is saved.
func (c *Controller) RemoveMedia(stopID domain.StopID, id domain.MediaID) error {
	si, ok := c.indexOfStop(stopID)
	if !ok {
		return ErrStopNotFound
	}
	for mi := range c.sess.Tour.Stops[si].Media {
		m := &c.sess.Tour.Stops[si].Media[mi]
		if m.ID == id && !m.Deleted {
			m.Deleted = true
			c.Revalidate()
			return nil
		}
	}
	return ErrMediaNotFound
}

// PendingMedia lists media whose duration extraction has not completed.
func (c *Controller) PendingMedia() []domain.MediaID {
	out := make([]domain.MediaID, 0)
	for _, s := range c.sess.Tour.Stops {
		for _, m := range s.Media {
			if !m.Deleted && !m.DurationResolved {
				out = append(out, m.ID)
			}
		}
	}
	return out
}

// Revalidate recomputes warnings and derived pricing from scratch, replacing any previous result.
func (c *Controller) Revalidate() []domain.ValidationWarning {
	c.warnings = domain.ValidateStops(c.sess.Tour.Stops)
	q := domain.QuoteFor(c.sess.Tour.Stops)
	c.sess.Tour.Price = q.Price
	c.sess.Tour.DurationMinutes = q.DurationMinutes
	return c.Warnings()
}

func (c *Controller) Warnings() []domain.ValidationWarning {
	return append([]domain.ValidationWarning{}, c.warnings...)
}

func (c *Controller) TotalAudioSeconds() int { return domain.TotalAudioSeconds(c.sess.Tour.Stops) }

func (c *Controller) TotalPrice() float64 { return domain.Price(c.TotalAudioSeconds()) }

func (c *Controller) DurationMinutes() int { return domain.DurationMinutes(c.TotalAudioSeconds()) }

func (c *Controller) SubmitGate() domain.GateResult { return domain.SubmitGate(c.sess.Tour.Stops) }

func (c *Controller) formState() domain.FormState {
	return domain.FormState{
		Title:       c.sess.Tour.Title,
		Description: c.sess.Tour.Description,
		Stops:       c.sess.Tour.Stops,
		Warnings:    c.warnings,
	}
}

// Advance moves to the next step if the current step is complete.
func (c *Controller) Advance() error {
	next, ok := c.sess.Step.Next()
	if !ok {
		return ErrNoNextStep
	}
	if done, reasons := domain.StepComplete(c.sess.Step, c.formState()); !done {
		return &StepError{Step: c.sess.Step, Reasons: reasons}
	}
	c.sess.Step = next
	return nil
}

// Back moves to the previous step. Going back is never gated.
func (c *Controller) Back() error {
	prev, ok := c.sess.Step.Prev()
	if !ok {
		return ErrNoPreviousStep
	}
	c.sess.Step = prev
	return nil
}

func (c *Controller) CanSubmit() (bool, []string) {
	return domain.CanSubmit(c.sess.Step, c.formState())
}

// Submission serializes the draft for the tour backend. Pricing is recomputed, soft-deleted
// media is dropped and status is forced to pending_approval.
func (c *Controller) Submission() (domain.Submission, []domain.FileRef) {
	return domain.BuildSubmission(c.sess.Tour, c.sess.GuideID)
}

// Published reports whether the upstream backend already accepted this draft, and the id
// it assigned.
func (c *Controller) Published() (string, bool) {
	return c.sess.UpstreamID, c.sess.Published
}

func (c *Controller) MarkPublished(upstreamID string) {
	c.sess.Published = true
	c.sess.UpstreamID = upstreamID
}

// FinalTour returns the tour as it should be persisted on submission.
func (c *Controller) FinalTour() domain.TourPackage {
	t := c.sess.Tour
	t.Stops = domain.PurgeDeletedMedia(c.sess.Tour.Stops)
	q := domain.QuoteFor(t.Stops)
	t.Price = q.Price
	t.DurationMinutes = q.DurationMinutes
	t.Status = domain.TourStatusPendingApproval
	t.GuideID = c.sess.GuideID
	if c.sess.EditingTourID != "" {
		t.ID = c.sess.EditingTourID
	}
	return t
}

func (c *Controller) View() View {
	canAdvance := false
	if _, ok := c.sess.Step.Next(); ok {
		canAdvance, _ = domain.StepComplete(c.sess.Step, c.formState())
	}
	canSubmit, _ := c.CanSubmit()
	return View{
		SessionID:     c.sess.ID,
		Step:          c.sess.Step,
		EditingTourID: c.sess.EditingTourID,
		Tour:          c.Session().Tour,
		Warnings:      c.Warnings(),
		Quote:         domain.QuoteFor(c.sess.Tour.Stops),
		SubmitGate:    c.SubmitGate(),
		CanAdvance:    canAdvance,
		CanSubmit:     canSubmit,
		PendingMedia:  c.PendingMedia(),
	}
}

func (c *Controller) indexOfStop(id domain.StopID) (int, bool) {
	for i, s := range c.sess.Tour.Stops {
		if s.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c *Controller) indexOfMedia(id domain.MediaID) (int, int, bool) {
	for si, s := range c.sess.Tour.Stops {
		for mi, m := range s.Media {
			if m.ID == id {
				return si, mi, true
			}
		}
	}
	return -1, -1, false
}

func (c *Controller) String() string {
	return fmt.Sprintf("draft %s (%s, %d stops)", c.sess.ID, c.sess.Step, len(c.sess.Tour.Stops))
}
