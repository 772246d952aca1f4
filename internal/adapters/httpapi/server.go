package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/drafts"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tours"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/idempotency"
)

const (
	maxUploadMemory = 32 << 20
	maxUploadBody   = 256 << 20
)

// Server holds the HTTP handlers. Handlers translate wire shapes and delegate to the
// application services.
type Server struct {
	Drafts *drafts.Service
	Tours  *tours.Service
	Idem   idempotency.Store
	Clock  clock.Clock
	Log    *zap.Logger
}

func NewServer(draftsSvc *drafts.Service, toursSvc *tours.Service, idem idempotency.Store, clk clock.Clock, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Drafts: draftsSvc,
		Tours:  toursSvc,
		Idem:   idem,
		Clock:  clk,
		Log:    log.Named("httpapi"),
	}
}

func guideFrom(w http.ResponseWriter, r *http.Request) (domain.GuideID, bool) {
	guide, ok := GuideFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return guide, true
}

// Validate checks a stop list without creating a session. The body is any tour-like
// object with "stops" or "tour_stops"; media records may be flat or nested.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	if _, ok := guideFrom(w, r); !ok {
		return
	}
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	t, err := domain.NormalizeTour(raw)
	if err != nil {
		writeValidationError(w, r, "invalid stops", map[string]any{"stops": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, validateStops(domain.PurgeDeletedMedia(t.Stops)))
}

func (s *Server) CreateDraft(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	v, err := s.Drafts.CreateSession(r.Context(), guide)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DraftResponse{Draft: v})
}

func (s *Server) ImportDraft(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	v, err := s.Drafts.ImportTour(r.Context(), guide, raw)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DraftResponse{Draft: v})
}

func (s *Server) OpenTourForEdit(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	tourID, ok := stringParam(w, r, "tourId")
	if !ok {
		return
	}
	v, err := s.Drafts.OpenForEdit(r.Context(), guide, domain.TourID(tourID))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DraftResponse{Draft: v})
}

func (s *Server) GetDraft(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	v, err := s.Drafts.GetState(r.Context(), guide, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

func (s *Server) SetBasicInfo(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	var body BasicInfoRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Title == nil || body.Description == nil {
		writeValidationError(w, r, "title and description are required", nil)
		return
	}
	v, err := s.Drafts.SetBasicInfo(r.Context(), guide, id, *body.Title, *body.Description)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

func (s *Server) AddStop(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	var body AddStopRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	in, details := body.toInput()
	if details != nil {
		writeValidationError(w, r, "invalid stop", details)
		return
	}
	v, err := s.Drafts.AddStop(r.Context(), guide, id, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DraftResponse{Draft: v})
}

func (s *Server) UpdateStop(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	stopID, ok := stringParam(w, r, "stopId")
	if !ok {
		return
	}
	var body UpdateStopRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	patch, details := body.toPatch()
	if details != nil {
		writeValidationError(w, r, "invalid stop update", details)
		return
	}
	v, err := s.Drafts.UpdateStop(r.Context(), guide, id, domain.StopID(stopID), patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

func (s *Server) DeleteStop(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	stopID, ok := stringParam(w, r, "stopId")
	if !ok {
		return
	}
	v, err := s.Drafts.DeleteStop(r.Context(), guide, id, domain.StopID(stopID))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

func (s *Server) ReorderStops(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	var body ReorderStopsRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	v, err := s.Drafts.ReorderStops(r.Context(), guide, id, body.toIDs())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

// UploadMedia accepts multipart/form-data; every file part (any field name) becomes one
// media item, in field-name order.
func (s *Server) UploadMedia(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	stopID, ok := stringParam(w, r, "stopId")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeValidationError(w, r, "invalid multipart body", map[string]any{"cause": err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fields := make([]string, 0, len(r.MultipartForm.File))
	for name := range r.MultipartForm.File {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var uploads []drafts.Upload
	for _, name := range fields {
		for _, fh := range r.MultipartForm.File[name] {
			f, err := fh.Open()
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			uploads = append(uploads, drafts.Upload{FileName: fh.Filename, Data: data})
		}
	}
	if len(uploads) == 0 {
		writeValidationError(w, r, "no files uploaded", nil)
		return
	}

	v, err := s.Drafts.UploadMedia(r.Context(), guide, id, domain.StopID(stopID), uploads)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DraftResponse{Draft: v})
}

func (s *Server) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	stopID, ok := stringParam(w, r, "stopId")
	if !ok {
		return
	}
	mediaID, ok := stringParam(w, r, "mediaId")
	if !ok {
		return
	}
	v, err := s.Drafts.RemoveMedia(r.Context(), guide, id, domain.StopID(stopID), domain.MediaID(mediaID))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

func (s *Server) AdvanceStep(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	v, err := s.Drafts.AdvanceStep(r.Context(), guide, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

func (s *Server) BackStep(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	v, err := s.Drafts.BackStep(r.Context(), guide, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: v})
}

func (s *Server) ListMyTours(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	ts, err := s.Tours.ListMyTours(r.Context(), guide)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": ts})
}

func (s *Server) GetTour(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	tourID, ok := stringParam(w, r, "tourId")
	if !ok {
		return
	}
	t, err := s.Tours.GetTour(r.Context(), guide, domain.TourID(tourID))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TourResponse{Tour: t})
}
