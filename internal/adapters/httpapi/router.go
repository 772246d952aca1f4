package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware establishes the caller's subject. Nil means no auth (tests only).
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
}

// NewRouter constructs the API HTTP router without authentication.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(NewRequestLogger(opts.Logger))
	}
	r.Use(middleware.Recoverer)
	if opts.AuthMiddleware != nil {
		r.Use(opts.AuthMiddleware)
	}

	// Infra checks only; not part of the public API.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/validate", s.Validate)

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", s.CreateDraft)
		r.Post("/import", s.ImportDraft)

		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", s.GetDraft)
			r.Put("/basic-info", s.SetBasicInfo)
			r.Post("/stops", s.AddStop)
			r.Put("/stops/order", s.ReorderStops)
			r.Patch("/stops/{stopId}", s.UpdateStop)
			r.Delete("/stops/{stopId}", s.DeleteStop)
			r.Post("/stops/{stopId}/media", s.UploadMedia)
			r.Delete("/stops/{stopId}/media/{mediaId}", s.RemoveMedia)
			r.Post("/step/advance", s.AdvanceStep)
			r.Post("/step/back", s.BackStep)
			r.Get("/route", s.GetRoute)
			r.Post("/submit", s.SubmitDraft)
		})
	})

	r.Get("/tours", s.ListMyTours)
	r.Get("/tours/{tourId}", s.GetTour)
	r.Post("/tours/{tourId}/drafts", s.OpenTourForEdit)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
