package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/idempotency"
)

const submitRoute = "/drafts/{sessionId}/submit"

// SubmitDraft submits a draft for review. An Idempotency-Key header is required:
//   - same key + subject + route + body: the stored response is replayed
//   - same key with a different body: 409 IDEMPOTENCY_KEY_REUSE
func (s *Server) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		writeError(w, r, http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED", "Idempotency-Key header is required", nil)
		return
	}

	bodyHash := hashSubmitBody(id)
	fp := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  domain.SubjectID(guide),
		Method:   http.MethodPost,
		Route:    submitRoute,
		BodyHash: bodyHash,
	}
	if s.Idem != nil {
		if meta, ok, err := s.Idem.Get(r.Context(), fp.Meta()); err != nil {
			s.writeAppError(w, r, err)
			return
		} else if ok {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.Idem.Put(r.Context(), fp.Meta(), idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   s.Clock.Now().UTC(),
			})
		}

		if rec, ok, err := s.Idem.Get(r.Context(), fp); err != nil {
			s.writeAppError(w, r, err)
			return
		} else if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	out, err := s.Tours.Submit(r.Context(), guide, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(map[string]any{"submission": out})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	// Store successful response for replay.
	if s.Idem != nil {
		_ = s.Idem.Put(r.Context(), fp, idempotency.Record{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        b,
			CreatedAt:   s.Clock.Now().UTC(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(b)
}

func hashSubmitBody(id domain.SessionID) string {
	sum := sha256.Sum256([]byte(`{"sessionId":"` + string(id) + `"}`))
	return hex.EncodeToString(sum[:])
}
