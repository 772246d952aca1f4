package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

const maxJSONBody = 1 << 20

func bindPath(r *http.Request, name string, dest any) error {
	return runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
}

func writeBadParam(w http.ResponseWriter, r *http.Request, name string, err error) {
	writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid path parameter "+name, map[string]any{"param": name, "cause": err.Error()})
}

// sessionParam binds {sessionId}. Session ids are server-issued UUIDs.
func sessionParam(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	var id openapi_types.UUID
	if err := bindPath(r, "sessionId", &id); err != nil {
		writeBadParam(w, r, "sessionId", err)
		return "", false
	}
	return domain.SessionID(id.String()), true
}

func stringParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	if err := bindPath(r, name, &v); err != nil || v == "" {
		if err == nil {
			err = errors.New("empty value")
		}
		writeBadParam(w, r, name, err)
		return "", false
	}
	return v, true
}

// decodeJSON reads a JSON body into dst. Malformed or oversized bodies are answered with 422.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "missing request body"
		}
		writeValidationError(w, r, msg, map[string]any{"cause": err.Error()})
		return false
	}
	return true
}
