package publisher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// ErrNotFound indicates the upstream backend has no tour with the requested id.
var ErrNotFound = errors.New("upstream tour not found")

// File is one binary part accompanying a submission.
type File struct {
	StopIndex int
	FileName  string
	FileType  string
	Data      []byte
}

// Publisher forwards a submitted tour to the upstream tour backend.
// It returns the identifier assigned by the upstream system, if any. Calls repeated with the
// same key describe the same submission.
type Publisher interface {
	Publish(ctx context.Context, key string, sub domain.Submission, files []File) (string, error)
}

// Fetcher loads a tour from the upstream backend in its own wire shape. Callers normalize
// the result with domain.NormalizeTour.
type Fetcher interface {
	FetchTour(ctx context.Context, id domain.TourID) (json.RawMessage, error)
}
