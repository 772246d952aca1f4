package mediaprobe

import (
	"context"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// Prober inspects raw uploaded bytes.
type Prober interface {
	// Sniff detects the media type from file content. ok is false for files that are
	// neither audio nor image.
	Sniff(fileName string, data []byte) (t domain.MediaType, contentType string, ok bool)

	// DurationSeconds extracts the playback length of an audio file. It never fails:
	// undecodable input, or ctx ending first, yields 0.
	DurationSeconds(ctx context.Context, contentType string, data []byte) int
}
