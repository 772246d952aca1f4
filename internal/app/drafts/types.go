package drafts

import (
	"time"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

const (
	DefaultSessionTTL   = 24 * time.Hour
	DefaultProbeTimeout = 10 * time.Second
)

// Config tunes session lifetime and media probing.
type Config struct {
	SessionTTL   time.Duration
	ProbeTimeout time.Duration
}

// Upload is one file received for a stop.
type Upload struct {
	FileName string
	Data     []byte
}

// StopInput is the payload of an add-stop request.
type StopInput struct {
	ID          domain.StopID
	SequenceNo  int
	Name        string
	Description string
	Location    *domain.Location
}
