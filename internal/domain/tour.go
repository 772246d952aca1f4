package domain

import "time"

type TourStatus string

const (
	TourStatusDraft           TourStatus = "draft"
	TourStatusPendingApproval TourStatus = "pending_approval"
	TourStatusApproved        TourStatus = "approved"
	TourStatusRejected        TourStatus = "rejected"
)

type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeImage MediaType = "image"
)

func (t MediaType) Valid() bool {
	return t == MediaTypeAudio || t == MediaTypeImage
}

// MediaItem is one uploaded asset attached to a stop.
//
// DurationSeconds is meaningful only for audio and is set once, when the asynchronous
// extraction completes (DurationResolved). Deleted items stay in the list until the
// draft is saved, but are excluded from every aggregate.
type MediaItem struct {
	ID               MediaID   `json:"id"`
	Type             MediaType `json:"media_type"`
	DurationSeconds  int       `json:"duration_seconds"`
	DurationResolved bool      `json:"duration_resolved"`
	Deleted          bool      `json:"deleted"`

	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	URL      string `json:"url,omitempty"`

	// BlobKey references the raw bytes in the blob store; empty for items that
	// were loaded from an existing tour and have not been re-uploaded.
	BlobKey string `json:"blob_key,omitempty"`
}

// IsActiveAudio reports whether the item counts towards audio aggregates.
func (m MediaItem) IsActiveAudio() bool {
	return m.Type == MediaTypeAudio && !m.Deleted
}

// Location is a stop's position plus optional free-text address fields.
type Location struct {
	Point      GeoPoint `json:"point"`
	Address    *string  `json:"address,omitempty"`
	City       *string  `json:"city,omitempty"`
	Province   *string  `json:"province,omitempty"`
	District   *string  `json:"district,omitempty"`
	PostalCode *string  `json:"postal_code,omitempty"`
}

// Stop is one waypoint of a tour.
type Stop struct {
	ID          StopID      `json:"id"`
	SequenceNo  int         `json:"sequence_no"`
	Name        string      `json:"stop_name"`
	Description string      `json:"description"`
	Location    *Location   `json:"location"`
	Media       []MediaItem `json:"media"`
}

func (s Stop) HasLocation() bool { return s.Location != nil }

// ActiveAudio returns the non-deleted audio items of the stop.
func (s Stop) ActiveAudio() []MediaItem {
	var out []MediaItem
	for _, m := range s.Media {
		if m.IsActiveAudio() {
			out = append(out, m)
		}
	}
	return out
}

func (s Stop) HasAudio() bool {
	for _, m := range s.Media {
		if m.IsActiveAudio() {
			return true
		}
	}
	return false
}

// AudioSeconds sums the durations of the stop's non-deleted audio items.
func (s Stop) AudioSeconds() int {
	total := 0
	for _, m := range s.Media {
		if m.IsActiveAudio() {
			total += m.DurationSeconds
		}
	}
	return total
}

// TourPackage is the aggregate authored through the wizard.
// Price and DurationMinutes are derived and overwritten at submission time.
type TourPackage struct {
	ID          TourID     `json:"id,omitempty"`
	GuideID     GuideID    `json:"guide_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Status      TourStatus `json:"status"`

	DurationMinutes int    `json:"duration_minutes"`
	Stops           []Stop `json:"tour_stops"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RenumberStops rewrites SequenceNo to 1..N in list order.
func RenumberStops(stops []Stop) {
	for i := range stops {
		stops[i].SequenceNo = i + 1
	}
}

// PurgeDeletedMedia permanently drops soft-deleted media. It is applied only when a draft is saved.
func PurgeDeletedMedia(stops []Stop) []Stop {
	out := make([]Stop, len(stops))
	for i, s := range stops {
		cp := s
		cp.Media = make([]MediaItem, 0, len(s.Media))
		for _, m := range s.Media {
			if !m.Deleted {
				cp.Media = append(cp.Media, m)
			}
		}
		out[i] = cp
	}
	return out
}

// CloneStops deep-copies a stop list so callers can hand out snapshots safely.
func CloneStops(stops []Stop) []Stop {
	if stops == nil {
		return nil
	}
	out := make([]Stop, len(stops))
	for i, s := range stops {
		cp := s
		if s.Media != nil {
			cp.Media = append([]MediaItem(nil), s.Media...)
		}
		cp.Location = cloneLocation(s.Location)
		out[i] = cp
	}
	return out
}

func cloneLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	cp := *l
	cp.Address = cloneStringPtr(l.Address)
	cp.City = cloneStringPtr(l.City)
	cp.Province = cloneStringPtr(l.Province)
	cp.District = cloneStringPtr(l.District)
	cp.PostalCode = cloneStringPtr(l.PostalCode)
	return &cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
