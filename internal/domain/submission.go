package domain

// Submission is the JSON metadata sent when a tour is submitted. Raw file bytes travel
// separately, keyed by stop index (see FileRef).
type Submission struct {
	Tour  SubmissionTour   `json:"tour"`
	Stops []SubmissionStop `json:"stops"`
}

type SubmissionTour struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Price           float64    `json:"price"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          TourStatus `json:"status"`
	GuideID         GuideID    `json:"guide_id"`
}

type SubmissionLocation struct {
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	Province   *string `json:"province,omitempty"`
	District   *string `json:"district,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
}

type SubmissionMedia struct {
	MediaType       MediaType `json:"media_type"`
	DurationSeconds int       `json:"duration_seconds"`
	FileName        string    `json:"file_name"`
	FileType        string    `json:"file_type"`
	FileSize        int64     `json:"file_size"`
	URL             string    `json:"url,omitempty"`
}

type SubmissionStop struct {
	SequenceNo  int                 `json:"sequence_no"`
	StopName    string              `json:"stop_name"`
	Description string              `json:"description"`
	Location    *SubmissionLocation `json:"location"`
	Media       []SubmissionMedia   `json:"media"`
}

// FileRef points at the raw bytes of a freshly uploaded media item.
type FileRef struct {
	StopIndex int
	BlobKey   string
	FileName  string
	FileType  string
}

// BuildSubmission derives price and duration from the stops, forces pending_approval,
// drops soft-deleted media, and lists the blobs that must accompany the metadata.
func BuildSubmission(t TourPackage, guide GuideID) (Submission, []FileRef) {
	stops := PurgeDeletedMedia(t.Stops)
	q := QuoteFor(stops)

	sub := Submission{
		Tour: SubmissionTour{
			Title:           t.Title,
			Description:     t.Description,
			Price:           q.Price,
			DurationMinutes: q.DurationMinutes,
			Status:          TourStatusPendingApproval,
			GuideID:         guide,
		},
		Stops: make([]SubmissionStop, 0, len(stops)),
	}

	var files []FileRef
	for i, s := range stops {
		ss := SubmissionStop{
			SequenceNo:  s.SequenceNo,
			StopName:    s.Name,
			Description: s.Description,
			Media:       make([]SubmissionMedia, 0, len(s.Media)),
		}
		if s.Location != nil {
			ss.Location = &SubmissionLocation{
				Longitude:  s.Location.Point.Longitude,
				Latitude:   s.Location.Point.Latitude,
				Address:    s.Location.Address,
				City:       s.Location.City,
				Province:   s.Location.Province,
				District:   s.Location.District,
				PostalCode: s.Location.PostalCode,
			}
		}
		for _, m := range s.Media {
			ss.Media = append(ss.Media, SubmissionMedia{
				MediaType:       m.Type,
				DurationSeconds: m.DurationSeconds,
				FileName:        m.FileName,
				FileType:        m.FileType,
				FileSize:        m.FileSize,
				URL:             m.URL,
			})
			if m.BlobKey != "" {
				files = append(files, FileRef{StopIndex: i, BlobKey: m.BlobKey, FileName: m.FileName, FileType: m.FileType})
			}
		}
		sub.Stops = append(sub.Stops, ss)
	}
	return sub, files
}
