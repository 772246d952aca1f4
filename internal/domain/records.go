package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned when an external record cannot be mapped to the canonical shape.
var ErrMalformedRecord = errors.New("malformed record")

// Upper bounds for numeric fields of external media records.
const (
	MaxMediaDurationSeconds = 24 * 60 * 60
	MaxMediaFileSize        = 1 << 40
)

// NormalizeMediaRecord maps one externally supplied media record onto MediaItem.
//
// Accepted shapes (as seen in edit-mode API responses):
//   - flat:   {"id", "media_type", "duration_seconds", "url", "file_name", ...}
//   - nested: {"id", "media": {"media_type", "duration_seconds", "url", ...}}
//
// "type" and "duration" are accepted as aliases. Fields on the outer object win over nested ones.
func NormalizeMediaRecord(raw json.RawMessage) (MediaItem, error) {
	outer, err := decodeObject(raw)
	if err != nil {
		return MediaItem{}, err
	}
	fields := outer
	if nestedRaw, ok := outer["media"]; ok && !isJSONNull(nestedRaw) {
		nested, err := decodeObject(nestedRaw)
		if err != nil {
			return MediaItem{}, fmt.Errorf("media: %w", err)
		}
		fields = make(map[string]json.RawMessage, len(outer)+len(nested))
		for k, v := range nested {
			fields[k] = v
		}
		for k, v := range outer {
			if k != "media" {
				fields[k] = v
			}
		}
	}

	var m MediaItem
	if id, ok := firstString(fields, "id", "media_id"); ok {
		m.ID = MediaID(id)
	}
	mt, _ := firstString(fields, "media_type", "type")
	m.Type = MediaType(strings.ToLower(strings.TrimSpace(mt)))
	if !m.Type.Valid() {
		return MediaItem{}, fmt.Errorf("%w: unknown media_type %q", ErrMalformedRecord, mt)
	}
	if d, ok := firstNumber(fields, "duration_seconds", "duration"); ok {
		if d < 0 || math.IsNaN(d) {
			d = 0
		}
		if d > MaxMediaDurationSeconds {
			return MediaItem{}, fmt.Errorf("%w: duration_seconds %v out of range", ErrMalformedRecord, d)
		}
		m.DurationSeconds = int(math.Round(d))
	}
	// Persisted records had their duration extracted at upload time.
	m.DurationResolved = true
	m.URL, _ = firstString(fields, "url", "media_url", "file_url")
	m.FileName, _ = firstString(fields, "file_name", "filename")
	m.FileType, _ = firstString(fields, "file_type", "mime_type", "content_type")
	if sz, ok := firstNumber(fields, "file_size", "size"); ok && sz > 0 {
		if sz > MaxMediaFileSize {
			return MediaItem{}, fmt.Errorf("%w: file_size %v out of range", ErrMalformedRecord, sz)
		}
		m.FileSize = int64(sz)
	}
	if b, ok := fields["deleted"]; ok {
		_ = json.Unmarshal(b, &m.Deleted)
	}
	return m, nil
}

type externalLocation struct {
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Address    *string  `json:"address"`
	City       *string  `json:"city"`
	Province   *string  `json:"province"`
	District   *string  `json:"district"`
	PostalCode *string  `json:"postal_code"`
}

type externalStop struct {
	ID          json.RawMessage   `json:"id"`
	SequenceNo  int               `json:"sequence_no"`
	StopName    string            `json:"stop_name"`
	Description string            `json:"description"`
	Location    *externalLocation `json:"location"`
	Media       []json.RawMessage `json:"media"`
}

type externalTour struct {
	ID              json.RawMessage `json:"id"`
	GuideID         json.RawMessage `json:"guide_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Price           float64         `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	Status          string          `json:"status"`
	TourStops       []externalStop  `json:"tour_stops"`
	Stops           []externalStop  `json:"stops"`
}

// NormalizeTour maps an external tour representation onto TourPackage. Every media record
// goes through NormalizeMediaRecord; stops are ordered by sequence_no and renumbered densely.
func NormalizeTour(raw json.RawMessage) (TourPackage, error) {
	var ext externalTour
	if err := json.Unmarshal(raw, &ext); err != nil {
		return TourPackage{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	stopsIn := ext.TourStops
	if len(stopsIn) == 0 {
		stopsIn = ext.Stops
	}

	t := TourPackage{
		ID:              TourID(rawID(ext.ID)),
		GuideID:         GuideID(rawID(ext.GuideID)),
		Title:           NormalizeHumanName(ext.Title),
		Description:     NormalizeText(ext.Description),
		Price:           ext.Price,
		DurationMinutes: ext.DurationMinutes,
		Status:          TourStatus(ext.Status),
		Stops:           make([]Stop, 0, len(stopsIn)),
	}
	for i, es := range stopsIn {
		s := Stop{
			ID:          StopID(rawID(es.ID)),
			SequenceNo:  es.SequenceNo,
			Name:        NormalizeHumanName(es.StopName),
			Description: NormalizeText(es.Description),
			Media:       make([]MediaItem, 0, len(es.Media)),
		}
		if es.Location != nil && es.Location.Latitude != nil && es.Location.Longitude != nil {
			loc := &Location{
				Point:      GeoPoint{Latitude: *es.Location.Latitude, Longitude: *es.Location.Longitude},
				Address:    es.Location.Address,
				City:       es.Location.City,
				Province:   es.Location.Province,
				District:   es.Location.District,
				PostalCode: es.Location.PostalCode,
			}
			if err := loc.Point.Validate(); err != nil {
				return TourPackage{}, fmt.Errorf("stop %d: %w", i+1, err)
			}
			s.Location = loc
		}
		for j, rm := range es.Media {
			m, err := NormalizeMediaRecord(rm)
			if err != nil {
				return TourPackage{}, fmt.Errorf("stop %d media %d: %w", i+1, j+1, err)
			}
			s.Media = append(s.Media, m)
		}
		t.Stops = append(t.Stops, s)
	}
	sortStopsBySequence(t.Stops)
	RenumberStops(t.Stops)
	return t, nil
}

func sortStopsBySequence(stops []Stop) {
	// Insertion sort keeps equal sequence numbers in input order.
	for i := 1; i < len(stops); i++ {
		for j := i; j > 0 && stops[j].SequenceNo < stops[j-1].SequenceNo; j-- {
			stops[j], stops[j-1] = stops[j-1], stops[j]
		}
	}
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, fmt.Errorf("%w: expected JSON object", ErrMalformedRecord)
	}
	return m, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func firstString(fields map[string]json.RawMessage, keys ...string) (string, bool) {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok || isJSONNull(raw) {
			continue
		}
		if v := rawID(raw); v != "" {
			return v, true
		}
	}
	return "", false
}

func firstNumber(fields map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok || isJSONNull(raw) {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f, true
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// rawID renders a JSON string or number as a string; anything else yields "".
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || isJSONNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
