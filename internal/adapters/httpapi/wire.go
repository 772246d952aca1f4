package httpapi

import (
	"errors"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/drafts"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tourform"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// LocationBody is the wire shape of a stop location.
type LocationBody struct {
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Address    *string  `json:"address,omitempty"`
	City       *string  `json:"city,omitempty"`
	Province   *string  `json:"province,omitempty"`
	District   *string  `json:"district,omitempty"`
	PostalCode *string  `json:"postal_code,omitempty"`
}

func (b LocationBody) toDomain() (domain.Location, error) {
	if b.Latitude == nil || b.Longitude == nil {
		return domain.Location{}, errors.New("latitude and longitude are required")
	}
	p := domain.GeoPoint{Latitude: *b.Latitude, Longitude: *b.Longitude}
	if err := p.Validate(); err != nil {
		return domain.Location{}, err
	}
	return domain.Location{
		Point:      p,
		Address:    b.Address,
		City:       b.City,
		Province:   b.Province,
		District:   b.District,
		PostalCode: b.PostalCode,
	}, nil
}

type BasicInfoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type AddStopRequest struct {
	ID          string        `json:"id,omitempty"`
	SequenceNo  int           `json:"sequence_no,omitempty"`
	StopName    string        `json:"stop_name"`
	Description string        `json:"description"`
	Location    *LocationBody `json:"location"`
}

func (b AddStopRequest) toInput() (drafts.StopInput, map[string]any) {
	in := drafts.StopInput{
		ID:          domain.StopID(b.ID),
		SequenceNo:  b.SequenceNo,
		Name:        b.StopName,
		Description: b.Description,
	}
	if b.SequenceNo < 0 {
		return drafts.StopInput{}, map[string]any{"sequence_no": "must be positive"}
	}
	if b.Location != nil {
		loc, err := b.Location.toDomain()
		if err != nil {
			return drafts.StopInput{}, map[string]any{"location": err.Error()}
		}
		in.Location = &loc
	}
	return in, nil
}

// UpdateStopRequest distinguishes omitted fields from explicit nulls.
type UpdateStopRequest struct {
	StopName    nullable.Nullable[string]       `json:"stop_name,omitempty"`
	Description nullable.Nullable[string]       `json:"description,omitempty"`
	Location    nullable.Nullable[LocationBody] `json:"location,omitempty"`
}

func (b UpdateStopRequest) toPatch() (tourform.StopPatch, map[string]any) {
	var p tourform.StopPatch
	if b.StopName.IsSpecified() {
		if b.StopName.IsNull() {
			return tourform.StopPatch{}, map[string]any{"stop_name": "must not be null"}
		}
		v, _ := b.StopName.Get()
		p.Name = tourform.Some(v)
	}
	if b.Description.IsSpecified() {
		if b.Description.IsNull() {
			p.Description = tourform.Some("")
		} else {
			v, _ := b.Description.Get()
			p.Description = tourform.Some(v)
		}
	}
	if b.Location.IsSpecified() {
		if b.Location.IsNull() {
			p.Location = tourform.Null[domain.Location]()
		} else {
			body, _ := b.Location.Get()
			loc, err := body.toDomain()
			if err != nil {
				return tourform.StopPatch{}, map[string]any{"location": err.Error()}
			}
			p.Location = tourform.Some(loc)
		}
	}
	return p, nil
}

type ReorderStopsRequest struct {
	Order []string `json:"order"`
}

func (b ReorderStopsRequest) toIDs() []domain.StopID {
	out := make([]domain.StopID, 0, len(b.Order))
	for _, id := range b.Order {
		out = append(out, domain.StopID(id))
	}
	return out
}

// ValidateResponse is the stateless validation result for a stop list.
type ValidateResponse struct {
	Stops      []domain.Stop              `json:"stops"`
	Warnings   []domain.ValidationWarning `json:"warnings"`
	HasErrors  bool                       `json:"hasErrors"`
	SubmitGate domain.GateResult          `json:"submitGate"`
	Quote      domain.Quote               `json:"quote"`
	Duration   string                     `json:"duration"`
}

func validateStops(stops []domain.Stop) ValidateResponse {
	ws := domain.ValidateStops(stops)
	q := domain.QuoteFor(stops)
	return ValidateResponse{
		Stops:      stops,
		Warnings:   ws,
		HasErrors:  domain.HasErrors(ws),
		SubmitGate: domain.SubmitGate(stops),
		Quote:      q,
		Duration:   domain.FormatDuration(q.TotalAudioSeconds),
	}
}

type DraftResponse struct {
	Draft tourform.View `json:"draft"`
}

type TourResponse struct {
	Tour domain.TourPackage `json:"tour"`
}
