package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// GetRoute renders the draft's located stops as a GeoJSON FeatureCollection: one Point per
// located stop plus, when at least two are located, a LineString in sequence order whose
// properties carry the straight-line distance and walking estimate.
func (s *Server) GetRoute(w http.ResponseWriter, r *http.Request) {
	guide, ok := guideFrom(w, r)
	if !ok {
		return
	}
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	v, err := s.Drafts.GetState(r.Context(), guide, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	b, err := json.Marshal(routeFeatures(v.Tour.Stops))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func routeFeatures(stops []domain.Stop) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(stops)+1)}

	coords := make([]float64, 0, 2*len(stops))
	var (
		prev        *domain.GeoPoint
		totalMeters float64
		walkSeconds int
	)
	for _, st := range stops {
		if st.Location == nil {
			continue
		}
		p := st.Location.Point
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       string(st.ID),
			Geometry: geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
			Properties: map[string]any{
				"kind":          "stop",
				"sequence_no":   st.SequenceNo,
				"stop_name":     st.Name,
				"audio_seconds": st.AudioSeconds(),
			},
		})
		coords = append(coords, p.Longitude, p.Latitude)
		if prev != nil {
			d := domain.DistanceMeters(*prev, p)
			totalMeters += d
			walkSeconds += domain.WalkingTimeSeconds(d)
		}
		pp := p
		prev = &pp
	}

	if len(coords) >= 4 {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       "route",
			Geometry: geom.NewLineStringFlat(geom.XY, coords),
			Properties: map[string]any{
				"kind":                 "route",
				"distance_meters":      totalMeters,
				"walking_time_seconds": walkSeconds,
			},
		})
	}
	return fc
}
