package tourrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	postgres "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/tourrepo"
)

// Repo is a Postgres implementation of tourrepo.Repository.
// Stops live in tour_stops; their media lists are stored as JSONB.
type Repo struct {
	db postgres.DB
}

func NewRepo(db postgres.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, t domain.TourPackage) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	if t.ID == "" {
		return tourrepo.ErrAlreadyExists
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tours (
				id,
				guide_id,
				title,
				description,
				price,
				status,
				duration_minutes,
				created_at,
				updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			string(t.ID),
			string(t.GuideID),
			t.Title,
			t.Description,
			t.Price,
			string(t.Status),
			t.DurationMinutes,
			t.CreatedAt.UTC(),
			t.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				return tourrepo.ErrAlreadyExists
			}
			return err
		}
		return insertStops(ctx, tx, t.ID, t.Stops)
	})
}

// Save replaces the tour row and its full stop list.
func (r *Repo) Save(ctx context.Context, t domain.TourPackage) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE tours SET
				guide_id = $2,
				title = $3,
				description = $4,
				price = $5,
				status = $6,
				duration_minutes = $7,
				updated_at = $8
			WHERE id = $1
		`,
			string(t.ID),
			string(t.GuideID),
			t.Title,
			t.Description,
			t.Price,
			string(t.Status),
			t.DurationMinutes,
			t.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return tourrepo.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tour_stops WHERE tour_id = $1`, string(t.ID)); err != nil {
			return err
		}
		return insertStops(ctx, tx, t.ID, t.Stops)
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.TourID) (domain.TourPackage, error) {
	if r.db == nil {
		return domain.TourPackage{}, errors.New("nil postgres pool")
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, guide_id, title, description, price, status, duration_minutes, created_at, updated_at
		FROM tours
		WHERE id = $1
	`, string(id))
	t, err := scanTour(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TourPackage{}, tourrepo.ErrNotFound
		}
		return domain.TourPackage{}, err
	}
	if t.Stops, err = r.loadStops(ctx, t.ID); err != nil {
		return domain.TourPackage{}, err
	}
	return t, nil
}

func (r *Repo) ListByGuide(ctx context.Context, guide domain.GuideID) ([]domain.TourPackage, error) {
	if r.db == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, guide_id, title, description, price, status, duration_minutes, created_at, updated_at
		FROM tours
		WHERE guide_id = $1
		ORDER BY created_at DESC, id ASC
	`, string(guide))
	if err != nil {
		return nil, err
	}
	out := make([]domain.TourPackage, 0)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Stops, err = r.loadStops(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanTour(row pgx.Row) (domain.TourPackage, error) {
	var (
		t       domain.TourPackage
		id      string
		guideID string
		status  string
	)
	if err := row.Scan(&id, &guideID, &t.Title, &t.Description, &t.Price, &status, &t.DurationMinutes, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.TourPackage{}, err
	}
	t.ID = domain.TourID(id)
	t.GuideID = domain.GuideID(guideID)
	t.Status = domain.TourStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (r *Repo) loadStops(ctx context.Context, id domain.TourID) ([]domain.Stop, error) {
	rows, err := r.db.Query(ctx, `
		SELECT stop_id, sequence_no, stop_name, description,
			latitude, longitude, address, city, province, district, postal_code, media
		FROM tour_stops
		WHERE tour_id = $1
		ORDER BY sequence_no ASC
	`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0)
	for rows.Next() {
		var (
			s        domain.Stop
			stopID   string
			lat, lng *float64
			addr     domain.Location
			media    []byte
		)
		if err := rows.Scan(
			&stopID, &s.SequenceNo, &s.Name, &s.Description,
			&lat, &lng, &addr.Address, &addr.City, &addr.Province, &addr.District, &addr.PostalCode, &media,
		); err != nil {
			return nil, err
		}
		s.ID = domain.StopID(stopID)
		if lat != nil && lng != nil {
			addr.Point = domain.GeoPoint{Latitude: *lat, Longitude: *lng}
			s.Location = &addr
		}
		s.Media = make([]domain.MediaItem, 0)
		if len(media) > 0 {
			if err := json.Unmarshal(media, &s.Media); err != nil {
				return nil, fmt.Errorf("decode media for stop %s: %w", stopID, err)
			}
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func insertStops(ctx context.Context, tx pgx.Tx, id domain.TourID, stops []domain.Stop) error {
	for _, s := range stops {
		media, err := json.Marshal(nonNilMedia(s.Media))
		if err != nil {
			return fmt.Errorf("encode media for stop %s: %w", s.ID, err)
		}
		var (
			lat, lng                                    *float64
			address, city, province, district, postcode *string
		)
		if s.Location != nil {
			la, lo := s.Location.Point.Latitude, s.Location.Point.Longitude
			lat, lng = &la, &lo
			address, city, province, district, postcode = s.Location.Address, s.Location.City, s.Location.Province, s.Location.District, s.Location.PostalCode
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tour_stops (
				tour_id,
				stop_id,
				sequence_no,
				stop_name,
				description,
				latitude,
				longitude,
				address,
				city,
				province,
				district,
				postal_code,
				media
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`,
			string(id),
			string(s.ID),
			s.SequenceNo,
			s.Name,
			s.Description,
			lat,
			lng,
			address,
			city,
			province,
			district,
			postcode,
			media,
		); err != nil {
			return err
		}
	}
	return nil
}

func nonNilMedia(m []domain.MediaItem) []domain.MediaItem {
	if m == nil {
		return []domain.MediaItem{}
	}
	return m
}
