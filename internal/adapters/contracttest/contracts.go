package contracttest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	blobstoreport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/blobstore"
	idempotencyport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/idempotency"
	sessionstoreport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
	tourrepoport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/tourrepo"
)

type CleanupFunc = func()

type TourRepoFactory func(t *testing.T) (tourrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type SessionStoreFactory func(t *testing.T) (sessionstoreport.Store, CleanupFunc)
type BlobStoreFactory func(t *testing.T) (blobstoreport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/drafts/{sessionId}/submit",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get(empty) ok=%v err=%v, want ok=false", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Response record is distinct from the meta record.
	respFP := fp
	respFP.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, respFP); err != nil || ok {
		t.Fatalf("Get(response) before Put ok=%v err=%v", ok, err)
	}
	if respFP.Meta() != fp {
		t.Fatalf("Meta()=%+v, want %+v", respFP.Meta(), fp)
	}
}

func sampleTour(id domain.TourID, guide domain.GuideID, created time.Time) domain.TourPackage {
	addr := "Galle Face Green"
	return domain.TourPackage{
		ID:              id,
		GuideID:         guide,
		Title:           "Colombo Fort Walk",
		Description:     "Colonial landmarks",
		Price:           10833.33,
		Status:          domain.TourStatusPendingApproval,
		DurationMinutes: 22,
		CreatedAt:       created,
		UpdatedAt:       created,
		Stops: []domain.Stop{
			{
				ID:         domain.StopID(uuid.NewString()),
				SequenceNo: 1,
				Name:       "Old Parliament",
				Location:   &domain.Location{Point: domain.GeoPoint{Latitude: 6.9271, Longitude: 79.8612}, Address: &addr},
				Media: []domain.MediaItem{{
					ID:               domain.MediaID(uuid.NewString()),
					Type:             domain.MediaTypeAudio,
					DurationSeconds:  1300,
					DurationResolved: true,
					FileName:         "intro.mp3",
					FileType:         "audio/mpeg",
					FileSize:         2048,
				}},
			},
			{
				ID:         domain.StopID(uuid.NewString()),
				SequenceNo: 2,
				Name:       "Lighthouse",
				Location:   &domain.Location{Point: domain.GeoPoint{Latitude: 6.9344, Longitude: 79.8428}},
				Media:      []domain.MediaItem{},
			},
		},
	}
}

func RunTourRepo(t *testing.T, newRepo TourRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	guide := domain.GuideID("guide-" + uuid.NewString())
	other := domain.GuideID("guide-" + uuid.NewString())
	older := sampleTour(domain.TourID(uuid.NewString()), guide, time.Unix(1000, 0).UTC())
	newer := sampleTour(domain.TourID(uuid.NewString()), guide, time.Unix(2000, 0).UTC())
	foreign := sampleTour(domain.TourID(uuid.NewString()), other, time.Unix(3000, 0).UTC())

	for _, tp := range []domain.TourPackage{older, newer, foreign} {
		if err := repo.Create(ctx, tp); err != nil {
			t.Fatalf("Create %s: %v", tp.ID, err)
		}
	}
	if err := repo.Create(ctx, older); !errors.Is(err, tourrepoport.ErrAlreadyExists) {
		t.Fatalf("Create dup err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.GetByID(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != older.Title || got.GuideID != guide || len(got.Stops) != 2 {
		t.Fatalf("GetByID=%+v", got)
	}
	if got.Stops[0].Location == nil || got.Stops[0].Location.Address == nil || *got.Stops[0].Location.Address != "Galle Face Green" {
		t.Fatalf("location not round-tripped: %+v", got.Stops[0].Location)
	}
	if len(got.Stops[0].Media) != 1 || got.Stops[0].Media[0].DurationSeconds != 1300 {
		t.Fatalf("media not round-tripped: %+v", got.Stops[0].Media)
	}
	if got.Stops[1].SequenceNo != 2 || got.Stops[1].Name != "Lighthouse" {
		t.Fatalf("stop order not preserved: %+v", got.Stops)
	}

	if _, err := repo.GetByID(ctx, domain.TourID(uuid.NewString())); !errors.Is(err, tourrepoport.ErrNotFound) {
		t.Fatalf("GetByID(missing) err=%v, want ErrNotFound", err)
	}

	// Save replaces the stop list wholesale.
	edited := got
	edited.Title = "Colombo Fort Evening Walk"
	edited.Stops = edited.Stops[:1]
	edited.UpdatedAt = time.Unix(5000, 0).UTC()
	if err := repo.Save(ctx, edited); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = repo.GetByID(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetByID after Save: %v", err)
	}
	if got.Title != "Colombo Fort Evening Walk" || len(got.Stops) != 1 {
		t.Fatalf("after Save=%+v", got)
	}

	ts, err := repo.ListByGuide(ctx, guide)
	if err != nil {
		t.Fatalf("ListByGuide: %v", err)
	}
	if len(ts) != 2 || ts[0].ID != newer.ID || ts[1].ID != older.ID {
		t.Fatalf("ListByGuide ordering: %+v", ts)
	}
}

func RunSessionStore(t *testing.T, newStore SessionStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	id := domain.SessionID(uuid.NewString())
	if _, err := store.Get(ctx, id); !errors.Is(err, sessionstoreport.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want ErrNotFound", err)
	}

	sess := sessionstoreport.Session{
		ID:        id,
		GuideID:   "g1",
		Step:      domain.StepRoute,
		Tour:      sampleTour("", "g1", time.Unix(100, 0).UTC()),
		CreatedAt: time.Unix(100, 0).UTC(),
		UpdatedAt: time.Unix(200, 0).UTC(),
	}
	sess.Tour.Stops[0].Media[0].BlobKey = "drafts/x/y"
	if err := store.Put(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GuideID != "g1" || got.Step != domain.StepRoute || len(got.Tour.Stops) != 2 {
		t.Fatalf("Get=%+v", got)
	}
	if got.Tour.Stops[0].Media[0].BlobKey != "drafts/x/y" || !got.Tour.Stops[0].Media[0].DurationResolved {
		t.Fatalf("media=%+v", got.Tour.Stops[0].Media[0])
	}
	if !got.UpdatedAt.Equal(sess.UpdatedAt) {
		t.Fatalf("UpdatedAt=%v, want %v", got.UpdatedAt, sess.UpdatedAt)
	}

	sess.Step = domain.StepMedia
	if err := store.Put(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if got, err = store.Get(ctx, id); err != nil || got.Step != domain.StepMedia {
		t.Fatalf("after overwrite step=%v err=%v", got.Step, err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, sessionstoreport.ErrNotFound) {
		t.Fatalf("Get after Delete err=%v, want ErrNotFound", err)
	}
}

func RunBlobStore(t *testing.T, newStore BlobStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	key := "drafts/" + uuid.NewString() + "/m1"
	if _, err := store.Get(ctx, key); !errors.Is(err, blobstoreport.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want ErrNotFound", err)
	}
	data := []byte("ID3 fake audio")
	if err := store.Put(ctx, key, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data[0] = 'X'
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("ID3 fake audio")) {
		t.Fatalf("Get=%q", got)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, blobstoreport.ErrNotFound) {
		t.Fatalf("Get after Delete err=%v, want ErrNotFound", err)
	}
}
