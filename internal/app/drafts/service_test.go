package drafts_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	memblobstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/blobstore"
	memclock "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/clock"
	memsessionstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/sessionstore"
	memtourrepo "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/tourrepo"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/drafts"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tourform"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/publisher"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeProber treats the file body as the duration in seconds. Bodies listed in block wait
// for their channel (or ctx) before answering.
type fakeProber struct {
	mu      sync.Mutex
	started chan string
	block   map[string]chan struct{}
}

func (p *fakeProber) Sniff(fileName string, _ []byte) (domain.MediaType, string, bool) {
	switch filepath.Ext(fileName) {
	case ".mp3":
		return domain.MediaTypeAudio, "audio/mpeg", true
	case ".jpg":
		return domain.MediaTypeImage, "image/jpeg", true
	}
	return "", "", false
}

func (p *fakeProber) DurationSeconds(ctx context.Context, _ string, data []byte) int {
	body := string(data)
	p.mu.Lock()
	ch := p.block[body]
	p.mu.Unlock()
	if p.started != nil {
		p.started <- body
	}
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return 0
		}
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return 0
	}
	return n
}

type fixture struct {
	svc   *drafts.Service
	tours *memtourrepo.Repo
	blobs *memblobstore.Store
	clk   *memclock.ManualClock
}

func newFixture(t *testing.T, prober *fakeProber, cfg drafts.Config) fixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	tours := memtourrepo.NewRepo()
	blobs := memblobstore.NewStore()
	if prober == nil {
		prober = &fakeProber{}
	}
	svc := drafts.NewService(memsessionstore.NewStore(clk), blobs, prober, tours, clk, zap.NewNop(), cfg)
	n := 0
	svc.SetNewIDsForTest(func() domain.SessionID { return "s1" }, func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
	return fixture{svc: svc, tours: tours, blobs: blobs, clk: clk}
}

func located(lat, lng float64) *domain.Location {
	return &domain.Location{Point: domain.GeoPoint{Latitude: lat, Longitude: lng}}
}

func wantAppError(t *testing.T, err error, status int, code string) *drafts.Error {
	t.Helper()
	var ae *drafts.Error
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v, want *drafts.Error", err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("err=%d/%s, want %d/%s", ae.Status, ae.Code, status, code)
	}
	return ae
}

func TestService_SessionLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	ctx := context.Background()

	v, err := f.svc.CreateSession(ctx, "g1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if v.SessionID != "s1" || v.Step != domain.StepBasicInfo {
		t.Fatalf("view=%+v", v)
	}

	if _, err := f.svc.AdvanceStep(ctx, "g1", "s1"); err == nil {
		t.Fatalf("AdvanceStep without basic info should fail")
	} else {
		ae := wantAppError(t, err, 409, "STEP_INCOMPLETE")
		if ae.Details["step"] != "BASIC_INFO" {
			t.Fatalf("details=%v", ae.Details)
		}
	}

	if _, err := f.svc.SetBasicInfo(ctx, "g1", "s1", "  Fort   Walk ", "Old town"); err != nil {
		t.Fatalf("SetBasicInfo: %v", err)
	}
	v, err = f.svc.AdvanceStep(ctx, "g1", "s1")
	if err != nil {
		t.Fatalf("AdvanceStep: %v", err)
	}
	if v.Step != domain.StepRoute || v.Tour.Title != "Fort Walk" {
		t.Fatalf("view=%+v", v)
	}

	if _, err := f.svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "A", Location: located(6.9271, 79.8612)}); err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	v, err = f.svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "B", Location: located(6.9344, 79.8428)})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	if len(v.Tour.Stops) != 2 || v.Tour.Stops[1].SequenceNo != 2 {
		t.Fatalf("stops=%+v", v.Tour.Stops)
	}
	if len(v.Warnings) != 2 {
		t.Fatalf("warnings=%+v", v.Warnings)
	}

	if _, err := f.svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "C", Location: located(-91, 0)}); err == nil {
		t.Fatalf("AddStop with invalid coordinates should fail")
	} else {
		wantAppError(t, err, 422, "VALIDATION_ERROR")
	}

	v, err = f.svc.ReorderStops(ctx, "g1", "s1", []domain.StopID{v.Tour.Stops[1].ID, v.Tour.Stops[0].ID})
	if err != nil {
		t.Fatalf("ReorderStops: %v", err)
	}
	if v.Tour.Stops[0].Name != "B" || v.Tour.Stops[0].SequenceNo != 1 {
		t.Fatalf("stops=%+v", v.Tour.Stops)
	}

	if _, err := f.svc.ReorderStops(ctx, "g1", "s1", []domain.StopID{v.Tour.Stops[0].ID}); err == nil {
		t.Fatalf("partial reorder should fail")
	} else {
		wantAppError(t, err, 422, "VALIDATION_ERROR")
	}

	v, err = f.svc.BackStep(ctx, "g1", "s1")
	if err != nil {
		t.Fatalf("BackStep: %v", err)
	}
	if v.Step != domain.StepBasicInfo {
		t.Fatalf("step=%s", v.Step)
	}
}

func TestService_ForeignAndMissingSessionsAreNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	_, err := f.svc.GetState(ctx, "g2", "s1")
	wantAppError(t, err, 404, "DRAFT_NOT_FOUND")
	_, err = f.svc.SetBasicInfo(ctx, "g2", "s1", "x", "y")
	wantAppError(t, err, 404, "DRAFT_NOT_FOUND")
	_, err = f.svc.GetState(ctx, "g1", "nope")
	wantAppError(t, err, 404, "DRAFT_NOT_FOUND")
}

func TestService_SessionExpires(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{SessionTTL: time.Hour})
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	f.clk.Advance(30 * time.Minute)
	if _, err := f.svc.SetBasicInfo(ctx, "g1", "s1", "x", "y"); err != nil {
		t.Fatalf("SetBasicInfo: %v", err)
	}
	f.clk.Advance(59 * time.Minute)
	if _, err := f.svc.GetState(ctx, "g1", "s1"); err != nil {
		t.Fatalf("GetState within refreshed ttl: %v", err)
	}
	f.clk.Advance(2 * time.Minute)
	_, err := f.svc.GetState(ctx, "g1", "s1")
	wantAppError(t, err, 404, "DRAFT_NOT_FOUND")
}

func TestService_UploadMedia_ExtractsDurations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	v, err := f.svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "A", Location: located(0, 0)})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	stopID := v.Tour.Stops[0].ID

	v, err = f.svc.UploadMedia(ctx, "g1", "s1", stopID, []drafts.Upload{
		{FileName: "intro.mp3", Data: []byte("90")},
		{FileName: "cover.jpg", Data: []byte("jpeg")},
		{FileName: "more.mp3", Data: []byte("45")},
	})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if v.Quote.TotalAudioSeconds != 135 || v.Quote.DurationMinutes != 3 {
		t.Fatalf("quote=%+v", v.Quote)
	}
	if len(v.PendingMedia) != 0 {
		t.Fatalf("pending=%v", v.PendingMedia)
	}
	media := v.Tour.Stops[0].Media
	if len(media) != 3 || media[1].Type != domain.MediaTypeImage || media[0].FileType != "audio/mpeg" || media[0].FileSize != 2 {
		t.Fatalf("media=%+v", media)
	}
	if f.blobs.Len() != 3 {
		t.Fatalf("blobs=%d, want 3", f.blobs.Len())
	}

	_, err = f.svc.UploadMedia(ctx, "g1", "s1", stopID, []drafts.Upload{{FileName: "notes.txt", Data: []byte("hi")}})
	wantAppError(t, err, 422, "VALIDATION_ERROR")
	_, err = f.svc.UploadMedia(ctx, "g1", "s1", "missing", []drafts.Upload{{FileName: "a.mp3", Data: []byte("1")}})
	wantAppError(t, err, 404, "STOP_NOT_FOUND")
}

func TestService_UploadMedia_TimeoutFallsBackToZero(t *testing.T) {
	t.Parallel()

	p := &fakeProber{block: map[string]chan struct{}{"600": make(chan struct{})}}
	f := newFixture(t, p, drafts.Config{ProbeTimeout: 20 * time.Millisecond})
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	v, err := f.svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "A"})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}

	v, err = f.svc.UploadMedia(ctx, "g1", "s1", v.Tour.Stops[0].ID, []drafts.Upload{
		{FileName: "slow.mp3", Data: []byte("600")},
		{FileName: "fast.mp3", Data: []byte("30")},
	})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	media := v.Tour.Stops[0].Media
	if !media[0].DurationResolved || media[0].DurationSeconds != 0 {
		t.Fatalf("slow media=%+v, want resolved with 0", media[0])
	}
	if media[1].DurationSeconds != 30 {
		t.Fatalf("fast media=%+v", media[1])
	}
}

func TestService_UploadMedia_DiscardsResultForRemovedItem(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := &fakeProber{
		started: make(chan string, 1),
		block:   map[string]chan struct{}{"300": release},
	}
	f := newFixture(t, p, drafts.Config{})
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	v, err := f.svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "A"})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	stopID := v.Tour.Stops[0].ID

	type result struct {
		view tourform.View
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v, err := f.svc.UploadMedia(ctx, "g1", "s1", stopID, []drafts.Upload{{FileName: "long.mp3", Data: []byte("300")}})
		done <- result{v, err}
	}()

	<-p.started
	state, err := f.svc.GetState(ctx, "g1", "s1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.PendingMedia) != 1 {
		t.Fatalf("pending=%v, want one item while probing", state.PendingMedia)
	}
	mediaID := state.PendingMedia[0]
	if _, err := f.svc.RemoveMedia(ctx, "g1", "s1", stopID, mediaID); err != nil {
		t.Fatalf("RemoveMedia: %v", err)
	}
	close(release)

	res := <-done
	if res.err != nil {
		t.Fatalf("UploadMedia: %v", res.err)
	}
	m := res.view.Tour.Stops[0].Media[0]
	if !m.Deleted || m.DurationResolved || m.DurationSeconds != 0 {
		t.Fatalf("media=%+v, want deleted and unresolved", m)
	}
	if res.view.Quote.TotalAudioSeconds != 0 {
		t.Fatalf("quote=%+v", res.view.Quote)
	}
}

// ctxSessions rejects writes on a cancelled context, as network-backed stores do.
type ctxSessions struct {
	*memsessionstore.Store
}

func (s ctxSessions) Put(ctx context.Context, sess sessionstore.Session, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Put(ctx, sess, ttl)
}

func TestService_UploadMedia_ResolvesAfterClientCancels(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := &fakeProber{
		started: make(chan string, 1),
		block:   map[string]chan struct{}{"75": release},
	}
	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	svc := drafts.NewService(ctxSessions{memsessionstore.NewStore(clk)}, memblobstore.NewStore(), p, memtourrepo.NewRepo(), clk, zap.NewNop(), drafts.Config{})
	svc.SetNewIDsForTest(func() domain.SessionID { return "s1" }, nil)

	bg := context.Background()
	if _, err := svc.CreateSession(bg, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	v, err := svc.AddStop(bg, "g1", "s1", drafts.StopInput{Name: "A"})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}

	ctx, cancel := context.WithCancel(bg)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.UploadMedia(ctx, "g1", "s1", v.Tour.Stops[0].ID, []drafts.Upload{{FileName: "walk.mp3", Data: []byte("75")}})
	}()
	<-p.started
	cancel()
	close(release)
	<-done

	state, err := svc.GetState(bg, "g1", "s1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.PendingMedia) != 0 {
		t.Fatalf("pending=%v, want none", state.PendingMedia)
	}
	if m := state.Tour.Stops[0].Media[0]; !m.DurationResolved || m.DurationSeconds != 75 {
		t.Fatalf("media=%+v, want resolved with 75", m)
	}
}

// failingBlobs fails the Put with the given 1-based index.
type failingBlobs struct {
	*memblobstore.Store
	mu     sync.Mutex
	puts   int
	failAt int
}

func (b *failingBlobs) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	b.puts++
	n := b.puts
	b.mu.Unlock()
	if n == b.failAt {
		return errors.New("disk full")
	}
	return b.Store.Put(ctx, key, data)
}

func TestService_UploadMedia_FailedBatchLeavesNoBlobs(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	blobs := &failingBlobs{Store: memblobstore.NewStore(), failAt: 2}
	svc := drafts.NewService(memsessionstore.NewStore(clk), blobs, &fakeProber{}, memtourrepo.NewRepo(), clk, zap.NewNop(), drafts.Config{})
	svc.SetNewIDsForTest(func() domain.SessionID { return "s1" }, nil)

	ctx := context.Background()
	if _, err := svc.CreateSession(ctx, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	v, err := svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "A"})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}

	_, err = svc.UploadMedia(ctx, "g1", "s1", v.Tour.Stops[0].ID, []drafts.Upload{
		{FileName: "a.mp3", Data: []byte("10")},
		{FileName: "b.mp3", Data: []byte("20")},
	})
	if err == nil {
		t.Fatalf("UploadMedia: want error")
	}
	if blobs.Len() != 0 {
		t.Fatalf("blobs=%d, want 0", blobs.Len())
	}
	state, err := svc.GetState(ctx, "g1", "s1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.Tour.Stops[0].Media) != 0 {
		t.Fatalf("media=%+v, want none", state.Tour.Stops[0].Media)
	}
}

func TestService_ImportTour_NormalizesMediaShapes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	raw := []byte(`{
		"id": 42,
		"title": "Kandy Lake Loop",
		"description": "Around the lake",
		"tour_stops": [
			{"id": 2, "sequence_no": 5, "stop_name": "Temple",
			 "location": {"latitude": 7.2936, "longitude": 80.6413},
			 "media": [{"id": 9, "media": {"media_type": "audio", "duration_seconds": 120, "url": "https://cdn/x.mp3"}}]},
			{"id": 1, "sequence_no": 2, "stop_name": "Queens Hotel",
			 "location": {"latitude": 7.2931, "longitude": 80.6350},
			 "media": [{"id": 8, "media_type": "audio", "duration_seconds": 200}, {"media_type": "image"}]}
		]
	}`)

	v, err := f.svc.ImportTour(context.Background(), "g1", raw)
	if err != nil {
		t.Fatalf("ImportTour: %v", err)
	}
	if v.EditingTourID != "42" || v.Tour.GuideID != "g1" {
		t.Fatalf("view=%+v", v)
	}
	stops := v.Tour.Stops
	if stops[0].Name != "Queens Hotel" || stops[0].SequenceNo != 1 || stops[1].SequenceNo != 2 {
		t.Fatalf("stops=%+v", stops)
	}
	if stops[0].Media[1].ID == "" {
		t.Fatalf("expected generated media id")
	}
	if v.Quote.TotalAudioSeconds != 320 {
		t.Fatalf("quote=%+v", v.Quote)
	}

	_, err = f.svc.ImportTour(context.Background(), "g1", []byte(`{"tour_stops":[{"media":[{"media_type":"video"}]}]}`))
	wantAppError(t, err, 422, "VALIDATION_ERROR")
}

func TestService_ImportTour_ReplacesRepeatedIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	ctx := context.Background()
	raw := []byte(`{"tour_stops": [
		{"id": 5, "sequence_no": 1, "stop_name": "A", "media": [{"id": 3, "media_type": "audio", "duration_seconds": 10}]},
		{"id": 5, "sequence_no": 2, "stop_name": "B", "media": [{"id": 3, "media_type": "audio", "duration_seconds": 20}]},
		{"id": 5, "sequence_no": 3, "stop_name": "C"}
	]}`)

	v, err := f.svc.ImportTour(ctx, "g1", raw)
	if err != nil {
		t.Fatalf("ImportTour: %v", err)
	}
	stops := v.Tour.Stops
	if stops[0].ID != "5" || stops[1].ID != "id1" || stops[2].ID != "id3" {
		t.Fatalf("stop ids=%q,%q,%q", stops[0].ID, stops[1].ID, stops[2].ID)
	}
	if stops[0].Media[0].ID != "3" || stops[1].Media[0].ID != "id2" {
		t.Fatalf("media ids=%q,%q", stops[0].Media[0].ID, stops[1].Media[0].ID)
	}

	v, err = f.svc.ReorderStops(ctx, "g1", "s1", []domain.StopID{stops[2].ID, stops[1].ID, stops[0].ID})
	if err != nil {
		t.Fatalf("ReorderStops: %v", err)
	}
	if v.Tour.Stops[0].Name != "C" || v.Tour.Stops[2].Name != "A" {
		t.Fatalf("reordered=%+v", v.Tour.Stops)
	}
	v, err = f.svc.DeleteStop(ctx, "g1", "s1", stops[1].ID)
	if err != nil {
		t.Fatalf("DeleteStop: %v", err)
	}
	if len(v.Tour.Stops) != 2 || v.Tour.Stops[0].Name != "C" || v.Tour.Stops[1].Name != "A" {
		t.Fatalf("after delete=%+v", v.Tour.Stops)
	}
}

func TestService_OpenForEdit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	ctx := context.Background()
	if err := f.tours.Create(ctx, domain.TourPackage{
		ID:      "t1",
		GuideID: "g1",
		Title:   "Existing",
		Status:  domain.TourStatusApproved,
		Stops:   []domain.Stop{{ID: "a", SequenceNo: 1, Name: "A"}},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	v, err := f.svc.OpenForEdit(ctx, "g1", "t1")
	if err != nil {
		t.Fatalf("OpenForEdit: %v", err)
	}
	if v.EditingTourID != "t1" || v.Tour.Title != "Existing" || len(v.Tour.Stops) != 1 {
		t.Fatalf("view=%+v", v)
	}

	_, err = f.svc.OpenForEdit(ctx, "g2", "t1")
	wantAppError(t, err, 404, "TOUR_NOT_FOUND")
	_, err = f.svc.OpenForEdit(ctx, "g1", "t-missing")
	wantAppError(t, err, 404, "TOUR_NOT_FOUND")
}

type fakeFetcher map[domain.TourID]string

func (f fakeFetcher) FetchTour(_ context.Context, id domain.TourID) (json.RawMessage, error) {
	raw, ok := f[id]
	if !ok {
		return nil, publisher.ErrNotFound
	}
	if raw == "" {
		return nil, errors.New("connection refused")
	}
	return json.RawMessage(raw), nil
}

func TestService_OpenForEdit_Upstream(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	f.svc.SetUpstream(fakeFetcher{
		"42":  `{"id":42,"guide_id":"g1","title":"Harbour Loop","tour_stops":[{"stop_name":"Pier","sequence_no":1,"media":[{"media":{"media_type":"audio","duration_seconds":60}}]}]}`,
		"43":  `{"id":43,"guide_id":"g2","title":"Foreign"}`,
		"bad": ``,
	})
	ctx := context.Background()

	v, err := f.svc.OpenForEdit(ctx, "g1", "42")
	if err != nil {
		t.Fatalf("OpenForEdit: %v", err)
	}
	if v.EditingTourID != "42" || v.Tour.Title != "Harbour Loop" || len(v.Tour.Stops) != 1 || v.Tour.Stops[0].ID == "" {
		t.Fatalf("view=%+v", v)
	}

	_, err = f.svc.OpenForEdit(ctx, "g1", "43")
	wantAppError(t, err, 404, "TOUR_NOT_FOUND")
	_, err = f.svc.OpenForEdit(ctx, "g1", "44")
	wantAppError(t, err, 404, "TOUR_NOT_FOUND")
	_, err = f.svc.OpenForEdit(ctx, "g1", "bad")
	wantAppError(t, err, 502, "UPSTREAM_ERROR")
}

func TestService_Finish_DeletesSessionAndBlobs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, drafts.Config{})
	ctx := context.Background()
	if _, err := f.svc.CreateSession(ctx, "g1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	v, err := f.svc.AddStop(ctx, "g1", "s1", drafts.StopInput{Name: "A"})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	if _, err := f.svc.UploadMedia(ctx, "g1", "s1", v.Tour.Stops[0].ID, []drafts.Upload{{FileName: "a.mp3", Data: []byte("10")}}); err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}

	sentinel := errors.New("boom")
	if err := f.svc.Finish(ctx, "g1", "s1", func(*tourform.Controller) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("Finish err=%v, want sentinel", err)
	}
	if _, err := f.svc.GetState(ctx, "g1", "s1"); err != nil {
		t.Fatalf("failed Finish must keep the session: %v", err)
	}

	if err := f.svc.Finish(ctx, "g1", "s1", func(*tourform.Controller) error { return nil }); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	_, err = f.svc.GetState(ctx, "g1", "s1")
	wantAppError(t, err, 404, "DRAFT_NOT_FOUND")
	if f.blobs.Len() != 0 {
		t.Fatalf("blobs=%d, want 0", f.blobs.Len())
	}
}
