package itest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	fsblobstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/filesystem/blobstore"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/httpapi"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/mediaprobe"
	memblobstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/blobstore"
	memclock "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/idempotency"
	memsessionstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/sessionstore"
	memtourrepo "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/tourrepo"
	pgidempotency "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/postgres/testutil"
	pgtourrepo "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/postgres/tourrepo"
	redissessionstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/redis/sessionstore"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/restbackend"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/drafts"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tours"
	blobstoreport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/blobstore"
	idempotencyport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/idempotency"
	sessionstoreport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
	tourrepoport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/tourrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

// upstreamSubmission is what the fake tour backend saw in one multipart POST.
type upstreamSubmission struct {
	Tour  map[string]any
	Stops []map[string]any
	Files map[string][]string // part name -> file names
}

// fakeUpstream stands in for the external tour backend.
type fakeUpstream struct {
	mu          sync.Mutex
	submissions []upstreamSubmission
	tours       map[string]string
}

func (u *fakeUpstream) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/tours", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var sub upstreamSubmission
		if err := json.Unmarshal([]byte(req.FormValue("tour")), &sub.Tour); err != nil {
			http.Error(w, "bad tour part", http.StatusUnprocessableEntity)
			return
		}
		if err := json.Unmarshal([]byte(req.FormValue("stops")), &sub.Stops); err != nil {
			http.Error(w, "bad stops part", http.StatusUnprocessableEntity)
			return
		}
		sub.Files = map[string][]string{}
		for name, fhs := range req.MultipartForm.File {
			for _, fh := range fhs {
				sub.Files[name] = append(sub.Files[name], fh.Filename)
			}
		}
		u.mu.Lock()
		u.submissions = append(u.submissions, sub)
		n := len(u.submissions)
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 900 + n})
	})
	r.Get("/tours/{id}", func(w http.ResponseWriter, req *http.Request) {
		u.mu.Lock()
		body, ok := u.tours[chi.URLParam(req, "id")]
		u.mu.Unlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":`+body+`}`)
	})
	return r
}

func (u *fakeUpstream) received() []upstreamSubmission {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]upstreamSubmission(nil), u.submissions...)
}

type testServer struct {
	baseURL  string
	client   *http.Client
	upstream *fakeUpstream
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	var (
		tourRepo  tourrepoport.Repository
		sessions  sessionstoreport.Store
		blobs     blobstoreport.Store
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		tourRepo = pgtourrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		sessions = redissessionstore.NewStore(client)

		fs, err := fsblobstore.NewStore(t.TempDir())
		if err != nil {
			t.Fatalf("filesystem blobstore: %v", err)
		}
		blobs = fs
	case backendMemory:
		tourRepo = memtourrepo.NewRepo()
		sessions = memsessionstore.NewStore(clk)
		blobs = memblobstore.NewStore()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	up := &fakeUpstream{tours: map[string]string{}}
	upSrv := httptest.NewServer(up.handler())
	t.Cleanup(upSrv.Close)
	rest, err := restbackend.NewClient(upSrv.URL, 5*time.Second, log)
	if err != nil {
		t.Fatalf("restbackend: %v", err)
	}

	draftSvc := drafts.NewService(sessions, blobs, mediaprobe.New(log), tourRepo, clk, log, drafts.Config{})
	draftSvc.SetUpstream(rest)
	tourSvc := tours.NewService(draftSvc, tourRepo, blobs, rest, clk, log)
	api := httpapi.NewServer(draftSvc, tourSvc, idemStore, clk, log)

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: log})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL:  srv.URL,
		client:   srv.Client(),
		upstream: up,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) send(t *testing.T, req *http.Request, subject string, headers map[string]string) (int, []byte, http.Header) {
	t.Helper()
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, subject, headers)
}

func (s *testServer) upload(t *testing.T, path, subject, fileName string, data []byte) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.url(path), &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, body, _ := s.send(t, req, subject, nil)
	return status, body
}

// silentWAV builds a 16-bit mono PCM WAV of the given length. A low sample rate keeps
// uploads small while still exercising real duration extraction.
func silentWAV(t *testing.T, seconds int) []byte {
	t.Helper()
	const sampleRate = 800
	dataLen := sampleRate * 2 * seconds
	var b bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	b.WriteString("RIFF")
	w(uint32(36 + dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(1))
	w(uint32(sampleRate))
	w(uint32(sampleRate * 2))
	w(uint16(2))
	w(uint16(16))
	b.WriteString("data")
	w(uint32(dataLen))
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestId string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
