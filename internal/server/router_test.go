package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apierrors "github.com/maruel/comicdb/internal/errors"
	"github.com/maruel/comicdb/internal/models"
	"github.com/maruel/comicdb/internal/server/dto"
	"github.com/maruel/comicdb/internal/server/metrics"
	"github.com/maruel/comicdb/internal/server/ratelimit"
	"github.com/maruel/comicdb/internal/storage"
	"github.com/maruel/comicdb/internal/storage/git"
)

const testSeed = `title,volume,writer,artist
Watchmen,1,Moore,Gibbons
Saga,1,Vaughan,Staples
`

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *storage.Store
	dir     string
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "Comics.csv")
	if err := os.WriteFile(seed, []byte(testSeed), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.Open(t.Context(), storage.Options{SeedPath: seed, DeltaPath: filepath.Join(dir, "comics.jsonl")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	cfg := Config{Version: "test", DataDir: dir}
	if mutate != nil {
		mutate(&cfg)
	}
	return &testServer{t: t, handler: NewRouter(store, cfg), store: store, dir: dir}
}

// do sends a request and decodes the JSON response into out when not nil.
func (s *testServer) do(method, path, body string, out any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: invalid JSON %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	var resp dto.HealthResponse
	w := s.do("GET", "/api/v1/health", "", &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp.Status != "ok" || resp.Version != "test" || resp.Stats.Total != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestComicsCRUD(t *testing.T) {
	s := newTestServer(t, nil)

	var list dto.ComicsResponse
	s.do("GET", "/api/v1/comics", "", &list)
	if list.Total != 2 || list.Comics[0].Title != "Watchmen" {
		t.Fatalf("list = %+v", list)
	}

	var created models.Comic
	w := s.do("POST", "/api/v1/comics", `{"title":" Hellboy ","writer":"Mignola","artist":"Mignola"}`, &created)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body)
	}
	if created.ID != 3 || created.Title != "Hellboy" || created.Volume != "" {
		t.Errorf("created = %+v", created)
	}

	var got models.Comic
	if w := s.do("GET", "/api/v1/comics/3", "", &got); w.Code != http.StatusOK || got != created {
		t.Errorf("get = %d %+v", w.Code, got)
	}

	var patched models.Comic
	w = s.do("PATCH", "/api/v1/comics/1", `{"volume":"Deluxe"}`, &patched)
	want := models.Comic{ID: 1, Title: "Watchmen", Volume: "Deluxe", Writer: "Moore", Artist: "Gibbons"}
	if w.Code != http.StatusOK || patched != want {
		t.Errorf("patch = %d %+v", w.Code, patched)
	}

	var replaced models.Comic
	w = s.do("PUT", "/api/v1/comics/2", `{"title":"Saga","writer":"Vaughan","artist":"Fiona Staples"}`, &replaced)
	want = models.Comic{ID: 2, Title: "Saga", Writer: "Vaughan", Artist: "Fiona Staples"}
	if w.Code != http.StatusOK || replaced != want {
		t.Errorf("put = %d %+v", w.Code, replaced)
	}

	var deleted dto.DeleteComicResponse
	if w := s.do("DELETE", "/api/v1/comics/1", "", &deleted); w.Code != http.StatusOK || deleted.ID != 1 {
		t.Errorf("delete = %d %+v", w.Code, deleted)
	}
	if w := s.do("GET", "/api/v1/comics/1", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d", w.Code)
	}
	if s.store.Len() != 2 {
		t.Errorf("store has %d comics, want 2", s.store.Len())
	}
}

func TestErrors(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name, method, path, body string
		status                   int
		code                     apierrors.ErrorCode
	}{
		{"missing field", "POST", "/api/v1/comics", `{"title":"A","writer":"B"}`, http.StatusBadRequest, apierrors.ErrMissingField},
		{"blank patch", "PATCH", "/api/v1/comics/1", `{"title":"  "}`, http.StatusBadRequest, apierrors.ErrMissingField},
		{"unknown field", "POST", "/api/v1/comics", `{"name":"A"}`, http.StatusBadRequest, apierrors.ErrInvalidFormat},
		{"bad id", "GET", "/api/v1/comics/abc", "", http.StatusBadRequest, apierrors.ErrInvalidFormat},
		{"zero id", "DELETE", "/api/v1/comics/0", "", http.StatusBadRequest, apierrors.ErrInvalidFormat},
		{"not found", "GET", "/api/v1/comics/99", "", http.StatusNotFound, apierrors.ErrNotFound},
		{"update not found", "PATCH", "/api/v1/comics/99", `{"title":"x"}`, http.StatusNotFound, apierrors.ErrNotFound},
		{"delete not found", "DELETE", "/api/v1/comics/99", "", http.StatusNotFound, apierrors.ErrNotFound},
		{"bulk without list", "POST", "/api/v1/comics/bulk", `{}`, http.StatusBadRequest, apierrors.ErrMissingField},
		{"export path", "POST", "/api/v1/export", `{"name":"../x.csv"}`, http.StatusBadRequest, apierrors.ErrInvalidFormat},
		{"history disabled", "GET", "/api/v1/history", "", http.StatusNotFound, apierrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp dto.ErrorResponse
			w := s.do(tt.method, tt.path, tt.body, &resp)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
		})
	}
}

func TestPersistenceError(t *testing.T) {
	s := newTestServer(t, nil)
	// A directory in place of the delta file makes every flush fail.
	if err := os.Mkdir(s.store.DeltaPath(), 0o755); err != nil {
		t.Fatal(err)
	}
	var resp dto.ErrorResponse
	w := s.do("POST", "/api/v1/comics", `{"title":"A","writer":"B","artist":"C"}`, &resp)
	if w.Code != http.StatusInternalServerError || resp.Error.Code != apierrors.ErrStorageError {
		t.Errorf("got %d %+v", w.Code, resp)
	}
	// The comic is still served from memory.
	if w := s.do("GET", "/api/v1/comics/3", "", nil); w.Code != http.StatusOK {
		t.Errorf("get = %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, nil)
	var resp dto.ComicsResponse
	s.do("GET", "/api/v1/search?q=+MOORE+", "", &resp)
	if resp.Total != 1 || resp.Comics[0].Title != "Watchmen" {
		t.Errorf("search = %+v", resp)
	}
	s.do("GET", "/api/v1/search", "", &resp)
	if resp.Total != 2 {
		t.Errorf("empty search = %+v", resp)
	}
}

func TestBulkCreate(t *testing.T) {
	s := newTestServer(t, nil)
	var resp dto.BulkCreateComicsResponse
	body := `{"comics":[{"title":"A","writer":"B","artist":"C"},{"title":"D"},{"title":"E","volume":"2","writer":"F","artist":"G"}]}`
	if w := s.do("POST", "/api/v1/comics/bulk", body, &resp); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	if resp.Added != 2 || resp.Skipped != 1 || resp.Comics[0].ID != 3 || resp.Comics[1].ID != 4 {
		t.Errorf("bulk = %+v", resp)
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do("GET", "/api/v1/export", "", nil)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	want := "id,title,volume,writer,artist\n1,Watchmen,1,Moore,Gibbons\n2,Saga,1,Vaughan,Staples\n"
	if w.Body.String() != want {
		t.Errorf("download = %q", w.Body.String())
	}

	var resp dto.ExportResponse
	if w := s.do("POST", "/api/v1/export", `{"name":"out.csv"}`, &resp); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	if resp.Count != 2 || resp.Path != filepath.Join(s.dir, "out.csv") {
		t.Errorf("export = %+v", resp)
	}
	data, err := os.ReadFile(resp.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte(want)) {
		t.Errorf("file = %q", data)
	}
}

func TestHistory(t *testing.T) {
	var repo *git.Repo
	s := newTestServer(t, func(cfg *Config) {
		r, err := git.Open(t.Context(), cfg.DataDir, "", "")
		if err != nil {
			t.Fatal(err)
		}
		repo = r
		cfg.History = r
	})
	s.do("POST", "/api/v1/comics", `{"title":"A","writer":"B","artist":"C"}`, nil)
	s.do("DELETE", "/api/v1/comics/1", "", nil)
	// Rejected before reaching the store: nothing to commit.
	s.do("POST", "/api/v1/comics", `{"title":"A"}`, nil)

	var resp dto.HistoryResponse
	if w := s.do("GET", "/api/v1/history", "", &resp); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	if len(resp.Commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(resp.Commits))
	}
	if resp.Commits[0].Message != "DELETE /api/v1/comics/1" || resp.Commits[1].Message != "POST /api/v1/comics" {
		t.Errorf("commits = %+v %+v", resp.Commits[0], resp.Commits[1])
	}
	if repo.Dir() == "" {
		t.Error("empty repo dir")
	}
}

func TestHistoryRelativeDataDir(t *testing.T) {
	t.Chdir(t.TempDir())
	ctx := t.Context()
	store, err := storage.Open(ctx, storage.Options{DeltaPath: filepath.Join("data", "comics.jsonl")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	repo, err := git.Open(ctx, "data", "", "")
	if err != nil {
		t.Fatal(err)
	}
	s := &testServer{t: t, handler: NewRouter(store, Config{DataDir: "data", History: repo}), store: store, dir: "data"}
	s.do("POST", "/api/v1/comics", `{"title":"A","writer":"B","artist":"C"}`, nil)

	var resp dto.HistoryResponse
	if w := s.do("GET", "/api/v1/history", "", &resp); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	if len(resp.Commits) != 1 || resp.Commits[0].Message != "POST /api/v1/comics" {
		t.Errorf("commits = %+v", resp.Commits)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *Config) {
		// Burst of one write per client.
		cfg.RateLimits = ratelimit.NewConfig(6)
		t.Cleanup(cfg.RateLimits.Close)
	})
	body := `{"title":"A","writer":"B","artist":"C"}`
	if w := s.do("POST", "/api/v1/comics", body, nil); w.Code != http.StatusOK {
		t.Fatalf("first write = %d", w.Code)
	}
	var resp dto.ErrorResponse
	w := s.do("POST", "/api/v1/comics", body, &resp)
	if w.Code != http.StatusTooManyRequests || resp.Error.Code != apierrors.ErrRateLimitExceeded {
		t.Errorf("second write = %d %+v", w.Code, resp)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if w := s.do("GET", "/api/v1/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health must not be limited: %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	s.handler = NewRouter(s.store, Config{DataDir: s.dir, Metrics: metrics.New(s.store)})

	s.do("GET", "/api/v1/comics/1", "", nil)
	s.do("DELETE", "/api/v1/comics/2", "", nil)
	s.do("GET", "/api/v1/comics/99", "", nil)

	w := s.do("GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`comicdb_http_requests_total{code="200",route="GET /api/v1/comics/{id}"} 1`,
		`comicdb_http_requests_total{code="404",route="GET /api/v1/comics/{id}"} 1`,
		`comicdb_http_requests_total{code="200",route="DELETE /api/v1/comics/{id}"} 1`,
		`comicdb_comics{source="seed"} 1`,
		`comicdb_tombstones 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}
