package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maruel/comicdb/internal/storage"
)

type fixedStats storage.Stats

func (f fixedStats) Stats() storage.Stats { return storage.Stats(f) }

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMiddleware(t *testing.T) {
	m := New(fixedStats{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/comics/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)
	for _, path := range []string{"/api/v1/comics/1", "/api/v1/comics/2", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	out := scrape(t, m)
	for _, want := range []string{
		`comicdb_http_requests_total{code="404",route="GET /api/v1/comics/{id}"} 2`,
		`comicdb_http_requests_total{code="404",route="unmatched"} 1`,
		`comicdb_http_request_duration_seconds_count{route="GET /api/v1/comics/{id}"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMiddlewareNil(t *testing.T) {
	var m *Metrics
	h := http.NotFoundHandler()
	if got := m.Middleware(h); got == nil {
		t.Fatal("nil Metrics must return the handler")
	}
}

func TestStoreCollector(t *testing.T) {
	m := New(fixedStats{Total: 6, Seed: 3, Promoted: 1, Added: 2, Tombstones: 4})
	out := scrape(t, m)
	for _, want := range []string{
		`comicdb_comics{source="seed"} 3`,
		`comicdb_comics{source="promoted"} 1`,
		`comicdb_comics{source="added"} 2`,
		`comicdb_tombstones 4`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
