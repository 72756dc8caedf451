// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/comicdb/internal/server/handlers"
	"github.com/maruel/comicdb/internal/server/metrics"
	"github.com/maruel/comicdb/internal/server/ratelimit"
	"github.com/maruel/comicdb/internal/storage"
	"github.com/maruel/comicdb/internal/storage/git"
)

// Config configures the router.
type Config struct {
	Version string
	// DataDir is where POST /api/v1/export writes files.
	DataDir string
	// History, when set, receives a commit of the delta file after every
	// mutating request.
	History *git.Repo
	// RateLimits is nil when rate limiting is disabled.
	RateLimits *ratelimit.Config
	// Metrics, when set, records every request and is served at /metrics.
	Metrics *metrics.Metrics
	// MaxRequestBodyBytes limits JSON request bodies. Zero means no limit.
	MaxRequestBodyBytes int64

	deltaPath string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(store *storage.Store, cfg Config) http.Handler {
	cfg.deltaPath = store.DeltaPath()
	c := &cfg
	mux := &http.ServeMux{}

	hh := handlers.NewHealthHandler(store, cfg.Version)
	ch := handlers.NewComicHandler(store)
	eh := handlers.NewExportHandler(store, cfg.DataDir)
	histh := handlers.NewHistoryHandler(cfg.History, cfg.deltaPath)

	mux.Handle("GET /api/v1/health", Wrap(hh.Health, c))

	mux.Handle("GET /api/v1/comics", Wrap(ch.List, c))
	mux.Handle("POST /api/v1/comics", Wrap(ch.Create, c))
	mux.Handle("POST /api/v1/comics/bulk", Wrap(ch.BulkCreate, c))
	mux.Handle("GET /api/v1/comics/{id}", Wrap(ch.Get, c))
	mux.Handle("PATCH /api/v1/comics/{id}", Wrap(ch.Update, c))
	mux.Handle("PUT /api/v1/comics/{id}", Wrap(ch.Replace, c))
	mux.Handle("DELETE /api/v1/comics/{id}", Wrap(ch.Delete, c))
	mux.Handle("GET /api/v1/search", Wrap(ch.Search, c))

	mux.Handle("GET /api/v1/export", WrapRaw(eh.Download, c))
	mux.Handle("POST /api/v1/export", Wrap(eh.Export, c))

	mux.Handle("GET /api/v1/history", Wrap(histh.History, c))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	return LoggingMiddleware(cfg.Metrics.Middleware(mux))
}
