package handlers

import (
	"context"

	"github.com/maruel/comicdb/internal/server/dto"
	"github.com/maruel/comicdb/internal/storage"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	store   *storage.Store
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store *storage.Store, version string) *HealthHandler {
	return &HealthHandler{store: store, version: version}
}

// Health handles health check requests.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Stats:   h.store.Stats(),
	}, nil
}
