package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/maruel/comicdb/internal/server/dto"
	"github.com/maruel/comicdb/internal/storage"
)

// ExportHandler writes the combined collection as CSV.
type ExportHandler struct {
	store   *storage.Store
	dataDir string
}

// NewExportHandler creates a new export handler writing files into dataDir.
func NewExportHandler(store *storage.Store, dataDir string) *ExportHandler {
	return &ExportHandler{store: store, dataDir: dataDir}
}

// Export writes the collection to a file in the data directory.
func (h *ExportHandler) Export(ctx context.Context, req *dto.ExportRequest) (*dto.ExportResponse, error) {
	path := filepath.Join(h.dataDir, strings.TrimSpace(req.Name))
	n, err := h.store.Export(ctx, path)
	if err != nil {
		return nil, err
	}
	return &dto.ExportResponse{Path: path, Count: n}, nil
}

// Download streams the collection as a CSV attachment.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="comics_export.csv"`)
	if err := h.store.ExportTo(w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to stream export", "err", err)
	}
}
