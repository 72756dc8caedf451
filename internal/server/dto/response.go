package dto

import (
	apierrors "github.com/maruel/comicdb/internal/errors"
	"github.com/maruel/comicdb/internal/models"
	"github.com/maruel/comicdb/internal/storage"
	"github.com/maruel/comicdb/internal/storage/git"
)

// HealthResponse is the response of GET /api/v1/health.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Stats   storage.Stats `json:"stats"`
}

// ComicsResponse is a list of comics.
type ComicsResponse struct {
	Comics []models.Comic `json:"comics"`
	Total  int            `json:"total"`
}

// BulkCreateComicsResponse reports the outcome of a bulk add.
type BulkCreateComicsResponse struct {
	Comics  []models.Comic `json:"comics"`
	Added   int            `json:"added"`
	Skipped int            `json:"skipped"`
}

// DeleteComicResponse confirms a deletion.
type DeleteComicResponse struct {
	ID int `json:"id"`
}

// ExportResponse reports the written export file.
type ExportResponse struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// HistoryResponse lists data directory commits, newest first.
type HistoryResponse struct {
	Commits []*git.Commit `json:"commits"`
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorDetails holds the code and message of an error.
type ErrorDetails struct {
	Code    apierrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}
