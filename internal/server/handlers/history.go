package handlers

import (
	"context"

	apierrors "github.com/maruel/comicdb/internal/errors"
	"github.com/maruel/comicdb/internal/server/dto"
	"github.com/maruel/comicdb/internal/storage/git"
)

// HistoryHandler lists the commits of the delta file.
type HistoryHandler struct {
	repo *git.Repo
	path string
}

// NewHistoryHandler creates a history handler for path. repo may be nil when
// history is disabled.
func NewHistoryHandler(repo *git.Repo, path string) *HistoryHandler {
	return &HistoryHandler{repo: repo, path: path}
}

// History returns the most recent commits, newest first.
func (h *HistoryHandler) History(ctx context.Context, req *dto.HistoryRequest) (*dto.HistoryResponse, error) {
	if h.repo == nil {
		return nil, apierrors.NotFound("history")
	}
	commits, err := h.repo.History(ctx, h.path, req.Limit)
	if err != nil {
		return nil, apierrors.Internal("failed to read history", err)
	}
	return &dto.HistoryResponse{Commits: commits}, nil
}
