// Package handlers maps API requests to Record Store operations.
package handlers

import (
	"context"
	"strings"

	"github.com/maruel/comicdb/internal/models"
	"github.com/maruel/comicdb/internal/server/dto"
	"github.com/maruel/comicdb/internal/storage"
)

// ComicHandler handles comic CRUD and search requests.
type ComicHandler struct {
	store *storage.Store
}

// NewComicHandler creates a new comic handler.
func NewComicHandler(store *storage.Store) *ComicHandler {
	return &ComicHandler{store: store}
}

// List returns every comic.
func (h *ComicHandler) List(ctx context.Context, req *dto.ListComicsRequest) (*dto.ComicsResponse, error) {
	comics := h.store.List()
	return &dto.ComicsResponse{Comics: comics, Total: len(comics)}, nil
}

// Get returns one comic.
func (h *ComicHandler) Get(ctx context.Context, req *dto.GetComicRequest) (*models.Comic, error) {
	c, err := h.store.Get(req.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create adds a comic.
func (h *ComicHandler) Create(ctx context.Context, req *dto.CreateComicRequest) (*models.Comic, error) {
	c, err := h.store.Add(ctx, req.Fields())
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// BulkCreate adds every complete comic of the request.
func (h *ComicHandler) BulkCreate(ctx context.Context, req *dto.BulkCreateComicsRequest) (*dto.BulkCreateComicsResponse, error) {
	added, err := h.store.BulkAdd(ctx, req.Comics)
	if err != nil {
		return nil, err
	}
	return &dto.BulkCreateComicsResponse{Comics: added, Added: len(added), Skipped: len(req.Comics) - len(added)}, nil
}

// Update applies a partial update.
func (h *ComicHandler) Update(ctx context.Context, req *dto.UpdateComicRequest) (*models.Comic, error) {
	c, err := h.store.Update(ctx, req.ID, req.Patch())
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Replace overwrites every field of a comic.
func (h *ComicHandler) Replace(ctx context.Context, req *dto.ReplaceComicRequest) (*models.Comic, error) {
	c, err := h.store.Update(ctx, req.ID, models.PatchFrom(req.Fields()))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a comic.
func (h *ComicHandler) Delete(ctx context.Context, req *dto.DeleteComicRequest) (*dto.DeleteComicResponse, error) {
	if err := h.store.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	return &dto.DeleteComicResponse{ID: req.ID}, nil
}

// Search returns the comics matching the query. Surrounding whitespace of the
// query is ignored.
func (h *ComicHandler) Search(ctx context.Context, req *dto.SearchRequest) (*dto.ComicsResponse, error) {
	comics := h.store.Search(strings.TrimSpace(req.Query))
	return &dto.ComicsResponse{Comics: comics, Total: len(comics)}, nil
}
