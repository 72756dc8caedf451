package dto

import (
	"strings"

	apierrors "github.com/maruel/comicdb/internal/errors"
	"github.com/maruel/comicdb/internal/models"
)

// HealthRequest is the request for GET /api/v1/health.
type HealthRequest struct{}

// Validate implements Validatable.
func (r *HealthRequest) Validate() error { return nil }

// ListComicsRequest is the request for GET /api/v1/comics.
type ListComicsRequest struct{}

// Validate implements Validatable.
func (r *ListComicsRequest) Validate() error { return nil }

// GetComicRequest is the request for GET /api/v1/comics/{id}.
type GetComicRequest struct {
	ID int `path:"id" json:"-"`
}

// Validate implements Validatable.
func (r *GetComicRequest) Validate() error {
	return validateID(r.ID)
}

// CreateComicRequest is the request for POST /api/v1/comics.
type CreateComicRequest struct {
	Title  string `json:"title"`
	Volume string `json:"volume,omitempty"`
	Writer string `json:"writer"`
	Artist string `json:"artist"`
}

// Validate implements Validatable.
func (r *CreateComicRequest) Validate() error {
	f := r.Fields().Normalize()
	if name := f.MissingField(); name != "" {
		return apierrors.MissingField(name)
	}
	return nil
}

// Fields returns the comic content of the request.
func (r *CreateComicRequest) Fields() models.ComicFields {
	return models.ComicFields{Title: r.Title, Volume: r.Volume, Writer: r.Writer, Artist: r.Artist}
}

// BulkCreateComicsRequest is the request for POST /api/v1/comics/bulk.
//
// Incomplete items are skipped, not rejected.
type BulkCreateComicsRequest struct {
	Comics []models.ComicFields `json:"comics"`
}

// Validate implements Validatable.
func (r *BulkCreateComicsRequest) Validate() error {
	if r.Comics == nil {
		return apierrors.MissingField("comics")
	}
	return nil
}

// UpdateComicRequest is the request for PATCH /api/v1/comics/{id}.
//
// Omitted fields keep their stored value.
type UpdateComicRequest struct {
	ID     int     `path:"id" json:"-"`
	Title  *string `json:"title,omitempty"`
	Volume *string `json:"volume,omitempty"`
	Writer *string `json:"writer,omitempty"`
	Artist *string `json:"artist,omitempty"`
}

// Validate implements Validatable.
func (r *UpdateComicRequest) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	}
	switch {
	case isBlank(r.Title):
		return apierrors.MissingField("title")
	case isBlank(r.Writer):
		return apierrors.MissingField("writer")
	case isBlank(r.Artist):
		return apierrors.MissingField("artist")
	}
	return nil
}

// Patch returns the partial update described by the request.
func (r *UpdateComicRequest) Patch() models.ComicPatch {
	return models.ComicPatch{Title: r.Title, Volume: r.Volume, Writer: r.Writer, Artist: r.Artist}
}

// ReplaceComicRequest is the request for PUT /api/v1/comics/{id}.
//
// Every field is replaced; an omitted volume becomes empty.
type ReplaceComicRequest struct {
	ID     int    `path:"id" json:"-"`
	Title  string `json:"title"`
	Volume string `json:"volume,omitempty"`
	Writer string `json:"writer"`
	Artist string `json:"artist"`
}

// Validate implements Validatable.
func (r *ReplaceComicRequest) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	}
	f := r.Fields().Normalize()
	if name := f.MissingField(); name != "" {
		return apierrors.MissingField(name)
	}
	return nil
}

// Fields returns the comic content of the request.
func (r *ReplaceComicRequest) Fields() models.ComicFields {
	return models.ComicFields{Title: r.Title, Volume: r.Volume, Writer: r.Writer, Artist: r.Artist}
}

// DeleteComicRequest is the request for DELETE /api/v1/comics/{id}.
type DeleteComicRequest struct {
	ID int `path:"id" json:"-"`
}

// Validate implements Validatable.
func (r *DeleteComicRequest) Validate() error {
	return validateID(r.ID)
}

// SearchRequest is the request for GET /api/v1/search?q=.
type SearchRequest struct {
	Query string `query:"q" json:"-"`
}

// Validate implements Validatable.
func (r *SearchRequest) Validate() error { return nil }

// ExportRequest is the request for POST /api/v1/export.
type ExportRequest struct {
	// Name is a file name inside the data directory.
	Name string `json:"name"`
}

// Validate implements Validatable.
func (r *ExportRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		return apierrors.MissingField("name")
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return apierrors.InvalidFormat("name", "name must be a plain file name")
	}
	return nil
}

// HistoryRequest is the request for GET /api/v1/history.
type HistoryRequest struct {
	Limit int `query:"limit" json:"-"`
}

// Validate implements Validatable.
func (r *HistoryRequest) Validate() error {
	if r.Limit < 0 {
		return apierrors.InvalidFormat("limit", "limit must not be negative")
	}
	return nil
}

func validateID(id int) error {
	if id <= 0 {
		return apierrors.InvalidFormat("id", "id must be a positive integer")
	}
	return nil
}

// isBlank reports whether v is set to whitespace only.
func isBlank(v *string) bool {
	return v != nil && strings.TrimSpace(*v) == ""
}
