package dto

import (
	"testing"

	apierrors "github.com/maruel/comicdb/internal/errors"
)

func TestValidate(t *testing.T) {
	blank := " "
	ok := "x"
	tests := []struct {
		name string
		req  Validatable
		code apierrors.ErrorCode
	}{
		{"create ok", &CreateComicRequest{Title: "a", Writer: "b", Artist: "c"}, ""},
		{"create missing artist", &CreateComicRequest{Title: "a", Writer: "b"}, apierrors.ErrMissingField},
		{"get zero id", &GetComicRequest{}, apierrors.ErrInvalidFormat},
		{"patch ok", &UpdateComicRequest{ID: 1, Volume: &blank, Title: &ok}, ""},
		{"patch blank writer", &UpdateComicRequest{ID: 1, Writer: &blank}, apierrors.ErrMissingField},
		{"put missing title", &ReplaceComicRequest{ID: 1, Writer: "b", Artist: "c"}, apierrors.ErrMissingField},
		{"bulk empty list", &BulkCreateComicsRequest{Comics: nil}, apierrors.ErrMissingField},
		{"export nested", &ExportRequest{Name: "a/b.csv"}, apierrors.ErrInvalidFormat},
		{"export dotdot", &ExportRequest{Name: ".."}, apierrors.ErrInvalidFormat},
		{"export ok", &ExportRequest{Name: "out.csv"}, ""},
		{"history negative", &HistoryRequest{Limit: -1}, apierrors.ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			e, isAPI := err.(*apierrors.APIError)
			if !isAPI || e.Code() != tt.code {
				t.Errorf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
}
