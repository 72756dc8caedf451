package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	apierrors "github.com/maruel/comicdb/internal/errors"
	"github.com/maruel/comicdb/internal/models"
)

// exportHeader is the column order of exported files.
var exportHeader = []string{"id", "title", "volume", "writer", "artist"}

// ExportTo writes the whole collection as CSV to w.
func (s *Store) ExportTo(w io.Writer) error {
	return writeCSV(w, s.List())
}

// Export writes the whole collection as CSV to path and returns the number of
// comics written. The file is replaced atomically.
func (s *Store) Export(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, apierrors.MissingField("path")
	}
	comics := s.List()
	if err := writeFileAtomic(path, func(w io.Writer) error { return writeCSV(w, comics) }); err != nil {
		return 0, apierrors.Persistence("failed to export comics", err)
	}
	slog.InfoContext(ctx, "Exported comics", "path", path, "count", len(comics))
	return len(comics), nil
}

func writeCSV(w io.Writer, comics []models.Comic) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range comics {
		c := &comics[i]
		if err := cw.Write([]string{strconv.Itoa(c.ID), c.Title, c.Volume, c.Writer, c.Artist}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFileAtomic writes through a temporary file in the destination
// directory and renames it over path.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
