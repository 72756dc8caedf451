package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/maruel/comicdb/internal/models"
)

// seedRow is one usable row of the seed file.
type seedRow struct {
	id     int
	fields models.ComicFields
}

// seedColumns maps lowercase header names to their column index.
type seedColumns struct {
	id, title, volume, writer, artist int
}

// width returns the minimum number of fields a row needs.
func (c *seedColumns) width() int {
	return max(c.id, c.title, c.volume, c.writer, c.artist) + 1
}

func parseSeedHeader(header []string) (seedColumns, error) {
	cols := seedColumns{id: -1, title: -1, volume: -1, writer: -1, artist: -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		var dst *int
		switch name {
		case "id":
			dst = &cols.id
		case "title":
			dst = &cols.title
		case "volume":
			dst = &cols.volume
		case "writer":
			dst = &cols.writer
		case "artist":
			dst = &cols.artist
		default:
			continue
		}
		if *dst == -1 {
			*dst = i
		}
	}
	var missing []string
	if cols.title == -1 {
		missing = append(missing, "title")
	}
	if cols.writer == -1 {
		missing = append(missing, "writer")
	}
	if cols.artist == -1 {
		missing = append(missing, "artist")
	}
	if len(missing) != 0 {
		return cols, fmt.Errorf("seed header is missing column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// readSeed parses a seed CSV file.
//
// Rows without an id column are numbered by their 1-based position among the
// data rows; skipped rows still consume their position. Rows that are short,
// unparsable, lack a required field or carry an invalid id are skipped.
func readSeed(path string) ([]seedRow, int, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = f.Close()
	}()
	return parseSeed(f)
}

func parseSeed(r io.Reader) ([]seedRow, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to read seed header: %w", err)
	}
	cols, err := parseSeedHeader(header)
	if err != nil {
		return nil, 0, err
	}
	width := cols.width()

	var rows []seedRow
	skipped := 0
	for pos := 1; ; pos++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return rows, skipped, fmt.Errorf("failed to read seed file: %w", err)
		}
		if len(record) < width {
			if !isBlank(record) {
				skipped++
			}
			continue
		}
		id := pos
		if cols.id != -1 {
			if id, err = strconv.Atoi(strings.TrimSpace(record[cols.id])); err != nil || id <= 0 {
				skipped++
				continue
			}
		}
		fields := models.ComicFields{
			Title:  record[cols.title],
			Writer: record[cols.writer],
			Artist: record[cols.artist],
		}
		if cols.volume != -1 {
			fields.Volume = record[cols.volume]
		}
		fields = fields.Normalize()
		if fields.MissingField() != "" {
			skipped++
			continue
		}
		rows = append(rows, seedRow{id: id, fields: fields})
	}
	return rows, skipped, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
