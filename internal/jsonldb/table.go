package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
)

// Cloner is implemented by types that can clone themselves.
type Cloner[T any] interface {
	Clone() T
}

// Table handles storage and in-memory caching for a single table in JSONL format.
type Table[T Cloner[T]] struct {
	path    string
	columns []column
	mu      sync.RWMutex

	rows    []T
	skipped int
}

// NewTable creates a new Table and loads all data from the file.
//
// A missing file yields an empty table. Rows that cannot be decoded are
// skipped; see Skipped.
func NewTable[T Cloner[T]](path string) (*Table[T], error) {
	table, err := Empty[T](path)
	if err != nil {
		return nil, err
	}
	if err := table.load(); err != nil {
		return nil, err
	}
	return table, nil
}

// Empty creates a Table bound to path without reading it. The next Replace
// overwrites whatever the file contains.
func Empty[T Cloner[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	columns, err := schemaFromType[T]()
	if err != nil {
		return nil, err
	}
	return &Table[T]{path: path, columns: columns, rows: []T{}}, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	skipped := 0
	first := true
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var h schemaHeader
			if err := json.Unmarshal(line, &h); err == nil && h.Version != "" && h.Columns != nil {
				if err := h.Validate(); err != nil {
					return fmt.Errorf("invalid schema header in %s: %w", t.path, err)
				}
				continue
			}
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	if rows == nil {
		rows = []T{}
	}
	t.rows = rows
	t.skipped = skipped
	return nil
}

// Path returns the file backing the table.
func (t *Table[T]) Path() string {
	return t.path
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Skipped returns the number of undecodable rows ignored on load.
func (t *Table[T]) Skipped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.skipped
}

// All returns an iterator over clones of all rows.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Replace replaces all rows with the provided slice and persists it.
//
// The in-memory rows are only updated once the file was written successfully.
func (t *Table[T]) Replace(rows []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()

	writer := bufio.NewWriter(f)
	enc := json.NewEncoder(writer)
	if err := enc.Encode(schemaHeader{Version: currentVersion, Columns: t.columns}); err != nil {
		return fmt.Errorf("failed to write schema header: %w", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync table file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}

	cloned := make([]T, len(rows))
	for i, row := range rows {
		cloned[i] = row.Clone()
	}
	t.rows = cloned
	return nil
}
