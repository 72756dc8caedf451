// Package storage implements the comic collection: a read-only seed CSV
// merged with a read/write JSONL delta file into one in-memory table.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	apierrors "github.com/maruel/comicdb/internal/errors"
	"github.com/maruel/comicdb/internal/jsonldb"
	"github.com/maruel/comicdb/internal/models"
)

// Options configures Open.
type Options struct {
	// SeedPath is the read-only CSV file. It is never written.
	SeedPath string
	// DeltaPath is the JSONL file holding every change made to the collection.
	// Only one Store may have it open at a time.
	DeltaPath string
}

// entry is a comic plus its provenance.
type entry struct {
	comic models.Comic
	// fromSeed is set when the seed file has a row with this ID.
	fromSeed bool
	// inDelta is set when the delta file owns the current state.
	inDelta bool
}

// Stats summarizes where the entries of the collection come from.
type Stats struct {
	Total      int `json:"total"`
	Seed       int `json:"seed"`
	Promoted   int `json:"promoted"`
	Added      int `json:"added"`
	Tombstones int `json:"tombstones"`
}

// Store is the single authority over the comic collection.
//
// All methods are safe for concurrent use. Mutations hold the write lock
// across the in-memory change and the delta file rewrite.
type Store struct {
	seedPath string
	delta    *jsonldb.Table[deltaRow]
	lock     *flock.Flock

	mu   sync.RWMutex
	// order lists seed entries first, by seed position, then the others in
	// insertion order.
	order      []int
	byID       map[int]*entry
	seedPos    map[int]int
	tombstones map[int]struct{}
	dirty      bool
	closed     bool
}

// Open loads the seed and delta files and merges them.
//
// Missing or unreadable files are logged and treated as empty; an unreadable
// delta file is first renamed aside so that the next save cannot destroy it.
// Malformed rows are skipped.
//
// The delta file stays locked until Close. Opening a delta file that another
// Store holds, in this process or another, fails with a persistence error.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.DeltaPath == "" {
		return nil, apierrors.ValidationFailed("delta path is required")
	}
	var err error
	if opts.DeltaPath, err = filepath.Abs(opts.DeltaPath); err != nil {
		return nil, apierrors.Persistence("invalid delta path", err)
	}
	if opts.SeedPath != "" {
		if opts.SeedPath, err = filepath.Abs(opts.SeedPath); err != nil {
			return nil, apierrors.Persistence("invalid seed path", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(opts.DeltaPath), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, apierrors.Persistence("failed to create data directory", err)
	}
	lock := flock.New(opts.DeltaPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, apierrors.Persistence("failed to lock delta file", err)
	}
	if !ok {
		return nil, apierrors.Persistence("delta file is in use by another process", nil).WithDetail("path", opts.DeltaPath)
	}
	s := &Store{
		seedPath:   opts.SeedPath,
		lock:       lock,
		byID:       make(map[int]*entry),
		seedPos:    make(map[int]int),
		tombstones: make(map[int]struct{}),
	}

	seedIDs := make(map[int]struct{})
	if opts.SeedPath != "" {
		rows, skipped, err := readSeed(opts.SeedPath)
		switch {
		case os.IsNotExist(err):
			slog.InfoContext(ctx, "No seed file", "path", opts.SeedPath)
		case err != nil:
			slog.WarnContext(ctx, "Ignoring unreadable seed file", "path", opts.SeedPath, "err", err)
		}
		if skipped > 0 {
			slog.WarnContext(ctx, "Skipped malformed seed rows", "path", opts.SeedPath, "count", skipped)
		}
		for _, row := range rows {
			if _, ok := s.byID[row.id]; ok {
				slog.WarnContext(ctx, "Skipped duplicate seed ID", "path", opts.SeedPath, "id", row.id)
				continue
			}
			seedIDs[row.id] = struct{}{}
			s.seedPos[row.id] = len(s.seedPos)
			s.insert(&entry{comic: comicFrom(row.id, row.fields), fromSeed: true})
		}
	}

	delta, err := jsonldb.NewTable[deltaRow](opts.DeltaPath)
	if err != nil {
		bad := fmt.Sprintf("%s.%s.bad", opts.DeltaPath, time.Now().Format("20060102-150405"))
		if rerr := os.Rename(opts.DeltaPath, bad); rerr != nil {
			_ = lock.Unlock()
			return nil, apierrors.Persistence("failed to set aside unreadable delta file", rerr).WithDetail("path", opts.DeltaPath)
		}
		slog.ErrorContext(ctx, "Ignoring unreadable delta file", "path", opts.DeltaPath, "moved_to", bad, "err", err)
		if delta, err = jsonldb.Empty[deltaRow](opts.DeltaPath); err != nil {
			_ = lock.Unlock()
			return nil, apierrors.Persistence("failed to open delta file", err)
		}
	}
	if n := delta.Skipped(); n > 0 {
		slog.WarnContext(ctx, "Skipped malformed delta rows", "path", opts.DeltaPath, "count", n)
	}
	s.delta = delta
	for row := range delta.All() {
		s.applyDelta(ctx, row, seedIDs)
	}

	slog.InfoContext(ctx, "Loaded comics", "total", len(s.order), "seed", len(seedIDs), "delta", delta.Len())
	return s, nil
}

// applyDelta merges one delta row into the index being loaded.
func (s *Store) applyDelta(ctx context.Context, row deltaRow, seedIDs map[int]struct{}) {
	if row.ID <= 0 {
		slog.WarnContext(ctx, "Skipped delta row with invalid ID", "id", row.ID)
		return
	}
	_, isSeed := seedIDs[row.ID]
	if row.Deleted {
		if _, ok := s.byID[row.ID]; ok {
			s.remove(row.ID)
		}
		if isSeed {
			s.tombstones[row.ID] = struct{}{}
		}
		return
	}
	c := row.comic()
	fields := c.Fields().Normalize()
	if f := fields.MissingField(); f != "" {
		slog.WarnContext(ctx, "Skipped delta row missing a required field", "id", row.ID, "field", f)
		return
	}
	c = comicFrom(row.ID, fields)
	if e, ok := s.byID[row.ID]; ok {
		// Overrides keep the position of the row they replace.
		e.comic = c
		e.inDelta = true
		return
	}
	delete(s.tombstones, row.ID)
	s.insert(&entry{comic: c, fromSeed: isSeed, inDelta: true})
}

func comicFrom(id int, f models.ComicFields) models.Comic {
	return models.Comic{ID: id, Title: f.Title, Volume: f.Volume, Writer: f.Writer, Artist: f.Artist}
}

// insert adds e at the end of the list, or at its seed position when e has
// a seed row.
func (s *Store) insert(e *entry) {
	s.byID[e.comic.ID] = e
	pos, ok := s.seedPos[e.comic.ID]
	if !ok {
		s.order = append(s.order, e.comic.ID)
		return
	}
	i := slices.IndexFunc(s.order, func(id int) bool {
		p, isSeed := s.seedPos[id]
		return !isSeed || p > pos
	})
	if i < 0 {
		i = len(s.order)
	}
	s.order = slices.Insert(s.order, i, e.comic.ID)
}

func (s *Store) remove(id int) {
	delete(s.byID, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// maxID returns the highest ID present in the collection, 0 when empty.
func (s *Store) maxID() int {
	m := 0
	for _, id := range s.order {
		m = max(m, id)
	}
	return m
}

// List returns every comic in load and insertion order.
func (s *Store) List() []models.Comic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Comic, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].comic)
	}
	return out
}

// Len returns the number of comics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns the comic with the given ID.
func (s *Store) Get(id int) (models.Comic, error) {
	if err := checkID(id); err != nil {
		return models.Comic{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return models.Comic{}, notFound(id)
	}
	return e.comic, nil
}

// Search returns the comics whose title, writer or artist contains query,
// ignoring case. An empty query returns everything.
func (s *Store) Search(query string) []models.Comic {
	query = strings.ToLower(query)
	if query == "" {
		return s.List()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Comic{}
	for _, id := range s.order {
		c := &s.byID[id].comic
		if strings.Contains(strings.ToLower(c.Title), query) ||
			strings.Contains(strings.ToLower(c.Writer), query) ||
			strings.Contains(strings.ToLower(c.Artist), query) {
			out = append(out, *c)
		}
	}
	return out
}

// Stats returns provenance counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Total: len(s.order), Tombstones: len(s.tombstones)}
	for _, id := range s.order {
		switch e := s.byID[id]; {
		case !e.fromSeed:
			st.Added++
		case e.inDelta:
			st.Promoted++
		default:
			st.Seed++
		}
	}
	return st
}

// DeltaPath returns the path of the delta file.
func (s *Store) DeltaPath() string {
	return s.delta.Path()
}

// SeedPath returns the path of the seed file.
func (s *Store) SeedPath() string {
	return s.seedPath
}

// Flush rewrites the delta file from memory.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Close flushes pending changes left by a previously failed flush and
// releases the delta file.
//
// When that flush fails the file stays locked and Close may be retried.
// Closing a closed Store is a no-op.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.dirty {
		if err := s.flushLocked(ctx); err != nil {
			return err
		}
	}
	s.closed = true
	if err := s.lock.Unlock(); err != nil {
		return apierrors.Persistence("failed to unlock delta file", err)
	}
	return nil
}

// flushLocked writes every delta-owned entry followed by the tombstones.
//
// The in-memory state is authoritative: on failure it is kept and marked
// dirty so that the next flush writes it.
func (s *Store) flushLocked(ctx context.Context) error {
	rows := make([]deltaRow, 0, len(s.order)+len(s.tombstones))
	for _, id := range s.order {
		if e := s.byID[id]; e.inDelta {
			rows = append(rows, rowFromComic(&e.comic))
		}
	}
	dead := make([]int, 0, len(s.tombstones))
	for id := range s.tombstones {
		dead = append(dead, id)
	}
	slices.Sort(dead)
	for _, id := range dead {
		rows = append(rows, tombstone(id))
	}

	if s.closed {
		return apierrors.Persistence("store is closed", nil)
	}
	if err := s.delta.Replace(rows); err != nil {
		s.dirty = true
		slog.ErrorContext(ctx, "Failed to save delta file", "path", s.delta.Path(), "err", err)
		return apierrors.Persistence("failed to save changes", err)
	}
	s.dirty = false
	slog.DebugContext(ctx, "Saved delta file", "path", s.delta.Path(), "rows", len(rows))
	return nil
}

func checkID(id int) error {
	if id <= 0 {
		return apierrors.InvalidFormat("id", "id must be a positive integer")
	}
	return nil
}

func notFound(id int) error {
	return apierrors.NotFound("comic").WithDetail("id", id)
}
