package storage

import (
	"context"
	"log/slog"

	apierrors "github.com/maruel/comicdb/internal/errors"
	"github.com/maruel/comicdb/internal/models"
)

// Add validates f, assigns the next ID and saves the new comic.
//
// When only the save fails, the comic is kept in memory and returned along
// with a persistence error.
func (s *Store) Add(ctx context.Context, f models.ComicFields) (models.Comic, error) {
	f = f.Normalize()
	if name := f.MissingField(); name != "" {
		return models.Comic{}, apierrors.MissingField(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.addLocked(f, s.maxID()+1)
	slog.InfoContext(ctx, "Added comic", "id", c.ID, "title", c.Title)
	return c, s.flushLocked(ctx)
}

// addLocked inserts a validated comic with the given ID.
//
// An ID that matches a tombstoned seed row revives the tombstone as an
// override of that seed row.
func (s *Store) addLocked(f models.ComicFields, id int) models.Comic {
	e := &entry{comic: comicFrom(id, f), inDelta: true}
	if _, ok := s.tombstones[id]; ok {
		delete(s.tombstones, id)
		e.fromSeed = true
	}
	s.insert(e)
	return e.comic
}

// BulkAdd adds every complete item in order and skips the others.
//
// The delta file is written once at the end, only when something was added.
func (s *Store) BulkAdd(ctx context.Context, items []models.ComicFields) ([]models.Comic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := []models.Comic{}
	next := s.maxID() + 1
	for i, f := range items {
		f = f.Normalize()
		if name := f.MissingField(); name != "" {
			slog.DebugContext(ctx, "Skipped incomplete comic", "index", i, "field", name)
			continue
		}
		added = append(added, s.addLocked(f, next))
		next++
	}
	if len(added) == 0 {
		return added, nil
	}
	slog.InfoContext(ctx, "Added comics", "count", len(added), "skipped", len(items)-len(added))
	return added, s.flushLocked(ctx)
}

// Update applies p to the comic with the given ID and saves it.
//
// The first update of a seed comic promotes it into the delta file; the seed
// file is never touched.
func (s *Store) Update(ctx context.Context, id int, p models.ComicPatch) (models.Comic, error) {
	if err := checkID(id); err != nil {
		return models.Comic{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return models.Comic{}, notFound(id)
	}
	f := e.comic.Fields()
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.Volume != nil {
		f.Volume = *p.Volume
	}
	if p.Writer != nil {
		f.Writer = *p.Writer
	}
	if p.Artist != nil {
		f.Artist = *p.Artist
	}
	f = f.Normalize()
	if name := f.MissingField(); name != "" {
		return models.Comic{}, apierrors.MissingField(name)
	}
	if p.IsEmpty() {
		return e.comic, nil
	}
	e.comic = comicFrom(id, f)
	e.inDelta = true
	slog.InfoContext(ctx, "Updated comic", "id", id, "promoted", e.fromSeed)
	return e.comic, s.flushLocked(ctx)
}

// Delete removes the comic with the given ID.
//
// Deleting a seed comic records a tombstone so that it stays deleted on the
// next Open.
func (s *Store) Delete(ctx context.Context, id int) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return notFound(id)
	}
	s.remove(id)
	if e.fromSeed {
		s.tombstones[id] = struct{}{}
	}
	slog.InfoContext(ctx, "Deleted comic", "id", id, "seed", e.fromSeed)
	return s.flushLocked(ctx)
}
