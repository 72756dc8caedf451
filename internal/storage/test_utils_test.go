package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const testSeed = `Title,Volume,Writer,Artist
Batman,1,Bob Kane,Bob Kane
Superman,2,Jerry Siegel,Joe Shuster
Wonder Woman,1,William Moulton Marston,Harry G. Peter
`

// testPaths returns seed and delta paths in a fresh directory, writing seed
// when it is not empty.
func testPaths(t *testing.T, seed string) (seedPath, deltaPath string) {
	t.Helper()
	dir := t.TempDir()
	seedPath = filepath.Join(dir, "Comics.csv")
	deltaPath = filepath.Join(dir, "comics.jsonl")
	if seed != "" {
		if err := os.WriteFile(seedPath, []byte(seed), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return seedPath, deltaPath
}

// openTestStore opens a store over the given paths.
func openTestStore(t *testing.T, seedPath, deltaPath string) *Store {
	t.Helper()
	s, err := Open(t.Context(), Options{SeedPath: seedPath, DeltaPath: deltaPath})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})
	return s
}

// newTestStore opens a store over a fresh directory holding seed.
func newTestStore(t *testing.T, seed string) *Store {
	t.Helper()
	seedPath, deltaPath := testPaths(t, seed)
	return openTestStore(t, seedPath, deltaPath)
}

// reopen closes s and loads a new store from its files.
func reopen(t *testing.T, s *Store) *Store {
	t.Helper()
	if err := s.Close(t.Context()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return openTestStore(t, s.SeedPath(), s.DeltaPath())
}

func ptr(s string) *string { return &s }
