package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/maruel/comicdb/internal/logging"
	"github.com/maruel/comicdb/internal/storage"
	"github.com/maruel/comicdb/internal/storage/git"
)

// commandContext holds the persistent flags shared by every command.
type commandContext struct {
	dataDir    string
	seedPath   string
	deltaPath  string
	jsonOutput bool
	history    bool
	logLevel   string
}

func (c *commandContext) setupLogging() error {
	return logging.SetLevel(logging.Setup(), c.logLevel)
}

func (c *commandContext) options() storage.Options {
	opts := storage.Options{SeedPath: c.seedPath, DeltaPath: c.deltaPath}
	if strings.TrimSpace(opts.SeedPath) == "" {
		opts.SeedPath = filepath.Join(c.dataDir, "Comics.csv")
	}
	if strings.TrimSpace(opts.DeltaPath) == "" {
		opts.DeltaPath = filepath.Join(c.dataDir, "comics.jsonl")
	}
	return opts
}

// withStore opens the catalog, runs fn and closes the catalog.
func (c *commandContext) withStore(ctx context.Context, fn func(*storage.Store) error) error {
	s, err := storage.Open(ctx, c.options())
	if err != nil {
		return err
	}
	err = fn(s)
	if cerr := s.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// mutate is withStore followed by a history commit when enabled. The commit
// is attempted even when fn fails since the delta file may have changed.
func (c *commandContext) mutate(ctx context.Context, msg string, fn func(*storage.Store) error) error {
	err := c.withStore(ctx, fn)
	if c.history {
		if herr := c.commit(ctx, msg); herr != nil {
			slog.ErrorContext(ctx, "Failed to commit changes", "err", herr)
		}
	}
	return err
}

func (c *commandContext) commit(ctx context.Context, msg string) error {
	repo, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	return repo.Commit(ctx, git.Author{Name: "comicctl"}, msg, c.options().DeltaPath)
}

func (c *commandContext) openHistory(ctx context.Context) (*git.Repo, error) {
	repo, err := git.Open(ctx, c.dataDir, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return repo, nil
}
