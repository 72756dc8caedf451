// Package main is the entry point for the comicdb server.
//
// comicdb serves a personal comic catalog over a JSON HTTP API. The catalog is
// a read-only seed CSV merged with a JSONL delta file holding every change.
// Configuration is read from CLI flags and an optional .env file in the data
// directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/comicdb/internal/logging"
	"github.com/maruel/comicdb/internal/server"
	"github.com/maruel/comicdb/internal/server/metrics"
	"github.com/maruel/comicdb/internal/server/ratelimit"
	"github.com/maruel/comicdb/internal/storage"
	"github.com/maruel/comicdb/internal/storage/git"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "comicdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	seedPath := flag.String("seed", "", "Read-only seed CSV file (default <data-dir>/Comics.csv)")
	deltaPath := flag.String("delta", "", "Delta JSONL file holding all changes (default <data-dir>/comics.jsonl)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	history := flag.Bool("history", false, "Commit the delta file to a git repository in the data directory after every change")
	rateLimit := flag.Int("rate-limit", 120, "Mutating requests allowed per minute and client IP; 0 disables rate limiting")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := logging.Setup()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}

	// Override with .env file values if not explicitly set via flags.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] {
		if v := env["HTTP"]; v != "" {
			*httpAddr = v
		}
	}
	if !set["seed"] {
		if v := env["SEED"]; v != "" {
			*seedPath = v
		}
	}
	if !set["delta"] {
		if v := env["DELTA"]; v != "" {
			*deltaPath = v
		}
	}
	if !set["log-level"] {
		if v := env["LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if !set["history"] {
		if v := env["HISTORY"]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid HISTORY in .env: %w", err)
			}
			*history = b
		}
	}
	if err := logging.SetLevel(ll, *logLevel); err != nil {
		return err
	}

	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	opts := storage.Options{
		SeedPath:  defaultPath(*seedPath, *dataDir, "Comics.csv"),
		DeltaPath: defaultPath(*deltaPath, *dataDir, "comics.jsonl"),
	}

	store, err := storage.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to open comic store: %w", err)
	}
	defer func() {
		// Writes what a failed flush left behind.
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			slog.ErrorContext(ctx, "Failed to save pending changes", "err", err)
		}
	}()

	var repo *git.Repo
	if *history {
		if repo, err = git.Open(ctx, *dataDir, "", ""); err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		slog.InfoContext(ctx, "History enabled", "dir", repo.Dir())
	}

	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	limits := ratelimit.NewConfig(*rateLimit)
	defer limits.Close()

	buildVersion, _, _, _ := getBuildInfo()
	httpServer := &http.Server{
		Addr: addr,
		Handler: server.NewRouter(store, server.Config{
			Version:             buildVersion,
			DataDir:             *dataDir,
			History:             repo,
			RateLimits:          limits,
			Metrics:             metrics.New(store),
			MaxRequestBodyBytes: 10 << 20,
		}),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "version", buildVersion, "seed", opts.SeedPath, "delta", opts.DeltaPath)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// defaultPath returns p, or name inside dataDir when p is empty.
func defaultPath(p, dataDir, name string) string {
	if p == "" {
		return filepath.Join(dataDir, name)
	}
	return p
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("comicdb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// loadDotEnv reads KEY=value lines from <dataDir>/.env. A missing file is not
// an error.
func loadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dataDir, ".env")
	envContent, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", line)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected. This enables seamless
// restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
