// Package git keeps the version history of the data directory with go-git.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Author identifies who made a change.
type Author struct {
	Name  string
	Email string
}

// Commit is one entry of the history.
type Commit struct {
	Hash       string    `json:"hash"`
	Message    string    `json:"message"` // Subject line.
	Body       string    `json:"body,omitempty"`
	Author     string    `json:"author"`
	AuthorDate time.Time `json:"author_date"`
}

// Repo is a git repository rooted at the data directory.
type Repo struct {
	dir          string
	defaultName  string
	defaultEmail string
	repo         *gogit.Repository
	mu           sync.Mutex
}

// Open opens the repository in dir, initializing it when needed.
func Open(_ context.Context, dir, defaultName, defaultEmail string) (*Repo, error) {
	if defaultName == "" {
		defaultName = "comicdb"
	}
	if defaultEmail == "" {
		defaultEmail = "comicdb@localhost"
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultName
		cfg.User.Email = defaultEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &Repo{dir: dir, defaultName: defaultName, defaultEmail: defaultEmail, repo: repo}, nil
}

// Dir returns the root of the working tree.
func (r *Repo) Dir() string {
	return r.dir
}

// CommitTx executes fn while holding the repository lock and commits the
// files it returns. Nothing is committed when fn fails, returns no files, or
// the files are unchanged.
func (r *Repo) CommitTx(ctx context.Context, author Author, fn func() (msg string, files []string, err error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, files, err := fn()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	return r.commitLocked(ctx, author, msg, files)
}

// Commit stages files and commits them with msg. Relative paths are resolved
// against the working directory.
func (r *Repo) Commit(ctx context.Context, author Author, msg string, files ...string) error {
	return r.CommitTx(ctx, author, func() (string, []string, error) {
		return msg, files, nil
	})
}

func (r *Repo) commitLocked(_ context.Context, author Author, msg string, files []string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	for _, f := range files {
		rel, err := r.relPath(f)
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(r.dir, rel)); os.IsNotExist(err) {
			// Not written yet.
			continue
		}
		if _, err := w.Add(rel); err != nil {
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if !hasStaged(status) {
		return nil
	}

	name, email := author.Name, author.Email
	if name == "" {
		name = r.defaultName
	}
	if email == "" {
		email = r.defaultEmail
	}
	now := time.Now()
	_, err = w.Commit(msg, &gogit.CommitOptions{
		Author:    &object.Signature{Name: name, Email: email, When: now},
		Committer: &object.Signature{Name: r.defaultName, Email: r.defaultEmail, When: now},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// relPath maps path to a slash separated path inside the working tree.
// Relative paths are resolved against the working directory, like the
// directory given to Open.
func (r *Repo) relPath(path string) (string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of %s", path, r.dir)
	}
	return filepath.ToSlash(rel), nil
}

// hasStaged reports whether the index differs from HEAD. Untracked files
// alone do not count.
func hasStaged(st gogit.Status) bool {
	for _, fs := range st {
		if fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			return true
		}
	}
	return false
}

// History returns up to n commits touching path, newest first. An empty path
// means the whole repository. n is capped at 1000.
func (r *Repo) History(_ context.Context, path string, n int) ([]*Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	opts := &gogit.LogOptions{}
	if path != "" {
		rel, err := r.relPath(path)
		if err != nil {
			return nil, err
		}
		opts.FileName = &rel
	}
	iter, err := r.repo.Log(opts)
	if err != nil {
		// No commits yet.
		return []*Commit{}, nil
	}
	defer iter.Close()

	commits := []*Commit{}
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, body, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:       c.Hash.String(),
			Message:    subject,
			Body:       strings.TrimSpace(body),
			Author:     c.Author.Name,
			AuthorDate: c.Author.When,
		})
	}
	return commits, nil
}
