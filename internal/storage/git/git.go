// Package git records vault history in a git repository at the vault root,
// using go-git so no git binary is needed.
package git

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Author identifies who made a change for git commits.
type Author struct {
	Name  string
	Email string
}

// Commit represents a commit in vault history.
type Commit struct {
	Hash        string    `json:"hash"`
	Message     string    `json:"message"` // Subject line.
	Body        string    `json:"body"`    // Commit body (may be empty).
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
}

// Repo is a git repository over a vault directory. All operations are
// serialized; concurrent commits would corrupt the index.
type Repo struct {
	dir          string
	defaultName  string
	defaultEmail string

	mu   sync.Mutex
	repo *gogit.Repository
}

// Open opens the repository at dir, initializing it on first use.
func Open(_ context.Context, dir, defaultName, defaultEmail string) (*Repo, error) {
	if defaultName == "" {
		defaultName = "notefs"
	}
	if defaultEmail == "" {
		defaultEmail = "notefs@localhost"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		// Not a repo yet — initialize.
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

	return &Repo{
		dir:          dir,
		defaultName:  defaultName,
		defaultEmail: defaultEmail,
		repo:         repo,
	}, nil
}

// Dir returns the repository directory.
func (r *Repo) Dir() string { return r.dir }

// CommitAll stages every change in the working tree and commits it. A clean
// tree is a no-op; renames and recursive deletes produce arbitrary change
// sets, so staging everything is the only faithful record. The commit always
// runs to completion even when the caller goes away; go-git takes no context
// for local operations.
func (r *Repo) CommitAll(_ context.Context, author Author, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	name := author.Name
	email := author.Email
	if name == "" {
		name = r.defaultName
	}
	if email == "" {
		email = r.defaultEmail
	}

	now := time.Now()
	_, err = w.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  name,
			Email: email,
			When:  now,
		},
		Committer: &object.Signature{
			Name:  r.defaultName,
			Email: r.defaultEmail,
			When:  now,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CommitCount returns the total number of commits in the repository.
func (r *Repo) CommitCount(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return 0, nil // no commits yet is not an error
	}
	defer iter.Close()

	n := 0
	for {
		if _, err := iter.Next(); err != nil {
			break
		}
		n++
	}
	return n, nil
}

// History returns commit history for a path relative to the vault root,
// newest first, limited to n commits. n is capped at 1000; n <= 0 means
// the cap. An empty path selects the whole vault.
func (r *Repo) History(_ context.Context, path string, n int) ([]*Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > 1000 {
		n = 1000
	}

	opts := &gogit.LogOptions{}
	if path != "" && path != "." {
		opts.FileName = &path
	}

	iter, err := r.repo.Log(opts)
	if err != nil {
		return nil, nil // no commits yet is not an error
	}
	defer iter.Close()

	var commits []*Commit
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, body, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:        c.Hash.String(),
			Message:     subject,
			Body:        strings.TrimSpace(body),
			Author:      c.Author.Name,
			AuthorEmail: c.Author.Email,
			Date:        c.Author.When,
		})
	}
	return commits, nil
}

// FileAt retrieves the content of a file at a specific commit. The hash
// "HEAD" resolves to the current head.
func (r *Repo) FileAt(_ context.Context, hash, filePath string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := plumbing.NewHash(hash)
	if hash == "HEAD" {
		ref, err := r.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		h = ref.Hash()
	}

	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	f, err := c.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file at commit: %w", err)
	}

	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = reader.Close() }()

	return io.ReadAll(reader)
}
