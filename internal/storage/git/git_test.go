package git

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepo(t *testing.T) {
	t.Parallel()

	t.Run("Init", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if repo.Dir() != tmpDir {
			t.Errorf("Dir() = %q, want %q", repo.Dir(), tmpDir)
		}
		if _, err := os.Stat(filepath.Join(tmpDir, ".git")); os.IsNotExist(err) {
			t.Error(".git directory not created")
		}
	})

	t.Run("Reopen", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		if _, err := Open(ctx, tmpDir, "Test User", "test@example.com"); err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		// Opening an existing repo must not re-init it.
		repo, err := Open(ctx, tmpDir, "Other User", "other@example.com")
		if err != nil {
			t.Fatalf("Open() on existing repo failed: %v", err)
		}
		if err := os.WriteFile(filepath.Join(tmpDir, "a.md"), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "Add a.md"); err != nil {
			t.Fatalf("CommitAll() failed: %v", err)
		}
	})

	t.Run("Commit", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}

		if err := os.WriteFile(filepath.Join(tmpDir, "test.md"), []byte("hello world"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		author := Author{Name: "Author", Email: "author@example.com"}
		if err := repo.CommitAll(ctx, author, "Initial commit"); err != nil {
			t.Fatalf("CommitAll() failed: %v", err)
		}

		history, err := repo.History(ctx, "test.md", 1)
		if err != nil {
			t.Fatalf("History() failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 commit, got %d", len(history))
		}
		if history[0].Message != "Initial commit" {
			t.Errorf("expected message 'Initial commit', got %q", history[0].Message)
		}
		if history[0].Author != "Author" {
			t.Errorf("expected author 'Author', got %q", history[0].Author)
		}
	})

	t.Run("CommitCleanTreeIsNoop", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if err := os.WriteFile(filepath.Join(tmpDir, "test.md"), []byte("v1"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "First"); err != nil {
			t.Fatalf("CommitAll() failed: %v", err)
		}
		// Nothing changed, so this must not add a commit.
		if err := repo.CommitAll(ctx, Author{}, "Second"); err != nil {
			t.Fatalf("CommitAll() on clean tree failed: %v", err)
		}
		n, err := repo.CommitCount(ctx)
		if err != nil {
			t.Fatalf("CommitCount() failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 commit, got %d", n)
		}
	})

	t.Run("CommitDefaultsAuthor", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Default Name", "default@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if err := os.WriteFile(filepath.Join(tmpDir, "test.md"), []byte("v1"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "First"); err != nil {
			t.Fatalf("CommitAll() failed: %v", err)
		}
		history, err := repo.History(ctx, "", 1)
		if err != nil {
			t.Fatalf("History() failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 commit, got %d", len(history))
		}
		if history[0].Author != "Default Name" {
			t.Errorf("expected default author, got %q", history[0].Author)
		}
	})

	t.Run("HistoryFilterByPath", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}

		if err := os.WriteFile(filepath.Join(tmpDir, "a.md"), []byte("a"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "Add a.md"); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(tmpDir, "b.md"), []byte("b"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "Add b.md"); err != nil {
			t.Fatal(err)
		}

		all, err := repo.History(ctx, "", 0)
		if err != nil {
			t.Fatalf("History() failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 commits, got %d", len(all))
		}
		// Newest first.
		if all[0].Message != "Add b.md" {
			t.Errorf("expected newest commit first, got %q", all[0].Message)
		}

		only, err := repo.History(ctx, "a.md", 0)
		if err != nil {
			t.Fatalf("History(a.md) failed: %v", err)
		}
		if len(only) != 1 {
			t.Fatalf("expected 1 commit for a.md, got %d", len(only))
		}
		if only[0].Message != "Add a.md" {
			t.Errorf("expected 'Add a.md', got %q", only[0].Message)
		}
	})

	t.Run("HistoryEmptyRepo", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		history, err := repo.History(ctx, "", 0)
		if err != nil {
			t.Fatalf("History() on empty repo failed: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected no commits, got %d", len(history))
		}
	})

	t.Run("CommitMessageBody", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if err := os.WriteFile(filepath.Join(tmpDir, "test.md"), []byte("v1"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "Subject line\n\nBody text here."); err != nil {
			t.Fatalf("CommitAll() failed: %v", err)
		}
		history, err := repo.History(ctx, "", 1)
		if err != nil {
			t.Fatalf("History() failed: %v", err)
		}
		if history[0].Message != "Subject line" {
			t.Errorf("expected subject only, got %q", history[0].Message)
		}
		if history[0].Body != "Body text here." {
			t.Errorf("expected body, got %q", history[0].Body)
		}
	})

	t.Run("FileAt", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()

		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}

		path := filepath.Join(tmpDir, "note.md")
		if err := os.WriteFile(path, []byte("version one"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "v1"); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("version two"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.CommitAll(ctx, Author{}, "v2"); err != nil {
			t.Fatal(err)
		}

		history, err := repo.History(ctx, "note.md", 0)
		if err != nil {
			t.Fatalf("History() failed: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 commits, got %d", len(history))
		}

		// history[1] is the older commit.
		old, err := repo.FileAt(ctx, history[1].Hash, "note.md")
		if err != nil {
			t.Fatalf("FileAt(old) failed: %v", err)
		}
		if string(old) != "version one" {
			t.Errorf("expected old content, got %q", old)
		}

		head, err := repo.FileAt(ctx, "HEAD", "note.md")
		if err != nil {
			t.Fatalf("FileAt(HEAD) failed: %v", err)
		}
		if string(head) != "version two" {
			t.Errorf("expected head content, got %q", head)
		}

		if _, err := repo.FileAt(ctx, "HEAD", "missing.md"); err == nil {
			t.Error("FileAt() on missing file should fail")
		}
	})
}
