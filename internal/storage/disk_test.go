package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/dirfs"
	"github.com/notefs/notefs/internal/vfs"
)

func newDiskBackend(t *testing.T, dir string) *DiskBackend {
	t.Helper()
	root, err := dirfs.OpenRoot(dir)
	if err != nil {
		t.Fatalf("OpenRoot() failed: %v", err)
	}
	b, err := NewDiskBackend(t.Context(), root, 0)
	if err != nil {
		t.Fatalf("NewDiskBackend() failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func findItem(t *testing.T, items []*vfs.Item, name string) *vfs.Item {
	t.Helper()
	for _, it := range items {
		if it.Name == name {
			return it
		}
	}
	t.Fatalf("item %q not found in %d items", name, len(items))
	return nil
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o700); err != nil {
		t.Fatal(err)
	}
}

func TestDiskBackend_LoadSkipsDotEntries(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.md"), "a")
	mustWrite(t, filepath.Join(dir, ".hidden"), "x")
	mustMkdir(t, filepath.Join(dir, ".git"))
	mustWrite(t, filepath.Join(dir, ".git", "HEAD"), "ref")

	b := newDiskBackend(t, dir)
	snap, err := b.Load(t.Context())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(snap.Items) != 1 {
		t.Fatalf("got %d items, want 1: dot entries are invisible", len(snap.Items))
	}
	if snap.Items[0].Name != "a.md" {
		t.Errorf("unexpected item %q", snap.Items[0].Name)
	}
	if snap.HasViewState {
		t.Error("directory scans have no view state")
	}
}

func TestDiskBackend_LoadNested(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "work", "deep"))
	mustWrite(t, filepath.Join(dir, "work", "todo.md"), "- [ ] ship")
	mustWrite(t, filepath.Join(dir, "work", "deep", "notes.md"), "deep")

	b := newDiskBackend(t, dir)
	snap, err := b.Load(t.Context())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(snap.Items) != 4 {
		t.Fatalf("got %d items, want 4", len(snap.Items))
	}

	work := findItem(t, snap.Items, "work")
	deep := findItem(t, snap.Items, "deep")
	todo := findItem(t, snap.Items, "todo.md")
	notes := findItem(t, snap.Items, "notes.md")
	if !work.ParentID.IsZero() {
		t.Error("work should be a root item")
	}
	if deep.ParentID != work.ID || todo.ParentID != work.ID {
		t.Error("children not wired to work")
	}
	if notes.ParentID != deep.ID {
		t.Error("notes.md not wired to deep")
	}
	if todo.ContentLoaded {
		t.Error("file contents stay unloaded after a scan")
	}

	got, err := b.ReadContent(t.Context(), todo)
	if err != nil {
		t.Fatalf("ReadContent() failed: %v", err)
	}
	if got != "- [ ] ship" {
		t.Errorf("ReadContent() = %q", got)
	}
}

func TestDiskBackend_CreateWriteRead(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	b := newDiskBackend(t, dir)
	ctx := t.Context()
	if _, err := b.Load(ctx); err != nil {
		t.Fatal(err)
	}

	folder := &vfs.Item{ID: ksid.NewID(), Name: "journal", Kind: vfs.KindFolder}
	if err := b.CreateFolder(ctx, folder); err != nil {
		t.Fatalf("CreateFolder() failed: %v", err)
	}
	note := &vfs.Item{ID: ksid.NewID(), ParentID: folder.ID, Name: "day1.md", Kind: vfs.KindFile}
	if err := b.CreateFile(ctx, note, []byte("first")); err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}
	if note.Content != "first" || !note.ContentLoaded {
		t.Error("text create should normalize content onto the item")
	}

	onDisk, err := os.ReadFile(filepath.Join(dir, "journal", "day1.md"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(onDisk) != "first" {
		t.Errorf("disk content = %q", onDisk)
	}

	if err := b.WriteContent(ctx, note, "second"); err != nil {
		t.Fatalf("WriteContent() failed: %v", err)
	}
	got, err := b.ReadContent(ctx, note)
	if err != nil || got != "second" {
		t.Errorf("ReadContent() = %q, %v", got, err)
	}
}

func TestDiskBackend_RenameFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "old.md"), "body")
	b := newDiskBackend(t, dir)
	ctx := t.Context()
	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	it := findItem(t, snap.Items, "old.md")

	rescan, err := b.Rename(ctx, it, "new.md")
	if err != nil {
		t.Fatalf("Rename() failed: %v", err)
	}
	if rescan {
		t.Error("file renames must not require a rescan")
	}
	if _, err := os.Stat(filepath.Join(dir, "old.md")); !os.IsNotExist(err) {
		t.Error("old file still on disk")
	}
	data, err := os.ReadFile(filepath.Join(dir, "new.md"))
	if err != nil || string(data) != "body" {
		t.Errorf("renamed file = %q, %v", data, err)
	}

	// The handle moved along with the entry.
	got, err := b.ReadContent(ctx, it)
	if err != nil || got != "body" {
		t.Errorf("ReadContent() after rename = %q, %v", got, err)
	}
}

func TestDiskBackend_RenameFolderCopies(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "pics", "sub"))
	mustWrite(t, filepath.Join(dir, "pics", "inner.md"), "inner")
	mustWrite(t, filepath.Join(dir, "pics", "sub", "deep.md"), "deep")
	mustWrite(t, filepath.Join(dir, "pics", ".keep"), "")

	b := newDiskBackend(t, dir)
	ctx := t.Context()
	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pics := findItem(t, snap.Items, "pics")

	rescan, err := b.Rename(ctx, pics, "photos")
	if err != nil {
		t.Fatalf("Rename() failed: %v", err)
	}
	if !rescan {
		t.Error("folder renames recreate entries and must request a rescan")
	}
	if _, err := os.Stat(filepath.Join(dir, "pics")); !os.IsNotExist(err) {
		t.Error("old directory still on disk")
	}
	for _, rel := range []string{"inner.md", ".keep", filepath.Join("sub", "deep.md")} {
		if _, err := os.Stat(filepath.Join(dir, "photos", rel)); err != nil {
			t.Errorf("entry %q lost in rename: %v", rel, err)
		}
	}
}

func TestDiskBackend_MoveFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "dst"))
	mustWrite(t, filepath.Join(dir, "a.md"), "body")
	b := newDiskBackend(t, dir)
	ctx := t.Context()
	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	a := findItem(t, snap.Items, "a.md")
	dst := findItem(t, snap.Items, "dst")

	rescan, err := b.Move(ctx, a, dst.ID)
	if err != nil {
		t.Fatalf("Move() failed: %v", err)
	}
	if rescan {
		t.Error("file moves must not require a rescan")
	}
	data, err := os.ReadFile(filepath.Join(dir, "dst", "a.md"))
	if err != nil || string(data) != "body" {
		t.Errorf("moved file = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.md")); !os.IsNotExist(err) {
		t.Error("old file still at the root")
	}
}

func TestDiskBackend_MoveFolderCopies(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "src"))
	mustMkdir(t, filepath.Join(dir, "dst"))
	mustWrite(t, filepath.Join(dir, "src", "x.md"), "x")
	b := newDiskBackend(t, dir)
	ctx := t.Context()
	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	src := findItem(t, snap.Items, "src")
	dst := findItem(t, snap.Items, "dst")

	rescan, err := b.Move(ctx, src, dst.ID)
	if err != nil {
		t.Fatalf("Move() failed: %v", err)
	}
	if !rescan {
		t.Error("folder moves must request a rescan")
	}
	if _, err := os.Stat(filepath.Join(dir, "dst", "src", "x.md")); err != nil {
		t.Errorf("moved tree incomplete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "src")); !os.IsNotExist(err) {
		t.Error("old directory still on disk")
	}
}

func TestDiskBackend_RemoveSubtree(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "trash", "sub"))
	mustWrite(t, filepath.Join(dir, "trash", "a.md"), "a")
	mustWrite(t, filepath.Join(dir, "keep.md"), "keep")
	b := newDiskBackend(t, dir)
	ctx := t.Context()
	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	trash := findItem(t, snap.Items, "trash")
	sub := findItem(t, snap.Items, "sub")
	a := findItem(t, snap.Items, "a.md")

	if err := b.RemoveSubtree(ctx, trash, []ksid.ID{trash.ID, sub.ID, a.ID}); err != nil {
		t.Fatalf("RemoveSubtree() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "trash")); !os.IsNotExist(err) {
		t.Error("directory not removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.md")); err != nil {
		t.Error("unrelated file removed")
	}
}

func TestDiskBackend_RemoveGoneEntry(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.md"), "a")
	b := newDiskBackend(t, dir)
	ctx := t.Context()
	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	a := findItem(t, snap.Items, "a.md")

	// Someone else deleted the file first; removal is still a success.
	if err := os.Remove(filepath.Join(dir, "a.md")); err != nil {
		t.Fatal(err)
	}
	if err := b.RemoveSubtree(ctx, a, []ksid.ID{a.ID}); err != nil {
		t.Errorf("RemoveSubtree() on a gone entry should be a no-op, got %v", err)
	}
}

func TestDiskBackend_ReadAsset(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shot.png"), pngBytes, 0o600); err != nil {
		t.Fatal(err)
	}
	b := newDiskBackend(t, dir)
	ctx := t.Context()
	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	shot := findItem(t, snap.Items, "shot.png")

	data, mimeType, err := b.ReadAsset(ctx, shot)
	if err != nil {
		t.Fatalf("ReadAsset() failed: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("mime = %q, want image/png", mimeType)
	}
	if len(data) != len(pngBytes) {
		t.Errorf("asset size = %d, want %d", len(data), len(pngBytes))
	}
}

func TestDiskBackend_CancelledContext(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.md"), "a")
	b := newDiskBackend(t, dir)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := b.Load(ctx); err == nil {
		t.Error("Load() with a cancelled context should fail")
	}
}
