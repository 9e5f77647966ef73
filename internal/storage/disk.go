package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/dirfs"
	"github.com/notefs/notefs/internal/vfs"
)

// ref is the typed physical reference behind an item in disk mode. Exactly
// one concrete type is stored per item and call sites resolve it with a
// type switch.
type ref interface {
	refEntry()
}

// dirRef points at a directory entry through its own and its parent's
// handles.
type dirRef struct {
	parent dirfs.Dir
	dir    dirfs.Dir
}

// fileRef points at a file entry through its handle and its parent's.
type fileRef struct {
	parent dirfs.Dir
	file   dirfs.File
}

func (dirRef) refEntry()  {}
func (fileRef) refEntry() {}

// DiskBackend maps every item onto a real entry under a granted directory.
// File contents stay on disk until first read. Handles can go stale when
// directories are recreated, so the folder rename path reports that a
// rescan is required.
type DiskBackend struct {
	root       dirfs.Root
	watchDelay time.Duration

	mu   sync.Mutex
	refs map[ksid.ID]ref

	watcher *vaultWatcher
}

// NewDiskBackend negotiates readwrite access on root and returns a backend
// over it. watchDelay is how long external filesystem events are coalesced
// before a rescan; zero disables watching.
func NewDiskBackend(ctx context.Context, root dirfs.Root, watchDelay time.Duration) (*DiskBackend, error) {
	perm, err := root.Permission(ctx, dirfs.ModeReadWrite)
	if err != nil {
		return nil, err
	}
	if perm == dirfs.PermissionPrompt {
		if perm, err = root.RequestPermission(ctx, dirfs.ModeReadWrite); err != nil {
			return nil, err
		}
	}
	if perm != dirfs.PermissionGranted {
		return nil, fmt.Errorf("%w: readwrite access to %q", dirfs.ErrPermissionDenied, root.Name())
	}
	return &DiskBackend{
		root:       root,
		watchDelay: watchDelay,
		refs:       make(map[ksid.ID]ref),
	}, nil
}

// Mode implements Backend.
func (b *DiskBackend) Mode() Mode { return ModeDisk }

// Load implements Backend. It enumerates the granted directory recursively,
// minting fresh ids and handles for every entry. Entries whose name starts
// with a dot are invisible to the vault.
func (b *DiskBackend) Load(ctx context.Context) (*Snapshot, error) {
	refs := make(map[ksid.ID]ref)
	var items []*vfs.Item
	if err := b.scanDir(ctx, b.root, 0, refs, &items); err != nil {
		return nil, fmt.Errorf("failed to scan vault directory: %w", err)
	}
	b.mu.Lock()
	b.refs = refs
	b.mu.Unlock()
	return &Snapshot{Items: items}, nil
}

func (b *DiskBackend) scanDir(ctx context.Context, dir dirfs.Dir, parent ksid.ID, refs map[ksid.ID]ref, items *[]*vfs.Item) error {
	entries, err := dir.List(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		if e.IsDir {
			sub, err := dir.Dir(ctx, e.Name)
			if err != nil {
				return err
			}
			it := &vfs.Item{ID: ksid.NewID(), ParentID: parent, Name: e.Name, Kind: vfs.KindFolder, Created: now, Modified: now}
			refs[it.ID] = dirRef{parent: dir, dir: sub}
			*items = append(*items, it)
			if err := b.scanDir(ctx, sub, it.ID, refs, items); err != nil {
				return err
			}
			continue
		}
		f, err := dir.File(ctx, e.Name)
		if err != nil {
			return err
		}
		it := &vfs.Item{ID: ksid.NewID(), ParentID: parent, Name: e.Name, Kind: vfs.KindFile, Created: now, Modified: now}
		refs[it.ID] = fileRef{parent: dir, file: f}
		*items = append(*items, it)
	}
	return nil
}

// parentDir resolves the directory handle a new entry goes into.
func (b *DiskBackend) parentDir(parent ksid.ID) (dirfs.Dir, error) {
	if parent.IsZero() {
		return b.root, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.refs[parent]
	if !ok {
		return nil, fmt.Errorf("no handle for folder %s", parent)
	}
	d, ok := r.(dirRef)
	if !ok {
		return nil, fmt.Errorf("item %s is not a folder", parent)
	}
	return d.dir, nil
}

func (b *DiskBackend) itemRef(id ksid.ID) (ref, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.refs[id]
	if !ok {
		return nil, fmt.Errorf("no handle for item %s", id)
	}
	return r, nil
}

func (b *DiskBackend) setRef(id ksid.ID, r ref) {
	b.mu.Lock()
	b.refs[id] = r
	b.mu.Unlock()
}

// CreateFile implements Backend.
func (b *DiskBackend) CreateFile(ctx context.Context, it *vfs.Item, data []byte) error {
	parent, err := b.parentDir(it.ParentID)
	if err != nil {
		return err
	}
	f, err := parent.CreateFile(ctx, it.Name)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if err := f.Write(ctx, data); err != nil {
			return err
		}
	}
	b.setRef(it.ID, fileRef{parent: parent, file: f})
	switch {
	case len(data) == 0:
		it.ContentLoaded = true
	case !vfs.IsImageName(it.Name):
		it.Content = string(data)
		it.ContentLoaded = true
	}
	return nil
}

// CreateFolder implements Backend.
func (b *DiskBackend) CreateFolder(ctx context.Context, it *vfs.Item) error {
	parent, err := b.parentDir(it.ParentID)
	if err != nil {
		return err
	}
	d, err := parent.CreateDir(ctx, it.Name)
	if err != nil {
		return err
	}
	b.setRef(it.ID, dirRef{parent: parent, dir: d})
	return nil
}

// WriteContent implements Backend.
func (b *DiskBackend) WriteContent(ctx context.Context, it *vfs.Item, content string) error {
	r, err := b.itemRef(it.ID)
	if err != nil {
		return err
	}
	f, ok := r.(fileRef)
	if !ok {
		return fmt.Errorf("item %q is not a file", it.Name)
	}
	return f.file.Write(ctx, []byte(content))
}

// ReadContent implements Backend.
func (b *DiskBackend) ReadContent(ctx context.Context, it *vfs.Item) (string, error) {
	r, err := b.itemRef(it.ID)
	if err != nil {
		return "", err
	}
	f, ok := r.(fileRef)
	if !ok {
		return "", fmt.Errorf("item %q is not a file", it.Name)
	}
	data, err := f.file.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadAsset implements Backend.
func (b *DiskBackend) ReadAsset(ctx context.Context, it *vfs.Item) ([]byte, string, error) {
	r, err := b.itemRef(it.ID)
	if err != nil {
		return nil, "", err
	}
	f, ok := r.(fileRef)
	if !ok {
		return nil, "", fmt.Errorf("item %q is not a file", it.Name)
	}
	data, err := f.file.Read(ctx)
	if err != nil {
		return nil, "", err
	}
	return data, mimetype.Detect(data).String(), nil
}

// Rename implements Backend.
//
// Files are renamed as create-write-delete, which keeps their handle fresh.
// The handle capability has no directory rename at all, so folders are
// copied recursively into a directory with the new name, the copy is
// verified, and only then is the old directory removed. A crash in between
// leaves both copies on disk; duplicated files beat lost ones. After a
// folder rename every handle below it is stale, which the true return value
// reports.
func (b *DiskBackend) Rename(ctx context.Context, it *vfs.Item, newName string) (bool, error) {
	r, err := b.itemRef(it.ID)
	if err != nil {
		return false, err
	}
	switch entry := r.(type) {
	case fileRef:
		data, err := entry.file.Read(ctx)
		if err != nil {
			return false, err
		}
		nf, err := entry.parent.CreateFile(ctx, newName)
		if err != nil {
			return false, err
		}
		if err := nf.Write(ctx, data); err != nil {
			return false, err
		}
		if err := entry.parent.Remove(ctx, it.Name, false); err != nil && !errors.Is(err, dirfs.ErrNotFound) {
			return false, err
		}
		b.setRef(it.ID, fileRef{parent: entry.parent, file: nf})
		return false, nil
	case dirRef:
		dst, err := entry.parent.CreateDir(ctx, newName)
		if err != nil {
			return false, err
		}
		copied, err := copyDir(ctx, entry.dir, dst)
		if err != nil {
			return false, fmt.Errorf("failed to copy %q to %q: %w", it.Name, newName, err)
		}
		present, err := countEntries(ctx, dst)
		if err != nil {
			return false, err
		}
		if present < copied {
			return false, fmt.Errorf("copy of %q is incomplete (%d of %d entries), keeping both directories", it.Name, present, copied)
		}
		if err := entry.parent.Remove(ctx, it.Name, true); err != nil && !errors.Is(err, dirfs.ErrNotFound) {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown reference type %T", r)
	}
}

// Move implements Backend. Like Rename it is create-then-delete: files move
// as a copy into the new parent, folders as a verified recursive copy that
// invalidates every handle below them.
func (b *DiskBackend) Move(ctx context.Context, it *vfs.Item, newParent ksid.ID) (bool, error) {
	r, err := b.itemRef(it.ID)
	if err != nil {
		return false, err
	}
	dstParent, err := b.parentDir(newParent)
	if err != nil {
		return false, err
	}
	switch entry := r.(type) {
	case fileRef:
		data, err := entry.file.Read(ctx)
		if err != nil {
			return false, err
		}
		nf, err := dstParent.CreateFile(ctx, it.Name)
		if err != nil {
			return false, err
		}
		if err := nf.Write(ctx, data); err != nil {
			return false, err
		}
		if err := entry.parent.Remove(ctx, it.Name, false); err != nil && !errors.Is(err, dirfs.ErrNotFound) {
			return false, err
		}
		b.setRef(it.ID, fileRef{parent: dstParent, file: nf})
		return false, nil
	case dirRef:
		dst, err := dstParent.CreateDir(ctx, it.Name)
		if err != nil {
			return false, err
		}
		copied, err := copyDir(ctx, entry.dir, dst)
		if err != nil {
			return false, fmt.Errorf("failed to copy %q: %w", it.Name, err)
		}
		present, err := countEntries(ctx, dst)
		if err != nil {
			return false, err
		}
		if present < copied {
			return false, fmt.Errorf("copy of %q is incomplete (%d of %d entries), keeping both directories", it.Name, present, copied)
		}
		if err := entry.parent.Remove(ctx, it.Name, true); err != nil && !errors.Is(err, dirfs.ErrNotFound) {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown reference type %T", r)
	}
}

// copyDir copies every entry of src into dst recursively, dotfiles
// included, and returns the number of entries written.
func copyDir(ctx context.Context, src, dst dirfs.Dir) (int, error) {
	entries, err := src.List(ctx)
	if err != nil {
		return 0, err
	}
	copied := 0
	for _, e := range entries {
		if e.IsDir {
			sd, err := src.Dir(ctx, e.Name)
			if err != nil {
				return copied, err
			}
			dd, err := dst.CreateDir(ctx, e.Name)
			if err != nil {
				return copied, err
			}
			n, err := copyDir(ctx, sd, dd)
			copied += n
			if err != nil {
				return copied, err
			}
			copied++
			continue
		}
		sf, err := src.File(ctx, e.Name)
		if err != nil {
			return copied, err
		}
		data, err := sf.Read(ctx)
		if err != nil {
			return copied, err
		}
		df, err := dst.CreateFile(ctx, e.Name)
		if err != nil {
			return copied, err
		}
		if err := df.Write(ctx, data); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func countEntries(ctx context.Context, dir dirfs.Dir) (int, error) {
	entries, err := dir.List(ctx)
	if err != nil {
		return 0, err
	}
	count := len(entries)
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		sub, err := dir.Dir(ctx, e.Name)
		if err != nil {
			return count, err
		}
		n, err := countEntries(ctx, sub)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}

// RemoveSubtree implements Backend. An entry already gone from disk counts
// as removed.
func (b *DiskBackend) RemoveSubtree(ctx context.Context, it *vfs.Item, ids []ksid.ID) error {
	r, err := b.itemRef(it.ID)
	if err != nil {
		return err
	}
	switch entry := r.(type) {
	case dirRef:
		err = entry.parent.Remove(ctx, it.Name, true)
	case fileRef:
		err = entry.parent.Remove(ctx, it.Name, false)
	}
	if err != nil && !errors.Is(err, dirfs.ErrNotFound) {
		return err
	}
	b.mu.Lock()
	for _, id := range ids {
		delete(b.refs, id)
	}
	b.mu.Unlock()
	return nil
}

// Save implements Backend. Disk entries are already persistent.
func (b *DiskBackend) Save(ctx context.Context, doc *Document) error { return nil }

// Watch implements Backend. Watching needs a real filesystem path; roots
// that cannot provide one are simply not watched.
func (b *DiskBackend) Watch(onChange func()) error {
	if b.watchDelay <= 0 || onChange == nil {
		return nil
	}
	p, ok := b.root.(dirfs.Pather)
	if !ok {
		return nil
	}
	if b.watcher != nil {
		b.watcher.stop()
	}
	w, err := newVaultWatcher(p.Path(), b.watchDelay, onChange)
	if err != nil {
		return err
	}
	b.watcher = w
	return nil
}

// Path returns the filesystem path of the vault root, or "" when the root
// is not path-backed.
func (b *DiskBackend) Path() string {
	if p, ok := b.root.(dirfs.Pather); ok {
		return p.Path()
	}
	return ""
}

// Close implements Backend.
func (b *DiskBackend) Close() error {
	if b.watcher != nil {
		b.watcher.stop()
		b.watcher = nil
	}
	b.mu.Lock()
	b.refs = make(map[ksid.ID]ref)
	b.mu.Unlock()
	return nil
}
