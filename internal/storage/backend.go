// Package storage reconciles item-tree mutations with a physical backend.
// Two backends exist: the persisted mode keeps the whole vault as one JSON
// document in a key-value store, and the disk mode maps every item onto a
// real directory entry reached through dirfs handles. The Vault service owns
// the ordering rule shared by both: the physical operation completes before
// the in-memory tree is touched.
package storage

import (
	"context"

	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/vfs"
)

// Mode identifies a backend flavor.
type Mode string

const (
	// ModeMemory keeps the vault in a persisted key-value document.
	ModeMemory Mode = "memory"
	// ModeDisk keeps the vault in a user-granted directory.
	ModeDisk Mode = "disk"
)

// Snapshot is the physical truth returned by Backend.Load: the full item
// collection, plus any view state the backend persists.
type Snapshot struct {
	Items []*vfs.Item
	// ActiveID and SidebarHidden are only meaningful when HasViewState is
	// set; a directory scan has no view state to offer.
	ActiveID      ksid.ID
	SidebarHidden bool
	HasViewState  bool
}

// Backend performs the physical half of every vault mutation. Methods take
// the item as the Vault sees it; implementations resolve their own handles
// or document slots from the item id and must not mutate the tree.
type Backend interface {
	Mode() Mode

	// Load materializes the item collection from the physical store. Disk
	// backends enumerate the granted directory; dot-entries are skipped and
	// file contents are left unloaded.
	Load(ctx context.Context) (*Snapshot, error)

	// CreateFile creates the physical entry for a new file item. data holds
	// the initial bytes for uploads and is nil for empty notes. The backend
	// may normalize the item (inline a data URI, mark content loaded)
	// before it is inserted into the tree.
	CreateFile(ctx context.Context, it *vfs.Item, data []byte) error

	// CreateFolder creates the physical entry for a new folder item.
	CreateFolder(ctx context.Context, it *vfs.Item) error

	// WriteContent replaces the physical content of a file item.
	WriteContent(ctx context.Context, it *vfs.Item, content string) error

	// ReadContent returns the physical content of a file item, for lazy
	// loading and for the orphan scan.
	ReadContent(ctx context.Context, it *vfs.Item) (string, error)

	// ReadAsset returns the raw bytes and MIME type of an image item.
	ReadAsset(ctx context.Context, it *vfs.Item) ([]byte, string, error)

	// Rename gives the physical entry a new name. A true rescan return
	// means the backend had to recreate entries (directory copy), every
	// handle into the subtree is invalid, and the caller must Load again.
	Rename(ctx context.Context, it *vfs.Item, newName string) (rescan bool, err error)

	// Move reparents the physical entry under newParent, keeping its name.
	// The rescan return has the same meaning as for Rename.
	Move(ctx context.Context, it *vfs.Item, newParent ksid.ID) (rescan bool, err error)

	// RemoveSubtree deletes the physical entries for it and its collected
	// descendants. ids lists the whole subtree, root first.
	RemoveSubtree(ctx context.Context, it *vfs.Item, ids []ksid.ID) error

	// Save persists the full document. The disk backend has nothing to do;
	// entries are already on disk.
	Save(ctx context.Context, doc *Document) error

	// Watch registers a callback for changes made behind the backend's
	// back. Backends without external change sources ignore it.
	Watch(onChange func()) error

	// Close releases handles and watchers.
	Close() error
}
