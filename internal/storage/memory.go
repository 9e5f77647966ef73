package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/kvstore"
	"github.com/notefs/notefs/internal/vfs"
)

// MemoryBackend keeps the whole vault as a single JSON document under a
// fixed key in a key-value store. Note content and asset bytes live inside
// the items themselves, assets as base64 data URIs, so a Save persists
// everything in one write.
type MemoryBackend struct {
	store kvstore.Store
}

// NewMemoryBackend returns a backend over the given store.
func NewMemoryBackend(store kvstore.Store) *MemoryBackend {
	return &MemoryBackend{store: store}
}

// Mode implements Backend.
func (b *MemoryBackend) Mode() Mode { return ModeMemory }

// Load implements Backend. A missing document is a fresh vault and a
// corrupted one degrades to an empty vault with a warning instead of
// blocking startup.
func (b *MemoryBackend) Load(ctx context.Context) (*Snapshot, error) {
	data, err := b.store.Get(vaultKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return &Snapshot{HasViewState: true}, nil
		}
		return nil, fmt.Errorf("failed to load vault document: %w", err)
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		slog.WarnContext(ctx, "Vault document is unreadable, starting empty", "err", err)
		return &Snapshot{HasViewState: true}, nil
	}
	for _, it := range doc.Items {
		it.ContentLoaded = true
	}
	return &Snapshot{
		Items:         doc.Items,
		ActiveID:      doc.ActiveID,
		SidebarHidden: doc.SidebarHidden,
		HasViewState:  true,
	}, nil
}

// CreateFile implements Backend. Uploads are inlined as data URIs; plain
// files start with their bytes as content.
func (b *MemoryBackend) CreateFile(ctx context.Context, it *vfs.Item, data []byte) error {
	if len(data) > 0 {
		if vfs.IsImageName(it.Name) {
			it.Content = EncodeDataURI(mimetype.Detect(data).String(), data)
		} else {
			it.Content = string(data)
		}
	}
	it.ContentLoaded = true
	return nil
}

// CreateFolder implements Backend. Folders have no physical counterpart in
// the document beyond the item itself.
func (b *MemoryBackend) CreateFolder(ctx context.Context, it *vfs.Item) error {
	return nil
}

// WriteContent implements Backend. Content lives in the tree; persistence
// happens on Save.
func (b *MemoryBackend) WriteContent(ctx context.Context, it *vfs.Item, content string) error {
	return nil
}

// ReadContent implements Backend.
func (b *MemoryBackend) ReadContent(ctx context.Context, it *vfs.Item) (string, error) {
	return it.Content, nil
}

// ReadAsset implements Backend.
func (b *MemoryBackend) ReadAsset(ctx context.Context, it *vfs.Item) ([]byte, string, error) {
	mimeType, data, err := DecodeDataURI(it.Content)
	if err != nil {
		return nil, "", fmt.Errorf("asset %q has no inline data: %w", it.Name, err)
	}
	return data, mimeType, nil
}

// Rename implements Backend. Renames are pure tree operations here.
func (b *MemoryBackend) Rename(ctx context.Context, it *vfs.Item, newName string) (bool, error) {
	return false, nil
}

// Move implements Backend. Moves are pure tree operations here.
func (b *MemoryBackend) Move(ctx context.Context, it *vfs.Item, newParent ksid.ID) (bool, error) {
	return false, nil
}

// RemoveSubtree implements Backend.
func (b *MemoryBackend) RemoveSubtree(ctx context.Context, it *vfs.Item, ids []ksid.ID) error {
	return nil
}

// Save implements Backend. A quota rejection from the store is passed
// through so the caller can surface it without rolling back.
func (b *MemoryBackend) Save(ctx context.Context, doc *Document) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := b.store.Set(vaultKey, data); err != nil {
		return fmt.Errorf("failed to persist vault document: %w", err)
	}
	return nil
}

// Watch implements Backend. Nothing mutates the store behind the vault.
func (b *MemoryBackend) Watch(onChange func()) error { return nil }

// Close implements Backend.
func (b *MemoryBackend) Close() error { return nil }
