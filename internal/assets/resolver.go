// Package assets resolves the sibling images of the active note into
// displayable references. In persisted mode every image already carries its
// data URI; in disk mode the bytes are read through the directory handles
// into blobs that live exactly until the next resolution supersedes them.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/debounce"
	"github.com/notefs/notefs/internal/storage"
)

// Ref is a displayable reference to one sibling image.
type Ref struct {
	ID   ksid.ID `json:"id"`
	Name string  `json:"name"`
	// URI is a data URI in persisted mode, or a blob path minted by this
	// resolver in disk mode.
	URI string `json:"uri"`
}

// BlobPathPrefix is where disk-mode blob URIs point. The HTTP layer serves
// them back through Blob.
const BlobPathPrefix = "/api/blobs/"

type blob struct {
	data []byte
	mime string
}

// Resolver recomputes the sibling image set of the active item behind a
// debounce, so a burst of selection changes does one round of backend reads.
// Each resolution supersedes the previous one: blob references from an older
// generation stop resolving and their bytes are released.
type Resolver struct {
	vault *storage.Vault
	deb   *debounce.Debouncer

	mu     sync.Mutex
	target ksid.ID
	gen    uint64
	refs   []*Ref
	blobs  map[string]blob
}

// NewResolver returns a Resolver over the vault. delay is the debounce
// window for SetActive bursts.
func NewResolver(v *storage.Vault, delay time.Duration) *Resolver {
	r := &Resolver{vault: v, blobs: make(map[string]blob)}
	r.deb = debounce.New(delay, r.run)
	return r
}

// SetActive schedules resolution of the siblings of id. Rapid calls coalesce
// and only the last target is resolved.
func (r *Resolver) SetActive(id ksid.ID) {
	r.mu.Lock()
	r.target = id
	r.mu.Unlock()
	r.deb.Trigger()
}

// Resolve resolves the siblings of id right now and returns them. The
// pending debounced run, if any, is superseded.
func (r *Resolver) Resolve(ctx context.Context, id ksid.ID) []*Ref {
	r.mu.Lock()
	r.target = id
	r.mu.Unlock()
	r.deb.Stop()
	r.resolve(ctx)
	return r.Refs()
}

// Refs returns the most recently resolved set.
func (r *Resolver) Refs() []*Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.refs)
}

// Blob returns the bytes behind a blob path from the current generation.
// References from superseded generations are gone.
func (r *Resolver) Blob(path string) ([]byte, string, bool) {
	token := strings.TrimPrefix(path, BlobPathPrefix)
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blobs[token]
	if !ok {
		return nil, "", false
	}
	return b.data, b.mime, true
}

// Stop drops any pending resolution.
func (r *Resolver) Stop() {
	r.deb.Stop()
}

func (r *Resolver) run() {
	r.resolve(context.Background())
}

func (r *Resolver) resolve(ctx context.Context) {
	r.mu.Lock()
	id := r.target
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	refs, blobs := r.compute(ctx, id, gen)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		// A later resolution already superseded this one; drop it.
		return
	}
	r.refs = refs
	r.blobs = blobs
}

// compute gathers the image siblings of id and materializes a reference for
// each. Images that fail to read are skipped with a warning; one broken file
// does not hide its siblings.
func (r *Resolver) compute(ctx context.Context, id ksid.ID, gen uint64) ([]*Ref, map[string]blob) {
	refs := []*Ref{}
	blobs := make(map[string]blob)
	if id.IsZero() {
		return refs, blobs
	}
	it, err := r.vault.Item(id)
	if err != nil || it.IsFolder() {
		return refs, blobs
	}

	mode := r.vault.Mode()
	for _, sib := range r.vault.Tree().ChildrenOf(it.ParentID) {
		if !sib.IsImage() {
			continue
		}
		ref := &Ref{ID: sib.ID, Name: sib.Name}
		if mode == storage.ModeMemory {
			if sib.Content == "" {
				continue
			}
			ref.URI = sib.Content
		} else {
			data, mimeType, err := r.vault.Asset(ctx, sib.ID)
			if err != nil {
				slog.WarnContext(ctx, "Failed to read sibling image", "err", err, "name", sib.Name)
				continue
			}
			token := fmt.Sprintf("%s.%d", sib.ID, gen)
			blobs[token] = blob{data: data, mime: mimeType}
			ref.URI = BlobPathPrefix + token
		}
		refs = append(refs, ref)
	}
	// ChildrenOf is already in display order; images sort among their
	// siblings, so the set is stable across resolutions.
	return refs, blobs
}
