package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/debounce"
	"github.com/notefs/notefs/internal/storage/git"
	"github.com/notefs/notefs/internal/vfs"
)

var (
	// ErrNotFile is returned when a content operation targets a folder.
	ErrNotFile = errors.New("item is not a file")
	// ErrImageContent is returned when a text operation targets an image.
	// Image bytes only enter through Upload and only leave through Asset.
	ErrImageContent = errors.New("image content is not text")
	// ErrNotImage is returned when an asset operation targets a non-image.
	ErrNotImage = errors.New("item is not an image")
	// ErrUploadTooLarge is returned when an upload exceeds the configured
	// size limit.
	ErrUploadTooLarge = errors.New("upload is too large")
	// ErrHistoryDisabled is returned when history is requested but no git
	// repository is attached to the vault.
	ErrHistoryDisabled = errors.New("history is not available")
)

// externalQuiet is how long after one of our own writes a filesystem event is
// attributed to that write rather than to an external editor.
const externalQuiet = 2 * time.Second

// BackendFactory constructs the backend for a storage mode. The vault calls
// it at startup and again on every mode switch.
type BackendFactory func(ctx context.Context, mode Mode) (Backend, error)

// State is the vault-level view state exposed to clients.
type State struct {
	Mode          Mode    `json:"mode"`
	ActiveID      ksid.ID `json:"active_id,omitzero"`
	SidebarHidden bool    `json:"sidebar_hidden"`
	GitEnabled    bool    `json:"git_enabled"`
	// SaveError carries the last persistence failure, typically a quota
	// rejection. Edits are kept in memory and the error sticks until a
	// later save succeeds.
	SaveError string `json:"save_error,omitempty"`
}

// Vault ties the item tree to a physical backend and serializes every
// mutation over both. The ordering rule is fixed: the physical operation
// completes first, and only then is the tree updated, so the tree never
// announces an item the backend cannot serve.
type Vault struct {
	cfg     *Config
	factory BackendFactory
	saver   *debounce.Debouncer

	mu      sync.Mutex
	tree    *vfs.Tree
	backend Backend
	repo    *git.Repo

	activeID      ksid.ID
	sidebarHidden bool
	saveErr       error
	lastMut       time.Time

	// onInvalidate is called after an external change replaced the tree.
	onInvalidate func()
}

// New opens a vault in the given mode. The initial load happens here; a
// backend that cannot load is a startup failure, not a degraded vault.
func New(ctx context.Context, cfg *Config, factory BackendFactory, mode Mode) (*Vault, error) {
	backend, err := factory(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", mode, err)
	}
	v := &Vault{
		cfg:     cfg,
		factory: factory,
		tree:    vfs.NewTree(),
		backend: backend,
	}
	v.saver = debounce.New(time.Duration(cfg.Debounce.SaveMs)*time.Millisecond, v.doSave)
	v.mu.Lock()
	err = v.adoptLocked(ctx)
	v.mu.Unlock()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return v, nil
}

// SetOnInvalidate registers a callback fired after an external filesystem
// change replaced the tree. Must be called before concurrent use.
func (v *Vault) SetOnInvalidate(fn func()) {
	v.mu.Lock()
	v.onInvalidate = fn
	v.mu.Unlock()
}

// adoptLocked loads the current backend and takes over its snapshot, view
// state, watcher and history repo.
func (v *Vault) adoptLocked(ctx context.Context) error {
	snap, err := v.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vault: %w", err)
	}
	v.tree.Replace(snap.Items)
	v.activeID = 0
	v.sidebarHidden = false
	if snap.HasViewState {
		v.sidebarHidden = snap.SidebarHidden
		if _, ok := v.tree.Get(snap.ActiveID); ok {
			v.activeID = snap.ActiveID
		}
	}
	if err := v.backend.Watch(v.onExternalChange); err != nil {
		slog.WarnContext(ctx, "Vault directory will not be watched", "err", err)
	}
	v.openRepoLocked(ctx)
	slog.InfoContext(ctx, "Vault loaded", "mode", v.backend.Mode(), "items", v.tree.Len())
	return nil
}

// openRepoLocked attaches a git repository when history is enabled and the
// backend can name a real directory. Failures disable history, they do not
// fail the vault.
func (v *Vault) openRepoLocked(ctx context.Context) {
	v.repo = nil
	if !v.cfg.Git.Enabled || v.backend.Mode() != ModeDisk {
		return
	}
	p, ok := v.backend.(interface{ Path() string })
	if !ok || p.Path() == "" {
		slog.WarnContext(ctx, "History disabled, vault root has no filesystem path")
		return
	}
	repo, err := git.Open(ctx, p.Path(), v.cfg.Git.AuthorName, v.cfg.Git.AuthorEmail)
	if err != nil {
		slog.WarnContext(ctx, "History disabled", "err", err)
		return
	}
	v.repo = repo
	// Fold whatever was in the directory before us into the first commit.
	if err := repo.CommitAll(ctx, git.Author{}, "Initialize vault history"); err != nil {
		slog.WarnContext(ctx, "Failed to record initial state", "err", err)
	}
}

// mutatedLocked is the bookkeeping tail of every physical mutation: commit
// to history, remember the time for watcher suppression, schedule a save.
func (v *Vault) mutatedLocked(ctx context.Context, msg string) {
	if v.repo != nil {
		if err := v.repo.CommitAll(ctx, git.Author{Name: v.cfg.Git.AuthorName, Email: v.cfg.Git.AuthorEmail}, msg); err != nil {
			slog.WarnContext(ctx, "Failed to commit change", "err", err, "msg", msg)
		}
	}
	v.lastMut = time.Now()
	v.saver.Trigger()
}

// viewChangedLocked schedules a save for a view-state-only change. No commit
// and no watcher suppression; nothing touched the filesystem.
func (v *Vault) viewChangedLocked() {
	v.saver.Trigger()
}

// doSave runs on the debouncer goroutine and persists the full document.
func (v *Vault) doSave() {
	ctx := context.Background()
	v.mu.Lock()
	doc := v.documentLocked()
	backend := v.backend
	v.mu.Unlock()

	err := backend.Save(ctx, doc)
	v.mu.Lock()
	v.saveErr = err
	v.mu.Unlock()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to persist vault, changes are in memory only", "err", err)
	}
}

func (v *Vault) documentLocked() *Document {
	items := slices.Collect(v.tree.All())
	slices.SortFunc(items, func(a, b *vfs.Item) int { return cmp.Compare(a.ID, b.ID) })
	return &Document{
		Version:       DocumentVersion,
		Items:         items,
		ActiveID:      v.activeID,
		SidebarHidden: v.sidebarHidden,
	}
}

// SaveStatus returns the error of the last persistence attempt, or nil.
func (v *Vault) SaveStatus() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saveErr
}

// Mode returns the active backend flavor.
func (v *Vault) Mode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.backend.Mode()
}

// State returns the current view state.
func (v *Vault) State() *State {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := &State{
		Mode:          v.backend.Mode(),
		ActiveID:      v.activeID,
		SidebarHidden: v.sidebarHidden,
		GitEnabled:    v.repo != nil,
	}
	if v.saveErr != nil {
		s.SaveError = v.saveErr.Error()
	}
	return s
}

// Items returns every item in display order: depth-first from the root,
// folders before files, locale-alphabetical within each level.
func (v *Vault) Items() []*vfs.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*vfs.Item
	var walk func(parent ksid.ID)
	walk = func(parent ksid.ID) {
		for _, it := range v.tree.ChildrenOf(parent) {
			out = append(out, it)
			if it.IsFolder() {
				walk(it.ID)
			}
		}
	}
	walk(0)
	return out
}

// Item returns a single item.
func (v *Vault) Item(id ksid.ID) (*vfs.Item, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return nil, vfs.ErrNotFound
	}
	return it, nil
}

// Tree exposes the underlying tree for read-only consumers like search.
func (v *Vault) Tree() *vfs.Tree {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tree
}

func (v *Vault) checkParentLocked(parent ksid.ID) error {
	if parent.IsZero() {
		return nil
	}
	p, ok := v.tree.Get(parent)
	if !ok {
		return vfs.ErrParentNotFound
	}
	if !p.IsFolder() {
		return vfs.ErrNotFolder
	}
	return nil
}

func (v *Vault) checkNameFreeLocked(parent ksid.ID, name string) error {
	if _, ok := v.tree.SiblingNamed(parent, name); ok {
		return fmt.Errorf("%w: %q", vfs.ErrNameTaken, name)
	}
	return nil
}

func (v *Vault) pathLocked(id ksid.ID) string {
	return strings.Join(v.tree.PathOf(id), "/")
}

func (v *Vault) lookupByPathLocked(p string) (*vfs.Item, bool) {
	for _, it := range slices.Collect(v.tree.All()) {
		if v.pathLocked(it.ID) == p {
			return it, true
		}
	}
	return nil, false
}

// CreateFile creates a file item with the given text content. Images cannot
// be created this way; their bytes go through Upload.
func (v *Vault) CreateFile(ctx context.Context, parent ksid.ID, name, content string) (*vfs.Item, error) {
	if err := vfs.ValidateName(name); err != nil {
		return nil, err
	}
	if vfs.IsImageName(name) {
		return nil, fmt.Errorf("%w: %q must be uploaded", ErrImageContent, name)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkParentLocked(parent); err != nil {
		return nil, err
	}
	if err := v.checkNameFreeLocked(parent, name); err != nil {
		return nil, err
	}
	now := time.Now()
	it := &vfs.Item{
		ID: ksid.NewID(), ParentID: parent, Name: name, Kind: vfs.KindFile,
		Content: content, Created: now, Modified: now, ContentLoaded: true,
	}
	var data []byte
	if content != "" {
		data = []byte(content)
	}
	if err := v.backend.CreateFile(ctx, it, data); err != nil {
		return nil, err
	}
	if err := v.tree.Insert(it); err != nil {
		return nil, err
	}
	v.mutatedLocked(ctx, "Create "+v.pathLocked(it.ID))
	return it.Clone(), nil
}

// CreateFolder creates a folder item.
func (v *Vault) CreateFolder(ctx context.Context, parent ksid.ID, name string) (*vfs.Item, error) {
	if err := vfs.ValidateName(name); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkParentLocked(parent); err != nil {
		return nil, err
	}
	if err := v.checkNameFreeLocked(parent, name); err != nil {
		return nil, err
	}
	now := time.Now()
	it := &vfs.Item{
		ID: ksid.NewID(), ParentID: parent, Name: name, Kind: vfs.KindFolder,
		Created: now, Modified: now, ContentLoaded: true,
	}
	if err := v.backend.CreateFolder(ctx, it); err != nil {
		return nil, err
	}
	if err := v.tree.Insert(it); err != nil {
		return nil, err
	}
	v.mutatedLocked(ctx, "Create "+v.pathLocked(it.ID))
	return it.Clone(), nil
}

// Rename gives an item a new name. Renaming a folder in disk mode recreates
// its entries, which mints fresh ids for the whole subtree; the returned
// item carries the new id in that case.
func (v *Vault) Rename(ctx context.Context, id ksid.ID, newName string) (*vfs.Item, error) {
	if err := vfs.ValidateName(newName); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return nil, vfs.ErrNotFound
	}
	if it.Name == newName {
		return it, nil
	}
	if s, ok := v.tree.SiblingNamed(it.ParentID, newName); ok && s.ID != id {
		return nil, fmt.Errorf("%w: %q", vfs.ErrNameTaken, newName)
	}
	oldPath := v.pathLocked(id)
	newPath := newName
	if idx := strings.LastIndexByte(oldPath, '/'); idx >= 0 {
		newPath = oldPath[:idx+1] + newName
	}

	rescan, err := v.backend.Rename(ctx, it, newName)
	if err != nil {
		return nil, err
	}
	var out *vfs.Item
	if rescan {
		view := v.captureViewLocked()
		view.rewritePrefix(oldPath, newPath)
		if err := v.reloadLocked(ctx, view); err != nil {
			return nil, err
		}
		out, ok = v.lookupByPathLocked(newPath)
		if !ok {
			return nil, fmt.Errorf("folder %q not found after rescan", newName)
		}
	} else {
		now := time.Now()
		out, err = v.tree.Modify(id, func(n *vfs.Item) error {
			n.Name = newName
			n.Modified = now
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	v.mutatedLocked(ctx, fmt.Sprintf("Rename %s to %s", oldPath, newName))
	return out, nil
}

// Move reparents an item. Cycles are rejected before anything touches the
// backend. Like Rename, moving a folder in disk mode invalidates the ids of
// the moved subtree.
func (v *Vault) Move(ctx context.Context, id, newParent ksid.ID) (*vfs.Item, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return nil, vfs.ErrNotFound
	}
	if it.ParentID == newParent {
		return it, nil
	}
	if err := v.checkParentLocked(newParent); err != nil {
		return nil, err
	}
	if newParent == id {
		return nil, vfs.ErrCycle
	}
	if slices.Contains(v.tree.AncestorsOf(newParent), id) {
		return nil, vfs.ErrCycle
	}
	if err := v.checkNameFreeLocked(newParent, it.Name); err != nil {
		return nil, err
	}
	oldPath := v.pathLocked(id)
	destPath := "/"
	newPath := it.Name
	if !newParent.IsZero() {
		destPath = v.pathLocked(newParent)
		newPath = destPath + "/" + it.Name
	}

	rescan, err := v.backend.Move(ctx, it, newParent)
	if err != nil {
		return nil, err
	}
	var out *vfs.Item
	if rescan {
		view := v.captureViewLocked()
		view.rewritePrefix(oldPath, newPath)
		if err := v.reloadLocked(ctx, view); err != nil {
			return nil, err
		}
		out, ok = v.lookupByPathLocked(newPath)
		if !ok {
			return nil, fmt.Errorf("folder %q not found after rescan", it.Name)
		}
	} else {
		now := time.Now()
		out, err = v.tree.Modify(id, func(n *vfs.Item) error {
			n.ParentID = newParent
			n.Modified = now
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	v.mutatedLocked(ctx, fmt.Sprintf("Move %s to %s", oldPath, destPath))
	return out, nil
}

// Content returns the text content of a file, reading it from the backend on
// first access and caching it in the tree.
func (v *Vault) Content(ctx context.Context, id ksid.ID) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return "", vfs.ErrNotFound
	}
	if it.IsFolder() {
		return "", fmt.Errorf("%w: %q", ErrNotFile, it.Name)
	}
	if it.IsImage() {
		return "", fmt.Errorf("%w: %q", ErrImageContent, it.Name)
	}
	if it.ContentLoaded {
		return it.Content, nil
	}
	content, err := v.backend.ReadContent(ctx, it)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", it.Name, err)
	}
	_, _ = v.tree.Modify(id, func(n *vfs.Item) error {
		n.Content = content
		n.ContentLoaded = true
		return nil
	})
	return content, nil
}

// SetContent replaces the text content of a file.
func (v *Vault) SetContent(ctx context.Context, id ksid.ID, content string) (*vfs.Item, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return nil, vfs.ErrNotFound
	}
	if it.IsFolder() {
		return nil, fmt.Errorf("%w: %q", ErrNotFile, it.Name)
	}
	if it.IsImage() {
		return nil, fmt.Errorf("%w: %q", ErrImageContent, it.Name)
	}
	if err := v.backend.WriteContent(ctx, it, content); err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", it.Name, err)
	}
	now := time.Now()
	out, err := v.tree.Modify(id, func(n *vfs.Item) error {
		n.Content = content
		n.ContentLoaded = true
		n.Modified = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.mutatedLocked(ctx, "Update "+v.pathLocked(id))
	return out, nil
}

// Delete removes an item and its whole subtree and returns how many items
// went away. Deleting an absent id is a no-op.
func (v *Vault) Delete(ctx context.Context, id ksid.ID) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return 0, nil
	}
	p := v.pathLocked(id)
	ids := v.tree.Subtree(id)
	if err := v.backend.RemoveSubtree(ctx, it, ids); err != nil {
		return 0, err
	}
	removed := v.tree.RemoveSubtree(id)
	if slices.Contains(removed, v.activeID) {
		v.activeID = 0
	}
	v.mutatedLocked(ctx, "Delete "+p)
	return len(removed), nil
}

// Upload stores image bytes as a new item under parent. A name collision
// picks the next free "name (n).ext" instead of failing; dropping the same
// screenshot twice should just work.
func (v *Vault) Upload(ctx context.Context, parent ksid.ID, name string, data []byte) (*vfs.Item, error) {
	if err := vfs.ValidateName(name); err != nil {
		return nil, err
	}
	if !vfs.IsImageName(name) {
		return nil, fmt.Errorf("%w: %q", ErrNotImage, name)
	}
	if limit := v.cfg.Quotas.MaxUploadBytes; int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes over the %d byte limit", ErrUploadTooLarge, len(data), limit)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkParentLocked(parent); err != nil {
		return nil, err
	}
	unique := UniqueName(name, func(n string) bool {
		_, taken := v.tree.SiblingNamed(parent, n)
		return taken
	})
	now := time.Now()
	it := &vfs.Item{
		ID: ksid.NewID(), ParentID: parent, Name: unique, Kind: vfs.KindFile,
		Created: now, Modified: now,
	}
	if err := v.backend.CreateFile(ctx, it, data); err != nil {
		return nil, err
	}
	if err := v.tree.Insert(it); err != nil {
		return nil, err
	}
	v.mutatedLocked(ctx, "Upload "+v.pathLocked(it.ID))
	return it.Clone(), nil
}

// Asset returns the raw bytes and MIME type of an image item.
func (v *Vault) Asset(ctx context.Context, id ksid.ID) ([]byte, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return nil, "", vfs.ErrNotFound
	}
	if !it.IsImage() {
		return nil, "", fmt.Errorf("%w: %q", ErrNotImage, it.Name)
	}
	return v.backend.ReadAsset(ctx, it)
}

// CleanupReport is the outcome of an orphaned-asset pass.
type CleanupReport struct {
	// Orphans are the paths of assets no sibling note references.
	Orphans []string `json:"orphans"`
	// SkippedFolders are folders whose notes could not be read; their
	// assets were left alone.
	SkippedFolders []string `json:"skipped_folders,omitempty"`
	// Removed is how many assets were deleted. Zero on a dry run.
	Removed int  `json:"removed"`
	DryRun  bool `json:"dry_run"`
}

// Cleanup finds image assets that no sibling note mentions and, unless
// dryRun is set, deletes them. The scan loads unread notes on demand and
// caches them; a folder whose notes cannot be read keeps its assets.
func (v *Vault) Cleanup(ctx context.Context, dryRun bool) (*CleanupReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	loader := func(ctx context.Context, it *vfs.Item) (string, error) {
		content, err := v.backend.ReadContent(ctx, it)
		if err != nil {
			return "", err
		}
		_, _ = v.tree.Modify(it.ID, func(n *vfs.Item) error {
			n.Content = content
			n.ContentLoaded = true
			return nil
		})
		return content, nil
	}
	scan, err := vfs.ScanOrphans(ctx, v.tree, loader)
	if err != nil {
		return nil, err
	}
	rep := &CleanupReport{DryRun: dryRun, Orphans: make([]string, 0, len(scan.Orphans))}
	for _, o := range scan.Orphans {
		rep.Orphans = append(rep.Orphans, v.pathLocked(o.ID))
	}
	slices.Sort(rep.Orphans)
	for _, id := range scan.SkippedScopes {
		if id.IsZero() {
			rep.SkippedFolders = append(rep.SkippedFolders, "/")
			continue
		}
		rep.SkippedFolders = append(rep.SkippedFolders, v.pathLocked(id))
	}
	slices.Sort(rep.SkippedFolders)
	if dryRun {
		return rep, nil
	}
	for _, o := range scan.Orphans {
		it, ok := v.tree.Get(o.ID)
		if !ok {
			continue
		}
		if err := v.backend.RemoveSubtree(ctx, it, []ksid.ID{it.ID}); err != nil {
			return rep, fmt.Errorf("failed to remove %q: %w", it.Name, err)
		}
		v.tree.RemoveSubtree(it.ID)
		if v.activeID == it.ID {
			v.activeID = 0
		}
		rep.Removed++
	}
	if rep.Removed > 0 {
		v.mutatedLocked(ctx, fmt.Sprintf("Clean up %d unused assets", rep.Removed))
	}
	return rep, nil
}

// Select marks an item as active. A zero id clears the selection.
func (v *Vault) Select(id ksid.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !id.IsZero() {
		if _, ok := v.tree.Get(id); !ok {
			return vfs.ErrNotFound
		}
	}
	v.activeID = id
	v.viewChangedLocked()
	return nil
}

// SetExpanded toggles a folder open or closed in the tree view.
func (v *Vault) SetExpanded(id ksid.ID, expanded bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.tree.Get(id)
	if !ok {
		return vfs.ErrNotFound
	}
	if !it.IsFolder() {
		return fmt.Errorf("%w: %q", vfs.ErrNotFolder, it.Name)
	}
	_, err := v.tree.Modify(id, func(n *vfs.Item) error {
		n.Expanded = expanded
		return nil
	})
	if err != nil {
		return err
	}
	v.viewChangedLocked()
	return nil
}

// SetSidebarHidden toggles the tree sidebar.
func (v *Vault) SetSidebarHidden(hidden bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sidebarHidden = hidden
	v.viewChangedLocked()
}

// ExpandTo opens every ancestor folder of id, so the item is visible in the
// tree view. Used when search results or external links land on a buried
// item.
func (v *Vault) ExpandTo(id ksid.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.tree.Get(id); !ok {
		return vfs.ErrNotFound
	}
	for _, anc := range v.tree.AncestorsOf(id) {
		_, _ = v.tree.Modify(anc, func(n *vfs.Item) error {
			n.Expanded = true
			return nil
		})
	}
	v.viewChangedLocked()
	return nil
}

// History returns the commit history of an item, newest first. A zero id
// selects the whole vault.
func (v *Vault) History(ctx context.Context, id ksid.ID, n int) ([]*git.Commit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.repo == nil {
		return nil, ErrHistoryDisabled
	}
	path := ""
	if !id.IsZero() {
		if _, ok := v.tree.Get(id); !ok {
			return nil, vfs.ErrNotFound
		}
		path = v.pathLocked(id)
	}
	return v.repo.History(ctx, path, n)
}

// ContentAt returns the content of an item as of a past commit.
func (v *Vault) ContentAt(ctx context.Context, id ksid.ID, hash string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.repo == nil {
		return "", ErrHistoryDisabled
	}
	it, ok := v.tree.Get(id)
	if !ok {
		return "", vfs.ErrNotFound
	}
	if it.IsFolder() {
		return "", fmt.Errorf("%w: %q", ErrNotFile, it.Name)
	}
	data, err := v.repo.FileAt(ctx, hash, v.pathLocked(id))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SwitchMode closes the current backend and opens the other one. Each mode
// shows its own data; nothing is migrated between them. Pending edits are
// saved first so nothing is lost on the way out.
func (v *Vault) SwitchMode(ctx context.Context, mode Mode) error {
	if mode != ModeMemory && mode != ModeDisk {
		return fmt.Errorf("unknown storage mode %q", mode)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend.Mode() == mode {
		return nil
	}
	old := v.backend.Mode()
	v.saver.Stop()
	if err := v.backend.Save(ctx, v.documentLocked()); err != nil {
		slog.WarnContext(ctx, "Final save before mode switch failed", "err", err)
	}
	if err := v.backend.Close(); err != nil {
		slog.WarnContext(ctx, "Failed to close backend", "err", err)
	}

	backend, err := v.factory(ctx, mode)
	if err == nil {
		v.backend = backend
		if err = v.adoptLocked(ctx); err != nil {
			_ = backend.Close()
		}
	}
	if err != nil {
		// Fall back to the mode that was working.
		restore, rerr := v.factory(ctx, old)
		if rerr != nil {
			return fmt.Errorf("failed to switch to %s mode and failed to restore %s mode: %w", mode, old, errors.Join(err, rerr))
		}
		v.backend = restore
		if rerr := v.adoptLocked(ctx); rerr != nil {
			return fmt.Errorf("failed to switch to %s mode and failed to restore %s mode: %w", mode, old, errors.Join(err, rerr))
		}
		return fmt.Errorf("failed to switch to %s mode: %w", mode, err)
	}
	return nil
}

// Reload drops the tree and rescans the backend, keeping as much view state
// as paths allow.
func (v *Vault) Reload(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reloadLocked(ctx, v.captureViewLocked())
}

// reloadLocked replaces the tree from a fresh backend load and restores the
// given view state when the backend has none of its own.
func (v *Vault) reloadLocked(ctx context.Context, view viewState) error {
	snap, err := v.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to rescan vault: %w", err)
	}
	v.tree.Replace(snap.Items)
	if snap.HasViewState {
		v.sidebarHidden = snap.SidebarHidden
		v.activeID = 0
		if _, ok := v.tree.Get(snap.ActiveID); ok {
			v.activeID = snap.ActiveID
		}
		return nil
	}
	v.applyViewLocked(view)
	return nil
}

// onExternalChange runs on the watcher goroutine when something changed the
// vault directory. Events close on the heels of our own writes are ours;
// everything else triggers a rescan.
func (v *Vault) onExternalChange() {
	ctx := context.Background()
	v.mu.Lock()
	recent := time.Since(v.lastMut) < externalQuiet
	notify := v.onInvalidate
	v.mu.Unlock()
	if recent {
		slog.Debug("Ignoring filesystem event caused by own write")
		return
	}
	slog.InfoContext(ctx, "Vault changed externally, rescanning")
	if err := v.Reload(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to rescan vault", "err", err)
		return
	}
	if notify != nil {
		notify()
	}
}

// Close saves pending changes and releases the backend.
func (v *Vault) Close(ctx context.Context) error {
	v.saver.Stop()
	v.mu.Lock()
	doc := v.documentLocked()
	backend := v.backend
	v.mu.Unlock()

	err := backend.Save(ctx, doc)
	if cerr := backend.Close(); err == nil {
		err = cerr
	}
	return err
}
