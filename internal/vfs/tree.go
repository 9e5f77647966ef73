package vfs

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/maruel/ksid"
)

var (
	// ErrNotFound is returned when an item id does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrParentNotFound is returned when the referenced parent does not exist.
	ErrParentNotFound = errors.New("parent folder not found")
	// ErrNotFolder is returned when a file stands where a folder is required.
	ErrNotFolder = errors.New("item is not a folder")
	// ErrNameTaken is returned when a sibling with the same name exists.
	ErrNameTaken = errors.New("name already taken in this folder")
	// ErrCycle is returned when a move would make an item its own ancestor.
	ErrCycle = errors.New("folder cannot be moved inside itself")
)

// ValidateName rejects names that cannot exist as a directory entry.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name %q", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q cannot contain path separators", name)
	}
	return nil
}

// Tree is the authoritative flat collection of items, keyed by id and
// related by parent pointers.
//
// Accessors return clones and mutations go through Insert, Modify and
// RemoveSubtree, which enforce the structural invariants: parents exist and
// are folders, sibling names stay unique, and no item is its own ancestor.
// Backends never touch the collection directly. Safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	items map[ksid.ID]*Item
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{items: make(map[ksid.ID]*Item)}
}

// Len returns the number of items.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Get returns a clone of the item, or false if absent.
func (t *Tree) Get(id ksid.ID) (*Item, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	it, ok := t.items[id]
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// All returns an iterator over clones of all items, in no particular order.
func (t *Tree) All() iter.Seq[*Item] {
	return func(yield func(*Item) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, it := range t.items {
			if !yield(it.Clone()) {
				return
			}
		}
	}
}

// ChildrenOf returns clones of the direct children of parent in display
// order: folders first, then locale-alphabetical by name. A zero parent
// selects the root level.
func (t *Tree) ChildrenOf(parent ksid.ID) []*Item {
	t.mu.RLock()
	children := make([]*Item, 0, 8)
	for _, it := range t.items {
		if it.ParentID == parent {
			children = append(children, it.Clone())
		}
	}
	t.mu.RUnlock()
	SortSiblings(children)
	return children
}

// AncestorsOf returns the chain of folder ids above id, nearest first. The
// walk tolerates corrupt parent pointers: a dangling or cyclic chain simply
// ends.
func (t *Tree) AncestorsOf(id ksid.ID) []ksid.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ancestorsLocked(id)
}

func (t *Tree) ancestorsLocked(id ksid.ID) []ksid.ID {
	var chain []ksid.ID
	seen := map[ksid.ID]bool{id: true}
	it, ok := t.items[id]
	for ok && !it.ParentID.IsZero() && !seen[it.ParentID] {
		chain = append(chain, it.ParentID)
		seen[it.ParentID] = true
		it, ok = t.items[it.ParentID]
	}
	return chain
}

// PathOf returns the names from the root down to id, or nil if absent.
func (t *Tree) PathOf(id ksid.ID) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	it, ok := t.items[id]
	if !ok {
		return nil
	}
	names := []string{it.Name}
	for _, anc := range t.ancestorsLocked(id) {
		if p, ok := t.items[anc]; ok {
			names = append(names, p.Name)
		}
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// SiblingNamed returns a clone of the child of parent with the given name.
func (t *Tree) SiblingNamed(parent ksid.ID, name string) (*Item, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	it := t.siblingNamedLocked(parent, name)
	if it == nil {
		return nil, false
	}
	return it.Clone(), true
}

func (t *Tree) siblingNamedLocked(parent ksid.ID, name string) *Item {
	for _, it := range t.items {
		if it.ParentID == parent && it.Name == name {
			return it
		}
	}
	return nil
}

// Insert adds a new item after validating its name, parent and sibling
// uniqueness. The item is cloned; the caller keeps ownership of it.
func (t *Tree) Insert(it *Item) error {
	if it.ID.IsZero() {
		return errors.New("item id is required")
	}
	if err := ValidateName(it.Name); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[it.ID]; ok {
		return fmt.Errorf("item %s already exists", it.ID)
	}
	if err := t.checkParentLocked(it.ParentID); err != nil {
		return err
	}
	if t.siblingNamedLocked(it.ParentID, it.Name) != nil {
		return fmt.Errorf("%w: %q", ErrNameTaken, it.Name)
	}
	t.items[it.ID] = it.Clone()
	return nil
}

func (t *Tree) checkParentLocked(parent ksid.ID) error {
	if parent.IsZero() {
		return nil
	}
	p, ok := t.items[parent]
	if !ok {
		return ErrParentNotFound
	}
	if p.Kind != KindFolder {
		return ErrNotFolder
	}
	return nil
}

// Modify applies fn to a clone of the item and stores the result if fn
// returns nil. Renames are checked against siblings and reparenting is
// checked for existence, kind and cycles. ID and Kind are immutable.
func (t *Tree) Modify(id ksid.ID, fn func(*Item) error) (*Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, ok := t.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := old.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if next.ID != id {
		return nil, errors.New("item id is immutable")
	}
	if next.Kind != old.Kind {
		return nil, errors.New("item kind is immutable")
	}
	if next.Name != old.Name {
		if err := ValidateName(next.Name); err != nil {
			return nil, err
		}
	}
	if next.ParentID != old.ParentID {
		if err := t.checkParentLocked(next.ParentID); err != nil {
			return nil, err
		}
		if next.ParentID == id {
			return nil, ErrCycle
		}
		for _, anc := range t.ancestorsLocked(next.ParentID) {
			if anc == id {
				return nil, ErrCycle
			}
		}
	}
	if next.Name != old.Name || next.ParentID != old.ParentID {
		if s := t.siblingNamedLocked(next.ParentID, next.Name); s != nil && s.ID != id {
			return nil, fmt.Errorf("%w: %q", ErrNameTaken, next.Name)
		}
	}
	t.items[id] = next
	return next.Clone(), nil
}

// Subtree returns id and all its transitive descendants, collected by
// filtering on parent membership until a fixpoint is reached. Returns nil if
// id is absent.
func (t *Tree) Subtree(id ksid.ID) []ksid.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.subtreeLocked(id)
}

func (t *Tree) subtreeLocked(id ksid.ID) []ksid.ID {
	if _, ok := t.items[id]; !ok {
		return nil
	}
	collected := map[ksid.ID]bool{id: true}
	ids := []ksid.ID{id}
	for {
		added := false
		for _, it := range t.items {
			if !collected[it.ID] && collected[it.ParentID] {
				collected[it.ID] = true
				ids = append(ids, it.ID)
				added = true
			}
		}
		if !added {
			return ids
		}
	}
}

// RemoveSubtree deletes id and all its transitive descendants, returning the
// removed ids. Removing an absent id is a no-op and returns nil.
func (t *Tree) RemoveSubtree(id ksid.ID) []ksid.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.subtreeLocked(id)
	for _, rid := range ids {
		delete(t.items, rid)
	}
	return ids
}

// Replace swaps the whole collection, cloning every item. Duplicate ids keep
// the first occurrence. Dangling parent pointers are kept as-is; accessors
// tolerate them, so a damaged persisted document degrades instead of
// erroring out.
func (t *Tree) Replace(items []*Item) {
	next := make(map[ksid.ID]*Item, len(items))
	for _, it := range items {
		if it.ID.IsZero() {
			continue
		}
		if _, ok := next[it.ID]; ok {
			continue
		}
		next[it.ID] = it.Clone()
	}
	t.mu.Lock()
	t.items = next
	t.mu.Unlock()
}
