package vfs

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/maruel/ksid"
)

func newFolder(id, parent ksid.ID, name string) *Item {
	now := time.Now()
	return &Item{ID: id, ParentID: parent, Name: name, Kind: KindFolder, Created: now, Modified: now}
}

func newFile(id, parent ksid.ID, name, content string) *Item {
	now := time.Now()
	return &Item{ID: id, ParentID: parent, Name: name, Kind: KindFile, Content: content, ContentLoaded: true, Created: now, Modified: now}
}

func TestTree_Insert(t *testing.T) {
	tr := NewTree()
	folder := newFolder(ksid.ID(1), 0, "journal")
	if err := tr.Insert(folder); err != nil {
		t.Fatalf("Insert folder failed: %v", err)
	}
	if err := tr.Insert(newFile(ksid.ID(2), folder.ID, "today.md", "")); err != nil {
		t.Fatalf("Insert file failed: %v", err)
	}
	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tr.Len())
	}

	// Duplicate id.
	if err := tr.Insert(newFile(ksid.ID(2), 0, "other.md", "")); err == nil {
		t.Error("Expected error for duplicate id")
	}

	// Missing parent.
	err := tr.Insert(newFile(ksid.ID(3), ksid.ID(99), "lost.md", ""))
	if !errors.Is(err, ErrParentNotFound) {
		t.Errorf("Insert with missing parent = %v, want ErrParentNotFound", err)
	}

	// File as parent.
	err = tr.Insert(newFile(ksid.ID(3), ksid.ID(2), "nested.md", ""))
	if !errors.Is(err, ErrNotFolder) {
		t.Errorf("Insert under a file = %v, want ErrNotFolder", err)
	}

	// Sibling name collision.
	err = tr.Insert(newFile(ksid.ID(3), folder.ID, "today.md", ""))
	if !errors.Is(err, ErrNameTaken) {
		t.Errorf("Insert duplicate name = %v, want ErrNameTaken", err)
	}

	// Same name under a different parent is fine.
	if err := tr.Insert(newFile(ksid.ID(3), 0, "today.md", "")); err != nil {
		t.Errorf("Insert same name in other folder failed: %v", err)
	}
}

func TestTree_InsertInvalidNames(t *testing.T) {
	tr := NewTree()
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := tr.Insert(newFile(ksid.NewID(), 0, name, "")); err == nil {
			t.Errorf("Insert(%q) expected error", name)
		}
	}
}

func TestTree_GetReturnsClone(t *testing.T) {
	tr := NewTree()
	if err := tr.Insert(newFile(ksid.ID(1), 0, "a.md", "body")); err != nil {
		t.Fatal(err)
	}
	got, ok := tr.Get(ksid.ID(1))
	if !ok {
		t.Fatal("Get returned false")
	}
	got.Name = "mutated.md"
	again, _ := tr.Get(ksid.ID(1))
	if again.Name != "a.md" {
		t.Errorf("Name = %q, stored item was mutated through a clone", again.Name)
	}
}

func TestTree_ChildrenOfOrdering(t *testing.T) {
	tr := NewTree()
	root := newFolder(ksid.ID(1), 0, "vault")
	if err := tr.Insert(root); err != nil {
		t.Fatal(err)
	}
	// Inserted out of order on purpose.
	for _, it := range []*Item{
		newFile(ksid.ID(10), root.ID, "gamma.md", ""),
		newFolder(ksid.ID(11), root.ID, "zebra"),
		newFile(ksid.ID(12), root.ID, "alpha.md", ""),
		newFolder(ksid.ID(13), root.ID, "attic"),
		newFile(ksid.ID(14), root.ID, "Beta.md", ""),
	} {
		if err := tr.Insert(it); err != nil {
			t.Fatal(err)
		}
	}

	var names []string
	for _, c := range tr.ChildrenOf(root.ID) {
		names = append(names, c.Name)
	}
	want := []string{"attic", "zebra", "alpha.md", "Beta.md", "gamma.md"}
	if !slices.Equal(names, want) {
		t.Errorf("ChildrenOf order = %v, want %v", names, want)
	}

	// Ordering is deterministic across calls.
	var again []string
	for _, c := range tr.ChildrenOf(root.ID) {
		again = append(again, c.Name)
	}
	if !slices.Equal(names, again) {
		t.Errorf("ChildrenOf not stable: %v then %v", names, again)
	}
}

func TestTree_ChildrenOfRoot(t *testing.T) {
	tr := NewTree()
	if err := tr.Insert(newFile(ksid.ID(1), 0, "top.md", "")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(newFolder(ksid.ID(2), 0, "docs")); err != nil {
		t.Fatal(err)
	}
	roots := tr.ChildrenOf(0)
	if len(roots) != 2 {
		t.Fatalf("len(ChildrenOf(0)) = %d, want 2", len(roots))
	}
	if roots[0].Name != "docs" {
		t.Errorf("First root = %q, want folder before file", roots[0].Name)
	}
}

func TestTree_AncestorsOf(t *testing.T) {
	tr := NewTree()
	a := newFolder(ksid.ID(1), 0, "a")
	b := newFolder(ksid.ID(2), a.ID, "b")
	c := newFile(ksid.ID(3), b.ID, "c.md", "")
	for _, it := range []*Item{a, b, c} {
		if err := tr.Insert(it); err != nil {
			t.Fatal(err)
		}
	}
	got := tr.AncestorsOf(c.ID)
	want := []ksid.ID{b.ID, a.ID}
	if !slices.Equal(got, want) {
		t.Errorf("AncestorsOf = %v, want %v", got, want)
	}
	if anc := tr.AncestorsOf(a.ID); len(anc) != 0 {
		t.Errorf("AncestorsOf(root item) = %v, want empty", anc)
	}
}

func TestTree_PathOf(t *testing.T) {
	tr := NewTree()
	a := newFolder(ksid.ID(1), 0, "a")
	b := newFolder(ksid.ID(2), a.ID, "b")
	c := newFile(ksid.ID(3), b.ID, "c.md", "")
	for _, it := range []*Item{a, b, c} {
		if err := tr.Insert(it); err != nil {
			t.Fatal(err)
		}
	}
	if got := tr.PathOf(c.ID); !slices.Equal(got, []string{"a", "b", "c.md"}) {
		t.Errorf("PathOf = %v", got)
	}
	if got := tr.PathOf(ksid.ID(99)); got != nil {
		t.Errorf("PathOf(absent) = %v, want nil", got)
	}
}

func TestTree_Modify(t *testing.T) {
	tr := NewTree()
	folder := newFolder(ksid.ID(1), 0, "notes")
	file := newFile(ksid.ID(2), folder.ID, "a.md", "old")
	other := newFile(ksid.ID(3), folder.ID, "b.md", "")
	for _, it := range []*Item{folder, file, other} {
		if err := tr.Insert(it); err != nil {
			t.Fatal(err)
		}
	}

	updated, err := tr.Modify(file.ID, func(it *Item) error {
		it.Content = "new"
		it.Modified = it.Modified.Add(time.Second)
		return nil
	})
	if err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
	if updated.Content != "new" {
		t.Errorf("Content = %q, want %q", updated.Content, "new")
	}

	// Rename onto a sibling.
	_, err = tr.Modify(file.ID, func(it *Item) error {
		it.Name = "b.md"
		return nil
	})
	if !errors.Is(err, ErrNameTaken) {
		t.Errorf("Rename onto sibling = %v, want ErrNameTaken", err)
	}

	// Rename to itself is allowed.
	if _, err := tr.Modify(file.ID, func(it *Item) error {
		it.Name = "a.md"
		return nil
	}); err != nil {
		t.Errorf("No-op rename failed: %v", err)
	}

	// Kind is immutable.
	if _, err := tr.Modify(file.ID, func(it *Item) error {
		it.Kind = KindFolder
		return nil
	}); err == nil {
		t.Error("Expected error when changing kind")
	}

	if _, err := tr.Modify(ksid.ID(99), func(*Item) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Modify absent = %v, want ErrNotFound", err)
	}
}

func TestTree_ModifyCycle(t *testing.T) {
	tr := NewTree()
	a := newFolder(ksid.ID(1), 0, "a")
	b := newFolder(ksid.ID(2), a.ID, "b")
	c := newFolder(ksid.ID(3), b.ID, "c")
	for _, it := range []*Item{a, b, c} {
		if err := tr.Insert(it); err != nil {
			t.Fatal(err)
		}
	}

	// a cannot move under its grandchild c.
	_, err := tr.Modify(a.ID, func(it *Item) error {
		it.ParentID = c.ID
		return nil
	})
	if !errors.Is(err, ErrCycle) {
		t.Errorf("Move under descendant = %v, want ErrCycle", err)
	}

	// a cannot become its own parent.
	_, err = tr.Modify(a.ID, func(it *Item) error {
		it.ParentID = a.ID
		return nil
	})
	if !errors.Is(err, ErrCycle) {
		t.Errorf("Move under itself = %v, want ErrCycle", err)
	}

	// Moving c to the root is fine.
	if _, err := tr.Modify(c.ID, func(it *Item) error {
		it.ParentID = 0
		return nil
	}); err != nil {
		t.Errorf("Move to root failed: %v", err)
	}
}

func TestTree_Subtree(t *testing.T) {
	tr := NewTree()
	a := newFolder(ksid.ID(1), 0, "a")
	b := newFolder(ksid.ID(2), a.ID, "b")
	c := newFile(ksid.ID(3), b.ID, "c.md", "")
	d := newFile(ksid.ID(4), a.ID, "d.md", "")
	e := newFile(ksid.ID(5), 0, "outside.md", "")
	for _, it := range []*Item{a, b, c, d, e} {
		if err := tr.Insert(it); err != nil {
			t.Fatal(err)
		}
	}

	ids := tr.Subtree(a.ID)
	if len(ids) != 4 {
		t.Fatalf("len(Subtree) = %d, want 4", len(ids))
	}
	if ids[0] != a.ID {
		t.Errorf("Subtree[0] = %v, want the root of the subtree", ids[0])
	}
	if slices.Contains(ids, e.ID) {
		t.Error("Subtree contains an unrelated item")
	}

	if got := tr.Subtree(ksid.ID(99)); got != nil {
		t.Errorf("Subtree(absent) = %v, want nil", got)
	}
}

func TestTree_RemoveSubtree(t *testing.T) {
	tr := NewTree()
	a := newFolder(ksid.ID(1), 0, "a")
	b := newFolder(ksid.ID(2), a.ID, "b")
	c := newFile(ksid.ID(3), b.ID, "c.md", "")
	d := newFile(ksid.ID(4), 0, "keep.md", "")
	for _, it := range []*Item{a, b, c, d} {
		if err := tr.Insert(it); err != nil {
			t.Fatal(err)
		}
	}

	removed := tr.RemoveSubtree(a.ID)
	if len(removed) != 3 {
		t.Errorf("removed %d items, want 3", len(removed))
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
	if _, ok := tr.Get(d.ID); !ok {
		t.Error("Unrelated item was removed")
	}

	// Deleting again is a no-op.
	if again := tr.RemoveSubtree(a.ID); again != nil {
		t.Errorf("Second RemoveSubtree = %v, want nil", again)
	}
	if tr.Len() != 1 {
		t.Errorf("Len() after repeat = %d, want 1", tr.Len())
	}
}

func TestTree_Replace(t *testing.T) {
	tr := NewTree()
	if err := tr.Insert(newFile(ksid.ID(1), 0, "stale.md", "")); err != nil {
		t.Fatal(err)
	}

	tr.Replace([]*Item{
		newFolder(ksid.ID(10), 0, "fresh"),
		newFile(ksid.ID(11), ksid.ID(10), "a.md", ""),
		newFile(ksid.ID(11), 0, "dupe.md", ""), // duplicate id, first wins
		newFile(ksid.ID(12), ksid.ID(77), "dangling.md", ""),
	})

	if tr.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tr.Len())
	}
	if _, ok := tr.Get(ksid.ID(1)); ok {
		t.Error("Replace kept an item from the previous collection")
	}
	it, _ := tr.Get(ksid.ID(11))
	if it.Name != "a.md" {
		t.Errorf("Duplicate id resolved to %q, want first occurrence", it.Name)
	}
	// The dangling item survives but never shows up under a real parent.
	if _, ok := tr.Get(ksid.ID(12)); !ok {
		t.Error("Item with dangling parent was dropped")
	}
	if n := len(tr.ChildrenOf(ksid.ID(10))); n != 1 {
		t.Errorf("ChildrenOf(fresh) = %d items, want 1", n)
	}
}
