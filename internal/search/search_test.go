package search

import (
	"slices"
	"testing"

	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/vfs"
)

func buildTree(t *testing.T) (*vfs.Tree, map[string]ksid.ID) {
	t.Helper()
	tree := vfs.NewTree()
	ids := make(map[string]ksid.ID)
	add := func(parent, name string, kind vfs.Kind) {
		it := &vfs.Item{ID: ksid.NewID(), Name: name, Kind: kind, ContentLoaded: true}
		if parent != "" {
			it.ParentID = ids[parent]
		}
		if err := tree.Insert(it); err != nil {
			t.Fatalf("Insert(%q) failed: %v", name, err)
		}
		ids[name] = it.ID
	}
	add("", "Projects", vfs.KindFolder)
	add("Projects", "deep", vfs.KindFolder)
	add("deep", "Roadmap.md", vfs.KindFile)
	add("Projects", "readme.md", vfs.KindFile)
	add("", "README.md", vfs.KindFile)
	add("", "shot-readme.png", vfs.KindFile)
	add("", "日記 2024.md", vfs.KindFile)
	return tree, ids
}

func names(res *Result) []string {
	out := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		out = append(out, m.Item.Name)
	}
	return out
}

func TestFind_CaseInsensitive(t *testing.T) {
	t.Parallel()
	tree, ids := buildTree(t)

	res := Find(tree, "ReadMe")
	got := names(res)
	want := []string{"readme.md", "README.md"}
	if !slices.Equal(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
	// shot-readme.png contains the query but images never participate.
	for _, n := range got {
		if n == "shot-readme.png" {
			t.Error("image matched the name filter")
		}
	}

	// readme.md sits under Projects, which must be held open.
	if !slices.Contains(res.ExpandIDs, ids["Projects"]) {
		t.Errorf("ExpandIDs = %v, missing Projects", res.ExpandIDs)
	}
}

func TestFind_Spans(t *testing.T) {
	t.Parallel()
	tree, _ := buildTree(t)

	res := Find(tree, "read")
	for _, m := range res.Matches {
		if len(m.Spans) != 1 {
			t.Fatalf("%q: got %d spans, want 1", m.Item.Name, len(m.Spans))
		}
		if s := m.Spans[0]; s.Start != 0 || s.End != 4 {
			t.Errorf("%q: span = %+v, want [0,4)", m.Item.Name, s)
		}
	}
}

func TestFind_MultiByteSpans(t *testing.T) {
	t.Parallel()
	tree, _ := buildTree(t)

	res := Find(tree, "日記")
	if len(res.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(res.Matches))
	}
	spans := res.Matches[0].Spans
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	// Rune indices: the name starts with the two matched runes.
	if spans[0].Start != 0 || spans[0].End != 2 {
		t.Errorf("span = %+v, want [0,2)", spans[0])
	}
}

func TestFind_RepeatedOccurrences(t *testing.T) {
	t.Parallel()
	tree := vfs.NewTree()
	it := &vfs.Item{ID: ksid.NewID(), Name: "aaaa.md", Kind: vfs.KindFile}
	if err := tree.Insert(it); err != nil {
		t.Fatal(err)
	}

	res := Find(tree, "aa")
	if len(res.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(res.Matches))
	}
	want := []Span{{Start: 0, End: 2}, {Start: 2, End: 4}}
	if !slices.Equal(res.Matches[0].Spans, want) {
		t.Errorf("spans = %v, want non-overlapping %v", res.Matches[0].Spans, want)
	}
}

func TestFind_DeepAncestors(t *testing.T) {
	t.Parallel()
	tree, ids := buildTree(t)

	res := Find(tree, "roadmap")
	if len(res.Matches) != 1 || res.Matches[0].Item.Name != "Roadmap.md" {
		t.Fatalf("matches = %v", names(res))
	}
	for _, folder := range []string{"Projects", "deep"} {
		if !slices.Contains(res.ExpandIDs, ids[folder]) {
			t.Errorf("ExpandIDs missing %q", folder)
		}
	}
}

func TestFind_EmptyQuery(t *testing.T) {
	t.Parallel()
	tree, _ := buildTree(t)

	res := Find(tree, "")
	// Everything except the image: 2 folders + 4 notes.
	if len(res.Matches) != 6 {
		t.Fatalf("got %d matches, want 6", len(res.Matches))
	}
	for _, m := range res.Matches {
		if len(m.Spans) != 0 {
			t.Errorf("%q: empty query must not produce spans", m.Item.Name)
		}
	}
	if len(res.ExpandIDs) != 0 {
		t.Errorf("empty query should not force folders open, got %v", res.ExpandIDs)
	}

	// Whitespace-only behaves like empty.
	if got := Find(tree, "   "); len(got.Matches) != 6 {
		t.Errorf("whitespace query: got %d matches, want 6", len(got.Matches))
	}
}

func TestFind_NoMatch(t *testing.T) {
	t.Parallel()
	tree, _ := buildTree(t)

	res := Find(tree, "zzz-nothing")
	if len(res.Matches) != 0 {
		t.Errorf("matches = %v, want none", names(res))
	}
	if len(res.ExpandIDs) != 0 {
		t.Errorf("ExpandIDs = %v, want none", res.ExpandIDs)
	}
}

func TestFind_FolderMatches(t *testing.T) {
	t.Parallel()
	tree, _ := buildTree(t)

	res := Find(tree, "projects")
	if len(res.Matches) != 1 || res.Matches[0].Item.Name != "Projects" {
		t.Fatalf("matches = %v, want [Projects]", names(res))
	}
}
