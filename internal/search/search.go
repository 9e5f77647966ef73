// Package search filters the item tree by name with case-insensitive
// substring matching, producing rune-indexed highlight spans and the set of
// folders to hold open so every match stays visible.
package search

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/vfs"
)

// Span is a half-open [Start, End) range of rune indices into an item name.
// Rune indices survive multi-byte names; byte offsets would not.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Match is one matching item with its highlight spans.
type Match struct {
	Item  *vfs.Item `json:"item"`
	Spans []Span    `json:"spans,omitempty"`
}

// Result is the outcome of a query over the tree.
type Result struct {
	Query   string   `json:"query"`
	Matches []*Match `json:"matches"`
	// ExpandIDs are the folders that must stay open so every match is
	// visible, ordered by id.
	ExpandIDs []ksid.ID `json:"expand_ids,omitempty"`
}

// Find returns the items whose name contains query, in display order. Only
// folders and notes participate; images and other files never match. An
// empty query matches everything with no spans.
func Find(t *vfs.Tree, query string) *Result {
	res := &Result{Query: query, Matches: []*Match{}}
	q := lowerRunes(strings.TrimSpace(query))
	expand := make(map[ksid.ID]bool)

	var walk func(parent ksid.ID)
	walk = func(parent ksid.ID) {
		for _, it := range t.ChildrenOf(parent) {
			if it.IsFolder() || it.IsNote() {
				if spans := findSpans(it.Name, q); spans != nil || len(q) == 0 {
					res.Matches = append(res.Matches, &Match{Item: it, Spans: spans})
					for _, anc := range t.AncestorsOf(it.ID) {
						expand[anc] = true
					}
				}
			}
			if it.IsFolder() {
				walk(it.ID)
			}
		}
	}
	walk(0)

	if len(q) > 0 {
		for id := range expand {
			res.ExpandIDs = append(res.ExpandIDs, id)
		}
		slices.SortFunc(res.ExpandIDs, func(a, b ksid.ID) int { return cmp.Compare(a, b) })
	}
	return res
}

// findSpans returns the non-overlapping occurrences of q in name, or nil
// when there are none. q must already be lowercased.
func findSpans(name string, q []rune) []Span {
	if len(q) == 0 {
		return nil
	}
	n := lowerRunes(name)
	var spans []Span
	for i := 0; i+len(q) <= len(n); {
		if equalRunes(n[i:i+len(q)], q) {
			spans = append(spans, Span{Start: i, End: i + len(q)})
			i += len(q)
			continue
		}
		i++
	}
	return spans
}

// lowerRunes lowercases per rune. unicode.ToLower maps one rune to one rune,
// so span indices computed on the lowered form hold for the original.
func lowerRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
