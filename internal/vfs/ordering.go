package vfs

import (
	"cmp"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sibling display order: folders before files, then locale-alphabetical by
// name. The collator keeps internal buffers, so comparisons are serialized.
var (
	collMu sync.Mutex
	coll   = collate.New(language.Und)
)

func compareNames(a, b string) int {
	collMu.Lock()
	defer collMu.Unlock()
	return coll.CompareString(a, b)
}

// SortSiblings sorts items in place into display order. Sibling names are
// unique, so the ID tiebreak only matters for items from different folders.
func SortSiblings(items []*Item) {
	slices.SortFunc(items, func(a, b *Item) int {
		if a.Kind != b.Kind {
			if a.Kind == KindFolder {
				return -1
			}
			return 1
		}
		if c := compareNames(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
