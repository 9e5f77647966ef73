package storage

import (
	"slices"
	"strings"

	"github.com/notefs/notefs/internal/vfs"
)

// viewState is the view carried across a rescan. Directory scans mint fresh
// ids, so the selection and the set of open folders survive by path, not by
// id. Names cannot contain separators, which makes the joined form
// unambiguous.
type viewState struct {
	activePath    string
	expandedPaths []string
}

// rewritePrefix retargets every captured path below oldPrefix, for renames
// and moves that relocate a whole subtree before the rescan.
func (vs *viewState) rewritePrefix(oldPrefix, newPrefix string) {
	vs.activePath = rewritePath(vs.activePath, oldPrefix, newPrefix)
	for i, p := range vs.expandedPaths {
		vs.expandedPaths[i] = rewritePath(p, oldPrefix, newPrefix)
	}
}

func rewritePath(p, oldPrefix, newPrefix string) string {
	if p == oldPrefix {
		return newPrefix
	}
	if strings.HasPrefix(p, oldPrefix+"/") {
		return newPrefix + p[len(oldPrefix):]
	}
	return p
}

// captureViewLocked snapshots the selection and the open folders by path.
func (v *Vault) captureViewLocked() viewState {
	var vs viewState
	if !v.activeID.IsZero() {
		vs.activePath = v.pathLocked(v.activeID)
	}
	for _, it := range slices.Collect(v.tree.All()) {
		if it.IsFolder() && it.Expanded {
			vs.expandedPaths = append(vs.expandedPaths, v.pathLocked(it.ID))
		}
	}
	return vs
}

// applyViewLocked restores a captured view onto the freshly loaded tree.
// Paths that no longer exist are dropped silently.
func (v *Vault) applyViewLocked(vs viewState) {
	byPath := make(map[string]*vfs.Item)
	for _, it := range slices.Collect(v.tree.All()) {
		byPath[v.pathLocked(it.ID)] = it
	}
	for _, p := range vs.expandedPaths {
		it, ok := byPath[p]
		if !ok || !it.IsFolder() {
			continue
		}
		_, _ = v.tree.Modify(it.ID, func(n *vfs.Item) error {
			n.Expanded = true
			return nil
		})
	}
	v.activeID = 0
	if vs.activePath != "" {
		if it, ok := byPath[vs.activePath]; ok {
			v.activeID = it.ID
		}
	}
}
