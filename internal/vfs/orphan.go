package vfs

import (
	"context"
	"log/slog"
	"strings"

	"github.com/maruel/ksid"
)

// ContentLoader materializes the content of a note that has not been read
// yet. Implementations come from the storage backends.
type ContentLoader func(ctx context.Context, it *Item) (string, error)

// ScanReport is the outcome of an orphaned-asset scan.
type ScanReport struct {
	// Orphans are image items not referenced by any sibling note, in no
	// particular order.
	Orphans []*Item
	// SkippedScopes are the folder ids whose notes could not be loaded.
	// Assets in those folders are never classified as orphaned.
	SkippedScopes []ksid.ID
}

// ScanOrphans classifies every image asset as referenced or orphaned.
//
// The scan is scoped per containing folder: an asset counts as referenced
// when its name occurs as a literal substring in the concatenated content of
// the sibling notes. Markdown links, wiki links, raw text, all match; a
// rename of the asset elsewhere does not. Folders without assets are not
// scanned at all, so their notes are never loaded. A folder whose notes
// fail to load is skipped and reported rather than having its assets
// misclassified.
func ScanOrphans(ctx context.Context, t *Tree, load ContentLoader) (*ScanReport, error) {
	type scope struct {
		notes  []*Item
		assets []*Item
	}
	scopes := make(map[ksid.ID]*scope)
	for it := range t.All() {
		if it.Kind != KindFile {
			continue
		}
		sc := scopes[it.ParentID]
		if sc == nil {
			sc = &scope{}
			scopes[it.ParentID] = sc
		}
		switch {
		case it.IsNote():
			sc.notes = append(sc.notes, it)
		case it.IsImage():
			sc.assets = append(sc.assets, it)
		}
	}

	rep := &ScanReport{}
	for parent, sc := range scopes {
		if len(sc.assets) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var corpus strings.Builder
		skip := false
		for _, note := range sc.notes {
			content := note.Content
			if !note.ContentLoaded && load != nil {
				loaded, err := load(ctx, note)
				if err != nil {
					slog.WarnContext(ctx, "Skipping folder in asset scan, note failed to load", "err", err, "note", note.Name, "parent", parent)
					skip = true
					break
				}
				content = loaded
			}
			corpus.WriteString(content)
			corpus.WriteString("\n")
		}
		if skip {
			rep.SkippedScopes = append(rep.SkippedScopes, parent)
			continue
		}
		text := corpus.String()
		for _, asset := range sc.assets {
			if !strings.Contains(text, asset.Name) {
				rep.Orphans = append(rep.Orphans, asset)
			}
		}
	}
	return rep, nil
}
