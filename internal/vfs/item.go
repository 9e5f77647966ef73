// Package vfs implements the virtual filesystem that backs a vault: a flat,
// id-keyed collection of items related by parent pointers, with deterministic
// child ordering, recursive subtree collection and orphaned-asset scanning.
package vfs

import (
	"path"
	"strings"
	"time"

	"github.com/maruel/ksid"
)

// Kind discriminates folders from files.
type Kind string

const (
	// KindFile is a leaf item: a note, an image or any other file.
	KindFile Kind = "file"
	// KindFolder is a container item.
	KindFolder Kind = "folder"
)

// Item is one entry of the virtual filesystem.
//
// ParentID is zero for root-level items. Identity lives here and only here;
// backends keep their own handle maps keyed by ID and never assign ids
// themselves.
type Item struct {
	ID       ksid.ID   `json:"id" jsonschema:"description=Unique item identifier"`
	ParentID ksid.ID   `json:"parent_id,omitempty" jsonschema:"description=Containing folder ID, zero at the root"`
	Name     string    `json:"name" jsonschema:"description=File or folder name, unique among siblings"`
	Kind     Kind      `json:"kind" jsonschema:"description=Item kind (file/folder)"`
	Content  string    `json:"content,omitempty" jsonschema:"description=Note markdown or asset data URI"`
	Created  time.Time `json:"created" jsonschema:"description=Item creation timestamp"`
	Modified time.Time `json:"modified" jsonschema:"description=Last modification timestamp"`
	Expanded bool      `json:"expanded,omitempty" jsonschema:"description=Folder expansion state in the tree view"`

	// ContentLoaded reports whether Content holds the real bytes. Directory
	// scans leave file contents behind until first read, so this is runtime
	// state and never serialized.
	ContentLoaded bool `json:"-"`
}

// Clone returns a copy of the Item.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}

// IsFolder reports whether the item is a container.
func (i *Item) IsFolder() bool {
	return i.Kind == KindFolder
}

// IsNote reports whether the item is a markdown file.
func (i *Item) IsNote() bool {
	return i.Kind == KindFile && IsNoteName(i.Name)
}

// IsImage reports whether the item is an image asset.
func (i *Item) IsImage() bool {
	return i.Kind == KindFile && IsImageName(i.Name)
}

// imageExts is the set of file extensions treated as image assets, for
// orphan scanning and sibling resolution.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".bmp":  true,
}

// IsNoteName reports whether name carries the markdown extension.
func IsNoteName(name string) bool {
	return strings.ToLower(path.Ext(name)) == ".md"
}

// IsImageName reports whether name carries one of the known image extensions.
func IsImageName(name string) bool {
	return imageExts[strings.ToLower(path.Ext(name))]
}
