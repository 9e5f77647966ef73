package storage

import (
	"fmt"
	"path"
	"strings"
)

// UniqueName returns name unchanged when taken reports it free, otherwise
// the first "name (n)" variant that is free, with the counter inserted
// before the extension: "note.md" becomes "note (1).md".
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		// Dotfile-style names keep the counter at the end.
		stem, ext = name, ""
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}
