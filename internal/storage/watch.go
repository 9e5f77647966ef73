package storage

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/notefs/notefs/internal/debounce"
)

// vaultWatcher turns raw filesystem events under the vault root into a
// single debounced change notification. Events under dot-directories are
// ignored, so version-control churn never triggers a rescan.
type vaultWatcher struct {
	w        *fsnotify.Watcher
	deb      *debounce.Debouncer
	rootPath string
	done     chan struct{}
}

func newVaultWatcher(rootPath string, delay time.Duration, onChange func()) (*vaultWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	vw := &vaultWatcher{
		w:        w,
		rootPath: rootPath,
		done:     make(chan struct{}),
	}
	vw.deb = debounce.New(delay, func() {
		onChange()
		// New directories may have appeared; cover them too.
		vw.addTree()
	})
	vw.addTree()
	go vw.loop()
	return vw, nil
}

// addTree registers the root and every non-hidden directory below it.
// Re-adding an already watched directory is harmless.
func (vw *vaultWatcher) addTree() {
	err := filepath.WalkDir(vw.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // entries can vanish mid-walk
		}
		if !d.IsDir() {
			return nil
		}
		if path != vw.rootPath && vw.hiddenPath(path) {
			return filepath.SkipDir
		}
		if err := vw.w.Add(path); err != nil {
			slog.Warn("Failed to watch vault directory", "err", err, "path", path)
		}
		return nil
	})
	if err != nil {
		slog.Warn("Failed to walk vault directory", "err", err, "path", vw.rootPath)
	}
}

// hiddenPath reports whether any component below the root starts with a
// dot.
func (vw *vaultWatcher) hiddenPath(path string) bool {
	rel, err := filepath.Rel(vw.rootPath, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func (vw *vaultWatcher) loop() {
	for {
		select {
		case <-vw.done:
			return
		case event, ok := <-vw.w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) {
				continue
			}
			if vw.hiddenPath(event.Name) {
				continue
			}
			vw.deb.Trigger()
		case err, ok := <-vw.w.Errors:
			if !ok {
				return
			}
			slog.Warn("Error watching vault directory", "err", err)
		}
	}
}

func (vw *vaultWatcher) stop() {
	close(vw.done)
	_ = vw.w.Close()
	vw.deb.Stop()
}
