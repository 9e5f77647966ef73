package dirfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// osDir is a Dir over a real directory. Handles hold the absolute path that
// was valid when they were opened; if the entry is removed or swapped, later
// operations fail, which is exactly the stale-handle behavior callers must
// cope with.
type osDir struct {
	path string
	name string
}

// osFile is a File over a real file.
type osFile struct {
	path string
	name string
}

// OpenRoot opens path as a granted root directory.
func OpenRoot(path string) (Root, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", path)
	}
	return &osRoot{osDir{path: abs, name: filepath.Base(abs)}}, nil
}

func (d *osDir) Name() string { return d.name }

// Path implements Pather.
func (d *osDir) Path() string { return d.path }

func (d *osDir) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, d.name)
		}
		return nil, fmt.Errorf("failed to list %q: %w", d.name, err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{Name: r.Name(), IsDir: r.IsDir()})
	}
	return entries, nil
}

func (d *osDir) Dir(ctx context.Context, name string) (Dir, error) {
	if err := d.check(ctx, name); err != nil {
		return nil, err
	}
	p := filepath.Join(d.path, name)
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", name)
	}
	return &osDir{path: p, name: name}, nil
}

func (d *osDir) File(ctx context.Context, name string) (File, error) {
	if err := d.check(ctx, name); err != nil {
		return nil, err
	}
	p := filepath.Join(d.path, name)
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q is a directory", name)
	}
	return &osFile{path: p, name: name}, nil
}

func (d *osDir) CreateDir(ctx context.Context, name string) (Dir, error) {
	if err := d.check(ctx, name); err != nil {
		return nil, err
	}
	p := filepath.Join(d.path, name)
	if err := os.Mkdir(p, 0o750); err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create directory %q: %w", name, err)
		}
		info, statErr := os.Stat(p)
		if statErr != nil || !info.IsDir() {
			return nil, fmt.Errorf("%q exists and is not a directory", name)
		}
	}
	return &osDir{path: p, name: name}, nil
}

func (d *osDir) CreateFile(ctx context.Context, name string) (File, error) {
	if err := d.check(ctx, name); err != nil {
		return nil, err
	}
	p := filepath.Join(d.path, name)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o640) //nolint:gosec // G304: name is validated, path stays under the handle
	if err != nil {
		return nil, fmt.Errorf("failed to create file %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to create file %q: %w", name, err)
	}
	return &osFile{path: p, name: name}, nil
}

func (d *osDir) Remove(ctx context.Context, name string, recursive bool) error {
	if err := d.check(ctx, name); err != nil {
		return err
	}
	p := filepath.Join(d.path, name)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("failed to remove %q: %w", name, err)
	}
	if recursive {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("failed to remove %q: %w", name, err)
		}
		return nil
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to remove %q: %w", name, err)
	}
	return nil
}

func (d *osDir) check(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return validName(name)
}

func (f *osFile) Name() string { return f.name }

func (f *osFile) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, f.name)
		}
		return nil, fmt.Errorf("failed to read %q: %w", f.name, err)
	}
	return data, nil
}

func (f *osFile) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o640); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, f.name)
		}
		return fmt.Errorf("failed to write %q: %w", f.name, err)
	}
	return nil
}

// osRoot adds the permission surface to an osDir. A local process has no
// interactive grant flow, so the answer is derived from the directory mode
// bits and never "prompt".
type osRoot struct {
	osDir
}

func (r *osRoot) Permission(ctx context.Context, mode Mode) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDenied, err
	}
	info, err := os.Stat(r.path)
	if err != nil {
		return PermissionDenied, fmt.Errorf("failed to stat %q: %w", r.name, err)
	}
	perm := info.Mode().Perm()
	switch mode {
	case ModeRead:
		if perm&0o400 != 0 {
			return PermissionGranted, nil
		}
	case ModeReadWrite:
		if perm&0o600 == 0o600 {
			return PermissionGranted, nil
		}
	default:
		return PermissionDenied, fmt.Errorf("unknown mode %q", mode)
	}
	return PermissionDenied, nil
}

func (r *osRoot) RequestPermission(ctx context.Context, mode Mode) (Permission, error) {
	return r.Permission(ctx, mode)
}

// StaticPicker returns a Picker that always grants the same directory. An
// empty path models the user dismissing the prompt.
func StaticPicker(path string) Picker {
	return PickerFunc(func(ctx context.Context) (Root, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if path == "" {
			return nil, ErrCancelled
		}
		return OpenRoot(path)
	})
}
