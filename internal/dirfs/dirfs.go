// Package dirfs defines the directory-handle capability that the disk vault
// mode is built on: hierarchical handles obtained from a user-granted root,
// per-entry operations, and an explicit permission model.
//
// The surface is deliberately narrow. There is no rename and no path-based
// access; everything goes through handles, and a handle can go stale when
// the entry behind it is removed or replaced. Callers that need to rename a
// directory must create, copy and delete.
package dirfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a named entry does not exist or a handle
	// has gone stale.
	ErrNotFound = errors.New("entry not found")
	// ErrCancelled is returned by a Picker when the user dismisses the
	// directory selection. It is an expected outcome, not a failure.
	ErrCancelled = errors.New("directory selection cancelled")
	// ErrPermissionDenied is returned when the grant does not cover the
	// requested access.
	ErrPermissionDenied = errors.New("permission denied")
)

// Mode is the access level of a permission query.
type Mode string

const (
	// ModeRead grants enumeration and reads.
	ModeRead Mode = "read"
	// ModeReadWrite additionally grants creates, writes and removes.
	ModeReadWrite Mode = "readwrite"
)

// Permission is the state of a grant.
type Permission string

const (
	// PermissionGranted means the access is allowed.
	PermissionGranted Permission = "granted"
	// PermissionDenied means the access is not allowed.
	PermissionDenied Permission = "denied"
	// PermissionPrompt means the user has to be asked again.
	PermissionPrompt Permission = "prompt"
)

// Entry is one row of a directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// Dir is a handle to a directory.
type Dir interface {
	// Name returns the entry name of the directory.
	Name() string
	// List enumerates the direct entries in no particular order.
	List(ctx context.Context) ([]Entry, error)
	// Dir opens an existing subdirectory.
	Dir(ctx context.Context, name string) (Dir, error)
	// File opens an existing file.
	File(ctx context.Context, name string) (File, error)
	// CreateDir opens the named subdirectory, creating it if absent.
	CreateDir(ctx context.Context, name string) (Dir, error)
	// CreateFile opens the named file, creating it empty if absent.
	CreateFile(ctx context.Context, name string) (File, error)
	// Remove deletes the named entry. Non-empty directories require
	// recursive.
	Remove(ctx context.Context, name string, recursive bool) error
}

// File is a handle to a file.
type File interface {
	// Name returns the entry name of the file.
	Name() string
	// Read returns the whole content.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the whole content.
	Write(ctx context.Context, data []byte) error
}

// Root is the directory handle produced by a grant. It carries the
// permission surface in addition to the plain Dir operations.
type Root interface {
	Dir
	// Permission reports the current grant state for mode.
	Permission(ctx context.Context, mode Mode) (Permission, error)
	// RequestPermission asks for the grant and reports the outcome.
	RequestPermission(ctx context.Context, mode Mode) (Permission, error)
}

// Pather is implemented by handles that live on the local filesystem and
// can expose their absolute path. Filesystem watchers and version control
// need the real path; handles from other sources simply don't implement it.
type Pather interface {
	Path() string
}

// Picker obtains a Root from the user. Implementations return ErrCancelled
// when the selection is dismissed.
type Picker interface {
	PickDirectory(ctx context.Context) (Root, error)
}

// PickerFunc adapts a function to the Picker interface.
type PickerFunc func(ctx context.Context) (Root, error)

// PickDirectory implements Picker.
func (f PickerFunc) PickDirectory(ctx context.Context) (Root, error) {
	return f(ctx)
}

// validName rejects entry names that would escape the handle.
func validName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid entry name %q", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid entry name %q", name)
	}
	return nil
}
