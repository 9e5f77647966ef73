package kvstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), 64)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return map[string]Store{
		"file":   fs,
		"memory": NewMemStore(64),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("vault"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(absent) = %v, want ErrNotFound", err)
			}
			if err := s.Set("vault", []byte(`{"items":[]}`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := s.Get("vault")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !bytes.Equal(got, []byte(`{"items":[]}`)) {
				t.Errorf("Get = %q", got)
			}

			// Overwrite.
			if err := s.Set("vault", []byte("v2")); err != nil {
				t.Fatalf("Set (overwrite) failed: %v", err)
			}
			got, _ = s.Get("vault")
			if string(got) != "v2" {
				t.Errorf("Get after overwrite = %q, want %q", got, "v2")
			}

			// Delete, then delete again.
			if err := s.Delete("vault"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := s.Get("vault"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete = %v, want ErrNotFound", err)
			}
			if err := s.Delete("vault"); err != nil {
				t.Errorf("Delete(absent) = %v, want nil", err)
			}
		})
	}
}

func TestStore_Quota(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set("k", make([]byte, 64)); err != nil {
				t.Fatalf("Set at quota failed: %v", err)
			}
			err := s.Set("k", make([]byte, 65))
			if !errors.Is(err, ErrQuotaExceeded) {
				t.Fatalf("Set over quota = %v, want ErrQuotaExceeded", err)
			}
			// The previous value is untouched.
			got, err := s.Get("k")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if len(got) != 64 {
				t.Errorf("len(Get) = %d, want 64", len(got))
			}
		})
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "a/b", "..", ".hidden", "sp ace"} {
				if err := s.Set(key, []byte("x")); err == nil {
					t.Errorf("Set(%q) expected error", key)
				}
			}
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("vault", []byte("persisted")); err != nil {
		t.Fatal(err)
	}

	again, err := NewFileStore(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := again.Get("vault")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "persisted" {
		t.Errorf("Get = %q, want %q", got, "persisted")
	}
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("vault", []byte("x")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Leftover temp file %q", e.Name())
		}
	}
}
