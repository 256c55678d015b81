package depstore_test

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/donno/cake/internal/adapters/depstore"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "out.o")
	blob := []byte("cdep-test-blob")

	s := depstore.NewStore()
	if err := s.Store(target, blob); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if _, err := os.Stat(target + depstore.Suffix); err != nil {
		t.Fatalf("record file not created: %v", err)
	}

	got, err := s.Load(target)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("Load() = %q, want %q", got, blob)
	}
}

func TestLoadMissingIsNotExist(t *testing.T) {
	_, err := depstore.NewStore().Load(filepath.Join(t.TempDir(), "never-built"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() missing record error = %v, want fs.ErrNotExist", err)
	}
}
