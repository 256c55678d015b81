// Package depstore persists dependency records next to their targets.
package depstore

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/core/ports"
)

// Suffix is appended to a target path to name its dependency record.
const Suffix = ".dep"

// Store implements ports.DependencyStore as "<target>.dep" files beside the
// targets they describe.
type Store struct{}

// NewStore creates the file-based dependency store.
func NewStore() *Store {
	return &Store{}
}

// Load implements ports.DependencyStore. A missing record surfaces the
// underlying fs.ErrNotExist so callers can distinguish "never built" from a
// real read failure.
func (s *Store) Load(targetPath string) ([]byte, error) {
	blob, err := os.ReadFile(targetPath + Suffix)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read dependency record"), "target", targetPath)
	}
	return blob, nil
}

// Store implements ports.DependencyStore.
func (s *Store) Store(targetPath string, blob []byte) error {
	path := targetPath + Suffix
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create dependency record directory"), "target", targetPath)
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write dependency record"), "target", targetPath)
	}
	return nil
}

var _ ports.DependencyStore = (*Store)(nil)
