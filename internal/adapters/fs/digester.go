// Package fs implements the file hashing adapters: strong content digests
// for dependency records and fast checksums for the script cache.
package fs

import (
	"crypto/sha256"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/core/ports"
)

// Digester implements ports.Digester with SHA-256. The engine caches digests
// by path and timestamp, so this reads the file every call.
type Digester struct{}

// NewDigester creates the SHA-256 digester.
func NewDigester() *Digester {
	return &Digester{}
}

// FileDigest implements ports.Digester.
func (d *Digester) FileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open file for digest"), "path", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read file for digest"), "path", path)
	}
	return h.Sum(nil), nil
}

var _ ports.Digester = (*Digester)(nil)

// Checksum returns the xxhash64 of the file's bytes. It is not collision
// resistant; use it only for cheap change detection, never for content
// addressing.
func Checksum(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file for checksum"), "path", path)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to read file for checksum"), "path", path)
	}
	return h.Sum64(), nil
}
