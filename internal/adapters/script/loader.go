// Package script implements the YAML build-script loader.
package script

import (
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/donno/cake/internal/core/domain"
	"github.com/donno/cake/internal/core/ports"
)

// Loader implements ports.ScriptLoader for YAML scripts. Parsed scripts are
// cached by content checksum, so watch-mode reruns only reparse files that
// actually changed.
type Loader struct {
	mu    sync.Mutex
	cache map[string]*domain.ScriptFile
}

// NewLoader creates a script loader with an empty cache.
func NewLoader() *Loader {
	return &Loader{cache: make(map[string]*domain.ScriptFile)}
}

// Load implements ports.ScriptLoader.
func (l *Loader) Load(path string) (*domain.ScriptFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read script"), "path", path)
	}
	checksum := xxhash.Sum64(raw)

	l.mu.Lock()
	cached, ok := l.cache[path]
	l.mu.Unlock()
	if ok && cached.Checksum == checksum {
		return cached, nil
	}

	var schema fileSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse script"), "path", path)
	}

	file := &domain.ScriptFile{
		Path:     path,
		Checksum: checksum,
		Vars:     schema.Vars,
		Steps:    make([]domain.Step, len(schema.Steps)),
	}
	if file.Vars == nil {
		file.Vars = make(map[string]string)
	}
	for i, step := range schema.Steps {
		file.Steps[i] = step.step
	}

	l.mu.Lock()
	l.cache[path] = file
	l.mu.Unlock()
	return file, nil
}

var _ ports.ScriptLoader = (*Loader)(nil)
