// Package watcher implements file system watching for watch-mode rebuilds.
package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/donno/cake/internal/core/ports"
)

// skipDirectories are directory names never watched.
var skipDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

const eventBuffer = 100

// Watcher implements ports.Watcher on fsnotify, watching a directory tree
// recursively and following newly created directories.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	events    chan ports.WatchEvent
}

// NewWatcher creates a file system watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fw,
		events:    make(chan ports.WatchEvent, eventBuffer),
	}, nil
}

// Start implements ports.Watcher.
func (w *Watcher) Start(ctx context.Context, root string) error {
	for dir := range directoriesUnder(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}
	go w.processEvents(ctx)
	return nil
}

// Stop implements ports.Watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events implements ports.Watcher.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			converted, ok := convertEvent(event)
			if !ok {
				continue
			}
			select {
			case w.events <- converted:
			case <-ctx.Done():
				return
			}
			if converted.Operation == ports.OpCreate {
				w.followNewDirectory(event.Name)
			}
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// followNewDirectory adds a freshly created directory tree to the watch set.
func (w *Watcher) followNewDirectory(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || skipDirectories[info.Name()] {
		return
	}
	for dir := range directoriesUnder(path) {
		_ = w.fsWatcher.Add(dir)
	}
}

func directoriesUnder(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped, not fatal.
				return nil //nolint:nilerr
			}
			if !d.IsDir() {
				return nil
			}
			if skipDirectories[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	switch {
	case event.Op.Has(fsnotify.Write):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpWrite}, true
	case event.Op.Has(fsnotify.Create):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpCreate}, true
	case event.Op.Has(fsnotify.Remove):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRemove}, true
	case event.Op.Has(fsnotify.Rename):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRename}, true
	}
	return ports.WatchEvent{}, false
}

var _ ports.Watcher = (*Watcher)(nil)
