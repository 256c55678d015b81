package ports

import (
	"context"
	"iter"
)

// WatchOp is the kind of file system change observed.
type WatchOp uint8

const (
	// OpCreate indicates a file or directory was created.
	OpCreate WatchOp = iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// WatchEvent is one observed file system change.
type WatchEvent struct {
	Path      string
	Operation WatchOp
}

// Watcher observes a directory tree for changes, driving watch-mode rebuilds.
type Watcher interface {
	// Start begins watching the root directory recursively.
	Start(ctx context.Context, root string) error
	// Stop stops the watcher and releases its resources.
	Stop() error
	// Events returns an iterator over observed changes. It ends when the
	// watcher stops or the start context is cancelled.
	Events() iter.Seq[WatchEvent]
}
