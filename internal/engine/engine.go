// Package engine implements the process-wide build coordinator: the variant
// registry, the file metadata caches, dependency-record bookkeeping, and the
// script execution table that deduplicates script runs per variant.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/core/domain"
	"github.com/donno/cake/internal/core/ports"
	"github.com/donno/cake/internal/engine/task"
)

// Config carries the collaborators and invocation settings for an Engine.
type Config struct {
	Logger    ports.Logger
	Digester  ports.Digester
	Store     ports.DependencyStore
	Loader    ports.ScriptLoader
	Telemetry ports.Telemetry

	// Jobs is the worker pool width. Values below one mean one.
	Jobs int
	// ForceBuild makes every dependency check report stale.
	ForceBuild bool
	// Context is the invocation context handed to tool subprocesses.
	Context context.Context
}

// Engine holds the singleton resources for one build invocation. One Engine
// exists per invocation; all caches die with it except whatever the script
// loader keeps across watch-mode runs.
type Engine struct {
	logger    ports.Logger
	digester  ports.Digester
	store     ports.DependencyStore
	loader    ports.ScriptLoader
	telemetry ports.Telemetry
	pool      *task.Pool
	force     bool
	ctx       context.Context

	variantMu sync.Mutex
	variants  map[string]*domain.Variant
	defaults  []*domain.Variant

	scriptMu sync.Mutex
	scripts  map[string]*domain.ScriptFile

	tsMu       sync.Mutex
	timestamps map[string]time.Time

	digestMu sync.Mutex
	digests  map[digestKey][]byte

	depMu    sync.Mutex
	depCache map[string]*domain.DependencyInfo

	execMu   sync.Mutex
	executed map[scriptKey]*Script
}

type digestKey struct {
	path string
	nano int64
}

// scriptKey identifies one script execution. The variant is keyed by
// identity: equal keyword sets on distinct variants are distinct executions.
type scriptKey struct {
	path    string
	variant *domain.Variant
}

// New creates an Engine for one build invocation.
func New(cfg Config) *Engine {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	telemetry := cfg.Telemetry
	return &Engine{
		logger:     cfg.Logger,
		digester:   cfg.Digester,
		store:      cfg.Store,
		loader:     cfg.Loader,
		telemetry:  telemetry,
		pool:       task.NewPool(cfg.Jobs),
		force:      cfg.ForceBuild,
		ctx:        ctx,
		variants:   make(map[string]*domain.Variant),
		scripts:    make(map[string]*domain.ScriptFile),
		timestamps: make(map[string]time.Time),
		digests:    make(map[digestKey][]byte),
		depCache:   make(map[string]*domain.DependencyInfo),
		executed:   make(map[scriptKey]*Script),
	}
}

// Logger returns the engine's logger.
func (e *Engine) Logger() ports.Logger { return e.logger }

// Telemetry returns the engine's progress recorder.
func (e *Engine) Telemetry() ports.Telemetry { return e.telemetry }

// ForceBuild reports whether every dependency check reports stale.
func (e *Engine) ForceBuild() bool { return e.force }

// Context returns the invocation context.
func (e *Engine) Context() context.Context { return e.ctx }

// AddVariant registers a variant under the frozen set of its keyword pairs.
// Registering a second variant with an equal keyword set is an error. When
// isDefault is set the variant is also appended to the default build list.
func (e *Engine) AddVariant(v *domain.Variant, isDefault bool) error {
	e.variantMu.Lock()
	defer e.variantMu.Unlock()

	key := v.Key()
	if _, exists := e.variants[key]; exists {
		return zerr.With(domain.ErrDuplicateVariant, "keywords", v.String())
	}
	e.variants[key] = v
	if isDefault {
		e.defaults = append(e.defaults, v)
	}
	return nil
}

// DefaultVariants returns the variants registered as defaults, in
// registration order.
func (e *Engine) DefaultVariants() []*domain.Variant {
	e.variantMu.Lock()
	defer e.variantMu.Unlock()
	out := make([]*domain.Variant, len(e.defaults))
	copy(out, e.defaults)
	return out
}

// FindAllVariants yields every registered variant matching the criteria.
func (e *Engine) FindAllVariants(criteria domain.Criteria) iter.Seq[*domain.Variant] {
	e.variantMu.Lock()
	all := make([]*domain.Variant, 0, len(e.variants))
	for _, v := range e.variants {
		all = append(all, v)
	}
	e.variantMu.Unlock()

	return func(yield func(*domain.Variant) bool) {
		for _, v := range all {
			if v.Matches(criteria) {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// FindVariant resolves the criteria to exactly one variant. With a base
// variant, candidates must additionally agree with base on every axis the
// criteria do not name, so callers can ask for "same as base except X".
func (e *Engine) FindVariant(criteria domain.Criteria, base *domain.Variant) (*domain.Variant, error) {
	var matches []*domain.Variant
	for v := range e.FindAllVariants(criteria) {
		if base != nil && !agreesOutside(v, base, criteria) {
			continue
		}
		matches = append(matches, v)
	}

	switch len(matches) {
	case 0:
		return nil, zerr.With(domain.ErrNoSuchVariant, "criteria", fmt.Sprint(criteria))
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, v := range matches {
			names[i] = v.String()
		}
		return nil, zerr.With(domain.ErrAmbiguousVariant, "matches", fmt.Sprint(names))
	}
}

// agreesOutside reports whether v and base have equal values on every axis of
// v not named in criteria.
func agreesOutside(v, base *domain.Variant, criteria domain.Criteria) bool {
	for _, name := range v.Axes() {
		if _, named := criteria[name]; named {
			continue
		}
		value, _ := v.Axis(name)
		baseValue, ok := base.Axis(name)
		if !ok || value != baseValue {
			return false
		}
	}
	return true
}

// NotifyFileChanged drops the path from the timestamp cache. Anything that
// writes a file which may be read again in the same invocation must call
// this, or later staleness checks will see the stale cached timestamp.
func (e *Engine) NotifyFileChanged(path string) {
	e.tsMu.Lock()
	delete(e.timestamps, filepath.Clean(path))
	e.tsMu.Unlock()
}

// Timestamp returns the file's modification time with sub-second precision,
// memoized per path until NotifyFileChanged.
func (e *Engine) Timestamp(path string) (time.Time, error) {
	path = filepath.Clean(path)

	e.tsMu.Lock()
	if ts, ok := e.timestamps[path]; ok {
		e.tsMu.Unlock()
		return ts, nil
	}
	e.tsMu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, zerr.With(zerr.Wrap(err, "failed to stat file"), "path", path)
	}
	ts := info.ModTime()

	e.tsMu.Lock()
	e.timestamps[path] = ts
	e.tsMu.Unlock()
	return ts, nil
}

// FileDigest returns the content digest of the file, cached by the pair of
// path and current timestamp. An unchanged file is never re-read; a changed
// file gets a new timestamp and therefore a fresh digest entry.
func (e *Engine) FileDigest(path string) ([]byte, error) {
	path = filepath.Clean(path)
	ts, err := e.Timestamp(path)
	if err != nil {
		return nil, err
	}
	key := digestKey{path: path, nano: ts.UnixNano()}

	e.digestMu.Lock()
	if digest, ok := e.digests[key]; ok {
		e.digestMu.Unlock()
		return digest, nil
	}
	e.digestMu.Unlock()

	digest, err := e.digester.FileDigest(path)
	if err != nil {
		return nil, err
	}

	e.digestMu.Lock()
	e.digests[key] = digest
	e.digestMu.Unlock()
	return digest, nil
}

// SeedDigestCache primes the digest cache with a digest computed in an
// earlier invocation, keyed by the timestamp the file had then.
func (e *Engine) SeedDigestCache(path string, timestamp time.Time, digest []byte) {
	key := digestKey{path: filepath.Clean(path), nano: timestamp.UnixNano()}
	e.digestMu.Lock()
	e.digests[key] = digest
	e.digestMu.Unlock()
}

// DependencyInfo loads and memoizes the persisted record for a target. A
// missing record is an error satisfying errors.Is(err, fs.ErrNotExist); a
// record of another schema version satisfies domain.ErrRecordVersionMismatch;
// a malformed record satisfies domain.ErrInvalidDependencyRecord.
func (e *Engine) DependencyInfo(targetPath string) (*domain.DependencyInfo, error) {
	targetPath = filepath.Clean(targetPath)

	e.depMu.Lock()
	if info, ok := e.depCache[targetPath]; ok {
		e.depMu.Unlock()
		return info, nil
	}
	e.depMu.Unlock()

	blob, err := e.store.Load(targetPath)
	if err != nil {
		return nil, err
	}
	info, err := domain.DecodeDependencyInfo(blob)
	if err != nil {
		return nil, err
	}

	e.depMu.Lock()
	e.depCache[targetPath] = info
	e.depMu.Unlock()
	return info, nil
}

// CheckDependencyInfo reports whether the target is up to date for the given
// args. It returns the previous record if one could be loaded, and the
// human-readable reason to rebuild, or "" when the target is current. Only a
// malformed record is an error; missing and version-mismatched records are
// reasons to rebuild.
func (e *Engine) CheckDependencyInfo(targetPath string, args []string) (*domain.DependencyInfo, string, error) {
	info, err := e.DependencyInfo(targetPath)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordVersionMismatch):
			return nil, fmt.Sprintf("'%s.dep' version has changed", targetPath), nil
		case errors.Is(err, domain.ErrInvalidDependencyRecord):
			return nil, "", err
		default:
			return nil, fmt.Sprintf("'%s.dep' doesn't exist", targetPath), nil
		}
	}

	reason, ok := info.FindReason(e, args, e.force)
	if !ok {
		return info, reason, nil
	}
	return info, "", nil
}

// NewDependencyInfo builds a fresh record by stat'ing, and optionally
// hashing, every dependency at call time.
func (e *Engine) NewDependencyInfo(targets, args, dependencies []string, wantDigests bool) (*domain.DependencyInfo, error) {
	info := &domain.DependencyInfo{
		Version:       domain.DependencyVersion,
		Targets:       targets,
		Args:          args,
		DepPaths:      dependencies,
		DepTimestamps: make([]time.Time, 0, len(dependencies)),
	}
	for _, path := range dependencies {
		ts, err := e.Timestamp(path)
		if err != nil {
			return nil, err
		}
		info.DepTimestamps = append(info.DepTimestamps, ts)
	}
	if wantDigests {
		info.DepDigests = make([][]byte, 0, len(dependencies))
		for _, path := range dependencies {
			digest, err := e.FileDigest(path)
			if err != nil {
				return nil, err
			}
			info.DepDigests = append(info.DepDigests, digest)
		}
	}
	return info, nil
}

// StoreDependencyInfo persists the record under the first target's dependency
// path and registers it in the cache under every listed target, so a
// multi-output step can be queried through any of its outputs.
func (e *Engine) StoreDependencyInfo(info *domain.DependencyInfo) error {
	blob := domain.EncodeDependencyInfo(info)
	if err := e.store.Store(filepath.Clean(info.Targets[0]), blob); err != nil {
		return err
	}

	e.depMu.Lock()
	for _, target := range info.Targets {
		e.depCache[filepath.Clean(target)] = info
	}
	e.depMu.Unlock()
	return nil
}

// scriptFile loads and memoizes the compiled form of a script, keyed by
// absolute path. Scripts are assumed immutable for the invocation; the cache
// is never invalidated mid-run.
func (e *Engine) scriptFile(path string) (*domain.ScriptFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to resolve script path"), "path", path)
	}

	e.scriptMu.Lock()
	if file, ok := e.scripts[abs]; ok {
		e.scriptMu.Unlock()
		return file, nil
	}
	e.scriptMu.Unlock()

	file, err := e.loader.Load(abs)
	if err != nil {
		return nil, err
	}

	e.scriptMu.Lock()
	e.scripts[abs] = file
	e.scriptMu.Unlock()
	return file, nil
}

// BuildFailure logs an error message and returns the expected build failure
// that should fail the current task.
func (e *Engine) BuildFailure(format string, args ...any) error {
	err := domain.NewBuildError(format, args...)
	e.logger.OutputError(err.Message)
	return err
}

// NewTask wraps op so any failure not already classified as an expected
// build failure is logged as an unhandled task exception, with the causal
// chain of parent task frames reconstructed oldest-first. Panics in op are
// converted to failures rather than taking down the worker.
func (e *Engine) NewTask(parent *task.Task, op func() error) *task.Task {
	var t *task.Task
	wrapped := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in task: %v", r)
			}
			if err == nil || domain.IsBuildError(err) ||
				errors.Is(err, task.ErrPredecessorFailed) || errors.Is(err, task.ErrChildFailed) {
				return
			}
			msg := fmt.Sprintf("Unhandled Task Exception:\n%s%+v\n", task.CausalFrames(t, nil), err)
			if !e.logger.DebugEnabled("stack") {
				msg += "Pass '-d stack' if you require a more complete stack trace.\n"
			}
			e.logger.OutputError(msg)
		}()
		return op()
	}

	opts := []task.Option{task.WithParent(parent)}
	if e.logger.DebugEnabled("stack") {
		opts = append(opts, task.WithFrames(task.CaptureFrames(1)))
	}
	t = task.New(e.pool, wrapped, opts...)
	return t
}

// Execute returns the task representing completion of running the script at
// path under the given variant, including every task the script spawns.
// Executions are deduplicated: the same path and variant pair runs exactly
// once per invocation, and concurrent callers observe a single execution.
func (e *Engine) Execute(path string, variant *domain.Variant) *task.Task {
	return e.executeFrom(nil, nil, path, variant)
}

func (e *Engine) executeFrom(parent *task.Task, prevVariant *domain.Variant, path string, variant *domain.Variant) *task.Task {
	path = filepath.Clean(path)
	key := scriptKey{path: path, variant: variant}

	e.execMu.Lock()
	defer e.execMu.Unlock()

	if script, ok := e.executed[key]; ok {
		return script.Task()
	}

	script := newScript(e, path, variant)
	t := e.NewTask(parent, func() error {
		if variant != prevVariant {
			e.logger.OutputInfo("Building with " + variant.String())
		}
		e.logger.OutputInfo("Executing " + script.path)
		return script.run(variant.CloneTools())
	})
	script.task = t
	e.executed[key] = script

	t.AddCallback(func() {
		e.logger.OutputDebug("script", "Finished "+script.path)
	})
	t.Start()
	return t
}
