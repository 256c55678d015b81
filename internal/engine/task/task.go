// Package task implements the asynchronous unit of work used to schedule and
// sequence build steps. Tasks carry start-after ordering, completion
// callbacks, and failure propagation across causally linked tasks.
package task

import (
	"context"
	"sync"

	"go.trai.ch/zerr"
)

// State is the lifecycle state of a task. Terminal states never transition
// further.
type State int32

const (
	// StatePending indicates the task has not started running yet.
	StatePending State = iota
	// StateRunning indicates the task's operation is executing, or has
	// finished and the task is waiting on CompleteAfter children.
	StateRunning
	// StateSucceeded indicates the task finished successfully.
	StateSucceeded
	// StateFailed indicates the task's operation failed, a predecessor
	// failed, or a child task failed.
	StateFailed
)

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var (
	// ErrPredecessorFailed marks a task that never ran because a start-after
	// predecessor failed. The origin of the failure has already been
	// reported, so no further diagnostics are attached.
	ErrPredecessorFailed = zerr.New("predecessor task failed")

	// ErrChildFailed marks a task whose operation succeeded but whose
	// complete-after child failed.
	ErrChildFailed = zerr.New("sub-task failed")
)

type edgeKind int

const (
	edgePred edgeKind = iota
	edgeJoin
)

type edge struct {
	to   *Task
	kind edgeKind
}

// Task is one schedulable unit of work. Create tasks with New, express
// ordering with StartAfter and CompleteAfter, then call Start. A task is
// owned by whoever holds the last reference: callbacks, successors, and the
// engine's script table all may hold one. Predecessor graphs must be acyclic.
type Task struct {
	pool   *Pool
	op     func() error
	parent *Task
	frames []Frame

	mu           sync.Mutex
	state        State
	started      bool
	opDone       bool
	pendingPreds int
	predFailed   bool
	pendingJoins int
	joinFailed   bool
	err          error
	callbacks    []func()
	subscribers  []edge
	done         chan struct{}
}

// Option configures a task at creation.
type Option func(*Task)

// WithParent records the task that spawned this one, for causal traceback
// chaining across asynchronous boundaries.
func WithParent(parent *Task) Option {
	return func(t *Task) { t.parent = parent }
}

// WithFrames records the stack context at the point the task was spawned.
func WithFrames(frames []Frame) Option {
	return func(t *Task) { t.frames = frames }
}

// New creates a task that will run op on one of the pool's workers once
// started and all predecessors have completed.
func New(pool *Pool, op func() error, opts ...Option) *Task {
	t := &Task{
		pool: pool,
		op:   op,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Parent returns the task that spawned this one, or nil.
func (t *Task) Parent() *Task { return t.parent }

// Frames returns the stack context captured when the task was spawned.
func (t *Task) Frames() []Frame { return t.frames }

// State returns the task's current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the task's failure, or nil. Only meaningful once terminal.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Result returns the task's tagged outcome. Only meaningful once terminal.
func (t *Task) Result() Result {
	return resultOf(t.Err())
}

// StartAfter keeps the task Pending until every predecessor reaches a
// terminal state. If any predecessor fails, the task fails without running
// its operation. Must be called before Start.
func (t *Task) StartAfter(preds ...*Task) {
	t.mu.Lock()
	t.pendingPreds += len(preds)
	t.mu.Unlock()
	for _, p := range preds {
		p.subscribe(edge{to: t, kind: edgePred})
	}
}

// CompleteAfter keeps the task from completing until every child reaches a
// terminal state; a failed child fails this task. Unlike StartAfter it may be
// called while the task's operation is running, which is how a script task
// comes to cover the tasks its body spawned.
func (t *Task) CompleteAfter(children ...*Task) {
	t.mu.Lock()
	t.pendingJoins += len(children)
	t.mu.Unlock()
	for _, c := range children {
		c.subscribe(edge{to: t, kind: edgeJoin})
	}
}

// AddCallback registers fn to run after the task reaches a terminal state.
// Callbacks run in registration order on a pool worker, not necessarily the
// worker that ran the operation.
func (t *Task) AddCallback(fn func()) {
	t.mu.Lock()
	if !t.state.Terminal() {
		t.callbacks = append(t.callbacks, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.pool.Go(fn)
}

// Start makes the task eligible to run. The operation is scheduled on a pool
// worker once all predecessors are terminal.
func (t *Task) Start() {
	t.mu.Lock()
	if t.started || t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.started = true
	if t.pendingPreds > 0 {
		t.mu.Unlock()
		return
	}
	t.dispatchLocked()
}

// Wait blocks until the task is terminal or the context is done, returning
// the task's failure if any.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// subscribe registers an edge from t to e.to, notifying immediately if t is
// already terminal.
func (t *Task) subscribe(e edge) {
	t.mu.Lock()
	if !t.state.Terminal() {
		t.subscribers = append(t.subscribers, e)
		t.mu.Unlock()
		return
	}
	failed := t.state == StateFailed
	t.mu.Unlock()
	e.to.edgeDone(e.kind, failed)
}

// edgeDone records completion of a predecessor or child.
func (t *Task) edgeDone(kind edgeKind, failed bool) {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	switch kind {
	case edgePred:
		t.pendingPreds--
		if failed {
			t.predFailed = true
		}
		if t.started && t.pendingPreds == 0 && t.state == StatePending {
			t.dispatchLocked()
			return
		}
	case edgeJoin:
		t.pendingJoins--
		if failed {
			t.joinFailed = true
		}
		if t.opDone && t.pendingJoins == 0 {
			t.finishLocked(t.joinErrLocked())
			return
		}
	}
	t.mu.Unlock()
}

// dispatchLocked moves a Pending task to Running and schedules its operation,
// or fails it outright when a predecessor has failed. Called with t.mu held;
// releases it.
func (t *Task) dispatchLocked() {
	if t.predFailed {
		t.finishLocked(ErrPredecessorFailed)
		return
	}
	t.state = StateRunning
	t.mu.Unlock()
	t.pool.Go(t.run)
}

func (t *Task) run() {
	err := t.op()

	t.mu.Lock()
	t.opDone = true
	if err == nil && t.pendingJoins > 0 {
		// Stay Running until CompleteAfter children finish.
		t.mu.Unlock()
		return
	}
	if err == nil {
		err = t.joinErrLocked()
	}
	t.finishLocked(err)
}

// joinErrLocked returns the propagated child failure, if any.
func (t *Task) joinErrLocked() error {
	if t.joinFailed {
		return ErrChildFailed
	}
	return nil
}

// finishLocked transitions to a terminal state and notifies callbacks and
// successors. Called with t.mu held; releases it.
func (t *Task) finishLocked(err error) {
	if err != nil {
		t.state = StateFailed
		t.err = err
	} else {
		t.state = StateSucceeded
	}
	callbacks := t.callbacks
	subscribers := t.subscribers
	t.callbacks = nil
	t.subscribers = nil
	close(t.done)
	failed := t.state == StateFailed
	t.mu.Unlock()

	if len(callbacks) > 0 {
		t.pool.Go(func() {
			for _, fn := range callbacks {
				fn()
			}
		})
	}
	for _, e := range subscribers {
		e.to.edgeDone(e.kind, failed)
	}
}
