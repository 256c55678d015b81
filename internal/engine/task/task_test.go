package task

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/donno/cake/internal/core/domain"
)

func TestRunsOperation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(2)
		ran := false
		tsk := New(pool, func() error {
			ran = true
			return nil
		})
		tsk.Start()
		if err := tsk.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
		if !ran {
			t.Error("operation never ran")
		}
		if tsk.State() != StateSucceeded {
			t.Errorf("state = %v, want StateSucceeded", tsk.State())
		}
	})
}

func TestStartAfterOrdering(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(4)
		var order []string
		var mu sync.Mutex
		record := func(name string) func() error {
			return func() error {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil
			}
		}

		first := New(pool, record("first"))
		second := New(pool, record("second"))
		second.StartAfter(first)

		// Starting the successor before the predecessor must not run it early.
		second.Start()
		first.Start()

		if err := second.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("order = %v, want [first second]", order)
		}
	})
}

func TestStartAfterFailurePropagates(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(2)
		boom := errors.New("boom")
		failing := New(pool, func() error { return boom })

		ran := false
		dependent := New(pool, func() error {
			ran = true
			return nil
		})
		dependent.StartAfter(failing)
		dependent.Start()
		failing.Start()

		err := dependent.Wait(context.Background())
		if !errors.Is(err, ErrPredecessorFailed) {
			t.Fatalf("Wait() = %v, want ErrPredecessorFailed", err)
		}
		if ran {
			t.Error("dependent operation ran despite failed predecessor")
		}
		if dependent.State() != StateFailed {
			t.Errorf("state = %v, want StateFailed", dependent.State())
		}
	})
}

func TestStartAfterAlreadyTerminal(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(2)
		done := New(pool, func() error { return nil })
		done.Start()
		if err := done.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}

		later := New(pool, func() error { return nil })
		later.StartAfter(done)
		later.Start()
		if err := later.Wait(context.Background()); err != nil {
			t.Errorf("Wait() = %v", err)
		}
	})
}

func TestCompleteAfterCoversChildren(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(4)
		childDone := atomic.Bool{}

		var parent *Task
		child := New(pool, func() error {
			childDone.Store(true)
			return nil
		})
		parent = New(pool, func() error {
			// The child is spawned from inside the parent's operation; the
			// parent must stay unfinished until it completes.
			parent.CompleteAfter(child)
			child.Start()
			return nil
		})
		parent.Start()

		if err := parent.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
		if !childDone.Load() {
			t.Error("parent completed before child ran")
		}
	})
}

func TestCompleteAfterChildFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(4)
		child := New(pool, func() error { return errors.New("child broke") })

		var parent *Task
		parent = New(pool, func() error {
			parent.CompleteAfter(child)
			child.Start()
			return nil
		})
		parent.Start()

		err := parent.Wait(context.Background())
		if !errors.Is(err, ErrChildFailed) {
			t.Errorf("Wait() = %v, want ErrChildFailed", err)
		}
	})
}

func TestCallbacksRunInOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(2)
		var order []int
		var mu sync.Mutex
		tsk := New(pool, func() error { return nil })
		for i := range 3 {
			tsk.AddCallback(func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}
		tsk.Start()
		if err := tsk.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
			t.Errorf("callback order = %v, want [0 1 2]", order)
		}
	})
}

func TestCallbackAfterTerminalRunsImmediately(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(2)
		tsk := New(pool, func() error { return nil })
		tsk.Start()
		if err := tsk.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}

		ran := atomic.Bool{}
		tsk.AddCallback(func() { ran.Store(true) })
		synctest.Wait()
		if !ran.Load() {
			t.Error("late callback never ran")
		}
	})
}

func TestWaitHonorsContext(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pool := NewPool(1)
		// Never started, so it never completes.
		tsk := New(pool, func() error { return nil })

		ctx, cancel := context.WithCancel(context.Background())
		go cancel()
		err := tsk.Wait(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait() = %v, want context.Canceled", err)
		}
	})
}

func TestPoolBoundsConcurrency(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		const width = 2
		pool := NewPool(width)

		var running, peak atomic.Int32
		var tasks []*Task
		for range 8 {
			tsk := New(pool, func() error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			tasks = append(tasks, tsk)
			tsk.Start()
		}
		for _, tsk := range tasks {
			if err := tsk.Wait(context.Background()); err != nil {
				t.Fatal(err)
			}
		}
		if peak.Load() > width {
			t.Errorf("peak concurrency %d exceeds pool width %d", peak.Load(), width)
		}
	})
}

func TestResultClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Outcome
	}{
		{"success", nil, OutcomeSuccess},
		{"build error", domain.NewBuildError("dcc exited with code 1"), OutcomeExpectedFailure},
		{"predecessor failed", ErrPredecessorFailed, OutcomeExpectedFailure},
		{"child failed", ErrChildFailed, OutcomeExpectedFailure},
		{"unexpected", errors.New("nil pointer"), OutcomeUnexpectedFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resultOf(tc.err); got.Outcome != tc.want {
				t.Errorf("resultOf(%v).Outcome = %v, want %v", tc.err, got.Outcome, tc.want)
			}
		})
	}
}

func TestCausalFramesWalkParents(t *testing.T) {
	pool := NewPool(1)
	rootFrames := []Frame{{Function: "root.spawn", File: "root.go", Line: 10}}
	childFrames := []Frame{{Function: "child.spawn", File: "child.go", Line: 20}}

	root := New(pool, func() error { return nil }, WithFrames(rootFrames))
	child := New(pool, func() error { return nil }, WithParent(root), WithFrames(childFrames))

	out := CausalFrames(child, nil)
	rootAt := strings.Index(out, "root.spawn")
	childAt := strings.Index(out, "child.spawn")
	if rootAt < 0 || childAt < 0 {
		t.Fatalf("missing frames in output:\n%s", out)
	}
	if rootAt > childAt {
		t.Errorf("root frames should come before child frames:\n%s", out)
	}
}
