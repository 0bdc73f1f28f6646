package active

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTasksRunInEnqueueOrder(t *testing.T) {
	o := New("test")
	o.Start()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		if err := o.AsyncCall(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	<-done
	o.Stop()
	o.Join()

	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestStopDrainsPendingTasks(t *testing.T) {
	o := New("test")
	o.Start()

	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		_ = o.AsyncCall(func() { ran.Add(1) })
	}
	o.Stop()
	o.Join()

	if got := ran.Load(); got != 50 {
		t.Fatalf("ran %d of 50 tasks before exit", got)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	stops := 0
	o := New("test", WithOnStop(func() { stops++ }))

	o.Start()
	o.Start()
	o.Stop()
	o.Stop()
	o.Join()

	if stops != 1 {
		t.Fatalf("stop hook ran %d times", stops)
	}

	// Start after stop begins a fresh run.
	o.Start()
	o.Stop()
	o.Join()
	if stops != 2 {
		t.Fatalf("stop hook ran %d times after restart", stops)
	}
}

func TestAsyncCallOnStoppedObjectFails(t *testing.T) {
	o := New("test")
	if err := o.AsyncCall(func() {}); err != ErrNotRunning {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestStartStopHooksRunOnWorker(t *testing.T) {
	events := make(chan string, 2)
	o := New("test",
		WithOnStart(func() { events <- "start" }),
		WithOnStop(func() { events <- "stop" }),
	)
	o.Start()
	o.Stop()
	o.Join()

	if got := <-events; got != "start" {
		t.Fatalf("first hook %q", got)
	}
	if got := <-events; got != "stop" {
		t.Fatalf("second hook %q", got)
	}
}

func TestTickPolledUntilFinished(t *testing.T) {
	var ticks atomic.Int32
	o := New("test", WithTick(func() TickStatus {
		if ticks.Add(1) >= 5 {
			return Finished
		}
		return NotFinished
	}))

	o.Start()
	o.Join()

	if got := ticks.Load(); got != 5 {
		t.Fatalf("ticked %d times, want 5", got)
	}
}

func TestTryDispatchRunsAtMostOne(t *testing.T) {
	o := New("test")
	// Not started: tasks cannot be enqueued, and TryDispatch has
	// nothing to run.
	if o.TryDispatch() {
		t.Fatalf("dispatched from empty queue")
	}

	o.Start()
	block := make(chan struct{})
	_ = o.AsyncCall(func() { <-block })

	var ran atomic.Int32
	_ = o.AsyncCall(func() { ran.Add(1) })
	_ = o.AsyncCall(func() { ran.Add(1) })

	// The worker is blocked on the first task; drain one queued task
	// inline.
	time.Sleep(10 * time.Millisecond)
	if !o.TryDispatch() {
		t.Fatalf("no task dispatched")
	}
	if got := ran.Load(); got != 1 {
		t.Fatalf("TryDispatch ran %d tasks", got)
	}

	close(block)
	o.Stop()
	o.Join()
}
