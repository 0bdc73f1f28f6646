// Package active implements the worker model shared by every
// networked component: one goroutine per component, fed by a single
// unbounded task queue. Public operations on a component are a thin
// synchronous shell that validates arguments and enqueues the body.
package active

import (
	"fmt"
	"sync"
)

// TickStatus is returned by a tick hook to tell the worker whether the
// component has run to completion.
type TickStatus int

const (
	NotFinished TickStatus = iota
	Finished
)

// ErrNotRunning is returned by AsyncCall on a stopped object.
var ErrNotRunning = fmt.Errorf("active: object is not running")

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopping
)

// Object owns one worker goroutine and one unbounded task queue.
// Tasks enqueued from a single goroutine run in enqueue order; tasks
// from different goroutines are serialized in an unspecified
// interleaving. A task must never block on the result of another task
// queued on the same object.
type Object struct {
	name    string
	onStart func()
	onStop  func()
	tick    func() TickStatus

	mu    sync.Mutex
	cond  *sync.Cond
	queue []func()
	state state
	done  chan struct{}
}

type Option func(*Object)

// WithOnStart installs a hook run on the worker before any task.
func WithOnStart(fn func()) Option {
	return func(o *Object) { o.onStart = fn }
}

// WithOnStop installs a hook run on the worker after the queue drains.
func WithOnStop(fn func()) Option {
	return func(o *Object) { o.onStop = fn }
}

// WithTick installs a hook polled whenever the queue is empty. The
// hook may block (socket accept, file read); returning Finished stops
// the worker.
func WithTick(fn func() TickStatus) Option {
	return func(o *Object) { o.tick = fn }
}

func New(name string, opts ...Option) *Object {
	o := &Object{name: name}
	o.cond = sync.NewCond(&o.mu)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name identifies the object in logs.
func (o *Object) Name() string {
	return o.name
}

// Start launches the worker. Starting a running object is a no-op;
// starting after Stop+Join begins a fresh run with an empty queue.
func (o *Object) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != stateIdle {
		return
	}
	o.state = stateRunning
	o.queue = nil
	o.done = make(chan struct{})
	go o.run(o.done)
}

// Stop asks the worker to drain its pending tasks, run the stop hook
// and exit. Stopping a stopped object is a no-op. Tasks already
// executing run to completion; there is no preemptive interrupt.
func (o *Object) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != stateRunning {
		return
	}
	o.state = stateStopping
	o.cond.Broadcast()
}

// Join blocks until the worker has exited. Safe to call at any time,
// from any goroutine except the worker itself.
func (o *Object) Join() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// AsyncCall enqueues fn for the worker and returns immediately.
func (o *Object) AsyncCall(fn func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != stateRunning {
		return ErrNotRunning
	}
	o.queue = append(o.queue, fn)
	o.cond.Signal()
	return nil
}

// TryDispatch runs at most one pending task on the calling goroutine.
// It reports whether a task ran.
func (o *Object) TryDispatch() bool {
	o.mu.Lock()
	if len(o.queue) == 0 {
		o.mu.Unlock()
		return false
	}
	task := o.queue[0]
	o.queue = o.queue[1:]
	o.mu.Unlock()

	task()
	return true
}

func (o *Object) run(done chan struct{}) {
	if o.onStart != nil {
		o.onStart()
	}

	for {
		o.mu.Lock()
		for len(o.queue) == 0 && o.state == stateRunning && o.tick == nil {
			o.cond.Wait()
		}
		if len(o.queue) == 0 && o.state != stateRunning {
			break
		}
		if len(o.queue) == 0 {
			// Queue empty but a tick hook exists: poll it off-lock.
			o.mu.Unlock()
			if o.tick() == Finished {
				o.mu.Lock()
				o.state = stateStopping
				o.mu.Unlock()
			}
			continue
		}
		task := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()

		task()
	}

	// Lock is held on loop exit and the queue is empty: AsyncCall
	// refuses tasks once the state leaves running. Reset, then run the
	// stop hook.
	o.queue = nil
	o.state = stateIdle
	o.mu.Unlock()

	if o.onStop != nil {
		o.onStop()
	}
	close(done)
}
