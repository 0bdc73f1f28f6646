// Package dispatch delivers decoded messages to per-type user
// handlers on a dedicated worker, so protocol receive loops never run
// user code.
package dispatch

import (
	"fmt"
	"time"

	"radarlink/pkg/active"
	"radarlink/pkg/connection"
	"radarlink/pkg/logger"
)

// missingLogInterval suppresses repeated "no handler" logs for the
// same type tag.
const missingLogInterval = time.Second

// Dispatcher owns the type→handler table for one façade. Handlers
// run one at a time on the dispatcher's worker; a handler must not
// block it indefinitely — long work belongs on the user's own active
// component. The table is only touched while the worker is stopped or
// from the worker itself, so it needs no lock.
type Dispatcher[M any] struct {
	name   string
	log    *logger.Log
	worker *active.Object

	handlers    map[uint8]func(M)
	ignored     map[uint8]struct{}
	lastMissing map[uint8]time.Time
}

func New[M any](name string, log *logger.Log) *Dispatcher[M] {
	d := &Dispatcher[M]{
		name:        name,
		log:         log,
		handlers:    make(map[uint8]func(M)),
		ignored:     make(map[uint8]struct{}),
		lastMissing: make(map[uint8]time.Time),
	}
	d.worker = active.New(name)
	return d
}

func (d *Dispatcher[M]) Start() {
	d.worker.Start()
}

func (d *Dispatcher[M]) Stop() {
	d.worker.Stop()
	d.worker.Join()
}

// SetHandler installs fn for the given type tag, clearing any ignore
// mark. Handlers installed while stopped take effect on the next
// start.
func (d *Dispatcher[M]) SetHandler(tag uint8, fn func(M)) {
	d.apply(func() {
		d.handlers[tag] = fn
		delete(d.ignored, tag)
	})
}

// RemoveHandler uninstalls the handler for a type tag.
func (d *Dispatcher[M]) RemoveHandler(tag uint8) {
	d.apply(func() {
		delete(d.handlers, tag)
	})
}

// Ignore suppresses the "no handler" log for a type tag without
// installing a handler.
func (d *Dispatcher[M]) Ignore(tag uint8) {
	d.apply(func() {
		delete(d.handlers, tag)
		d.ignored[tag] = struct{}{}
	})
}

// Dispatch enqueues one decoded message for delivery, tagged with
// the connection it arrived on.
func (d *Dispatcher[M]) Dispatch(tag uint8, tagName string, conn connection.ID, msg M) {
	_ = d.worker.AsyncCall(func() {
		d.deliver(tag, tagName, conn, msg)
	})
}

// apply routes a table mutation through the worker when it is
// running, or mutates directly when it is not.
func (d *Dispatcher[M]) apply(fn func()) {
	if err := d.worker.AsyncCall(fn); err != nil {
		fn()
	}
}

func (d *Dispatcher[M]) deliver(tag uint8, tagName string, conn connection.ID, msg M) {
	fn, ok := d.handlers[tag]
	if !ok {
		if _, ignored := d.ignored[tag]; ignored {
			return
		}
		now := time.Now()
		if last, seen := d.lastMissing[tag]; !seen || now.Sub(last) >= missingLogInterval {
			d.log.Debug(fmt.Sprintf("%s: no handler for type %s on connection %d", d.name, tagName, conn))
			d.lastMissing[tag] = now
		}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error(fmt.Sprintf("%s: handler for type %s on connection %d panicked: %v", d.name, tagName, conn, r))
		}
	}()
	fn(msg)
}
