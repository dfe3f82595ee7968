package reactive

import (
	"sync"
	"sync/atomic"
)

// maxReruns bounds how often an effect re-runs itself because it wrote
// a signal it also reads.
const maxReruns = 100

// Effect is a reactive side effect that re-runs when its dependencies change.
//
// Effects run immediately when created. A change to any signal read during
// the last run re-runs the effect synchronously. A change that arrives while
// the effect is running is folded into one more run after the current one.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	// sources are the signals this effect depends on.
	sources   []*signalBase
	sourcesMu sync.Mutex

	owner *Owner

	running  atomic.Bool
	pending  atomic.Bool
	disposed atomic.Bool
}

// MarkDirty re-runs the effect. Implements Listener.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}
	if e.running.Load() {
		e.pending.Store(true)
		return
	}
	e.run()
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// run executes the effect function, re-running while changes arrived mid-run.
func (e *Effect) run() {
	e.running.Store(true)
	defer e.running.Store(false)

	for i := 0; i < maxReruns; i++ {
		if e.disposed.Load() {
			return
		}
		e.pending.Store(false)
		e.runOnce()
		if !e.pending.Load() {
			return
		}
	}
}

func (e *Effect) runOnce() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	// Drop old sources; this run re-establishes them.
	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = e.sources[:0]
	e.sourcesMu.Unlock()

	oldListener := setCurrentListener(e)
	defer setCurrentListener(oldListener)

	e.cleanup = e.fn()
}

// addSource records a dependency read during the current run.
func (e *Effect) addSource(source *signalBase) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

// Sources returns the number of signals the effect currently depends on.
func (e *Effect) Sources() int {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	return len(e.sources)
}

// Dispose stops the effect and unsubscribes it from all sources.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = nil
	e.sourcesMu.Unlock()

	if e.owner != nil {
		e.owner.removeEffect(e)
	}
}

// Disposed reports whether the effect has been disposed.
func (e *Effect) Disposed() bool {
	return e.disposed.Load()
}

// CreateEffect creates and runs a new effect within the current owner.
// The effect re-runs whenever any signal it read changes. If fn returns a
// Cleanup, it is called before the next run and on disposal.
//
// Example:
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return nil
//	})
func CreateEffect(fn func() Cleanup) *Effect {
	owner := getCurrentOwner()

	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: owner,
	}

	if owner != nil {
		if owner.IsDisposed() {
			e.disposed.Store(true)
			return e
		}
		owner.registerEffect(e)
	}

	e.run()
	return e
}
