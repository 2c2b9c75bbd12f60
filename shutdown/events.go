package shutdown

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gracefulexit/core"
)

// EventKind names one of the lifecycle notifications emitted during shutdown.
type EventKind int

const (
	// EventBeforeShutdown is emitted by trigger wiring just before Shutdown runs.
	EventBeforeShutdown EventKind = iota
	// EventTimeout is emitted when the deadline fires before draining finished.
	EventTimeout
	// EventError is emitted once per failed callback.
	EventError
	// EventBeforeExit is emitted after a completed drain, right before exit.
	EventBeforeExit
)

func (k EventKind) String() string {
	switch k {
	case EventBeforeShutdown:
		return "beforeShutdown"
	case EventTimeout:
		return "timeout"
	case EventError:
		return "error"
	case EventBeforeExit:
		return "beforeExit"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Terminal reports whether the kind ends a shutdown run.
func (k EventKind) Terminal() bool {
	return k == EventTimeout || k == EventBeforeExit
}

// Event is a lifecycle notification. The concrete types are BeforeShutdown,
// Timeout, Error and BeforeExit; switch on the type to read the payload.
type Event interface {
	Kind() EventKind
	event()
}

// BeforeShutdown is emitted by trigger wiring before Shutdown is invoked.
type BeforeShutdown struct{}

// Timeout is emitted when the deadline terminates the process, or when
// repeated triggers reached the forced exit threshold (Forced).
type Timeout struct {
	Forced bool
}

// Error carries the fault of a single failed callback.
type Error struct {
	Callback string
	Err      error
}

// BeforeExit is emitted after all callback work settled and the exit delay elapsed.
type BeforeExit struct{}

func (BeforeShutdown) Kind() EventKind { return EventBeforeShutdown }
func (Timeout) Kind() EventKind        { return EventTimeout }
func (Error) Kind() EventKind          { return EventError }
func (BeforeExit) Kind() EventKind     { return EventBeforeExit }

func (BeforeShutdown) event() {}
func (Timeout) event()        {}
func (Error) event()          {}
func (BeforeExit) event()     {}

// Listener receives lifecycle notifications.
type Listener func(Event)

// Subscription identifies a registered listener so it can be removed.
type Subscription uint64

type subscriber struct {
	id   Subscription
	kind EventKind
	all  bool
	fn   Listener
}

// Emitter dispatches events to listeners in registration order.
//
// Listeners run synchronously on the emitting goroutine. A listener that
// panics is logged and skipped; it never interrupts the emitter or the
// remaining listeners.
type Emitter struct {
	logger *zap.Logger

	mu     sync.Mutex
	nextID Subscription
	subs   []subscriber
}

// NewEmitter creates an Emitter with no listeners.
func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{logger: logger}
}

// On registers fn for events of the given kind.
func (e *Emitter) On(kind EventKind, fn Listener) Subscription {
	return e.add(subscriber{kind: kind, fn: fn})
}

// OnAny registers fn for every event.
func (e *Emitter) OnAny(fn Listener) Subscription {
	return e.add(subscriber{all: true, fn: fn})
}

func (e *Emitter) add(s subscriber) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	s.id = e.nextID
	e.subs = append(e.subs, s)
	return s.id
}

// Off removes a listener. Removing an unknown subscription is a no-op.
func (e *Emitter) Off(id Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to every matching listener.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	targets := make([]Listener, 0, len(e.subs))
	for _, s := range e.subs {
		if s.all || s.kind == ev.Kind() {
			targets = append(targets, s.fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range targets {
		e.deliver(fn, ev)
	}
}

func (e *Emitter) deliver(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Event listener panicked",
				zap.Stringer("event", ev.Kind()),
				zap.Error(core.NewPanicError(r)),
			)
		}
	}()
	fn(ev)
}

// Count returns the number of registered listeners.
func (e *Emitter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
