package core

import (
	"fmt"
	"runtime/debug"
)

// Action is a zero-argument cleanup operation run during graceful shutdown.
// It reports how it finished through the returned Result: either already
// complete (successfully or not) or still pending.
//
// A panic raised by an Action is treated as a synchronous failure by the
// orchestrator; it never crashes the process.
//
// Example usage:
//
//	var closeDB Action = Sync(func() error {
//	    return db.Close()
//	})
type Action func() Result

// Result is the outcome of invoking an Action.
//
// The zero value is a successful, already complete result.
type Result struct {
	err     error
	pending <-chan error
}

// Done returns a result that completed successfully.
func Done() Result {
	return Result{}
}

// Failed returns a result that completed synchronously with err.
// A nil err is equivalent to Done.
func Failed(err error) Result {
	return Result{err: err}
}

// Later returns a result that settles when ch yields a value or is closed.
// A nil value or a closed channel means success. A nil channel is treated
// as already complete.
func Later(ch <-chan error) Result {
	if ch == nil {
		return Done()
	}
	return Result{pending: ch}
}

// Go runs fn on its own goroutine and returns a pending result that settles
// when fn returns. A panic inside fn settles the result with a *PanicError.
func Go(fn func() error) Result {
	ch := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- NewPanicError(r)
			}
		}()
		ch <- fn()
	}()
	return Later(ch)
}

// Pending reports whether the result completes later.
func (r Result) Pending() bool {
	return r.pending != nil
}

// Err returns the synchronous failure, if any. It is always nil for
// pending results.
func (r Result) Err() error {
	return r.err
}

// Wait returns the channel a pending result settles on, or nil for a
// complete result.
func (r Result) Wait() <-chan error {
	return r.pending
}

// Sync adapts a plain function into an Action that completes synchronously.
func Sync(fn func() error) Action {
	return func() Result {
		return Failed(fn())
	}
}

// Async adapts a plain function into an Action that runs on its own goroutine.
func Async(fn func() error) Action {
	return func() Result {
		return Go(fn)
	}
}

// Func adapts a function without an error return into an Action.
func Func(fn func()) Action {
	return func() Result {
		fn()
		return Done()
	}
}

// PanicError wraps a value recovered from a panicking cleanup action.
type PanicError struct {
	Value interface{}
	Stack []byte
}

// NewPanicError captures the recovered value together with the current stack.
func NewPanicError(value interface{}) *PanicError {
	return &PanicError{Value: value, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
