package shutdown

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"gracefulexit/core"
)

// FaultSource turns unrecovered panics and unrecoverable errors into shutdown
// triggers. It supports TriggerPanic and TriggerFatalError.
//
// Usage:
//
//	faults := NewFaultSource(logger)
//	orchestrator, _ := New(logger, WithTriggerSource(MultiSource{signals, faults}))
//	orchestrator.EnableAutoTriggers()
//
//	go func() {
//	    defer faults.Recover()
//	    worker.Run()
//	}()
//
//	if err := cache.Load(); err != nil {
//	    faults.Report(err)
//	}
type FaultSource struct {
	logger *zap.Logger
	park   func()

	mu       sync.Mutex
	handlers map[string][]func()
}

// NewFaultSource creates a FaultSource. A nil logger disables logging.
func NewFaultSource(logger *zap.Logger) *FaultSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaultSource{
		logger:   logger,
		park:     func() { select {} },
		handlers: make(map[string][]func()),
	}
}

// Supports reports whether id is TriggerPanic or TriggerFatalError.
func (f *FaultSource) Supports(id string) bool {
	return id == TriggerPanic || id == TriggerFatalError
}

// OnTrigger registers handler for id.
func (f *FaultSource) OnTrigger(id string, handler func()) {
	if !f.Supports(id) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[id] = append(f.handlers[id], handler)
}

// Recover must be deferred directly. When the deferring goroutine panics,
// the panic is logged and TriggerPanic fires; the goroutine is then parked
// so the process stays alive until shutdown terminates it. Without any
// handler for TriggerPanic the panic is re-raised.
func (f *FaultSource) Recover() {
	r := recover()
	if r == nil {
		return
	}

	handlers := f.snapshot(TriggerPanic)
	if len(handlers) == 0 {
		panic(r)
	}

	perr := core.NewPanicError(r)
	f.logger.Error("Recovered panic, shutting down",
		zap.Error(perr),
		zap.ByteString("stack", perr.Stack),
	)
	for _, h := range handlers {
		h()
	}
	f.park()
}

// Report logs err and fires TriggerFatalError. It returns immediately; the
// caller should stop doing work. Report returns false when no handler is
// registered for TriggerFatalError.
func (f *FaultSource) Report(err error) bool {
	handlers := f.snapshot(TriggerFatalError)
	if len(handlers) == 0 {
		f.logger.Error("Fatal error reported with no shutdown wired", zap.Error(err))
		return false
	}

	f.logger.Error("Fatal error reported, shutting down", zap.Error(err))
	for _, h := range handlers {
		h()
	}
	return true
}

func (f *FaultSource) snapshot(id string) []func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.handlers[id])
}
