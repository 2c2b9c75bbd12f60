package shutdown

import (
	"slices"
	"sync"
)

// Trigger identifiers understood by the stock trigger sources.
const (
	TriggerSIGINT      = "SIGINT"
	TriggerSIGTERM     = "SIGTERM"
	TriggerSIGHUP      = "SIGHUP"
	TriggerSIGQUIT     = "SIGQUIT"
	TriggerPanic       = "panic"
	TriggerFatalError  = "fatal-error"
	TriggerServiceStop = "service-stop"
)

// DefaultTriggers returns the triggers wired when none are configured:
// interrupt, terminate request, recovered panic and reported fatal error.
func DefaultTriggers() []string {
	return []string{TriggerSIGINT, TriggerSIGTERM, TriggerPanic, TriggerFatalError}
}

// TriggerSource delivers external shutdown requests.
//
// OnTrigger arranges for handler to run every time the trigger identified by
// id fires. Handlers may run on any goroutine. Implementations must accept
// every id for which Supports returns true.
type TriggerSource interface {
	Supports(id string) bool
	OnTrigger(id string, handler func())
}

// MultiSource routes each trigger id to the first source supporting it.
type MultiSource []TriggerSource

// Supports reports whether any source supports id.
func (m MultiSource) Supports(id string) bool {
	return m.find(id) != nil
}

// OnTrigger registers handler with the first source supporting id.
// Unsupported ids are ignored.
func (m MultiSource) OnTrigger(id string, handler func()) {
	if src := m.find(id); src != nil {
		src.OnTrigger(id, handler)
	}
}

func (m MultiSource) find(id string) TriggerSource {
	for _, src := range m {
		if src != nil && src.Supports(id) {
			return src
		}
	}
	return nil
}

// ManualSource is a TriggerSource fired explicitly through Fire. It backs
// triggers driven by application code and is used in tests in place of OS
// signals.
type ManualSource struct {
	ids []string

	mu       sync.Mutex
	handlers map[string][]func()
}

// NewManualSource creates a source supporting the given ids.
func NewManualSource(ids ...string) *ManualSource {
	return &ManualSource{
		ids:      ids,
		handlers: make(map[string][]func()),
	}
}

// Supports reports whether id was passed to NewManualSource.
func (s *ManualSource) Supports(id string) bool {
	return slices.Contains(s.ids, id)
}

// OnTrigger registers handler for id.
func (s *ManualSource) OnTrigger(id string, handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[id] = append(s.handlers[id], handler)
}

// Fire runs every handler registered for id on the calling goroutine and
// reports whether any handler was registered.
func (s *ManualSource) Fire(id string) bool {
	s.mu.Lock()
	handlers := slices.Clone(s.handlers[id])
	s.mu.Unlock()

	for _, h := range handlers {
		h()
	}
	return len(handlers) > 0
}
