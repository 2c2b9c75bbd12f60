package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalCounter tracks repeated shutdown triggers and fires a force action
// once a threshold is reached.
//
// The first trigger starts a graceful shutdown; every later one only
// increments the count. With forceAfter > 0 the onForce callback runs exactly
// once, when the count first reaches forceAfter. A forceAfter of 0 disables
// forcing.
//
// Usage:
//
//	counter := NewSignalCounter(2, func() {
//	    logger.Warn("Second signal, forcing exit")
//	    os.Exit(1)
//	})
//
//	source.OnTrigger(TriggerSIGINT, func() {
//	    if counter.Increment() == 1 {
//	        go orchestrator.Shutdown()
//	    }
//	})
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	forced     bool
	onForce    func()
}

// NewSignalCounter creates a new SignalCounter.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment increases the count by one and returns the new count.
// The force callback runs outside the lock.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	s.count++
	count := s.count
	fire := s.forceAfter > 0 && count >= s.forceAfter && !s.forced && s.onForce != nil
	if fire {
		s.forced = true
	}
	onForce := s.onForce
	s.mu.Unlock()

	if fire {
		onForce()
	}
	return count
}

// Count returns the current trigger count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Forced reports whether the force callback has run.
func (s *SignalCounter) Forced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forced
}

// signalsByTrigger maps trigger identifiers to the OS signals they listen for.
var signalsByTrigger = map[string]os.Signal{
	TriggerSIGINT:  os.Interrupt,
	TriggerSIGTERM: syscall.SIGTERM,
	TriggerSIGHUP:  syscall.SIGHUP,
	TriggerSIGQUIT: syscall.SIGQUIT,
}

// SignalSource delivers OS signals as shutdown triggers.
//
// Each OnTrigger registration gets its own notification channel and goroutine;
// once a signal is registered the default action for it (terminating the
// process) no longer applies, so the orchestrator is responsible for exiting.
type SignalSource struct {
	mu    sync.Mutex
	chans []chan os.Signal
}

// NewSignalSource creates a SignalSource.
func NewSignalSource() *SignalSource {
	return &SignalSource{}
}

// Supports reports whether id names a signal this source can listen for.
func (s *SignalSource) Supports(id string) bool {
	_, ok := signalsByTrigger[id]
	return ok
}

// OnTrigger starts listening for the signal named by id.
func (s *SignalSource) OnTrigger(id string, handler func()) {
	sig, ok := signalsByTrigger[id]
	if !ok {
		return
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)

	s.mu.Lock()
	s.chans = append(s.chans, ch)
	s.mu.Unlock()

	go func() {
		for range ch {
			handler()
		}
	}()
}

// Stop stops signal delivery and releases the listener goroutines.
func (s *SignalSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.chans {
		signal.Stop(ch)
		close(ch)
	}
	s.chans = nil
}
