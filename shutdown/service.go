package shutdown

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kardianos/service"
)

// ServiceSource adapts a service manager (systemd, launchd, Windows SCM, ...)
// to the orchestrator. It implements service.Interface: Start launches the
// application, Stop fires TriggerServiceStop and waits for the process to
// finish shutting down.
//
// Usage:
//
//	source := shutdown.NewServiceSource(runApp)
//	svc, err := service.New(source, svcConfig)
//	...
//	orchestrator, _ := shutdown.New(logger, shutdown.WithTriggerSource(source),
//	    shutdown.WithTriggers(shutdown.TriggerServiceStop))
//	source.WaitFor(orchestrator.Done(), 30*time.Second)
//	svc.Run()
type ServiceSource struct {
	run func()

	mu          sync.Mutex
	handlers    []func()
	done        <-chan struct{}
	stopTimeout time.Duration
}

// NewServiceSource creates a ServiceSource that calls run on its own
// goroutine when the service manager starts the service. run may be nil.
func NewServiceSource(run func()) *ServiceSource {
	return &ServiceSource{run: run}
}

// WaitFor makes Stop block until done is closed or timeout elapsed.
func (s *ServiceSource) WaitFor(done <-chan struct{}, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = done
	s.stopTimeout = timeout
}

// Supports reports whether id is TriggerServiceStop.
func (s *ServiceSource) Supports(id string) bool {
	return id == TriggerServiceStop
}

// OnTrigger registers handler for TriggerServiceStop.
func (s *ServiceSource) OnTrigger(id string, handler func()) {
	if !s.Supports(id) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start is called by the service manager when the service starts.
func (s *ServiceSource) Start(service.Service) error {
	if s.run != nil {
		go s.run()
	}
	return nil
}

// Stop is called by the service manager when the service is asked to stop.
func (s *ServiceSource) Stop(service.Service) error {
	s.mu.Lock()
	handlers := slices.Clone(s.handlers)
	done := s.done
	timeout := s.stopTimeout
	s.mu.Unlock()

	for _, h := range handlers {
		h()
	}

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for service to stop after %v", timeout)
	}
}
