package shutdown

import (
	"os"
	"runtime"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestSignalCounter_NewSignalCounter(t *testing.T) {
	counter := NewSignalCounter(2, nil)
	if counter == nil {
		t.Fatal("NewSignalCounter returned nil")
	}
	if counter.Count() != 0 {
		t.Errorf("expected 0 count, got %d", counter.Count())
	}
	if counter.Forced() {
		t.Error("new counter should not be forced")
	}
}

func TestSignalCounter_Increment(t *testing.T) {
	counter := NewSignalCounter(3, nil)

	if count := counter.Increment(); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
	if count := counter.Increment(); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	if counter.Count() != 2 {
		t.Errorf("expected Count() 2, got %d", counter.Count())
	}
}

func TestSignalCounter_ForceOnceAtThreshold(t *testing.T) {
	var callCount int
	counter := NewSignalCounter(3, func() {
		callCount++
	})

	counter.Increment() // 1
	counter.Increment() // 2
	if callCount != 0 {
		t.Errorf("callback called too early, count: %d", callCount)
	}

	counter.Increment() // 3 - triggers
	if callCount != 1 {
		t.Errorf("expected callback called once at threshold, got %d", callCount)
	}

	counter.Increment() // 4 - already forced
	if callCount != 1 {
		t.Errorf("expected callback to fire only once, got %d", callCount)
	}
	if !counter.Forced() {
		t.Error("Forced() should be true after threshold")
	}
}

func TestSignalCounter_ZeroDisablesForce(t *testing.T) {
	called := false
	counter := NewSignalCounter(0, func() { called = true })

	for i := 0; i < 10; i++ {
		counter.Increment()
	}
	if called {
		t.Error("force callback must not run when forceAfter is 0")
	}
}

func TestSignalCounter_CallbackMayIncrement(t *testing.T) {
	var counter *SignalCounter
	counter = NewSignalCounter(1, func() {
		counter.Increment()
	})

	done := make(chan struct{})
	go func() {
		counter.Increment()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("force callback deadlocked the counter")
	}
	if counter.Count() != 2 {
		t.Errorf("expected count 2, got %d", counter.Count())
	}
}

func TestSignalCounter_ConcurrentIncrements(t *testing.T) {
	var mu sync.Mutex
	forced := 0
	counter := NewSignalCounter(50, func() {
		mu.Lock()
		forced++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Increment()
		}()
	}
	wg.Wait()

	if counter.Count() != 100 {
		t.Errorf("expected count 100, got %d", counter.Count())
	}
	if forced != 1 {
		t.Errorf("expected exactly one force, got %d", forced)
	}
}

func TestSignalSource_Supports(t *testing.T) {
	source := NewSignalSource()

	for _, id := range []string{TriggerSIGINT, TriggerSIGTERM, TriggerSIGHUP, TriggerSIGQUIT} {
		if !source.Supports(id) {
			t.Errorf("expected %s to be supported", id)
		}
	}
	for _, id := range []string{TriggerPanic, TriggerServiceStop, "SIGKILL", ""} {
		if source.Supports(id) {
			t.Errorf("expected %q to be unsupported", id)
		}
	}
}

func TestSignalSource_DeliversSignal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signals cannot be sent to self on windows")
	}

	source := NewSignalSource()
	defer source.Stop()

	fired := make(chan struct{}, 1)
	source.OnTrigger(TriggerSIGHUP, func() {
		fired <- struct{}{}
	})

	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGHUP was not delivered to the handler")
	}
}

func TestSignalSource_UnsupportedIgnored(t *testing.T) {
	source := NewSignalSource()
	source.OnTrigger("SIGKILL", func() {})
	source.Stop()
	source.Stop()
}
