package journal

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type entrySink struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *entrySink) handle(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *entrySink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Kind
	}
	return out
}

func TestWriter_FlushPersistsQueuedEntries(t *testing.T) {
	sink := &entrySink{}
	w := NewWriter(sink.handle, 10, zaptest.NewLogger(t))
	defer w.Stop()

	for _, kind := range []string{"beforeShutdown", "error", "error"} {
		if err := w.Write(Entry{Kind: kind}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Flush(time.Second); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got := sink.kinds()
	want := []string{"beforeShutdown", "error", "error"}
	if len(got) != len(want) {
		t.Fatalf("persisted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
	if w.Written() != 3 {
		t.Errorf("Written() = %d, want 3", w.Written())
	}
}

func TestWriter_FullBufferDrops(t *testing.T) {
	release := make(chan struct{})
	handler := func(Entry) error {
		<-release
		return nil
	}

	w := NewWriter(handler, 1, zaptest.NewLogger(t))
	defer func() {
		close(release)
		w.Stop()
	}()

	// First entry may be picked up by the goroutine, so fill until rejected.
	var full bool
	for i := 0; i < 5; i++ {
		if err := w.Write(Entry{Kind: "error"}); errors.Is(err, ErrWriterFull) {
			full = true
			break
		}
	}
	if !full {
		t.Fatal("expected ErrWriterFull once the buffer is exhausted")
	}
	if w.Dropped() == 0 {
		t.Error("Dropped() should count rejected entries")
	}
}

func TestWriter_FlushTimeout(t *testing.T) {
	release := make(chan struct{})
	handler := func(Entry) error {
		<-release
		return nil
	}

	w := NewWriter(handler, 4, zaptest.NewLogger(t))
	defer func() {
		close(release)
		w.Stop()
	}()

	if err := w.Write(Entry{Kind: "error"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(20 * time.Millisecond); !errors.Is(err, ErrFlushTimeout) {
		t.Errorf("Flush() error = %v, want ErrFlushTimeout", err)
	}
}

func TestWriter_StopDrainsAndRejects(t *testing.T) {
	sink := &entrySink{}
	w := NewWriter(sink.handle, 10, zaptest.NewLogger(t))

	for i := 0; i < 5; i++ {
		_ = w.Write(Entry{Kind: "error"})
	}
	w.Stop()
	w.Stop()

	if len(sink.kinds()) != 5 {
		t.Errorf("persisted %d entries, want 5", len(sink.kinds()))
	}
	if err := w.Write(Entry{}); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("Write() after Stop error = %v, want ErrWriterClosed", err)
	}
	if err := w.Flush(time.Second); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("Flush() after Stop error = %v, want ErrWriterClosed", err)
	}
}

func TestWriter_HandlerErrorsDoNotStopProcessing(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	handler := func(e Entry) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if e.Kind == "bad" {
			return errors.New("disk I/O error")
		}
		return nil
	}

	w := NewWriter(handler, 10, zaptest.NewLogger(t))
	_ = w.Write(Entry{Kind: "bad"})
	_ = w.Write(Entry{Kind: "good"})
	if err := w.Flush(time.Second); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	if w.Written() != 1 {
		t.Errorf("Written() = %d, want 1", w.Written())
	}
}
