package journal

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultBufferSize is the number of entries the writer queues before
// dropping new ones.
const DefaultBufferSize = 100

var (
	// ErrWriterClosed is returned for writes after Stop.
	ErrWriterClosed = errors.New("journal writer closed")
	// ErrWriterFull is returned when the buffer has no room.
	ErrWriterFull = errors.New("journal writer buffer full")
	// ErrFlushTimeout is returned when queued entries were not persisted in time.
	ErrFlushTimeout = errors.New("journal flush timed out")
)

// WriteHandler persists a single entry.
type WriteHandler func(Entry) error

type writeOp struct {
	entry   Entry
	flushed chan struct{}
}

// Writer persists entries on a background goroutine so that event
// listeners never wait on disk I/O.
//
// Example:
//
//	w := journal.NewWriter(store, journal.DefaultBufferSize, logger)
//	_ = w.Write(entry)
//	_ = w.Flush(time.Second)
//	w.Stop()
type Writer struct {
	ops     chan writeOp
	handler WriteHandler
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	written atomic.Int64
	dropped atomic.Int64
}

// NewWriter creates a Writer and starts its background goroutine.
func NewWriter(handler WriteHandler, bufferSize int, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	w := &Writer{
		ops:     make(chan writeOp, bufferSize),
		handler: handler,
		logger:  logger,
	}
	w.wg.Add(1)
	go w.process()
	return w
}

func (w *Writer) process() {
	defer w.wg.Done()

	for op := range w.ops {
		if op.flushed != nil {
			close(op.flushed)
			continue
		}
		if err := w.handler(op.entry); err != nil {
			w.logger.Warn("Failed to write journal entry",
				zap.String("kind", op.entry.Kind),
				zap.Error(err),
			)
			continue
		}
		w.written.Add(1)
	}
}

// Write queues an entry without blocking.
func (w *Writer) Write(entry Entry) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWriterClosed
	}

	select {
	case w.ops <- writeOp{entry: entry}:
		return nil
	default:
		w.dropped.Add(1)
		return ErrWriterFull
	}
}

// Flush waits until every entry queued before the call has been handled.
func (w *Writer) Flush(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	flushed := make(chan struct{})

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWriterClosed
	}
	select {
	case w.ops <- writeOp{flushed: flushed}:
	case <-timer.C:
		w.mu.RUnlock()
		return ErrFlushTimeout
	}
	w.mu.RUnlock()

	select {
	case <-flushed:
		return nil
	case <-timer.C:
		return ErrFlushTimeout
	}
}

// Stop rejects new writes, drains the buffer and waits for the background
// goroutine to exit. Calling Stop more than once is safe.
func (w *Writer) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// Written returns the number of entries persisted successfully.
func (w *Writer) Written() int64 {
	return w.written.Load()
}

// Dropped returns the number of entries rejected because the buffer was full.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Pending returns the number of queued operations.
func (w *Writer) Pending() int {
	return len(w.ops)
}
