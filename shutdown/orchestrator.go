package shutdown

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gracefulexit/core"
)

// Instrumentation observes callback execution. Implementations must be safe
// for concurrent use; non-blocking callbacks settle on their own goroutines.
type Instrumentation interface {
	CallbackStarted(name string, blocking bool)
	CallbackSettled(name string, elapsed time.Duration, err error)
	DrainFinished(elapsed time.Duration)
}

type nopInstrumentation struct{}

func (nopInstrumentation) CallbackStarted(string, bool)                 {}
func (nopInstrumentation) CallbackSettled(string, time.Duration, error) {}
func (nopInstrumentation) DrainFinished(time.Duration)                  {}

// Orchestrator converts a shutdown request into process termination with a
// well-defined exit code. It composes:
//   - Registry: ordered cleanup callbacks
//   - Emitter: lifecycle notifications
//   - PendingTracker: the join for non-blocking callbacks
//   - SignalCounter: repeated trigger handling
//
// Once Shutdown runs, a deadline timer races the drain. Whichever path
// reaches termination first wins: the drain ends with BeforeExit and exit
// code 0, the deadline with Timeout and the configured timeout exit code.
// Callback failures are reported as Error events and never change the exit
// code.
//
// Usage:
//
//	orchestrator, err := shutdown.New(logger, shutdown.WithTimeout(10*time.Second))
//	if err != nil {
//	    return err
//	}
//
//	orchestrator.AddCallback(shutdown.ShutdownHTTPServer(server, 5*time.Second), shutdown.Blocking(), shutdown.WithOrder(-10))
//	orchestrator.AddCallback(core.Async(flushQueue))
//	orchestrator.AddCallback(shutdown.SyncLogger(logger), shutdown.WithOrder(100))
//
//	orchestrator.EnableAutoTriggers()
//	<-orchestrator.Done()
type Orchestrator struct {
	logger    *zap.Logger
	cfg       Config
	registry  *Registry
	events    *Emitter
	source    TriggerSource
	terminate func(code int)
	inst      Instrumentation
	counter   *SignalCounter
	runID     string

	armMu        sync.Mutex
	enabled      atomic.Bool
	shuttingDown atomic.Bool

	// emitMu orders every emission against the terminal claim: once a
	// terminal event was delivered no other event follows it.
	emitMu  sync.Mutex
	claimed bool

	// done is closed once a terminal path has claimed termination.
	done chan struct{}
	// exited is closed after terminate returned.
	exited chan struct{}

	timerMu  sync.Mutex
	deadline *time.Timer
}

// New creates an Orchestrator. The configuration is validated immediately;
// an invalid value returns a *core.ConfigError.
//
// Defaults:
//   - Timeout: 30 seconds
//   - ExitDelay: 100 milliseconds
//   - TimeoutExitCode: 1
//   - Triggers: SIGINT, SIGTERM, panic, fatal-error
//   - Trigger source: SignalSource
//   - Terminate: os.Exit
func New(logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := uuid.NewString()
	o := &Orchestrator{
		logger:   logger.With(zap.String("run_id", runID)),
		cfg:      DefaultConfig(),
		registry: NewRegistry(),
		events:   NewEmitter(logger),
		runID:    runID,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.source == nil {
		o.source = NewSignalSource()
	}
	if o.terminate == nil {
		o.terminate = os.Exit
	}
	if o.inst == nil {
		o.inst = nopInstrumentation{}
	}

	if err := o.cfg.Validate(o.source); err != nil {
		return nil, err
	}

	o.counter = NewSignalCounter(o.cfg.ForceAfter, o.force)
	return o, nil
}

// AddCallback registers action to run during shutdown. It is allowed in any
// state; a callback added after draining began is never run.
func (o *Orchestrator) AddCallback(action core.Action, opts ...CallbackOption) {
	cb := Callback{Action: action}
	for _, opt := range opts {
		opt(&cb)
	}
	o.registry.Register(cb)

	o.logger.Debug("Registered shutdown callback",
		zap.String("name", cb.Name),
		zap.Bool("blocking", cb.Blocking),
		zap.Int("order", cb.Order),
		zap.Bool("shutting_down", o.shuttingDown.Load()),
	)
}

// EnableAutoTriggers wires every configured trigger to emit BeforeShutdown
// and start Shutdown. It is a no-op once armed or once shutdown began.
func (o *Orchestrator) EnableAutoTriggers() {
	o.armMu.Lock()
	defer o.armMu.Unlock()

	if o.enabled.Load() || o.shuttingDown.Load() {
		return
	}

	for _, id := range o.cfg.Triggers {
		o.source.OnTrigger(id, o.handleTrigger(id))
	}
	o.enabled.Store(true)

	o.logger.Info("Shutdown triggers enabled",
		zap.Strings("triggers", o.cfg.Triggers),
	)
}

func (o *Orchestrator) handleTrigger(id string) func() {
	return func() {
		count := o.counter.Increment()
		if o.stopped() {
			return
		}

		if count == 1 {
			o.logger.Info("Received shutdown trigger, initiating graceful shutdown",
				zap.String("trigger", id),
			)
		} else {
			o.logger.Warn("Received repeated shutdown trigger",
				zap.String("trigger", id),
				zap.Int("count", count),
			)
		}

		if !o.emitUnlessStopped(BeforeShutdown{}) {
			return
		}
		go o.Shutdown()
	}
}

// force terminates immediately once the repeated-trigger threshold is reached.
func (o *Orchestrator) force() {
	if !o.claim(Timeout{Forced: true}, func() {
		o.logger.Warn("Shutdown trigger threshold reached, forcing immediate exit",
			zap.Int("force_after", o.cfg.ForceAfter),
			zap.Int("exit_code", o.cfg.TimeoutExitCode),
		)
	}) {
		return
	}
	o.stopDeadline()
	o.exit(o.cfg.TimeoutExitCode)
}

// Shutdown drains the registered callbacks and terminates the process. With
// the default terminate function it never returns. A second call is a no-op.
//
// The sequence is:
//  1. Start the deadline timer
//  2. Invoke callbacks in order; await blocking ones, track the others
//  3. Wait for all tracked callbacks to settle
//  4. Wait ExitDelay
//  5. Emit BeforeExit and terminate with exit code 0
func (o *Orchestrator) Shutdown() {
	if !o.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	if o.stopped() {
		<-o.exited
		return
	}

	startTime := time.Now()
	o.logger.Info("Initiating graceful shutdown",
		zap.Duration("timeout", o.cfg.Timeout),
		zap.Strings("callbacks", o.registry.Names()),
	)
	o.startDeadline()

	tracker := NewPendingTracker()
	for cb := range o.registry.Drain() {
		if o.stopped() {
			break
		}
		o.invoke(cb, tracker)
	}

	if active := tracker.ActiveCount(); active > 0 && !o.stopped() {
		o.logger.Info("Waiting for non-blocking callbacks",
			zap.Int64("active_count", active),
		)
	}
	if err := tracker.Wait(o.done); err != nil || o.stopped() {
		<-o.exited
		return
	}
	o.inst.DrainFinished(time.Since(startTime))

	select {
	case <-time.After(o.cfg.ExitDelay):
	case <-o.done:
		<-o.exited
		return
	}

	if !o.claim(BeforeExit{}, func() {
		o.logger.Info("Graceful shutdown completed",
			zap.Duration("duration", time.Since(startTime)),
		)
	}) {
		<-o.exited
		return
	}
	o.stopDeadline()
	o.exit(core.ExitCodeSuccess)
}

func (o *Orchestrator) invoke(cb Callback, tracker *PendingTracker) {
	o.inst.CallbackStarted(cb.Name, cb.Blocking)
	start := time.Now()

	result := call(cb.Action)
	if !result.Pending() {
		o.settle(cb, start, result.Err())
		return
	}

	if !cb.Blocking {
		tracker.Track(result.Wait(), o.done, func(err error) {
			o.settle(cb, start, err)
		})
		return
	}

	select {
	case err := <-result.Wait():
		o.settle(cb, start, err)
	case <-o.done:
	}
}

// call invokes action, converting a panic into a synchronous failure.
func call(action core.Action) (result core.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = core.Failed(core.NewPanicError(r))
		}
	}()
	return action()
}

func (o *Orchestrator) settle(cb Callback, start time.Time, err error) {
	elapsed := time.Since(start)
	o.inst.CallbackSettled(cb.Name, elapsed, err)

	if err == nil {
		o.logger.Debug("Shutdown callback completed",
			zap.String("name", cb.Name),
			zap.Duration("duration", elapsed),
		)
		return
	}

	if !o.emitUnlessStopped(Error{Callback: cb.Name, Err: err}) {
		o.logger.Warn("Shutdown callback failed after termination was decided",
			zap.String("name", cb.Name),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return
	}
	o.logger.Error("Shutdown callback failed",
		zap.String("name", cb.Name),
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)
}

func (o *Orchestrator) startDeadline() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()
	o.deadline = time.AfterFunc(o.cfg.Timeout, o.expire)
}

func (o *Orchestrator) stopDeadline() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()
	if o.deadline != nil {
		o.deadline.Stop()
	}
}

func (o *Orchestrator) expire() {
	if !o.claim(Timeout{}, func() {
		o.logger.Error("Shutdown deadline exceeded, forcing exit",
			zap.Duration("timeout", o.cfg.Timeout),
			zap.Int("exit_code", o.cfg.TimeoutExitCode),
		)
	}) {
		return
	}
	o.exit(o.cfg.TimeoutExitCode)
}

// claim reserves the terminal step, logs through announce and delivers the
// terminal event. Only the first caller gets true; every later emission is
// dropped.
func (o *Orchestrator) claim(terminal Event, announce func()) bool {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	if o.claimed {
		return false
	}
	o.claimed = true
	close(o.done)

	announce()
	o.events.Emit(terminal)
	return true
}

// emitUnlessStopped delivers a non-terminal event unless termination was
// already claimed. It reports whether the event was delivered.
func (o *Orchestrator) emitUnlessStopped(ev Event) bool {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	if o.claimed {
		return false
	}
	o.events.Emit(ev)
	return true
}

func (o *Orchestrator) stopped() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) exit(code int) {
	o.logger.Info("Terminating process",
		zap.Int("exit_code", code),
		zap.String("exit_status", core.ExitCodeName(code)),
	)
	o.terminate(code)
	close(o.exited)
}

// On registers fn for events of the given kind. Listeners run while event
// delivery is serialized against termination; they must not call Shutdown
// or fire a trigger synchronously.
func (o *Orchestrator) On(kind EventKind, fn Listener) Subscription {
	return o.events.On(kind, fn)
}

// OnAny registers fn for every event.
func (o *Orchestrator) OnAny(fn Listener) Subscription {
	return o.events.OnAny(fn)
}

// Off removes a listener registered with On or OnAny.
func (o *Orchestrator) Off(id Subscription) {
	o.events.Off(id)
}

// Enabled reports whether automatic triggers are wired.
func (o *Orchestrator) Enabled() bool {
	return o.enabled.Load()
}

// ShuttingDown reports whether Shutdown has been invoked.
func (o *Orchestrator) ShuttingDown() bool {
	return o.shuttingDown.Load()
}

// RunID identifies this process lifetime in logs and the journal.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Config returns the validated configuration.
func (o *Orchestrator) Config() Config {
	cfg := o.cfg
	cfg.Triggers = append([]string(nil), o.cfg.Triggers...)
	return cfg
}

// RegisteredCallbacks returns the callback names in execution order.
func (o *Orchestrator) RegisteredCallbacks() []string {
	return o.registry.Names()
}

// Done is closed after the terminal event was delivered and the terminate
// function returned. With os.Exit it is never closed; it exists for injected
// terminate functions.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.exited
}
