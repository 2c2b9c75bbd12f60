package shutdown

import (
	"slices"
	"strings"
	"time"

	"gracefulexit/core"
)

// Config holds the orchestrator settings captured at construction.
type Config struct {
	// Timeout is the hard deadline from shutdown start to forced termination.
	Timeout time.Duration

	// ExitDelay is the pause after all callback work settled, before exit.
	ExitDelay time.Duration

	// TimeoutExitCode is used when the deadline fires first.
	TimeoutExitCode int

	// Triggers lists the trigger ids wired by EnableAutoTriggers.
	Triggers []string

	// ForceAfter terminates immediately with TimeoutExitCode once this many
	// triggers were received. Zero disables it; otherwise it must be at
	// least 2 so the first trigger always starts a graceful drain.
	ForceAfter int
}

// DefaultConfig returns the default orchestrator settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         core.DefaultShutdownTimeout,
		ExitDelay:       core.DefaultExitDelay,
		TimeoutExitCode: core.ExitCodeTimeout,
		Triggers:        DefaultTriggers(),
	}
}

// FromAppConfig extracts the orchestrator settings from the application
// configuration. A nil trigger list keeps the defaults.
func FromAppConfig(cfg *core.Config) Config {
	c := DefaultConfig()
	c.Timeout = cfg.ShutdownTimeout
	c.ExitDelay = cfg.ExitDelay
	c.TimeoutExitCode = cfg.TimeoutExitCode
	c.ForceAfter = cfg.ForceAfter
	if cfg.Triggers != nil {
		c.Triggers = slices.Clone(cfg.Triggers)
	}
	return c
}

// Validate checks the configuration against the trigger source that will
// deliver its triggers. A nil source skips the support check.
func (c Config) Validate(source TriggerSource) error {
	if c.Timeout <= 0 {
		return core.ErrInvalidTimeout(c.Timeout)
	}
	if c.ExitDelay <= 0 {
		return core.ErrInvalidExitDelay(c.ExitDelay)
	}
	if c.ForceAfter < 0 || c.ForceAfter == 1 {
		return core.ErrInvalidForceAfter(c.ForceAfter)
	}
	if len(c.Triggers) == 0 {
		return core.ErrInvalidTriggers("at least one trigger is required")
	}

	seen := make(map[string]bool, len(c.Triggers))
	for _, id := range c.Triggers {
		if strings.TrimSpace(id) == "" {
			return core.ErrInvalidTriggers("trigger ids must not be blank")
		}
		if seen[id] {
			return core.ErrInvalidTriggers("duplicate trigger " + id)
		}
		seen[id] = true

		if source != nil && !source.Supports(id) {
			return core.ErrUnsupportedTrigger(id)
		}
	}
	return nil
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
		o.cfg.Triggers = slices.Clone(cfg.Triggers)
	}
}

// WithTimeout sets the shutdown deadline. Default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.Timeout = timeout
	}
}

// WithExitDelay sets the pause before the final exit. Default is 100ms.
func WithExitDelay(delay time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.ExitDelay = delay
	}
}

// WithTimeoutExitCode sets the exit code used when the deadline fires.
func WithTimeoutExitCode(code int) Option {
	return func(o *Orchestrator) {
		o.cfg.TimeoutExitCode = code
	}
}

// WithTriggers sets the trigger ids wired by EnableAutoTriggers.
func WithTriggers(ids ...string) Option {
	return func(o *Orchestrator) {
		o.cfg.Triggers = slices.Clone(ids)
	}
}

// WithForceAfter terminates the process once n triggers were received.
func WithForceAfter(n int) Option {
	return func(o *Orchestrator) {
		o.cfg.ForceAfter = n
	}
}

// WithTerminate replaces os.Exit. The function is expected not to return;
// when it does (tests), the orchestrator stops and Done is closed.
func WithTerminate(terminate func(code int)) Option {
	return func(o *Orchestrator) {
		o.terminate = terminate
	}
}

// WithTriggerSource sets where automatic triggers come from. Default is a
// SignalSource.
func WithTriggerSource(source TriggerSource) Option {
	return func(o *Orchestrator) {
		o.source = source
	}
}

// WithListener subscribes fn to every lifecycle event.
func WithListener(fn Listener) Option {
	return func(o *Orchestrator) {
		o.events.OnAny(fn)
	}
}

// WithInstrumentation reports callback and drain timings to inst.
func WithInstrumentation(inst Instrumentation) Option {
	return func(o *Orchestrator) {
		o.inst = inst
	}
}

// CallbackOption configures a single callback.
type CallbackOption func(*Callback)

// Blocking makes the callback a sequential barrier: the next callback starts
// only after it settled.
func Blocking() CallbackOption {
	return func(cb *Callback) {
		cb.Blocking = true
	}
}

// WithOrder sets the callback order. Lower values run earlier.
func WithOrder(order int) CallbackOption {
	return func(cb *Callback) {
		cb.Order = order
	}
}

// WithName names the callback for logs and metrics.
func WithName(name string) CallbackOption {
	return func(cb *Callback) {
		cb.Name = name
	}
}
