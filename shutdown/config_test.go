package shutdown

import (
	"reflect"
	"testing"
	"time"

	"gracefulexit/core"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(MultiSource{NewSignalSource(), NewFaultSource(nil)}); err != nil {
		t.Errorf("default config should be valid against the stock sources: %v", err)
	}
	if cfg.ForceAfter != 0 {
		t.Errorf("ForceAfter = %d, want 0 (disabled)", cfg.ForceAfter)
	}
}

func TestConfig_ValidateWithoutSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Triggers = []string{"custom"}
	if err := cfg.Validate(nil); err != nil {
		t.Errorf("nil source should skip the support check: %v", err)
	}
}

func TestConfig_ValidateUnsupported(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate(NewSignalSource())

	configErr, ok := core.IsConfigError(err)
	if !ok {
		t.Fatalf("expected *core.ConfigError, got %T", err)
	}
	if configErr.Code != core.ErrCodeUnsupportedTrigger {
		t.Errorf("Code = %q, want %q", configErr.Code, core.ErrCodeUnsupportedTrigger)
	}
}

func TestFromAppConfig(t *testing.T) {
	app := &core.Config{
		ShutdownTimeout: 12 * time.Second,
		ExitDelay:       250 * time.Millisecond,
		TimeoutExitCode: 124,
		ForceAfter:      2,
	}

	cfg := FromAppConfig(app)
	if cfg.Timeout != 12*time.Second || cfg.ExitDelay != 250*time.Millisecond {
		t.Errorf("durations not copied: %+v", cfg)
	}
	if cfg.TimeoutExitCode != 124 || cfg.ForceAfter != 2 {
		t.Errorf("codes not copied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Triggers, DefaultTriggers()) {
		t.Errorf("nil triggers should keep defaults, got %v", cfg.Triggers)
	}

	app.Triggers = []string{"SIGTERM"}
	cfg = FromAppConfig(app)
	app.Triggers[0] = "mutated"
	if !reflect.DeepEqual(cfg.Triggers, []string{"SIGTERM"}) {
		t.Errorf("Triggers = %v, want [SIGTERM]", cfg.Triggers)
	}
}

func TestCallbackOptions(t *testing.T) {
	var cb Callback
	for _, opt := range []CallbackOption{Blocking(), WithOrder(-3), WithName("db")} {
		opt(&cb)
	}
	if !cb.Blocking || cb.Order != -3 || cb.Name != "db" {
		t.Errorf("callback = %+v", cb)
	}
}
