package core

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults shared by configuration loading and the shutdown orchestrator.
const (
	DefaultShutdownTimeout = 30 * time.Second
	DefaultExitDelay       = 100 * time.Millisecond
	DefaultLogFile         = "shutdown.log"
	DefaultLogLevel        = "info"
)

// Config holds all configuration values for the gracefulexit process.
type Config struct {
	// Shutdown orchestration
	ShutdownTimeout time.Duration // Hard deadline from shutdown start to forced termination
	ExitDelay       time.Duration // Grace pause after all callbacks settle
	TimeoutExitCode int           // Status code used when the deadline fires first
	Triggers        []string      // Trigger names; nil means the orchestrator defaults
	ForceAfter      int           // Trigger count that forces immediate exit (0 = disabled)

	// Logging
	DevMode  bool
	LogLevel string
	LogFile  string

	// Lifecycle journal (empty path disables it)
	JournalPath string

	// Prometheus endpoint (empty address disables it)
	MetricsAddr string

	// Directory scanned for temp_* files during cleanup (empty disables it)
	TempDir string
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// No variable is required, but a variable that is set must parse: a malformed
// value is a *ConfigError naming it, never a silent default.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DevMode:  ParseBoolEnv("DEV_MODE", false),
		LogLevel: GetEnvOrDefault("LOG_LEVEL", DefaultLogLevel),
		LogFile:  GetEnvOrDefault("LOG_FILE", DefaultLogFile),

		JournalPath: os.Getenv("JOURNAL_PATH"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		TempDir:     os.Getenv("TEMP_DIR"),
	}

	var err error
	if cfg.ShutdownTimeout, err = LookupSecondsEnv("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.ExitDelay, err = LookupSecondsEnv("SHUTDOWN_EXIT_DELAY", DefaultExitDelay); err != nil {
		return nil, err
	}
	if cfg.TimeoutExitCode, err = LookupIntEnv("SHUTDOWN_TIMEOUT_EXIT_CODE", ExitCodeTimeout); err != nil {
		return nil, err
	}
	if cfg.Triggers, err = LookupListEnv("SHUTDOWN_TRIGGERS", nil); err != nil {
		return nil, err
	}
	if cfg.ForceAfter, err = LookupIntEnv("SHUTDOWN_FORCE_AFTER", 0); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that can be validated without knowing which
// trigger sources are available. Trigger support is checked by the orchestrator.
func (c *Config) Validate() error {
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidTimeout(c.ShutdownTimeout)
	}
	if c.ExitDelay <= 0 {
		return ErrInvalidExitDelay(c.ExitDelay)
	}
	if c.Triggers != nil && len(c.Triggers) == 0 {
		return ErrInvalidTriggers("at least one trigger is required")
	}
	if c.ForceAfter < 0 || c.ForceAfter == 1 {
		return ErrInvalidForceAfter(c.ForceAfter)
	}
	if c.LogFile == "" {
		return ErrMissingConfig("LOG_FILE")
	}
	return nil
}

// fileConfig mirrors Config in YAML form. Pointer fields distinguish
// "not present" from zero values so the file only overrides what it sets.
type fileConfig struct {
	Shutdown struct {
		Timeout         *float64 `yaml:"timeout"`
		ExitDelay       *float64 `yaml:"exit_delay"`
		TimeoutExitCode *int     `yaml:"timeout_exit_code"`
		Triggers        []string `yaml:"triggers"`
		ForceAfter      *int     `yaml:"force_after"`
	} `yaml:"shutdown"`
	Logging struct {
		Development *bool   `yaml:"development"`
		Level       *string `yaml:"level"`
		File        *string `yaml:"file"`
	} `yaml:"logging"`
	Journal struct {
		Path *string `yaml:"path"`
	} `yaml:"journal"`
	Metrics struct {
		Addr *string `yaml:"addr"`
	} `yaml:"metrics"`
	TempDir *string `yaml:"temp_dir"`
}

// LoadConfigFile overlays the YAML document at path onto base and validates
// the result. base is not modified. Unknown keys are rejected.
//
// Example file:
//
//	shutdown:
//	  timeout: 10
//	  exit_delay: 0.25
//	  triggers: [SIGINT, SIGTERM]
//	journal:
//	  path: ./lifecycle.db
func LoadConfigFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrConfigFileInvalid(path, err.Error())
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, ErrConfigFileInvalid(path, err.Error())
	}

	cfg := *base
	s := fc.Shutdown
	if s.Timeout != nil {
		cfg.ShutdownTimeout = SecondsToDuration(*s.Timeout)
	}
	if s.ExitDelay != nil {
		cfg.ExitDelay = SecondsToDuration(*s.ExitDelay)
	}
	if s.TimeoutExitCode != nil {
		cfg.TimeoutExitCode = *s.TimeoutExitCode
	}
	if s.Triggers != nil {
		cfg.Triggers = s.Triggers
	}
	if s.ForceAfter != nil {
		cfg.ForceAfter = *s.ForceAfter
	}
	if fc.Logging.Development != nil {
		cfg.DevMode = *fc.Logging.Development
	}
	if fc.Logging.Level != nil {
		cfg.LogLevel = *fc.Logging.Level
	}
	if fc.Logging.File != nil {
		cfg.LogFile = *fc.Logging.File
	}
	if fc.Journal.Path != nil {
		cfg.JournalPath = *fc.Journal.Path
	}
	if fc.Metrics.Addr != nil {
		cfg.MetricsAddr = *fc.Metrics.Addr
	}
	if fc.TempDir != nil {
		cfg.TempDir = *fc.TempDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
