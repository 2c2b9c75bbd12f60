package core

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeInvalidTimeout     = "INVALID_TIMEOUT"
	ErrCodeInvalidExitDelay   = "INVALID_EXIT_DELAY"
	ErrCodeInvalidTriggers    = "INVALID_TRIGGERS"
	ErrCodeUnsupportedTrigger = "UNSUPPORTED_TRIGGER"
	ErrCodeInvalidForceAfter  = "INVALID_FORCE_AFTER"
	ErrCodeConfigFileInvalid  = "CONFIG_FILE_INVALID"
	ErrCodeMissingConfig      = "MISSING_CONFIG"
	ErrCodeInvalidEnvValue    = "INVALID_ENV_VALUE"
)

// ErrInvalidTimeout returns an error for a non-positive shutdown deadline
func ErrInvalidTimeout(timeout time.Duration) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidTimeout,
		Message: fmt.Sprintf("Shutdown timeout must be positive, got %v", timeout),
		Action:  "Set SHUTDOWN_TIMEOUT to a positive number of seconds (e.g., 30)",
	}
}

// ErrInvalidExitDelay returns an error for a non-positive exit delay
func ErrInvalidExitDelay(delay time.Duration) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidExitDelay,
		Message: fmt.Sprintf("Exit delay must be positive, got %v", delay),
		Action:  "Set SHUTDOWN_EXIT_DELAY to a positive number of seconds (e.g., 0.1)",
	}
}

// ErrInvalidTriggers returns an error for an empty, blank or duplicated trigger list
func ErrInvalidTriggers(reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidTriggers,
		Message: fmt.Sprintf("Invalid shutdown triggers: %s", reason),
		Action:  "Set SHUTDOWN_TRIGGERS to a comma-separated list of distinct trigger names (e.g., SIGINT,SIGTERM)",
	}
}

// ErrUnsupportedTrigger returns an error for a trigger no trigger source can deliver
func ErrUnsupportedTrigger(id string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnsupportedTrigger,
		Message: fmt.Sprintf("Unsupported shutdown trigger: %q", id),
		Action:  "Use one of SIGINT, SIGTERM, SIGHUP, SIGQUIT, panic, fatal-error, service-stop",
	}
}

// ErrInvalidForceAfter returns an error for a forced-exit threshold that is
// negative or 1 (the first trigger would skip every callback)
func ErrInvalidForceAfter(n int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidForceAfter,
		Message: fmt.Sprintf("Forced exit threshold must be 0 or at least 2, got %d", n),
		Action:  "Set SHUTDOWN_FORCE_AFTER to 0 to disable forced exit, or to the trigger count (2 or more) that forces it",
	}
}

// ErrConfigFileInvalid returns an error for an unreadable or malformed YAML config file
func ErrConfigFileInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigFileInvalid,
		Message: fmt.Sprintf("Cannot load configuration file %s: %s", path, reason),
		Action:  "Check that the file exists and is valid YAML",
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidEnvValue returns an error for an environment variable whose value
// cannot be parsed
func ErrInvalidEnvValue(key, value, expected string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidEnvValue,
		Message: fmt.Sprintf("Invalid value for %s: %q is not %s", key, value, expected),
		Action:  fmt.Sprintf("Fix or unset %s in your environment or .env file", key),
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
