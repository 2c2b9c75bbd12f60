package core

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvOrDefault returns the value of an environment variable or a default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// LookupIntEnv parses an environment variable as an integer.
// Returns the default value if the variable is not set, and a
// *ConfigError naming the key if it is set but not an integer.
func LookupIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, ErrInvalidEnvValue(key, value, "an integer")
	}
	return intValue, nil
}

// ParseBoolEnv parses an environment variable as a boolean.
// Accepts case-insensitive: "true", "1", "yes", "on" as true values.
// Accepts case-insensitive: "false", "0", "no", "off" as false values.
// Returns the default value if the variable is not set or cannot be parsed.
func ParseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// LookupSecondsEnv parses an environment variable holding a (possibly
// fractional) number of seconds, e.g. "0.25". A value that is set but not a
// number is a *ConfigError naming the key.
//
// The value is not clamped: a negative or zero value is returned as is so
// configuration validation can reject it.
func LookupSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, ErrInvalidEnvValue(key, value, "a number of seconds")
	}
	return SecondsToDuration(seconds), nil
}

// LookupListEnv parses a comma-separated environment variable.
// Entries are trimmed; empty entries are dropped. Returns the default value
// if the variable is not set, and a *ConfigError if it is set but holds no
// entries.
func LookupListEnv(key string, defaultValue []string) ([]string, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	list := SplitList(value)
	if len(list) == 0 {
		return nil, ErrInvalidEnvValue(key, value, "a comma-separated list")
	}
	return list, nil
}

// SplitList splits a comma-separated string into trimmed, non-empty entries.
func SplitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// SecondsToDuration converts fractional seconds to a time.Duration.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
