package core

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	const testKey = "TEST_GET_ENV_OR_DEFAULT"

	t.Run("returns env value when set", func(t *testing.T) {
		t.Setenv(testKey, "custom_value")
		if got := GetEnvOrDefault(testKey, "default"); got != "custom_value" {
			t.Errorf("GetEnvOrDefault() = %q, want %q", got, "custom_value")
		}
	})

	t.Run("returns default when not set", func(t *testing.T) {
		os.Unsetenv(testKey)
		if got := GetEnvOrDefault(testKey, "default"); got != "default" {
			t.Errorf("GetEnvOrDefault() = %q, want %q", got, "default")
		}
	})
}

func TestLookupIntEnv(t *testing.T) {
	const testKey = "TEST_LOOKUP_INT_ENV"

	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
		wantErr      bool
	}{
		{name: "parses positive", envValue: "42", defaultValue: 0, want: 42},
		{name: "parses negative", envValue: "-3", defaultValue: 0, want: -3},
		{name: "trims whitespace", envValue: " 7 ", defaultValue: 0, want: 7},
		{name: "rejects word", envValue: "one", defaultValue: 5, wantErr: true},
		{name: "rejects float", envValue: "1.5", defaultValue: 5, wantErr: true},
		{name: "returns default for empty", envValue: "", defaultValue: 9, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			got, err := LookupIntEnv(testKey, tt.defaultValue)
			if tt.wantErr {
				if code := GetErrorCode(err); code != ErrCodeInvalidEnvValue {
					t.Fatalf("LookupIntEnv() error code = %q, want %q (err: %v)", code, ErrCodeInvalidEnvValue, err)
				}
				if !strings.Contains(err.Error(), testKey) {
					t.Errorf("error %q should name %s", err, testKey)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupIntEnv() returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LookupIntEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	const testKey = "TEST_PARSE_BOOL_ENV"

	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "true lowercase", envValue: "true", defaultValue: false, want: true},
		{name: "TRUE uppercase", envValue: "TRUE", defaultValue: false, want: true},
		{name: "1", envValue: "1", defaultValue: false, want: true},
		{name: "yes", envValue: "yes", defaultValue: false, want: true},
		{name: "on", envValue: "on", defaultValue: false, want: true},
		{name: "false", envValue: "false", defaultValue: true, want: false},
		{name: "0", envValue: "0", defaultValue: true, want: false},
		{name: "off", envValue: "off", defaultValue: true, want: false},
		{name: "empty returns default", envValue: "", defaultValue: true, want: true},
		{name: "invalid returns default", envValue: "maybe", defaultValue: true, want: true},
		{name: "whitespace handled", envValue: "  true  ", defaultValue: false, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := ParseBoolEnv(testKey, tt.defaultValue); got != tt.want {
				t.Errorf("ParseBoolEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupSecondsEnv(t *testing.T) {
	const testKey = "TEST_LOOKUP_SECONDS_ENV"

	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		want         time.Duration
		wantErr      bool
	}{
		{name: "whole seconds", envValue: "30", defaultValue: time.Second, want: 30 * time.Second},
		{name: "fractional seconds", envValue: "0.25", defaultValue: time.Second, want: 250 * time.Millisecond},
		{name: "negative kept for validation", envValue: "-1", defaultValue: time.Second, want: -time.Second},
		{name: "empty returns default", envValue: "", defaultValue: 3 * time.Second, want: 3 * time.Second},
		{name: "rejects word", envValue: "thirty", defaultValue: 2 * time.Second, wantErr: true},
		{name: "rejects unit suffix", envValue: "30s", defaultValue: 2 * time.Second, wantErr: true},
		{name: "rejects NaN", envValue: "NaN", defaultValue: 2 * time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			got, err := LookupSecondsEnv(testKey, tt.defaultValue)
			if tt.wantErr {
				if code := GetErrorCode(err); code != ErrCodeInvalidEnvValue {
					t.Errorf("LookupSecondsEnv() error code = %q, want %q (err: %v)", code, ErrCodeInvalidEnvValue, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupSecondsEnv() returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LookupSecondsEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupListEnv(t *testing.T) {
	const testKey = "TEST_LOOKUP_LIST_ENV"
	defaults := []string{"SIGINT"}

	tests := []struct {
		name     string
		envValue string
		want     []string
		wantErr  bool
	}{
		{name: "splits and trims", envValue: "SIGINT, SIGTERM ,panic", want: []string{"SIGINT", "SIGTERM", "panic"}},
		{name: "drops empty entries", envValue: "SIGHUP,,", want: []string{"SIGHUP"}},
		{name: "only separators is an error", envValue: " , ", wantErr: true},
		{name: "empty returns default", envValue: "", want: defaults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			got, err := LookupListEnv(testKey, defaults)
			if tt.wantErr {
				if code := GetErrorCode(err); code != ErrCodeInvalidEnvValue {
					t.Errorf("LookupListEnv() error code = %q, want %q (err: %v)", code, ErrCodeInvalidEnvValue, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupListEnv() returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LookupListEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}
