package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		expected     bool
	}{
		{"unset uses default true", "", true, true},
		{"unset uses default false", "", false, false},
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"yes", "yes", false, true},
		{"on", "on", false, true},
		{"false", "false", true, false},
		{"zero", "0", true, false},
		{"no", "no", true, false},
		{"off", "off", true, false},
		{"mixed case", "TRUE", false, true},
		{"whitespace", "  true  ", false, true},
		{"invalid uses default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TRIAGEPIPE_TEST_BOOL"
			if tt.value != "" {
				t.Setenv(key, tt.value)
			}
			if got := ParseBoolEnv(key, tt.defaultValue); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q=%q, %v) = %v, want %v", key, tt.value, tt.defaultValue, got, tt.expected)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"unset uses default", "", 30 * time.Minute, 30 * time.Minute},
		{"minutes", "15m", 30 * time.Minute, 15 * time.Minute},
		{"compound", "1h30m", time.Hour, 90 * time.Minute},
		{"seconds", "45s", time.Minute, 45 * time.Second},
		{"whitespace", " 10s ", time.Minute, 10 * time.Second},
		{"invalid uses default", "soon", 30 * time.Minute, 30 * time.Minute},
		{"bare number uses default", "30", time.Minute, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TRIAGEPIPE_TEST_DURATION"
			if tt.value != "" {
				t.Setenv(key, tt.value)
			}
			if got := ParseDurationEnv(key, tt.defaultValue); got != tt.expected {
				t.Errorf("ParseDurationEnv(%q=%q) = %v, want %v", key, tt.value, got, tt.expected)
			}
		})
	}
}
