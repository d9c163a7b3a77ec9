package config

import (
	"testing"
	"time"
)

func TestEnv(t *testing.T) {
	t.Setenv("SEAWATCH_TEST_STR", "harbor")

	if got := Env("SEAWATCH_TEST_STR", "fallback"); got != "harbor" {
		t.Errorf("Env set: got %q, want %q", got, "harbor")
	}
	if got := Env("SEAWATCH_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("Env missing: got %q, want %q", got, "fallback")
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		def   int
		want  int
	}{
		{"valid", "SEAWATCH_TEST_INT", "480", 100, 480},
		{"invalid", "SEAWATCH_TEST_INT", "wide", 100, 100},
		{"unset", "SEAWATCH_TEST_INT_MISSING", "", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if got := EnvInt(tt.key, tt.def); got != tt.want {
				t.Errorf("EnvInt(%q): got %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		def   time.Duration
		want  time.Duration
	}{
		{"valid", "SEAWATCH_TEST_DUR", "1500ms", time.Second, 1500 * time.Millisecond},
		{"invalid", "SEAWATCH_TEST_DUR", "soon", time.Second, time.Second},
		{"unset", "SEAWATCH_TEST_DUR_MISSING", "", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if got := EnvDuration(tt.key, tt.def); got != tt.want {
				t.Errorf("EnvDuration(%q): got %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("SEAWATCH_TEST_BOOL", "true")

	if got := EnvBool("SEAWATCH_TEST_BOOL", false); got != true {
		t.Errorf("EnvBool set: got %v, want true", got)
	}
	if got := EnvBool("SEAWATCH_TEST_BOOL_MISSING", true); got != true {
		t.Errorf("EnvBool missing: got %v, want true", got)
	}
}
