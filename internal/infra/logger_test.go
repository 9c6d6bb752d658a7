package infra

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo}, // unknown falls back to info
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRotationDefaults(t *testing.T) {
	if got := orDefault(0, 10); got != 10 {
		t.Errorf("orDefault(0, 10) = %d", got)
	}
	if got := orDefault(-1, 3); got != 3 {
		t.Errorf("orDefault(-1, 3) = %d", got)
	}
	if got := orDefault(25, 10); got != 25 {
		t.Errorf("orDefault(25, 10) = %d", got)
	}
}
