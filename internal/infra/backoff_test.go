package infra

import (
	"testing"
	"time"
)

func TestReconnectBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{5, 30 * time.Second},
		{100, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := ReconnectBackoff(tt.attempt); got != tt.want {
			t.Errorf("ReconnectBackoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}
