package infra

import (
	"time"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// ReconnectBackoff returns the delay before the next reconnect attempt:
// reconnectBaseDelay doubled per attempt, capped at reconnectMaxDelay.
func ReconnectBackoff(attempt int) time.Duration {
	if attempt < 0 {
		return reconnectBaseDelay
	}
	// 1<<attempt overflows past 62; anything over 30 is already capped.
	if attempt > 30 {
		return reconnectMaxDelay
	}

	delay := reconnectBaseDelay * time.Duration(1<<attempt)
	if delay > reconnectMaxDelay {
		return reconnectMaxDelay
	}
	return delay
}
