package attribution

import (
	"time"

	"lighter_go/internal/domain"
)

// BookCapture is the point-in-time deep copy of every tracked book taken
// when the operator submits an action. It replaces the implicit closure
// capture of the reference behavior: explicit creation time, explicit
// expiry, read and cleared by the attributor.
type BookCapture struct {
	Books   map[string]*domain.OrderBook
	TakenAt time.Time
	TTL     time.Duration
}

// NewBookCapture wraps already-cloned books with an expiry window.
func NewBookCapture(books map[string]*domain.OrderBook, takenAt time.Time, ttl time.Duration) *BookCapture {
	return &BookCapture{Books: books, TakenAt: takenAt, TTL: ttl}
}

// Expired reports whether the capture is too old to be a trustworthy
// reference. A capture with no fill inside the TTL is discarded rather
// than growing without bound.
func (c *BookCapture) Expired(now time.Time) bool {
	return now.Sub(c.TakenAt) > c.TTL
}

// Book returns the captured replica for a market, if any.
func (c *BookCapture) Book(marketID string) (*domain.OrderBook, bool) {
	b, ok := c.Books[marketID]
	return b, ok
}
