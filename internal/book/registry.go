// Package book owns the keyed collection of order-book replicas and the
// state machine that mutates them from stream events.
package book

import (
	"lighter_go/internal/domain"
)

// Registry is the explicitly owned book store: one OrderBook per market
// id, created lazily on first reference. It holds no hidden statics and
// is not safe for concurrent use; the sequencer goroutine owns it and
// hands out deep copies for concurrent readers.
type Registry struct {
	books map[string]*domain.OrderBook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{books: make(map[string]*domain.OrderBook)}
}

// Book returns the book for a market, creating it on first reference.
func (r *Registry) Book(marketID string) *domain.OrderBook {
	b, ok := r.books[marketID]
	if !ok {
		b = domain.NewOrderBook(marketID)
		r.books[marketID] = b
	}
	return b
}

// Lookup returns the book for a market without creating it.
func (r *Registry) Lookup(marketID string) (*domain.OrderBook, bool) {
	b, ok := r.books[marketID]
	return b, ok
}

// Len returns the number of tracked markets.
func (r *Registry) Len() int {
	return len(r.books)
}

// ResetAll drops every replica back to Uninitialized. Used on market
// switch: stale liquidity from an abandoned subscription must never leak
// into analytics for the new market.
func (r *Registry) ResetAll() {
	r.books = make(map[string]*domain.OrderBook)
}

// Capture returns an independent deep copy of every tracked book, safe
// to read while the live registry keeps mutating.
func (r *Registry) Capture() map[string]*domain.OrderBook {
	out := make(map[string]*domain.OrderBook, len(r.books))
	for id, b := range r.books {
		out[id] = b.Clone()
	}
	return out
}
