package domain

import (
	"lighter_go/pkg/quant"

	"github.com/tidwall/btree"
)

// Side selects one half of an order book.
type Side uint8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// OrderBook is the client-side replica of one market's resting liquidity.
// Levels are keyed by canonical fixed-point PriceMicros derived from the
// wire price string, so float rounding can never split or merge levels.
// A size of exactly zero is a removal, never a stored level, so Depth()
// is exact.
//
// OrderBook is not safe for concurrent use; ownership stays with the
// sequencer goroutine and readers get Clone()s.
type OrderBook struct {
	MarketID string

	// live flips on the first snapshot since the last reset. Diffs that
	// arrive before it are unrecoverable and get dropped by the applier.
	live bool

	bids btree.Map[quant.PriceMicros, float64]
	asks btree.Map[quant.PriceMicros, float64]
}

// NewOrderBook creates an empty book for a market.
func NewOrderBook(marketID string) *OrderBook {
	return &OrderBook{MarketID: marketID}
}

// Live reports whether a snapshot has been applied since the last reset.
func (b *OrderBook) Live() bool { return b.live }

// MarkLive records that an authoritative snapshot has been applied.
func (b *OrderBook) MarkLive() { b.live = true }

// Reset clears both sides and drops the book back to pre-snapshot state.
func (b *OrderBook) Reset() {
	b.bids.Clear()
	b.asks.Clear()
	b.live = false
}

func (b *OrderBook) side(s Side) *btree.Map[quant.PriceMicros, float64] {
	if s == SideBid {
		return &b.bids
	}
	return &b.asks
}

// Upsert inserts or overwrites the resting size at a price level.
// Size 0 deletes the level.
func (b *OrderBook) Upsert(s Side, price quant.PriceMicros, size float64) {
	if size == 0 {
		b.side(s).Delete(price)
		return
	}
	b.side(s).Set(price, size)
}

// Remove deletes a price level if present.
func (b *OrderBook) Remove(s Side, price quant.PriceMicros) {
	b.side(s).Delete(price)
}

// Level returns the resting size at a price, if the level exists.
func (b *OrderBook) Level(s Side, price quant.PriceMicros) (float64, bool) {
	return b.side(s).Get(price)
}

// Depth returns the exact number of resting levels on a side.
func (b *OrderBook) Depth(s Side) int {
	return b.side(s).Len()
}

// BestBid returns the highest resting bid.
func (b *OrderBook) BestBid() (quant.PriceMicros, float64, bool) {
	return b.bids.Max()
}

// BestAsk returns the lowest resting ask.
func (b *OrderBook) BestAsk() (quant.PriceMicros, float64, bool) {
	return b.asks.Min()
}

// ScanBest iterates a side best-price-first: bids descending, asks
// ascending. Return false from fn to stop early.
func (b *OrderBook) ScanBest(s Side, fn func(price quant.PriceMicros, size float64) bool) {
	if s == SideBid {
		b.bids.Reverse(fn)
		return
	}
	b.asks.Scan(fn)
}

// TotalLiquidity sums resting size across all levels of a side.
func (b *OrderBook) TotalLiquidity(s Side) float64 {
	var total float64
	b.side(s).Scan(func(_ quant.PriceMicros, size float64) bool {
		total += size
		return true
	})
	return total
}

// Clone returns an independent deep copy. The underlying btree is
// copy-on-write, so this is cheap enough to run on every capture.
func (b *OrderBook) Clone() *OrderBook {
	out := &OrderBook{MarketID: b.MarketID, live: b.live}
	out.bids = *b.bids.Copy()
	out.asks = *b.asks.Copy()
	return out
}
