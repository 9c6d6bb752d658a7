package event

import (
	"sync"
)

// Pools for high-frequency event allocation. The stream produces one
// BookUpdateEvent or TradeBatchEvent per frame; recycling them keeps the
// hotpath from churning the GC.
//
// Usage:
//
//	ev := AcquireBookUpdateEvent()
//	ev.MarketID = "0"
//	// ... send through the inbox, sequencer releases after processing ...
var bookUpdatePool = sync.Pool{
	New: func() interface{} {
		return &BookUpdateEvent{}
	},
}

// AcquireBookUpdateEvent gets a BookUpdateEvent from the pool.
// The returned event has zero values and must be initialized. Level
// slices keep their capacity across reuse.
func AcquireBookUpdateEvent() *BookUpdateEvent {
	return bookUpdatePool.Get().(*BookUpdateEvent)
}

// ReleaseBookUpdateEvent returns a BookUpdateEvent to the pool.
func ReleaseBookUpdateEvent(ev *BookUpdateEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = 0
	ev.MarketID = ""
	ev.Snapshot = false
	ev.Bids = ev.Bids[:0]
	ev.Asks = ev.Asks[:0]

	bookUpdatePool.Put(ev)
}

// TradeBatchEvent pool
var tradeBatchPool = sync.Pool{
	New: func() interface{} {
		return &TradeBatchEvent{}
	},
}

// AcquireTradeBatchEvent gets a TradeBatchEvent from the pool.
func AcquireTradeBatchEvent() *TradeBatchEvent {
	return tradeBatchPool.Get().(*TradeBatchEvent)
}

// ReleaseTradeBatchEvent returns a TradeBatchEvent to the pool.
// Attribution copies trades it wants to keep before release.
func ReleaseTradeBatchEvent(ev *TradeBatchEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = 0
	ev.Trades = ev.Trades[:0]

	tradeBatchPool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	books := make([]*BookUpdateEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		books = append(books, AcquireBookUpdateEvent())
	}
	for _, ev := range books {
		ReleaseBookUpdateEvent(ev)
	}

	trades := make([]*TradeBatchEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		trades = append(trades, AcquireTradeBatchEvent())
	}
	for _, ev := range trades {
		ReleaseTradeBatchEvent(ev)
	}
}
