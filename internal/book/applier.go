package book

import (
	"fmt"
	"log/slog"

	"lighter_go/internal/domain"
	"lighter_go/internal/event"
	"lighter_go/internal/infra"
)

// Applier drives the per-market replication state machine:
//
//	Uninitialized -> (snapshot) -> Live -> (incremental truth)
//
// Events must be applied strictly in arrival order; reordering across
// messages corrupts the replica until the next snapshot. The sequencer
// guarantees that by calling Applier from a single goroutine.
type Applier struct {
	reg *Registry
	log *slog.Logger
}

// NewApplier creates an applier over a registry.
func NewApplier(reg *Registry, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{reg: reg, log: log}
}

// ApplyBookUpdate applies one snapshot or diff message.
//
// Snapshot: clears both sides unconditionally, then upserts every level
// and marks the market Live. Applying the same snapshot twice yields the
// same book as applying it once.
//
// Diff: upserts each level, deleting on size 0. A diff for a market that
// has never seen a snapshot is unrecoverable; it is dropped and reported
// as ErrMarketNotTracked, not applied speculatively.
func (a *Applier) ApplyBookUpdate(ev *event.BookUpdateEvent) error {
	if ev.Snapshot {
		b := a.reg.Book(ev.MarketID)
		b.Reset()
		applyLevels(b, ev)
		b.MarkLive()
		a.log.Debug("book snapshot applied",
			slog.String("market", ev.MarketID),
			slog.Int("bids", len(ev.Bids)),
			slog.Int("asks", len(ev.Asks)))
		return nil
	}

	b, ok := a.reg.Lookup(ev.MarketID)
	if !ok || !b.Live() {
		// Recoverable by waiting for the next snapshot.
		infra.GlobalMetrics.RecordDiffDropped()
		return fmt.Errorf("diff before snapshot: %w: %s", domain.ErrMarketNotTracked, ev.MarketID)
	}
	applyLevels(b, ev)
	return nil
}

func applyLevels(b *domain.OrderBook, ev *event.BookUpdateEvent) {
	for _, lv := range ev.Bids {
		b.Upsert(domain.SideBid, lv.Price, lv.Size)
	}
	for _, lv := range ev.Asks {
		b.Upsert(domain.SideAsk, lv.Price, lv.Size)
	}
}

// ApplyTrade decrements resting size at the trade price on both sides,
// deleting the level at size <= 0. The feed does not signal which side
// was the resting maker, so both are checked; this can decrement the
// wrong side when both happen to rest at the trade price. Documented
// approximation, corrected by the next snapshot.
func (a *Applier) ApplyTrade(t domain.Trade) error {
	b, ok := a.reg.Lookup(t.MarketID)
	if !ok {
		return fmt.Errorf("trade: %w: %s", domain.ErrMarketNotTracked, t.MarketID)
	}

	for _, side := range [2]domain.Side{domain.SideAsk, domain.SideBid} {
		size, ok := b.Level(side, t.PriceKey)
		if !ok {
			continue
		}
		size -= t.Size
		if size <= 0 {
			b.Remove(side, t.PriceKey)
		} else {
			b.Upsert(side, t.PriceKey, size)
		}
	}
	infra.GlobalMetrics.RecordTradeApplied()
	return nil
}
