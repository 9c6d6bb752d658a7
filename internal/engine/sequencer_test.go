package engine

import (
	"context"
	"testing"
	"time"

	"lighter_go/internal/attribution"
	"lighter_go/internal/book"
	"lighter_go/internal/domain"
	"lighter_go/internal/event"
	"lighter_go/pkg/quant"
)

type testAccount int64

func (a testAccount) AccountIndex() (int64, bool) { return int64(a), true }

func newTestSequencer(inboxSize int, emit func(*domain.ExecutionReport)) *Sequencer {
	if emit == nil {
		emit = func(*domain.ExecutionReport) {}
	}
	reg := book.NewRegistry()
	applier := book.NewApplier(reg, nil)
	attributor := attribution.NewAttributor(attribution.Config{}, testAccount(7), emit, nil)
	return NewSequencer(inboxSize, reg, applier, attributor)
}

func snapshotEv(seq uint64, marketID string) *event.BookUpdateEvent {
	return &event.BookUpdateEvent{
		BaseEvent: event.BaseEvent{Seq: seq, Ts: 1000},
		MarketID:  marketID,
		Snapshot:  true,
		Bids:      []event.BookLevel{{Price: quant.ToPriceMicrosStr("99"), Size: 3}},
		Asks:      []event.BookLevel{{Price: quant.ToPriceMicrosStr("101"), Size: 3}},
	}
}

func TestSequencer_BookUpdate(t *testing.T) {
	seq := newTestSequencer(10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go seq.Run(ctx)

	seq.Inbox() <- snapshotEv(1, "0")

	// Wait for processing
	time.Sleep(100 * time.Millisecond)

	b, ok := seq.GetBook("0")
	if !ok {
		t.Fatal("Book should exist after snapshot")
	}
	if size, _ := b.Level(domain.SideAsk, quant.ToPriceMicrosStr("101")); size != 3 {
		t.Errorf("Expected ask size 3, got %v", size)
	}
}

func TestSequencer_TradeFeedsApplierAndAttribution(t *testing.T) {
	var reports []*domain.ExecutionReport
	seq := newTestSequencer(10, func(r *domain.ExecutionReport) { reports = append(reports, r) })

	seq.processEvent(snapshotEv(1, "0"))

	trade := domain.Trade{
		MarketID:     "0",
		Price:        101,
		PriceKey:     quant.ToPriceMicrosStr("101"),
		Size:         3,
		BidAccountID: 7, // operator buys
		AskAccountID: 12,
		BidOrderID:   1,
		AskOrderID:   2,
	}
	seq.processEvent(&event.TradeBatchEvent{
		BaseEvent: event.BaseEvent{Seq: 2, Ts: 2000},
		Trades:    []domain.Trade{trade},
	})

	b, _ := seq.GetBook("0")
	if b.Depth(domain.SideAsk) != 0 {
		t.Error("trade should have consumed the resting ask level")
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 execution report, got %d", len(reports))
	}
	if reports[0].Side != "LONG" {
		t.Errorf("Expected LONG, got %s", reports[0].Side)
	}
}

func TestSequencer_MarketSwitchResets(t *testing.T) {
	seq := newTestSequencer(10, nil)

	seq.processEvent(snapshotEv(1, "0"))
	seq.processEvent(&event.MarketSwitchEvent{BaseEvent: event.BaseEvent{Seq: 2}})

	if _, ok := seq.GetBook("0"); ok {
		t.Error("market switch should drop all books")
	}
}

func TestSequencer_OrderActionCapture(t *testing.T) {
	var got *domain.ExecutionReport
	seq := newTestSequencer(10, func(r *domain.ExecutionReport) { got = r })

	seq.processEvent(snapshotEv(1, "0"))
	seq.processEvent(&event.OrderActionEvent{BaseEvent: event.BaseEvent{Seq: 2, Ts: quant.TimeStamp(time.Now().UnixMicro())}})

	// Book moves away after the action; attribution must see the capture.
	seq.processEvent(&event.BookUpdateEvent{
		BaseEvent: event.BaseEvent{Seq: 3},
		MarketID:  "0",
		Snapshot:  true,
		Asks:      []event.BookLevel{{Price: quant.ToPriceMicrosStr("300"), Size: 1}},
	})

	seq.processEvent(&event.TradeBatchEvent{
		BaseEvent: event.BaseEvent{Seq: 4},
		Trades: []domain.Trade{{
			MarketID: "0", Price: 101, PriceKey: quant.ToPriceMicrosStr("101"), Size: 1,
			BidAccountID: 7, AskAccountID: 12, BidOrderID: 1, AskOrderID: 2,
		}},
	})

	if got == nil {
		t.Fatal("expected a report")
	}
	if got.BookAvgPrice == nil || *got.BookAvgPrice != 101 {
		t.Errorf("expected capture-based avg 101, got %v", got.BookAvgPrice)
	}
	if got.LatencyMs == nil {
		t.Error("expected latency from pending action")
	}
}

func TestSequencer_SignalsBypassSequence(t *testing.T) {
	seq := newTestSequencer(10, nil)
	seq.processEvent(snapshotEv(1, "0"))

	// Signals carry no stream sequence and must not trip the gap check
	// or consume a slot in it.
	seq.processSignal(&event.OrderActionEvent{})
	seq.processSignal(&event.MarketSwitchEvent{})
	if _, ok := seq.GetBook("0"); ok {
		t.Error("market switch signal should reset books")
	}

	// The frame stream continues unaffected.
	seq.processEvent(snapshotEv(2, "1"))
	if _, ok := seq.GetBook("1"); !ok {
		t.Error("stream should continue after signals")
	}
}

func TestSequencer_GapDetection(t *testing.T) {
	seq := newTestSequencer(10, nil)

	// Should panic when receiving out-of-order event
	defer func() {
		if r := recover(); r == nil {
			t.Error("Sequencer should have panicked on sequence gap")
		}
	}()

	seq.processEvent(snapshotEv(2, "0")) // Start with 2 instead of 1
}
