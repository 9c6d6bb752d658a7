package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"lighter_go/internal/attribution"
	"lighter_go/internal/book"
	"lighter_go/internal/domain"
	"lighter_go/internal/event"
	"lighter_go/internal/infra"
)

// Sequencer is the core single-threaded event processor: one logical
// stream of decoded frames is applied to completion before the next is
// started. Cross-message reordering corrupts the replica irrecoverably
// until the next snapshot, so a sequence gap halts rather than limps on.
type Sequencer struct {
	inbox      chan event.Event
	signals    chan event.Event
	books      *book.Registry
	applier    *book.Applier
	attributor *attribution.Attributor
	nextSeq    uint64

	mu sync.RWMutex // Guards external reads (spread monitor, state dump)
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(inboxSize int, books *book.Registry, applier *book.Applier, attributor *attribution.Attributor) *Sequencer {
	return &Sequencer{
		inbox:      make(chan event.Event, inboxSize),
		signals:    make(chan event.Event, 16),
		books:      books,
		applier:    applier,
		attributor: attributor,
		nextSeq:    1,
	}
}

// Inbox returns the event channel. External workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Signals returns the out-of-band channel for operator signals
// (order actions, market switches, ticks). These carry no stream
// sequence number; their ordering relative to frames is best effort.
func (s *Sequencer) Signals() chan<- event.Event {
	return s.signals
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	// Pending captures expire even while the stream is quiet.
	flush := time.NewTicker(time.Second)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		case ev := <-s.signals:
			s.processSignal(ev)
		case <-flush.C:
			s.mu.Lock()
			s.attributor.FlushExpired(s.books, time.Now())
			s.mu.Unlock()
		}
	}
}

// processSignal dispatches an out-of-band signal. No gap check and no
// sequence increment: signals are not part of the frame stream.
func (s *Sequencer) processSignal(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e := ev.(type) {
	case *event.MarketSwitchEvent:
		s.handleMarketSwitch()
	case *event.OrderActionEvent:
		s.handleOrderAction(e)
	case *event.TickEvent:
		s.attributor.FlushExpired(s.books, time.Now())
	default:
		slog.Warn("Unexpected signal type", slog.Any("type", ev.GetType()))
	}
}

func (s *Sequencer) processEvent(ev event.Event) {
	// 1. Sequence Gap Check (Halt Policy)
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	start := time.Now()

	// 2. Logic Dispatch
	s.mu.Lock()
	switch e := ev.(type) {
	case *event.BookUpdateEvent:
		if err := s.applier.ApplyBookUpdate(e); err != nil {
			slog.Debug("Book update dropped", slog.Any("error", err))
		}
		event.ReleaseBookUpdateEvent(e)
	case *event.TradeBatchEvent:
		s.handleTradeBatch(e)
		event.ReleaseTradeBatchEvent(e)
	case *event.MarketSwitchEvent:
		s.handleMarketSwitch()
	case *event.OrderActionEvent:
		s.handleOrderAction(e)
	case *event.TickEvent:
		s.attributor.FlushExpired(s.books, time.Now())
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
	s.mu.Unlock()

	infra.GlobalMetrics.RecordFrame(time.Since(start).Nanoseconds())

	// 3. Increment Sequence
	s.nextSeq++
}

func (s *Sequencer) handleTradeBatch(e *event.TradeBatchEvent) {
	// Trades first consume resting liquidity, then the operator's own
	// fills feed attribution against the already-corrected books.
	for _, t := range e.Trades {
		if err := s.applier.ApplyTrade(t); err != nil {
			slog.Debug("Trade dropped", slog.Any("error", err))
		}
	}
	s.attributor.OnTradeBatch(e.Trades, s.books)
}

func (s *Sequencer) handleMarketSwitch() {
	// Stale liquidity from an abandoned subscription must never leak
	// into analytics for the new market.
	s.books.ResetAll()
	s.attributor.DropCapture()
	slog.Info("Market switch: all books reset")
}

func (s *Sequencer) handleOrderAction(e *event.OrderActionEvent) {
	at := time.UnixMicro(int64(e.Ts))
	if e.Ts == 0 {
		at = time.Now()
	}
	s.attributor.TakeCapture(s.books.Capture(), at)
	slog.Debug("Order action: book capture taken", slog.Int("markets", s.books.Len()))
}

// CaptureBooks returns an independent deep copy of all tracked books
// (external read, safe while the hotpath keeps mutating).
func (s *Sequencer) CaptureBooks() map[string]*domain.OrderBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.books.Capture()
}

// GetBook returns a copy of one market's book (external read).
func (s *Sequencer) GetBook(marketID string) (*domain.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books.Lookup(marketID)
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// DumpState writes a book summary to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	type bookDump struct {
		BidLevels int     `json:"bid_levels"`
		AskLevels int     `json:"ask_levels"`
		BestBid   float64 `json:"best_bid"`
		BestAsk   float64 `json:"best_ask"`
		Live      bool    `json:"live"`
	}

	s.mu.RLock()
	dump := struct {
		NextSeq uint64              `json:"next_seq"`
		Books   map[string]bookDump `json:"books"`
	}{
		NextSeq: s.nextSeq,
		Books:   make(map[string]bookDump),
	}
	for id, b := range s.books.Capture() {
		d := bookDump{
			BidLevels: b.Depth(domain.SideBid),
			AskLevels: b.Depth(domain.SideAsk),
			Live:      b.Live(),
		}
		if bid, _, ok := b.BestBid(); ok {
			d.BestBid = bid.Float()
		}
		if ask, _, ok := b.BestAsk(); ok {
			d.BestAsk = ask.Float()
		}
		dump.Books[id] = d
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
