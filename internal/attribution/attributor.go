// Package attribution turns the operator's own fills into execution
// quality reports: size-weighted fill price, size-adjusted spread,
// slippage against a depth-adjusted reference, and a modeled cost.
package attribution

import (
	"log/slog"
	"math"
	"time"

	"lighter_go/internal/book"
	"lighter_go/internal/domain"
	"lighter_go/internal/infra"

	"github.com/google/uuid"
)

// Config tunes attribution behavior.
type Config struct {
	// CaptureTTL bounds how long a pending book capture stays usable.
	CaptureTTL time.Duration
	// MergeWindow > 0 merges trades for the same order id that arrive in
	// separate batches within the window before a report is emitted.
	// 0 reproduces report-per-batch.
	MergeWindow time.Duration
	// Symbols maps market ids to display symbols. Unknown markets fall
	// back to "Market <id>".
	Symbols map[string]string
}

// orderGroup aggregates the fills of one logical order.
type orderGroup struct {
	orderID   int64
	dir       domain.Direction
	marketID  string
	trades    []domain.Trade
	firstSeen time.Time
}

// Attributor consumes self-trade batches and emits one ExecutionReport
// per order group. Single-threaded: it lives inside the sequencer loop.
type Attributor struct {
	cfg     Config
	account domain.AccountProvider
	emit    func(*domain.ExecutionReport)
	log     *slog.Logger
	now     func() time.Time

	capture *BookCapture
	// actionAt is the operator action timestamp behind the capture;
	// zero when no action is pending. Drives LatencyMs.
	actionAt time.Time

	// pending holds order groups waiting out the merge window.
	pending map[int64]*orderGroup
}

// NewAttributor creates an attributor. emit must not be nil; it receives
// every finished report.
func NewAttributor(cfg Config, account domain.AccountProvider, emit func(*domain.ExecutionReport), log *slog.Logger) *Attributor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CaptureTTL <= 0 {
		cfg.CaptureTTL = 30 * time.Second
	}
	return &Attributor{
		cfg:     cfg,
		account: account,
		emit:    emit,
		log:     log,
		now:     time.Now,
		pending: make(map[int64]*orderGroup),
	}
}

// TakeCapture installs a fresh capture, replacing any pending one.
func (a *Attributor) TakeCapture(books map[string]*domain.OrderBook, at time.Time) {
	a.capture = NewBookCapture(books, at, a.cfg.CaptureTTL)
	a.actionAt = at
}

// DropCapture discards pending capture state (market switch, shutdown).
func (a *Attributor) DropCapture() {
	a.capture = nil
	a.actionAt = time.Time{}
}

// OnTradeBatch filters the operator's own fills out of a trade batch,
// groups them by the operator-side order id, and either finalizes each
// group immediately or parks it for the merge window.
func (a *Attributor) OnTradeBatch(trades []domain.Trade, live *book.Registry) {
	account, ok := a.account.AccountIndex()
	if !ok {
		return
	}

	now := a.now()

	// Group in arrival order. An order can fill across several trades
	// of one batch.
	var order []int64
	groups := make(map[int64]*orderGroup)
	for _, t := range trades {
		dir, orderID, mine := t.OperatorSide(account)
		if !mine {
			continue
		}
		g, ok := groups[orderID]
		if !ok {
			g = &orderGroup{orderID: orderID, dir: dir, marketID: t.MarketID, firstSeen: now}
			groups[orderID] = g
			order = append(order, orderID)
		}
		g.trades = append(g.trades, t)
	}

	for _, id := range order {
		g := groups[id]
		if a.cfg.MergeWindow <= 0 {
			a.finalize(g, live, now)
			continue
		}
		if parked, ok := a.pending[id]; ok {
			parked.trades = append(parked.trades, g.trades...)
		} else {
			a.pending[id] = g
		}
	}

	a.FlushExpired(live, now)
}

// FlushExpired finalizes parked groups whose merge window has elapsed.
// Called on every tick so a quiet stream still flushes.
func (a *Attributor) FlushExpired(live *book.Registry, now time.Time) {
	for id, g := range a.pending {
		if now.Sub(g.firstSeen) >= a.cfg.MergeWindow {
			delete(a.pending, id)
			a.finalize(g, live, now)
		}
	}
}

// referenceBook prefers the unexpired action-time capture, falling back
// to the live registry. An expired capture is discarded on sight.
func (a *Attributor) referenceBook(marketID string, live *book.Registry, now time.Time) (*domain.OrderBook, bool) {
	if a.capture != nil {
		if a.capture.Expired(now) {
			a.log.Debug("book capture expired", slog.Duration("age", now.Sub(a.capture.TakenAt)))
			a.DropCapture()
		} else if b, ok := a.capture.Book(marketID); ok {
			return b, true
		}
	}
	if live == nil {
		return nil, false
	}
	b, ok := live.Lookup(marketID)
	return b, ok
}

func (a *Attributor) finalize(g *orderGroup, live *book.Registry, now time.Time) {
	var totalSize, totalValue float64
	for _, t := range g.trades {
		totalSize += t.Size
		totalValue += t.Size * t.Price
	}
	if totalSize <= 0 {
		return
	}
	executed := totalValue / totalSize

	usedCapture := a.capture != nil && !a.capture.Expired(now)
	ref, haveBook := a.referenceBook(g.marketID, live, now)

	report := &domain.ExecutionReport{
		ID:        uuid.NewString(),
		Symbol:    a.symbolFor(g.marketID),
		Side:      g.dir.String(),
		Price:     executed,
		Size:      totalSize,
		Fills:     len(g.trades),
		CreatedAt: now,
	}

	var walkRes *domain.WalkResult
	if haveBook {
		walkRes = domain.Walk(ref, g.dir, totalSize)
		if bid, _, ok := ref.BestBid(); ok {
			report.BestBid = bid.Float()
		}
		if ask, _, ok := ref.BestAsk(); ok {
			report.BestAsk = ask.Float()
		}
	}
	if walkRes != nil {
		avg, best := walkRes.AvgPrice, walkRes.BestPrice
		report.BookAvgPrice = &avg
		report.BookBestPrice = &best
	}

	report.Spread = spreadOf(report.BestBid, report.BestAsk, walkRes)
	report.Slippage, report.SlipRatio = slippageOf(g.dir, executed, report, walkRes)
	// Deliberately simplified cost-of-execution heuristic; negative
	// slippage (price improvement) legitimately reduces it.
	report.Cost = totalSize * executed * (report.Spread + report.SlipRatio)

	// Action-to-fill latency: consumed by the first attributed order,
	// then the pending action and its capture are spent.
	if usedCapture && !a.actionAt.IsZero() {
		lat := now.Sub(a.actionAt).Milliseconds()
		report.LatencyMs = &lat
		a.DropCapture()
	}

	infra.GlobalMetrics.RecordReportEmitted()
	a.log.Info("execution report",
		slog.String("symbol", report.Symbol),
		slog.String("side", report.Side),
		slog.Float64("price", report.Price),
		slog.Float64("size", report.Size),
		slog.Float64("cost", report.Cost),
		slog.Int("fills", report.Fills))

	a.emit(report)
}

// spreadOf is half the relative bid/ask spread plus, when a walk result
// exists, the relative depth impact of consuming the order's size.
func spreadOf(bestBid, bestAsk float64, walkRes *domain.WalkResult) float64 {
	var spread float64
	if bestBid > 0 && bestAsk > 0 {
		mid := (bestBid + bestAsk) / 2
		spread = (bestAsk - bestBid) / mid / 2
	}
	if walkRes != nil && walkRes.BestPrice > 0 {
		spread += math.Abs(walkRes.AvgPrice-walkRes.BestPrice) / walkRes.BestPrice
	}
	return spread
}

// slippageOf compares the executed price against the depth-adjusted
// average, falling back to top of book when no walk result exists.
// Positive means worse than reference, negative is price improvement.
func slippageOf(dir domain.Direction, executed float64, report *domain.ExecutionReport, walkRes *domain.WalkResult) (float64, float64) {
	var refPrice float64
	switch {
	case walkRes != nil:
		refPrice = walkRes.AvgPrice
	case dir == domain.Long:
		refPrice = report.BestAsk
	default:
		refPrice = report.BestBid
	}
	if refPrice <= 0 {
		return 0, 0
	}

	slippage := executed - refPrice
	if dir == domain.Short {
		slippage = refPrice - executed
	}
	return slippage, slippage / refPrice
}

func (a *Attributor) symbolFor(marketID string) string {
	if s, ok := a.cfg.Symbols[marketID]; ok {
		return s
	}
	return "Market " + marketID
}

// PendingGroups returns the number of parked order groups (for tests
// and state dumps).
func (a *Attributor) PendingGroups() int {
	return len(a.pending)
}
