// Package service hosts the periodic analytics read-side built on top of
// the live book replicas.
package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"lighter_go/internal/domain"

	"github.com/shopspring/decimal"
)

// LadderRow is one USD-notional rung of a market's spread ladder. Avg
// prices are nil when the book could not fully fill the notional.
type LadderRow struct {
	NotionalUSD decimal.Decimal
	AvgBuy      *float64
	AvgSell     *float64
	// Spread is the round trip (avgBuy-avgSell)/mid, nil unless both
	// walks fully filled.
	Spread  *float64
	CostUSD *float64
}

// MarketSpread summarizes one market's current liquidity.
type MarketSpread struct {
	MarketID  string
	Symbol    string
	BestBid   float64
	BestAsk   float64
	Mid       float64
	BidLevels int
	AskLevels int
	// Resting liquidity in USD at mid.
	BidLiquidityUSD float64
	AskLiquidityUSD float64
	Ladder          []LadderRow
}

// SpreadMonitor periodically walks every live book over a ladder of USD
// notionals and logs the implied round-trip spreads.
type SpreadMonitor struct {
	interval time.Duration
	usdSizes []decimal.Decimal
	symbols  map[string]string // market id -> display symbol
	booksFn  func() map[string]*domain.OrderBook
	logger   *slog.Logger
}

// NewSpreadMonitor creates a monitor over the given book snapshot source.
func NewSpreadMonitor(interval time.Duration, usdSizes []decimal.Decimal, symbols map[string]string, booksFn func() map[string]*domain.OrderBook, logger *slog.Logger) *SpreadMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpreadMonitor{
		interval: interval,
		usdSizes: usdSizes,
		symbols:  symbols,
		booksFn:  booksFn,
		logger:   logger.With("module", "spread_monitor"),
	}
}

// Run blocks until ctx is done, scanning once per interval.
func (m *SpreadMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ms := range m.Scan() {
				m.logSpread(ms)
			}
		}
	}
}

// Scan computes the spread ladder for every market with a two-sided
// book, sorted by market id for stable output.
func (m *SpreadMonitor) Scan() []MarketSpread {
	books := m.booksFn()
	out := make([]MarketSpread, 0, len(books))

	for marketID, book := range books {
		bestBid, _, okBid := book.BestBid()
		bestAsk, _, okAsk := book.BestAsk()
		if !okBid || !okAsk {
			continue
		}

		bid := bestBid.Float()
		ask := bestAsk.Float()
		mid := (bid + ask) / 2

		ms := MarketSpread{
			MarketID:        marketID,
			Symbol:          m.symbols[marketID],
			BestBid:         bid,
			BestAsk:         ask,
			Mid:             mid,
			BidLevels:       book.Depth(domain.SideBid),
			AskLevels:       book.Depth(domain.SideAsk),
			BidLiquidityUSD: book.TotalLiquidity(domain.SideBid) * mid,
			AskLiquidityUSD: book.TotalLiquidity(domain.SideAsk) * mid,
		}

		for _, usd := range m.usdSizes {
			ms.Ladder = append(ms.Ladder, m.ladderRow(book, usd, mid))
		}
		out = append(out, ms)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}

func (m *SpreadMonitor) ladderRow(book *domain.OrderBook, usd decimal.Decimal, mid float64) LadderRow {
	row := LadderRow{NotionalUSD: usd}

	usdF, _ := usd.Float64()
	size := usdF / mid
	if size <= 0 {
		return row
	}

	// Round trip: buy consumes asks, sell consumes bids. Only fully
	// filled walks produce a price; a partial fill means the ladder
	// rung exceeds the book.
	if buy := domain.Walk(book, domain.Long, size); buy != nil && buy.FullyFilled {
		avg := buy.AvgPrice
		row.AvgBuy = &avg
	}
	if sell := domain.Walk(book, domain.Short, size); sell != nil && sell.FullyFilled {
		avg := sell.AvgPrice
		row.AvgSell = &avg
	}

	if row.AvgBuy != nil && row.AvgSell != nil {
		spread := (*row.AvgBuy - *row.AvgSell) / mid
		cost := spread * usdF
		row.Spread = &spread
		row.CostUSD = &cost
	}
	return row
}

func (m *SpreadMonitor) logSpread(ms MarketSpread) {
	m.logger.Info("Spread ladder",
		slog.String("market", ms.MarketID),
		slog.String("symbol", ms.Symbol),
		slog.Float64("best_bid", ms.BestBid),
		slog.Float64("best_ask", ms.BestAsk),
		slog.Int("bid_levels", ms.BidLevels),
		slog.Int("ask_levels", ms.AskLevels),
		slog.Float64("bid_liquidity_usd", ms.BidLiquidityUSD),
		slog.Float64("ask_liquidity_usd", ms.AskLiquidityUSD),
	)
	for _, row := range ms.Ladder {
		attrs := []any{slog.String("notional", row.NotionalUSD.String())}
		if row.Spread != nil {
			attrs = append(attrs,
				slog.Float64("avg_buy", *row.AvgBuy),
				slog.Float64("avg_sell", *row.AvgSell),
				slog.Float64("spread", *row.Spread),
				slog.Float64("cost_usd", *row.CostUSD),
			)
		} else {
			attrs = append(attrs, slog.Bool("filled", false))
		}
		m.logger.Info("Ladder row", attrs...)
	}
}
