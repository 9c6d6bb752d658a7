package domain

import (
	"time"
)

// ExecutionReport is the analytics record emitted once per attributed
// order group. It is the sole output of the core; the notification and
// history layers consume it as-is.
type ExecutionReport struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Symbol string `gorm:"index" json:"symbol"`
	// Side is "LONG" or "SHORT".
	Side  string  `json:"side"`
	Price float64 `json:"price"` // size-weighted execution price
	Size  float64 `json:"size"`
	Fills int     `json:"fills"` // partial trades folded into this order

	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`

	// Depth-adjusted reference prices from the liquidity walk. Nil when
	// no reference book was available for the market.
	BookAvgPrice  *float64 `json:"book_avg_price,omitempty"`
	BookBestPrice *float64 `json:"book_best_price,omitempty"`

	// Spread is halfBidAskSpread plus depth impact when a walk result
	// exists. Slippage is signed: negative means price improvement.
	Spread    float64 `json:"spread"`
	Slippage  float64 `json:"slippage"`
	SlipRatio float64 `json:"slip_ratio"`
	// Cost is a simplified cost-of-execution heuristic:
	// size * price * (spread + slipRatio). Not a fee model.
	Cost float64 `json:"cost"`

	// LatencyMs is action-to-first-fill latency, when an operator action
	// was captured before this fill arrived.
	LatencyMs *int64 `json:"latency_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
