package domain

import "lighter_go/pkg/quant"

// Direction is the operator's side of a fill: LONG buys, SHORT sells.
type Direction uint8

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Long {
		return "LONG"
	}
	return "SHORT"
}

// consumes returns the book side a taker in this direction eats:
// buying consumes asks, selling consumes bids.
func (d Direction) consumes() Side {
	if d == Long {
		return SideAsk
	}
	return SideBid
}

// WalkResult is the outcome of simulating consumption of resting levels
// in price priority for a given size.
type WalkResult struct {
	// BestPrice is the first level's price, regardless of how much of
	// that level was consumed.
	BestPrice float64
	// AvgPrice is total cost divided by filled size.
	AvgPrice float64
	// FilledSize may be less than the requested size when the side runs
	// out of levels.
	FilledSize float64
	// FullyFilled is true iff the requested size was satisfied before
	// levels were exhausted. False means a degraded-confidence result,
	// not an error.
	FullyFilled bool
}

// Walk estimates the average fill price of consuming targetSize from the
// book. Long walks asks ascending, Short walks bids descending, so the
// best price always comes first. Returns nil when the relevant side is
// empty or targetSize is not positive.
//
// Walk never mutates the book and is safe to run concurrently against a
// Clone while the live book keeps changing.
func Walk(book *OrderBook, dir Direction, targetSize float64) *WalkResult {
	if book == nil || targetSize <= 0 {
		return nil
	}

	side := dir.consumes()
	if book.Depth(side) == 0 {
		return nil
	}

	var (
		remaining  = targetSize
		totalCost  float64
		filledSize float64
		bestPrice  float64
		first      = true
	)

	book.ScanBest(side, func(price quant.PriceMicros, size float64) bool {
		p := price.Float()
		if first {
			bestPrice = p
			first = false
		}

		fill := size
		if remaining < fill {
			fill = remaining
		}
		totalCost += fill * p
		filledSize += fill
		remaining -= fill

		return remaining > 0
	})

	if filledSize == 0 {
		return nil
	}

	return &WalkResult{
		BestPrice:   bestPrice,
		AvgPrice:    totalCost / filledSize,
		FilledSize:  filledSize,
		FullyFilled: remaining <= 0,
	}
}
