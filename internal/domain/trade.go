package domain

import "lighter_go/pkg/quant"

// Trade is one fill from the public trade stream. It is consumed once:
// the applier decrements resting liquidity with it and, when one of the
// accounts is the operator's, attribution folds it into an order group.
//
// Ids arrive as 64-bit integers on the wire and inherit the decoder's
// 2^53 widening boundary; they are compared, never used for arithmetic.
type Trade struct {
	MarketID string
	Price    float64
	PriceKey quant.PriceMicros
	Size     float64

	// The two counterparties and their order ids. The feed does not say
	// which side was the resting maker.
	BidAccountID int64
	AskAccountID int64
	BidOrderID   int64
	AskOrderID   int64
}

// OperatorSide resolves the operator's direction and order id for a
// trade, given the operator's account index. ok is false when the trade
// does not involve the operator at all.
func (t Trade) OperatorSide(accountIndex int64) (dir Direction, orderID int64, ok bool) {
	switch accountIndex {
	case t.BidAccountID:
		return Long, t.BidOrderID, true
	case t.AskAccountID:
		return Short, t.AskOrderID, true
	}
	return 0, 0, false
}
