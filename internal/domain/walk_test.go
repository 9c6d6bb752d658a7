package domain

import (
	"testing"

	"lighter_go/pkg/quant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookWithAsks(t *testing.T, levels map[string]float64) *OrderBook {
	t.Helper()
	b := NewOrderBook("0")
	for price, size := range levels {
		b.Upsert(SideAsk, quant.ToPriceMicrosStr(price), size)
	}
	return b
}

func TestWalkBuyAcrossLevels(t *testing.T) {
	// asks = {100: 5, 101: 10}; buy 8 -> 5@100 + 3@101
	b := bookWithAsks(t, map[string]float64{"100": 5, "101": 10})

	res := Walk(b, Long, 8)
	require.NotNil(t, res)
	assert.Equal(t, 100.0, res.BestPrice)
	assert.Equal(t, 8.0, res.FilledSize)
	assert.InDelta(t, 100.375, res.AvgPrice, 1e-9)
	assert.True(t, res.FullyFilled)
}

func TestWalkPartialFill(t *testing.T) {
	// asks = {100: 5}; buy 8 -> only 5 available
	b := bookWithAsks(t, map[string]float64{"100": 5})

	res := Walk(b, Long, 8)
	require.NotNil(t, res)
	assert.Equal(t, 5.0, res.FilledSize)
	assert.Equal(t, 100.0, res.AvgPrice)
	assert.False(t, res.FullyFilled)
}

func TestWalkSellConsumesBidsDescending(t *testing.T) {
	b := NewOrderBook("0")
	b.Upsert(SideBid, quant.ToPriceMicrosStr("99"), 2)
	b.Upsert(SideBid, quant.ToPriceMicrosStr("100"), 2)

	res := Walk(b, Short, 3)
	require.NotNil(t, res)
	assert.Equal(t, 100.0, res.BestPrice)
	// 2@100 + 1@99
	assert.InDelta(t, (2*100.0+99.0)/3, res.AvgPrice, 1e-9)
	assert.True(t, res.FullyFilled)
}

func TestWalkDegenerateInputs(t *testing.T) {
	b := bookWithAsks(t, map[string]float64{"100": 5})

	assert.Nil(t, Walk(nil, Long, 1), "nil book")
	assert.Nil(t, Walk(b, Long, 0), "zero size")
	assert.Nil(t, Walk(b, Long, -2), "negative size")
	assert.Nil(t, Walk(b, Short, 1), "empty bid side")
}

func TestWalkExactLevelBoundary(t *testing.T) {
	b := bookWithAsks(t, map[string]float64{"100": 5})

	res := Walk(b, Long, 5)
	require.NotNil(t, res)
	assert.Equal(t, 5.0, res.FilledSize)
	assert.True(t, res.FullyFilled, "consuming exactly all liquidity is a full fill")
}

// Larger buys can only get worse (or equal) average prices; larger sells
// only worse (lower) ones.
func TestWalkMonotonicity(t *testing.T) {
	b := NewOrderBook("0")
	for price, size := range map[string]float64{"100": 5, "101": 10, "103": 4} {
		b.Upsert(SideAsk, quant.ToPriceMicrosStr(price), size)
	}
	for price, size := range map[string]float64{"99": 5, "98": 10, "96": 4} {
		b.Upsert(SideBid, quant.ToPriceMicrosStr(price), size)
	}

	var prevBuy, prevSell float64
	for i, size := range []float64{1, 4, 7, 12, 19} {
		buy := Walk(b, Long, size)
		sell := Walk(b, Short, size)
		require.NotNil(t, buy)
		require.NotNil(t, sell)

		if i > 0 {
			assert.GreaterOrEqual(t, buy.AvgPrice, prevBuy, "buy avg must be non-decreasing in size")
			assert.LessOrEqual(t, sell.AvgPrice, prevSell, "sell avg must be non-increasing in size")
		}
		prevBuy = buy.AvgPrice
		prevSell = sell.AvgPrice
	}
}

func TestWalkDoesNotMutateBook(t *testing.T) {
	b := bookWithAsks(t, map[string]float64{"100": 5, "101": 10})

	_ = Walk(b, Long, 8)

	size, _ := b.Level(SideAsk, quant.ToPriceMicrosStr("100"))
	assert.Equal(t, 5.0, size)
	assert.Equal(t, 2, b.Depth(SideAsk))
}
