package lighter

import (
	"strconv"
	"strings"
	"time"

	"lighter_go/internal/domain"
	"lighter_go/internal/event"
	"lighter_go/pkg/msgpack"
	"lighter_go/pkg/quant"
)

// Frame type discriminators used by the venue stream.
const (
	frameBookSnapshot = "subscribed/order_book"
	frameBookDiff     = "update/order_book"
	frameTrades       = "update/trade"
)

// ParseFrame maps one decoded stream frame onto an engine event. Unknown
// or malformed frames yield nil; the sequence counter is only advanced
// for frames that produce an event, so drops never open a gap.
func ParseFrame(v msgpack.Value, seq *uint64) event.Event {
	typ, ok := v.GetString("type")
	if !ok {
		return nil
	}

	switch typ {
	case frameBookSnapshot:
		return parseBookFrame(v, seq, true)
	case frameBookDiff:
		return parseBookFrame(v, seq, false)
	case frameTrades:
		return parseTradeFrame(v, seq)
	default:
		// Subscription acks, pings and future frame types.
		return nil
	}
}

func parseBookFrame(v msgpack.Value, seq *uint64, snapshot bool) event.Event {
	channel, ok := v.GetString("channel")
	if !ok {
		return nil
	}
	marketID := marketIDFromChannel(channel)
	if marketID == "" {
		return nil
	}

	ob, ok := v.Get("order_book")
	if !ok || ob.Kind != msgpack.KindMap {
		return nil
	}

	ev := event.AcquireBookUpdateEvent()
	ev.Seq = quant.NextSeq(seq)
	ev.Ts = quant.TimeStamp(time.Now().UnixMicro())
	ev.MarketID = marketID
	ev.Snapshot = snapshot
	if bids, ok := ob.Get("bids"); ok {
		ev.Bids = appendLevels(ev.Bids, bids)
	}
	if asks, ok := ob.Get("asks"); ok {
		ev.Asks = appendLevels(ev.Asks, asks)
	}
	return ev
}

// appendLevels collects {price, size} entries. Price strings become the
// canonical fixed-point key exactly once, here at the boundary.
func appendLevels(dst []event.BookLevel, arr msgpack.Value) []event.BookLevel {
	if arr.Kind != msgpack.KindArray {
		return dst
	}
	for _, item := range arr.Items {
		priceStr, ok := item.GetString("price")
		if !ok {
			continue
		}
		sizeStr, ok := item.GetString("size")
		if !ok {
			continue
		}
		dst = append(dst, event.BookLevel{
			Price: quant.ToPriceMicrosStr(priceStr),
			Size:  quant.ParseSize(sizeStr),
		})
	}
	return dst
}

func parseTradeFrame(v msgpack.Value, seq *uint64) event.Event {
	arr, ok := v.Get("trades")
	if !ok || arr.Kind != msgpack.KindArray {
		return nil
	}

	ev := event.AcquireTradeBatchEvent()
	ev.Seq = quant.NextSeq(seq)
	ev.Ts = quant.TimeStamp(time.Now().UnixMicro())
	for _, item := range arr.Items {
		priceStr, ok := item.GetString("price")
		if !ok {
			continue
		}
		sizeStr, ok := item.GetString("size")
		if !ok {
			continue
		}
		priceKey := quant.ToPriceMicrosStr(priceStr)
		ev.Trades = append(ev.Trades, domain.Trade{
			MarketID:     marketIDOf(item),
			Price:        priceKey.Float(),
			PriceKey:     priceKey,
			Size:         quant.ParseSize(sizeStr),
			BidAccountID: intField(item, "bid_account_id"),
			AskAccountID: intField(item, "ask_account_id"),
			BidOrderID:   intField(item, "bid_id"),
			AskOrderID:   intField(item, "ask_id"),
		})
	}
	return ev
}

// marketIDFromChannel extracts the id from "order_book:<marketId>".
func marketIDFromChannel(channel string) string {
	idx := strings.LastIndexByte(channel, ':')
	if idx < 0 || idx == len(channel)-1 {
		return ""
	}
	return channel[idx+1:]
}

// marketIDOf normalizes the numeric or string market_id of a trade entry.
func marketIDOf(item msgpack.Value) string {
	field, ok := item.Get("market_id")
	if !ok {
		return ""
	}
	if s, ok := field.AsString(); ok {
		return s
	}
	if n, ok := field.Num(); ok {
		return strconv.FormatInt(int64(n), 10)
	}
	return ""
}

func intField(item msgpack.Value, key string) int64 {
	field, ok := item.Get(key)
	if !ok {
		return 0
	}
	n, ok := field.Num()
	if !ok {
		return 0
	}
	return int64(n)
}
