package lighter

import (
	"testing"

	"lighter_go/internal/event"
	"lighter_go/pkg/msgpack"
	"lighter_go/pkg/quant"
)

// Value construction helpers mirroring decoded frames.

func mstr(s string) msgpack.Value { return msgpack.Value{Kind: msgpack.KindString, Str: s} }
func mint(n int64) msgpack.Value  { return msgpack.Value{Kind: msgpack.KindInt, Int: n} }
func mnum(f float64) msgpack.Value {
	return msgpack.Value{Kind: msgpack.KindFloat, Float: f}
}

func marr(items ...msgpack.Value) msgpack.Value {
	return msgpack.Value{Kind: msgpack.KindArray, Items: items}
}

func mmap(kv ...any) msgpack.Value {
	v := msgpack.Value{Kind: msgpack.KindMap}
	for i := 0; i < len(kv); i += 2 {
		v.Pairs = append(v.Pairs, msgpack.Pair{
			Key:   mstr(kv[i].(string)),
			Value: kv[i+1].(msgpack.Value),
		})
	}
	return v
}

func level(price, size string) msgpack.Value {
	return mmap("price", mstr(price), "size", mstr(size))
}

func TestParseFrame_Snapshot(t *testing.T) {
	var seq uint64
	frame := mmap(
		"type", mstr("subscribed/order_book"),
		"channel", mstr("order_book:0"),
		"order_book", mmap(
			"bids", marr(level("100.5", "2"), level("100.0", "1.5")),
			"asks", marr(level("101.0", "3")),
		),
	)

	ev := ParseFrame(frame, &seq)
	update, ok := ev.(*event.BookUpdateEvent)
	if !ok {
		t.Fatalf("expected BookUpdateEvent, got %T", ev)
	}
	if !update.Snapshot {
		t.Error("subscribed frame should be a snapshot")
	}
	if update.MarketID != "0" {
		t.Errorf("market id = %q, want 0", update.MarketID)
	}
	if update.Seq != 1 {
		t.Errorf("seq = %d, want 1", update.Seq)
	}
	if len(update.Bids) != 2 || len(update.Asks) != 1 {
		t.Fatalf("levels = %d/%d, want 2/1", len(update.Bids), len(update.Asks))
	}
	if update.Bids[0].Price != quant.ToPriceMicrosStr("100.5") || update.Bids[0].Size != 2 {
		t.Errorf("bid mismatch: %+v", update.Bids[0])
	}
}

func TestParseFrame_DiffIsNotSnapshot(t *testing.T) {
	var seq uint64
	frame := mmap(
		"type", mstr("update/order_book"),
		"channel", mstr("order_book:7"),
		"order_book", mmap("bids", marr(level("99", "0"))),
	)

	update, ok := ParseFrame(frame, &seq).(*event.BookUpdateEvent)
	if !ok {
		t.Fatal("expected BookUpdateEvent")
	}
	if update.Snapshot {
		t.Error("update frame must not be a snapshot")
	}
	if update.MarketID != "7" {
		t.Errorf("market id = %q", update.MarketID)
	}
	if update.Bids[0].Size != 0 {
		t.Error("zero size must survive parsing, it means deletion")
	}
}

func TestParseFrame_Trades(t *testing.T) {
	var seq uint64
	frame := mmap(
		"type", mstr("update/trade"),
		"trades", marr(mmap(
			"market_id", mint(3),
			"price", mstr("100.25"),
			"size", mstr("0.5"),
			"bid_account_id", mnum(777),
			"ask_account_id", mint(12),
			"bid_id", mnum(9001),
			"ask_id", mint(9002),
		)),
	)

	batch, ok := ParseFrame(frame, &seq).(*event.TradeBatchEvent)
	if !ok {
		t.Fatal("expected TradeBatchEvent")
	}
	if len(batch.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(batch.Trades))
	}
	tr := batch.Trades[0]
	if tr.MarketID != "3" {
		t.Errorf("market id = %q, want 3", tr.MarketID)
	}
	if tr.PriceKey != quant.ToPriceMicrosStr("100.25") || tr.Price != 100.25 {
		t.Errorf("price mismatch: %+v", tr)
	}
	if tr.BidAccountID != 777 || tr.AskAccountID != 12 {
		t.Errorf("account ids: %+v", tr)
	}
	if tr.BidOrderID != 9001 || tr.AskOrderID != 9002 {
		t.Errorf("order ids: %+v", tr)
	}
}

func TestParseFrame_UnknownAndMalformed(t *testing.T) {
	var seq uint64

	cases := []msgpack.Value{
		mmap("type", mstr("subscribed/trade")),                 // ack
		mmap("channel", mstr("order_book:0")),                  // no type
		mmap("type", mstr("subscribed/order_book")),            // no channel
		mmap("type", mstr("update/order_book"), "channel", mstr("order_book:")), // empty id
		mmap("type", mstr("update/trade")),                     // no trades
		mstr("ping"),                                           // not a map
	}
	for i, frame := range cases {
		if ev := ParseFrame(frame, &seq); ev != nil {
			t.Errorf("case %d: expected nil event, got %T", i, ev)
		}
	}
	if seq != 0 {
		t.Errorf("dropped frames must not advance the sequence, seq = %d", seq)
	}
}

func TestParseFrame_SkipsBrokenTradeEntries(t *testing.T) {
	var seq uint64
	frame := mmap(
		"type", mstr("update/trade"),
		"trades", marr(
			mmap("market_id", mint(1), "size", mstr("1")), // no price
			mmap("market_id", mint(1), "price", mstr("100"), "size", mstr("2"), "bid_id", mint(5)),
		),
	)

	batch := ParseFrame(frame, &seq).(*event.TradeBatchEvent)
	if len(batch.Trades) != 1 {
		t.Fatalf("trades = %d, want only the well-formed one", len(batch.Trades))
	}
	if batch.Trades[0].Size != 2 {
		t.Errorf("kept the wrong entry: %+v", batch.Trades[0])
	}
}
