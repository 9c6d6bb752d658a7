package event

import (
	"lighter_go/internal/domain"
	"lighter_go/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvBookUpdate Type = iota + 1
	EvTradeBatch
	EvMarketSwitch
	EvOrderAction
	EvTick
)

// Event is the interface for all sequencer events.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64         { return e.Seq }
func (e BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// BookLevel is one wire price level, key already canonicalized.
type BookLevel struct {
	Price quant.PriceMicros `json:"price"`
	Size  float64           `json:"size"`
}

// BookUpdateEvent carries a full snapshot or an incremental diff for one
// market. Snapshot=true means the book resets before the levels apply.
type BookUpdateEvent struct {
	BaseEvent
	MarketID string      `json:"market_id"`
	Snapshot bool        `json:"snapshot"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
}

func (e BookUpdateEvent) GetType() Type { return EvBookUpdate }

// TradeBatchEvent carries the trades of one update/trade frame, in wire
// order.
type TradeBatchEvent struct {
	BaseEvent
	Trades []domain.Trade `json:"trades"`
}

func (e TradeBatchEvent) GetType() Type { return EvTradeBatch }

// MarketSwitchEvent signals that the operator navigated to a different
// market; all replicas are stale and must be discarded.
type MarketSwitchEvent struct {
	BaseEvent
}

func (e MarketSwitchEvent) GetType() Type { return EvMarketSwitch }

// OrderActionEvent signals that the operator just submitted an action
// (detected upstream, outside the core). The engine responds by taking a
// point-in-time book capture for attribution.
type OrderActionEvent struct {
	BaseEvent
}

func (e OrderActionEvent) GetType() Type { return EvOrderAction }

// TickEvent is a periodic timer event used to expire pending state
// (order-group merge windows, stale captures) inside the single-threaded
// loop.
type TickEvent struct {
	BaseEvent
}

func (e TickEvent) GetType() Type { return EvTick }
