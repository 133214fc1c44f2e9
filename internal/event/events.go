package event

import (
	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	// Inbound market/account data (sequencer inbox).
	EvTrade Type = iota + 1
	EvCandle
	EvBook
	EvBookTicker
	EvOrderUpdate

	// Outbound engine notifications (bus).
	EvFill
	EvOrderPlaced
	EvOrderCanceled
	EvTakeProfitCreated
	EvRegimeChange
	EvQuotingPaused
	EvStarted
	EvStopped
	EvError
)

func (t Type) String() string {
	switch t {
	case EvTrade:
		return "trade"
	case EvCandle:
		return "candle"
	case EvBook:
		return "book"
	case EvBookTicker:
		return "bookTicker"
	case EvOrderUpdate:
		return "orderUpdate"
	case EvFill:
		return "fill"
	case EvOrderPlaced:
		return "orderPlaced"
	case EvOrderCanceled:
		return "orderCanceled"
	case EvTakeProfitCreated:
		return "takeProfitCreated"
	case EvRegimeChange:
		return "regimeChange"
	case EvQuotingPaused:
		return "quotingPaused"
	case EvStarted:
		return "started"
	case EvStopped:
		return "stopped"
	case EvError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the interface for all engine events.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"` // unix ms
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }
func (e BaseEvent) GetTs() int64   { return e.Ts }

// TradeEvent is a public trade from the market feed.
type TradeEvent struct {
	BaseEvent
	Trade domain.Trade `json:"trade"`
}

func (e TradeEvent) GetType() Type { return EvTrade }

// CandleEvent is a closed (or updating) kline from the market feed.
type CandleEvent struct {
	BaseEvent
	Candle domain.Candle `json:"candle"`
}

func (e CandleEvent) GetType() Type { return EvCandle }

// BookEvent is a wholesale orderbook snapshot.
type BookEvent struct {
	BaseEvent
	Book domain.Orderbook `json:"book"`
}

func (e BookEvent) GetType() Type { return EvBook }

// BookTickerEvent is a best-bid/ask update; the quoting hot path runs on it.
type BookTickerEvent struct {
	BaseEvent
	Ticker domain.BookTicker `json:"ticker"`
}

func (e BookTickerEvent) GetType() Type { return EvBookTicker }

// OrderUpdateEvent reports an exchange-side order status change or fill.
type OrderUpdateEvent struct {
	BaseEvent
	Order domain.Order `json:"order"`
	Fill  *domain.Fill `json:"fill,omitempty"` // set when the update carries an execution
}

func (e OrderUpdateEvent) GetType() Type { return EvOrderUpdate }

// FillEvent notifies consumers of a confirmed execution.
type FillEvent struct {
	BaseEvent
	Fill domain.Fill `json:"fill"`
}

func (e FillEvent) GetType() Type { return EvFill }

// OrderPlacedEvent notifies consumers that a quote level was placed.
type OrderPlacedEvent struct {
	BaseEvent
	Order domain.Order `json:"order"`
}

func (e OrderPlacedEvent) GetType() Type { return EvOrderPlaced }

// OrderCanceledEvent notifies consumers that an order was canceled.
type OrderCanceledEvent struct {
	BaseEvent
	Symbol        string `json:"symbol"`
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Reason        string `json:"reason"`
}

func (e OrderCanceledEvent) GetType() Type { return EvOrderCanceled }

// TakeProfitCreatedEvent notifies consumers of a new take-profit order.
type TakeProfitCreatedEvent struct {
	BaseEvent
	TakeProfit domain.TakeProfitOrder `json:"take_profit"`
}

func (e TakeProfitCreatedEvent) GetType() Type { return EvTakeProfitCreated }

// RegimeChangeEvent reports a regime transition with the full snapshot.
type RegimeChangeEvent struct {
	BaseEvent
	Previous domain.RegimeData `json:"previous"`
	Current  domain.RegimeData `json:"current"`
}

func (e RegimeChangeEvent) GetType() Type { return EvRegimeChange }

// QuotingPausedEvent reports that filters rejected the last update and all
// resting quotes were pulled.
type QuotingPausedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

func (e QuotingPausedEvent) GetType() Type { return EvQuotingPaused }

// StartedEvent marks strategy activation.
type StartedEvent struct {
	BaseEvent
	Symbol string `json:"symbol"`
	Policy string `json:"policy"`
}

func (e StartedEvent) GetType() Type { return EvStarted }

// StoppedEvent marks strategy deactivation.
type StoppedEvent struct {
	BaseEvent
	Symbol string `json:"symbol"`
}

func (e StoppedEvent) GetType() Type { return EvStopped }

// ErrorEvent carries an isolated operation failure. Nothing in the core
// crashes the process; failures surface here.
type ErrorEvent struct {
	BaseEvent
	Op  string `json:"op"`
	Err string `json:"err"`
}

func (e ErrorEvent) GetType() Type { return EvError }
