package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/event"
	"github.com/mixmaster1989/mexcscalp-sub000/pkg/quant"
)

// DefaultMEXCWSURL is the public spot stream endpoint.
const DefaultMEXCWSURL = "wss://wbs.mexc.com/ws"

// MEXCFeed is the WebSocketHandler for the MEXC spot market stream. It
// subscribes to the book ticker, trade, and 1m kline channels for one
// symbol and converts messages into sequenced inbox events.
type MEXCFeed struct {
	url    string
	symbol string
	inbox  chan<- event.Event
	seq    *uint64
}

// NewMEXCFeed creates a feed handler. url may be empty to use the
// production endpoint.
func NewMEXCFeed(url, symbol string, inbox chan<- event.Event, seq *uint64) *MEXCFeed {
	if url == "" {
		url = DefaultMEXCWSURL
	}
	return &MEXCFeed{url: url, symbol: symbol, inbox: inbox, seq: seq}
}

func (f *MEXCFeed) GetURL() string { return f.url }

func (f *MEXCFeed) ID() string { return "mexc-" + f.symbol }

type mexcSubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// OnConnect subscribes to the three market channels.
func (f *MEXCFeed) OnConnect(_ context.Context, conn *websocket.Conn) error {
	req := mexcSubscribeRequest{
		Method: "SUBSCRIPTION",
		Params: []string{
			fmt.Sprintf("spot@public.bookTicker.v3.api@%s", f.symbol),
			fmt.Sprintf("spot@public.deals.v3.api@%s", f.symbol),
			fmt.Sprintf("spot@public.kline.v3.api@%s@Min1", f.symbol),
		},
	}
	msg, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// OnPing keeps the stream alive; the server drops silent connections.
func (f *MEXCFeed) OnPing(_ context.Context, conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.TextMessage, []byte(`{"method":"PING"}`))
}

// OnMessage parses one stream message and forwards the resulting event.
// Unknown channels and acks are ignored.
func (f *MEXCFeed) OnMessage(ctx context.Context, msg []byte) {
	res := gjson.ParseBytes(msg)
	channel := res.Get("c").String()
	if channel == "" {
		return
	}
	ts := res.Get("t").Int()

	switch {
	case strings.Contains(channel, "bookTicker"):
		f.handleBookTicker(ctx, res.Get("d"), ts)
	case strings.Contains(channel, "deals"):
		f.handleDeals(ctx, res.Get("d"), ts)
	case strings.Contains(channel, "kline"):
		f.handleKline(ctx, res.Get("d"), ts)
	}
}

func (f *MEXCFeed) handleBookTicker(ctx context.Context, d gjson.Result, ts int64) {
	t := domain.BookTicker{
		Symbol:   f.symbol,
		BidPrice: d.Get("b").Float(),
		BidQty:   d.Get("B").Float(),
		AskPrice: d.Get("a").Float(),
		AskQty:   d.Get("A").Float(),
		TsUnixMs: ts,
	}
	if t.BidPrice <= 0 || t.AskPrice <= 0 {
		return
	}
	f.send(ctx, &event.BookTickerEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(f.seq), Ts: ts},
		Ticker:    t,
	})
}

func (f *MEXCFeed) handleDeals(ctx context.Context, d gjson.Result, ts int64) {
	d.Get("deals").ForEach(func(_, deal gjson.Result) bool {
		side := domain.SideBuy
		if deal.Get("S").Int() == 2 {
			side = domain.SideSell
		}
		tradeTs := deal.Get("t").Int()
		if tradeTs == 0 {
			tradeTs = ts
		}
		f.send(ctx, &event.TradeEvent{
			BaseEvent: event.BaseEvent{Seq: quant.NextSeq(f.seq), Ts: tradeTs},
			Trade: domain.Trade{
				Symbol:   f.symbol,
				Price:    deal.Get("p").Float(),
				Qty:      deal.Get("v").Float(),
				Side:     side,
				TsUnixMs: tradeTs,
			},
		})
		return true
	})
}

func (f *MEXCFeed) handleKline(ctx context.Context, d gjson.Result, ts int64) {
	k := d.Get("k")
	if !k.Exists() {
		return
	}
	f.send(ctx, &event.CandleEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(f.seq), Ts: ts},
		Candle: domain.Candle{
			Symbol:   f.symbol,
			Open:     k.Get("o").Float(),
			High:     k.Get("h").Float(),
			Low:      k.Get("l").Float(),
			Close:    k.Get("c").Float(),
			Volume:   k.Get("v").Float(),
			TsUnixMs: k.Get("t").Int() * 1000, // window start, seconds
		},
	})
}

// send blocks on a full inbox: the event already holds its sequence
// number, so dropping it would turn backpressure into a phantom stream
// gap. Stalling the read loop is the safe failure mode.
func (f *MEXCFeed) send(ctx context.Context, ev event.Event) {
	select {
	case f.inbox <- ev:
	case <-ctx.Done():
	}
}
