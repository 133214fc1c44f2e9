package exchange

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testInstrument() domain.Instrument {
	return domain.Instrument{
		Symbol:      "ETHUSDC",
		BaseAsset:   "ETH",
		QuoteAsset:  "USDC",
		TickSize:    0.01,
		StepSize:    0.0001,
		MinNotional: 1,
	}
}

func approxEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPaper_LimitOrderRestsUntilCrossed(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	paper := NewPaper(testInstrument(), 100.0, clock)
	paper.SetBookTicker(domain.BookTicker{Symbol: "ETHUSDC", BidPrice: 4319.98, AskPrice: 4320.02})

	var fills []domain.Fill
	paper.OnFill(func(f domain.Fill) { fills = append(fills, f) })

	order, err := paper.PlaceOrder(context.Background(), "ETHUSDC", domain.SideBuy, domain.TypeLimit, 0.01, 4314.30, "hh-b-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if order.Status != domain.StatusNew {
		t.Errorf("Expected NEW, got %s", order.Status)
	}
	if len(fills) != 0 {
		t.Fatal("Order below the market must rest, not fill")
	}

	// Ask drops to the order price: buy fills.
	paper.SetBookTicker(domain.BookTicker{Symbol: "ETHUSDC", BidPrice: 4314.25, AskPrice: 4314.30})

	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}
	if fills[0].Price != 4314.30 || fills[0].Side != domain.SideBuy {
		t.Errorf("Unexpected fill: %+v", fills[0])
	}

	// Balances settled: 100 - 43.143 quote, +0.01 base.
	if got := paper.Balance("USDC").Free; !approxEq(got, 100-43.143) {
		t.Errorf("Quote balance wrong: %v", got)
	}
	if got := paper.Balance("ETH").Free; !approxEq(got, 0.01) {
		t.Errorf("Base balance wrong: %v", got)
	}

	open, _ := paper.GetOpenOrders(context.Background(), "ETHUSDC")
	if len(open) != 0 {
		t.Errorf("Filled order should not be open, got %d open", len(open))
	}
}

func TestPaper_SellFillsWhenBidRises(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	paper := NewPaper(testInstrument(), 100.0, clock)
	paper.Deposit("ETH", 0.05)
	paper.SetBookTicker(domain.BookTicker{Symbol: "ETHUSDC", BidPrice: 4319.98, AskPrice: 4320.02})

	var fills []domain.Fill
	paper.OnFill(func(f domain.Fill) { fills = append(fills, f) })

	if _, err := paper.PlaceOrder(context.Background(), "ETHUSDC", domain.SideSell, domain.TypeLimit, 0.01, 4325.70, "hh-s-1"); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	paper.SetBookTicker(domain.BookTicker{Symbol: "ETHUSDC", BidPrice: 4325.70, AskPrice: 4325.75})
	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}
	if got := paper.Balance("ETH").Free; !approxEq(got, 0.04) {
		t.Errorf("Base balance wrong: %v", got)
	}
	if got := paper.Balance("USDC").Free; !approxEq(got, 100+43.257) {
		t.Errorf("Quote balance wrong: %v", got)
	}
}

func TestPaper_MarketOrderFillsAtTouch(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	paper := NewPaper(testInstrument(), 100.0, clock)
	paper.SetBookTicker(domain.BookTicker{Symbol: "ETHUSDC", BidPrice: 4319.98, AskPrice: 4320.02})

	order, err := paper.PlaceOrder(context.Background(), "ETHUSDC", domain.SideBuy, domain.TypeMarket, 0.01, 0, "mk-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if order.Status != domain.StatusFilled {
		t.Errorf("Market order must fill immediately, got %s", order.Status)
	}

	fills := paper.Fills()
	if len(fills) != 1 || fills[0].Price != 4320.02 {
		t.Errorf("Expected fill at ask 4320.02, got %+v", fills)
	}
}

func TestPaper_RejectsBadOrder(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	paper := NewPaper(testInstrument(), 100.0, clock)

	// Off-tick price.
	if _, err := paper.PlaceOrder(context.Background(), "ETHUSDC", domain.SideBuy, domain.TypeLimit, 0.01, 4314.305, "x"); err == nil {
		t.Error("Expected rejection for off-tick price")
	}
	// Below min notional.
	if _, err := paper.PlaceOrder(context.Background(), "ETHUSDC", domain.SideBuy, domain.TypeLimit, 0.0001, 4314.30, "x"); err == nil {
		t.Error("Expected rejection below min notional")
	}
	// Unknown symbol.
	if _, err := paper.PlaceOrder(context.Background(), "BTCUSDC", domain.SideBuy, domain.TypeLimit, 0.01, 4314.30, "x"); err == nil {
		t.Error("Expected rejection for unknown symbol")
	}
}

func TestPaper_CancelByClientID(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	paper := NewPaper(testInstrument(), 100.0, clock)
	paper.SetBookTicker(domain.BookTicker{Symbol: "ETHUSDC", BidPrice: 4319.98, AskPrice: 4320.02})

	order, err := paper.PlaceOrder(context.Background(), "ETHUSDC", domain.SideBuy, domain.TypeLimit, 0.01, 4314.30, "hh-b-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if err := paper.CancelOrder(context.Background(), "ETHUSDC", "nonexistent", "hh-b-1"); err != nil {
		t.Fatalf("Cancel by client id failed: %v", err)
	}

	// Second cancel must fail: order no longer open.
	if err := paper.CancelOrder(context.Background(), "ETHUSDC", order.ID, ""); err == nil {
		t.Error("Expected error canceling an already-canceled order")
	}

	open, _ := paper.GetOpenOrders(context.Background(), "ETHUSDC")
	if len(open) != 0 {
		t.Errorf("Expected no open orders, got %d", len(open))
	}
}

func TestPaper_GetMyTradesLimit(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	paper := NewPaper(testInstrument(), 1000.0, clock)
	paper.SetBookTicker(domain.BookTicker{Symbol: "ETHUSDC", BidPrice: 4319.98, AskPrice: 4320.02})

	for i := 0; i < 5; i++ {
		if _, err := paper.PlaceOrder(context.Background(), "ETHUSDC", domain.SideBuy, domain.TypeMarket, 0.01, 0, ""); err != nil {
			t.Fatalf("PlaceOrder %d failed: %v", i, err)
		}
	}

	fills, err := paper.GetMyTrades(context.Background(), "ETHUSDC", 3)
	if err != nil {
		t.Fatalf("GetMyTrades failed: %v", err)
	}
	if len(fills) != 3 {
		t.Errorf("Expected 3 most recent fills, got %d", len(fills))
	}
	if fills[len(fills)-1].TradeID != "t-5" {
		t.Errorf("Expected newest fill last, got %s", fills[len(fills)-1].TradeID)
	}
}
