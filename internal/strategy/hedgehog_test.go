package strategy

import (
	"math"
	"testing"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

func testInstrument() *domain.Instrument {
	return &domain.Instrument{
		Symbol:      "ETHUSDC",
		BaseAsset:   "ETH",
		QuoteAsset:  "USDC",
		TickSize:    0.01,
		StepSize:    0.0001,
		MinNotional: 1,
	}
}

func baseInput() PolicyInput {
	return PolicyInput{
		Mid:            4320.00,
		Offset:         5.70,
		Step:           4.275,
		MaxLevels:      2,
		InventoryLimit: 400, // deposit 1000 * 40%
		SkewAlpha:      0.3,
		BaseSize:       0.01,
		SizeRatio:      1.0,
		Inst:           testInstrument(),
	}
}

func findLevel(levels []LevelSpec, side string, level int) (LevelSpec, bool) {
	for _, l := range levels {
		if l.Side == side && l.Level == level {
			return l, true
		}
	}
	return LevelSpec{}, false
}

func TestHedgehog_LadderPrices(t *testing.T) {
	in := baseInput()
	in.Inventory = domain.Inventory{BaseQty: 0.05}

	levels := NewHedgehog().Levels(in)
	if len(levels) != 4 {
		t.Fatalf("expected 4 levels (2 per side), got %d", len(levels))
	}

	cases := []struct {
		side  string
		level int
		price float64
	}{
		{domain.SideBuy, 1, 4314.30},
		{domain.SideBuy, 2, 4310.03},
		{domain.SideSell, 1, 4325.70},
		{domain.SideSell, 2, 4329.98},
	}
	for _, tc := range cases {
		got, ok := findLevel(levels, tc.side, tc.level)
		if !ok {
			t.Fatalf("missing %s level %d", tc.side, tc.level)
		}
		if math.Abs(got.Price-tc.price) > 1e-9 {
			t.Errorf("%s level %d: expected price %v, got %v", tc.side, tc.level, tc.price, got.Price)
		}
		if math.Abs(got.Qty-0.01) > 1e-12 {
			t.Errorf("%s level %d: expected qty 0.01, got %v", tc.side, tc.level, got.Qty)
		}
	}
}

func TestHedgehog_LadderSymmetry(t *testing.T) {
	in := baseInput()
	in.MaxLevels = 3
	in.Inventory = domain.Inventory{BaseQty: 1}

	levels := NewHedgehog().Levels(in)
	for level := 1; level <= 3; level++ {
		buy, okB := findLevel(levels, domain.SideBuy, level)
		sell, okS := findLevel(levels, domain.SideSell, level)
		if !okB || !okS {
			t.Fatalf("level %d missing a side", level)
		}
		buyDist := in.Mid - buy.Price
		sellDist := sell.Price - in.Mid
		if math.Abs(buyDist-sellDist) > in.Inst.TickSize {
			t.Errorf("level %d not symmetric: buy dist %v, sell dist %v", level, buyDist, sellDist)
		}
	}
}

func TestHedgehog_GeometricSizing(t *testing.T) {
	in := baseInput()
	in.SizeRatio = 2.0
	in.Inventory = domain.Inventory{}

	levels := NewHedgehog().Levels(in)
	l1, _ := findLevel(levels, domain.SideBuy, 1)
	l2, _ := findLevel(levels, domain.SideBuy, 2)
	if math.Abs(l2.Qty-2*l1.Qty) > 1e-9 {
		t.Errorf("expected level 2 qty double level 1: %v vs %v", l2.Qty, l1.Qty)
	}
}

func TestHedgehog_SkewSuppressesBuys(t *testing.T) {
	in := baseInput()
	// Long past +skewAlpha*limit = 120 quote notional.
	in.Inventory = domain.Inventory{BaseQty: 0.05, QuoteNotional: 130}

	levels := NewHedgehog().Levels(in)
	if _, ok := findLevel(levels, domain.SideBuy, 1); ok {
		t.Error("buy levels must be suppressed above the skew threshold")
	}
	if _, ok := findLevel(levels, domain.SideSell, 1); !ok {
		t.Error("sell levels should survive a long skew")
	}
}

func TestHedgehog_SkewSuppressesSells(t *testing.T) {
	in := baseInput()
	in.Inventory = domain.Inventory{BaseQty: 0.05, QuoteNotional: -130}

	levels := NewHedgehog().Levels(in)
	if _, ok := findLevel(levels, domain.SideSell, 1); ok {
		t.Error("sell levels must be suppressed below the negative skew threshold")
	}
	if _, ok := findLevel(levels, domain.SideBuy, 1); !ok {
		t.Error("buy levels should survive a short skew")
	}
}

func TestHedgehog_SellsGatedOnOwnedQty(t *testing.T) {
	in := baseInput()
	// Enough for exactly one sell level.
	in.Inventory = domain.Inventory{BaseQty: 0.015}

	levels := NewHedgehog().Levels(in)
	if _, ok := findLevel(levels, domain.SideSell, 1); !ok {
		t.Error("expected sell level 1 with 0.015 owned")
	}
	if _, ok := findLevel(levels, domain.SideSell, 2); ok {
		t.Error("sell level 2 must be dropped: only 0.005 base left")
	}
	if _, ok := findLevel(levels, domain.SideBuy, 2); !ok {
		t.Error("buy side must be unaffected by sell gating")
	}
}

func TestHedgehog_MinNotionalDiscard(t *testing.T) {
	in := baseInput()
	in.BaseSize = 0.0004
	in.SizeRatio = 0.5
	in.Inventory = domain.Inventory{}

	// Level 1: 0.0004*4314.30 = 1.73 passes; level 2: 0.0002*4310.03 = 0.86
	// fails the 1.0 minimum.
	levels := NewHedgehog().Levels(in)
	if _, ok := findLevel(levels, domain.SideBuy, 1); !ok {
		t.Error("level 1 should pass min notional")
	}
	if _, ok := findLevel(levels, domain.SideBuy, 2); ok {
		t.Error("level 2 below min notional must be discarded")
	}
}

func TestHedgehog_NoLevelsWithoutMid(t *testing.T) {
	in := baseInput()
	in.Mid = 0
	if levels := NewHedgehog().Levels(in); levels != nil {
		t.Errorf("expected no levels without a mid, got %d", len(levels))
	}
}

// Ladder generation runs on every book ticker; keep it allocation-light.
func BenchmarkHedgehogLevels(b *testing.B) {
	in := baseInput()
	in.MaxLevels = 3
	in.Inventory = domain.Inventory{BaseQty: 0.05}
	h := NewHedgehog()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.Levels(in)
	}
}
