package domain

import (
	"math"
	"testing"
)

func TestInventory_ApplyFill(t *testing.T) {
	var inv Inventory

	inv.ApplyFill(SideBuy, 4320.00, 0.01)
	if math.Abs(inv.BaseQty-0.01) > 1e-12 {
		t.Errorf("BaseQty = %v, want 0.01", inv.BaseQty)
	}
	if math.Abs(inv.QuoteNotional-43.20) > 1e-9 {
		t.Errorf("QuoteNotional = %v, want 43.20", inv.QuoteNotional)
	}

	inv.ApplyFill(SideSell, 4325.184, 0.01)
	if math.Abs(inv.BaseQty) > 1e-12 {
		t.Errorf("BaseQty after round-trip = %v, want 0", inv.BaseQty)
	}
	// Round trip at a higher sell price leaves negative quote exposure (profit taken).
	if inv.QuoteNotional >= 0 {
		t.Errorf("QuoteNotional = %v, want negative after profitable round trip", inv.QuoteNotional)
	}
}

func TestInventory_CanSell(t *testing.T) {
	inv := Inventory{BaseQty: 0.01}
	if !inv.CanSell(0.01) {
		t.Error("should be able to sell owned qty")
	}
	if inv.CanSell(0.02) {
		t.Error("must not sell more than owned")
	}
}
