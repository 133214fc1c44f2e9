package domain

import (
	"fmt"

	"github.com/mixmaster1989/mexcscalp-sub000/pkg/quant"
)

// Instrument holds exchange trading rules for one symbol.
// Fetched once at startup and never mutated afterwards; safe to share.
type Instrument struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	TickSize    float64
	StepSize    float64
	MinNotional float64
	MaxPrice    float64 // 0 = unbounded
	MaxQty      float64 // 0 = unbounded
}

// RoundPrice snaps a price to the instrument tick grid.
func (i *Instrument) RoundPrice(price float64) float64 {
	return quant.RoundToTick(price, i.TickSize)
}

// RoundQty floors a quantity to the instrument step grid.
func (i *Instrument) RoundQty(qty float64) float64 {
	return quant.RoundToStep(qty, i.StepSize)
}

// ValidateOrder checks an order candidate against tick/step/minNotional and
// the optional max bounds. Candidates failing this are never submitted.
func (i *Instrument) ValidateOrder(price, qty float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %v", price)
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive, got %v", qty)
	}
	if !quant.AlignedToTick(price, i.TickSize) {
		return fmt.Errorf("price %v not aligned to tick %v", price, i.TickSize)
	}
	if !quant.AlignedToStep(qty, i.StepSize) {
		return fmt.Errorf("qty %v not aligned to step %v", qty, i.StepSize)
	}
	if notional := quant.Notional(price, qty); notional < i.MinNotional {
		return fmt.Errorf("notional %v below minimum %v", notional, i.MinNotional)
	}
	if i.MaxPrice > 0 && price > i.MaxPrice {
		return fmt.Errorf("price %v above maximum %v", price, i.MaxPrice)
	}
	if i.MaxQty > 0 && qty > i.MaxQty {
		return fmt.Errorf("qty %v above maximum %v", qty, i.MaxQty)
	}
	return nil
}
