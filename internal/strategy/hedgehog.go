package strategy

import (
	"math"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// Hedgehog quotes a symmetric geometric ladder around the mid-price:
// level k rests at mid ∓ offset ∓ (k-1)·step with size baseSize·ratio^(k-1).
// Sells are additionally gated on owned base quantity so the ladder never
// quotes short.
type Hedgehog struct{}

func NewHedgehog() *Hedgehog { return &Hedgehog{} }

func (h *Hedgehog) Name() string { return "hedgehog" }

func (h *Hedgehog) Levels(in PolicyInput) []LevelSpec {
	if in.Mid <= 0 || in.Offset <= 0 || in.MaxLevels < 1 {
		return nil
	}

	suppressBuy, suppressSell := suppressed(in)
	available := in.Inventory.BaseQty

	var out []LevelSpec
	for level := 1; level <= in.MaxLevels; level++ {
		dist := in.Offset + float64(level-1)*in.Step
		qty := in.Inst.RoundQty(in.BaseSize * math.Pow(in.SizeRatio, float64(level-1)))
		if qty <= 0 {
			continue
		}

		if !suppressBuy {
			price := in.Inst.RoundPrice(in.Mid - dist)
			if in.Inst.ValidateOrder(price, qty) == nil {
				out = append(out, LevelSpec{Level: level, Side: domain.SideBuy, Price: price, Qty: qty})
			}
		}
		if !suppressSell && available >= qty {
			price := in.Inst.RoundPrice(in.Mid + dist)
			if in.Inst.ValidateOrder(price, qty) == nil {
				out = append(out, LevelSpec{Level: level, Side: domain.SideSell, Price: price, Qty: qty})
				available -= qty
			}
		}
	}
	return out
}
