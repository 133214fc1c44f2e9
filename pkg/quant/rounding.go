package quant

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// RoundToTick rounds price to the nearest multiple of tick (half away from zero).
// Computed in decimal so repeated rounding is idempotent at any tick size.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	f, _ := p.Div(t).Round(0).Mul(t).Float64()
	return f
}

// RoundToStep floors qty to a multiple of step. Quantities are never rounded
// up: an order must not exceed the size the strategy asked for.
func RoundToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	f, _ := q.Div(s).Floor().Mul(s).Float64()
	return f
}

// AlignedToTick reports whether price is an exact multiple of tick.
func AlignedToTick(price, tick float64) bool {
	if tick <= 0 {
		return true
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	return p.Mod(t).IsZero()
}

// AlignedToStep reports whether qty is an exact multiple of step.
func AlignedToStep(qty, step float64) bool {
	return AlignedToTick(qty, step)
}

// Notional returns price*qty computed in decimal.
func Notional(price, qty float64) float64 {
	f, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(qty)).Float64()
	return f
}

// ApplyBps shifts price by bps basis points. up=true moves away from zero
// upward (1 + bps/10000), up=false downward (1 - bps/10000).
func ApplyBps(price, bps float64, up bool) float64 {
	factor := decimal.NewFromFloat(bps).Div(decimal.NewFromInt(10000))
	one := decimal.NewFromInt(1)
	if up {
		factor = one.Add(factor)
	} else {
		factor = one.Sub(factor)
	}
	f, _ := decimal.NewFromFloat(price).Mul(factor).Float64()
	return f
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}
