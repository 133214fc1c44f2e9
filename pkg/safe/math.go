package safe

import (
	"math"
)

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite returns v, or fallback when v is NaN or infinite. Indicator math
// divides by observed volatility and volume, so a poisoned NaN must never
// reach order prices.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Ratio returns num/den, or fallback when den is zero or the result is not finite.
func Ratio(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return Finite(num/den, fallback)
}
