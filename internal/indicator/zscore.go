package indicator

import (
	"math"
)

// ZScore keeps the last `period` values and scores a reference value
// against their distribution.
type ZScore struct {
	period int
	values []float64
}

// NewZScore creates a rolling z-score calculator. period must be positive.
func NewZScore(period int) *ZScore {
	return &ZScore{period: period, values: make([]float64, 0, period)}
}

// Push appends a value to the rolling window.
func (z *ZScore) Push(v float64) {
	z.values = append(z.values, v)
	if len(z.values) > z.period {
		z.values = z.values[1:]
	}
}

// Score returns (reference - mean) / stddev over the window.
// 0 when fewer than 2 samples or when stddev is 0.
func (z *ZScore) Score(reference float64) float64 {
	n := len(z.values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range z.values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range z.values {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n))
	if std == 0 {
		return 0
	}
	return (reference - mean) / std
}

// Mean returns the window mean (0 when empty).
func (z *ZScore) Mean() float64 {
	if len(z.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range z.values {
		sum += v
	}
	return sum / float64(len(z.values))
}

// Len returns the number of buffered samples.
func (z *ZScore) Len() int {
	return len(z.values)
}

// Reset drops the window.
func (z *ZScore) Reset() {
	z.values = z.values[:0]
}
