package indicator

// EMAData is the current EMA state.
type EMAData struct {
	Value  float64
	Period int
}

// EMA is an exponential moving average with alpha = 2/(period+1).
// The first sample seeds the average.
type EMA struct {
	period int
	alpha  float64
	value  float64
	seeded bool
}

// NewEMA creates an EMA calculator. period must be positive.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// Update blends one value in and returns the new EMA.
func (e *EMA) Update(x float64) EMAData {
	if !e.seeded {
		e.value = x
		e.seeded = true
	} else {
		e.value = e.alpha*x + (1-e.alpha)*e.value
	}
	return EMAData{Value: e.value, Period: e.period}
}

// Value returns the current EMA (0 before the first sample).
func (e *EMA) Value() float64 {
	return e.value
}

// Reset clears the seed.
func (e *EMA) Reset() {
	e.value = 0
	e.seeded = false
}
