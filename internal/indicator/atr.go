// Package indicator provides stateful streaming calculators for the market
// data the engine consumes: candles, trades, and book snapshots. Windows are
// time- or count-bounded and recomputed from the retained buffer rather than
// incrementally accumulated; that costs a little CPU and buys resistance to
// floating-point drift plus trivial resets.
package indicator

import (
	"math"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// ATRData is the output of one ATR recomputation.
type ATRData struct {
	Value    float64
	Period   int
	TsUnixMs int64
}

// ATR computes the Average True Range over the last `period` candles.
// Needs period+1 candles before it reports ready.
type ATR struct {
	period int
	highs  []float64
	lows   []float64
	closes []float64
}

// NewATR creates an ATR calculator. period must be positive.
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		highs:  make([]float64, 0, period+1),
		lows:   make([]float64, 0, period+1),
		closes: make([]float64, 0, period+1),
	}
}

// Update ingests one candle. ok is false until period+1 candles have been seen.
func (a *ATR) Update(c domain.Candle) (ATRData, bool) {
	a.highs = append(a.highs, c.High)
	a.lows = append(a.lows, c.Low)
	a.closes = append(a.closes, c.Close)

	if len(a.closes) > a.period+1 {
		a.highs = a.highs[1:]
		a.lows = a.lows[1:]
		a.closes = a.closes[1:]
	}

	if len(a.closes) < a.period+1 {
		return ATRData{}, false
	}

	// Mean true range over the last `period` candles, recomputed from buffer.
	var sum float64
	for i := 1; i < len(a.closes); i++ {
		prevClose := a.closes[i-1]
		tr := a.highs[i] - a.lows[i]
		tr = math.Max(tr, math.Abs(a.highs[i]-prevClose))
		tr = math.Max(tr, math.Abs(a.lows[i]-prevClose))
		sum += tr
	}

	return ATRData{
		Value:    sum / float64(a.period),
		Period:   a.period,
		TsUnixMs: c.TsUnixMs,
	}, true
}

// Reset drops all history.
func (a *ATR) Reset() {
	a.highs = a.highs[:0]
	a.lows = a.lows[:0]
	a.closes = a.closes[:0]
}
