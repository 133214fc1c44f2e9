package indicator

import (
	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// VWAPData is the output of one VWAP recomputation.
type VWAPData struct {
	Value    float64
	Volume   float64 // total volume inside the window
	TsUnixMs int64
}

// VWAP computes the volume-weighted average price over a trailing time
// window. "Now" is the newest trade timestamp, which keeps eviction
// deterministic without a wall clock.
type VWAP struct {
	windowMs int64
	trades   []domain.Trade
}

// NewVWAP creates a VWAP calculator. windowMs must be positive.
func NewVWAP(windowMs int64) *VWAP {
	return &VWAP{windowMs: windowMs}
}

// Update ingests one trade and returns the recomputed window VWAP.
func (v *VWAP) Update(t domain.Trade) VWAPData {
	v.trades = append(v.trades, t)
	v.evict(t.TsUnixMs)

	var pv, vol float64
	for _, tr := range v.trades {
		pv += tr.Price * tr.Qty
		vol += tr.Qty
	}
	out := VWAPData{Volume: vol, TsUnixMs: t.TsUnixMs}
	if vol > 0 {
		out.Value = pv / vol
	}
	return out
}

func (v *VWAP) evict(nowMs int64) {
	cutoff := nowMs - v.windowMs
	i := 0
	for i < len(v.trades) && v.trades[i].TsUnixMs < cutoff {
		i++
	}
	if i > 0 {
		v.trades = append(v.trades[:0], v.trades[i:]...)
	}
}

// Reset drops all buffered trades.
func (v *VWAP) Reset() {
	v.trades = v.trades[:0]
}
