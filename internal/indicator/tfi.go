package indicator

import (
	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// TFIData is the output of one trade-flow-imbalance recomputation.
type TFIData struct {
	Value      float64 // buyVolume/(buyVolume+sellVolume), 0.5 = balanced
	BuyVolume  float64
	SellVolume float64
	TsUnixMs   int64
}

// TFI splits executed volume into buy/sell buckets inside a trailing time
// window. Like VWAP, "now" is the newest trade timestamp.
type TFI struct {
	windowMs int64
	trades   []domain.Trade
}

// NewTFI creates a trade-flow-imbalance calculator. windowMs must be positive.
func NewTFI(windowMs int64) *TFI {
	return &TFI{windowMs: windowMs}
}

// Update ingests one trade and returns the recomputed imbalance.
// 0.5 when the window holds no volume.
func (f *TFI) Update(t domain.Trade) TFIData {
	f.trades = append(f.trades, t)

	cutoff := t.TsUnixMs - f.windowMs
	i := 0
	for i < len(f.trades) && f.trades[i].TsUnixMs < cutoff {
		i++
	}
	if i > 0 {
		f.trades = append(f.trades[:0], f.trades[i:]...)
	}

	out := TFIData{TsUnixMs: t.TsUnixMs, Value: 0.5}
	for _, tr := range f.trades {
		if tr.Side == domain.SideBuy {
			out.BuyVolume += tr.Qty
		} else {
			out.SellVolume += tr.Qty
		}
	}
	if total := out.BuyVolume + out.SellVolume; total > 0 {
		out.Value = out.BuyVolume / total
	}
	return out
}

// Reset drops all buffered trades.
func (f *TFI) Reset() {
	f.trades = f.trades[:0]
}
