package indicator

import (
	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// OBIData is the output of one order-book-imbalance recomputation.
type OBIData struct {
	Value    float64 // bidDepth/(bidDepth+askDepth), 0.5 = balanced
	BidDepth float64
	AskDepth float64
	TsUnixMs int64
}

// OBI measures price-weighted depth imbalance over the top N book levels.
type OBI struct {
	levels int
}

// NewOBI creates an order-book-imbalance calculator over the top `levels`
// levels per side.
func NewOBI(levels int) *OBI {
	return &OBI{levels: levels}
}

// Update recomputes imbalance from a book snapshot. Returns 0.5 when both
// sides are empty.
func (o *OBI) Update(book domain.Orderbook) OBIData {
	bidDepth := o.depth(book.Bids)
	askDepth := o.depth(book.Asks)

	out := OBIData{
		BidDepth: bidDepth,
		AskDepth: askDepth,
		TsUnixMs: book.TsUnixMs,
		Value:    0.5,
	}
	if total := bidDepth + askDepth; total > 0 {
		out.Value = bidDepth / total
	}
	return out
}

func (o *OBI) depth(levels []domain.OrderbookLevel) float64 {
	var d float64
	for i, lvl := range levels {
		if i >= o.levels {
			break
		}
		d += lvl.Price * lvl.Qty
	}
	return d
}
