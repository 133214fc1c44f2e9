package domain

// Side values follow the exchange wire format.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Opposite returns the other side.
func Opposite(side string) string {
	if side == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Trade is a single executed trade (public tape or own fill source data).
// Ephemeral: consumed immediately by the indicator calculators.
type Trade struct {
	Symbol   string
	Price    float64
	Qty      float64
	Side     string // aggressor side
	TsUnixMs int64
}

// Candle is one OHLCV bar.
type Candle struct {
	Symbol   string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	TsUnixMs int64
}

// OrderbookLevel is one price level of the book.
type OrderbookLevel struct {
	Price float64
	Qty   float64
}

// Orderbook is a wholesale snapshot; replaced on each update, never patched.
type Orderbook struct {
	Symbol   string
	Bids     []OrderbookLevel // descending price
	Asks     []OrderbookLevel // ascending price
	TsUnixMs int64
	Seq      uint64
}

// BestBid returns the top bid price or 0 when empty.
func (b *Orderbook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the top ask price or 0 when empty.
func (b *Orderbook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// BookTicker is the best bid/ask pair.
type BookTicker struct {
	Symbol   string
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
	TsUnixMs int64
}

// Mid returns the mid-price, 0 if either side is missing.
func (t *BookTicker) Mid() float64 {
	if t.BidPrice <= 0 || t.AskPrice <= 0 {
		return 0
	}
	return (t.BidPrice + t.AskPrice) / 2
}

// Spread returns ask-bid.
func (t *BookTicker) Spread() float64 {
	return t.AskPrice - t.BidPrice
}
