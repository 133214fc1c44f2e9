package domain

// QuoteLevel is one logical slot of the quoting ladder. Keyed by
// ClientOrderID for idempotent reconciliation with the exchange.
type QuoteLevel struct {
	Level         int // 1..N, distance rank from mid
	Side          string
	Price         float64
	Qty           float64
	OrderID       string
	ClientOrderID string
	Active        bool
	InFlight      bool // an exchange call for this slot is awaited
	CreatedUnixMs int64
}

// TakeProfitOrder captures one open inventory lot awaiting its exit.
// At most one exists per unmatched fill.
type TakeProfitOrder struct {
	ID            string
	ClientOrderID string
	FillID        string // originating fill
	Side          string // opposite of the fill
	Price         float64
	Qty           float64
	EntryPrice    float64
	Active        bool
	InFlight      bool
}
