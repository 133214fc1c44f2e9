package domain

// Order statuses follow the exchange wire format.
const (
	StatusNew             = "NEW"
	StatusPartiallyFilled = "PARTIALLY_FILLED"
	StatusFilled          = "FILLED"
	StatusCanceled        = "CANCELED"
	StatusRejected        = "REJECTED"
	StatusExpired         = "EXPIRED"
)

// Order types.
const (
	TypeLimit  = "LIMIT"
	TypeMarket = "MARKET"
)

// Order is the engine's shadow copy of an exchange order. The exchange is
// the source of truth; this copy is reconciled, never assumed authoritative.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Side          string
	Type          string
	Price         float64 // 0 for market orders
	Qty           float64
	FilledQty     float64
	Status        string
	CreatedUnixMs int64
	UpdatedUnixMs int64
}

// IsOpen checks if the order is still resting on the exchange.
func (o *Order) IsOpen() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}

// RemainingQty returns the unfilled quantity.
func (o *Order) RemainingQty() float64 {
	if o.FilledQty >= o.Qty {
		return 0
	}
	return o.Qty - o.FilledQty
}

// Fill is a confirmed execution against one of our orders.
type Fill struct {
	TradeID       string
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          string
	Price         float64
	Qty           float64
	TsUnixMs      int64
}
