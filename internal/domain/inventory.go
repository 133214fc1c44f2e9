package domain

// Inventory tracks the running position built up by confirmed fills.
// Order placement never touches it; only fills do.
type Inventory struct {
	BaseQty       float64 // owned base asset
	QuoteNotional float64 // signed quote exposure: positive = long
}

// ApplyFill mutates inventory from a confirmed fill.
func (inv *Inventory) ApplyFill(side string, price, qty float64) {
	switch side {
	case SideBuy:
		inv.BaseQty += qty
		inv.QuoteNotional += price * qty
	case SideSell:
		inv.BaseQty -= qty
		inv.QuoteNotional -= price * qty
	}
}

// CanSell reports whether qty of base asset is owned. Sell quoting is gated
// on owned quantity; the engine never quotes short.
func (inv *Inventory) CanSell(qty float64) bool {
	return inv.BaseQty >= qty
}
