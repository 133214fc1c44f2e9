package domain

// Balance is a single asset balance.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Total returns free+locked.
func (b *Balance) Total() float64 {
	return b.Free + b.Locked
}

// AccountInfo is the exchange account snapshot.
type AccountInfo struct {
	Balances []Balance
	CanTrade bool
}

// Balance returns the balance for an asset, zero-valued if absent.
func (a *AccountInfo) Balance(asset string) Balance {
	for _, b := range a.Balances {
		if b.Asset == asset {
			return b
		}
	}
	return Balance{Asset: asset}
}
