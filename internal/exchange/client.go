// Package exchange abstracts the trading venue. The engine talks to the
// Client interface only; the exchange remains the source of truth for
// order state.
package exchange

import (
	"context"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// Client is the abstract exchange the decision engine trades through.
type Client interface {
	// GetBookTicker returns the current best bid/ask.
	GetBookTicker(ctx context.Context, symbol string) (domain.BookTicker, error)

	// GetPrice returns the last trade price.
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// GetMyTrades returns the account's recent executions, oldest first.
	GetMyTrades(ctx context.Context, symbol string, limit int) ([]domain.Fill, error)

	// GetOpenOrders returns all resting orders for the symbol.
	GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)

	// PlaceOrder submits a new order. price is ignored for market orders.
	PlaceOrder(ctx context.Context, symbol, side, orderType string, qty, price float64, clientOrderID string) (domain.Order, error)

	// CancelOrder cancels by exchange id, falling back to client id.
	CancelOrder(ctx context.Context, symbol, orderID, clientOrderID string) error

	// GetAccountInfo returns balances and trading permission.
	GetAccountInfo(ctx context.Context) (domain.AccountInfo, error)

	// GetExchangeInfo returns instrument trading rules. Empty symbol
	// returns all instruments.
	GetExchangeInfo(ctx context.Context, symbol string) ([]domain.Instrument, error)
}
