package exchange

import (
	"context"
	"fmt"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
)

// ErrCircuitOpen is returned when the breaker rejects a call outright.
var ErrCircuitOpen = fmt.Errorf("exchange circuit breaker open")

// Guarded wraps a Client with a circuit breaker. Consecutive transport
// failures open the breaker and calls fail fast until the venue recovers,
// so the quoting loop degrades instead of hammering a dead endpoint.
type Guarded struct {
	inner   Client
	breaker *infra.CircuitBreaker
}

// NewGuarded wraps client with the given breaker.
func NewGuarded(client Client, breaker *infra.CircuitBreaker) *Guarded {
	return &Guarded{inner: client, breaker: breaker}
}

func (g *Guarded) GetBookTicker(ctx context.Context, symbol string) (domain.BookTicker, error) {
	if !g.breaker.Allow() {
		return domain.BookTicker{}, ErrCircuitOpen
	}
	t, err := g.inner.GetBookTicker(ctx, symbol)
	g.record(err)
	return t, err
}

func (g *Guarded) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if !g.breaker.Allow() {
		return 0, ErrCircuitOpen
	}
	p, err := g.inner.GetPrice(ctx, symbol)
	g.record(err)
	return p, err
}

func (g *Guarded) GetMyTrades(ctx context.Context, symbol string, limit int) ([]domain.Fill, error) {
	if !g.breaker.Allow() {
		return nil, ErrCircuitOpen
	}
	fills, err := g.inner.GetMyTrades(ctx, symbol, limit)
	g.record(err)
	return fills, err
}

func (g *Guarded) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	if !g.breaker.Allow() {
		return nil, ErrCircuitOpen
	}
	orders, err := g.inner.GetOpenOrders(ctx, symbol)
	g.record(err)
	return orders, err
}

func (g *Guarded) PlaceOrder(ctx context.Context, symbol, side, orderType string, qty, price float64, clientOrderID string) (domain.Order, error) {
	if !g.breaker.Allow() {
		return domain.Order{}, ErrCircuitOpen
	}
	o, err := g.inner.PlaceOrder(ctx, symbol, side, orderType, qty, price, clientOrderID)
	g.record(err)
	return o, err
}

func (g *Guarded) CancelOrder(ctx context.Context, symbol, orderID, clientOrderID string) error {
	if !g.breaker.Allow() {
		return ErrCircuitOpen
	}
	err := g.inner.CancelOrder(ctx, symbol, orderID, clientOrderID)
	g.record(err)
	return err
}

func (g *Guarded) GetAccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	if !g.breaker.Allow() {
		return domain.AccountInfo{}, ErrCircuitOpen
	}
	info, err := g.inner.GetAccountInfo(ctx)
	g.record(err)
	return info, err
}

func (g *Guarded) GetExchangeInfo(ctx context.Context, symbol string) ([]domain.Instrument, error) {
	if !g.breaker.Allow() {
		return nil, ErrCircuitOpen
	}
	insts, err := g.inner.GetExchangeInfo(ctx, symbol)
	g.record(err)
	return insts, err
}

func (g *Guarded) record(err error) {
	if err != nil {
		g.breaker.RecordFailure()
	} else {
		g.breaker.RecordSuccess()
	}
}
