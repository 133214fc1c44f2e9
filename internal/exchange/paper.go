package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
	"github.com/mixmaster1989/mexcscalp-sub000/pkg/quant"
)

// Paper simulates an exchange with virtual balances. Limit orders rest
// until the book ticker crosses them; market orders fill at the touch.
// Used for paper trading mode and for exercising the engine in tests.
type Paper struct {
	mu sync.Mutex

	inst     domain.Instrument
	balances map[string]*domain.Balance
	orders   map[string]*domain.Order
	fills    []domain.Fill
	ticker   domain.BookTicker
	clock    infra.Clock

	onFill func(domain.Fill)

	nextOrderID uint64
	nextTradeID uint64
}

// NewPaper creates a paper venue for one instrument with an initial quote
// balance.
func NewPaper(inst domain.Instrument, quoteDeposit float64, clock infra.Clock) *Paper {
	p := &Paper{
		inst:     inst,
		balances: make(map[string]*domain.Balance),
		orders:   make(map[string]*domain.Order),
		clock:    clock,
	}
	p.balance(inst.QuoteAsset).Free = quoteDeposit
	return p
}

// OnFill registers a callback invoked synchronously for every simulated
// execution.
func (p *Paper) OnFill(fn func(domain.Fill)) {
	p.onFill = fn
}

// Deposit credits an asset balance.
func (p *Paper) Deposit(asset string, amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance(asset).Free += amount
}

// SetBookTicker moves the simulated market and fills any resting orders it
// crosses. Fired fills are reported through OnFill in order id sequence.
func (p *Paper) SetBookTicker(t domain.BookTicker) {
	p.mu.Lock()
	p.ticker = t

	var fired []domain.Fill
	for _, o := range p.orders {
		if !o.IsOpen() || o.Type != domain.TypeLimit {
			continue
		}
		crossed := (o.Side == domain.SideBuy && t.AskPrice > 0 && t.AskPrice <= o.Price) ||
			(o.Side == domain.SideSell && t.BidPrice > 0 && t.BidPrice >= o.Price)
		if crossed {
			fired = append(fired, p.fill(o, o.Price))
		}
	}
	p.mu.Unlock()

	for _, f := range fired {
		if p.onFill != nil {
			p.onFill(f)
		}
	}
}

func (p *Paper) GetBookTicker(_ context.Context, symbol string) (domain.BookTicker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if symbol != p.inst.Symbol {
		return domain.BookTicker{}, fmt.Errorf("unknown symbol %s", symbol)
	}
	return p.ticker, nil
}

func (p *Paper) GetPrice(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if symbol != p.inst.Symbol {
		return 0, fmt.Errorf("unknown symbol %s", symbol)
	}
	return (&p.ticker).Mid(), nil
}

func (p *Paper) GetMyTrades(_ context.Context, symbol string, limit int) ([]domain.Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Fill, 0, limit)
	start := 0
	if limit > 0 && len(p.fills) > limit {
		start = len(p.fills) - limit
	}
	for _, f := range p.fills[start:] {
		if f.Symbol == symbol {
			out = append(out, f)
		}
	}
	return out, nil
}

func (p *Paper) GetOpenOrders(_ context.Context, symbol string) ([]domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []domain.Order
	for _, o := range p.orders {
		if o.Symbol == symbol && o.IsOpen() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (p *Paper) PlaceOrder(_ context.Context, symbol, side, orderType string, qty, price float64, clientOrderID string) (domain.Order, error) {
	p.mu.Lock()

	if symbol != p.inst.Symbol {
		p.mu.Unlock()
		return domain.Order{}, fmt.Errorf("unknown symbol %s", symbol)
	}
	if orderType == domain.TypeLimit {
		if err := p.inst.ValidateOrder(price, qty); err != nil {
			p.mu.Unlock()
			return domain.Order{}, fmt.Errorf("order rejected: %w", err)
		}
	}

	p.nextOrderID++
	now := p.clock.Now().UnixMilli()
	o := &domain.Order{
		ID:            fmt.Sprintf("paper-%d", p.nextOrderID),
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		Price:         price,
		Qty:           qty,
		Status:        domain.StatusNew,
		CreatedUnixMs: now,
		UpdatedUnixMs: now,
	}
	p.orders[o.ID] = o

	var fired *domain.Fill
	if orderType == domain.TypeMarket {
		execPrice := p.ticker.AskPrice
		if side == domain.SideSell {
			execPrice = p.ticker.BidPrice
		}
		if execPrice <= 0 {
			p.mu.Unlock()
			return domain.Order{}, fmt.Errorf("no market price available for %s", symbol)
		}
		f := p.fill(o, execPrice)
		fired = &f
	}

	result := *o
	p.mu.Unlock()

	if fired != nil && p.onFill != nil {
		p.onFill(*fired)
	}
	slog.Debug("paper order placed",
		slog.String("id", result.ID),
		slog.String("side", side),
		slog.Float64("price", price),
		slog.Float64("qty", qty))
	return result, nil
}

func (p *Paper) CancelOrder(_ context.Context, _, orderID, clientOrderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	if !ok {
		for _, cand := range p.orders {
			if clientOrderID != "" && cand.ClientOrderID == clientOrderID {
				o = cand
				ok = true
				break
			}
		}
	}
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if !o.IsOpen() {
		return fmt.Errorf("cannot cancel order %s in status %s", o.ID, o.Status)
	}
	o.Status = domain.StatusCanceled
	o.UpdatedUnixMs = p.clock.Now().UnixMilli()
	return nil
}

func (p *Paper) GetAccountInfo(context.Context) (domain.AccountInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := domain.AccountInfo{CanTrade: true}
	for _, b := range p.balances {
		info.Balances = append(info.Balances, *b)
	}
	return info, nil
}

func (p *Paper) GetExchangeInfo(_ context.Context, symbol string) ([]domain.Instrument, error) {
	if symbol != "" && symbol != p.inst.Symbol {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return []domain.Instrument{p.inst}, nil
}

// Fills returns a copy of all executions so far.
func (p *Paper) Fills() []domain.Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

// Balance returns the current balance of an asset.
func (p *Paper) Balance(asset string) domain.Balance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.balance(asset)
}

func (p *Paper) balance(asset string) *domain.Balance {
	b, ok := p.balances[asset]
	if !ok {
		b = &domain.Balance{Asset: asset}
		p.balances[asset] = b
	}
	return b
}

// fill executes an order at execPrice and settles balances. Must be called
// with the mutex held.
func (p *Paper) fill(o *domain.Order, execPrice float64) domain.Fill {
	notional := quant.Notional(execPrice, o.RemainingQty())
	base := p.balance(p.inst.BaseAsset)
	quote := p.balance(p.inst.QuoteAsset)

	if o.Side == domain.SideBuy {
		quote.Free -= notional
		base.Free += o.RemainingQty()
	} else {
		base.Free -= o.RemainingQty()
		quote.Free += notional
	}

	p.nextTradeID++
	f := domain.Fill{
		TradeID:       fmt.Sprintf("t-%d", p.nextTradeID),
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		Price:         execPrice,
		Qty:           o.RemainingQty(),
		TsUnixMs:      p.clock.Now().UnixMilli(),
	}
	o.FilledQty = o.Qty
	o.Status = domain.StatusFilled
	o.UpdatedUnixMs = f.TsUnixMs
	p.fills = append(p.fills, f)
	return f
}
