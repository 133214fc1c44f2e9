package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/event"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/lifecycle"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/regime"
	"github.com/mixmaster1989/mexcscalp-sub000/pkg/quant"
)

// RegimeSource provides the live market-condition classification.
type RegimeSource interface {
	Current() domain.RegimeData
}

// Config holds the quoting knobs. All fields are required.
type Config struct {
	Policy          string  `yaml:"policy"` // hedgehog | pingpong
	Deposit         float64 `yaml:"deposit"`
	OffsetCoeff     float64 `yaml:"offset_coeff"`
	StepCoeff       float64 `yaml:"step_coeff"`
	Levels          int     `yaml:"levels"`
	BaseSize        float64 `yaml:"base_size"`
	SizeRatio       float64 `yaml:"size_ratio"`
	SkewAlpha       float64 `yaml:"skew_alpha"`
	MaxInventoryPct float64 `yaml:"max_inventory_pct"`
}

// Validate rejects impossible configurations at startup.
func (c Config) Validate() error {
	switch c.Policy {
	case "hedgehog", "pingpong":
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	if c.Deposit <= 0 {
		return fmt.Errorf("deposit must be positive, got %v", c.Deposit)
	}
	if c.OffsetCoeff <= 0 {
		return fmt.Errorf("offset_coeff must be positive, got %v", c.OffsetCoeff)
	}
	if c.StepCoeff <= 0 {
		return fmt.Errorf("step_coeff must be positive, got %v", c.StepCoeff)
	}
	if c.Levels < 1 {
		return fmt.Errorf("levels must be at least 1, got %d", c.Levels)
	}
	if c.BaseSize <= 0 {
		return fmt.Errorf("base_size must be positive, got %v", c.BaseSize)
	}
	if c.SizeRatio <= 0 {
		return fmt.Errorf("size_ratio must be positive, got %v", c.SizeRatio)
	}
	if c.SkewAlpha <= 0 {
		return fmt.Errorf("skew_alpha must be positive, got %v", c.SkewAlpha)
	}
	if c.MaxInventoryPct <= 0 || c.MaxInventoryPct > 1 {
		return fmt.Errorf("max_inventory_pct must be in (0,1], got %v", c.MaxInventoryPct)
	}
	return nil
}

// NewPolicy builds the policy named in the config.
func NewPolicy(name string) (QuotingPolicy, error) {
	switch name {
	case "hedgehog":
		return NewHedgehog(), nil
	case "pingpong":
		return NewPingPong(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// Quoter is the single logical owner of the quoting state for one
// instrument: the quote-level table, the take-profit table, and the
// inventory. All mutation happens on the sequencer's event path; nothing
// here is safe for concurrent use.
type Quoter struct {
	cfg     Config
	inst    *domain.Instrument
	policy  QuotingPolicy
	client  lifecycle.OrderClient
	manager *lifecycle.Manager
	regimes RegimeSource
	bus     *event.Bus
	clock   infra.Clock
	seq     *uint64 // shared event sequence

	active          bool
	levels          map[string]*domain.QuoteLevel      // keyed by client order id
	tps             map[string]*domain.TakeProfitOrder // keyed by client order id
	inv             domain.Inventory
	recenterPending bool

	lastTicker domain.BookTicker
	lastOffset float64
	lastStep   float64

	idSeq uint64
}

// NewQuoter validates cfg and builds a quoter.
func NewQuoter(cfg Config, inst *domain.Instrument, client lifecycle.OrderClient, manager *lifecycle.Manager, regimes RegimeSource, bus *event.Bus, clock infra.Clock, seq *uint64) (*Quoter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("strategy config: %w", err)
	}
	policy, err := NewPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	q := &Quoter{
		cfg:     cfg,
		inst:    inst,
		policy:  policy,
		client:  client,
		manager: manager,
		regimes: regimes,
		bus:     bus,
		clock:   clock,
		seq:     seq,
		levels:  make(map[string]*domain.QuoteLevel),
		tps:     make(map[string]*domain.TakeProfitOrder),
	}
	manager.SetRecenterHook(func(float64) { q.recenterPending = true })
	return q, nil
}

// Inventory returns a snapshot of the current position.
func (q *Quoter) Inventory() domain.Inventory { return q.inv }

// Levels returns a snapshot of the tracked ladder slots.
func (q *Quoter) Levels() []domain.QuoteLevel {
	out := make([]domain.QuoteLevel, 0, len(q.levels))
	for _, l := range q.levels {
		out = append(out, *l)
	}
	return out
}

// TakeProfits returns a snapshot of the open take-profit orders.
func (q *Quoter) TakeProfits() []domain.TakeProfitOrder {
	out := make([]domain.TakeProfitOrder, 0, len(q.tps))
	for _, tp := range q.tps {
		out = append(out, *tp)
	}
	return out
}

// Start activates quoting. Pre-existing exchange orders are left alone;
// they age out through the lifecycle sweep.
func (q *Quoter) Start() {
	if q.active {
		return
	}
	q.active = true
	q.publish(event.StartedEvent{BaseEvent: q.base(), Symbol: q.inst.Symbol, Policy: q.policy.Name()})
	slog.Info("quoting started",
		slog.String("symbol", q.inst.Symbol),
		slog.String("policy", q.policy.Name()))
}

// Stop deactivates quoting and cancels every tracked quote level and
// take-profit order, bypassing the cancel budget. No placement is
// initiated after Stop begins.
func (q *Quoter) Stop(ctx context.Context) {
	if !q.active {
		return
	}
	q.active = false

	for id, l := range q.levels {
		if l.Active && q.cancelLevel(ctx, l, "stop", true) {
			delete(q.levels, id)
		}
	}
	for id, tp := range q.tps {
		if tp.Active && q.cancelTakeProfit(ctx, tp, "stop") {
			delete(q.tps, id)
		}
	}

	q.publish(event.StoppedEvent{BaseEvent: q.base(), Symbol: q.inst.Symbol})
	slog.Info("quoting stopped", slog.String("symbol", q.inst.Symbol))
}

// OnMarketUpdate runs one full quoting pass on a best bid/ask update:
// lifecycle sweep, then ladder recompute and diff.
func (q *Quoter) OnMarketUpdate(ctx context.Context, t domain.BookTicker) {
	if !q.active {
		return
	}
	mid := t.Mid()
	if mid <= 0 {
		return
	}

	rd := q.regimes.Current()
	atr := rd.Snapshot.ATR1m
	if atr <= 0 {
		// Indicators still warming up; not an error.
		return
	}
	params := regime.ParamsFor(rd.Regime)

	offset := params.OffsetMultiplier * q.cfg.OffsetCoeff * atr * q.manager.OffsetScale()
	step := params.StepMultiplier * q.cfg.StepCoeff * atr

	stats := q.manager.ManageOrders(ctx, q.trackedOrders(), mid, t.BidPrice, t.AskPrice, offset, step, t.TsUnixMs)
	if stats.Aborted != "" {
		q.pauseQuoting(ctx, stats.Aborted)
		return
	}
	q.rekey(stats.Replacements)

	q.lastTicker = t
	q.lastOffset = offset
	q.lastStep = step

	if q.recenterPending {
		// Full rebuild from the new anchor: pull everything, then requote.
		q.recenterPending = false
		for id, l := range q.levels {
			if l.Active && !l.InFlight && q.cancelLevel(ctx, l, "recenter", false) {
				delete(q.levels, id)
			}
		}
	}

	q.applyDesired(ctx, q.policy.Levels(q.policyInput(mid, params, offset, step)))
}

// OnFill applies a confirmed execution: inventory first, then the
// take-profit and replenishment flow for ladder fills.
func (q *Quoter) OnFill(ctx context.Context, f domain.Fill) {
	if f.Symbol != q.inst.Symbol {
		return
	}
	q.manager.RegisterFill()
	q.publish(event.FillEvent{BaseEvent: q.base(), Fill: f})

	if tp, ok := q.tps[f.ClientOrderID]; ok {
		// An exit completed; the lot is closed.
		q.inv.ApplyFill(f.Side, f.Price, f.Qty)
		delete(q.tps, tp.ClientOrderID)
		slog.Info("take-profit filled",
			slog.String("id", tp.ID),
			slog.Float64("entry", tp.EntryPrice),
			slog.Float64("exit", f.Price))
		return
	}

	level, ok := q.levels[f.ClientOrderID]
	if !ok {
		// Fill for an order the engine has no record of: still ours by
		// symbol, so it hits inventory, but no exit is derived from it.
		q.inv.ApplyFill(f.Side, f.Price, f.Qty)
		slog.Warn("fill for untracked order",
			slog.String("order_id", f.OrderID),
			slog.String("client_order_id", f.ClientOrderID))
		return
	}

	q.inv.ApplyFill(f.Side, f.Price, f.Qty)
	delete(q.levels, f.ClientOrderID)

	if !q.active {
		return
	}

	params := regime.ParamsFor(q.regimes.Current().Regime)
	q.createTakeProfit(ctx, f, params.TakeProfitBps)
	q.replenish(ctx, f, level.Level)

	if q.lastTicker.Mid() > 0 {
		q.applyDesired(ctx, q.policy.Levels(q.policyInput(q.lastTicker.Mid(), params, q.lastOffset, q.lastStep)))
	}
}

// pauseQuoting pulls every quote level after a filter rejection. Open
// take-profits stay: they are exits, not exposure.
func (q *Quoter) pauseQuoting(ctx context.Context, reason string) {
	for id, l := range q.levels {
		if l.Active && !l.InFlight && q.cancelLevel(ctx, l, reason, false) {
			delete(q.levels, id)
		}
	}
	q.publish(event.QuotingPausedEvent{BaseEvent: q.base(), Reason: reason})
	slog.Warn("quoting paused", slog.String("reason", reason))
}

// trackedOrders renders the active levels as orders for the lifecycle sweep.
func (q *Quoter) trackedOrders() []domain.Order {
	out := make([]domain.Order, 0, len(q.levels))
	for _, l := range q.levels {
		if !l.Active || l.InFlight {
			continue
		}
		out = append(out, domain.Order{
			ID:            l.OrderID,
			ClientOrderID: l.ClientOrderID,
			Symbol:        q.inst.Symbol,
			Side:          l.Side,
			Type:          domain.TypeLimit,
			Price:         l.Price,
			Qty:           l.Qty,
			Status:        domain.StatusNew,
			CreatedUnixMs: l.CreatedUnixMs,
		})
	}
	return out
}

// rekey updates level slots whose orders the lifecycle manager replaced.
func (q *Quoter) rekey(reps []lifecycle.Replacement) {
	for _, r := range reps {
		l, ok := q.levels[r.Old.ClientOrderID]
		if !ok {
			continue
		}
		delete(q.levels, r.Old.ClientOrderID)
		l.OrderID = r.New.ID
		l.ClientOrderID = r.New.ClientOrderID
		l.Price = r.New.Price
		l.Qty = r.New.Qty
		l.CreatedUnixMs = r.New.CreatedUnixMs
		if l.CreatedUnixMs == 0 {
			l.CreatedUnixMs = q.clock.Now().UnixMilli()
		}
		q.levels[l.ClientOrderID] = l
	}
}

func (q *Quoter) policyInput(mid float64, params domain.RegimeParams, offset, step float64) PolicyInput {
	maxLevels := q.cfg.Levels
	if params.MaxLevels < maxLevels {
		maxLevels = params.MaxLevels
	}
	if !params.EnableLadder {
		maxLevels = 1
	}
	return PolicyInput{
		Mid:            mid,
		Offset:         offset,
		Step:           step,
		MaxLevels:      maxLevels,
		Inventory:      q.inv,
		InventoryLimit: q.cfg.Deposit * q.cfg.MaxInventoryPct,
		SkewAlpha:      q.cfg.SkewAlpha,
		BaseSize:       q.cfg.BaseSize,
		SizeRatio:      q.cfg.SizeRatio,
		Inst:           q.inst,
	}
}

// applyDesired diffs the desired ladder against the tracked one: slots
// matching by side+level within one tick stay, unwanted ones are canceled,
// missing ones are placed.
func (q *Quoter) applyDesired(ctx context.Context, desired []LevelSpec) {
	matched := make(map[int]bool, len(desired))
	blocked := make(map[string]bool)

	for id, l := range q.levels {
		if l.InFlight {
			blocked[slotKey(l.Side, l.Level)] = true
			continue
		}
		keep := false
		for i, d := range desired {
			if matched[i] {
				continue
			}
			if d.Side == l.Side && d.Level == l.Level && absDiff(d.Price, l.Price) <= q.inst.TickSize {
				matched[i] = true
				keep = true
				break
			}
		}
		if keep {
			continue
		}
		if q.cancelLevel(ctx, l, "requote", false) {
			delete(q.levels, id)
		} else {
			// Slot still occupied on the exchange; placing its successor
			// now would double the level.
			blocked[slotKey(l.Side, l.Level)] = true
		}
	}

	for i, d := range desired {
		if !matched[i] && !blocked[slotKey(d.Side, d.Level)] {
			q.placeLevel(ctx, d)
		}
	}
}

// placeLevel places one ladder slot with the in-flight guard held.
func (q *Quoter) placeLevel(ctx context.Context, d LevelSpec) {
	clientID := fmt.Sprintf("hh-%s%d-%d", d.Side[:1], d.Level, quant.NextSeq(&q.idSeq))
	l := &domain.QuoteLevel{
		Level:         d.Level,
		Side:          d.Side,
		Price:         d.Price,
		Qty:           d.Qty,
		ClientOrderID: clientID,
		InFlight:      true,
		CreatedUnixMs: q.clock.Now().UnixMilli(),
	}
	q.levels[clientID] = l

	placed, err := q.client.PlaceOrder(ctx, q.inst.Symbol, d.Side, domain.TypeLimit, d.Qty, d.Price, clientID)
	if err != nil {
		delete(q.levels, clientID)
		q.fail("place_level", err)
		return
	}
	l.OrderID = placed.ID
	l.Active = true
	l.InFlight = false
	if placed.CreatedUnixMs > 0 {
		l.CreatedUnixMs = placed.CreatedUnixMs
	}
	q.publish(event.OrderPlacedEvent{BaseEvent: q.base(), Order: placed})
}

// cancelLevel cancels one slot. Requote-path cancels go through the shared
// rate limiter; shutdown sets force, because after Stop there is no next
// pass to retry a budget-dropped cancel. A false return leaves the slot
// tracked.
func (q *Quoter) cancelLevel(ctx context.Context, l *domain.QuoteLevel, reason string, force bool) bool {
	o := domain.Order{
		ID:            l.OrderID,
		ClientOrderID: l.ClientOrderID,
		Symbol:        q.inst.Symbol,
		Side:          l.Side,
		Status:        domain.StatusNew,
	}
	var ok bool
	if force {
		ok = q.manager.CancelUnbudgeted(ctx, o, reason)
	} else {
		ok = q.manager.Cancel(ctx, o, reason)
	}
	if ok {
		q.publish(event.OrderCanceledEvent{
			BaseEvent:     q.base(),
			Symbol:        q.inst.Symbol,
			OrderID:       l.OrderID,
			ClientOrderID: l.ClientOrderID,
			Reason:        reason,
		})
	}
	return ok
}

// cancelTakeProfit pulls an exit order. Only shutdown does this, so it
// never competes for the requote cancel budget.
func (q *Quoter) cancelTakeProfit(ctx context.Context, tp *domain.TakeProfitOrder, reason string) bool {
	ok := q.manager.CancelUnbudgeted(ctx, domain.Order{
		ID:            tp.ID,
		ClientOrderID: tp.ClientOrderID,
		Symbol:        q.inst.Symbol,
		Side:          tp.Side,
		Status:        domain.StatusNew,
	}, reason)
	if ok {
		q.publish(event.OrderCanceledEvent{
			BaseEvent:     q.base(),
			Symbol:        q.inst.Symbol,
			OrderID:       tp.ID,
			ClientOrderID: tp.ClientOrderID,
			Reason:        reason,
		})
	}
	return ok
}

// createTakeProfit places the exit for a ladder fill on the opposite side
// at fillPrice shifted by tpBps.
func (q *Quoter) createTakeProfit(ctx context.Context, f domain.Fill, tpBps float64) {
	side := domain.Opposite(f.Side)
	price := q.inst.RoundPrice(quant.ApplyBps(f.Price, tpBps, side == domain.SideSell))
	qty := q.inst.RoundQty(f.Qty)

	if err := q.inst.ValidateOrder(price, qty); err != nil {
		q.fail("take_profit_validate", err)
		return
	}

	clientID := fmt.Sprintf("tp-%s-%d", side[:1], quant.NextSeq(&q.idSeq))
	tp := &domain.TakeProfitOrder{
		ClientOrderID: clientID,
		FillID:        f.TradeID,
		Side:          side,
		Price:         price,
		Qty:           qty,
		EntryPrice:    f.Price,
		InFlight:      true,
	}
	q.tps[clientID] = tp

	placed, err := q.client.PlaceOrder(ctx, q.inst.Symbol, side, domain.TypeLimit, qty, price, clientID)
	if err != nil {
		delete(q.tps, clientID)
		q.fail("take_profit_place", err)
		return
	}
	tp.ID = placed.ID
	tp.Active = true
	tp.InFlight = false
	q.publish(event.TakeProfitCreatedEvent{BaseEvent: q.base(), TakeProfit: *tp})
	slog.Info("take-profit placed",
		slog.String("side", side),
		slog.Float64("entry", f.Price),
		slog.Float64("price", price))
}

// replenish re-arms a filled slot one step deeper on the same side so the
// ladder keeps its level count between full recomputes.
func (q *Quoter) replenish(ctx context.Context, f domain.Fill, level int) {
	if q.lastStep <= 0 {
		return
	}
	var price float64
	if f.Side == domain.SideBuy {
		price = f.Price - q.lastStep
	} else {
		price = f.Price + q.lastStep
	}
	price = q.inst.RoundPrice(price)
	qty := q.inst.RoundQty(f.Qty)

	if err := q.inst.ValidateOrder(price, qty); err != nil {
		q.fail("replenish_validate", err)
		return
	}
	if f.Side == domain.SideSell && !q.inv.CanSell(qty) {
		return
	}
	q.placeLevel(ctx, LevelSpec{Level: level, Side: f.Side, Price: price, Qty: qty})
}

func (q *Quoter) fail(op string, err error) {
	q.publish(event.ErrorEvent{BaseEvent: q.base(), Op: op, Err: err.Error()})
	slog.Warn("strategy operation failed",
		slog.String("op", op),
		slog.Any("error", err))
}

func (q *Quoter) base() event.BaseEvent {
	return event.BaseEvent{Seq: quant.NextSeq(q.seq), Ts: q.clock.Now().UnixMilli()}
}

func (q *Quoter) publish(ev event.Event) {
	if q.bus != nil {
		q.bus.Publish(ev)
	}
}

func slotKey(side string, level int) string {
	return fmt.Sprintf("%s-%d", side, level)
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
