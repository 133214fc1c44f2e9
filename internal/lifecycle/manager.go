package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
	"github.com/mixmaster1989/mexcscalp-sub000/pkg/quant"
)

// OrderClient is the slice of the exchange client the manager needs.
type OrderClient interface {
	PlaceOrder(ctx context.Context, symbol, side, orderType string, qty, price float64, clientOrderID string) (domain.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID, clientOrderID string) error
}

// Config holds the timing and rate constraints. All fields are required.
type Config struct {
	TTLSec               int     `yaml:"ttl_sec"`
	RefreshSec           int     `yaml:"refresh_sec"` // min rest time before a drift reprice
	DeltaTicksForReplace int     `yaml:"delta_ticks_for_replace"`
	RecenteringTrigger   float64 `yaml:"recentering_trigger"` // in steps of mid drift
	NoFillWatchdogMin    int     `yaml:"no_fill_watchdog_min"`
	MinSpreadTicks       int     `yaml:"min_spread_ticks"`
	StalenessMs          int64   `yaml:"staleness_ms"`
	CancelRatePerMin     int     `yaml:"cancel_rate_per_min"`
}

// Validate rejects impossible configurations at startup.
func (c Config) Validate() error {
	if c.TTLSec <= 0 {
		return fmt.Errorf("ttl_sec must be positive, got %d", c.TTLSec)
	}
	if c.RefreshSec <= 0 {
		return fmt.Errorf("refresh_sec must be positive, got %d", c.RefreshSec)
	}
	if c.DeltaTicksForReplace <= 0 {
		return fmt.Errorf("delta_ticks_for_replace must be positive, got %d", c.DeltaTicksForReplace)
	}
	if c.RecenteringTrigger <= 0 {
		return fmt.Errorf("recentering_trigger must be positive, got %v", c.RecenteringTrigger)
	}
	if c.NoFillWatchdogMin <= 0 {
		return fmt.Errorf("no_fill_watchdog_min must be positive, got %d", c.NoFillWatchdogMin)
	}
	if c.MinSpreadTicks <= 0 {
		return fmt.Errorf("min_spread_ticks must be positive, got %d", c.MinSpreadTicks)
	}
	if c.StalenessMs <= 0 {
		return fmt.Errorf("staleness_ms must be positive, got %d", c.StalenessMs)
	}
	if c.CancelRatePerMin <= 0 {
		return fmt.Errorf("cancel_rate_per_min must be positive, got %d", c.CancelRatePerMin)
	}
	return nil
}

// Replacement pairs a canceled order with the order placed in its stead,
// so the strategy can re-key its ladder slots.
type Replacement struct {
	Old domain.Order
	New domain.Order
}

// PassStats summarizes one ManageOrders pass.
type PassStats struct {
	Aborted      string // non-empty = pass aborted before any changes
	Canceled     int
	Replaced     int
	DroppedByLim int
	Recentered   bool
	Replacements []Replacement
}

// Manager reconciles the desired set of resting orders against the actual
// ones for a single instrument. Errors from individual exchange calls never
// escape a pass: a failed cancel leaves the order tracked for the next
// sweep, a failed placement leaves the slot empty.
type Manager struct {
	cfg     Config
	inst    *domain.Instrument
	client  OrderClient
	limiter *CancelLimiter
	clock   infra.Clock

	lastCenter     float64
	recenterAnchor float64
	anchorSet      bool
	onRecenter     func(mid float64)

	offsetScale float64
	lastFill    time.Time
	lastDecay   time.Time

	seq uint64
}

// NewManager validates cfg and builds a manager.
func NewManager(cfg Config, inst *domain.Instrument, client OrderClient, clock infra.Clock) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lifecycle config: %w", err)
	}
	now := clock.Now()
	return &Manager{
		cfg:         cfg,
		inst:        inst,
		client:      client,
		limiter:     NewCancelLimiter(cfg.CancelRatePerMin, clock),
		clock:       clock,
		offsetScale: 1.0,
		lastFill:    now,
		lastDecay:   now,
	}, nil
}

// SetRecenterHook registers the strategy callback fired when the mid-price
// drifts past the recentering trigger. Levels are regenerated by the
// strategy, not here.
func (m *Manager) SetRecenterHook(fn func(mid float64)) {
	m.onRecenter = fn
}

// OffsetScale returns the watchdog-decayed offset multiplier (1.0 when
// fills are flowing).
func (m *Manager) OffsetScale() float64 {
	return m.offsetScale
}

// RegisterFill resets the no-fill watchdog and restores the full offset.
func (m *Manager) RegisterFill() {
	m.lastFill = m.clock.Now()
	m.lastDecay = m.lastFill
	m.offsetScale = 1.0
}

// Limiter exposes the shared cancel budget; the strategy routes its own
// cancels through it too.
func (m *Manager) Limiter() *CancelLimiter {
	return m.limiter
}

// Cancel cancels an order through the rate limiter. Returns false when the
// budget is exhausted (request dropped, not queued) or the exchange call
// failed (order stays tracked and is retried next pass).
func (m *Manager) Cancel(ctx context.Context, o domain.Order, reason string) bool {
	if !m.limiter.TryAcquire() {
		slog.Warn("cancel dropped by rate limiter",
			slog.String("order_id", o.ID),
			slog.String("reason", reason))
		return false
	}
	return m.doCancel(ctx, o)
}

// CancelUnbudgeted cancels an order outside the rate budget. Shutdown uses
// it: an order the budget refuses to cancel outlives the process.
func (m *Manager) CancelUnbudgeted(ctx context.Context, o domain.Order, reason string) bool {
	slog.Debug("unbudgeted cancel",
		slog.String("order_id", o.ID),
		slog.String("reason", reason))
	return m.doCancel(ctx, o)
}

func (m *Manager) doCancel(ctx context.Context, o domain.Order) bool {
	if err := m.client.CancelOrder(ctx, o.Symbol, o.ID, o.ClientOrderID); err != nil {
		slog.Warn("cancel failed, order stays tracked",
			slog.String("order_id", o.ID),
			slog.Any("error", err))
		return false
	}
	return true
}

// ManageOrders runs one reconciliation pass over the resting orders.
// offset and step are the strategy's current quoting distances (pre-scale).
func (m *Manager) ManageOrders(ctx context.Context, orders []domain.Order, mid, bestBid, bestAsk, offset, step float64, bookTsMs int64) PassStats {
	var stats PassStats
	now := m.clock.Now()

	// Filter gate: a collapsed spread or stale book aborts the whole pass.
	spread := bestAsk - bestBid
	if spread < float64(m.cfg.MinSpreadTicks)*m.inst.TickSize {
		stats.Aborted = "spread"
		return stats
	}
	if now.UnixMilli()-bookTsMs > m.cfg.StalenessMs {
		stats.Aborted = "stale"
		return stats
	}

	m.lastCenter = mid

	ttl := time.Duration(m.cfg.TTLSec) * time.Second
	refresh := time.Duration(m.cfg.RefreshSec) * time.Second
	maxDrift := float64(m.cfg.DeltaTicksForReplace) * m.inst.TickSize

	for _, o := range orders {
		if !o.IsOpen() {
			continue
		}
		age := now.Sub(time.UnixMilli(o.CreatedUnixMs))
		var drift float64
		if o.Side == domain.SideBuy {
			drift = math.Abs(bestBid - o.Price)
		} else {
			drift = math.Abs(o.Price - bestAsk)
		}
		// TTL expiry always reprices; drift repricing waits out RefreshSec
		// so a just-placed quote is not churned on the first tick away.
		expired := age > ttl
		drifted := drift > maxDrift && age > refresh
		if !expired && !drifted {
			continue
		}

		if !m.limiter.TryAcquire() {
			stats.DroppedByLim++
			slog.Warn("reprice cancel dropped by rate limiter",
				slog.String("order_id", o.ID))
			continue
		}
		if err := m.client.CancelOrder(ctx, o.Symbol, o.ID, o.ClientOrderID); err != nil {
			slog.Warn("reprice cancel failed, order stays tracked",
				slog.String("order_id", o.ID),
				slog.Any("error", err))
			continue
		}
		stats.Canceled++

		replaced, ok := m.replace(ctx, o, bestBid, bestAsk, offset)
		if ok {
			stats.Replaced++
			stats.Replacements = append(stats.Replacements, Replacement{Old: o, New: replaced})
		}
	}

	m.checkRecenter(mid, step, &stats)
	m.runWatchdog(now)

	return stats
}

// replace places the freshly priced successor of a canceled order.
func (m *Manager) replace(ctx context.Context, old domain.Order, bestBid, bestAsk, offset float64) (domain.Order, bool) {
	var price float64
	if old.Side == domain.SideBuy {
		price = math.Max(bestBid-m.inst.TickSize, bestBid-offset)
	} else {
		price = math.Min(bestAsk+m.inst.TickSize, bestAsk+offset)
	}
	price = m.inst.RoundPrice(price)
	qty := old.RemainingQty()

	if err := m.inst.ValidateOrder(price, qty); err != nil {
		slog.Warn("replacement rejected by instrument rules",
			slog.String("order_id", old.ID),
			slog.Any("error", err))
		return domain.Order{}, false
	}

	clientID := fmt.Sprintf("rp-%s-%d", old.Side[:1], quant.NextSeq(&m.seq))
	placed, err := m.client.PlaceOrder(ctx, old.Symbol, old.Side, domain.TypeLimit, qty, price, clientID)
	if err != nil {
		slog.Warn("replacement placement failed, slot stays empty until next pass",
			slog.String("order_id", old.ID),
			slog.Any("error", err))
		return domain.Order{}, false
	}
	return placed, true
}

// checkRecenter compares the current mid to the last recenter anchor and
// fires the strategy hook when drift exceeds the trigger.
func (m *Manager) checkRecenter(mid, step float64, stats *PassStats) {
	if !m.anchorSet {
		m.recenterAnchor = mid
		m.anchorSet = true
		return
	}
	if step <= 0 {
		return
	}
	if math.Abs(mid-m.recenterAnchor) > m.cfg.RecenteringTrigger*step {
		slog.Info("recentering triggered",
			slog.Float64("mid", mid),
			slog.Float64("anchor", m.recenterAnchor))
		m.recenterAnchor = mid
		stats.Recentered = true
		if m.onRecenter != nil {
			m.onRecenter(mid)
		}
	}
}

// runWatchdog shrinks the quoting offset by 15% per watchdog window without
// fills, chasing the market until the next fill resets the scale.
func (m *Manager) runWatchdog(now time.Time) {
	window := time.Duration(m.cfg.NoFillWatchdogMin) * time.Minute
	if now.Sub(m.lastFill) > window && now.Sub(m.lastDecay) > window {
		m.offsetScale *= 0.85
		m.lastDecay = now
		slog.Info("no-fill watchdog shrinking offset",
			slog.Float64("offset_scale", m.offsetScale))
	}
}
