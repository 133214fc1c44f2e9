// Package app wires the configuration, storage, exchange, detector, and
// quoting engine into a runnable process.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/engine"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/event"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/exchange"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/exchange/mexc"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/lifecycle"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/regime"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/storage"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/strategy"
	"github.com/mixmaster1989/mexcscalp-sub000/pkg/quant"
)

// fillPollInterval is how often live mode polls the trade history for
// executions. MEXC's private stream needs a listen-key handshake and a
// protobuf decoder; polling myTrades covers a single-pair scalper.
const fillPollInterval = 2 * time.Second

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	Store      *storage.EventStore
	Bus        *event.Bus
	Client     exchange.Client
	Paper      *exchange.Paper
	Instrument *domain.Instrument
	Detector   *regime.Detector
	Manager    *lifecycle.Manager
	Quoter     *strategy.Quoter
	Sequencer  *engine.Sequencer
	Worker     *infra.BaseWSWorker

	clock infra.Clock
	// seq numbers inbound events (feed, fill injection), outSeq numbers
	// outbound bus notifications. Separate spaces keep the inbound WAL
	// contiguous no matter how many notifications a quoting pass emits.
	seq    uint64
	outSeq uint64
	inbox  chan<- event.Event // the sequencer's inbox
	feedCh chan event.Event   // paper mode: feed -> tee -> sequencer
	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{clock: infra.SystemClock{}}
}

// Initialize performs core system initialization: config, logging,
// storage, exchange connectivity, and the engine graph.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	infra.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("bootstrapping",
		slog.String("app", cfg.App.Name),
		slog.String("mode", cfg.Trading.Mode),
		slog.String("symbol", cfg.Trading.Symbol))

	// Data isolation per mode: _workspace/data/{mode}/events.db.
	mode := strings.ToLower(cfg.Trading.Mode)
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// One process per workspace; two quoters on one account fight over
	// the same orders.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "events.db")
	}
	store, err := storage.NewEventStore(dbPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("event store ready", slog.String("path", dbPath))

	if err := b.initExchange(ctx); err != nil {
		return err
	}
	return b.initEngine()
}

// initExchange builds the REST client, fetches trading rules, and selects
// the live or paper venue.
func (b *Bootstrap) initExchange(ctx context.Context) error {
	cfg := b.Config
	rest := mexc.NewClient(cfg.API.MEXC.APIKey, cfg.API.MEXC.SecretKey, cfg.API.MEXC.RestURL)

	// exchangeInfo is public; both modes take the trading rules from the
	// real venue.
	insts, err := rest.GetExchangeInfo(ctx, cfg.Trading.Symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch trading rules for %s: %w", cfg.Trading.Symbol, err)
	}
	if len(insts) == 0 {
		return fmt.Errorf("symbol %s not found on exchange", cfg.Trading.Symbol)
	}
	inst := insts[0]
	b.Instrument = &inst
	slog.Info("instrument loaded",
		slog.String("symbol", inst.Symbol),
		slog.Float64("tick_size", inst.TickSize),
		slog.Float64("step_size", inst.StepSize),
		slog.Float64("min_notional", inst.MinNotional))

	if cfg.Trading.Mode == "live" {
		breaker := infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("mexc-rest"))
		b.Client = exchange.NewGuarded(rest, breaker)
		return nil
	}

	paper := exchange.NewPaper(inst, cfg.Trading.Deposit, b.clock)
	b.Paper = paper
	b.Client = paper
	return nil
}

// initEngine wires detector, lifecycle manager, quoter, and sequencer.
func (b *Bootstrap) initEngine() error {
	cfg := b.Config
	b.Bus = event.NewBus()

	d := cfg.Engine.Detector
	detector, err := regime.NewDetector(regime.Config{
		ATRPeriod:    d.ATRPeriod,
		ZScorePeriod: d.ZScorePeriod,
		VWAPWindowMs: d.VWAPWindowMs,
		TFIWindowMs:  d.TFIWindowMs,
		OBILevels:    d.OBILevels,
		MinCandles:   d.MinCandles,
		Thresholds:   regime.DefaultThresholds(),
	})
	if err != nil {
		return err
	}
	b.Detector = detector

	l := cfg.Engine.Lifecycle
	manager, err := lifecycle.NewManager(lifecycle.Config{
		TTLSec:               l.TTLSec,
		RefreshSec:           l.RefreshSec,
		DeltaTicksForReplace: l.DeltaTicksForReplace,
		RecenteringTrigger:   l.RecenteringTrigger,
		NoFillWatchdogMin:    l.NoFillWatchdogMin,
		MinSpreadTicks:       l.MinSpreadTicks,
		StalenessMs:          l.StalenessMs,
		CancelRatePerMin:     l.CancelRatePerMin,
	}, b.Instrument, b.Client, b.clock)
	if err != nil {
		return err
	}
	b.Manager = manager

	s := cfg.Engine.Strategy
	quoter, err := strategy.NewQuoter(strategy.Config{
		Policy:          s.Policy,
		Deposit:         cfg.Trading.Deposit,
		OffsetCoeff:     s.OffsetCoeff,
		StepCoeff:       s.StepCoeff,
		Levels:          s.Levels,
		BaseSize:        s.BaseSize,
		SizeRatio:       s.SizeRatio,
		SkewAlpha:       s.SkewAlpha,
		MaxInventoryPct: s.MaxInventoryPct,
	}, b.Instrument, b.Client, manager, detector, b.Bus, b.clock, &b.outSeq)
	if err != nil {
		return err
	}
	b.Quoter = quoter

	b.Sequencer = engine.NewSequencer(cfg.Engine.InboxSize, b.Store, detector, quoter)
	b.inbox = b.Sequencer.Inbox()

	detector.SubscribeChange(func(prev, curr domain.RegimeData) {
		b.Bus.Publish(&event.RegimeChangeEvent{
			BaseEvent: event.BaseEvent{Seq: quant.NextSeq(&b.outSeq), Ts: b.clock.Now().UnixMilli()},
			Previous:  prev,
			Current:   curr,
		})
	})

	// The feed writes into the sequencer inbox directly in live mode. In
	// paper mode a tee sits in between so the simulated venue sees every
	// book ticker and can cross resting orders.
	feedTarget := b.Sequencer.Inbox()
	if b.Paper != nil {
		b.feedCh = make(chan event.Event, cfg.Engine.InboxSize)
		feedTarget = b.feedCh
	}

	feed := infra.NewMEXCFeed(cfg.API.MEXC.WSURL, cfg.Trading.Symbol, feedTarget, &b.seq)
	b.Worker = infra.NewBaseWSWorker(feed)
	return nil
}

// Run recovers state, starts the engine goroutines, and connects the feed.
// It returns once everything is started; cancel ctx to stop.
func (b *Bootstrap) Run(ctx context.Context) error {
	go b.Store.RunJournal(ctx, b.Bus.Subscribe(256))

	lastSeq, err := b.Sequencer.RecoverFromWAL(ctx)
	if err != nil {
		return fmt.Errorf("WAL recovery failed: %w", err)
	}
	// The producers resume the inbound space where the journal ends; a
	// counter restarting at zero would have every live event dropped as a
	// duplicate of the previous run.
	atomic.StoreUint64(&b.seq, lastSeq)

	if b.Config.Trading.Mode == "live" {
		if err := b.reconcileOpenOrders(ctx); err != nil {
			return fmt.Errorf("open order reconciliation failed: %w", err)
		}
		go b.pollFills(ctx)
	} else {
		b.Paper.OnFill(func(f domain.Fill) { b.injectFill(ctx, f) })
		go b.runPaperTee(ctx)
	}

	b.Quoter.Start()
	go b.Sequencer.Run(ctx)
	b.Worker.Start(ctx)

	slog.Info("engine running", slog.String("mode", b.Config.Trading.Mode))
	return nil
}

// Shutdown stops the feed and the quoter and releases resources. The
// quoter cancels every resting order before returning.
func (b *Bootstrap) Shutdown(ctx context.Context) {
	if b.Worker != nil {
		b.Worker.Stop()
	}
	if b.Quoter != nil {
		b.Quoter.Stop(ctx)
	}
	if b.Bus != nil {
		b.Bus.Close()
	}
	if b.Store != nil {
		b.Store.Close()
	}
	if b.unlock != nil {
		b.unlock()
	}
	slog.Info("shutdown complete")
}

// reconcileOpenOrders cancels orders left on the book by a previous run.
// Resting orders from a dead process quote stale prices against live flow.
func (b *Bootstrap) reconcileOpenOrders(ctx context.Context) error {
	orders, err := b.Client.GetOpenOrders(ctx, b.Config.Trading.Symbol)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if err := b.Client.CancelOrder(ctx, o.Symbol, o.ID, o.ClientOrderID); err != nil {
			slog.Warn("failed to cancel stray order",
				slog.String("order_id", o.ID), slog.Any("error", err))
			continue
		}
		slog.Info("canceled stray order",
			slog.String("order_id", o.ID),
			slog.String("side", o.Side),
			slog.Float64("price", o.Price))
	}
	return nil
}

// runPaperTee forwards feed events to the sequencer and mirrors book
// tickers into the simulated venue. Fills produced by a ticker enter the
// inbox right after the ticker itself. Forwards block on a full inbox;
// backpressure stalls the simulated market the same way it stalls the
// live read loop.
func (b *Bootstrap) runPaperTee(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.feedCh:
			select {
			case b.inbox <- ev:
			case <-ctx.Done():
				return
			}
			if t, ok := ev.(*event.BookTickerEvent); ok {
				b.Paper.SetBookTicker(t.Ticker)
			}
		}
	}
}

// pollFills watches the trade history for new executions in live mode and
// turns them into order update events.
func (b *Bootstrap) pollFills(ctx context.Context) {
	ticker := time.NewTicker(fillPollInterval)
	defer ticker.Stop()

	tracker := newFillTracker()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fills, err := b.Client.GetMyTrades(ctx, b.Config.Trading.Symbol, 50)
		if err != nil {
			slog.Warn("trade history poll failed", slog.Any("error", err))
			continue
		}
		for _, f := range tracker.Diff(fills) {
			b.injectFill(ctx, f)
		}
	}
}

// injectFill turns a confirmed execution into an inbound order update.
// The send blocks on a full inbox: a lost fill desyncs inventory for the
// rest of the session.
func (b *Bootstrap) injectFill(ctx context.Context, f domain.Fill) {
	ev := &event.OrderUpdateEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(&b.seq), Ts: f.TsUnixMs},
		Order: domain.Order{
			ID:            f.OrderID,
			ClientOrderID: f.ClientOrderID,
			Symbol:        f.Symbol,
			Side:          f.Side,
			Price:         f.Price,
			Qty:           f.Qty,
			FilledQty:     f.Qty,
			Status:        domain.StatusFilled,
		},
		Fill: &f,
	}
	select {
	case b.inbox <- ev:
	case <-ctx.Done():
	}
}

// fillTracker separates new executions from already-seen ones across trade
// history polls. The seen set is rebuilt from each fetch, so it stays
// bounded by the poll window; an id that left the newest-N window can
// never reappear in a later fetch.
type fillTracker struct {
	seen   map[string]bool
	primed bool
}

func newFillTracker() *fillTracker {
	return &fillTracker{seen: make(map[string]bool)}
}

// Diff returns the fills absent from the previous fetch, oldest first. The
// first call only primes the set so executions from before this run are
// not replayed into the engine.
func (t *fillTracker) Diff(fills []domain.Fill) []domain.Fill {
	current := make(map[string]bool, len(fills))
	var fresh []domain.Fill
	for _, f := range fills {
		current[f.TradeID] = true
		if t.primed && !t.seen[f.TradeID] {
			fresh = append(fresh, f)
		}
	}
	t.seen = current
	t.primed = true
	return fresh
}
