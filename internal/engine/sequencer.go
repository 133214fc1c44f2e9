// Package engine runs the single-threaded decision loop. Every state
// mutation for the instrument (indicators, regime, ladder, inventory)
// happens on the sequencer goroutine; feed workers only send events into
// the inbox.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/event"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/regime"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/storage"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/strategy"
)

// gapTolerance is the largest inbound sequence gap fast-forwarded instead
// of halting.
const gapTolerance = 10

// Sequencer is the core single-threaded event processor: validate sequence,
// persist WAL-first, then dispatch to detector and quoter.
type Sequencer struct {
	inbox    chan event.Event
	nextSeq  uint64
	store    *storage.EventStore
	detector *regime.Detector
	quoter   *strategy.Quoter
}

// NewSequencer creates a sequencer. store may be nil (no persistence,
// used by the paper feed probe).
func NewSequencer(inboxSize int, store *storage.EventStore, detector *regime.Detector, quoter *strategy.Quoter) *Sequencer {
	return &Sequencer{
		inbox:    make(chan event.Event, inboxSize),
		nextSeq:  1,
		store:    store,
		detector: detector,
		quoter:   quoter,
	}
}

// Inbox returns the event channel. Feed workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// RecoverFromWAL warms the indicator pipeline by replaying the persisted
// market events through the same handlers the live path uses. Order
// operations are not re-executed during replay; the exchange is the source
// of truth for order state. It returns the highest journaled sequence so
// the caller can seed its event producers past it; a producer restarting
// at zero would have every live event rejected as a duplicate.
func (s *Sequencer) RecoverFromWAL(ctx context.Context) (uint64, error) {
	if s.store == nil {
		slog.Info("no store configured, starting fresh")
		return 0, nil
	}

	lastSeq, err := s.store.GetLastSeq(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if lastSeq == 0 {
		slog.Info("journal is empty, starting fresh")
		return 0, nil
	}

	events, err := s.store.LoadEvents(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to load events: %w", err)
	}

	slog.Info("replaying journal", slog.Int("count", len(events)))
	for _, ev := range events {
		s.replayEvent(ev)
	}
	s.nextSeq = lastSeq + 1

	slog.Info("state recovered from journal", slog.Uint64("next_seq", s.nextSeq))
	return lastSeq, nil
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("sequencer started")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("sequencer panic", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("halted: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sequencer stopping")
			return
		case ev := <-s.inbox:
			s.processEvent(ctx, ev)
		}
	}
}

// validateSequence checks for inbound gaps. Duplicates are dropped, small
// gaps tolerated with a fast-forward, large gaps halt the engine.
func (s *Sequencer) validateSequence(evSeq uint64) bool {
	expected := s.nextSeq
	if evSeq == expected {
		return true
	}

	diff := int64(evSeq) - int64(expected)
	if diff < 0 {
		slog.Warn("duplicate event ignored",
			slog.Uint64("expected", expected),
			slog.Uint64("got", evSeq))
		return false
	}
	if diff <= gapTolerance {
		slog.Warn("sequence gap tolerated",
			slog.Uint64("expected", expected),
			slog.Uint64("got", evSeq),
			slog.Int64("gap", diff))
		s.nextSeq = evSeq
		return true
	}
	panic(fmt.Sprintf("sequence gap fatal: expected %d, got %d", expected, evSeq))
}

func (s *Sequencer) processEvent(ctx context.Context, ev event.Event) {
	if !s.validateSequence(ev.GetSeq()) {
		return
	}

	// WAL-first: the event is durable before any decision derives from it.
	if s.store != nil {
		if err := s.store.SaveEvent(ctx, ev); err != nil {
			panic(fmt.Sprintf("persistence failure: %v", err))
		}
	}

	s.dispatch(ctx, ev)
	s.nextSeq++
}

// replayEvent re-runs the indicator side of an event without persistence
// and without touching the exchange.
func (s *Sequencer) replayEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.TradeEvent:
		s.detector.OnTrade(e.Trade)
	case *event.CandleEvent:
		s.detector.OnCandle(e.Candle)
	case *event.BookEvent:
		s.detector.OnBook(e.Book)
	case *event.BookTickerEvent, *event.OrderUpdateEvent, *event.FillEvent:
		// Quoting and fills are not replayed.
	default:
		slog.Warn("unknown event type in replay", slog.String("type", ev.GetType().String()))
	}
}

func (s *Sequencer) dispatch(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case *event.TradeEvent:
		s.detector.OnTrade(e.Trade)
	case *event.CandleEvent:
		s.detector.OnCandle(e.Candle)
	case *event.BookEvent:
		s.detector.OnBook(e.Book)
	case *event.BookTickerEvent:
		// The quoting pass runs to completion, outbound calls included,
		// before the next inbox event is touched.
		s.quoter.OnMarketUpdate(ctx, e.Ticker)
	case *event.OrderUpdateEvent:
		if e.Fill != nil {
			s.quoter.OnFill(ctx, *e.Fill)
		}
	default:
		slog.Warn("unknown event type", slog.String("type", ev.GetType().String()))
	}
}

// DumpState writes the engine state to a file for post-mortem analysis.
func (s *Sequencer) DumpState(filename string) {
	slog.Info("dumping engine state", slog.String("file", filename))

	data := struct {
		NextSeq     uint64                   `json:"next_seq"`
		Regime      domain.RegimeData        `json:"regime"`
		Inventory   domain.Inventory         `json:"inventory"`
		Levels      []domain.QuoteLevel      `json:"levels"`
		TakeProfits []domain.TakeProfitOrder `json:"take_profits"`
	}{
		NextSeq:     s.nextSeq,
		Regime:      s.detector.Current(),
		Inventory:   s.quoter.Inventory(),
		Levels:      s.quoter.Levels(),
		TakeProfits: s.quoter.TakeProfits(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("failed to marshal state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("failed to write state dump", slog.Any("error", err))
	}
}
