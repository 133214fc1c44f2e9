// Package regime classifies short-term market conditions from streaming
// indicator state and exposes regime-tuned strategy parameters.
package regime

import (
	"fmt"
	"log/slog"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/indicator"
	"github.com/mixmaster1989/mexcscalp-sub000/pkg/safe"
)

// Thresholds are the classification boundaries. Percent values are
// ATR/avgPrice*100.
type Thresholds struct {
	ZMax          float64 // shock when |z| exceeds this
	ATR1mShockPct float64
	ATR5mShockPct float64
	ATR1mQuietPct float64
	ATR5mQuietPct float64
	ZQuiet        float64
	OBIBand       float64 // |OBI-0.5| must stay inside for quiet
	TFIBand       float64
}

// DefaultThresholds returns the production classification boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ZMax:          3.0,
		ATR1mShockPct: 0.5,
		ATR5mShockPct: 1.0,
		ATR1mQuietPct: 0.1,
		ATR5mQuietPct: 0.2,
		ZQuiet:        1.0,
		OBIBand:       0.1,
		TFIBand:       0.1,
	}
}

// Config controls the detector's indicator windows.
type Config struct {
	ATRPeriod    int
	ZScorePeriod int
	VWAPWindowMs int64
	TFIWindowMs  int64
	OBILevels    int
	MinCandles   int // warmup: candles needed before classifying
	Thresholds   Thresholds
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		ATRPeriod:    14,
		ZScorePeriod: 20,
		VWAPWindowMs: 60_000,
		TFIWindowMs:  30_000,
		OBILevels:    5,
		MinCandles:   10,
		Thresholds:   DefaultThresholds(),
	}
}

// Validate rejects impossible configurations at startup.
func (c Config) Validate() error {
	if c.ATRPeriod <= 0 {
		return fmt.Errorf("atr period must be positive, got %d", c.ATRPeriod)
	}
	if c.ZScorePeriod < 2 {
		return fmt.Errorf("zscore period must be at least 2, got %d", c.ZScorePeriod)
	}
	if c.VWAPWindowMs <= 0 {
		return fmt.Errorf("vwap window must be positive, got %d", c.VWAPWindowMs)
	}
	if c.TFIWindowMs <= 0 {
		return fmt.Errorf("tfi window must be positive, got %d", c.TFIWindowMs)
	}
	if c.OBILevels <= 0 {
		return fmt.Errorf("obi levels must be positive, got %d", c.OBILevels)
	}
	if c.MinCandles <= 0 {
		return fmt.Errorf("min candles must be positive, got %d", c.MinCandles)
	}
	return nil
}

const fiveMinMs = 5 * 60 * 1000

// Detector consumes candle/trade/book updates and keeps the live
// classification. Not goroutine-safe: it lives on the single-owner event
// path like every other mutable engine component.
type Detector struct {
	cfg Config

	atr1m  *indicator.ATR
	atr5m  *indicator.ATR
	vwap   *indicator.VWAP
	zscore *indicator.ZScore
	obi    *indicator.OBI
	tfi    *indicator.TFI

	// 5m aggregation of incoming 1m candles
	aggBucket int64
	agg       domain.Candle
	aggOpen   bool

	candleCount int
	lastClose   float64

	atr1mData indicator.ATRData
	atr1mOK   bool
	atr5mData indicator.ATRData
	atr5mOK   bool
	vwapData  indicator.VWAPData
	obiValue  float64
	tfiValue  float64

	current          domain.RegimeData
	lastChangeUnixMs int64

	onChange []func(prev, curr domain.RegimeData)
	onUpdate []func(curr domain.RegimeData)
}

// NewDetector creates a detector in the normal regime.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("regime detector config: %w", err)
	}
	return &Detector{
		cfg:      cfg,
		atr1m:    indicator.NewATR(cfg.ATRPeriod),
		atr5m:    indicator.NewATR(cfg.ATRPeriod),
		vwap:     indicator.NewVWAP(cfg.VWAPWindowMs),
		zscore:   indicator.NewZScore(cfg.ZScorePeriod),
		obi:      indicator.NewOBI(cfg.OBILevels),
		tfi:      indicator.NewTFI(cfg.TFIWindowMs),
		obiValue: 0.5,
		tfiValue: 0.5,
		current:  domain.RegimeData{Regime: domain.RegimeNormal, Confidence: 0.7},
	}, nil
}

// SubscribeChange registers a callback fired on every regime transition.
// Subscribe before the first update; callbacks run on the event path.
func (d *Detector) SubscribeChange(fn func(prev, curr domain.RegimeData)) {
	d.onChange = append(d.onChange, fn)
}

// SubscribeUpdate registers a callback fired on every reclassification.
func (d *Detector) SubscribeUpdate(fn func(curr domain.RegimeData)) {
	d.onUpdate = append(d.onUpdate, fn)
}

// OnCandle ingests a 1m candle, advances both ATR horizons and the price
// buffer, and reclassifies.
func (d *Detector) OnCandle(c domain.Candle) {
	d.candleCount++
	d.lastClose = c.Close
	d.zscore.Push(c.Close)

	if data, ok := d.atr1m.Update(c); ok {
		d.atr1mData = data
		d.atr1mOK = true
	}
	d.aggregate5m(c)
	d.classify(c.TsUnixMs)
}

// OnTrade ingests a public trade, advances VWAP and TFI, and reclassifies.
func (d *Detector) OnTrade(t domain.Trade) {
	d.vwapData = d.vwap.Update(t)
	d.tfiValue = d.tfi.Update(t).Value
	d.classify(t.TsUnixMs)
}

// OnBook ingests a book snapshot. Book updates refresh OBI but do not
// trigger reclassification on their own; the next candle/trade picks the
// new value up.
func (d *Detector) OnBook(b domain.Orderbook) {
	d.obiValue = d.obi.Update(b).Value
}

// Current returns the live classification snapshot.
func (d *Detector) Current() domain.RegimeData {
	return d.current
}

// StableForMs returns how long the current regime has been in effect.
func (d *Detector) StableForMs(nowMs int64) int64 {
	if d.lastChangeUnixMs == 0 {
		return 0
	}
	return nowMs - d.lastChangeUnixMs
}

// aggregate5m folds 1m candles into 5-minute buckets for the slow ATR.
func (d *Detector) aggregate5m(c domain.Candle) {
	bucket := c.TsUnixMs / fiveMinMs
	if !d.aggOpen {
		d.agg = c
		d.aggBucket = bucket
		d.aggOpen = true
		return
	}
	if bucket != d.aggBucket {
		if data, ok := d.atr5m.Update(d.agg); ok {
			d.atr5mData = data
			d.atr5mOK = true
		}
		d.agg = c
		d.aggBucket = bucket
		return
	}
	if c.High > d.agg.High {
		d.agg.High = c.High
	}
	if c.Low < d.agg.Low {
		d.agg.Low = c.Low
	}
	d.agg.Close = c.Close
	d.agg.Volume += c.Volume
	d.agg.TsUnixMs = c.TsUnixMs
}

func (d *Detector) classify(tsMs int64) {
	// Data insufficiency is not an error: skip until warmed up.
	if d.candleCount < d.cfg.MinCandles || d.zscore.Len() < d.cfg.MinCandles {
		return
	}

	snap := d.snapshot()
	regime, confidence := d.evaluate(snap)

	prev := d.current
	d.current = domain.RegimeData{
		Regime:     regime,
		Confidence: confidence,
		Snapshot:   snap,
		TsUnixMs:   tsMs,
	}

	for _, fn := range d.onUpdate {
		fn(d.current)
	}

	if prev.Regime != regime {
		d.lastChangeUnixMs = tsMs
		slog.Info("regime changed",
			slog.String("prev", string(prev.Regime)),
			slog.String("curr", string(regime)),
			slog.Float64("confidence", confidence),
			slog.Float64("zscore", snap.ZScore),
			slog.Float64("atr1m_pct", snap.ATRPct1m))
		for _, fn := range d.onChange {
			fn(prev, d.current)
		}
	}
}

func (d *Detector) snapshot() domain.IndicatorSnapshot {
	avg := d.zscore.Mean()
	snap := domain.IndicatorSnapshot{
		VWAP:     d.vwapData.Value,
		ZScore:   d.zscore.Score(d.lastClose),
		OBI:      d.obiValue,
		TFI:      d.tfiValue,
		AvgPrice: avg,
	}
	if d.atr1mOK {
		snap.ATR1m = d.atr1mData.Value
		snap.ATRPct1m = safe.Ratio(snap.ATR1m, avg, 0) * 100
	}
	if d.atr5mOK {
		snap.ATR5m = d.atr5mData.Value
		snap.ATRPct5m = safe.Ratio(snap.ATR5m, avg, 0) * 100
	}
	return snap
}

func (d *Detector) evaluate(s domain.IndicatorSnapshot) (domain.Regime, float64) {
	th := d.cfg.Thresholds
	absZ := s.ZScore
	if absZ < 0 {
		absZ = -absZ
	}

	if absZ > th.ZMax || s.ATRPct1m > th.ATR1mShockPct || s.ATRPct5m > th.ATR5mShockPct {
		// Confidence grows with how far the worst offender exceeds its threshold.
		excess := 0.0
		if r := absZ/th.ZMax - 1; r > excess {
			excess = r
		}
		if r := s.ATRPct1m/th.ATR1mShockPct - 1; r > excess {
			excess = r
		}
		if r := s.ATRPct5m/th.ATR5mShockPct - 1; r > excess {
			excess = r
		}
		return domain.RegimeShock, 0.5 + 0.45*safe.Clamp(excess, 0, 1)
	}

	obiDev := safe.Clamp(s.OBI-0.5, -1, 1)
	if obiDev < 0 {
		obiDev = -obiDev
	}
	tfiDev := s.TFI - 0.5
	if tfiDev < 0 {
		tfiDev = -tfiDev
	}
	if s.ATRPct1m < th.ATR1mQuietPct && s.ATRPct5m < th.ATR5mQuietPct &&
		absZ < th.ZQuiet && obiDev < th.OBIBand && tfiDev < th.TFIBand {
		// Confidence grows with how deep below the quiet ceilings we sit.
		worst := 0.0
		for _, r := range []float64{
			s.ATRPct1m / th.ATR1mQuietPct,
			s.ATRPct5m / th.ATR5mQuietPct,
			absZ / th.ZQuiet,
			obiDev / th.OBIBand,
			tfiDev / th.TFIBand,
		} {
			if r > worst {
				worst = r
			}
		}
		return domain.RegimeQuiet, 0.5 + 0.45*safe.Clamp(1-worst, 0, 1)
	}

	return domain.RegimeNormal, 0.7
}
