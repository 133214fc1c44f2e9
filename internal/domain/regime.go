package domain

// Regime is the coarse market-condition classification.
type Regime string

const (
	RegimeQuiet  Regime = "quiet"
	RegimeNormal Regime = "normal"
	RegimeShock  Regime = "shock"
)

// IndicatorSnapshot is the set of indicator values a classification was
// derived from.
type IndicatorSnapshot struct {
	ATR1m    float64
	ATR5m    float64
	ATRPct1m float64 // ATR1m / avgPrice * 100
	ATRPct5m float64
	VWAP     float64
	ZScore   float64
	OBI      float64
	TFI      float64
	AvgPrice float64
}

// RegimeData is the live classification for one instrument. Overwritten on
// every reclassification; regime changes additionally surface as events.
type RegimeData struct {
	Regime     Regime
	Confidence float64 // [0,1], informational only
	Snapshot   IndicatorSnapshot
	TsUnixMs   int64
}

// RegimeParams are the strategy knobs tuned per regime.
type RegimeParams struct {
	TakeProfitBps    float64
	OffsetMultiplier float64
	StepMultiplier   float64
	MaxLevels        int
	EnableLadder     bool
}
