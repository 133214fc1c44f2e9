// Package strategy turns market state into a concrete set of desired
// resting orders. Level generation is a pluggable policy; the stateful
// Quoter owns the ladder, take-profits, and inventory.
package strategy

import (
	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// LevelSpec is one desired ladder slot, already rounded and validated
// against the instrument rules.
type LevelSpec struct {
	Level int
	Side  string
	Price float64
	Qty   float64
}

// PolicyInput is everything a policy may consider when generating levels.
// Offset and step are final quoting distances (regime multipliers and
// watchdog decay already applied).
type PolicyInput struct {
	Mid            float64
	Offset         float64
	Step           float64
	MaxLevels      int
	Inventory      domain.Inventory
	InventoryLimit float64
	SkewAlpha      float64
	BaseSize       float64
	SizeRatio      float64
	Inst           *domain.Instrument
}

// QuotingPolicy generates the desired ladder for one update. Policies are
// stateless; all position state arrives through PolicyInput.
type QuotingPolicy interface {
	Name() string
	Levels(in PolicyInput) []LevelSpec
}

// suppressed reports which sides the inventory skew gate blocks.
func suppressed(in PolicyInput) (buy, sell bool) {
	limit := in.SkewAlpha * in.InventoryLimit
	buy = in.Inventory.QuoteNotional > limit
	sell = in.Inventory.QuoteNotional < -limit
	return
}
