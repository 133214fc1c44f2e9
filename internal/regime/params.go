package regime

import (
	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// ParamsFor maps a regime to its strategy preset. Pure function: quiet
// quotes tighter with fewer levels, shock widens out and drops to a single
// level with the ladder disabled, normal is baseline.
func ParamsFor(r domain.Regime) domain.RegimeParams {
	switch r {
	case domain.RegimeQuiet:
		return domain.RegimeParams{
			TakeProfitBps:    8,
			OffsetMultiplier: 0.8,
			StepMultiplier:   0.8,
			MaxLevels:        2,
			EnableLadder:     true,
		}
	case domain.RegimeShock:
		return domain.RegimeParams{
			TakeProfitBps:    20,
			OffsetMultiplier: 1.6,
			StepMultiplier:   1.5,
			MaxLevels:        1,
			EnableLadder:     false,
		}
	default:
		return domain.RegimeParams{
			TakeProfitBps:    12,
			OffsetMultiplier: 1.0,
			StepMultiplier:   1.0,
			MaxLevels:        3,
			EnableLadder:     true,
		}
	}
}
