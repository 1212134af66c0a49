package game

import "fmt"

// RndOutcome is the combined effect of every R&D test that actually ran this
// week. Failed tests still cost money; only successful ones stack into the
// demand multiplier.
type RndOutcome struct {
	Success      bool
	Cost         int64
	Multiplier   float64
	SuccessCount int
	Tests        []TierOutcome
}

// resolveRndStrategy orchestrates one or two tier draws according to the
// team's chosen strategy.
func (e *Engine) resolveRndStrategy(dec WeeklyDecision, cfg RndTierConfig) (RndOutcome, error) {
	switch dec.Strategy {
	case StrategySkip:
		return RndOutcome{Multiplier: 1.0}, nil

	case StrategyOne:
		primary, err := e.resolveTier(dec.TierPrimary, cfg)
		if err != nil {
			return RndOutcome{}, err
		}
		return combineTests(primary), nil

	case StrategyTwoIfFail:
		primary, err := e.resolveTier(dec.TierPrimary, cfg)
		if err != nil {
			return RndOutcome{}, err
		}
		if primary.Success {
			return combineTests(primary), nil
		}
		secondary, err := e.resolveTier(dec.TierSecondary, cfg)
		if err != nil {
			return RndOutcome{}, err
		}
		return combineTests(primary, secondary), nil

	case StrategyTwoAlways:
		primary, err := e.resolveTier(dec.TierPrimary, cfg)
		if err != nil {
			return RndOutcome{}, err
		}
		secondary, err := e.resolveTier(dec.TierSecondary, cfg)
		if err != nil {
			return RndOutcome{}, err
		}
		return combineTests(primary, secondary), nil

	default:
		return RndOutcome{}, fmt.Errorf("%w: strategy %q", ErrInvalidDecision, dec.Strategy)
	}
}

// combineTests applies the combination rule: success if any test succeeded,
// cost is the sum over every test run, multiplier is the product over the
// successful ones (1.0 when none succeeded).
func combineTests(tests ...TierOutcome) RndOutcome {
	out := RndOutcome{Multiplier: 1.0, Tests: tests}
	for _, t := range tests {
		out.Cost += t.Cost
		if t.Success {
			out.Success = true
			out.SuccessCount++
			out.Multiplier *= t.Multiplier
		}
	}
	return out
}
