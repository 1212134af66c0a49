package game

import (
	"fmt"
	"math"
)

// TierOutcome is one randomized R&D test draw. On failure the multiplier is
// pinned to 1.0 so failed tests never move demand.
type TierOutcome struct {
	Tier               string
	Cost               int64
	SuccessProbability float64
	Multiplier         float64
	Success            bool
}

// resolveTier draws cost, success probability and multiplier uniformly from
// the tier's configured ranges, then runs the Bernoulli trial. A tier the
// admin never configured aborts the team's settlement.
func (e *Engine) resolveTier(tier string, cfg RndTierConfig) (TierOutcome, error) {
	r, ok := cfg[tier]
	if !ok {
		return TierOutcome{}, fmt.Errorf("%w: %q", ErrTierNotConfigured, tier)
	}

	out := TierOutcome{Tier: tier}
	out.Cost = r.CostMin + int64(math.Round(e.nextFloat()*float64(r.CostMax-r.CostMin)))
	out.SuccessProbability = (r.SuccessMinPct + e.nextFloat()*(r.SuccessMaxPct-r.SuccessMinPct)) / 100
	drawnMultiplier := (r.MultiplierMinPct + e.nextFloat()*(r.MultiplierMaxPct-r.MultiplierMinPct)) / 100

	out.Success = e.nextFloat() < out.SuccessProbability
	if out.Success {
		out.Multiplier = drawnMultiplier
	} else {
		out.Multiplier = 1.0
	}
	return out, nil
}
