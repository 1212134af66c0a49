package game

import "math"

// FundingDecision is the Funding Status Evaluator's verdict for one
// settlement week.
type FundingDecision struct {
	Status   PassFail
	Advanced bool
	NewStage Stage
	Bonus    int64
}

// EvaluateFunding compares the week's real figures against stage thresholds.
// All three thresholds are AND-combined; there is no partial credit. The
// cumulative test count must already include this week's successes.
func EvaluateFunding(revenue, demand int64, successfulTests int, stage Stage, cfg InvestmentConfig) FundingDecision {
	if next, ok := stage.Next(); ok {
		if th, configured := cfg.ForStage(next); configured && meetsThresholds(revenue, demand, successfulTests, th) {
			return FundingDecision{
				Status:   StatusPass,
				Advanced: true,
				NewStage: next,
				Bonus:    advancementBonus(revenue, stage, cfg),
			}
		}
	}

	own, configured := cfg.ForStage(stage)
	if !configured {
		// Pre-Seed has no thresholds of its own.
		return FundingDecision{Status: StatusPass, NewStage: stage}
	}
	if meetsThresholds(revenue, demand, successfulTests, own) {
		return FundingDecision{Status: StatusPass, NewStage: stage}
	}
	return FundingDecision{Status: StatusFail, NewStage: stage}
}

func meetsThresholds(revenue, demand int64, successfulTests int, th StageThresholds) bool {
	return revenue >= th.ExpectedRevenue && demand >= th.Demand && successfulTests >= th.RndCount
}

// advancementBonus uses the departing stage's multiplier; a stage without
// configuration (Pre-Seed) contributes 1.0.
func advancementBonus(revenue int64, current Stage, cfg InvestmentConfig) int64 {
	multiplier := 1.0
	if th, ok := cfg.ForStage(current); ok {
		multiplier = th.BonusMultiplier
	}
	return int64(math.Round(float64(revenue) * AdvancementBonusRate * multiplier))
}
