package game

import (
	"context"
	"fmt"
	"math"
)

// settleTeam runs one team through the full weekly settlement. It returns
// the persisted outcome plus a milestone advancement event when the team's
// stage changed. seq is the batch-wide arrival counter.
func (e *Engine) settleTeam(ctx context.Context, ses GameSession, team Team, seq *int64) (TeamSettlement, *Advancement, error) {
	dec, ok, err := e.store.Decision(ctx, team.ID, ses.CurrentWeek)
	if err != nil {
		return TeamSettlement{}, nil, fmt.Errorf("read decision: %w", err)
	}
	if !ok {
		// Non-participation is tolerated in a turn-based game.
		return TeamSettlement{Team: team, Skipped: true}, nil, nil
	}

	team, err = e.repairLostRound(ctx, ses, team)
	if err != nil {
		return TeamSettlement{}, nil, err
	}

	prob := e.resolveProbability(ctx, team.ID, dec.Price)

	rnd, err := e.resolveRndStrategy(dec, *ses.TierConfig)
	if err != nil {
		return TeamSettlement{}, nil, err
	}

	demand := ApplyMultiplier(BaseDemand(ses.PopulationSize, prob), rnd.Multiplier)
	revenue := RevenueFor(demand, dec.Price)
	totalCosts := rnd.Cost + dec.AnalyticsUnits*ses.CostPerAnalyticsUnit

	if totalCosts > team.Balance {
		return e.settleLostRound(ctx, ses, team, dec, totalCosts)
	}

	fd := EvaluateFunding(revenue, demand, team.SuccessfulRndTests+rnd.SuccessCount, team.Stage, *ses.Investment)

	profit := -totalCosts
	if team.PendingBonusMultiplier != nil {
		profit = int64(math.Round(float64(profit) * *team.PendingBonusMultiplier))
	}

	result := WeeklyResult{
		TeamID:                team.ID,
		Week:                  ses.CurrentWeek,
		Demand:                demand,
		Revenue:               revenue,
		TotalCosts:            totalCosts,
		Profit:                profit,
		RndSuccess:            rnd.Success,
		RndSuccessProbability: primaryProbability(rnd),
		RndMultiplier:         rnd.Multiplier,
		Status:                fd.Status,
		BonusEarned:           fd.Bonus,
		Outcome:               RoundOK,
	}
	if err := e.store.SaveResult(ctx, result); err != nil {
		return TeamSettlement{}, nil, fmt.Errorf("persist result: %w", err)
	}
	if len(rnd.Tests) > 0 {
		records := make([]RndTestRecord, 0, len(rnd.Tests))
		for _, t := range rnd.Tests {
			records = append(records, RndTestRecord{TeamID: team.ID, Week: ses.CurrentWeek, Tier: t.Tier, Success: t.Success})
		}
		if err := e.store.SaveRndTests(ctx, records); err != nil {
			return TeamSettlement{}, nil, fmt.Errorf("persist rnd tests: %w", err)
		}
	}

	oldStage := team.Stage
	team.Balance += profit
	team.SuccessfulRndTests += rnd.SuccessCount
	team.Stage = fd.NewStage
	team.PendingBonusMultiplier = nil
	if err := e.store.UpdateTeam(ctx, team); err != nil {
		return TeamSettlement{}, nil, fmt.Errorf("persist team: %w", err)
	}

	settlement := TeamSettlement{Team: team, Result: result, Advanced: fd.Advanced}
	if !fd.Advanced || fd.NewStage == oldStage {
		return settlement, nil, nil
	}
	*seq++
	adv := &Advancement{TeamID: team.ID, From: oldStage, To: fd.NewStage, Revenue: revenue, Seq: *seq}
	return settlement, adv, nil
}

// settleLostRound records a week the team could not afford: nothing is
// actually attempted, the would-be costs are charged on paper, and the team
// restarts from initial capital at Pre-Seed.
func (e *Engine) settleLostRound(ctx context.Context, ses GameSession, team Team, dec WeeklyDecision, attemptedCosts int64) (TeamSettlement, *Advancement, error) {
	if ses.InitialCapital <= 0 {
		return TeamSettlement{}, nil, fmt.Errorf("%w: initial capital %d not configured for game %d", ErrBalanceReset, ses.InitialCapital, ses.ID)
	}

	result := WeeklyResult{
		TeamID:        team.ID,
		Week:          ses.CurrentWeek,
		TotalCosts:    attemptedCosts,
		Profit:        -attemptedCosts,
		RndMultiplier: 1.0,
		Status:        StatusFail,
		Outcome:       RoundLost,
	}
	if err := e.store.SaveResult(ctx, result); err != nil {
		return TeamSettlement{}, nil, fmt.Errorf("persist lost-round result: %w", err)
	}

	team.Balance = ses.InitialCapital
	team.SuccessfulRndTests = 0
	team.Stage = StagePreSeed
	team.PendingBonusMultiplier = nil
	if err := e.store.UpdateTeam(ctx, team); err != nil {
		return TeamSettlement{}, nil, fmt.Errorf("persist reset team: %w", err)
	}

	e.log.Warn("lost round", "game_id", ses.ID, "team_id", team.ID, "week", ses.CurrentWeek, "attempted_costs", attemptedCosts)
	e.notify.RoundLost(ctx, ses.ID, team.ID, ses.CurrentWeek)

	return TeamSettlement{Team: team, Result: result, LostRound: true}, nil, nil
}

// repairLostRound is the self-healing pass for a settlement that was
// interrupted after writing a lost-round result but before resetting the
// team. The prior result's round outcome is the single source of truth.
func (e *Engine) repairLostRound(ctx context.Context, ses GameSession, team Team) (Team, error) {
	if ses.CurrentWeek <= 1 {
		return team, nil
	}
	prev, ok, err := e.store.Result(ctx, team.ID, ses.CurrentWeek-1)
	if err != nil {
		return team, fmt.Errorf("read prior result: %w", err)
	}
	if !ok || prev.Outcome != RoundLost || team.Balance == ses.InitialCapital {
		return team, nil
	}
	if ses.InitialCapital <= 0 {
		return team, fmt.Errorf("%w: cannot repair team %d, initial capital unset", ErrBalanceReset, team.ID)
	}

	e.log.Warn("repairing interrupted lost-round reset",
		"game_id", ses.ID, "team_id", team.ID, "balance", team.Balance, "initial_capital", ses.InitialCapital)
	team.Balance = ses.InitialCapital
	team.SuccessfulRndTests = 0
	team.Stage = StagePreSeed
	if err := e.store.UpdateTeam(ctx, team); err != nil {
		return team, fmt.Errorf("persist repaired team: %w", err)
	}
	return team, nil
}

// resolveProbability calls the pricing collaborator with a bounded timeout.
// Any failure degrades to "unknown" so one flaky collaborator call cannot
// sink the team's settlement.
func (e *Engine) resolveProbability(ctx context.Context, teamID, price int64) Probability {
	callCtx, cancel := context.WithTimeout(ctx, e.pricingTimeout)
	defer cancel()
	prob, err := e.pricing.Resolve(callCtx, teamID, price)
	if err != nil {
		e.log.Warn("pricing probability lookup failed", "team_id", teamID, "price", price, "err", err)
		return UnknownProbability()
	}
	return prob
}

func primaryProbability(rnd RndOutcome) float64 {
	if len(rnd.Tests) == 0 {
		return 0
	}
	return rnd.Tests[0].SuccessProbability
}
