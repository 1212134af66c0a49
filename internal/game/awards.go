package game

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// AwardForRank computes the rank-dependent milestone payout. The payout is
// shaped like an inverse cumulative normal: rank 1 lands near the high tail
// of the stage's award distribution, later arrivals slide down it.
func AwardForRank(th StageThresholds, rank, maxTeams int) int64 {
	if rank < 1 || maxTeams < 1 {
		return 0
	}
	sd := float64(th.Mean) * th.SDPercent / 100
	p := float64(maxTeams-(rank-1)) / float64(maxTeams+1)
	p = math.Min(math.Max(p, 0.01), 0.99)
	award := float64(th.Mean) + sd*distuv.UnitNormal.Quantile(p)
	if award < 0 {
		return 0
	}
	return int64(math.Round(award))
}

// distributeAwards ranks this week's advancement events per stage by arrival
// order and pays each new (stage, rank) once. settled carries the
// post-settlement team state so awards credit fresh balances, never stale
// pre-settlement ones.
func (e *Engine) distributeAwards(ctx context.Context, ses GameSession, advancements []Advancement, settled map[int64]*TeamSettlement) ([]MilestoneAchievement, error) {
	byStage := make(map[Stage][]Advancement)
	for _, adv := range advancements {
		byStage[adv.To] = append(byStage[adv.To], adv)
	}

	var awards []MilestoneAchievement
	for stage, group := range byStage {
		sort.Slice(group, func(i, j int) bool { return group[i].Seq < group[j].Seq })

		th, configured := ses.Investment.ForStage(stage)
		if !configured {
			continue
		}
		for i, adv := range group {
			rank := i + 1
			exists, err := e.store.MilestoneExists(ctx, ses.ID, stage, rank)
			if err != nil {
				return awards, fmt.Errorf("milestone lookup %s rank %d: %w", stage, rank, err)
			}
			if exists {
				// A retried settlement must never re-rank or re-pay.
				continue
			}

			achievement := MilestoneAchievement{
				GameID: ses.ID,
				Stage:  stage,
				Rank:   rank,
				TeamID: adv.TeamID,
				Award:  AwardForRank(th, rank, ses.MaxTeams),
				Week:   ses.CurrentWeek,
			}
			// The record is written even when the award is withheld below,
			// so retries stay idempotent and the audit trail stays complete.
			if err := e.store.SaveMilestone(ctx, achievement); err != nil {
				return awards, fmt.Errorf("persist milestone %s rank %d: %w", stage, rank, err)
			}
			awards = append(awards, achievement)

			ts := settled[adv.TeamID]
			if ts == nil || ts.LostRound {
				e.log.Info("milestone award withheld",
					"game_id", ses.ID, "team_id", adv.TeamID, "stage", stage.String(), "rank", rank)
				continue
			}
			ts.Team.Balance += achievement.Award
			if err := e.store.UpdateTeam(ctx, ts.Team); err != nil {
				return awards, fmt.Errorf("credit milestone award: %w", err)
			}
			e.notify.MilestoneReached(ctx, achievement)
		}
	}
	return awards, nil
}
