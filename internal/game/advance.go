package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AdvanceWeek settles every team's current week, distributes milestone
// awards, then advances (or completes) the session's week counter. Session
// level problems fail the whole call; a single team's failure is isolated
// and reported in the summary.
func (e *Engine) AdvanceWeek(ctx context.Context, gameID int64) (AdvanceSummary, error) {
	requestID := uuid.NewString()
	if !e.beginAdvance(gameID, requestID) {
		return AdvanceSummary{}, ErrAdvanceInProgress
	}
	defer e.endAdvance(gameID)

	ses, err := e.store.Session(ctx, gameID)
	if err != nil {
		return AdvanceSummary{}, err
	}
	if ses.Status == StatusCompleted {
		return AdvanceSummary{}, ErrSessionCompleted
	}
	if ses.TierConfig == nil || ses.Investment == nil {
		return AdvanceSummary{}, ErrConfigMissing
	}
	if err := ValidateTierConfig(*ses.TierConfig); err != nil {
		return AdvanceSummary{}, fmt.Errorf("%w: %v", ErrConfigMissing, err)
	}

	// Cross-process half of the advancement guard: a CAS on the week
	// counter so the manual trigger and the timer cannot settle the same
	// week twice.
	claimed, err := e.store.ClaimAdvance(ctx, gameID, ses.CurrentWeek)
	if err != nil {
		return AdvanceSummary{}, fmt.Errorf("claim advance: %w", err)
	}
	if !claimed {
		return AdvanceSummary{}, ErrAdvanceInProgress
	}
	defer func() {
		if err := e.store.ReleaseAdvance(context.WithoutCancel(ctx), gameID); err != nil {
			e.log.Error("release advance claim failed", "game_id", gameID, "err", err)
		}
	}()

	teams, err := e.store.Teams(ctx, gameID)
	if err != nil {
		return AdvanceSummary{}, fmt.Errorf("load teams: %w", err)
	}
	if len(teams) == 0 {
		return AdvanceSummary{}, ErrNoParticipants
	}

	summary := AdvanceSummary{GameID: gameID, TotalWeeks: ses.TotalWeeks}
	settled := make(map[int64]*TeamSettlement, len(teams))
	var advancements []Advancement
	var seq int64

	for _, team := range teams {
		ts, adv, err := e.settleTeam(ctx, ses, team, &seq)
		if err != nil {
			e.log.Error("team settlement failed",
				"game_id", gameID, "team_id", team.ID, "week", ses.CurrentWeek, "err", err)
			summary.Failures = append(summary.Failures, TeamFailure{TeamID: team.ID, Error: err.Error()})
			continue
		}
		if ts.Skipped {
			continue
		}
		copied := ts
		settled[team.ID] = &copied
		summary.TeamsProcessed++
		if adv != nil {
			advancements = append(advancements, *adv)
		}
	}

	awards, err := e.distributeAwards(ctx, ses, advancements, settled)
	summary.Awards = awards
	if err != nil {
		e.log.Error("award distribution incomplete", "game_id", gameID, "week", ses.CurrentWeek, "err", err)
	}

	newWeek := ses.CurrentWeek
	status := StatusActive
	if ses.CurrentWeek < ses.TotalWeeks {
		newWeek = ses.CurrentWeek + 1
	} else {
		status = StatusCompleted
		summary.Completed = true
	}
	if err := e.store.AdvanceWeek(ctx, gameID, newWeek, status); err != nil {
		return summary, fmt.Errorf("advance week counter: %w", err)
	}
	summary.NewWeek = newWeek

	e.appendAudit(ctx, gameID, requestID, ses.CurrentWeek, summary, status)
	e.log.Info("week settled",
		"game_id", gameID, "week", ses.CurrentWeek, "new_week", newWeek,
		"teams_processed", summary.TeamsProcessed, "failures", len(summary.Failures),
		"awards", len(summary.Awards), "status", string(status))
	return summary, nil
}

func (e *Engine) appendAudit(ctx context.Context, gameID int64, requestID string, settledWeek int, summary AdvanceSummary, status SessionStatus) {
	payload := map[string]any{
		"request_id":      requestID,
		"settled_week":    settledWeek,
		"new_week":        summary.NewWeek,
		"teams_processed": summary.TeamsProcessed,
		"failed_teams":    len(summary.Failures),
		"awards":          len(summary.Awards),
		"status":          string(status),
	}
	if err := e.store.AppendAudit(ctx, gameID, "week_settled", payload); err != nil {
		e.log.Warn("audit append failed", "game_id", gameID, "err", err)
	}
}
