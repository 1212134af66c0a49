package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"venturesim/internal/game"
)

// Postgres implements game.AdminStore on pgx. Tier and investment configs
// live as JSONB on the session row; the advance claim is a CAS on
// (id, current_week, advancing).
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Session(ctx context.Context, gameID int64) (game.GameSession, error) {
	var (
		ses           game.GameSession
		status        string
		tierRaw       []byte
		investmentRaw []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, current_week, total_weeks, status, max_teams, population_size,
		       initial_capital, cost_per_analytics_unit, tier_config, investment_config, week_start_at
		FROM sim.game_sessions
		WHERE id = $1
	`, gameID).Scan(&ses.ID, &ses.CurrentWeek, &ses.TotalWeeks, &status, &ses.MaxTeams,
		&ses.PopulationSize, &ses.InitialCapital, &ses.CostPerAnalyticsUnit,
		&tierRaw, &investmentRaw, &ses.WeekStartTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ses, game.ErrSessionNotFound
		}
		return ses, err
	}
	ses.Status = game.SessionStatus(status)
	if len(tierRaw) > 0 {
		var cfg game.RndTierConfig
		if err := json.Unmarshal(tierRaw, &cfg); err != nil {
			return ses, fmt.Errorf("decode tier config: %w", err)
		}
		ses.TierConfig = &cfg
	}
	if len(investmentRaw) > 0 {
		var cfg game.InvestmentConfig
		if err := json.Unmarshal(investmentRaw, &cfg); err != nil {
			return ses, fmt.Errorf("decode investment config: %w", err)
		}
		ses.Investment = &cfg
	}
	return ses, nil
}

func (s *Postgres) ClaimAdvance(ctx context.Context, gameID int64, fromWeek int) (bool, error) {
	cmd, err := s.db.Exec(ctx, `
		UPDATE sim.game_sessions
		SET advancing = true, updated_at = now()
		WHERE id = $1 AND current_week = $2 AND NOT advancing
	`, gameID, fromWeek)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (s *Postgres) ReleaseAdvance(ctx context.Context, gameID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sim.game_sessions
		SET advancing = false, updated_at = now()
		WHERE id = $1
	`, gameID)
	return err
}

func (s *Postgres) AdvanceWeek(ctx context.Context, gameID int64, newWeek int, status game.SessionStatus) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sim.game_sessions
		SET current_week = $1, status = $2, week_start_at = now(), advancing = false, updated_at = now()
		WHERE id = $3
	`, newWeek, string(status), gameID)
	return err
}

func (s *Postgres) Teams(ctx context.Context, gameID int64) ([]game.Team, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, game_id, name, balance, funding_stage, successful_rnd_tests, pending_bonus_multiplier
		FROM sim.teams
		WHERE game_id = $1
		ORDER BY id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateTeam(ctx context.Context, team game.Team) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE sim.teams
		SET balance = $1, funding_stage = $2, successful_rnd_tests = $3,
		    pending_bonus_multiplier = $4, updated_at = now()
		WHERE id = $5
	`, team.Balance, team.Stage.String(), team.SuccessfulRndTests, team.PendingBonusMultiplier, team.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("team %d not found", team.ID)
	}
	return nil
}

func (s *Postgres) Decision(ctx context.Context, teamID int64, week int) (game.WeeklyDecision, bool, error) {
	var d game.WeeklyDecision
	var strategy string
	err := s.db.QueryRow(ctx, `
		SELECT team_id, week, price, strategy, tier_primary, COALESCE(tier_secondary, ''), analytics_units
		FROM sim.weekly_decisions
		WHERE team_id = $1 AND week = $2
	`, teamID, week).Scan(&d.TeamID, &d.Week, &d.Price, &strategy, &d.TierPrimary, &d.TierSecondary, &d.AnalyticsUnits)
	if err == pgx.ErrNoRows {
		return d, false, nil
	}
	if err != nil {
		return d, false, err
	}
	d.Strategy = game.Strategy(strategy)
	return d, true, nil
}

func (s *Postgres) Result(ctx context.Context, teamID int64, week int) (game.WeeklyResult, bool, error) {
	var r game.WeeklyResult
	var status, outcome string
	err := s.db.QueryRow(ctx, `
		SELECT team_id, week, demand, revenue, total_costs, profit,
		       rnd_success, rnd_success_probability, rnd_multiplier,
		       pass_fail_status, bonus_earned, round_outcome
		FROM sim.weekly_decisions
		WHERE team_id = $1 AND week = $2 AND pass_fail_status <> 'pending'
	`, teamID, week).Scan(&r.TeamID, &r.Week, &r.Demand, &r.Revenue, &r.TotalCosts, &r.Profit,
		&r.RndSuccess, &r.RndSuccessProbability, &r.RndMultiplier, &status, &r.BonusEarned, &outcome)
	if err == pgx.ErrNoRows {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	r.Status = game.PassFail(status)
	r.Outcome = game.RoundOutcome(outcome)
	return r, true, nil
}

func (s *Postgres) SaveResult(ctx context.Context, result game.WeeklyResult) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE sim.weekly_decisions
		SET demand = $1, revenue = $2, total_costs = $3, profit = $4,
		    rnd_success = $5, rnd_success_probability = $6, rnd_multiplier = $7,
		    pass_fail_status = $8, bonus_earned = $9, round_outcome = $10, updated_at = now()
		WHERE team_id = $11 AND week = $12
	`, result.Demand, result.Revenue, result.TotalCosts, result.Profit,
		result.RndSuccess, result.RndSuccessProbability, result.RndMultiplier,
		string(result.Status), result.BonusEarned, string(result.Outcome),
		result.TeamID, result.Week)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("no decision row for team %d week %d", result.TeamID, result.Week)
	}
	return nil
}

func (s *Postgres) SaveRndTests(ctx context.Context, tests []game.RndTestRecord) error {
	for _, t := range tests {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO sim.rnd_tests (team_id, week, tier, success)
			VALUES ($1, $2, $3, $4)
		`, t.TeamID, t.Week, t.Tier, t.Success); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) MilestoneExists(ctx context.Context, gameID int64, stage game.Stage, rank int) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sim.milestone_achievements
			WHERE game_id = $1 AND stage = $2 AND rank = $3
		)
	`, gameID, stage.String(), rank).Scan(&exists)
	return exists, err
}

func (s *Postgres) SaveMilestone(ctx context.Context, a game.MilestoneAchievement) error {
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO sim.milestone_achievements (game_id, stage, rank, team_id, award_amount, week_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, stage, rank) DO NOTHING
	`, a.GameID, a.Stage.String(), a.Rank, a.TeamID, a.Award, a.Week)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("milestone already recorded: game %d stage %s rank %d", a.GameID, a.Stage, a.Rank)
	}
	return nil
}

func (s *Postgres) AppendAudit(ctx context.Context, gameID int64, event string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO sim.audit_events (id, game_id, event, payload, created_at)
		VALUES ($1, $2, $3, $4::jsonb, now())
	`, uuid.NewString(), gameID, event, string(raw))
	return err
}

func (s *Postgres) CreateSession(ctx context.Context, ses game.GameSession) (int64, error) {
	tierRaw, err := json.Marshal(ses.TierConfig)
	if err != nil {
		return 0, err
	}
	investmentRaw, err := json.Marshal(ses.Investment)
	if err != nil {
		return 0, err
	}
	if ses.CurrentWeek == 0 {
		ses.CurrentWeek = 1
	}
	if ses.Status == "" {
		ses.Status = game.StatusSetup
	}
	var id int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO sim.game_sessions
		    (current_week, total_weeks, status, max_teams, population_size,
		     initial_capital, cost_per_analytics_unit, tier_config, investment_config, week_start_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, now())
		RETURNING id
	`, ses.CurrentWeek, ses.TotalWeeks, string(ses.Status), ses.MaxTeams, ses.PopulationSize,
		ses.InitialCapital, ses.CostPerAnalyticsUnit, string(tierRaw), string(investmentRaw)).Scan(&id)
	return id, err
}

func (s *Postgres) CreateTeam(ctx context.Context, t game.Team) (int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var maxTeams int
	var initialCapital int64
	if err := tx.QueryRow(ctx, `
		SELECT max_teams, initial_capital
		FROM sim.game_sessions
		WHERE id = $1
		FOR UPDATE
	`, t.GameID).Scan(&maxTeams, &initialCapital); err != nil {
		if err == pgx.ErrNoRows {
			return 0, game.ErrSessionNotFound
		}
		return 0, err
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(1) FROM sim.teams WHERE game_id = $1`, t.GameID).Scan(&count); err != nil {
		return 0, err
	}
	if maxTeams > 0 && count >= maxTeams {
		return 0, game.ErrGameFull
	}

	balance := t.Balance
	if balance == 0 {
		balance = initialCapital
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO sim.teams (game_id, name, balance, funding_stage, successful_rnd_tests)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id
	`, t.GameID, t.Name, balance, game.StagePreSeed.String()).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (s *Postgres) SaveDecision(ctx context.Context, d game.WeeklyDecision) error {
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO sim.weekly_decisions
		    (team_id, week, price, strategy, tier_primary, tier_secondary, analytics_units, pass_fail_status, round_outcome)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, 'pending', 'ok')
		ON CONFLICT (team_id, week) DO NOTHING
	`, d.TeamID, d.Week, d.Price, string(d.Strategy), d.TierPrimary, d.TierSecondary, d.AnalyticsUnits)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrDecisionExists
	}
	return nil
}

func (s *Postgres) Standings(ctx context.Context, gameID int64) ([]game.Team, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, game_id, name, balance, funding_stage, successful_rnd_tests, pending_bonus_multiplier
		FROM sim.teams
		WHERE game_id = $1
		ORDER BY CASE funding_stage
		         WHEN 'series_c' THEN 4
		         WHEN 'series_b' THEN 3
		         WHEN 'series_a' THEN 2
		         WHEN 'seed' THEN 1
		         ELSE 0 END DESC,
		         balance DESC, id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) DueSessions(ctx context.Context, olderThan time.Duration) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id
		FROM sim.game_sessions
		WHERE status = 'active' AND NOT advancing AND week_start_at < now() - $1::interval
		ORDER BY id
	`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanTeam(rows pgx.Rows) (game.Team, error) {
	var t game.Team
	var stage string
	if err := rows.Scan(&t.ID, &t.GameID, &t.Name, &t.Balance, &stage, &t.SuccessfulRndTests, &t.PendingBonusMultiplier); err != nil {
		return t, err
	}
	parsed, err := game.ParseStage(stage)
	if err != nil {
		return t, fmt.Errorf("team %d: %w", t.ID, err)
	}
	t.Stage = parsed
	return t, nil
}
