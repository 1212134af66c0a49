package game

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// FallbackAvgProbabilityPercent is used when the pricing collaborator
	// cannot answer. Percent scale, so this is half a percent of the
	// population, not half of it.
	FallbackAvgProbabilityPercent = 0.5

	// AdvancementBonusRate is the share of settlement revenue recorded as a
	// one-time bonus when a team advances a funding stage.
	AdvancementBonusRate = 0.05
)

// Tier names an admin must configure before the game can settle.
var TierNames = []string{"basic", "standard", "advanced", "premium"}

var (
	ErrSessionNotFound   = errors.New("game session not found")
	ErrSessionCompleted  = errors.New("game session already completed")
	ErrNoParticipants    = errors.New("no teams have joined this game")
	ErrConfigMissing     = errors.New("tier or investment configuration missing")
	ErrTierNotConfigured = errors.New("rnd tier not configured")
	ErrAdvanceInProgress = errors.New("week advancement already in progress")
	ErrBalanceReset      = errors.New("balance reset inconsistency")
	ErrUnknownStage      = errors.New("unknown funding stage")
	ErrInvalidDecision   = errors.New("invalid weekly decision")
	ErrDecisionExists    = errors.New("decision already submitted for this week")
	ErrGameFull          = errors.New("game already has the maximum number of teams")
)

// ValidateTierConfig checks the min<=max invariant on every range and that
// all four tiers are present.
func ValidateTierConfig(cfg RndTierConfig) error {
	for _, name := range TierNames {
		r, ok := cfg[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrTierNotConfigured, name)
		}
		if r.CostMin > r.CostMax || r.SuccessMinPct > r.SuccessMaxPct || r.MultiplierMinPct > r.MultiplierMaxPct {
			return fmt.Errorf("tier %q: range min exceeds max", name)
		}
		if r.CostMin < 0 || r.SuccessMinPct < 0 || r.SuccessMaxPct > 100 {
			return fmt.Errorf("tier %q: range out of bounds", name)
		}
	}
	return nil
}

// ValidateDecision rejects decisions the settlement engine could not process.
func ValidateDecision(d WeeklyDecision) error {
	if d.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidDecision)
	}
	if d.AnalyticsUnits < 0 {
		return fmt.Errorf("%w: analytics units must be >= 0", ErrInvalidDecision)
	}
	switch d.Strategy {
	case StrategySkip:
		return nil
	case StrategyOne:
		if d.TierPrimary == "" {
			return fmt.Errorf("%w: primary tier required", ErrInvalidDecision)
		}
	case StrategyTwoIfFail, StrategyTwoAlways:
		if d.TierPrimary == "" || d.TierSecondary == "" {
			return fmt.Errorf("%w: primary and secondary tiers required", ErrInvalidDecision)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidDecision, d.Strategy)
	}
	return nil
}

// Store is the persistence and decision-source boundary the engine settles
// against. Implementations must make ClaimAdvance a single-winner operation
// per (game, week).
type Store interface {
	Session(ctx context.Context, gameID int64) (GameSession, error)
	ClaimAdvance(ctx context.Context, gameID int64, fromWeek int) (bool, error)
	ReleaseAdvance(ctx context.Context, gameID int64) error
	AdvanceWeek(ctx context.Context, gameID int64, newWeek int, status SessionStatus) error

	Teams(ctx context.Context, gameID int64) ([]Team, error)
	UpdateTeam(ctx context.Context, team Team) error

	Decision(ctx context.Context, teamID int64, week int) (WeeklyDecision, bool, error)
	Result(ctx context.Context, teamID int64, week int) (WeeklyResult, bool, error)
	SaveResult(ctx context.Context, result WeeklyResult) error
	SaveRndTests(ctx context.Context, tests []RndTestRecord) error

	MilestoneExists(ctx context.Context, gameID int64, stage Stage, rank int) (bool, error)
	SaveMilestone(ctx context.Context, m MilestoneAchievement) error

	AppendAudit(ctx context.Context, gameID int64, event string, payload map[string]any) error
}

// AdminStore adds the operations the command surface needs on top of the
// settlement boundary.
type AdminStore interface {
	Store

	CreateSession(ctx context.Context, s GameSession) (int64, error)
	CreateTeam(ctx context.Context, t Team) (int64, error)
	SaveDecision(ctx context.Context, d WeeklyDecision) error
	Standings(ctx context.Context, gameID int64) ([]Team, error)
	// DueSessions lists active games whose week countdown started more than
	// olderThan ago; the timer worker advances them.
	DueSessions(ctx context.Context, olderThan time.Duration) ([]int64, error)
}

// ProbabilityResolver is the external pricing collaborator of the demand
// model. Resolve returns an unknown Probability rather than an error when it
// simply has no answer for the price.
type ProbabilityResolver interface {
	Resolve(ctx context.Context, teamID int64, price int64) (Probability, error)
}

// Notifier is the fire-and-forget announcement sink. Implementations must
// swallow their own failures; settlement never depends on them.
type Notifier interface {
	MilestoneReached(ctx context.Context, m MilestoneAchievement)
	RoundLost(ctx context.Context, gameID, teamID int64, week int)
}
