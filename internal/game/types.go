package game

import "time"

// Stage is a team's funding progression level. Advancement is monotonic;
// the only way back to Pre-Seed is a full lost-round reset.
type Stage int

const (
	StagePreSeed Stage = iota
	StageSeed
	StageSeriesA
	StageSeriesB
	StageSeriesC
)

var stageNames = map[Stage]string{
	StagePreSeed: "pre_seed",
	StageSeed:    "seed",
	StageSeriesA: "series_a",
	StageSeriesB: "series_b",
	StageSeriesC: "series_c",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Next returns the following stage, or false when s is already Series C.
func (s Stage) Next() (Stage, bool) {
	if s >= StageSeriesC {
		return s, false
	}
	return s + 1, true
}

func ParseStage(v string) (Stage, error) {
	for stage, name := range stageNames {
		if name == v {
			return stage, nil
		}
	}
	return StagePreSeed, ErrUnknownStage
}

type SessionStatus string

const (
	StatusSetup     SessionStatus = "setup"
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

// TierRange is the admin-configured bracket for one R&D tier. Costs are in
// whole currency units; success and multiplier bounds are percentages.
type TierRange struct {
	CostMin          int64   `json:"cost_min"`
	CostMax          int64   `json:"cost_max"`
	SuccessMinPct    float64 `json:"success_min_pct"`
	SuccessMaxPct    float64 `json:"success_max_pct"`
	MultiplierMinPct float64 `json:"multiplier_min_pct"`
	MultiplierMaxPct float64 `json:"multiplier_max_pct"`
}

// RndTierConfig maps tier names (basic/standard/advanced/premium) to ranges.
type RndTierConfig map[string]TierRange

// StageThresholds carries both the award distribution parameters and the
// advancement thresholds for one funding stage.
type StageThresholds struct {
	Mean            int64   `json:"mean"`
	SDPercent       float64 `json:"sd_percent"`
	BonusMultiplier float64 `json:"bonus_multiplier"`
	ExpectedRevenue int64   `json:"expected_revenue"`
	Demand          int64   `json:"demand"`
	RndCount        int     `json:"rnd_count"`
}

type InvestmentConfig struct {
	Seed    StageThresholds `json:"seed"`
	SeriesA StageThresholds `json:"series_a"`
	SeriesB StageThresholds `json:"series_b"`
	SeriesC StageThresholds `json:"series_c"`
}

// ForStage returns the thresholds configured for a stage. Pre-Seed has no
// configuration by design.
func (c InvestmentConfig) ForStage(s Stage) (StageThresholds, bool) {
	switch s {
	case StageSeed:
		return c.Seed, true
	case StageSeriesA:
		return c.SeriesA, true
	case StageSeriesB:
		return c.SeriesB, true
	case StageSeriesC:
		return c.SeriesC, true
	default:
		return StageThresholds{}, false
	}
}

type GameSession struct {
	ID                   int64             `json:"id"`
	CurrentWeek          int               `json:"current_week"`
	TotalWeeks           int               `json:"total_weeks"`
	Status               SessionStatus     `json:"status"`
	MaxTeams             int               `json:"max_teams"`
	PopulationSize       int64             `json:"population_size"`
	InitialCapital       int64             `json:"initial_capital"`
	CostPerAnalyticsUnit int64             `json:"cost_per_analytics_unit"`
	TierConfig           *RndTierConfig    `json:"tier_config,omitempty"`
	Investment           *InvestmentConfig `json:"investment_config,omitempty"`
	WeekStartTime        time.Time         `json:"week_start_time"`
}

type Team struct {
	ID                     int64    `json:"id"`
	GameID                 int64    `json:"game_id"`
	Name                   string   `json:"name"`
	Balance                int64    `json:"balance"`
	Stage                  Stage    `json:"-"`
	SuccessfulRndTests     int      `json:"successful_rnd_tests"`
	PendingBonusMultiplier *float64 `json:"pending_bonus_multiplier,omitempty"`
}

// Strategy selects how many R&D tests run and under which condition.
type Strategy string

const (
	StrategySkip      Strategy = "skip"
	StrategyOne       Strategy = "one"
	StrategyTwoIfFail Strategy = "two-if-fail"
	StrategyTwoAlways Strategy = "two-always"
)

// WeeklyDecision is a team's submitted plan for one week. Immutable once
// created.
type WeeklyDecision struct {
	TeamID         int64    `json:"team_id"`
	Week           int      `json:"week"`
	Price          int64    `json:"price"`
	Strategy       Strategy `json:"rnd_strategy"`
	TierPrimary    string   `json:"rnd_tier_primary"`
	TierSecondary  string   `json:"rnd_tier_secondary,omitempty"`
	AnalyticsUnits int64    `json:"analytics_units_purchased"`
}

type PassFail string

const (
	StatusPending PassFail = "pending"
	StatusPass    PassFail = "pass"
	StatusFail    PassFail = "fail"
)

// RoundOutcome is the single source of truth for whether a settled week was
// lost. The repair pass reads it instead of re-deriving the condition from
// demand/revenue/status.
type RoundOutcome string

const (
	RoundOK   RoundOutcome = "ok"
	RoundLost RoundOutcome = "lost"
)

// WeeklyResult is the settlement-filled half of the decision row.
type WeeklyResult struct {
	TeamID                int64        `json:"team_id"`
	Week                  int          `json:"week"`
	Demand                int64        `json:"demand"`
	Revenue               int64        `json:"revenue"`
	TotalCosts            int64        `json:"total_costs"`
	Profit                int64        `json:"profit"`
	RndSuccess            bool         `json:"rnd_success"`
	RndSuccessProbability float64      `json:"rnd_success_probability"`
	RndMultiplier         float64      `json:"rnd_multiplier"`
	Status                PassFail     `json:"pass_fail_status"`
	BonusEarned           int64        `json:"bonus_earned"`
	Outcome               RoundOutcome `json:"round_outcome"`
}

// RndTestRecord is one row per R&D test actually executed.
type RndTestRecord struct {
	TeamID  int64  `json:"team_id"`
	Week    int    `json:"week"`
	Tier    string `json:"tier"`
	Success bool   `json:"success"`
}

// MilestoneAchievement records a ranked stage arrival. (GameID, Stage, Rank)
// is unique and immutable once written.
type MilestoneAchievement struct {
	GameID int64 `json:"game_id"`
	Stage  Stage `json:"-"`
	Rank   int   `json:"rank"`
	TeamID int64 `json:"team_id"`
	Award  int64 `json:"award_amount"`
	Week   int   `json:"week_number"`
}

// Advancement is the milestone event emitted when a team's stage changes
// during settlement. Seq is a monotonic arrival counter within the batch.
type Advancement struct {
	TeamID  int64
	From    Stage
	To      Stage
	Revenue int64
	Seq     int64
}

// TeamSettlement is the per-team outcome of one settlement pass.
type TeamSettlement struct {
	Team      Team
	Result    WeeklyResult
	Advanced  bool
	LostRound bool
	Skipped   bool
}

type TeamFailure struct {
	TeamID int64  `json:"team_id"`
	Error  string `json:"error"`
}

// AdvanceSummary is the result of one advanceWeek call.
type AdvanceSummary struct {
	GameID         int64                  `json:"game_id"`
	NewWeek        int                    `json:"new_week"`
	TotalWeeks     int                    `json:"total_weeks"`
	TeamsProcessed int                    `json:"teams_processed"`
	Completed      bool                   `json:"completed"`
	Failures       []TeamFailure          `json:"failures,omitempty"`
	Awards         []MilestoneAchievement `json:"awards,omitempty"`
}

// Probability is the pricing collaborator's answer. Known distinguishes a
// legitimate zero from "the collaborator could not answer".
type Probability struct {
	Percent float64
	Known   bool
}

func KnownProbability(pct float64) Probability {
	return Probability{Percent: pct, Known: true}
}

func UnknownProbability() Probability {
	return Probability{}
}
