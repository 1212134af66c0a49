package game

import (
	"errors"
	"testing"
)

func testInvestmentConfig() InvestmentConfig {
	return InvestmentConfig{
		Seed:    StageThresholds{Mean: 100_000, SDPercent: 10, BonusMultiplier: 1.0, ExpectedRevenue: 50_000, Demand: 4_000, RndCount: 1},
		SeriesA: StageThresholds{Mean: 250_000, SDPercent: 10, BonusMultiplier: 1.2, ExpectedRevenue: 150_000, Demand: 8_000, RndCount: 3},
		SeriesB: StageThresholds{Mean: 500_000, SDPercent: 12, BonusMultiplier: 1.5, ExpectedRevenue: 400_000, Demand: 15_000, RndCount: 5},
		SeriesC: StageThresholds{Mean: 1_000_000, SDPercent: 15, BonusMultiplier: 2.0, ExpectedRevenue: 900_000, Demand: 25_000, RndCount: 8},
	}
}

func TestBaseDemand(t *testing.T) {
	tests := []struct {
		pop  int64
		prob Probability
		want int64
	}{
		{pop: 10_000, prob: KnownProbability(50), want: 5_000},
		{pop: 10_000, prob: KnownProbability(0), want: 0},
		{pop: 10_000, prob: UnknownProbability(), want: 50},
		{pop: 0, prob: KnownProbability(50), want: 0},
		{pop: 1_001, prob: KnownProbability(33.3), want: 333},
	}
	for _, tc := range tests {
		got := BaseDemand(tc.pop, tc.prob)
		if got != tc.want {
			t.Fatalf("pop=%d prob=%+v got=%d want=%d", tc.pop, tc.prob, got, tc.want)
		}
	}
}

func TestApplyMultiplier(t *testing.T) {
	if got := ApplyMultiplier(5_000, 1.5); got != 7_500 {
		t.Fatalf("got %d want 7500", got)
	}
	if got := ApplyMultiplier(3, 1.5); got != 5 {
		t.Fatalf("rounding: got %d want 5", got)
	}
	if got := ApplyMultiplier(5_000, 1.0); got != 5_000 {
		t.Fatalf("identity: got %d want 5000", got)
	}
}

func TestRevenueFor(t *testing.T) {
	if got := RevenueFor(5_000, 10); got != 50_000 {
		t.Fatalf("got %d want 50000", got)
	}
	if got := RevenueFor(5_000, 0); got != 0 {
		t.Fatalf("free product: got %d want 0", got)
	}
}

func TestCombineTests(t *testing.T) {
	none := combineTests()
	if none.Cost != 0 || none.Multiplier != 1.0 || none.Success {
		t.Fatalf("empty combination: %+v", none)
	}

	fail := TierOutcome{Tier: "basic", Cost: 1_000, Multiplier: 1.0, Success: false}
	okA := TierOutcome{Tier: "standard", Cost: 2_000, Multiplier: 1.5, Success: true}
	okB := TierOutcome{Tier: "advanced", Cost: 3_000, Multiplier: 2.0, Success: true}

	got := combineTests(fail, okA)
	if got.Cost != 3_000 {
		t.Fatalf("failed tests still cost: got %d want 3000", got.Cost)
	}
	if !got.Success || got.SuccessCount != 1 || got.Multiplier != 1.5 {
		t.Fatalf("single success: %+v", got)
	}

	got = combineTests(okA, okB)
	if got.Multiplier != 3.0 || got.SuccessCount != 2 {
		t.Fatalf("multipliers must stack: %+v", got)
	}

	got = combineTests(fail, fail)
	if got.Success || got.Multiplier != 1.0 || got.Cost != 2_000 {
		t.Fatalf("all failed: %+v", got)
	}
}

func TestResolveRndStrategy(t *testing.T) {
	cfg := RndTierConfig{
		"basic":    {CostMin: 1_000, CostMax: 1_000, SuccessMinPct: 100, SuccessMaxPct: 100, MultiplierMinPct: 150, MultiplierMaxPct: 150},
		"standard": {CostMin: 2_000, CostMax: 2_000, SuccessMinPct: 0, SuccessMaxPct: 0, MultiplierMinPct: 200, MultiplierMaxPct: 200},
		"advanced": {CostMin: 500, CostMax: 500, SuccessMinPct: 100, SuccessMaxPct: 100, MultiplierMinPct: 120, MultiplierMaxPct: 120},
		"premium":  {CostMin: 5_000, CostMax: 5_000, SuccessMinPct: 0, SuccessMaxPct: 0, MultiplierMinPct: 300, MultiplierMaxPct: 300},
	}
	e := NewEngineWithSeed(nil, nil, nil, nil, 1)

	out, err := e.resolveRndStrategy(WeeklyDecision{Strategy: StrategySkip}, cfg)
	if err != nil || out.Cost != 0 || out.Multiplier != 1.0 || len(out.Tests) != 0 {
		t.Fatalf("skip: %+v err=%v", out, err)
	}

	out, err = e.resolveRndStrategy(WeeklyDecision{Strategy: StrategyOne, TierPrimary: "basic"}, cfg)
	if err != nil {
		t.Fatalf("one: %v", err)
	}
	if !out.Success || out.Cost != 1_000 || out.Multiplier != 1.5 {
		t.Fatalf("one basic: %+v", out)
	}

	// Primary always succeeds, so the secondary must not run.
	out, err = e.resolveRndStrategy(WeeklyDecision{Strategy: StrategyTwoIfFail, TierPrimary: "basic", TierSecondary: "premium"}, cfg)
	if err != nil {
		t.Fatalf("two-if-fail: %v", err)
	}
	if len(out.Tests) != 1 || out.Cost != 1_000 {
		t.Fatalf("secondary ran despite primary success: %+v", out)
	}

	// Primary always fails, so the secondary must run.
	out, err = e.resolveRndStrategy(WeeklyDecision{Strategy: StrategyTwoIfFail, TierPrimary: "standard", TierSecondary: "advanced"}, cfg)
	if err != nil {
		t.Fatalf("two-if-fail fallback: %v", err)
	}
	if len(out.Tests) != 2 || out.Cost != 2_500 || !out.Success || out.Multiplier != 1.2 {
		t.Fatalf("fallback outcome: %+v", out)
	}

	out, err = e.resolveRndStrategy(WeeklyDecision{Strategy: StrategyTwoAlways, TierPrimary: "basic", TierSecondary: "advanced"}, cfg)
	if err != nil {
		t.Fatalf("two-always: %v", err)
	}
	if out.SuccessCount != 2 || out.Cost != 1_500 || out.Multiplier != 1.8 {
		t.Fatalf("two-always outcome: %+v", out)
	}

	if _, err := e.resolveRndStrategy(WeeklyDecision{Strategy: StrategyOne, TierPrimary: "quantum"}, cfg); !errors.Is(err, ErrTierNotConfigured) {
		t.Fatalf("expected ErrTierNotConfigured, got %v", err)
	}
}

func TestEvaluateFunding(t *testing.T) {
	cfg := testInvestmentConfig()

	// Pre-Seed team hitting every Seed threshold advances with a bonus.
	fd := EvaluateFunding(60_000, 4_500, 1, StagePreSeed, cfg)
	if !fd.Advanced || fd.NewStage != StageSeed || fd.Status != StatusPass {
		t.Fatalf("expected advancement to seed: %+v", fd)
	}
	if fd.Bonus != 3_000 { // 60000 * 0.05 * 1.0 (pre-seed has no multiplier)
		t.Fatalf("bonus got %d want 3000", fd.Bonus)
	}

	// One threshold short of the next stage means no partial credit.
	fd = EvaluateFunding(60_000, 3_999, 1, StagePreSeed, cfg)
	if fd.Advanced {
		t.Fatalf("demand below threshold must not advance: %+v", fd)
	}
	if fd.Status != StatusPass {
		t.Fatalf("pre-seed own check passes trivially: %+v", fd)
	}

	// Seed team below its own thresholds fails the week but keeps its stage.
	fd = EvaluateFunding(10_000, 1_000, 1, StageSeed, cfg)
	if fd.Status != StatusFail || fd.NewStage != StageSeed || fd.Advanced {
		t.Fatalf("seed fail: %+v", fd)
	}

	// Seed holding its own thresholds passes without advancing.
	fd = EvaluateFunding(60_000, 4_500, 2, StageSeed, cfg)
	if fd.Status != StatusPass || fd.Advanced {
		t.Fatalf("seed hold: %+v", fd)
	}

	// Advancing out of Seed uses Seed's bonus multiplier.
	fd = EvaluateFunding(200_000, 9_000, 3, StageSeed, cfg)
	if !fd.Advanced || fd.NewStage != StageSeriesA {
		t.Fatalf("expected series A advancement: %+v", fd)
	}
	if fd.Bonus != 10_000 { // 200000 * 0.05 * 1.0
		t.Fatalf("seed bonus got %d want 10000", fd.Bonus)
	}

	// Series C is terminal.
	fd = EvaluateFunding(10_000_000, 100_000, 50, StageSeriesC, cfg)
	if fd.Advanced || fd.NewStage != StageSeriesC {
		t.Fatalf("series C must not advance: %+v", fd)
	}
}

func TestAwardForRank(t *testing.T) {
	th := StageThresholds{Mean: 100_000, SDPercent: 10}
	maxTeams := 10

	prev := int64(1 << 62)
	for rank := 1; rank <= maxTeams; rank++ {
		award := AwardForRank(th, rank, maxTeams)
		if award > prev {
			t.Fatalf("award must not grow with rank: rank=%d award=%d prev=%d", rank, award, prev)
		}
		prev = award
	}

	if first := AwardForRank(th, 1, maxTeams); first <= th.Mean {
		t.Fatalf("rank 1 should land above the mean, got %d", first)
	}
	if last := AwardForRank(th, maxTeams, maxTeams); last >= th.Mean {
		t.Fatalf("last rank should land below the mean, got %d", last)
	}

	// A wide distribution can push the tail negative; payouts clamp at zero.
	wide := StageThresholds{Mean: 1_000, SDPercent: 500}
	if award := AwardForRank(wide, 10, 10); award < 0 {
		t.Fatalf("award must never be negative, got %d", award)
	}

	if AwardForRank(th, 0, maxTeams) != 0 || AwardForRank(th, 1, 0) != 0 {
		t.Fatalf("degenerate inputs must pay nothing")
	}
}

func TestValidateDecision(t *testing.T) {
	valid := []WeeklyDecision{
		{Strategy: StrategySkip, Price: 10},
		{Strategy: StrategyOne, TierPrimary: "basic", Price: 10},
		{Strategy: StrategyTwoIfFail, TierPrimary: "basic", TierSecondary: "standard"},
		{Strategy: StrategyTwoAlways, TierPrimary: "premium", TierSecondary: "advanced"},
	}
	for _, d := range valid {
		if err := ValidateDecision(d); err != nil {
			t.Fatalf("expected %+v to validate: %v", d, err)
		}
	}

	invalid := []WeeklyDecision{
		{Strategy: StrategyOne},
		{Strategy: StrategyTwoIfFail, TierPrimary: "basic"},
		{Strategy: "three-always", TierPrimary: "basic"},
		{Strategy: StrategySkip, Price: -1},
		{Strategy: StrategySkip, AnalyticsUnits: -2},
	}
	for _, d := range invalid {
		if err := ValidateDecision(d); !errors.Is(err, ErrInvalidDecision) {
			t.Fatalf("expected %+v to fail with ErrInvalidDecision, got %v", d, err)
		}
	}
}

func TestValidateTierConfig(t *testing.T) {
	full := RndTierConfig{}
	for _, name := range TierNames {
		full[name] = TierRange{CostMin: 100, CostMax: 200, SuccessMinPct: 10, SuccessMaxPct: 90, MultiplierMinPct: 100, MultiplierMaxPct: 250}
	}
	if err := ValidateTierConfig(full); err != nil {
		t.Fatalf("full config should validate: %v", err)
	}

	missing := RndTierConfig{"basic": full["basic"]}
	if err := ValidateTierConfig(missing); !errors.Is(err, ErrTierNotConfigured) {
		t.Fatalf("expected ErrTierNotConfigured, got %v", err)
	}

	inverted := RndTierConfig{}
	for _, name := range TierNames {
		inverted[name] = full[name]
	}
	inverted["premium"] = TierRange{CostMin: 500, CostMax: 100, SuccessMinPct: 10, SuccessMaxPct: 90, MultiplierMinPct: 100, MultiplierMaxPct: 250}
	if err := ValidateTierConfig(inverted); err == nil {
		t.Fatalf("inverted cost range must fail")
	}
}

func TestStageProgression(t *testing.T) {
	if next, ok := StagePreSeed.Next(); !ok || next != StageSeed {
		t.Fatalf("pre_seed next: %v %v", next, ok)
	}
	if _, ok := StageSeriesC.Next(); ok {
		t.Fatalf("series C must be terminal")
	}
	for stage, name := range map[Stage]string{StagePreSeed: "pre_seed", StageSeriesC: "series_c"} {
		parsed, err := ParseStage(name)
		if err != nil || parsed != stage {
			t.Fatalf("parse %q: %v %v", name, parsed, err)
		}
	}
	if _, err := ParseStage("series_z"); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage")
	}
}
