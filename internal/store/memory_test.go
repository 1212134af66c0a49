package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"venturesim/internal/game"
)

func newSession(t *testing.T, m *Memory) int64 {
	t.Helper()
	id, err := m.CreateSession(context.Background(), game.GameSession{
		TotalWeeks:     4,
		MaxTeams:       2,
		PopulationSize: 1_000,
		InitialCapital: 50_000,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return id
}

func TestClaimAdvanceSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := newSession(t, m)

	claimed, err := m.ClaimAdvance(ctx, id, 1)
	if err != nil || !claimed {
		t.Fatalf("first claim: %v %v", claimed, err)
	}
	claimed, err = m.ClaimAdvance(ctx, id, 1)
	if err != nil || claimed {
		t.Fatalf("second claim must lose: %v %v", claimed, err)
	}

	if err := m.ReleaseAdvance(ctx, id); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Stale week numbers cannot claim either.
	claimed, err = m.ClaimAdvance(ctx, id, 7)
	if err != nil || claimed {
		t.Fatalf("stale-week claim must lose: %v %v", claimed, err)
	}
	claimed, err = m.ClaimAdvance(ctx, id, 1)
	if err != nil || !claimed {
		t.Fatalf("reclaim after release: %v %v", claimed, err)
	}
}

func TestCreateTeamDefaultsAndCapacity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := newSession(t, m)

	teamID, err := m.CreateTeam(ctx, game.Team{GameID: id, Name: "one"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	teams, err := m.Teams(ctx, id)
	if err != nil || len(teams) != 1 {
		t.Fatalf("teams: %v %v", teams, err)
	}
	if teams[0].ID != teamID || teams[0].Balance != 50_000 || teams[0].Stage != game.StagePreSeed {
		t.Fatalf("team defaults: %+v", teams[0])
	}

	if _, err := m.CreateTeam(ctx, game.Team{GameID: id, Name: "two"}); err != nil {
		t.Fatalf("second team: %v", err)
	}
	if _, err := m.CreateTeam(ctx, game.Team{GameID: id, Name: "three"}); !errors.Is(err, game.ErrGameFull) {
		t.Fatalf("expected ErrGameFull, got %v", err)
	}
	if _, err := m.CreateTeam(ctx, game.Team{GameID: 99, Name: "lost"}); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSaveDecisionImmutable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := newSession(t, m)
	teamID, err := m.CreateTeam(ctx, game.Team{GameID: id, Name: "one"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	d := game.WeeklyDecision{TeamID: teamID, Week: 1, Price: 10, Strategy: game.StrategySkip}
	if err := m.SaveDecision(ctx, d); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	d.Price = 999
	if err := m.SaveDecision(ctx, d); !errors.Is(err, game.ErrDecisionExists) {
		t.Fatalf("expected ErrDecisionExists, got %v", err)
	}

	got, ok, err := m.Decision(ctx, teamID, 1)
	if err != nil || !ok || got.Price != 10 {
		t.Fatalf("original decision must survive: %+v %v %v", got, ok, err)
	}
}

func TestStandingsOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.CreateSession(ctx, game.GameSession{TotalWeeks: 4, MaxTeams: 5, InitialCapital: 1})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	seed := []game.Team{
		{GameID: id, Name: "rich-preseed", Balance: 900_000, Stage: game.StagePreSeed},
		{GameID: id, Name: "poor-seriesa", Balance: 1_000, Stage: game.StageSeriesA},
		{GameID: id, Name: "rich-seed", Balance: 500_000, Stage: game.StageSeed},
		{GameID: id, Name: "poor-seed", Balance: 400, Stage: game.StageSeed},
	}
	for _, tm := range seed {
		if _, err := m.CreateTeam(ctx, tm); err != nil {
			t.Fatalf("create %s: %v", tm.Name, err)
		}
	}

	got, err := m.Standings(ctx, id)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	want := []string{"poor-seriesa", "rich-seed", "poor-seed", "rich-preseed"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %s want %s (all: %+v)", i, got[i].Name, name, got)
		}
	}
}

func TestDueSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	activeID, err := m.CreateSession(ctx, game.GameSession{TotalWeeks: 4, MaxTeams: 2, InitialCapital: 1, Status: game.StatusActive})
	if err != nil {
		t.Fatalf("create active: %v", err)
	}
	if _, err := m.CreateSession(ctx, game.GameSession{TotalWeeks: 4, MaxTeams: 2, InitialCapital: 1}); err != nil {
		t.Fatalf("create setup: %v", err)
	}

	// The active session just started, so nothing is due yet.
	due, err := m.DueSessions(ctx, 0)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0] != activeID {
		t.Fatalf("only the active session can be due: %+v", due)
	}

	due, err = m.DueSessions(ctx, time.Hour)
	if err != nil || len(due) != 0 {
		t.Fatalf("nothing is an hour overdue yet: %+v %v", due, err)
	}
}
