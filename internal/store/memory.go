package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"venturesim/internal/game"
)

type weekKey struct {
	teamID int64
	week   int
}

type milestoneKey struct {
	gameID int64
	stage  game.Stage
	rank   int
}

// AuditEvent is an append-only record of one settlement run.
type AuditEvent struct {
	ID        string
	GameID    int64
	Event     string
	Payload   map[string]any
	CreatedAt time.Time
}

// Memory is a full in-memory AdminStore used by tests and the no-database
// demo mode.
type Memory struct {
	mu sync.Mutex

	nextSessionID int64
	nextTeamID    int64

	sessions   map[int64]game.GameSession
	advancing  map[int64]bool
	teams      map[int64]game.Team
	decisions  map[weekKey]game.WeeklyDecision
	results    map[weekKey]game.WeeklyResult
	rndTests   []game.RndTestRecord
	milestones map[milestoneKey]game.MilestoneAchievement
	audits     []AuditEvent
}

func NewMemory() *Memory {
	return &Memory{
		sessions:   make(map[int64]game.GameSession),
		advancing:  make(map[int64]bool),
		teams:      make(map[int64]game.Team),
		decisions:  make(map[weekKey]game.WeeklyDecision),
		results:    make(map[weekKey]game.WeeklyResult),
		milestones: make(map[milestoneKey]game.MilestoneAchievement),
	}
}

func (m *Memory) Session(_ context.Context, gameID int64) (game.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ses, ok := m.sessions[gameID]
	if !ok {
		return game.GameSession{}, game.ErrSessionNotFound
	}
	return ses, nil
}

func (m *Memory) ClaimAdvance(_ context.Context, gameID int64, fromWeek int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ses, ok := m.sessions[gameID]
	if !ok {
		return false, game.ErrSessionNotFound
	}
	if m.advancing[gameID] || ses.CurrentWeek != fromWeek {
		return false, nil
	}
	m.advancing[gameID] = true
	return true, nil
}

func (m *Memory) ReleaseAdvance(_ context.Context, gameID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.advancing, gameID)
	return nil
}

func (m *Memory) AdvanceWeek(_ context.Context, gameID int64, newWeek int, status game.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ses, ok := m.sessions[gameID]
	if !ok {
		return game.ErrSessionNotFound
	}
	ses.CurrentWeek = newWeek
	ses.Status = status
	ses.WeekStartTime = time.Now()
	m.sessions[gameID] = ses
	return nil
}

func (m *Memory) Teams(_ context.Context, gameID int64) ([]game.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Team
	for _, t := range m.teams {
		if t.GameID == gameID {
			out = append(out, t)
		}
	}
	sortTeamsByID(out)
	return out, nil
}

func (m *Memory) UpdateTeam(_ context.Context, team game.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[team.ID]; !ok {
		return fmt.Errorf("team %d not found", team.ID)
	}
	m.teams[team.ID] = team
	return nil
}

func (m *Memory) Decision(_ context.Context, teamID int64, week int) (game.WeeklyDecision, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dec, ok := m.decisions[weekKey{teamID, week}]
	return dec, ok, nil
}

func (m *Memory) Result(_ context.Context, teamID int64, week int) (game.WeeklyResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[weekKey{teamID, week}]
	return res, ok, nil
}

func (m *Memory) SaveResult(_ context.Context, result game.WeeklyResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[weekKey{result.TeamID, result.Week}] = result
	return nil
}

func (m *Memory) SaveRndTests(_ context.Context, tests []game.RndTestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rndTests = append(m.rndTests, tests...)
	return nil
}

func (m *Memory) MilestoneExists(_ context.Context, gameID int64, stage game.Stage, rank int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.milestones[milestoneKey{gameID, stage, rank}]
	return ok, nil
}

func (m *Memory) SaveMilestone(_ context.Context, a game.MilestoneAchievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := milestoneKey{a.GameID, a.Stage, a.Rank}
	if _, ok := m.milestones[key]; ok {
		return fmt.Errorf("milestone already recorded: game %d stage %s rank %d", a.GameID, a.Stage, a.Rank)
	}
	m.milestones[key] = a
	return nil
}

func (m *Memory) AppendAudit(_ context.Context, gameID int64, event string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, AuditEvent{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Event:     event,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s game.GameSession) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSessionID++
	s.ID = m.nextSessionID
	if s.CurrentWeek == 0 {
		s.CurrentWeek = 1
	}
	if s.Status == "" {
		s.Status = game.StatusSetup
	}
	s.WeekStartTime = time.Now()
	m.sessions[s.ID] = s
	return s.ID, nil
}

func (m *Memory) CreateTeam(_ context.Context, t game.Team) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ses, ok := m.sessions[t.GameID]
	if !ok {
		return 0, game.ErrSessionNotFound
	}
	count := 0
	for _, existing := range m.teams {
		if existing.GameID == t.GameID {
			count++
		}
	}
	if ses.MaxTeams > 0 && count >= ses.MaxTeams {
		return 0, game.ErrGameFull
	}
	m.nextTeamID++
	t.ID = m.nextTeamID
	if t.Balance == 0 {
		t.Balance = ses.InitialCapital
	}
	m.teams[t.ID] = t
	return t.ID, nil
}

func (m *Memory) SaveDecision(_ context.Context, d game.WeeklyDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := weekKey{d.TeamID, d.Week}
	if _, ok := m.decisions[key]; ok {
		return game.ErrDecisionExists
	}
	m.decisions[key] = d
	return nil
}

func (m *Memory) Standings(ctx context.Context, gameID int64) ([]game.Team, error) {
	teams, err := m.Teams(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sortStandings(teams)
	return teams, nil
}

func (m *Memory) DueSessions(_ context.Context, olderThan time.Duration) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []int64
	for id, ses := range m.sessions {
		if ses.Status == game.StatusActive && !m.advancing[id] && ses.WeekStartTime.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Audits returns a copy of the audit trail; test helper.
func (m *Memory) Audits() []AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEvent, len(m.audits))
	copy(out, m.audits)
	return out
}

// RndTests returns a copy of the executed-test log; test helper.
func (m *Memory) RndTests() []game.RndTestRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.RndTestRecord, len(m.rndTests))
	copy(out, m.rndTests)
	return out
}

// Milestones returns the recorded achievements; test helper.
func (m *Memory) Milestones() []game.MilestoneAchievement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.MilestoneAchievement, 0, len(m.milestones))
	for _, a := range m.milestones {
		out = append(out, a)
	}
	return out
}

func sortTeamsByID(teams []game.Team) {
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
}

func sortStandings(teams []game.Team) {
	sort.Slice(teams, func(i, j int) bool { return standingLess(teams[i], teams[j]) })
}

func standingLess(a, b game.Team) bool {
	if a.Stage != b.Stage {
		return a.Stage > b.Stage
	}
	if a.Balance != b.Balance {
		return a.Balance > b.Balance
	}
	return a.ID < b.ID
}
