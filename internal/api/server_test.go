package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"venturesim/internal/config"
	"venturesim/internal/game"
	"venturesim/internal/pricing"
	"venturesim/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := game.NewEngineWithSeed(mem, pricing.DefaultCurve(), nil, logger, 1)
	cfg := config.APIConfig{AdminToken: "secret"}
	return New(cfg, logger, mem, engine), mem
}

func doJSON(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
}

func TestAdminTokenRequired(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"total_weeks":4,"max_teams":2,"population_size":1000,"initial_capital":50000}`

	if rec := doJSON(t, s, http.MethodPost, "/v1/games", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/v1/games", "wrong", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/v1/games", "secret", body); rec.Code != http.StatusCreated {
		t.Fatalf("valid token: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestGameNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := doJSON(t, s, http.MethodGet, "/v1/games/42", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/v1/games/abc", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d", rec.Code)
	}
}

func TestSubmitDecisionFlow(t *testing.T) {
	s, mem := newTestServer(t)
	ctx := context.Background()

	gameID, err := mem.CreateSession(ctx, game.GameSession{
		TotalWeeks: 4, MaxTeams: 2, PopulationSize: 1_000, InitialCapital: 50_000,
		Status: game.StatusActive,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	base := fmt.Sprintf("/v1/games/%d", gameID)

	rec := doJSON(t, s, http.MethodPost, base+"/teams", "", `{"name":"alpha"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create team: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode team id: %v", err)
	}

	body := fmt.Sprintf(`{"team_id":%d,"price":10,"rnd_strategy":"skip"}`, created.ID)
	if rec := doJSON(t, s, http.MethodPost, base+"/decisions", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", rec.Code, rec.Body.String())
	}
	// Decisions are immutable: a second submission for the week conflicts.
	if rec := doJSON(t, s, http.MethodPost, base+"/decisions", "", body); rec.Code != http.StatusConflict {
		t.Fatalf("resubmit: status %d", rec.Code)
	}

	bad := fmt.Sprintf(`{"team_id":%d,"price":10,"rnd_strategy":"one"}`, created.ID)
	if rec := doJSON(t, s, http.MethodPost, base+"/decisions", "", bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid decision: status %d", rec.Code)
	}
}
