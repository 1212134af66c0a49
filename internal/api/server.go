package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"venturesim/internal/config"
	"venturesim/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	store  game.AdminStore
	engine *game.Engine
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, store game.AdminStore, engine *game.Engine) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		store:  store,
		engine: engine,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/games/{id}", s.handleGameState)
		r.Get("/games/{id}/standings", s.handleStandings)
		r.Post("/games/{id}/teams", s.handleCreateTeam)
		r.Post("/games/{id}/decisions", s.handleSubmitDecision)

		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Post("/games", s.handleCreateGame)
			r.Post("/games/{id}/advance", s.handleAdvance)
		})
	})
}

// adminMiddleware guards session creation and manual advancement behind a
// shared secret. Session and auth mechanics proper are out of scope.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
		if token == "" || token != s.cfg.AdminToken {
			writeError(w, http.StatusUnauthorized, "missing or invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TotalWeeks           int                    `json:"total_weeks"`
		MaxTeams             int                    `json:"max_teams"`
		PopulationSize       int64                  `json:"population_size"`
		InitialCapital       int64                  `json:"initial_capital"`
		CostPerAnalyticsUnit int64                  `json:"cost_per_analytics_unit"`
		TierConfig           game.RndTierConfig     `json:"tier_config"`
		Investment           *game.InvestmentConfig `json:"investment_config"`
		Activate             bool                   `json:"activate"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.TotalWeeks < 1 || in.MaxTeams < 1 || in.PopulationSize < 1 || in.InitialCapital < 1 {
		writeError(w, http.StatusBadRequest, "total_weeks, max_teams, population_size and initial_capital must be positive")
		return
	}
	if in.TierConfig != nil {
		if err := game.ValidateTierConfig(in.TierConfig); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ses := game.GameSession{
		TotalWeeks:           in.TotalWeeks,
		MaxTeams:             in.MaxTeams,
		PopulationSize:       in.PopulationSize,
		InitialCapital:       in.InitialCapital,
		CostPerAnalyticsUnit: in.CostPerAnalyticsUnit,
		Investment:           in.Investment,
	}
	if in.TierConfig != nil {
		ses.TierConfig = &in.TierConfig
	}
	if in.Activate {
		ses.Status = game.StatusActive
	}
	id, err := s.store.CreateSession(r.Context(), ses)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	ses, err := s.store.Session(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ses)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "team name is required")
		return
	}
	id, err := s.store.CreateTeam(r.Context(), game.Team{GameID: gameID, Name: name})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	if _, err := s.store.Session(r.Context(), gameID); err != nil {
		writeDomainError(w, err)
		return
	}
	teams, err := s.store.Standings(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rows := make([]teamView, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, newTeamView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": rows})
}

func (s *Server) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	var in struct {
		TeamID         int64  `json:"team_id"`
		Price          int64  `json:"price"`
		Strategy       string `json:"rnd_strategy"`
		TierPrimary    string `json:"rnd_tier_primary"`
		TierSecondary  string `json:"rnd_tier_secondary"`
		AnalyticsUnits int64  `json:"analytics_units_purchased"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ses, err := s.store.Session(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ses.Status == game.StatusCompleted {
		writeDomainError(w, game.ErrSessionCompleted)
		return
	}
	dec := game.WeeklyDecision{
		TeamID:         in.TeamID,
		Week:           ses.CurrentWeek,
		Price:          in.Price,
		Strategy:       game.Strategy(in.Strategy),
		TierPrimary:    in.TierPrimary,
		TierSecondary:  in.TierSecondary,
		AnalyticsUnits: in.AnalyticsUnits,
	}
	if err := game.ValidateDecision(dec); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.store.SaveDecision(r.Context(), dec); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"team_id": dec.TeamID, "week": dec.Week})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	summary, err := s.engine.AdvanceWeek(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(summary))
}

type teamView struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Balance            int64  `json:"balance"`
	Stage              string `json:"funding_stage"`
	SuccessfulRndTests int    `json:"successful_rnd_tests"`
}

func newTeamView(t game.Team) teamView {
	return teamView{
		ID:                 t.ID,
		Name:               t.Name,
		Balance:            t.Balance,
		Stage:              t.Stage.String(),
		SuccessfulRndTests: t.SuccessfulRndTests,
	}
}

type awardView struct {
	Stage  string `json:"stage"`
	Rank   int    `json:"rank"`
	TeamID int64  `json:"team_id"`
	Award  int64  `json:"award_amount"`
	Week   int    `json:"week_number"`
}

type summaryView struct {
	GameID         int64              `json:"game_id"`
	NewWeek        int                `json:"new_week"`
	TotalWeeks     int                `json:"total_weeks"`
	TeamsProcessed int                `json:"teams_processed"`
	Completed      bool               `json:"completed"`
	Failures       []game.TeamFailure `json:"failures"`
	Awards         []awardView        `json:"awards"`
}

func newSummaryView(s game.AdvanceSummary) summaryView {
	out := summaryView{
		GameID:         s.GameID,
		NewWeek:        s.NewWeek,
		TotalWeeks:     s.TotalWeeks,
		TeamsProcessed: s.TeamsProcessed,
		Completed:      s.Completed,
		Failures:       s.Failures,
		Awards:         make([]awardView, 0, len(s.Awards)),
	}
	if out.Failures == nil {
		out.Failures = []game.TeamFailure{}
	}
	for _, a := range s.Awards {
		out.Awards = append(out.Awards, awardView{
			Stage:  a.Stage.String(),
			Rank:   a.Rank,
			TeamID: a.TeamID,
			Award:  a.Award,
			Week:   a.Week,
		})
	}
	return out
}

func gameIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return 0, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrSessionCompleted),
		errors.Is(err, game.ErrAdvanceInProgress),
		errors.Is(err, game.ErrDecisionExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNoParticipants),
		errors.Is(err, game.ErrConfigMissing),
		errors.Is(err, game.ErrInvalidDecision),
		errors.Is(err, game.ErrGameFull):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
