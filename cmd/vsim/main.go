package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	cl "venturesim/internal/cli"
	"venturesim/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "vsim",
		Short:        "Venture simulation admin CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newUseCmd(),
		newCreateCmd(),
		newStatusCmd(),
		newStandingsCmd(),
		newTeamCmd(),
		newSubmitCmd(),
		newAdvanceCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newClient resolves connection settings from env first, then the saved
// ~/.vsim context.
func newClient() (*cl.Client, cl.Settings, error) {
	cfg := config.LoadCLIFromEnv()
	saved, err := cl.LoadSettings()
	if err != nil {
		return nil, cl.Settings{}, err
	}
	base := cfg.APIBaseURL
	if saved.APIBaseURL != "" {
		base = saved.APIBaseURL
	}
	token := cfg.AdminToken
	if token == "" {
		token = saved.AdminToken
	}
	return cl.NewClient(base, token), saved, nil
}

func resolveGameID(saved cl.Settings, flagID int64) (int64, error) {
	if flagID > 0 {
		return flagID, nil
	}
	if saved.GameID > 0 {
		return saved.GameID, nil
	}
	return 0, fmt.Errorf("no game selected: pass --game or run `vsim use`")
}

func newUseCmd() *cobra.Command {
	var gameID int64
	var baseURL, adminToken string
	cmd := &cobra.Command{
		Use:   "use",
		Short: "Save default game id, API base URL and admin token",
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := cl.LoadSettings()
			if err != nil {
				return err
			}
			if gameID > 0 {
				saved.GameID = gameID
			}
			if strings.TrimSpace(baseURL) != "" {
				saved.APIBaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
			}
			if strings.TrimSpace(adminToken) != "" {
				saved.AdminToken = strings.TrimSpace(adminToken)
			}
			if err := cl.SaveSettings(saved); err != nil {
				return err
			}
			printSuccess("Settings saved.")
			return nil
		},
	}
	cmd.Flags().Int64Var(&gameID, "game", 0, "default game id")
	cmd.Flags().StringVar(&baseURL, "api", "", "API base URL")
	cmd.Flags().StringVar(&adminToken, "token", "", "admin token")
	return cmd
}

func newCreateCmd() *cobra.Command {
	var configPath string
	var activate bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game session from a JSON config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(configPath)
			if err != nil {
				return err
			}
			var in map[string]any
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("parse %s: %w", configPath, err)
			}
			if activate {
				in["activate"] = true
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client, saved, err := newClient()
			if err != nil {
				return err
			}
			out, err := client.CreateGame(ctx, in)
			if err != nil {
				return err
			}
			id, _ := out["id"].(float64)
			printSuccess(fmt.Sprintf("Game %d created.", int64(id)))
			saved.GameID = int64(id)
			if err := cl.SaveSettings(saved); err != nil {
				printWarn(fmt.Sprintf("could not save default game id: %v", err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "game.json", "path to session config JSON")
	cmd.Flags().BoolVar(&activate, "activate", false, "start the game immediately")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var gameID int64
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session week, status and countdown anchor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client, saved, err := newClient()
			if err != nil {
				return err
			}
			id, err := resolveGameID(saved, gameID)
			if err != nil {
				return err
			}
			out, err := client.GameState(ctx, id)
			if err != nil {
				return err
			}
			renderStatus(out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&gameID, "game", 0, "game id")
	return cmd
}

func newStandingsCmd() *cobra.Command {
	var gameID int64
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Show teams ranked by funding stage and balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client, saved, err := newClient()
			if err != nil {
				return err
			}
			id, err := resolveGameID(saved, gameID)
			if err != nil {
				return err
			}
			out, err := client.Standings(ctx, id)
			if err != nil {
				return err
			}
			renderStandings(out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&gameID, "game", 0, "game id")
	return cmd
}

func newTeamCmd() *cobra.Command {
	var gameID int64
	var name string
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Register a team in the selected game",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client, saved, err := newClient()
			if err != nil {
				return err
			}
			id, err := resolveGameID(saved, gameID)
			if err != nil {
				return err
			}
			out, err := client.CreateTeam(ctx, id, strings.TrimSpace(name))
			if err != nil {
				return err
			}
			teamID, _ := out["id"].(float64)
			printSuccess(fmt.Sprintf("Team %d registered.", int64(teamID)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&gameID, "game", 0, "game id")
	cmd.Flags().StringVar(&name, "name", "", "team name")
	return cmd
}

func newSubmitCmd() *cobra.Command {
	var gameID, teamID, price, analytics int64
	var strategy, primary, secondary string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a team's weekly decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			if teamID <= 0 {
				return fmt.Errorf("--team is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client, saved, err := newClient()
			if err != nil {
				return err
			}
			id, err := resolveGameID(saved, gameID)
			if err != nil {
				return err
			}
			in := map[string]any{
				"team_id":                   teamID,
				"price":                     price,
				"rnd_strategy":              strategy,
				"analytics_units_purchased": analytics,
			}
			if primary != "" {
				in["rnd_tier_primary"] = primary
			}
			if secondary != "" {
				in["rnd_tier_secondary"] = secondary
			}
			out, err := client.SubmitDecision(ctx, id, in)
			if err != nil {
				return err
			}
			week, _ := out["week"].(float64)
			printSuccess(fmt.Sprintf("Decision recorded for team %d, week %d.", teamID, int(week)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&gameID, "game", 0, "game id")
	cmd.Flags().Int64Var(&teamID, "team", 0, "team id")
	cmd.Flags().Int64Var(&price, "price", 0, "product price")
	cmd.Flags().StringVar(&strategy, "strategy", "skip", "rnd strategy: skip, one, two-if-fail, two-always")
	cmd.Flags().StringVar(&primary, "tier", "", "primary rnd tier")
	cmd.Flags().StringVar(&secondary, "tier2", "", "secondary rnd tier")
	cmd.Flags().Int64Var(&analytics, "analytics", 0, "analytics units to purchase")
	return cmd
}

func newAdvanceCmd() *cobra.Command {
	var gameID int64
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Settle the current week and advance the game",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			client, saved, err := newClient()
			if err != nil {
				return err
			}
			id, err := resolveGameID(saved, gameID)
			if err != nil {
				return err
			}
			out, err := client.AdvanceWeek(ctx, id)
			if err != nil {
				return err
			}
			renderAdvance(out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&gameID, "game", 0, "game id")
	return cmd
}
