package main

import (
	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func renderStatus(out map[string]any) {
	accent.Printf("Game %v\n", asInt(out["id"]))
	neutral.Printf("  week:       %v / %v\n", asInt(out["current_week"]), asInt(out["total_weeks"]))
	neutral.Printf("  status:     %v\n", out["status"])
	neutral.Printf("  max teams:  %v\n", asInt(out["max_teams"]))
	neutral.Printf("  week start: %v\n", out["week_start_time"])
}

func renderStandings(out map[string]any) {
	teams, _ := out["teams"].([]any)
	if len(teams) == 0 {
		warn.Println("No teams registered.")
		return
	}
	accent.Printf("%-4s %-20s %-10s %12s %6s\n", "#", "TEAM", "STAGE", "BALANCE", "R&D")
	for i, row := range teams {
		t, _ := row.(map[string]any)
		neutral.Printf("%-4d %-20v %-10v %12d %6d\n",
			i+1, t["name"], t["funding_stage"], asInt(t["balance"]), asInt(t["successful_rnd_tests"]))
	}
}

func renderAdvance(out map[string]any) {
	if completed, _ := out["completed"].(bool); completed {
		success.Printf("Game %d completed after week %d.\n", asInt(out["game_id"]), asInt(out["new_week"]))
	} else {
		success.Printf("Game %d advanced to week %d of %d.\n",
			asInt(out["game_id"]), asInt(out["new_week"]), asInt(out["total_weeks"]))
	}
	neutral.Printf("  teams processed: %d\n", asInt(out["teams_processed"]))

	if awards, _ := out["awards"].([]any); len(awards) > 0 {
		accent.Println("Milestone awards:")
		for _, row := range awards {
			a, _ := row.(map[string]any)
			neutral.Printf("  team %d reached %v (#%d): %d\n",
				asInt(a["team_id"]), a["stage"], asInt(a["rank"]), asInt(a["award_amount"]))
		}
	}
	if failures, _ := out["failures"].([]any); len(failures) > 0 {
		danger.Println("Failed teams:")
		for _, row := range failures {
			f, _ := row.(map[string]any)
			danger.Printf("  team %d: %v\n", asInt(f["team_id"]), f["error"])
		}
	}
}

func asInt(v any) int64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int64(f)
}
