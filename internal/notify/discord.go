package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"venturesim/internal/game"
)

// Discord posts milestone and lost-round announcements to a channel. Every
// failure is logged and dropped; settlement never waits on Discord.
type Discord struct {
	session   *discordgo.Session
	channelID string
	log       *slog.Logger
}

func NewDiscord(token, channelID string, log *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID, log: log}, nil
}

func (d *Discord) MilestoneReached(_ context.Context, m game.MilestoneAchievement) {
	msg := fmt.Sprintf("Team %d reached %s (#%d in game %d) and earned a %d award.",
		m.TeamID, m.Stage, m.Rank, m.GameID, m.Award)
	if _, err := d.session.ChannelMessageSend(d.channelID, msg); err != nil {
		d.log.Warn("discord milestone notification failed",
			"game_id", m.GameID, "team_id", m.TeamID, "err", err)
	}
}

func (d *Discord) RoundLost(_ context.Context, gameID, teamID int64, week int) {
	msg := fmt.Sprintf("Team %d in game %d went insolvent in week %d and restarts from initial capital.",
		teamID, gameID, week)
	if _, err := d.session.ChannelMessageSend(d.channelID, msg); err != nil {
		d.log.Warn("discord lost-round notification failed",
			"game_id", gameID, "team_id", teamID, "err", err)
	}
}
