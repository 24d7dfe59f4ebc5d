package ui

import (
	"github.com/bwmarrin/discordgo"

	"github.com/nvallance/quaver/internal/player"
)

// Custom ids for the now-playing control buttons. The interaction handler
// routes on these.
const (
	ButtonPrevious  = "player:previous"
	ButtonPlayPause = "player:playpause"
	ButtonSkip      = "player:skip"
	ButtonLoop      = "player:loop"
	ButtonShuffle   = "player:shuffle"
)

// ControlsRow builds the button row shown under the now-playing embed.
func ControlsRow(snap player.Snapshot) []discordgo.MessageComponent {
	playPause := "⏸️"
	if snap.Status == player.StatusPaused {
		playPause = "▶️"
	}
	loopStyle := discordgo.SecondaryButton
	if snap.State.Loop != player.LoopNone {
		loopStyle = discordgo.PrimaryButton
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{CustomID: ButtonPrevious, Style: discordgo.SecondaryButton, Emoji: &discordgo.ComponentEmoji{Name: "⏮️"}},
				discordgo.Button{CustomID: ButtonPlayPause, Style: discordgo.SecondaryButton, Emoji: &discordgo.ComponentEmoji{Name: playPause}},
				discordgo.Button{CustomID: ButtonSkip, Style: discordgo.SecondaryButton, Emoji: &discordgo.ComponentEmoji{Name: "⏭️"}},
				discordgo.Button{CustomID: ButtonLoop, Style: loopStyle, Emoji: &discordgo.ComponentEmoji{Name: "🔁"}},
				discordgo.Button{CustomID: ButtonShuffle, Style: discordgo.SecondaryButton, Emoji: &discordgo.ComponentEmoji{Name: "🔀"}},
			},
		},
	}
}
