package handlers

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	plib "github.com/nvallance/quaver/internal/player"
	"github.com/nvallance/quaver/internal/repository"
	"github.com/nvallance/quaver/internal/ui"
)

// handleComponent routes the now-playing control buttons. Each press mutates
// the player and then refreshes the message the button lives on so the
// controls always reflect the current state.
func (h *CommandHandler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.componentEphemeral(s, i, "this session has ended")
		return
	}

	ctx := context.Background()
	customID := i.MessageComponentData().CustomID

	var err error
	switch customID {
	case ui.ButtonPrevious:
		var ok bool
		ok, err = p.PlayPrevious(ctx)
		if err == nil && !ok {
			h.componentEphemeral(s, i, "no song to go back to")
			return
		}
	case ui.ButtonPlayPause:
		snap := p.Snapshot()
		if snap.Status == plib.StatusPlaying {
			err = p.Pause(ctx)
		} else {
			err = p.Resume(ctx)
		}
	case ui.ButtonSkip:
		var ok bool
		ok, err = p.Skip(ctx)
		if err == nil && !ok {
			h.componentEphemeral(s, i, "no song to skip to")
			return
		}
	case ui.ButtonLoop:
		mode := h.cycleLoop(p, i.GuildID)
		slog.Info("button loop", "guildID", i.GuildID, "userID", userIDOf(i), "mode", mode.String())
	case ui.ButtonShuffle:
		if !p.Shuffle() {
			h.componentEphemeral(s, i, "not enough tracks to shuffle")
			return
		}
	default:
		slog.Debug("unknown component", "customID", customID, "guildID", i.GuildID)
		return
	}

	if err != nil {
		slog.Debug("button action failed", "customID", customID, "guildID", i.GuildID, "err", err)
		if errors.Is(err, plib.ErrTrackEndInProgress) {
			h.componentEphemeral(s, i, "hold on, still wrapping up the last track")
			return
		}
		h.componentEphemeral(s, i, "that didn't work, try again")
		return
	}

	h.refreshControls(s, i, p)
}

// cycleLoop steps none -> track -> queue -> none and persists the result.
func (h *CommandHandler) cycleLoop(p *plib.Player, guildID string) plib.LoopMode {
	var next plib.LoopMode
	switch p.Snapshot().State.Loop {
	case plib.LoopNone:
		next = plib.LoopTrack
	case plib.LoopTrack:
		next = plib.LoopQueue
	default:
		next = plib.LoopNone
	}
	p.SetLoopMode(next)
	h.persistSettings(guildID, func(set *repository.Settings) {
		set.LoopMode = next.String()
	})
	return next
}

// refreshControls re-renders the now-playing message in place.
func (h *CommandHandler) refreshControls(s *discordgo.Session, i *discordgo.InteractionCreate, p *plib.Player) {
	snap := p.Snapshot()
	if snap.NowPlaying == nil {
		// track ran out underneath the button; just acknowledge
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}); err != nil {
			slog.Warn("component ack failed", "guildID", i.GuildID, "err", err)
		}
		return
	}

	pos, hasPos := h.lava.Position(i.GuildID)
	embed := ui.BuildPlayingEmbed(snap, pos, hasPos)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: ui.ControlsRow(snap),
		},
	}); err != nil {
		slog.Warn("component update failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) componentEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		slog.Warn("component reply failed", "guildID", i.GuildID, "err", err)
	}
}
