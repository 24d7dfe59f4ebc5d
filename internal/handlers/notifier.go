package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nvallance/quaver/internal/player"
	"github.com/nvallance/quaver/internal/ui"
)

func millisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Bot implements player.Notifier: the coordinator reports transitions, the
// bot renders them. None of these callbacks mutate player state.

func (b *Bot) TrackStarted(guildID string, t player.Track) {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return
	}

	chID := b.textChannel(guildID)
	if chID == "" {
		return
	}

	set, err := b.repo.GetSettings(context.Background(), guildID)
	if err == nil && set != nil && !set.AutoAnnounceNext {
		return
	}

	p := b.pm.Peek(guildID)
	if p == nil {
		return
	}

	// replace the previous now-playing message instead of stacking them
	if ref, ok := b.pm.Registry().Lookup(guildID); ok {
		_ = s.ChannelMessageDelete(ref.ChannelID, ref.MessageID)
		b.pm.Registry().Unregister(guildID)
	}

	snap := p.Snapshot()
	pos, hasPos := b.lava.Position(guildID)
	msg, err := s.ChannelMessageSendComplex(chID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{ui.BuildPlayingEmbed(snap, pos, hasPos)},
		Components: ui.ControlsRow(snap),
	})
	if err != nil {
		slog.Warn("send now-playing message failed", "guildID", guildID, "err", err)
		return
	}
	b.pm.Registry().Register(guildID, player.MessageRef{ChannelID: chID, MessageID: msg.ID})
}

func (b *Bot) QueueEmpty(guildID string) {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return
	}
	if chID := b.textChannel(guildID); chID != "" {
		if _, err := s.ChannelMessageSend(chID, "Queue is empty, nothing left to play"); err != nil {
			slog.Debug("queue empty announce failed", "guildID", guildID, "err", err)
		}
	}
}

func (b *Bot) SessionEnded(guildID string) {
	b.LeaveVoice(guildID)
	b.lava.ClearPosition(guildID)
	b.pm.Remove(guildID)

	b.mu.Lock()
	delete(b.textChannels, guildID)
	b.mu.Unlock()
}
