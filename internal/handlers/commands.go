package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/nvallance/quaver/internal/autocomplete"
	"github.com/nvallance/quaver/internal/config"
	"github.com/nvallance/quaver/internal/lavalink"
	plib "github.com/nvallance/quaver/internal/player"
	"github.com/nvallance/quaver/internal/repository"
	"github.com/nvallance/quaver/internal/spotify"
	"github.com/nvallance/quaver/internal/ui"
	"github.com/nvallance/quaver/internal/utils"
)

type CommandHandler struct {
	cfg  *config.Config
	repo *repository.Repo
	pm   *plib.Manager
	bot  *Bot
	favs *repository.FavoritesService
	sp   *spotify.Client
	lava *lavalink.Client
}

func NewCommandHandler(cfg *config.Config, repo *repository.Repo, pm *plib.Manager, bot *Bot, favs *repository.FavoritesService, sp *spotify.Client) *CommandHandler {
	return &CommandHandler{cfg: cfg, repo: repo, pm: pm, bot: bot, favs: favs, sp: sp, lava: bot.lava}
}

func loopModeChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "off", Value: "none"},
		{Name: "track", Value: "track"},
		{Name: "queue", Value: "queue"},
	}
}

func effectChoices() []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(plib.AllEffects))
	for _, e := range plib.AllEffects {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: string(e), Value: string(e)})
	}
	return out
}

func (h *CommandHandler) RegisterCommands(s *discordgo.Session, appID string, guildID string) error {
	start := time.Now()
	slog.Info("registering application commands", "appID", appID, "guildID", guildID)

	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a song (URL, search term, or spotify link)",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "query", Description: "query or URL", Type: discordgo.ApplicationCommandOptionString, Required: true, Autocomplete: true},
				{Name: "next", Description: "put it right after the current track", Type: discordgo.ApplicationCommandOptionBoolean},
			},
		},
		{Name: "pause", Description: "pause the current track"},
		{Name: "resume", Description: "resume playback"},
		{Name: "skip", Description: "skip to the next track"},
		{Name: "previous", Description: "go back to the previous track"},
		{Name: "stop", Description: "stop playback and clear the queue"},
		{Name: "disconnect", Description: "end the session and leave the voice channel"},
		{Name: "clear", Description: "drop all upcoming tracks"},
		{Name: "shuffle", Description: "shuffle the upcoming tracks"},
		{Name: "now-playing", Description: "show the currently playing track"},
		{Name: "history", Description: "show recently played tracks"},
		{
			Name:        "queue",
			Description: "show the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "page", Description: "page of queue to show [default: 1]", Type: discordgo.ApplicationCommandOptionInteger},
			},
		},
		{
			Name:        "remove",
			Description: "remove an upcoming track",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "position", Description: "position in the upcoming list [default: 1]", Type: discordgo.ApplicationCommandOptionInteger},
			},
		},
		{
			Name:        "loop",
			Description: "set the loop mode",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "mode", Description: "off, track, or queue", Type: discordgo.ApplicationCommandOptionString, Required: true, Choices: loopModeChoices()},
			},
		},
		{
			Name:        "autoplay",
			Description: "keep playing similar tracks when the queue runs out",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "enabled", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
			},
		},
		{
			Name:        "volume",
			Description: "set playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "level", Description: "0-200", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
			},
		},
		{
			Name:        "effect",
			Description: "toggle an audio effect",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "name", Description: "effect to toggle", Type: discordgo.ApplicationCommandOptionString, Required: true, Choices: effectChoices()},
			},
		},
		{
			Name:        "favorites",
			Description: "Manage favorites",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "use",
					Description: "use a favorite",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "favorite name", Type: discordgo.ApplicationCommandOptionString, Required: true},
						{Name: "next", Description: "put it right after the current track", Type: discordgo.ApplicationCommandOptionBoolean},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "list favorites",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "create favorite",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "name", Type: discordgo.ApplicationCommandOptionString, Required: true},
						{Name: "query", Description: "query", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "remove favorite",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "name", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
			},
		},
		{
			Name:        "config",
			Description: "Configure bot settings",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "get", Description: "show settings"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-default-volume", Description: "volume new sessions start at", Options: []*discordgo.ApplicationCommandOption{
					{Name: "level", Description: "0-200", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-wait-after-queue-empties", Description: "time to wait before leaving VC", Options: []*discordgo.ApplicationCommandOption{
					{Name: "delay", Description: "seconds (0 never leave)", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-leave-if-no-listeners", Description: "leave when no listeners", Options: []*discordgo.ApplicationCommandOption{
					{Name: "value", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-auto-announce-next-song", Description: "auto announce next", Options: []*discordgo.ApplicationCommandOption{
					{Name: "value", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-queue-page-size", Description: "queue page size", Options: []*discordgo.ApplicationCommandOption{
					{Name: "page_size", Description: "1-30", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
			},
		},
	}

	for _, c := range cmds {
		if _, err := s.ApplicationCommandCreate(appID, guildID, c); err != nil {
			slog.Error("failed to create application command", "guildID", guildID, "command", c.Name, "err", err)
			return err
		}
		slog.Debug("registered command", "guildID", guildID, "command", c.Name)
	}

	slog.Info("finished registering commands", "guildID", guildID, "count", len(cmds), "took", time.Since(start))
	return nil
}

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		slog.Debug("interaction: application command", "guildID", i.GuildID, "userID", userIDOf(i), "command", i.ApplicationCommandData().Name)
		h.handleChatCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		slog.Debug("interaction: autocomplete", "guildID", i.GuildID, "userID", userIDOf(i))
		h.handleAutocomplete(s, i)
	case discordgo.InteractionMessageComponent:
		slog.Debug("interaction: component", "guildID", i.GuildID, "userID", userIDOf(i), "customID", i.MessageComponentData().CustomID)
		h.handleComponent(s, i)
	default:
		slog.Debug("interaction: ignored type", "type", i.Type, "guildID", i.GuildID)
	}
}

func (h *CommandHandler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "play" {
		return
	}

	var query string
	for _, opt := range data.Options {
		if opt.Focused {
			query = opt.StringValue()
			break
		}
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}
	if strings.TrimSpace(query) == "" {
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionApplicationCommandAutocompleteResult,
			Data: &discordgo.InteractionResponseData{Choices: []*discordgo.ApplicationCommandOptionChoice{}},
		})
		return
	}

	choices, err := autocomplete.GetSuggestions(context.Background(), query, h.sp, 10)
	if err != nil {
		slog.Warn("autocomplete suggestions error", "guildID", i.GuildID, "err", err)
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}

func (h *CommandHandler) handleChatCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "play":
		h.cmdPlay(s, i)
	case "pause":
		h.cmdPause(s, i)
	case "resume":
		h.cmdResume(s, i)
	case "skip":
		h.cmdSkip(s, i)
	case "previous":
		h.cmdPrevious(s, i)
	case "stop":
		h.cmdStop(s, i)
	case "disconnect":
		h.cmdDisconnect(s, i)
	case "clear":
		h.cmdClear(s, i)
	case "shuffle":
		h.cmdShuffle(s, i)
	case "now-playing":
		h.cmdNowPlaying(s, i)
	case "history":
		h.cmdHistory(s, i)
	case "queue":
		h.cmdQueue(s, i)
	case "remove":
		h.cmdRemove(s, i)
	case "loop":
		h.cmdLoop(s, i)
	case "autoplay":
		h.cmdAutoplay(s, i)
	case "volume":
		h.cmdVolume(s, i)
	case "effect":
		h.cmdEffect(s, i)
	case "favorites":
		h.cmdFavorites(s, i)
	case "config":
		h.cmdConfig(s, i)
	default:
		slog.Debug("unknown command", "name", data.Name, "guildID", i.GuildID, "userID", userIDOf(i))
	}
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := uint64(0)
	if ephemeral {
		flags = 1 << 6
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlags(flags),
		},
	}); err != nil {
		slog.Warn("reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Warn("defer reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		slog.Warn("edit reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

// sessionPlayer returns the guild's player, wiring callbacks and persisted
// settings on first use.
func (h *CommandHandler) sessionPlayer(ctx context.Context, guildID string) (*plib.Player, bool) {
	p, created := h.pm.Get(guildID)
	if created {
		p.SetNotifier(h.bot)
		p.SetRecommender(newRecommender(h.sp, h.lava))
		if set, err := h.repo.GetSettings(ctx, guildID); err == nil && set != nil {
			st := plib.NewState()
			st.Loop = plib.ParseLoopMode(set.LoopMode)
			st.Autoplay = set.Autoplay
			st.Volume = set.DefaultVolume
			p.SeedState(st)
		}
	}
	return p, created
}

// activePlayer fetches an existing session without creating one.
func (h *CommandHandler) activePlayer(guildID string) *plib.Player {
	p := h.pm.Peek(guildID)
	if p == nil || p.Destroyed() {
		return nil
	}
	return p
}

func (h *CommandHandler) enqueueAndMaybeStart(s *discordgo.Session, i *discordgo.InteractionCreate, query string, next bool) {
	guildID := i.GuildID
	memberID := userIDOf(i)

	chID, ok := userInVoice(s, guildID, memberID)
	if !ok {
		slog.Debug("user not in voice", "guildID", guildID, "userID", memberID)
		h.reply(s, i, "gotta be in a voice channel", true)
		return
	}

	ctx := context.Background()
	if _, err := h.repo.UpsertSettings(ctx, guildID); err != nil {
		slog.Warn("upsert settings failed", "guildID", guildID, "err", err)
	}

	h.deferReply(s, i)

	p, created := h.sessionPlayer(ctx, guildID)

	if err := h.bot.JoinVoice(ctx, s, guildID, chID); err != nil {
		slog.Warn("voice connect failed", "guildID", guildID, "channelID", chID, "err", err)
		h.editReply(s, i, "couldn't connect to channel")
		return
	}
	h.bot.SetTextChannel(guildID, i.ChannelID)

	if created {
		if err := p.ApplyState(ctx); err != nil {
			slog.Warn("apply persisted state failed", "guildID", guildID, "err", err)
		}
	}

	res, err := h.resolveQuery(ctx, query, memberID)
	if err != nil {
		slog.Debug("resolve query failed", "guildID", guildID, "userID", memberID, "query", query, "err", err)
		h.editReply(s, i, "no songs found")
		return
	}

	if next && len(res.Tracks) == 1 {
		p.InsertNext(res.Tracks[0])
	} else {
		for _, t := range res.Tracks {
			p.Append(t)
		}
	}

	started, err := p.StartIfIdle(ctx)
	if err != nil {
		slog.Warn("start playback failed", "guildID", guildID, "err", err)
		h.editReply(s, i, "couldn't start playback")
		return
	}

	var msg string
	switch {
	case res.PlaylistName != "":
		msg = fmt.Sprintf("queued %d tracks from **%s**", len(res.Tracks), utils.EscapeMd(res.PlaylistName))
	case next:
		msg = fmt.Sprintf("**%s** will play next", utils.EscapeMd(res.Tracks[0].Title))
	case started:
		msg = fmt.Sprintf("now playing **%s**", utils.EscapeMd(res.Tracks[0].Title))
	default:
		msg = fmt.Sprintf("**%s** added to the queue", utils.EscapeMd(res.Tracks[0].Title))
	}
	slog.Info("enqueued", "guildID", guildID, "userID", memberID, "count", len(res.Tracks), "next", next, "started", started)
	h.editReply(s, i, msg)
}

func (h *CommandHandler) cmdPlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var query string
	var next bool
	for _, o := range i.ApplicationCommandData().Options {
		switch o.Name {
		case "query":
			query = o.StringValue()
		case "next":
			next = o.BoolValue()
		}
	}
	slog.Info("cmd play", "guildID", i.GuildID, "userID", userIDOf(i), "query", query, "next", next)
	h.enqueueAndMaybeStart(s, i, query, next)
}

func (h *CommandHandler) cmdPause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	if err := p.Pause(context.Background()); err != nil {
		slog.Debug("pause failed", "guildID", i.GuildID, "err", err)
		h.reply(s, i, "not currently playing", true)
		return
	}
	slog.Info("cmd pause", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "paused ⏸️", false)
}

func (h *CommandHandler) cmdResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	if err := p.Resume(context.Background()); err != nil {
		slog.Debug("resume failed", "guildID", i.GuildID, "err", err)
		switch {
		case errors.Is(err, plib.ErrAlreadyPlaying):
			h.reply(s, i, "already playing, give me a song name", true)
		default:
			h.reply(s, i, "nothing to resume", true)
		}
		return
	}
	slog.Info("cmd resume", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "resumed ▶️", false)
}

func (h *CommandHandler) cmdSkip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	ok, err := p.Skip(context.Background())
	if err != nil {
		slog.Debug("skip failed", "guildID", i.GuildID, "err", err)
		if errors.Is(err, plib.ErrTrackEndInProgress) {
			h.reply(s, i, "hold on, still wrapping up the last track", true)
			return
		}
		h.reply(s, i, "skip failed", true)
		return
	}
	if !ok {
		h.reply(s, i, "no song to skip to", true)
		return
	}
	slog.Info("cmd skip", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "skipped ⏭️", false)
}

func (h *CommandHandler) cmdPrevious(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	ok, err := p.PlayPrevious(context.Background())
	if err != nil {
		slog.Debug("previous failed", "guildID", i.GuildID, "err", err)
		if errors.Is(err, plib.ErrTrackEndInProgress) {
			h.reply(s, i, "hold on, still wrapping up the last track", true)
			return
		}
		h.reply(s, i, "couldn't go back", true)
		return
	}
	if !ok {
		h.reply(s, i, "no song to go back to", true)
		return
	}
	slog.Info("cmd previous", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "went back ⏮️", false)
}

func (h *CommandHandler) cmdStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "not connected", true)
		return
	}
	if err := p.Stop(context.Background()); err != nil {
		slog.Warn("stop failed", "guildID", i.GuildID, "err", err)
		h.reply(s, i, "stop failed", true)
		return
	}
	slog.Info("cmd stop", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "stopped and cleared the queue", false)
}

func (h *CommandHandler) cmdDisconnect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "not connected", true)
		return
	}
	p.Destroy(context.Background())
	slog.Info("cmd disconnect", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "disconnected 👋", false)
}

func (h *CommandHandler) cmdClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	p.ClearUpcoming()
	slog.Info("cmd clear queue", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "cleared the upcoming tracks", false)
}

func (h *CommandHandler) cmdShuffle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	if !p.Shuffle() {
		h.reply(s, i, "not enough tracks to shuffle", true)
		return
	}
	slog.Info("cmd shuffle", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "shuffled 🔀", false)
}

func (h *CommandHandler) cmdNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is currently playing", true)
		return
	}
	snap := p.Snapshot()
	if snap.NowPlaying == nil {
		h.reply(s, i, "nothing is currently playing", true)
		return
	}

	pos, hasPos := h.lava.Position(i.GuildID)
	embed := ui.BuildPlayingEmbed(snap, pos, hasPos)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: ui.ControlsRow(snap),
		},
	}); err != nil {
		slog.Warn("now-playing respond failed", "guildID", i.GuildID, "err", err)
	}
	slog.Debug("cmd now-playing", "guildID", i.GuildID, "userID", userIDOf(i), "title", snap.NowPlaying.Title)
}

func (h *CommandHandler) cmdHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "no session here", true)
		return
	}
	snap := p.Snapshot()
	if len(snap.History) == 0 {
		h.reply(s, i, "nothing has finished playing yet", true)
		return
	}
	embed := ui.BuildHistoryEmbed(snap)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}); err != nil {
		slog.Warn("history respond failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) cmdQueue(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}

	ctx := context.Background()
	pageSize := 10
	if set, err := h.repo.GetSettings(ctx, i.GuildID); err == nil && set != nil && set.QueuePageSize > 0 {
		pageSize = set.QueuePageSize
	}

	page := 1
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "page" {
			page = int(o.IntValue())
		}
	}

	embed, err := ui.BuildQueueEmbed(p.Snapshot(), page, pageSize)
	if err != nil {
		slog.Debug("build queue embed failed", "guildID", i.GuildID, "page", page, "err", err)
		h.reply(s, i, err.Error(), true)
		return
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}); err != nil {
		slog.Warn("queue respond failed", "guildID", i.GuildID, "err", err)
	}
	slog.Debug("cmd queue", "guildID", i.GuildID, "userID", userIDOf(i), "page", page, "pageSize", pageSize)
}

func (h *CommandHandler) cmdRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	pos := 1
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "position" {
			pos = int(o.IntValue())
		}
	}
	removed, err := p.RemoveUpcoming(pos)
	if err != nil {
		slog.Debug("remove from queue failed", "guildID", i.GuildID, "pos", pos, "err", err)
		h.reply(s, i, "no upcoming track at that position", true)
		return
	}
	slog.Info("cmd remove", "guildID", i.GuildID, "userID", userIDOf(i), "pos", pos, "title", removed.Title)
	h.reply(s, i, fmt.Sprintf(":wastebasket: removed **%s**", utils.EscapeMd(removed.Title)), false)
}

func (h *CommandHandler) cmdLoop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	var raw string
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "mode" {
			raw = o.StringValue()
		}
	}
	mode := plib.ParseLoopMode(raw)
	p.SetLoopMode(mode)
	h.persistSettings(i.GuildID, func(set *repository.Settings) {
		set.LoopMode = mode.String()
	})
	slog.Info("cmd loop", "guildID", i.GuildID, "userID", userIDOf(i), "mode", mode.String())
	switch mode {
	case plib.LoopTrack:
		h.reply(s, i, "looping the current track 🔂", false)
	case plib.LoopQueue:
		h.reply(s, i, "looping the whole queue 🔁", false)
	default:
		h.reply(s, i, "loop off", false)
	}
}

func (h *CommandHandler) cmdAutoplay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	var on bool
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "enabled" {
			on = o.BoolValue()
		}
	}
	p.SetAutoplay(on)
	h.persistSettings(i.GuildID, func(set *repository.Settings) {
		set.Autoplay = on
	})
	slog.Info("cmd autoplay", "guildID", i.GuildID, "userID", userIDOf(i), "on", on)
	if on {
		h.reply(s, i, "autoplay on, the music won't stop", false)
	} else {
		h.reply(s, i, "autoplay off", false)
	}
}

func (h *CommandHandler) cmdVolume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	var level int
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "level" {
			level = int(o.IntValue())
		}
	}
	applied, err := p.SetVolume(context.Background(), level)
	if err != nil {
		slog.Warn("set volume failed", "guildID", i.GuildID, "level", level, "err", err)
		h.reply(s, i, "couldn't set volume", true)
		return
	}
	slog.Info("cmd volume", "guildID", i.GuildID, "userID", userIDOf(i), "level", applied)
	h.reply(s, i, fmt.Sprintf("volume set to %d 🔊", applied), false)
}

func (h *CommandHandler) cmdEffect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := h.activePlayer(i.GuildID)
	if p == nil {
		h.reply(s, i, "nothing is playing here", true)
		return
	}
	var raw string
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "name" {
			raw = o.StringValue()
		}
	}
	effect, ok := plib.ParseEffect(raw)
	if !ok {
		h.reply(s, i, "unknown effect", true)
		return
	}
	on, err := p.ToggleEffect(context.Background(), effect)
	if err != nil {
		slog.Warn("toggle effect failed", "guildID", i.GuildID, "effect", raw, "err", err)
		h.reply(s, i, "couldn't toggle effect", true)
		return
	}
	slog.Info("cmd effect", "guildID", i.GuildID, "userID", userIDOf(i), "effect", raw, "on", on)
	if on {
		h.reply(s, i, fmt.Sprintf("%s on 🎛️", effect), false)
	} else {
		h.reply(s, i, fmt.Sprintf("%s off", effect), false)
	}
}

func (h *CommandHandler) cmdFavorites(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := i.ApplicationCommandData().Options[0]
	ctx := context.Background()
	switch sub.Name {
	case "create":
		var name, query string
		for _, o := range sub.Options {
			if o.Name == "name" {
				name = o.StringValue()
			} else if o.Name == "query" {
				query = o.StringValue()
			}
		}
		if err := h.favs.Create(ctx, i.GuildID, userIDOf(i), name, query); err != nil {
			if errors.Is(err, repository.ErrEmptyFavoriteName) {
				h.reply(s, i, "a favorite needs a name", true)
				return
			}
			if errors.Is(err, repository.ErrDuplicateFavorite) {
				h.reply(s, i, "a favorite with that name already exists", true)
				return
			}
			slog.Warn("favorite create failed", "guildID", i.GuildID, "userID", userIDOf(i), "name", name, "err", err)
			h.reply(s, i, "failed to create favorite", true)
			return
		}
		slog.Info("favorite created", "guildID", i.GuildID, "userID", userIDOf(i), "name", name)
		h.reply(s, i, "👍 favorite created", false)
	case "remove":
		var name string
		for _, o := range sub.Options {
			if o.Name == "name" {
				name = o.StringValue()
			}
		}
		f, err := h.favs.Use(ctx, i.GuildID, name)
		if err != nil {
			h.reply(s, i, "no favorite with that name exists", true)
			return
		}
		if userIDOf(i) != f.Author {
			h.reply(s, i, "you can only remove your own favorites", true)
			return
		}
		if _, err := h.favs.Remove(ctx, i.GuildID, name); err != nil {
			slog.Warn("favorite remove failed", "guildID", i.GuildID, "userID", userIDOf(i), "name", name, "err", err)
			h.reply(s, i, "failed to remove favorite", true)
			return
		}
		slog.Info("favorite removed", "guildID", i.GuildID, "userID", userIDOf(i), "name", name)
		h.reply(s, i, "👍 favorite removed", false)
	case "list":
		items, err := h.favs.List(ctx, i.GuildID)
		if err != nil {
			slog.Warn("favorite list failed", "guildID", i.GuildID, "err", err)
		}
		if len(items) == 0 {
			h.reply(s, i, "there aren't any favorites yet", false)
			return
		}
		var b strings.Builder
		for _, f := range items {
			b.WriteString(fmt.Sprintf("• %s: %s (<@%s>)\n", f.Name, f.Query, f.Author))
		}
		slog.Debug("favorite list", "guildID", i.GuildID, "count", len(items))
		h.reply(s, i, b.String(), true)
	case "use":
		var name string
		var next bool
		for _, o := range sub.Options {
			switch o.Name {
			case "name":
				name = o.StringValue()
			case "next":
				next = o.BoolValue()
			}
		}
		f, err := h.favs.Use(ctx, i.GuildID, name)
		if err != nil {
			h.reply(s, i, "no favorite with that name exists", true)
			return
		}
		slog.Info("favorite used", "guildID", i.GuildID, "userID", userIDOf(i), "name", name)
		h.enqueueAndMaybeStart(s, i, f.Query, next)
	}
}

func (h *CommandHandler) cmdConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if _, err := h.repo.UpsertSettings(ctx, i.GuildID); err != nil {
		slog.Warn("upsert settings failed", "guildID", i.GuildID, "err", err)
	}
	sub := i.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "get":
		set, err := h.repo.GetSettings(ctx, i.GuildID)
		if err != nil {
			slog.Error("get settings failed", "guildID", i.GuildID, "err", err)
			h.reply(s, i, "failed to fetch config", true)
			return
		}
		msg := fmt.Sprintf(
			"Config\n- Default volume: %d\n- Loop mode: %s\n- Autoplay: %t\n- Wait before leaving after queue empty: %s\n- Auto announce next song: %t\n- Queue page size: %d\n- Leave if no listeners: %t",
			set.DefaultVolume,
			set.LoopMode,
			set.Autoplay,
			func() string {
				if set.SecondsWaitAfterEmpty == 0 {
					return "never leave"
				}
				return fmt.Sprintf("%ds", set.SecondsWaitAfterEmpty)
			}(),
			set.AutoAnnounceNext,
			set.QueuePageSize,
			set.LeaveIfNoListeners,
		)
		slog.Debug("config get", "guildID", i.GuildID)
		h.reply(s, i, msg, false)
	case "set-default-volume":
		val := int(sub.Options[0].IntValue())
		if val < 0 || val > 200 {
			h.reply(s, i, "volume must be between 0 and 200", true)
			return
		}
		h.persistSettings(i.GuildID, func(set *repository.Settings) {
			set.DefaultVolume = val
		})
		slog.Info("config updated", "guildID", i.GuildID, "key", "DefaultVolume", "value", val)
		h.reply(s, i, "👍 volume setting updated", false)
	case "set-wait-after-queue-empties":
		delay := int(sub.Options[0].IntValue())
		if delay < 0 {
			h.reply(s, i, "invalid delay", true)
			return
		}
		h.persistSettings(i.GuildID, func(set *repository.Settings) {
			set.SecondsWaitAfterEmpty = delay
		})
		slog.Info("config updated", "guildID", i.GuildID, "key", "SecondsWaitAfterEmpty", "value", delay)
		h.reply(s, i, "👍 wait delay updated", false)
	case "set-leave-if-no-listeners":
		val := sub.Options[0].BoolValue()
		h.persistSettings(i.GuildID, func(set *repository.Settings) {
			set.LeaveIfNoListeners = val
		})
		slog.Info("config updated", "guildID", i.GuildID, "key", "LeaveIfNoListeners", "value", val)
		h.reply(s, i, "👍 leave setting updated", false)
	case "set-auto-announce-next-song":
		val := sub.Options[0].BoolValue()
		h.persistSettings(i.GuildID, func(set *repository.Settings) {
			set.AutoAnnounceNext = val
		})
		slog.Info("config updated", "guildID", i.GuildID, "key", "AutoAnnounceNext", "value", val)
		h.reply(s, i, "👍 auto announce setting updated", false)
	case "set-queue-page-size":
		val := int(sub.Options[0].IntValue())
		if val < 1 || val > 30 {
			h.reply(s, i, "page size must be between 1 and 30", true)
			return
		}
		h.persistSettings(i.GuildID, func(set *repository.Settings) {
			set.QueuePageSize = val
		})
		slog.Info("config updated", "guildID", i.GuildID, "key", "QueuePageSize", "value", val)
		h.reply(s, i, "👍 queue page size updated", false)
	}
}

// persistSettings applies mut to the guild's stored settings. Best effort;
// a write failure only loses the persisted default, not the live session.
func (h *CommandHandler) persistSettings(guildID string, mut func(*repository.Settings)) {
	ctx := context.Background()
	if _, err := h.repo.UpsertSettings(ctx, guildID); err != nil {
		slog.Warn("upsert settings failed", "guildID", guildID, "err", err)
	}
	set, err := h.repo.GetSettings(ctx, guildID)
	if err != nil || set == nil {
		slog.Warn("get settings failed", "guildID", guildID, "err", err)
		return
	}
	mut(set)
	if err := h.repo.UpdateSettings(ctx, set); err != nil {
		slog.Warn("update settings failed", "guildID", guildID, "err", err)
	}
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if i == nil || i.Member == nil || i.Member.User == nil {
		return ""
	}
	return i.Member.User.ID
}
