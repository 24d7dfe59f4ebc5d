package handlers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/nvallance/quaver/internal/config"
	"github.com/nvallance/quaver/internal/lavalink"
	"github.com/nvallance/quaver/internal/player"
	"github.com/nvallance/quaver/internal/repository"
	"github.com/nvallance/quaver/internal/spotify"
)

type Bot struct {
	cfg  *config.Config
	repo *repository.Repo
	lava *lavalink.Client
	pm   *player.Manager
	cmd  *CommandHandler
	sp   *spotify.Client // nil when spotify is not configured

	mu            sync.Mutex
	session       *discordgo.Session
	voiceSessions map[string]string // guildID -> bot voice session id
	textChannels  map[string]string // guildID -> channel used for announcements
}

func NewBot(cfg *config.Config, repo *repository.Repo, lava *lavalink.Client) *Bot {
	var sp *spotify.Client
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		client, err := spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
		if err != nil {
			slog.Warn("spotify client init failed", "err", err)
		} else {
			sp = client
		}
	}

	registry := player.NewMessageRegistry()
	pm := player.NewManager(lava, repo, registry)

	b := &Bot{
		cfg:           cfg,
		repo:          repo,
		lava:          lava,
		pm:            pm,
		sp:            sp,
		voiceSessions: make(map[string]string),
		textChannels:  make(map[string]string),
	}
	b.cmd = NewCommandHandler(cfg, repo, pm, b, repository.NewFavoritesService(repo), sp)

	lava.OnTrackStart(func(guildID string, t lavalink.Track) {
		p := pm.Peek(guildID)
		if p == nil {
			slog.Debug("track start for unknown guild", "guildID", guildID)
			return
		}
		p.HandleTrackStart(context.Background(), trackFromNode(t, ""))
	})
	lava.OnTrackEnd(func(guildID string, t lavalink.Track, reason lavalink.TrackEndReason) {
		p := pm.Peek(guildID)
		if p == nil {
			slog.Debug("track end for unknown guild", "guildID", guildID)
			return
		}
		p.HandleTrackEnd(context.Background(), trackFromNode(t, ""), reason)
	})

	return b
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b.mu.Lock()
	b.session = dg
	b.mu.Unlock()

	nodeCtx, cancelNode := context.WithCancel(ctx)
	defer cancelNode()

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", s.State.User.Username)
		appID := s.State.User.ID

		b.lava.SetUserID(appID)
		go func() {
			if err := b.lava.Run(nodeCtx); err != nil {
				slog.Error("lavalink client stopped", "err", err)
			}
		}()

		if b.cfg.RegisterCommandsOnBot {
			if err := b.cmd.RegisterCommands(s, appID, ""); err != nil {
				slog.Error("register global commands", "err", err)
			} else {
				slog.Info("registered global application commands")
			}
		} else {
			var wg sync.WaitGroup
			for _, g := range s.State.Guilds {
				wg.Add(1)
				go func(guildID string) {
					defer wg.Done()
					if err := b.cmd.RegisterCommands(s, appID, guildID); err != nil {
						slog.Error("register guild commands", "guild", guildID, "err", err)
					}
				}(g.ID)
			}
			wg.Wait()
			slog.Info("registered commands on all guilds")
		}

		_ = s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Status: b.cfg.BotStatus,
			Activities: []*discordgo.Activity{
				{Name: b.cfg.BotActivity, Type: discordgo.ActivityTypeListening},
			},
		})
	})

	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if b.cfg.RegisterCommandsOnBot {
			return
		}
		appID := s.State.User.ID
		if err := b.cmd.RegisterCommands(s, appID, g.ID); err != nil {
			slog.Error("register guild commands on join", "guild", g.ID, "err", err)
		}
	})

	dg.AddHandler(b.cmd.HandleInteraction)

	// voice credential forwarding: the node joins the channel, not this process
	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if vs.UserID == s.State.User.ID {
			b.mu.Lock()
			if vs.ChannelID == "" {
				delete(b.voiceSessions, vs.GuildID)
			} else {
				b.voiceSessions[vs.GuildID] = vs.SessionID
			}
			b.mu.Unlock()
			return
		}
		b.maybeLeaveEmptyChannel(s, vs.GuildID)
	})

	dg.AddHandler(func(s *discordgo.Session, vsu *discordgo.VoiceServerUpdate) {
		b.mu.Lock()
		sessionID := b.voiceSessions[vsu.GuildID]
		b.mu.Unlock()
		if sessionID == "" {
			slog.Warn("voice server update before voice state", "guildID", vsu.GuildID)
			return
		}
		err := b.lava.UpdateVoice(context.Background(), vsu.GuildID, lavalink.VoiceState{
			Token:     vsu.Token,
			Endpoint:  vsu.Endpoint,
			SessionID: sessionID,
		})
		if err != nil {
			slog.Error("forward voice credentials failed", "guildID", vsu.GuildID, "err", err)
		}
	})

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	return nil
}

// JoinVoice asks the gateway to move the bot into a channel; the resulting
// credentials are forwarded to the node by the event handlers above.
func (b *Bot) JoinVoice(ctx context.Context, s *discordgo.Session, guildID, channelID string) error {
	return s.ChannelVoiceJoinManual(guildID, channelID, false, true)
}

// LeaveVoice clears the bot's voice state for the guild.
func (b *Bot) LeaveVoice(guildID string) {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return
	}
	if err := s.ChannelVoiceJoinManual(guildID, "", false, true); err != nil {
		slog.Warn("voice leave failed", "guildID", guildID, "err", err)
	}
}

// SetTextChannel remembers where announcements for a guild should go.
func (b *Bot) SetTextChannel(guildID, channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textChannels[guildID] = channelID
}

func (b *Bot) textChannel(guildID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textChannels[guildID]
}

func (b *Bot) maybeLeaveEmptyChannel(s *discordgo.Session, guildID string) {
	p := b.pm.Peek(guildID)
	if p == nil || p.Destroyed() {
		return
	}
	set, err := b.repo.GetSettings(context.Background(), guildID)
	if err != nil || set == nil || !set.LeaveIfNoListeners {
		return
	}
	chID := b.botVoiceChannel(s, guildID)
	if chID == "" {
		return
	}
	if countListeners(s, guildID, chID) == 0 {
		slog.Info("no listeners left, disconnecting", "guildID", guildID)
		p.Destroy(context.Background())
	}
}

func (b *Bot) botVoiceChannel(s *discordgo.Session, guildID string) string {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		return ""
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == s.State.User.ID {
			return vs.ChannelID
		}
	}
	return ""
}

func countListeners(s *discordgo.Session, guildID, channelID string) int {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		return 0
	}
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		m, _ := s.State.Member(guildID, vs.UserID)
		if m != nil && m.User != nil && m.User.Bot {
			continue
		}
		n++
	}
	return n
}

func userInVoice(s *discordgo.Session, guildID, userID string) (channelID string, ok bool) {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		g, _ = s.Guild(guildID)
	}
	if g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}

// trackFromNode converts the node's track payload into the player's value type.
func trackFromNode(t lavalink.Track, requestedBy string) player.Track {
	length := t.Info.Length
	if t.Info.IsStream {
		length = 0
	}
	return player.Track{
		Encoded:     t.Encoded,
		Title:       t.Info.Title,
		Author:      t.Info.Author,
		URI:         t.Info.URI,
		Length:      millisToDuration(length),
		ArtworkURL:  t.Info.ArtworkURL,
		RequestedBy: requestedBy,
	}
}
