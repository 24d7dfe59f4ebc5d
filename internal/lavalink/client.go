package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client talks to a single Lavalink node: commands go out over REST, start/end
// notifications come back over the websocket. It is safe for concurrent use.
type Client struct {
	host     string
	port     int
	password string
	secure   bool

	userID     string // bot application user id, set before Run
	clientName string

	http *http.Client

	mu        sync.Mutex
	sessionID string
	conn      *websocket.Conn
	positions map[string]position

	onTrackStart TrackStartHandler
	onTrackEnd   TrackEndHandler
}

func NewClient(host string, port int, password string, secure bool) *Client {
	return &Client{
		host:       host,
		port:       port,
		password:   password,
		secure:     secure,
		clientName: "quaver/" + uuid.NewString(),
		http:       &http.Client{Timeout: 15 * time.Second},
		positions:  make(map[string]position),
	}
}

type position struct {
	pos     time.Duration
	updated time.Time
}

func (c *Client) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// OnTrackStart registers the handler for track-start notifications.
// Must be called before Run.
func (c *Client) OnTrackStart(h TrackStartHandler) { c.onTrackStart = h }

// OnTrackEnd registers the handler for track-end notifications.
// Must be called before Run.
func (c *Client) OnTrackEnd(h TrackEndHandler) { c.onTrackEnd = h }

func (c *Client) scheme(ws bool) string {
	if ws {
		if c.secure {
			return "wss"
		}
		return "ws"
	}
	if c.secure {
		return "https"
	}
	return "http"
}

func (c *Client) restURL(path string) string {
	return fmt.Sprintf("%s://%s:%d/v4%s", c.scheme(false), c.host, c.port, path)
}

// Run connects the notification websocket and keeps it connected until ctx is
// canceled, reconnecting with backoff. The node replays nothing on reconnect;
// the session id is resumed so in-flight players survive short drops.
func (c *Client) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := c.connectAndRead(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("lavalink socket closed", "err", err, "retryIn", backoff)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	c.mu.Lock()
	userID := c.userID
	sessionID := c.sessionID
	c.mu.Unlock()

	if userID == "" {
		return errors.New("user id not set")
	}

	hdr := http.Header{}
	hdr.Set("Authorization", c.password)
	hdr.Set("User-Id", userID)
	hdr.Set("Client-Name", c.clientName)
	if sessionID != "" {
		hdr.Set("Session-Id", sessionID)
	}

	wsURL := fmt.Sprintf("%s://%s:%d/v4/websocket", c.scheme(true), c.host, c.port)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, hdr)
	if err != nil {
		if resp != nil {
			return errors.Wrapf(err, "dial %s (status %d)", wsURL, resp.StatusCode)
		}
		return errors.Wrapf(err, "dial %s", wsURL)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("lavalink socket connected", "node", c.host)

	// close the socket when ctx ends so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("lavalink: undecodable frame", "err", err)
		return
	}

	switch msg.Op {
	case "ready":
		c.mu.Lock()
		c.sessionID = msg.SessionID
		c.mu.Unlock()
		slog.Info("lavalink session ready", "sessionID", msg.SessionID, "resumed", msg.Resumed)
	case "playerUpdate":
		var upd playerUpdateMessage
		if err := json.Unmarshal(data, &upd); err != nil {
			return
		}
		c.mu.Lock()
		c.positions[upd.GuildID] = position{
			pos:     time.Duration(upd.State.Position) * time.Millisecond,
			updated: time.Now(),
		}
		c.mu.Unlock()
	case "stats":
		// node stat frames are not used for state transitions
	case "event":
		c.handleEvent(msg.Type, data)
	default:
		slog.Debug("lavalink: unknown op", "op", msg.Op)
	}
}

func (c *Client) handleEvent(eventType string, data []byte) {
	switch eventType {
	case "TrackStartEvent":
		var ev trackStartEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("lavalink: bad TrackStartEvent", "err", err)
			return
		}
		if c.onTrackStart != nil {
			c.onTrackStart(ev.GuildID, ev.Track)
		}
	case "TrackEndEvent":
		var ev trackEndEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("lavalink: bad TrackEndEvent", "err", err)
			return
		}
		if c.onTrackEnd != nil {
			c.onTrackEnd(ev.GuildID, ev.Track, ev.Reason)
		}
	case "TrackExceptionEvent":
		var ev trackExceptionEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("lavalink: bad TrackExceptionEvent", "err", err)
			return
		}
		slog.Warn("lavalink: track exception",
			"guildID", ev.GuildID,
			"track", ev.Track.Info.Title,
			"severity", ev.Exception.Severity,
			"message", ev.Exception.Message)
	case "TrackStuckEvent":
		slog.Warn("lavalink: track stuck")
	case "WebSocketClosedEvent":
		var ev websocketClosedEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			slog.Warn("lavalink: discord voice socket closed",
				"guildID", ev.GuildID, "code", ev.Code, "reason", ev.Reason)
		}
	default:
		slog.Debug("lavalink: unknown event", "type", eventType)
	}
}

// Position returns the last reported playback position for a guild, adjusted
// for time elapsed since the node sent it. False when the node has not
// reported yet.
func (c *Client) Position(guildID string) (time.Duration, bool) {
	c.mu.Lock()
	p, ok := c.positions[guildID]
	c.mu.Unlock()
	if !ok {
		return 0, false
	}
	return p.pos + time.Since(p.updated), true
}

// ClearPosition drops the cached position for a guild, e.g. on session end.
func (c *Client) ClearPosition(guildID string) {
	c.mu.Lock()
	delete(c.positions, guildID)
	c.mu.Unlock()
}

// SessionID returns the node session id, empty until the socket is ready.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// LoadTracks resolves an identifier (URL or `ytsearch:` style query) on the node.
func (c *Client) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	u := c.restURL("/loadtracks") + "?identifier=" + url.QueryEscape(identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build loadtracks request")
	}
	req.Header.Set("Authorization", c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "loadtracks")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read loadtracks response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("loadtracks: node returned %d: %s", resp.StatusCode, string(body))
	}

	return decodeLoadResult(body)
}

func decodeLoadResult(body []byte) (*LoadResult, error) {
	var env loadResultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "decode loadtracks envelope")
	}

	out := &LoadResult{Type: env.LoadType}
	switch env.LoadType {
	case LoadTypeTrack:
		var t Track
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return nil, errors.Wrap(err, "decode track data")
		}
		out.Tracks = []Track{t}
	case LoadTypePlaylist:
		var pl playlistData
		if err := json.Unmarshal(env.Data, &pl); err != nil {
			return nil, errors.Wrap(err, "decode playlist data")
		}
		out.Tracks = pl.Tracks
		out.PlaylistName = pl.Info.Name
	case LoadTypeSearch:
		if err := json.Unmarshal(env.Data, &out.Tracks); err != nil {
			return nil, errors.Wrap(err, "decode search data")
		}
	case LoadTypeEmpty:
	case LoadTypeError:
		var ex loadException
		if err := json.Unmarshal(env.Data, &ex); err == nil {
			out.ErrorMessage = ex.Message
		}
	default:
		return nil, errors.Newf("loadtracks: unknown loadType %q", env.LoadType)
	}
	return out, nil
}

func (c *Client) updatePlayer(ctx context.Context, guildID string, upd playerUpdate, noReplace bool) error {
	sessionID := c.SessionID()
	if sessionID == "" {
		return errors.New("node session not ready")
	}

	payload, err := json.Marshal(upd)
	if err != nil {
		return errors.Wrap(err, "marshal player update")
	}

	u := c.restURL(fmt.Sprintf("/sessions/%s/players/%s", sessionID, guildID))
	if noReplace {
		u += "?noReplace=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build player update request")
	}
	req.Header.Set("Authorization", c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "player update")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return errors.Newf("player update: node returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Play submits the encoded track for playback, replacing whatever is playing.
func (c *Client) Play(ctx context.Context, guildID, encoded string) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Track: &trackUpdate{Encoded: &encoded}}, false)
}

// Stop stops the current track without destroying the player.
func (c *Client) Stop(ctx context.Context, guildID string) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Track: &trackUpdate{Encoded: nil}}, false)
}

func (c *Client) Pause(ctx context.Context, guildID string, paused bool) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Paused: &paused}, false)
}

func (c *Client) SetVolume(ctx context.Context, guildID string, volume int) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Volume: &volume}, false)
}

func (c *Client) SetFilters(ctx context.Context, guildID string, filters Filters) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Filters: &filters}, false)
}

// UpdateVoice forwards discord voice credentials so the node can join the channel.
func (c *Client) UpdateVoice(ctx context.Context, guildID string, voice VoiceState) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Voice: &voice}, false)
}

// DestroyPlayer removes the guild player from the node.
func (c *Client) DestroyPlayer(ctx context.Context, guildID string) error {
	sessionID := c.SessionID()
	if sessionID == "" {
		return nil
	}

	u := c.restURL(fmt.Sprintf("/sessions/%s/players/%s", sessionID, guildID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return errors.Wrap(err, "build destroy request")
	}
	req.Header.Set("Authorization", c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "destroy player")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return errors.Newf("destroy player: node returned %d", resp.StatusCode)
	}
	return nil
}
