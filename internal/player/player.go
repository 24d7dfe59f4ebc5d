package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/nvallance/quaver/internal/lavalink"
	"github.com/nvallance/quaver/internal/repository"
)

// AudioBackend is the control surface of the remote audio node. Commands are
// fire-and-confirm: a returned error means the node rejected the command; the
// player never retries. The node is the sole source of truth for whether audio
// is flowing; playback state only changes when its notifications arrive.
type AudioBackend interface {
	Play(ctx context.Context, guildID, encoded string) error
	Stop(ctx context.Context, guildID string) error
	Pause(ctx context.Context, guildID string, paused bool) error
	SetVolume(ctx context.Context, guildID string, volume int) error
	SetFilters(ctx context.Context, guildID string, filters lavalink.Filters) error
	DestroyPlayer(ctx context.Context, guildID string) error
}

// Recommender supplies one track to keep playback going when the queue runs
// out and autoplay is on. Returning (nil, nil) means no recommendation.
type Recommender interface {
	Recommend(ctx context.Context, seed Track) (*Track, error)
}

// Notifier receives player lifecycle callbacks for rendering. Implementations
// must not call back into the player's mutating operations.
type Notifier interface {
	TrackStarted(guildID string, t Track)
	QueueEmpty(guildID string)
	SessionEnded(guildID string)
}

var (
	ErrDestroyed          = errors.New("player session has ended")
	ErrTrackEndInProgress = errors.New("still handling the previous track end")
	ErrNotPlaying         = errors.New("nothing is playing")
	ErrAlreadyPlaying     = errors.New("already playing")
)

// Player is the single authority over one guild's queue, cursor, loop mode and
// playback state. User intents and node notifications both funnel through it;
// nothing else mutates its collections.
type Player struct {
	guildID  string
	backend  AudioBackend
	repo     *repository.Repo
	registry *MessageRegistry

	recommender Recommender
	notifier    Notifier

	mu         sync.Mutex
	status     Status
	queue      *Queue
	state      State
	nowPlaying *Track

	// single-flight guards for node notifications; a notification arriving
	// while its guard is held is dropped, not queued
	handlingTrackStart bool
	handlingTrackEnd   bool

	destroyed       bool
	disconnectTimer *time.Timer
}

func NewPlayer(guildID string, backend AudioBackend, repo *repository.Repo, registry *MessageRegistry) *Player {
	return &Player{
		guildID:  guildID,
		backend:  backend,
		repo:     repo,
		registry: registry,
		status:   StatusIdle,
		queue:    NewQueue(),
		state:    NewState(),
	}
}

func (p *Player) GuildID() string { return p.guildID }

func (p *Player) SetRecommender(r Recommender) { p.recommender = r }
func (p *Player) SetNotifier(n Notifier)       { p.notifier = n }

// Snapshot is a read-only copy of the player's state for rendering.
type Snapshot struct {
	Status     Status
	NowPlaying *Track
	Playlist   []Track
	Position   int
	Upcoming   []Track
	History    []Track
	State      State
}

func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	var now *Track
	if p.nowPlaying != nil {
		t := *p.nowPlaying
		now = &t
	}
	st := p.state
	st.Effects = make(map[Effect]bool, len(p.state.Effects))
	for e, on := range p.state.Effects {
		st.Effects[e] = on
	}
	return Snapshot{
		Status:     p.status,
		NowPlaying: now,
		Playlist:   p.queue.Tracks(),
		Position:   p.queue.Position(),
		Upcoming:   p.queue.Upcoming(),
		History:    p.queue.History(),
		State:      st,
	}
}

// SeedState installs persisted settings at session start.
func (p *Player) SeedState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Effects == nil {
		s.Effects = make(map[Effect]bool)
	}
	if s.Volume < 0 || s.Volume > 200 {
		s.Volume = DefaultVolume
	}
	p.state = s
}

// ApplyState pushes the current volume and filters to the node. Called once
// when a session starts so the node matches the persisted settings.
func (p *Player) ApplyState(ctx context.Context) error {
	p.mu.Lock()
	vol := p.state.Volume
	filters := FiltersFor(p.state)
	p.mu.Unlock()

	if err := p.backend.SetVolume(ctx, p.guildID, vol); err != nil {
		return errors.Wrap(err, "apply volume")
	}
	if err := p.backend.SetFilters(ctx, p.guildID, filters); err != nil {
		return errors.Wrap(err, "apply filters")
	}
	return nil
}

// PlayTrack makes t the active track and submits it to the node. The
// previously active track, if any, is recorded into history first. Queue
// advancement is the caller's job; PlayTrack touches neither playlist nor
// cursor. Backend failure is surfaced, not retried.
func (p *Player) PlayTrack(ctx context.Context, t Track) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if prev := p.nowPlaying; prev != nil {
		p.queue.RecordFinished(*prev)
	}
	p.nowPlaying = &t
	p.cancelIdleDisconnectLocked()
	p.mu.Unlock()

	if err := p.backend.Play(ctx, p.guildID, t.Encoded); err != nil {
		return errors.Wrap(err, "submit play")
	}
	return nil
}

// Skip advances past the current track. Returns false with a nil error when
// the cursor is already at the tail (nothing to skip, not an error). Returns
// ErrTrackEndInProgress while a natural track-end is being handled so callers
// can show a "please wait" response instead of racing the advance.
func (p *Player) Skip(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return false, ErrDestroyed
	}
	if p.handlingTrackEnd {
		p.mu.Unlock()
		return false, ErrTrackEndInProgress
	}
	if !p.queue.Advance() {
		p.mu.Unlock()
		return false, nil
	}
	t := *p.queue.Current()
	p.mu.Unlock()

	return true, p.PlayTrack(ctx, t)
}

// PlayPrevious steps the cursor back one entry and plays it. Returns false
// when there is nothing behind the cursor.
func (p *Player) PlayPrevious(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return false, ErrDestroyed
	}
	if p.handlingTrackEnd {
		p.mu.Unlock()
		return false, ErrTrackEndInProgress
	}
	if !p.queue.StepBack() {
		p.mu.Unlock()
		return false, nil
	}
	t := *p.queue.Current()
	p.mu.Unlock()

	return true, p.PlayTrack(ctx, t)
}

// StartIfIdle begins playback of the next unplayed track when nothing is
// active. Used after enqueueing. Returns false when playback was already
// running or there is nothing to play.
func (p *Player) StartIfIdle(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return false, ErrDestroyed
	}
	if p.status == StatusPlaying || p.status == StatusPaused || p.handlingTrackEnd {
		p.mu.Unlock()
		return false, nil
	}
	if !p.queue.Advance() {
		p.mu.Unlock()
		return false, nil
	}
	t := *p.queue.Current()
	p.mu.Unlock()

	return true, p.PlayTrack(ctx, t)
}

// DoNext runs the natural-advance policy after a track finished: track loop
// wins, then queue loop, then plain advance, then autoplay, then the idle
// path. Loop modes always take precedence over autoplay.
func (p *Player) DoNext(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}

	var finished *Track
	if p.nowPlaying != nil {
		t := *p.nowPlaying
		finished = &t
	}

	switch {
	case finished != nil && p.state.Loop == LoopTrack:
		// replay the same track, cursor and requester unchanged
		t := *finished
		p.mu.Unlock()
		return p.PlayTrack(ctx, t)

	case p.state.Loop == LoopQueue && p.queue.Len() > 0:
		p.queue.WrapAdvance()
		t := *p.queue.Current()
		p.mu.Unlock()
		return p.PlayTrack(ctx, t)

	case !p.queue.AtTail():
		p.queue.Advance()
		t := *p.queue.Current()
		p.mu.Unlock()
		return p.PlayTrack(ctx, t)

	default:
		autoplay := p.state.Autoplay
		p.mu.Unlock()

		if autoplay && finished != nil && p.recommender != nil {
			rec, err := p.recommender.Recommend(ctx, *finished)
			if err != nil {
				slog.Warn("autoplay recommendation failed", "guildID", p.guildID, "err", err)
			}
			if rec != nil {
				p.mu.Lock()
				if p.destroyed {
					p.mu.Unlock()
					return ErrDestroyed
				}
				p.queue.Append(*rec)
				p.queue.Advance()
				t := *p.queue.Current()
				p.mu.Unlock()
				return p.PlayTrack(ctx, t)
			}
		}

		return p.enterIdle(finished)
	}
}

// enterIdle records the finished track, announces the empty queue and arms
// the idle-disconnect timer.
func (p *Player) enterIdle(finished *Track) error {
	p.mu.Lock()
	if finished != nil {
		p.queue.RecordFinished(*finished)
	}
	p.nowPlaying = nil
	p.status = StatusIdle
	p.mu.Unlock()

	if p.registry != nil {
		p.registry.Unregister(p.guildID)
	}
	if p.notifier != nil {
		p.notifier.QueueEmpty(p.guildID)
	}
	p.scheduleIdleDisconnect()
	return nil
}

// HandleTrackStart processes the node's track-start notification. A second
// start arriving while one is being handled is dropped; a start for a
// destroyed player is stale and ignored.
func (p *Player) HandleTrackStart(ctx context.Context, t Track) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		slog.Debug("dropping track start for destroyed player", "guildID", p.guildID)
		return
	}
	if p.handlingTrackStart {
		p.mu.Unlock()
		slog.Debug("dropping concurrent track start", "guildID", p.guildID, "track", t.Title)
		return
	}
	p.handlingTrackStart = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.handlingTrackStart = false
		p.mu.Unlock()
	}()

	p.mu.Lock()
	p.status = StatusPlaying
	if p.nowPlaying == nil || p.nowPlaying.Encoded != t.Encoded {
		// the node is authoritative about what it is playing
		p.nowPlaying = &t
	}
	cur := *p.nowPlaying
	p.cancelIdleDisconnectLocked()
	p.mu.Unlock()

	slog.Debug("track started", "guildID", p.guildID, "track", cur.Title)

	if p.notifier != nil {
		p.notifier.TrackStarted(p.guildID, cur)
	}
}

// HandleTrackEnd processes the node's track-end notification. The reason
// decides whether queue-advance logic runs: a replaced track was swapped by an
// explicit user action that already handled advancement, a stopped/cleaned-up
// track needs no follow-up, and only finished/loadFailed reach DoNext. A
// duplicate end arriving while one is being handled is dropped.
func (p *Player) HandleTrackEnd(ctx context.Context, t Track, reason lavalink.TrackEndReason) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		slog.Debug("dropping track end for destroyed player", "guildID", p.guildID, "reason", reason)
		return
	}
	if p.handlingTrackEnd {
		p.mu.Unlock()
		slog.Debug("dropping concurrent track end", "guildID", p.guildID, "reason", reason)
		return
	}
	p.handlingTrackEnd = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.handlingTrackEnd = false
		p.mu.Unlock()
	}()

	switch reason {
	case lavalink.TrackEndReplaced:
		// the replacing PlayTrack already handled bookkeeping and advancement;
		// just drop the stale now-playing message ref and any paused state
		p.mu.Lock()
		if p.status == StatusPaused {
			p.status = StatusPlaying
		}
		p.mu.Unlock()
		if p.registry != nil {
			p.registry.Unregister(p.guildID)
		}

	case lavalink.TrackEndStopped, lavalink.TrackEndCleanup:
		// stop/teardown paths run their own cleanup

	case lavalink.TrackEndFinished, lavalink.TrackEndLoadFailed:
		if err := p.DoNext(ctx); err != nil && !errors.Is(err, ErrDestroyed) {
			slog.Error("advance after track end failed", "guildID", p.guildID, "err", err)
		}

	default:
		slog.Warn("unknown track end reason", "guildID", p.guildID, "reason", reason)
	}
}

// Pause pauses node playback.
func (p *Player) Pause(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.status != StatusPlaying {
		p.mu.Unlock()
		return ErrNotPlaying
	}
	p.status = StatusPaused
	p.mu.Unlock()

	return errors.Wrap(p.backend.Pause(ctx, p.guildID, true), "submit pause")
}

// Resume resumes paused playback.
func (p *Player) Resume(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.status == StatusPlaying {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	if p.status != StatusPaused {
		p.mu.Unlock()
		return ErrNotPlaying
	}
	p.status = StatusPlaying
	p.mu.Unlock()

	return errors.Wrap(p.backend.Pause(ctx, p.guildID, false), "submit resume")
}

// Stop stops playback and empties the queue and history. The session stays
// alive; the node connection is kept.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	p.queue.Reset()
	p.nowPlaying = nil
	p.status = StatusIdle
	p.cancelIdleDisconnectLocked()
	p.mu.Unlock()

	if p.registry != nil {
		p.registry.Unregister(p.guildID)
	}
	return errors.Wrap(p.backend.Stop(ctx, p.guildID), "submit stop")
}

// Destroy tears the session down. All further notifications become no-ops.
func (p *Player) Destroy(ctx context.Context) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.status = StatusDestroyed
	p.queue.Reset()
	p.nowPlaying = nil
	p.cancelIdleDisconnectLocked()
	p.mu.Unlock()

	if err := p.backend.DestroyPlayer(ctx, p.guildID); err != nil {
		slog.Warn("destroy node player failed", "guildID", p.guildID, "err", err)
	}
	if p.registry != nil {
		p.registry.Unregister(p.guildID)
	}
	if p.notifier != nil {
		p.notifier.SessionEnded(p.guildID)
	}
}

// Destroyed reports whether the session has been torn down.
func (p *Player) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Append adds a track to the end of the playlist.
func (p *Player) Append(t Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.Append(t)
}

// InsertNext places a track directly after the current one.
func (p *Player) InsertNext(t Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.InsertNext(t)
}

// RemoveUpcoming removes the n-th upcoming track (1-based, counted from just
// after the current one).
func (p *Player) RemoveUpcoming(n int) (Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 1 {
		return Track{}, ErrInvalidIndex
	}
	return p.queue.Remove(p.queue.Position() + n)
}

// Shuffle permutes the unplayed tail. Returns false when there is nothing
// worth shuffling.
func (p *Player) Shuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Shuffle()
}

// ClearUpcoming drops all unplayed tracks.
func (p *Player) ClearUpcoming() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.ClearUpcoming()
}

func (p *Player) SetLoopMode(m LoopMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Loop = m
}

func (p *Player) SetAutoplay(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Autoplay = on
}

// SetVolume clamps to [0,200] and pushes the new level to the node.
func (p *Player) SetVolume(ctx context.Context, vol int) (int, error) {
	if vol < 0 {
		vol = 0
	}
	if vol > 200 {
		vol = 200
	}
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return 0, ErrDestroyed
	}
	p.state.Volume = vol
	p.mu.Unlock()

	return vol, errors.Wrap(p.backend.SetVolume(ctx, p.guildID, vol), "submit volume")
}

// ToggleEffect flips one effect and pushes the resulting filter set to the
// node. Returns the new on/off state.
func (p *Player) ToggleEffect(ctx context.Context, e Effect) (bool, error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return false, ErrDestroyed
	}
	p.state.Effects[e] = !p.state.Effects[e]
	on := p.state.Effects[e]
	filters := FiltersFor(p.state)
	p.mu.Unlock()

	return on, errors.Wrap(p.backend.SetFilters(ctx, p.guildID, filters), "submit filters")
}

// scheduleIdleDisconnect arms the disconnect timer using the guild's
// configured wait. A wait of zero disables auto-disconnect. The timer is an
// explicitly cancellable deferred task; any new track start cancels it.
func (p *Player) scheduleIdleDisconnect() {
	if p.repo == nil {
		return
	}
	set, err := p.repo.GetSettings(context.Background(), p.guildID)
	if err != nil || set == nil || set.SecondsWaitAfterEmpty == 0 {
		return
	}
	wait := time.Duration(set.SecondsWaitAfterEmpty) * time.Second

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	if p.disconnectTimer != nil {
		p.disconnectTimer.Stop()
	}
	p.disconnectTimer = time.AfterFunc(wait, func() {
		p.mu.Lock()
		fire := p.status == StatusIdle && !p.destroyed
		p.mu.Unlock()
		if fire {
			slog.Info("idle disconnect", "guildID", p.guildID, "after", wait)
			p.Destroy(context.Background())
		}
	})
}

func (p *Player) cancelIdleDisconnectLocked() {
	if p.disconnectTimer != nil {
		p.disconnectTimer.Stop()
		p.disconnectTimer = nil
	}
}
