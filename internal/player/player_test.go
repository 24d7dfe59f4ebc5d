package player

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvallance/quaver/internal/lavalink"
)

type fakeBackend struct {
	mu       sync.Mutex
	plays    []string
	stops    int
	pauses   []bool
	volumes  []int
	filters  []lavalink.Filters
	destroys int

	playErr error
	onPlay  func()
}

func (f *fakeBackend) Play(ctx context.Context, guildID, encoded string) error {
	f.mu.Lock()
	f.plays = append(f.plays, encoded)
	hook := f.onPlay
	err := f.playErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeBackend) Stop(ctx context.Context, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeBackend) Pause(ctx context.Context, guildID string, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses = append(f.pauses, paused)
	return nil
}

func (f *fakeBackend) SetVolume(ctx context.Context, guildID string, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, volume)
	return nil
}

func (f *fakeBackend) SetFilters(ctx context.Context, guildID string, filters lavalink.Filters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filters)
	return nil
}

func (f *fakeBackend) DestroyPlayer(ctx context.Context, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroys++
	return nil
}

func (f *fakeBackend) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.plays))
	copy(out, f.plays)
	return out
}

type fakeRecommender struct {
	mu    sync.Mutex
	calls int
	next  *Track
	err   error
}

func (f *fakeRecommender) Recommend(ctx context.Context, seed Track) (*Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.next, f.err
}

func (f *fakeRecommender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu         sync.Mutex
	started    []Track
	queueEmpty int
	ended      int
}

func (f *fakeNotifier) TrackStarted(guildID string, t Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, t)
}

func (f *fakeNotifier) QueueEmpty(guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueEmpty++
}

func (f *fakeNotifier) SessionEnded(guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended++
}

func newTestPlayer(t *testing.T) (*Player, *fakeBackend, *fakeNotifier) {
	t.Helper()
	backend := &fakeBackend{}
	notifier := &fakeNotifier{}
	p := NewPlayer("guild-1", backend, nil, NewMessageRegistry())
	p.SetNotifier(notifier)
	return p, backend, notifier
}

func TestPlayer_StartIfIdlePlaysFirstTrack(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))

	started, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []string{"enc:a"}, backend.played())

	snap := p.Snapshot()
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, "a", snap.NowPlaying.Title)
}

func TestPlayer_StartIfIdleNoopWhilePlaying(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.Append(tr("b"))
	started, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Len(t, backend.played(), 1)
}

func TestPlayer_NaturalEndAdvances(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)

	assert.Equal(t, []string{"enc:a", "enc:b"}, backend.played())
	snap := p.Snapshot()
	require.Len(t, snap.History, 1)
	assert.Equal(t, "a", snap.History[0].Title)
}

func TestPlayer_LoopTrackReplaysSameTrack(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))
	p.SetLoopMode(LoopTrack)

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)

	assert.Equal(t, []string{"enc:a", "enc:a"}, backend.played())
	assert.Equal(t, 0, p.Snapshot().Position, "cursor must not advance on track loop")
}

func TestPlayer_LoopQueueWrapsAtTail(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	p.SetLoopMode(LoopQueue)
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)
	p.HandleTrackStart(ctx, tr("b"))
	p.HandleTrackEnd(ctx, tr("b"), lavalink.TrackEndFinished)

	assert.Equal(t, []string{"enc:a", "enc:b", "enc:a"}, backend.played())
}

func TestPlayer_LoopBeatsAutoplay(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()
	rec := &fakeRecommender{next: &Track{Encoded: "enc:rec", Title: "rec"}}
	p.SetRecommender(rec)

	p.Append(tr("a"))
	p.SetLoopMode(LoopTrack)
	p.SetAutoplay(true)
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)

	assert.Equal(t, []string{"enc:a", "enc:a"}, backend.played())
	assert.Equal(t, 0, rec.callCount(), "loop modes take precedence over autoplay")
}

func TestPlayer_AutoplayAppendsRecommendation(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()
	rec := &fakeRecommender{next: &Track{Encoded: "enc:rec", Title: "rec"}}
	p.SetRecommender(rec)

	p.Append(tr("a"))
	p.SetAutoplay(true)
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)

	assert.Equal(t, []string{"enc:a", "enc:rec"}, backend.played())
	assert.Equal(t, 1, rec.callCount())

	snap := p.Snapshot()
	assert.Equal(t, 2, len(snap.Playlist), "recommendation joins the playlist")
}

func TestPlayer_QueueExhaustedGoesIdle(t *testing.T) {
	p, backend, notifier := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)

	assert.Len(t, backend.played(), 1)
	snap := p.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.NowPlaying)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "a", snap.History[0].Title)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, 1, notifier.queueEmpty)
}

func TestPlayer_LoadFailedAdvancesLikeFinished(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndLoadFailed)
	assert.Equal(t, []string{"enc:a", "enc:b"}, backend.played())
}

func TestPlayer_ReplacedDoesNotAdvance(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndReplaced)
	assert.Len(t, backend.played(), 1)
}

func TestPlayer_StoppedDoesNothing(t *testing.T) {
	p, backend, notifier := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndStopped)
	assert.Len(t, backend.played(), 1)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, 0, notifier.queueEmpty)
}

func TestPlayer_SkipDuringTrackEndIsRejected(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	// backend.Play runs inside HandleTrackEnd's guard; a skip arriving at
	// that moment must be turned away rather than double-advancing
	var skipErr error
	backend.onPlay = func() {
		backend.onPlay = nil
		_, skipErr = p.Skip(ctx)
	}
	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)

	assert.True(t, errors.Is(skipErr, ErrTrackEndInProgress))
	assert.Equal(t, []string{"enc:a", "enc:b"}, backend.played())
}

func TestPlayer_ConcurrentTrackEndsHandledOnce(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	// the duplicate fires while the first is mid-advance and must be dropped
	backend.onPlay = func() {
		backend.onPlay = nil
		p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)
	}
	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)

	assert.Equal(t, []string{"enc:a", "enc:b"}, backend.played())
}

func TestPlayer_SkipBoundaries(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)

	ok, err := p.Skip(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "nothing past the tail to skip to")
	assert.Len(t, backend.played(), 1)

	p.Append(tr("b"))
	ok, err = p.Skip(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"enc:a", "enc:b"}, backend.played())
}

func TestPlayer_PreviousBoundaries(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)

	ok, err := p.PlayPrevious(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "already at the head")

	_, err = p.Skip(ctx)
	require.NoError(t, err)

	ok, err = p.PlayPrevious(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"enc:a", "enc:b", "enc:a"}, backend.played())
}

func TestPlayer_PlayTrackRecordsPreviousInHistory(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	ctx := context.Background()

	require.NoError(t, p.PlayTrack(ctx, tr("a")))
	require.NoError(t, p.PlayTrack(ctx, tr("b")))

	snap := p.Snapshot()
	require.Len(t, snap.History, 1)
	assert.Equal(t, "a", snap.History[0].Title)
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, "b", snap.NowPlaying.Title)
}

func TestPlayer_StopClearsEverything(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	p.Append(tr("b"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	require.NoError(t, p.Stop(ctx))

	snap := p.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.NowPlaying)
	assert.Empty(t, snap.Playlist)
	assert.Empty(t, snap.History)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.stops)
}

func TestPlayer_DestroyedDropsEverything(t *testing.T) {
	p, backend, notifier := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.Destroy(ctx)

	assert.True(t, p.Destroyed())
	notifier.mu.Lock()
	assert.Equal(t, 1, notifier.ended)
	notifier.mu.Unlock()

	// stale node notifications after teardown are no-ops
	p.HandleTrackStart(ctx, tr("a"))
	p.HandleTrackEnd(ctx, tr("a"), lavalink.TrackEndFinished)
	assert.Len(t, backend.played(), 1)

	_, err = p.Skip(ctx)
	assert.True(t, errors.Is(err, ErrDestroyed))
	assert.ErrorIs(t, p.Pause(ctx), ErrDestroyed)
}

func TestPlayer_PauseResume(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	assert.ErrorIs(t, p.Pause(ctx), ErrNotPlaying)

	p.Append(tr("a"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)
	p.HandleTrackStart(ctx, tr("a"))

	assert.ErrorIs(t, p.Resume(ctx), ErrAlreadyPlaying)
	require.NoError(t, p.Pause(ctx))
	assert.Equal(t, StatusPaused, p.Snapshot().Status)
	require.NoError(t, p.Resume(ctx))
	assert.Equal(t, StatusPlaying, p.Snapshot().Status)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []bool{true, false}, backend.pauses)
}

func TestPlayer_SetVolumeClamps(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{100, 100},
		{200, 200},
		{500, 200},
	}
	for _, tt := range tests {
		got, err := p.SetVolume(ctx, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []int{0, 0, 100, 200, 200}, backend.volumes)
}

func TestPlayer_ToggleEffect(t *testing.T) {
	p, backend, _ := newTestPlayer(t)
	ctx := context.Background()

	on, err := p.ToggleEffect(ctx, EffectNightcore)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = p.ToggleEffect(ctx, EffectNightcore)
	require.NoError(t, err)
	assert.False(t, on)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Len(t, backend.filters, 2)
}

func TestPlayer_NodeIsAuthoritativeOnTrackStart(t *testing.T) {
	p, _, notifier := newTestPlayer(t)
	ctx := context.Background()

	p.Append(tr("a"))
	_, err := p.StartIfIdle(ctx)
	require.NoError(t, err)

	// the node reports something else than what was submitted
	other := Track{Encoded: "enc:other", Title: "other"}
	p.HandleTrackStart(ctx, other)

	snap := p.Snapshot()
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, "other", snap.NowPlaying.Title)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.started, 1)
	assert.Equal(t, "other", notifier.started[0].Title)
}

func TestManager_RecreatesDestroyedPlayer(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend, nil, NewMessageRegistry())

	p1, created := m.Get("g")
	assert.True(t, created)
	p2, created := m.Get("g")
	assert.False(t, created)
	assert.Same(t, p1, p2)

	p1.Destroy(context.Background())
	p3, created := m.Get("g")
	assert.True(t, created)
	assert.NotSame(t, p1, p3)
	assert.False(t, p3.Destroyed())
}

func TestManager_PeekAndRemove(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend, nil, NewMessageRegistry())

	assert.Nil(t, m.Peek("g"))
	p, _ := m.Get("g")
	assert.Same(t, p, m.Peek("g"))

	m.Remove("g")
	assert.Nil(t, m.Peek("g"))
}
