package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvallance/quaver/internal/config"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir()}
	db, err := OpenDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepo(db)
}

func TestSettings_UpsertGivesDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	set, err := repo.UpsertSettings(ctx, "g1")
	require.NoError(t, err)

	assert.Equal(t, "g1", set.GuildID)
	assert.Equal(t, 100, set.DefaultVolume)
	assert.Equal(t, "none", set.LoopMode)
	assert.False(t, set.Autoplay)
	assert.Equal(t, 30, set.SecondsWaitAfterEmpty)
	assert.True(t, set.AutoAnnounceNext)
	assert.Equal(t, 10, set.QueuePageSize)
	assert.True(t, set.LeaveIfNoListeners)
}

func TestSettings_UpdateRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	set, err := repo.UpsertSettings(ctx, "g1")
	require.NoError(t, err)

	set.DefaultVolume = 50
	set.LoopMode = "queue"
	set.Autoplay = true
	set.SecondsWaitAfterEmpty = 0
	set.AutoAnnounceNext = false
	set.QueuePageSize = 25
	set.LeaveIfNoListeners = false
	require.NoError(t, repo.UpdateSettings(ctx, set))

	got, err := repo.GetSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestSettings_UpsertDoesNotClobber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	set, err := repo.UpsertSettings(ctx, "g1")
	require.NoError(t, err)
	set.DefaultVolume = 42
	require.NoError(t, repo.UpdateSettings(ctx, set))

	again, err := repo.UpsertSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 42, again.DefaultVolume)
}

func TestSettings_GetMissingGuild(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSettings(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFavorites_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewFavoritesService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "g1", "user1", "  jams  ", "  lofi hip hop  "))

	f, err := svc.Use(ctx, "g1", "jams")
	require.NoError(t, err)
	assert.Equal(t, "jams", f.Name, "names are stored trimmed")
	assert.Equal(t, "lofi hip hop", f.Query)
	assert.Equal(t, "user1", f.Author)

	// duplicate names per guild are rejected with the typed sentinel
	err = svc.Create(ctx, "g1", "user2", "jams", "other")
	assert.ErrorIs(t, err, ErrDuplicateFavorite)

	// blank names never reach the table
	err = svc.Create(ctx, "g1", "user2", "   ", "whatever")
	assert.ErrorIs(t, err, ErrEmptyFavoriteName)

	// same name in another guild is fine
	require.NoError(t, svc.Create(ctx, "g2", "user2", "jams", "other"))

	require.NoError(t, svc.Create(ctx, "g1", "user1", "beats", "drum and bass"))
	items, err := svc.List(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "beats", items[0].Name, "listed in name order")
	assert.Equal(t, "jams", items[1].Name)

	n, err := svc.Remove(ctx, "g1", "jams")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.Use(ctx, "g1", "jams")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	n, err = svc.Remove(ctx, "g1", "never existed")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
