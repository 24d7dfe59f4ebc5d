package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvallance/quaver/internal/player"
)

func snapPlaying(upcoming int) player.Snapshot {
	now := player.Track{Title: "Current Song", URI: "https://example.com/cur", Length: 3 * time.Minute}
	snap := player.Snapshot{
		Status:     player.StatusPlaying,
		NowPlaying: &now,
		State:      player.NewState(),
	}
	for i := 0; i < upcoming; i++ {
		snap.Upcoming = append(snap.Upcoming, player.Track{
			Title:  fmt.Sprintf("Track %d", i+1),
			Length: time.Minute,
		})
	}
	return snap
}

func TestBuildPlayingEmbed(t *testing.T) {
	snap := snapPlaying(0)
	snap.NowPlaying.RequestedBy = "12345"

	e := BuildPlayingEmbed(snap, 30*time.Second, true)
	assert.Equal(t, "Now Playing", e.Title)
	assert.Contains(t, e.Description, "Current Song")
	assert.Contains(t, e.Description, "<@12345>")
	assert.Contains(t, e.Description, "0:30/3:00")
}

func TestBuildPlayingEmbed_Paused(t *testing.T) {
	snap := snapPlaying(0)
	snap.Status = player.StatusPaused

	e := BuildPlayingEmbed(snap, 0, false)
	assert.Equal(t, "Paused", e.Title)
}

func TestBuildPlayingEmbed_Livestream(t *testing.T) {
	snap := snapPlaying(0)
	snap.NowPlaying.Length = 0

	e := BuildPlayingEmbed(snap, 0, false)
	assert.Contains(t, e.Description, "live")
	assert.NotContains(t, e.Description, "0:00/")
}

func TestBuildPlayingEmbed_Empty(t *testing.T) {
	e := BuildPlayingEmbed(player.Snapshot{State: player.NewState()}, 0, false)
	assert.Equal(t, "Nothing Playing", e.Title)
}

func TestBuildQueueEmbed_Paging(t *testing.T) {
	snap := snapPlaying(25)

	e, err := BuildQueueEmbed(snap, 1, 10)
	require.NoError(t, err)
	assert.Contains(t, e.Description, "`1.` ")
	assert.Contains(t, e.Description, "Track 10")
	assert.NotContains(t, e.Description, "Track 11")
	assert.Equal(t, "1/3", e.Fields[2].Value)

	e, err = BuildQueueEmbed(snap, 3, 10)
	require.NoError(t, err)
	assert.Contains(t, e.Description, "Track 25")
	assert.Contains(t, e.Description, "`21.` ")

	_, err = BuildQueueEmbed(snap, 4, 10)
	assert.Error(t, err, "page past the end")
}

func TestBuildQueueEmbed_EmptyQueue(t *testing.T) {
	_, err := BuildQueueEmbed(player.Snapshot{State: player.NewState()}, 1, 10)
	assert.Error(t, err)
}

func TestBuildHistoryEmbed_MostRecentFirst(t *testing.T) {
	snap := player.Snapshot{
		State: player.NewState(),
		History: []player.Track{
			{Title: "Oldest"},
			{Title: "Middle"},
			{Title: "Newest"},
		},
	}
	e := BuildHistoryEmbed(snap)
	lines := strings.Split(strings.TrimSpace(e.Description), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Newest")
	assert.Contains(t, lines[2], "Oldest")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, 10, len([]rune(ProgressBar(10, 0.5))))
	assert.True(t, strings.HasPrefix(ProgressBar(10, 0), "🔘"))
	assert.True(t, strings.HasSuffix(ProgressBar(10, 1), "🔘"))
	assert.Equal(t, 1, strings.Count(ProgressBar(10, 0.33), "🔘"))
}

func TestControlsRow(t *testing.T) {
	snap := snapPlaying(0)
	row := ControlsRow(snap)
	require.Len(t, row, 1)
	ar, ok := row[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, ar.Components, 5)

	btn, ok := ar.Components[1].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, ButtonPlayPause, btn.CustomID)
	assert.Equal(t, "⏸️", btn.Emoji.Name)

	snap.Status = player.StatusPaused
	row = ControlsRow(snap)
	btn = row[0].(discordgo.ActionsRow).Components[1].(discordgo.Button)
	assert.Equal(t, "▶️", btn.Emoji.Name)
}
