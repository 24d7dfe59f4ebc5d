package ui

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nvallance/quaver/internal/player"
	"github.com/nvallance/quaver/internal/utils"
)

func trackLink(t player.Track) string {
	title := utils.EscapeMd(t.Title)
	if t.URI == "" {
		return title
	}
	return fmt.Sprintf("[%s](%s)", title, t.URI)
}

func loopBadge(m player.LoopMode) string {
	switch m {
	case player.LoopTrack:
		return "🔂"
	case player.LoopQueue:
		return "🔁"
	default:
		return ""
	}
}

// BuildPlayingEmbed renders the now-playing message. pos is the node-reported
// playback position; pass hasPos=false when the node has not reported one yet.
func BuildPlayingEmbed(snap player.Snapshot, pos time.Duration, hasPos bool) *discordgo.MessageEmbed {
	cur := snap.NowPlaying
	if cur == nil {
		return &discordgo.MessageEmbed{
			Title:       "Nothing Playing",
			Description: "The queue is empty",
			Color:       0x992222,
		}
	}

	button := "▶️"
	if snap.Status == player.StatusPlaying {
		button = "⏸️"
	}

	elapsed := "live"
	bar := ProgressBar(10, 0)
	if !cur.IsLive() {
		progress := 0.0
		if hasPos && cur.Length > 0 {
			progress = float64(pos) / float64(cur.Length)
		}
		bar = ProgressBar(10, progress)
		shown := time.Duration(0)
		if hasPos {
			shown = pos
			if shown > cur.Length {
				shown = cur.Length
			}
		}
		elapsed = fmt.Sprintf("%s/%s", utils.PrettyDuration(shown), utils.PrettyDuration(cur.Length))
	}

	requested := ""
	if cur.RequestedBy != "" {
		requested = fmt.Sprintf("Requested by: <@%s>\n", cur.RequestedBy)
	}

	desc := fmt.Sprintf("**%s**\n%s\n%s %s `[ %s ]` %s",
		trackLink(*cur), requested, button, bar, elapsed, loopBadge(snap.State.Loop),
	)

	color := 0x006400
	title := "Now Playing"
	if snap.Status == player.StatusPaused {
		color = 0x8B0000
		title = "Paused"
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s | volume %d%%", cur.Author, snap.State.Volume),
		},
	}
	if cur.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cur.ArtworkURL}
	}
	return embed
}

// BuildQueueEmbed renders one page of the upcoming queue.
func BuildQueueEmbed(snap player.Snapshot, page, pageSize int) (*discordgo.MessageEmbed, error) {
	if snap.NowPlaying == nil {
		return nil, fmt.Errorf("queue is empty")
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	upcoming := snap.Upcoming
	total := len(upcoming)
	maxPage := (total + pageSize - 1) / pageSize
	if maxPage == 0 {
		maxPage = 1
	}
	if page > maxPage {
		return nil, fmt.Errorf("the queue isn't that big")
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	list := ""
	for i, t := range upcoming[start:end] {
		dur := "live"
		if !t.IsLive() {
			dur = utils.PrettyDuration(t.Length)
		}
		list += fmt.Sprintf("`%d.` %s `[ %s ]`\n", start+i+1, trackLink(t), dur)
	}

	var totalLen time.Duration
	for _, t := range upcoming {
		totalLen += t.Length
	}

	desc := fmt.Sprintf("**%s**\n\n", trackLink(*snap.NowPlaying))
	if list != "" {
		desc += "**Up next:**\n" + list
	}

	loop := loopBadge(snap.State.Loop)
	title := "Queue"
	if loop != "" {
		title += " " + loop
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       0x006400,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "In queue", Value: fmt.Sprint(total), Inline: true},
			{Name: "Total length", Value: utils.PrettyDuration(totalLen), Inline: true},
			{Name: "Page", Value: fmt.Sprintf("%d/%d", page, maxPage), Inline: true},
		},
	}, nil
}

// BuildHistoryEmbed renders the play-again history, most recent first.
func BuildHistoryEmbed(snap player.Snapshot) *discordgo.MessageEmbed {
	if len(snap.History) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "History",
			Description: "Nothing has finished playing yet",
			Color:       0x992222,
		}
	}
	desc := ""
	for i := len(snap.History) - 1; i >= 0; i-- {
		t := snap.History[i]
		desc += fmt.Sprintf("`%d.` %s\n", len(snap.History)-i, trackLink(t))
	}
	return &discordgo.MessageEmbed{
		Title:       "History",
		Description: desc,
		Color:       0x006400,
	}
}
