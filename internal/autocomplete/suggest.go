package autocomplete

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/nvallance/quaver/internal/spotify"
)

// GetSuggestions turns a partial play query into autocomplete choices backed
// by spotify track search. Returns an empty slice when spotify is not
// configured.
func GetSuggestions(ctx context.Context, query string, sp *spotify.Client, limit int) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	if limit <= 0 {
		limit = 10
	}
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, limit)
	if sp == nil {
		return out, nil
	}

	tracks, err := sp.SearchTracks(ctx, query, limit)
	if err != nil {
		return out, err
	}
	for _, t := range tracks {
		name := fmt.Sprintf("🎵 %s", t.Name)
		value := t.Name
		if t.Artist != "" {
			name += " - " + t.Artist
			value += " " + t.Artist
		}
		name = truncateName(name, 100)
		out = append(out, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: value,
		})
	}
	return out, nil
}

// truncateName cuts on rune boundaries. Names start with an emoji, so a byte
// slice could split it and leave invalid UTF-8 behind.
func truncateName(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
