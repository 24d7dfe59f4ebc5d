package spotify

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Track is the minimal metadata needed to re-search a song elsewhere.
type Track struct {
	Name   string
	Artist string
}

type PlaylistMeta struct {
	Title  string
	Source string
}

type Client struct {
	raw *spotify.Client
}

func NewClientCredentials(clientID, clientSecret string) (*Client, error) {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	return &Client{raw: spotify.New(httpClient, spotify.WithRetry(true))}, nil
}

// ParseID extracts the object type and id from a spotify URI or open.spotify.com URL.
func ParseID(raw string) (typ, id string, err error) {
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 {
			return parts[1], parts[2], nil
		}
		return "", "", errors.New("invalid spotify URI")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", errors.New("not a spotify URL")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", errors.New("invalid spotify URL path")
	}
	switch parts[0] {
	case "album", "playlist", "track":
		return parts[0], parts[1], nil
	}
	return "", "", errors.New("unsupported spotify type")
}

func firstArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func (c *Client) GetTrack(ctx context.Context, id string) (Track, error) {
	t, err := c.raw.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return Track{}, errors.Wrap(err, "get track")
	}
	return Track{Name: t.Name, Artist: firstArtist(t.Artists)}, nil
}

func (c *Client) GetAlbum(ctx context.Context, id string, limit int) ([]Track, PlaylistMeta, error) {
	alb, err := c.raw.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, PlaylistMeta{}, errors.Wrap(err, "get album")
	}
	page, err := c.raw.GetAlbumTracks(ctx, spotify.ID(id))
	if err != nil {
		return nil, PlaylistMeta{}, errors.Wrap(err, "get album tracks")
	}
	out := make([]Track, 0, page.Total)
	for {
		for _, t := range page.Tracks {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, Track{Name: t.Name, Artist: firstArtist(t.Artists)})
		}
		if page.Next == "" || (limit > 0 && len(out) >= limit) {
			break
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
	}
	return out, PlaylistMeta{Title: alb.Name, Source: alb.ExternalURLs["spotify"]}, nil
}

func (c *Client) GetPlaylist(ctx context.Context, id string, limit int) ([]Track, PlaylistMeta, error) {
	pl, err := c.raw.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, PlaylistMeta{}, errors.Wrap(err, "get playlist")
	}
	page, err := c.raw.GetPlaylistItems(ctx, spotify.ID(id))
	if err != nil {
		return nil, PlaylistMeta{}, errors.Wrap(err, "get playlist items")
	}
	out := make([]Track, 0, page.Total)
	for {
		for _, it := range page.Items {
			if it.Track.Track == nil {
				continue
			}
			if limit > 0 && len(out) >= limit {
				break
			}
			t := it.Track.Track
			out = append(out, Track{Name: t.Name, Artist: firstArtist(t.Artists)})
		}
		if page.Next == "" || (limit > 0 && len(out) >= limit) {
			break
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
	}
	return out, PlaylistMeta{Title: pl.Name, Source: pl.ExternalURLs["spotify"]}, nil
}

// SearchTracks returns up to limit track matches for a freetext query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}
	res, err := c.raw.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "search tracks")
	}
	var out []Track
	if res.Tracks != nil {
		for _, t := range res.Tracks.Tracks {
			out = append(out, Track{Name: t.Name, Artist: firstArtist(t.Artists)})
		}
	}
	return out, nil
}

// Recommend returns one track similar to the seed, or nil when spotify has no
// suggestion. The seed is looked up by name and artist first.
func (c *Client) Recommend(ctx context.Context, seedTitle, seedArtist string) (*Track, error) {
	q := seedTitle
	if seedArtist != "" {
		q += " artist:" + seedArtist
	}
	res, err := c.raw.Search(ctx, q, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, errors.Wrap(err, "resolve seed")
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, nil
	}
	seed := res.Tracks.Tracks[0]

	recs, err := c.raw.GetRecommendations(ctx,
		spotify.Seeds{Tracks: []spotify.ID{seed.ID}},
		spotify.NewTrackAttributes(),
		spotify.Limit(5),
	)
	if err != nil {
		return nil, errors.Wrap(err, "get recommendations")
	}
	for _, t := range recs.Tracks {
		// skip the seed itself if it comes back
		if t.ID == seed.ID {
			continue
		}
		return &Track{Name: t.Name, Artist: firstArtist(t.Artists)}, nil
	}
	return nil, nil
}
