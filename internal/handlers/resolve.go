package handlers

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/nvallance/quaver/internal/lavalink"
	"github.com/nvallance/quaver/internal/player"
	"github.com/nvallance/quaver/internal/spotify"
)

const playlistAddLimit = 100

// resolution is the outcome of turning a user query into playable tracks.
type resolution struct {
	Tracks       []player.Track
	PlaylistName string
}

// resolveQuery turns a play query into tracks: direct URLs and search terms go
// to the node, spotify links are expanded to titles first and re-searched one
// by one.
func (h *CommandHandler) resolveQuery(ctx context.Context, query, requestedBy string) (*resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}

	if h.sp != nil {
		if typ, id, err := spotify.ParseID(query); err == nil {
			return h.resolveSpotify(ctx, typ, id, requestedBy)
		}
	}

	identifier := query
	if !strings.HasPrefix(query, "http://") && !strings.HasPrefix(query, "https://") {
		identifier = "ytsearch:" + query
	}

	res, err := h.lava.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, err
	}

	switch res.Type {
	case lavalink.LoadTypeTrack:
		return &resolution{Tracks: nodeTracks(res.Tracks, requestedBy)}, nil
	case lavalink.LoadTypePlaylist:
		tracks := res.Tracks
		if len(tracks) > playlistAddLimit {
			tracks = tracks[:playlistAddLimit]
		}
		return &resolution{Tracks: nodeTracks(tracks, requestedBy), PlaylistName: res.PlaylistName}, nil
	case lavalink.LoadTypeSearch:
		if len(res.Tracks) == 0 {
			return nil, errors.New("no results")
		}
		return &resolution{Tracks: nodeTracks(res.Tracks[:1], requestedBy)}, nil
	case lavalink.LoadTypeEmpty:
		return nil, errors.New("no results")
	case lavalink.LoadTypeError:
		return nil, errors.Newf("track load failed: %s", res.ErrorMessage)
	default:
		return nil, errors.Newf("unexpected load type %q", res.Type)
	}
}

// resolveSpotify expands a spotify link into titles and resolves each title on
// the node. Tracks that find no playable match are skipped.
func (h *CommandHandler) resolveSpotify(ctx context.Context, typ, id, requestedBy string) (*resolution, error) {
	var (
		seeds []spotify.Track
		meta  spotify.PlaylistMeta
		err   error
	)
	switch typ {
	case "track":
		var t spotify.Track
		t, err = h.sp.GetTrack(ctx, id)
		seeds = []spotify.Track{t}
	case "album":
		seeds, meta, err = h.sp.GetAlbum(ctx, id, playlistAddLimit)
	case "playlist":
		seeds, meta, err = h.sp.GetPlaylist(ctx, id, playlistAddLimit)
	default:
		return nil, errors.Newf("unsupported spotify type %q", typ)
	}
	if err != nil {
		return nil, err
	}

	out := &resolution{PlaylistName: meta.Title}
	for _, seed := range seeds {
		q := seed.Name
		if seed.Artist != "" {
			q += " " + seed.Artist
		}
		res, err := h.lava.LoadTracks(ctx, "ytsearch:"+q)
		if err != nil || len(res.Tracks) == 0 {
			continue
		}
		out.Tracks = append(out.Tracks, trackFromNode(res.Tracks[0], requestedBy))
	}
	if len(out.Tracks) == 0 {
		return nil, errors.New("no playable matches found")
	}
	return out, nil
}

func nodeTracks(in []lavalink.Track, requestedBy string) []player.Track {
	out := make([]player.Track, 0, len(in))
	for _, t := range in {
		out = append(out, trackFromNode(t, requestedBy))
	}
	return out
}
