package handlers

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/nvallance/quaver/internal/lavalink"
	"github.com/nvallance/quaver/internal/player"
	"github.com/nvallance/quaver/internal/spotify"
)

// recommender resolves one follow-up track when autoplay is on and the queue
// runs dry: spotify suggests a similar song, the node resolves it to something
// playable.
type recommender struct {
	sp   *spotify.Client
	lava *lavalink.Client
}

var _ player.Recommender = (*recommender)(nil)

func newRecommender(sp *spotify.Client, lava *lavalink.Client) *recommender {
	return &recommender{sp: sp, lava: lava}
}

func (r *recommender) Recommend(ctx context.Context, seed player.Track) (*player.Track, error) {
	if r.sp == nil {
		return nil, nil
	}

	rec, err := r.sp.Recommend(ctx, seed.Title, seed.Author)
	if err != nil {
		return nil, errors.Wrap(err, "spotify recommendation")
	}
	if rec == nil {
		return nil, nil
	}

	query := rec.Name
	if rec.Artist != "" {
		query += " " + rec.Artist
	}
	res, err := r.lava.LoadTracks(ctx, "ytsearch:"+query)
	if err != nil {
		return nil, errors.Wrap(err, "resolve recommendation")
	}
	if len(res.Tracks) == 0 {
		slog.Debug("recommendation had no playable match", "query", query)
		return nil, nil
	}

	t := trackFromNode(res.Tracks[0], "")
	return &t, nil
}
