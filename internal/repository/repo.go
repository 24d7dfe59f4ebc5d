package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertSettings(ctx context.Context, guild string) (*Settings, error) {
	_, _ = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings(guild_id) VALUES (?)`, guild,
	)
	return r.GetSettings(ctx, guild)
}

func (r *Repo) GetSettings(ctx context.Context, guild string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT guild_id, default_volume, loop_mode, autoplay,
	       seconds_wait_after_empty, auto_announce_next_song,
	       queue_page_size, leave_if_no_listeners
	FROM settings WHERE guild_id = ?`, guild)

	var s Settings
	var b1, b2, b3 int
	if err := row.Scan(
		&s.GuildID,
		&s.DefaultVolume,
		&s.LoopMode,
		&b1, // autoplay
		&s.SecondsWaitAfterEmpty,
		&b2, // auto_announce_next_song
		&s.QueuePageSize,
		&b3, // leave_if_no_listeners
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "scan settings")
	}

	s.Autoplay = b1 != 0
	s.AutoAnnounceNext = b2 != 0
	s.LeaveIfNoListeners = b3 != 0
	return &s, nil
}

func (r *Repo) UpdateSettings(ctx context.Context, s *Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settings SET
		  default_volume=?,
		  loop_mode=?,
		  autoplay=?,
		  seconds_wait_after_empty=?,
		  auto_announce_next_song=?,
		  queue_page_size=?,
		  leave_if_no_listeners=?
		WHERE guild_id=?`,
		s.DefaultVolume, s.LoopMode, boolToInt(s.Autoplay),
		s.SecondsWaitAfterEmpty, boolToInt(s.AutoAnnounceNext),
		s.QueuePageSize, boolToInt(s.LeaveIfNoListeners),
		s.GuildID,
	)
	return errors.Wrap(err, "update settings")
}

func (r *Repo) AddFavorite(ctx context.Context, f *Favorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites(guild_id, author_id, name, query) VALUES (?,?,?,?)`,
		f.GuildID, f.Author, f.Name, f.Query,
	)
	return errors.Wrap(err, "add favorite")
}

func (r *Repo) RemoveFavorite(ctx context.Context, guild, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE guild_id=? AND name=?`, guild, name)
	if err != nil {
		return 0, errors.Wrap(err, "remove favorite")
	}
	return res.RowsAffected()
}

func (r *Repo) FindFavorite(ctx context.Context, guild, name string) (*Favorite, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, guild_id, author_id, name, query FROM favorites WHERE guild_id=? AND name=?`, guild, name)
	var f Favorite
	if err := row.Scan(&f.ID, &f.GuildID, &f.Author, &f.Name, &f.Query); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) ListFavorites(ctx context.Context, guild string) ([]Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, guild_id, author_id, name, query FROM favorites WHERE guild_id=? ORDER BY name ASC`, guild)
	if err != nil {
		return nil, errors.Wrap(err, "list favorites")
	}
	defer rows.Close()
	var out []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.GuildID, &f.Author, &f.Name, &f.Query); err != nil {
			return nil, errors.Wrap(err, "scan favorite")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
