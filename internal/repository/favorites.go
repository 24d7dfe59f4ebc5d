package repository

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrEmptyFavoriteName = errors.New("favorite name is empty")
	ErrDuplicateFavorite = errors.New("favorite name already taken in this guild")
)

// FavoritesService fronts the favorites table. It normalizes names and maps
// the per-guild uniqueness constraint to a typed error so the command layer
// can match on it instead of parsing driver messages.
type FavoritesService struct {
	repo *Repo
}

func NewFavoritesService(repo *Repo) *FavoritesService {
	return &FavoritesService{repo: repo}
}

func (f *FavoritesService) Create(ctx context.Context, guild, author, name, query string) error {
	name = strings.TrimSpace(name)
	query = strings.TrimSpace(query)
	if name == "" {
		return ErrEmptyFavoriteName
	}
	err := f.repo.AddFavorite(ctx, &Favorite{
		GuildID: guild, Author: author, Name: name, Query: query,
	})
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return errors.Mark(err, ErrDuplicateFavorite)
	}
	return err
}

func (f *FavoritesService) Remove(ctx context.Context, guild, name string) (int64, error) {
	return f.repo.RemoveFavorite(ctx, guild, strings.TrimSpace(name))
}

func (f *FavoritesService) Use(ctx context.Context, guild, name string) (*Favorite, error) {
	return f.repo.FindFavorite(ctx, guild, strings.TrimSpace(name))
}

func (f *FavoritesService) List(ctx context.Context, guild string) ([]Favorite, error) {
	return f.repo.ListFavorites(ctx, guild)
}
