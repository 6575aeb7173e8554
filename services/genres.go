package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/models"
)

// GenreDetail is a genre together with the movies tagged with it
type GenreDetail struct {
	models.Genre
	Movies []models.Movie `json:"movies"`
}

// GenreService manages the genre catalogue. Mutations are admin only.
type GenreService struct {
	store Store
	log   zerolog.Logger
}

func NewGenreService(store Store, log zerolog.Logger) *GenreService {
	return &GenreService{
		store: store,
		log:   log.With().Str("component", "genres").Logger(),
	}
}

// List returns every genre ordered by name
func (s *GenreService) List(ctx context.Context) ([]models.Genre, error) {
	genres, err := s.store.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

// Get returns the genre and the movies tagged with it
func (s *GenreService) Get(ctx context.Context, id uint) (*GenreDetail, error) {
	genre, err := s.store.GetGenre(ctx, id)
	if err != nil {
		return nil, genreErr(err)
	}
	movies, err := s.store.ListGenreMovies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list genre movies: %w", err)
	}
	return &GenreDetail{Genre: *genre, Movies: movies}, nil
}

func (s *GenreService) Create(ctx context.Context, p *Principal, in GenreInput) (*models.Genre, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	genre := &models.Genre{Name: in.Name, Common: in.Common}
	if err := s.store.CreateGenre(ctx, genre); err != nil {
		return nil, genreErr(err)
	}
	s.log.Info().Uint("genre_id", genre.ID).Str("name", genre.Name).Uint("by", p.UserID).Msg("genre created")
	return genre, nil
}

// Update applies the fields present in the update
func (s *GenreService) Update(ctx context.Context, p *Principal, id uint, in GenreUpdate) (*models.Genre, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	var updated *models.Genre
	err := s.store.Transaction(ctx, func(tx Store) error {
		genre, err := tx.GetGenre(ctx, id)
		if err != nil {
			return genreErr(err)
		}
		if in.Name != nil {
			genre.Name = *in.Name
		}
		if in.Common != nil {
			genre.Common = *in.Common
		}
		if err := tx.SaveGenre(ctx, genre); err != nil {
			return genreErr(err)
		}
		updated = genre
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("genre_id", id).Uint("by", p.UserID).Msg("genre updated")
	return updated, nil
}

// Delete removes the genre from the catalogue and from every movie
func (s *GenreService) Delete(ctx context.Context, p *Principal, id uint) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	err := s.store.Transaction(ctx, func(tx Store) error {
		return genreErr(tx.DeleteGenre(ctx, id))
	})
	if err != nil {
		return err
	}
	s.log.Info().Uint("genre_id", id).Uint("by", p.UserID).Msg("genre deleted")
	return nil
}

func genreErr(err error) error {
	if err == nil {
		return nil
	}
	var derr *Error
	if errors.As(err, &derr) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound("Genre not found")
	case errors.Is(err, ErrConflict):
		return conflict("Genre already exists")
	}
	return fmt.Errorf("genre: %w", err)
}
