package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/models"
)

// MovieDetail is a movie together with its genres and reviews
type MovieDetail struct {
	models.Movie
	Genres  []models.Genre  `json:"genres"`
	Reviews []models.Review `json:"reviews"`
}

// MovieService manages the catalogue. Mutations are admin only.
type MovieService struct {
	store Store
	log   zerolog.Logger
}

func NewMovieService(store Store, log zerolog.Logger) *MovieService {
	return &MovieService{
		store: store,
		log:   log.With().Str("component", "movies").Logger(),
	}
}

// List returns movies ordered by id
func (s *MovieService) List(ctx context.Context, params ListParams) ([]models.Movie, error) {
	if err := Validate(params); err != nil {
		return nil, err
	}
	movies, err := s.store.ListMovies(ctx, params.Skip, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// Get returns the movie, its genres and every review of it with the review authors
func (s *MovieService) Get(ctx context.Context, id uint) (*MovieDetail, error) {
	movie, err := s.store.GetMovie(ctx, id)
	if err != nil {
		return nil, movieErr(err)
	}
	genres, err := s.store.ListMovieGenres(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list movie genres: %w", err)
	}
	reviews, err := s.store.ListReviews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return &MovieDetail{Movie: *movie, Genres: genres, Reviews: reviews}, nil
}

// Create adds a movie owned by the acting admin. Rating starts at 0.
func (s *MovieService) Create(ctx context.Context, p *Principal, in MovieInput) (*models.Movie, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	movie := &models.Movie{
		Title:       in.Title,
		Description: in.Description,
		Year:        in.Year,
		Director:    in.Director,
		CreatedBy:   p.UserID,
	}
	if err := s.store.CreateMovie(ctx, movie); err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}
	s.log.Info().Uint("movie_id", movie.ID).Uint("by", p.UserID).Msg("movie created")
	return movie, nil
}

// Update applies the fields present in the update
func (s *MovieService) Update(ctx context.Context, p *Principal, id uint, in MovieUpdate) (*models.Movie, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	var updated *models.Movie
	err := s.store.Transaction(ctx, func(tx Store) error {
		movie, err := tx.LockMovie(ctx, id)
		if err != nil {
			return movieErr(err)
		}
		if in.Title != nil {
			movie.Title = *in.Title
		}
		if in.Description != nil {
			movie.Description = in.Description
		}
		if in.Year != nil {
			movie.Year = in.Year
		}
		if in.Director != nil {
			movie.Director = in.Director
		}
		if err := tx.SaveMovie(ctx, movie); err != nil {
			return fmt.Errorf("save movie: %w", err)
		}
		updated = movie
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("movie_id", id).Uint("by", p.UserID).Msg("movie updated")
	return updated, nil
}

// Delete removes the movie and its reviews
func (s *MovieService) Delete(ctx context.Context, p *Principal, id uint) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	err := s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.LockMovie(ctx, id); err != nil {
			return movieErr(err)
		}
		if err := tx.DeleteMovie(ctx, id); err != nil {
			return movieErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Uint("movie_id", id).Uint("by", p.UserID).Msg("movie deleted")
	return nil
}

// Genres returns the genres of an existing movie ordered by name
func (s *MovieService) Genres(ctx context.Context, movieID uint) ([]models.Genre, error) {
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return nil, movieErr(err)
	}
	genres, err := s.store.ListMovieGenres(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("list movie genres: %w", err)
	}
	return genres, nil
}

// ReplaceGenres sets the movie's genres to exactly the listed ones. An unknown
// genre id rejects the whole request.
func (s *MovieService) ReplaceGenres(ctx context.Context, p *Principal, movieID uint, in MovieGenresInput) ([]models.Genre, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	var genres []models.Genre
	err := s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.LockMovie(ctx, movieID); err != nil {
			return movieErr(err)
		}
		if err := tx.ClearMovieGenres(ctx, movieID); err != nil {
			return fmt.Errorf("clear movie genres: %w", err)
		}
		for _, genreID := range uniqueIDs(in.GenreIDs) {
			if err := attachGenre(ctx, tx, movieID, genreID); err != nil {
				return err
			}
		}
		var err error
		genres, err = tx.ListMovieGenres(ctx, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("movie_id", movieID).Int("genres", len(genres)).Uint("by", p.UserID).Msg("movie genres replaced")
	return genres, nil
}

// AddGenres attaches the listed genres, skipping ones the movie already has.
// It returns how many were attached and the resulting genre list.
func (s *MovieService) AddGenres(ctx context.Context, p *Principal, movieID uint, in MovieGenresInput) (int, []models.Genre, error) {
	if err := requireAdmin(p); err != nil {
		return 0, nil, err
	}
	if err := Validate(in); err != nil {
		return 0, nil, err
	}
	if len(in.GenreIDs) == 0 {
		return 0, nil, Invalid("genre_ids", "min", "genre_ids must contain at least one id")
	}

	var (
		added  int
		genres []models.Genre
	)
	err := s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.LockMovie(ctx, movieID); err != nil {
			return movieErr(err)
		}
		current, err := tx.ListMovieGenres(ctx, movieID)
		if err != nil {
			return fmt.Errorf("list movie genres: %w", err)
		}
		has := make(map[uint]bool, len(current))
		for _, g := range current {
			has[g.ID] = true
		}
		for _, genreID := range uniqueIDs(in.GenreIDs) {
			if has[genreID] {
				continue
			}
			if err := attachGenre(ctx, tx, movieID, genreID); err != nil {
				return err
			}
			added++
		}
		genres, err = tx.ListMovieGenres(ctx, movieID)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	s.log.Info().Uint("movie_id", movieID).Int("added", added).Uint("by", p.UserID).Msg("movie genres added")
	return added, genres, nil
}

// RemoveGenre detaches one genre from the movie
func (s *MovieService) RemoveGenre(ctx context.Context, p *Principal, movieID, genreID uint) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	err := s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.LockMovie(ctx, movieID); err != nil {
			return movieErr(err)
		}
		if err := tx.RemoveMovieGenre(ctx, movieID, genreID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFound("Genre not assigned to movie")
			}
			return fmt.Errorf("remove movie genre: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Uint("movie_id", movieID).Uint("genre_id", genreID).Uint("by", p.UserID).Msg("movie genre removed")
	return nil
}

func attachGenre(ctx context.Context, tx Store, movieID, genreID uint) error {
	if _, err := tx.GetGenre(ctx, genreID); err != nil {
		return genreErr(err)
	}
	if err := tx.AddMovieGenre(ctx, movieID, genreID); err != nil {
		if errors.Is(err, ErrConflict) {
			return conflict("Genre already assigned to movie")
		}
		return fmt.Errorf("add movie genre: %w", err)
	}
	return nil
}

// uniqueIDs drops repeated ids and keeps the first occurrence order
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func movieErr(err error) error {
	var derr *Error
	if errors.As(err, &derr) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return notFound("Movie not found")
	}
	return fmt.Errorf("load movie: %w", err)
}
