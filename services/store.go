// Package services provides business logic services: validation, the
// authorization policy and rating aggregation on top of a Store.
package services

import (
	"context"

	"github.com/irisdrone/moviedb/models"
)

// Store is the persistence gateway. Implementations return ErrNotFound and
// ErrConflict (possibly wrapped) for missing rows and uniqueness violations.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetUserRole(ctx context.Context, username string, role models.Role) error

	ListMovies(ctx context.Context, offset, limit int) ([]models.Movie, error)
	ListMovieIDs(ctx context.Context) ([]uint, error)
	GetMovie(ctx context.Context, id uint) (*models.Movie, error)
	// LockMovie loads the movie and holds it until the surrounding transaction ends
	LockMovie(ctx context.Context, id uint) (*models.Movie, error)
	CreateMovie(ctx context.Context, movie *models.Movie) error
	SaveMovie(ctx context.Context, movie *models.Movie) error
	DeleteMovie(ctx context.Context, id uint) error
	SetMovieRating(ctx context.Context, id uint, rating float64) error

	GetReview(ctx context.Context, id uint) (*models.Review, error)
	FindReview(ctx context.Context, movieID, userID uint) (*models.Review, error)
	ListReviews(ctx context.Context, movieID uint) ([]models.Review, error)
	ReviewRatings(ctx context.Context, movieID uint) ([]float64, error)
	CreateReview(ctx context.Context, review *models.Review) error
	SaveReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, id uint) error

	ListGenres(ctx context.Context) ([]models.Genre, error)
	GetGenre(ctx context.Context, id uint) (*models.Genre, error)
	CreateGenre(ctx context.Context, genre *models.Genre) error
	SaveGenre(ctx context.Context, genre *models.Genre) error
	// DeleteGenre detaches the genre from every movie and removes it
	DeleteGenre(ctx context.Context, id uint) error
	ListMovieGenres(ctx context.Context, movieID uint) ([]models.Genre, error)
	ListGenreMovies(ctx context.Context, genreID uint) ([]models.Movie, error)
	AddMovieGenre(ctx context.Context, movieID, genreID uint) error
	RemoveMovieGenre(ctx context.Context, movieID, genreID uint) error
	ClearMovieGenres(ctx context.Context, movieID uint) error

	// Transaction runs fn against a transactional view and commits when fn returns nil
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
