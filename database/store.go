// Package database is the postgres persistence layer built on gorm
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/irisdrone/moviedb/models"
	"github.com/irisdrone/moviedb/services"
)

// Store implements services.Store on a gorm connection or transaction
type Store struct {
	db *gorm.DB
}

var _ services.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "create user")
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, "find user by email")
	}
	return &user, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "find user by username")
	}
	return &user, nil
}

func (s *Store) SetUserRole(ctx context.Context, username string, role models.Role) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Update("role", role)
	if res.Error != nil {
		return translate(res.Error, "set user role")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set user role: %w", services.ErrNotFound)
	}
	return nil
}

func (s *Store) ListMovies(ctx context.Context, offset, limit int) ([]models.Movie, error) {
	var movies []models.Movie
	err := s.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&movies).Error
	if err != nil {
		return nil, translate(err, "list movies")
	}
	return movies, nil
}

func (s *Store) ListMovieIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Movie{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, "list movie ids")
	}
	return ids, nil
}

func (s *Store) GetMovie(ctx context.Context, id uint) (*models.Movie, error) {
	var movie models.Movie
	if err := s.db.WithContext(ctx).First(&movie, id).Error; err != nil {
		return nil, translate(err, "get movie")
	}
	return &movie, nil
}

// LockMovie selects the movie FOR UPDATE. Outside a transaction the lock is released immediately.
func (s *Store) LockMovie(ctx context.Context, id uint) (*models.Movie, error) {
	var movie models.Movie
	err := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&movie, id).Error
	if err != nil {
		return nil, translate(err, "lock movie")
	}
	return &movie, nil
}

func (s *Store) CreateMovie(ctx context.Context, movie *models.Movie) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(movie).Error; err != nil {
		return translate(err, "create movie")
	}
	return nil
}

// SaveMovie writes the editable columns. Rating is never touched here.
func (s *Store) SaveMovie(ctx context.Context, movie *models.Movie) error {
	res := s.db.WithContext(ctx).Model(movie).
		Select("title", "description", "year", "director", "updated_at").
		Updates(movie)
	if res.Error != nil {
		return translate(res.Error, "save movie")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save movie: %w", services.ErrNotFound)
	}
	return nil
}

// DeleteMovie removes the movie's reviews, its genre links and then the movie.
// Call it inside a transaction.
func (s *Store) DeleteMovie(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("movie_id = ?", id).Delete(&models.Review{}).Error; err != nil {
		return translate(err, "delete movie reviews")
	}
	if err := db.Where("movie_id = ?", id).Delete(&models.MovieGenre{}).Error; err != nil {
		return translate(err, "delete movie genres")
	}
	res := db.Delete(&models.Movie{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete movie")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete movie: %w", services.ErrNotFound)
	}
	return nil
}

func (s *Store) SetMovieRating(ctx context.Context, id uint, rating float64) error {
	res := s.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).UpdateColumn("rating", rating)
	if res.Error != nil {
		return translate(res.Error, "set movie rating")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set movie rating: %w", services.ErrNotFound)
	}
	return nil
}

func (s *Store) GetReview(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).Preload("Author").First(&review, id).Error; err != nil {
		return nil, translate(err, "get review")
	}
	return &review, nil
}

func (s *Store) FindReview(ctx context.Context, movieID, userID uint) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).Where("movie_id = ? AND user_id = ?", movieID, userID).First(&review).Error
	if err != nil {
		return nil, translate(err, "find review")
	}
	return &review, nil
}

func (s *Store) ListReviews(ctx context.Context, movieID uint) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.db.WithContext(ctx).Preload("Author").
		Where("movie_id = ?", movieID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, translate(err, "list reviews")
	}
	return reviews, nil
}

func (s *Store) ReviewRatings(ctx context.Context, movieID uint) ([]float64, error) {
	var ratings []float64
	err := s.db.WithContext(ctx).Model(&models.Review{}).Where("movie_id = ?", movieID).Pluck("rating", &ratings).Error
	if err != nil {
		return nil, translate(err, "load review ratings")
	}
	return ratings, nil
}

func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		return translate(err, "create review")
	}
	return nil
}

func (s *Store) SaveReview(ctx context.Context, review *models.Review) error {
	res := s.db.WithContext(ctx).Model(review).Omit(clause.Associations).
		Select("rating", "comment").
		Updates(review)
	if res.Error != nil {
		return translate(res.Error, "save review")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save review: %w", services.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Review{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete review")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete review: %w", services.ErrNotFound)
	}
	return nil
}

func (s *Store) ListGenres(ctx context.Context) ([]models.Genre, error) {
	genres := []models.Genre{}
	if err := s.db.WithContext(ctx).Order("name, id").Find(&genres).Error; err != nil {
		return nil, translate(err, "list genres")
	}
	return genres, nil
}

func (s *Store) GetGenre(ctx context.Context, id uint) (*models.Genre, error) {
	var genre models.Genre
	if err := s.db.WithContext(ctx).First(&genre, id).Error; err != nil {
		return nil, translate(err, "get genre")
	}
	return &genre, nil
}

func (s *Store) CreateGenre(ctx context.Context, genre *models.Genre) error {
	if err := s.db.WithContext(ctx).Create(genre).Error; err != nil {
		return translate(err, "create genre")
	}
	return nil
}

func (s *Store) SaveGenre(ctx context.Context, genre *models.Genre) error {
	res := s.db.WithContext(ctx).Model(genre).Select("name", "common").Updates(genre)
	if res.Error != nil {
		return translate(res.Error, "save genre")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save genre: %w", services.ErrNotFound)
	}
	return nil
}

// DeleteGenre removes the genre's movie links and then the genre. Call it inside a transaction.
func (s *Store) DeleteGenre(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("genre_id = ?", id).Delete(&models.MovieGenre{}).Error; err != nil {
		return translate(err, "delete genre links")
	}
	res := db.Delete(&models.Genre{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete genre")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete genre: %w", services.ErrNotFound)
	}
	return nil
}

func (s *Store) ListMovieGenres(ctx context.Context, movieID uint) ([]models.Genre, error) {
	genres := []models.Genre{}
	err := s.db.WithContext(ctx).
		Joins("JOIN movie_genres ON movie_genres.genre_id = genres.id").
		Where("movie_genres.movie_id = ?", movieID).
		Order("genres.name, genres.id").
		Find(&genres).Error
	if err != nil {
		return nil, translate(err, "list movie genres")
	}
	return genres, nil
}

func (s *Store) ListGenreMovies(ctx context.Context, genreID uint) ([]models.Movie, error) {
	movies := []models.Movie{}
	err := s.db.WithContext(ctx).
		Joins("JOIN movie_genres ON movie_genres.movie_id = movies.id").
		Where("movie_genres.genre_id = ?", genreID).
		Order("movies.id").
		Find(&movies).Error
	if err != nil {
		return nil, translate(err, "list genre movies")
	}
	return movies, nil
}

func (s *Store) AddMovieGenre(ctx context.Context, movieID, genreID uint) error {
	link := &models.MovieGenre{MovieID: movieID, GenreID: genreID}
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		return translate(err, "add movie genre")
	}
	return nil
}

func (s *Store) RemoveMovieGenre(ctx context.Context, movieID, genreID uint) error {
	res := s.db.WithContext(ctx).
		Where("movie_id = ? AND genre_id = ?", movieID, genreID).
		Delete(&models.MovieGenre{})
	if res.Error != nil {
		return translate(res.Error, "remove movie genre")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("remove movie genre: %w", services.ErrNotFound)
	}
	return nil
}

func (s *Store) ClearMovieGenres(ctx context.Context, movieID uint) error {
	if err := s.db.WithContext(ctx).Where("movie_id = ?", movieID).Delete(&models.MovieGenre{}).Error; err != nil {
		return translate(err, "clear movie genres")
	}
	return nil
}

func (s *Store) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps driver errors onto the services error kinds
func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, services.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, services.ErrConflict)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, services.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
