// Package memory is an in-process services.Store used by tests and the
// memory:// development mode
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/irisdrone/moviedb/models"
	"github.com/irisdrone/moviedb/services"
)

type link struct {
	movieID uint
	genreID uint
}

type dataset struct {
	users   map[uint]models.User
	movies  map[uint]models.Movie
	reviews map[uint]models.Review
	genres  map[uint]models.Genre
	links   map[link]time.Time

	nextUser   uint
	nextMovie  uint
	nextReview uint
	nextGenre  uint
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		users:      make(map[uint]models.User, len(d.users)),
		movies:     make(map[uint]models.Movie, len(d.movies)),
		reviews:    make(map[uint]models.Review, len(d.reviews)),
		genres:     make(map[uint]models.Genre, len(d.genres)),
		links:      make(map[link]time.Time, len(d.links)),
		nextUser:   d.nextUser,
		nextMovie:  d.nextMovie,
		nextReview: d.nextReview,
		nextGenre:  d.nextGenre,
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.movies {
		out.movies[k] = v
	}
	for k, v := range d.reviews {
		out.reviews[k] = v
	}
	for k, v := range d.genres {
		out.genres[k] = v
	}
	for k, v := range d.links {
		out.links[k] = v
	}
	return out
}

// Store keeps everything in maps guarded by one mutex. Transactions hold the
// mutex for their whole duration and restore a snapshot on error.
type Store struct {
	mu   *sync.Mutex
	data *dataset
	inTx bool
	now  func() time.Time
}

var _ services.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		data: &dataset{
			users:   map[uint]models.User{},
			movies:  map[uint]models.Movie{},
			reviews: map[uint]models.Review{},
			genres:  map[uint]models.Genre{},
			links:   map[link]time.Time{},
		},
		now: time.Now,
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, services.ErrNotFound)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user: email: %w", services.ErrConflict)
		}
		if u.Username == user.Username {
			return fmt.Errorf("create user: username: %w", services.ErrConflict)
		}
	}
	s.data.nextUser++
	user.ID = s.data.nextUser
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = s.now()
	s.data.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	defer s.lock()()
	u, ok := s.data.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("find user by email")
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, notFound("find user by username")
}

func (s *Store) SetUserRole(ctx context.Context, username string, role models.Role) error {
	defer s.lock()()
	for id, u := range s.data.users {
		if u.Username == username {
			u.Role = role
			s.data.users[id] = u
			return nil
		}
	}
	return notFound("set user role")
}

func (s *Store) sortedMovieIDs() []uint {
	ids := make([]uint, 0, len(s.data.movies))
	for id := range s.data.movies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) ListMovies(ctx context.Context, offset, limit int) ([]models.Movie, error) {
	defer s.lock()()
	ids := s.sortedMovieIDs()
	out := []models.Movie{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, s.data.movies[ids[i]])
	}
	return out, nil
}

func (s *Store) ListMovieIDs(ctx context.Context) ([]uint, error) {
	defer s.lock()()
	return s.sortedMovieIDs(), nil
}

func (s *Store) GetMovie(ctx context.Context, id uint) (*models.Movie, error) {
	defer s.lock()()
	m, ok := s.data.movies[id]
	if !ok {
		return nil, notFound("get movie")
	}
	return &m, nil
}

// LockMovie is GetMovie, the transaction already holds the store mutex
func (s *Store) LockMovie(ctx context.Context, id uint) (*models.Movie, error) {
	return s.GetMovie(ctx, id)
}

func (s *Store) CreateMovie(ctx context.Context, movie *models.Movie) error {
	defer s.lock()()
	s.data.nextMovie++
	movie.ID = s.data.nextMovie
	now := s.now()
	movie.CreatedAt = now
	movie.UpdatedAt = now
	movie.Reviews = nil
	s.data.movies[movie.ID] = *movie
	return nil
}

func (s *Store) SaveMovie(ctx context.Context, movie *models.Movie) error {
	defer s.lock()()
	current, ok := s.data.movies[movie.ID]
	if !ok {
		return notFound("save movie")
	}
	current.Title = movie.Title
	current.Description = movie.Description
	current.Year = movie.Year
	current.Director = movie.Director
	current.UpdatedAt = s.now()
	s.data.movies[movie.ID] = current
	movie.UpdatedAt = current.UpdatedAt
	return nil
}

func (s *Store) DeleteMovie(ctx context.Context, id uint) error {
	defer s.lock()()
	if _, ok := s.data.movies[id]; !ok {
		return notFound("delete movie")
	}
	for rid, r := range s.data.reviews {
		if r.MovieID == id {
			delete(s.data.reviews, rid)
		}
	}
	for l := range s.data.links {
		if l.movieID == id {
			delete(s.data.links, l)
		}
	}
	delete(s.data.movies, id)
	return nil
}

func (s *Store) SetMovieRating(ctx context.Context, id uint, rating float64) error {
	defer s.lock()()
	m, ok := s.data.movies[id]
	if !ok {
		return notFound("set movie rating")
	}
	m.Rating = rating
	s.data.movies[id] = m
	return nil
}

func (s *Store) withAuthor(r models.Review) models.Review {
	if u, ok := s.data.users[r.UserID]; ok {
		r.Author = &u
	}
	return r
}

func (s *Store) GetReview(ctx context.Context, id uint) (*models.Review, error) {
	defer s.lock()()
	r, ok := s.data.reviews[id]
	if !ok {
		return nil, notFound("get review")
	}
	r = s.withAuthor(r)
	return &r, nil
}

func (s *Store) FindReview(ctx context.Context, movieID, userID uint) (*models.Review, error) {
	defer s.lock()()
	for _, r := range s.data.reviews {
		if r.MovieID == movieID && r.UserID == userID {
			return &r, nil
		}
	}
	return nil, notFound("find review")
}

func (s *Store) ListReviews(ctx context.Context, movieID uint) ([]models.Review, error) {
	defer s.lock()()
	out := []models.Review{}
	for _, r := range s.data.reviews {
		if r.MovieID == movieID {
			out = append(out, s.withAuthor(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ReviewRatings(ctx context.Context, movieID uint) ([]float64, error) {
	defer s.lock()()
	var ids []uint
	for id, r := range s.data.reviews {
		if r.MovieID == movieID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ratings := make([]float64, len(ids))
	for i, id := range ids {
		ratings[i] = s.data.reviews[id].Rating
	}
	return ratings, nil
}

func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	defer s.lock()()
	if _, ok := s.data.movies[review.MovieID]; !ok {
		return notFound("create review: movie")
	}
	if _, ok := s.data.users[review.UserID]; !ok {
		return notFound("create review: user")
	}
	for _, r := range s.data.reviews {
		if r.MovieID == review.MovieID && r.UserID == review.UserID {
			return fmt.Errorf("create review: %w", services.ErrConflict)
		}
	}
	s.data.nextReview++
	review.ID = s.data.nextReview
	review.CreatedAt = s.now()
	stored := *review
	stored.Author = nil
	s.data.reviews[review.ID] = stored
	return nil
}

func (s *Store) SaveReview(ctx context.Context, review *models.Review) error {
	defer s.lock()()
	current, ok := s.data.reviews[review.ID]
	if !ok {
		return notFound("save review")
	}
	current.Rating = review.Rating
	current.Comment = review.Comment
	s.data.reviews[review.ID] = current
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id uint) error {
	defer s.lock()()
	if _, ok := s.data.reviews[id]; !ok {
		return notFound("delete review")
	}
	delete(s.data.reviews, id)
	return nil
}

func (s *Store) genreNameTaken(name string, except uint) bool {
	for id, g := range s.data.genres {
		if id != except && g.Name == name {
			return true
		}
	}
	return false
}

func sortGenres(genres []models.Genre) {
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Name != genres[j].Name {
			return genres[i].Name < genres[j].Name
		}
		return genres[i].ID < genres[j].ID
	})
}

func (s *Store) ListGenres(ctx context.Context) ([]models.Genre, error) {
	defer s.lock()()
	out := make([]models.Genre, 0, len(s.data.genres))
	for _, g := range s.data.genres {
		out = append(out, g)
	}
	sortGenres(out)
	return out, nil
}

func (s *Store) GetGenre(ctx context.Context, id uint) (*models.Genre, error) {
	defer s.lock()()
	g, ok := s.data.genres[id]
	if !ok {
		return nil, notFound("get genre")
	}
	return &g, nil
}

func (s *Store) CreateGenre(ctx context.Context, genre *models.Genre) error {
	defer s.lock()()
	if s.genreNameTaken(genre.Name, 0) {
		return fmt.Errorf("create genre: %w", services.ErrConflict)
	}
	s.data.nextGenre++
	genre.ID = s.data.nextGenre
	genre.CreatedAt = s.now()
	s.data.genres[genre.ID] = *genre
	return nil
}

func (s *Store) SaveGenre(ctx context.Context, genre *models.Genre) error {
	defer s.lock()()
	current, ok := s.data.genres[genre.ID]
	if !ok {
		return notFound("save genre")
	}
	if s.genreNameTaken(genre.Name, genre.ID) {
		return fmt.Errorf("save genre: %w", services.ErrConflict)
	}
	current.Name = genre.Name
	current.Common = genre.Common
	s.data.genres[genre.ID] = current
	return nil
}

func (s *Store) DeleteGenre(ctx context.Context, id uint) error {
	defer s.lock()()
	if _, ok := s.data.genres[id]; !ok {
		return notFound("delete genre")
	}
	for l := range s.data.links {
		if l.genreID == id {
			delete(s.data.links, l)
		}
	}
	delete(s.data.genres, id)
	return nil
}

func (s *Store) ListMovieGenres(ctx context.Context, movieID uint) ([]models.Genre, error) {
	defer s.lock()()
	out := []models.Genre{}
	for l := range s.data.links {
		if l.movieID == movieID {
			out = append(out, s.data.genres[l.genreID])
		}
	}
	sortGenres(out)
	return out, nil
}

func (s *Store) ListGenreMovies(ctx context.Context, genreID uint) ([]models.Movie, error) {
	defer s.lock()()
	out := []models.Movie{}
	for l := range s.data.links {
		if l.genreID == genreID {
			out = append(out, s.data.movies[l.movieID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AddMovieGenre(ctx context.Context, movieID, genreID uint) error {
	defer s.lock()()
	if _, ok := s.data.movies[movieID]; !ok {
		return notFound("add movie genre: movie")
	}
	if _, ok := s.data.genres[genreID]; !ok {
		return notFound("add movie genre: genre")
	}
	key := link{movieID: movieID, genreID: genreID}
	if _, ok := s.data.links[key]; ok {
		return fmt.Errorf("add movie genre: %w", services.ErrConflict)
	}
	s.data.links[key] = s.now()
	return nil
}

func (s *Store) RemoveMovieGenre(ctx context.Context, movieID, genreID uint) error {
	defer s.lock()()
	key := link{movieID: movieID, genreID: genreID}
	if _, ok := s.data.links[key]; !ok {
		return notFound("remove movie genre")
	}
	delete(s.data.links, key)
	return nil
}

func (s *Store) ClearMovieGenres(ctx context.Context, movieID uint) error {
	defer s.lock()()
	for l := range s.data.links {
		if l.movieID == movieID {
			delete(s.data.links, l)
		}
	}
	return nil
}

func (s *Store) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	backup := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.data = *backup
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
