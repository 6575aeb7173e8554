package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/auth"
	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/database"
	"github.com/irisdrone/moviedb/logger"
	"github.com/irisdrone/moviedb/models"
	"github.com/irisdrone/moviedb/services"
)

type sampleMovie struct {
	title    string
	year     int
	director string
	summary  string
	genres   []string
}

var sampleGenres = []string{"Drama", "Action", "Animation", "Fantasy", "Crime", "Thriller", "Science Fiction"}

var sampleMovies = []sampleMovie{
	{"The Shawshank Redemption", 1994, "Frank Darabont", "Two imprisoned men bond over a number of years.", []string{"Drama"}},
	{"Seven Samurai", 1954, "Akira Kurosawa", "Farmers hire seven ronin to defend their village from bandits.", []string{"Action", "Drama"}},
	{"Spirited Away", 2001, "Hayao Miyazaki", "A girl wanders into a world ruled by gods and spirits.", []string{"Animation", "Fantasy"}},
	{"Heat", 1995, "Michael Mann", "A detective hunts a crew of professional thieves in Los Angeles.", []string{"Crime", "Thriller"}},
	{"Stalker", 1979, "Andrei Tarkovsky", "A guide leads two men through the Zone to a room that grants wishes.", []string{"Science Fiction", "Drama"}},
	{"Parasite", 2019, "Bong Joon-ho", "A poor family schemes its way into the household of a wealthy one.", []string{"Thriller", "Drama"}},
}

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.LogLevel, true)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	if cfg.DatabaseURL == database.MemoryURL {
		return errors.New("seeding the in-memory store has no lasting effect, set DATABASE_URL to postgres")
	}

	store, closeStore, err := database.OpenStore(cfg.DatabaseURL, log, false)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token settings: %w", err)
	}
	authSvc := services.NewAuthService(store, auth.NewPasswordHasher(cfg.BcryptCost), tokens, cfg.RoleSource, log)
	movieSvc := services.NewMovieService(store, log)
	genreSvc := services.NewGenreService(store, log)

	ctx := context.Background()
	admin, err := seedAdmin(ctx, store, authSvc, log)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	genres, err := seedGenres(ctx, genreSvc, admin)
	if err != nil {
		return fmt.Errorf("seed genres: %w", err)
	}
	created, err := seedMovies(ctx, store, movieSvc, admin, genres)
	if err != nil {
		return fmt.Errorf("seed movies: %w", err)
	}
	log.Info().Int("genres", len(genres)).Int("movies", created).Msg("seed complete")
	return nil
}

// seedAdmin registers the admin account or reuses the one already holding
// the seed email, then grants it the admin role
func seedAdmin(ctx context.Context, store services.Store, authSvc *services.AuthService, log zerolog.Logger) (*services.Principal, error) {
	in := services.RegisterInput{
		Username: envOr("SEED_ADMIN_USERNAME", "admin"),
		Email:    envOr("SEED_ADMIN_EMAIL", "admin@example.com"),
		Password: envOr("SEED_ADMIN_PASSWORD", "ChangeMe123"),
	}

	_, err := authSvc.Register(ctx, in)
	switch {
	case err == nil:
		log.Info().Str("username", in.Username).Msg("admin user created")
	case errors.Is(err, services.ErrConflict):
		log.Info().Str("email", in.Email).Msg("admin user already exists")
	default:
		return nil, err
	}

	user, err := store.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, services.ErrNotFound) {
		return nil, fmt.Errorf("username %q belongs to another account", in.Username)
	}
	if err != nil {
		return nil, err
	}
	if err := authSvc.Promote(ctx, user.Username); err != nil {
		return nil, err
	}
	return &services.Principal{UserID: user.ID, Role: models.RoleAdmin}, nil
}

// seedGenres creates the missing sample genres and returns name -> id for all of them
func seedGenres(ctx context.Context, genreSvc *services.GenreService, admin *services.Principal) (map[string]uint, error) {
	existing, err := genreSvc.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(sampleGenres))
	for _, g := range existing {
		ids[g.Name] = g.ID
	}
	for _, name := range sampleGenres {
		if _, ok := ids[name]; ok {
			continue
		}
		g, err := genreSvc.Create(ctx, admin, services.GenreInput{Name: name, Common: true})
		if err != nil {
			return nil, err
		}
		ids[name] = g.ID
	}
	return ids, nil
}

// seedMovies only fills an empty catalogue so reruns do not duplicate titles
func seedMovies(ctx context.Context, store services.Store, movieSvc *services.MovieService, admin *services.Principal, genres map[string]uint) (int, error) {
	existing, err := store.ListMovies(ctx, 0, 1)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for _, m := range sampleMovies {
		year, director, summary := m.year, m.director, m.summary
		movie, err := movieSvc.Create(ctx, admin, services.MovieInput{
			Title:       m.title,
			Year:        &year,
			Director:    &director,
			Description: &summary,
		})
		if err != nil {
			return 0, err
		}
		in := services.MovieGenresInput{GenreIDs: make([]uint, 0, len(m.genres))}
		for _, name := range m.genres {
			in.GenreIDs = append(in.GenreIDs, genres[name])
		}
		if _, err := movieSvc.ReplaceGenres(ctx, admin, movie.ID, in); err != nil {
			return 0, err
		}
	}
	return len(sampleMovies), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
