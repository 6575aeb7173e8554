package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/irisdrone/moviedb/auth"
	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/database/memory"
	"github.com/irisdrone/moviedb/models"
	"github.com/irisdrone/moviedb/services"
)

func newAuth(t *testing.T, store services.Store) *services.AuthService {
	t.Helper()
	tokens, err := auth.NewTokenManager("seed-secret", "HS256", time.Hour)
	require.NoError(t, err)
	return services.NewAuthService(store, auth.NewPasswordHasher(bcrypt.MinCost), tokens, config.RoleSourceStorage, zerolog.Nop())
}

func TestSeedAdminPromotesAccountHoldingEmail(t *testing.T) {
	t.Setenv("SEED_ADMIN_USERNAME", "admin")
	t.Setenv("SEED_ADMIN_EMAIL", "root@example.com")
	ctx := context.Background()
	store := memory.New()
	authSvc := newAuth(t, store)

	_, err := authSvc.Register(ctx, services.RegisterInput{Username: "rootuser", Email: "root@example.com", Password: "Secret123"})
	require.NoError(t, err)

	admin, err := seedAdmin(ctx, store, authSvc, zerolog.Nop())
	require.NoError(t, err)
	user, err := store.FindUserByUsername(ctx, "rootuser")
	require.NoError(t, err)
	assert.Equal(t, user.ID, admin.UserID)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestSeedAdminRejectsUsernameOfOtherAccount(t *testing.T) {
	t.Setenv("SEED_ADMIN_USERNAME", "admin")
	t.Setenv("SEED_ADMIN_EMAIL", "root@example.com")
	ctx := context.Background()
	store := memory.New()
	authSvc := newAuth(t, store)

	_, err := authSvc.Register(ctx, services.RegisterInput{Username: "admin", Email: "someone@example.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = seedAdmin(ctx, store, authSvc, zerolog.Nop())
	require.Error(t, err)
	user, err := store.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestSeedCatalogueOnce(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "ChangeMe123")
	ctx := context.Background()
	store := memory.New()
	log := zerolog.Nop()
	movieSvc := services.NewMovieService(store, log)
	genreSvc := services.NewGenreService(store, log)

	admin, err := seedAdmin(ctx, store, newAuth(t, store), log)
	require.NoError(t, err)
	genres, err := seedGenres(ctx, genreSvc, admin)
	require.NoError(t, err)
	assert.Len(t, genres, len(sampleGenres))

	created, err := seedMovies(ctx, store, movieSvc, admin, genres)
	require.NoError(t, err)
	assert.Equal(t, len(sampleMovies), created)

	movies, err := store.ListMovies(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, movies, len(sampleMovies))
	heat, err := movieSvc.Genres(ctx, movies[3].ID)
	require.NoError(t, err)
	require.Len(t, heat, 2)
	assert.Equal(t, "Crime", heat[0].Name)

	again, err := seedGenres(ctx, genreSvc, admin)
	require.NoError(t, err)
	assert.Equal(t, genres, again)
	created, err = seedMovies(ctx, store, movieSvc, admin, again)
	require.NoError(t, err)
	assert.Zero(t, created)
}
