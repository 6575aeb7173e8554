package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/irisdrone/moviedb/auth"
	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/models"
	"github.com/irisdrone/moviedb/services"
)

// staleStore hides existing rows from the lookup methods, the way a
// concurrent writer that commits between lookup and insert would. Only the
// insert's unique constraint can then reject the duplicate.
type staleStore struct {
	services.Store
	// hiddenLookups is how many user lookups still report not found, -1 hides all
	hiddenLookups *int
}

func newStaleStore(inner services.Store, hiddenLookups int) *staleStore {
	return &staleStore{Store: inner, hiddenLookups: &hiddenLookups}
}

func (s *staleStore) hide() bool {
	if *s.hiddenLookups < 0 {
		return true
	}
	if *s.hiddenLookups > 0 {
		*s.hiddenLookups--
		return true
	}
	return false
}

func (s *staleStore) FindReview(ctx context.Context, movieID, userID uint) (*models.Review, error) {
	return nil, fmt.Errorf("find review: %w", services.ErrNotFound)
}

func (s *staleStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.hide() {
		return nil, fmt.Errorf("find user by email: %w", services.ErrNotFound)
	}
	return s.Store.FindUserByEmail(ctx, email)
}

func (s *staleStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.hide() {
		return nil, fmt.Errorf("find user by username: %w", services.ErrNotFound)
	}
	return s.Store.FindUserByUsername(ctx, username)
}

func (s *staleStore) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	return s.Store.Transaction(ctx, func(tx services.Store) error {
		return fn(&staleStore{Store: tx, hiddenLookups: s.hiddenLookups})
	})
}

func TestDuplicateReviewRejectedByInsert(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "oscar")
	movie := f.movie(t, admin, "Stalker")

	stale := newStaleStore(f.store, -1)
	reviews := services.NewReviewService(stale, services.NewRatingService(stale, f.events, zerolog.Nop()), zerolog.Nop())

	_, err := reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 9})
	require.NoError(t, err)
	published := f.events.count()

	_, err = reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 3})
	require.ErrorIs(t, err, services.ErrConflict)
	assert.EqualError(t, err, "You have already reviewed this movie")

	assert.Equal(t, 9.0, f.rating(t, movie.ID))
	list, err := f.reviews.ListForMovie(ctx, movie.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, published, f.events.count(), "a rejected review publishes nothing")
}

func TestRegisterRaceReportsCollidingField(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	f.register(t, "paula")
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name   string
		hidden int
		in     services.RegisterInput
		want   string
	}{
		{
			name:   "username taken after precheck",
			hidden: 2,
			in:     services.RegisterInput{Username: "paula", Email: "fresh@example.com", Password: "Secret123"},
			want:   "Username already taken",
		},
		{
			name:   "email taken after precheck",
			hidden: 2,
			in:     services.RegisterInput{Username: "fresh", Email: "paula@example.com", Password: "Secret123"},
			want:   "Email already registered",
		},
		{
			name:   "recheck also stale",
			hidden: -1,
			in:     services.RegisterInput{Username: "paula", Email: "other@example.com", Password: "Secret123"},
			want:   "Email already registered",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := services.NewAuthService(newStaleStore(f.store, tt.hidden), hasher, f.tokens, config.RoleSourceStorage, zerolog.Nop())
			_, err := svc.Register(ctx, tt.in)
			require.ErrorIs(t, err, services.ErrConflict)
			assert.EqualError(t, err, tt.want)
		})
	}

	_, err := f.store.FindUserByEmail(ctx, "fresh@example.com")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
