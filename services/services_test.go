package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/irisdrone/moviedb/auth"
	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/database/memory"
	"github.com/irisdrone/moviedb/events"
	"github.com/irisdrone/moviedb/models"
	"github.com/irisdrone/moviedb/services"
)

type recorder struct {
	mu     sync.Mutex
	events []events.RatingChanged
	err    error
}

func (r *recorder) PublishRatingChanged(_ context.Context, evt events.RatingChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *recorder) last() events.RatingChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixture struct {
	store   *memory.Store
	tokens  *auth.TokenManager
	auth    *services.AuthService
	movies  *services.MovieService
	reviews *services.ReviewService
	genres  *services.GenreService
	ratings *services.RatingService
	events  *recorder
}

func newFixture(t *testing.T, roleSource string) *fixture {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokenManager("test-secret", "HS256", time.Hour)
	require.NoError(t, err)
	log := zerolog.Nop()
	rec := &recorder{}
	ratings := services.NewRatingService(store, rec, log)
	return &fixture{
		store:   store,
		tokens:  tokens,
		auth:    services.NewAuthService(store, auth.NewPasswordHasher(bcrypt.MinCost), tokens, roleSource, log),
		movies:  services.NewMovieService(store, log),
		reviews: services.NewReviewService(store, ratings, log),
		genres:  services.NewGenreService(store, log),
		ratings: ratings,
		events:  rec,
	}
}

func (f *fixture) register(t *testing.T, username string) *services.Principal {
	t.Helper()
	res, err := f.auth.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Secret123",
	})
	require.NoError(t, err)
	return &services.Principal{UserID: res.User.ID, Role: res.User.Role}
}

func (f *fixture) admin(t *testing.T) *services.Principal {
	t.Helper()
	p := f.register(t, "admin")
	require.NoError(t, f.auth.Promote(context.Background(), "admin"))
	p.Role = models.RoleAdmin
	return p
}

func (f *fixture) movie(t *testing.T, admin *services.Principal, title string) *models.Movie {
	t.Helper()
	m, err := f.movies.Create(context.Background(), admin, services.MovieInput{Title: title})
	require.NoError(t, err)
	return m
}

func (f *fixture) rating(t *testing.T, movieID uint) float64 {
	t.Helper()
	m, err := f.store.GetMovie(context.Background(), movieID)
	require.NoError(t, err)
	return m.Rating
}

func fieldMessage(t *testing.T, err error, field string) string {
	t.Helper()
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Details()[field]
}

func ptr[T any](v T) *T { return &v }

func TestMeanRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []float64
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []float64{9}, 9},
		{"pair", []float64{9, 6}, 7.5},
		{"fractional", []float64{1, 2, 2}, 5.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, services.MeanRating(tt.ratings), 1e-12)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    services.RegisterInput
		field string
		want  string
	}{
		{"no uppercase", services.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret123"},
			"password", "password must contain at least one uppercase letter"},
		{"too short", services.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "Ab1"},
			"password", "password must be at least 8 characters"},
		{"bad email", services.RegisterInput{Username: "bob", Email: "not-an-email", Password: "Secret123"},
			"email", "email must be a valid email address"},
		{"short username", services.RegisterInput{Username: "bo", Email: "bob@example.com", Password: "Secret123"},
			"username", "username must be at least 3 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tt.in)
			require.ErrorIs(t, err, services.ErrValidation)
			assert.Equal(t, tt.want, fieldMessage(t, err, tt.field))
		})
	}

	_, err := f.store.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRegisterConflicts(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	f.register(t, "alice")

	_, err := f.auth.Register(ctx, services.RegisterInput{Username: "other", Email: "alice@example.com", Password: "Secret123"})
	require.ErrorIs(t, err, services.ErrConflict)
	assert.EqualError(t, err, "Email already registered")

	_, err = f.auth.Register(ctx, services.RegisterInput{Username: "alice", Email: "new@example.com", Password: "Secret123"})
	require.ErrorIs(t, err, services.ErrConflict)
	assert.EqualError(t, err, "Username already taken")
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	res, err := f.auth.Register(context.Background(), services.RegisterInput{
		Username: "carol", Email: "carol@example.com", Password: "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, models.RoleUser, res.User.Role)

	id, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
	assert.Equal(t, "user", id.Role)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	f.register(t, "dave")

	_, err := f.auth.Login(ctx, services.LoginInput{Email: "dave@example.com", Password: "Wrong1234"})
	require.ErrorIs(t, err, services.ErrUnauthorized)
	assert.EqualError(t, err, "Invalid credentials")

	_, err = f.auth.Login(ctx, services.LoginInput{Email: "nobody@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	_, err = f.auth.Login(ctx, services.LoginInput{Email: "dave", Password: "Secret123"})
	assert.ErrorIs(t, err, services.ErrValidation)

	res, err := f.auth.Login(ctx, services.LoginInput{Email: "dave@example.com", Password: "Secret123"})
	require.NoError(t, err)
	p, err := f.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.UserID)
}

func TestAuthenticateRoleSource(t *testing.T) {
	ctx := context.Background()
	for _, tt := range []struct {
		source string
		want   models.Role
	}{
		{config.RoleSourceStorage, models.RoleAdmin},
		{config.RoleSourceToken, models.RoleUser},
	} {
		t.Run(tt.source, func(t *testing.T) {
			f := newFixture(t, tt.source)
			res, err := f.auth.Register(ctx, services.RegisterInput{Username: "erin", Email: "erin@example.com", Password: "Secret123"})
			require.NoError(t, err)
			require.NoError(t, f.auth.Promote(ctx, "erin"))

			p, err := f.auth.Authenticate(ctx, res.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Role)
		})
	}
}

func TestAuthenticateRejects(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()

	ghost, _, err := f.tokens.Issue(999, "admin")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, ghost)
	require.ErrorIs(t, err, services.ErrUnauthorized)
	assert.EqualError(t, err, "User not found")

	p := f.register(t, "frank")
	expired, _, err := f.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).Issue(p.UserID, "user")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, expired)
	assert.EqualError(t, err, "Token expired")

	_, err = f.auth.Authenticate(ctx, "garbage")
	assert.EqualError(t, err, "Invalid token")

	_, err = f.auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestPromoteUnknownUser(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	err := f.auth.Promote(context.Background(), "nobody")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestMovieMutationsRequireAdmin(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "grace")
	movie := f.movie(t, admin, "Alien")

	_, err := f.movies.Create(ctx, user, services.MovieInput{Title: "Aliens"})
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.movies.Create(ctx, nil, services.MovieInput{Title: "Aliens"})
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	// authorization is decided before validation
	_, err = f.movies.Create(ctx, user, services.MovieInput{Title: "A"})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.movies.Update(ctx, user, movie.ID, services.MovieUpdate{Title: ptr("Changed")})
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.ErrorIs(t, f.movies.Delete(ctx, user, movie.ID), services.ErrForbidden)

	got, err := f.movies.Get(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alien", got.Title)
}

func TestMovieValidation(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)

	_, err := f.movies.Create(ctx, admin, services.MovieInput{Title: "A"})
	assert.Equal(t, "title must be at least 2 characters", fieldMessage(t, err, "title"))

	_, err = f.movies.Create(ctx, admin, services.MovieInput{Title: "Metropolis", Year: ptr(1700)})
	assert.Equal(t, "year must be at least 1800", fieldMessage(t, err, "year"))

	_, err = f.movies.Update(ctx, admin, 1, services.MovieUpdate{Year: ptr(2101)})
	assert.ErrorIs(t, err, services.ErrValidation)

	// validation before existence
	_, err = f.movies.Update(ctx, admin, 999, services.MovieUpdate{Title: ptr("X")})
	assert.ErrorIs(t, err, services.ErrValidation)
	_, err = f.movies.Update(ctx, admin, 999, services.MovieUpdate{Title: ptr("Fine")})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestMovieUpdateIsPartial(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "heidi")

	movie, err := f.movies.Create(ctx, admin, services.MovieInput{
		Title: "Solaris", Year: ptr(1972), Director: ptr("Tarkovsky"),
	})
	require.NoError(t, err)
	_, err = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 8})
	require.NoError(t, err)

	updated, err := f.movies.Update(ctx, admin, movie.ID, services.MovieUpdate{Title: ptr("Solyaris")})
	require.NoError(t, err)
	assert.Equal(t, "Solyaris", updated.Title)
	assert.Equal(t, 1972, *updated.Year)
	assert.Equal(t, "Tarkovsky", *updated.Director)
	assert.Equal(t, 8.0, f.rating(t, movie.ID))

	// an update without fields changes nothing
	same, err := f.movies.Update(ctx, admin, movie.ID, services.MovieUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Solyaris", same.Title)
	assert.Equal(t, 1972, *same.Year)
}

func TestListMovies(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	for _, title := range []string{"One", "Two", "Three"} {
		f.movie(t, admin, title)
	}

	page, err := f.movies.List(ctx, services.ListParams{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Two", page[0].Title)

	_, err = f.movies.List(ctx, services.ListParams{Skip: 0, Limit: 0})
	assert.ErrorIs(t, err, services.ErrValidation)
	_, err = f.movies.List(ctx, services.ListParams{Skip: -1, Limit: 10})
	assert.ErrorIs(t, err, services.ErrValidation)
	_, err = f.movies.List(ctx, services.ListParams{Skip: 0, Limit: 101})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestRatingFollowsReviewMutations(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	movie := f.movie(t, admin, "Heat")
	assert.Equal(t, 0.0, f.rating(t, movie.ID))

	first, err := f.reviews.Create(ctx, alice, services.ReviewInput{MovieID: movie.ID, Rating: 9})
	require.NoError(t, err)
	assert.Equal(t, 9.0, f.rating(t, movie.ID))

	_, err = f.reviews.Update(ctx, alice, first.ID, services.ReviewUpdate{Rating: ptr(8.0)})
	require.NoError(t, err)
	assert.Equal(t, 8.0, f.rating(t, movie.ID))

	_, err = f.reviews.Update(ctx, alice, first.ID, services.ReviewUpdate{Rating: ptr(9.0)})
	require.NoError(t, err)
	assert.Equal(t, 9.0, f.rating(t, movie.ID))

	second, err := f.reviews.Create(ctx, bob, services.ReviewInput{MovieID: movie.ID, Rating: 6})
	require.NoError(t, err)
	assert.Equal(t, 7.5, f.rating(t, movie.ID))

	require.NoError(t, f.reviews.Delete(ctx, alice, first.ID))
	assert.Equal(t, 6.0, f.rating(t, movie.ID))

	require.NoError(t, f.reviews.Delete(ctx, bob, second.ID))
	assert.Equal(t, 0.0, f.rating(t, movie.ID))
}

func TestReviewCommentOnlyUpdateKeepsRating(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "ivan")
	movie := f.movie(t, admin, "Ran")

	review, err := f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 7})
	require.NoError(t, err)
	updated, err := f.reviews.Update(ctx, user, review.ID, services.ReviewUpdate{Comment: ptr("still good")})
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.Rating)
	assert.Equal(t, "still good", *updated.Comment)
	assert.Equal(t, 7.0, f.rating(t, movie.ID))
}

func TestReviewCreateChecks(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "judy")
	movie := f.movie(t, admin, "Brazil")

	_, err := f.reviews.Create(ctx, nil, services.ReviewInput{MovieID: movie.ID, Rating: 5})
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	_, err = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 11})
	assert.Equal(t, "rating must be at most 10", fieldMessage(t, err, "rating"))
	_, err = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 0.5})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: 999, Rating: 5})
	require.ErrorIs(t, err, services.ErrNotFound)
	assert.EqualError(t, err, "Movie not found")

	_, err = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 5})
	require.NoError(t, err)
	_, err = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 6})
	require.ErrorIs(t, err, services.ErrConflict)
	assert.EqualError(t, err, "You have already reviewed this movie")
	assert.Equal(t, 5.0, f.rating(t, movie.ID))
}

func TestReviewOwnership(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	owner := f.register(t, "kate")
	other := f.register(t, "leo")
	movie := f.movie(t, admin, "Stalker")

	review, err := f.reviews.Create(ctx, owner, services.ReviewInput{MovieID: movie.ID, Rating: 9})
	require.NoError(t, err)

	_, err = f.reviews.Update(ctx, other, review.ID, services.ReviewUpdate{Rating: ptr(1.0)})
	require.ErrorIs(t, err, services.ErrForbidden)
	assert.EqualError(t, err, "You can only update your own reviews")

	err = f.reviews.Delete(ctx, other, review.ID)
	require.ErrorIs(t, err, services.ErrForbidden)
	assert.EqualError(t, err, "You can only delete your own reviews")

	// admins do not bypass ownership
	assert.ErrorIs(t, f.reviews.Delete(ctx, admin, review.ID), services.ErrForbidden)

	got, err := f.reviews.Get(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.Rating)
	assert.Equal(t, 9.0, f.rating(t, movie.ID))

	_, err = f.reviews.Update(ctx, owner, 999, services.ReviewUpdate{Rating: ptr(2.0)})
	require.ErrorIs(t, err, services.ErrNotFound)
	assert.EqualError(t, err, "Review not found")
}

func TestConcurrentDuplicateReviews(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "mia")
	movie := f.movie(t, admin, "Vertigo")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: float64(i%10 + 1)})
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, services.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)

	reviews, err := f.reviews.ListForMovie(ctx, movie.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, reviews[0].Rating, f.rating(t, movie.ID))
}

func TestConcurrentReviewsFromManyUsers(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	movie := f.movie(t, admin, "Ikiru")

	users := make([]*services.Principal, 6)
	for i := range users {
		users[i] = f.register(t, "user"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for i, p := range users {
		wg.Add(1)
		go func(p *services.Principal, rating float64) {
			defer wg.Done()
			_, err := f.reviews.Create(ctx, p, services.ReviewInput{MovieID: movie.ID, Rating: rating})
			assert.NoError(t, err)
		}(p, float64(i+1))
	}
	wg.Wait()

	assert.InDelta(t, 3.5, f.rating(t, movie.ID), 1e-12)
}

func TestMovieDeleteRemovesReviews(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "nina")
	movie := f.movie(t, admin, "Ran")
	review, err := f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 9})
	require.NoError(t, err)

	require.NoError(t, f.movies.Delete(ctx, admin, movie.ID))
	_, err = f.reviews.Get(ctx, review.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = f.movies.Get(ctx, movie.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, f.movies.Delete(ctx, admin, movie.ID), services.ErrNotFound)
}

func TestMovieDetailIncludesAuthors(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "oscar")
	movie := f.movie(t, admin, "Rashomon")
	_, err := f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 8, Comment: ptr("great")})
	require.NoError(t, err)

	detail, err := f.movies.Get(ctx, movie.ID)
	require.NoError(t, err)
	require.Len(t, detail.Reviews, 1)
	require.NotNil(t, detail.Reviews[0].Author)
	assert.Equal(t, "oscar", detail.Reviews[0].Author.Username)
	assert.Equal(t, 8.0, detail.Rating)

	_, err = f.reviews.ListForMovie(ctx, 999)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRatingEvents(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "pam")
	movie := f.movie(t, admin, "Tampopo")

	review, err := f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 6})
	require.NoError(t, err)
	evt := f.events.last()
	assert.Equal(t, movie.ID, evt.MovieID)
	assert.Equal(t, 6.0, evt.Rating)
	assert.Equal(t, 1, evt.ReviewCount)
	assert.Equal(t, events.ReasonReviewCreated, evt.Reason)

	// rejected mutations publish nothing
	_, err = f.reviews.Create(ctx, user, services.ReviewInput{MovieID: movie.ID, Rating: 7})
	require.Error(t, err)
	assert.Equal(t, 1, f.events.count())

	// a failing publisher does not fail the committed mutation
	f.events.err = errors.New("broker down")
	require.NoError(t, f.reviews.Delete(ctx, user, review.ID))
	assert.Equal(t, events.ReasonReviewDeleted, f.events.last().Reason)
	assert.Equal(t, 0, f.events.last().ReviewCount)
}

func TestReconcileAll(t *testing.T) {
	f := newFixture(t, config.RoleSourceStorage)
	ctx := context.Background()
	admin := f.admin(t)
	user := f.register(t, "quinn")
	drifted := f.movie(t, admin, "Nostalghia")
	clean := f.movie(t, admin, "Mirror")
	_, err := f.reviews.Create(ctx, user, services.ReviewInput{MovieID: drifted.ID, Rating: 4})
	require.NoError(t, err)
	require.NoError(t, f.store.SetMovieRating(ctx, drifted.ID, 10))

	changed, err := f.ratings.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 4.0, f.rating(t, drifted.ID))
	assert.Equal(t, 0.0, f.rating(t, clean.ID))
	assert.Equal(t, events.ReasonReconcile, f.events.last().Reason)
}
