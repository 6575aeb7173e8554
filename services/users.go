package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/auth"
	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/metrics"
	"github.com/irisdrone/moviedb/models"
)

// Hasher is the password primitive used for credentials
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) (bool, error)
}

// Tokens issues and verifies access tokens
type Tokens interface {
	Issue(userID uint, role string) (string, time.Time, error)
	Verify(token string) (*auth.Identity, error)
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService handles registration, login and bearer authentication
type AuthService struct {
	store      Store
	hasher     Hasher
	tokens     Tokens
	roleSource string
	log        zerolog.Logger
}

// NewAuthService wires the credential primitives. roleSource is
// config.RoleSourceStorage or config.RoleSourceToken.
func NewAuthService(store Store, hasher Hasher, tokens Tokens, roleSource string, log zerolog.Logger) *AuthService {
	if roleSource == "" {
		roleSource = config.RoleSourceStorage
	}
	return &AuthService{
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		roleSource: roleSource,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// Register creates a user with role user and returns a token for it
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	res, err := s.register(ctx, in)
	metrics.RecordAuthAttempt("register", outcome(err))
	return res, err
}

func (s *AuthService) register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkAvailable(ctx, in.Email, in.Username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			// lost a race with a concurrent signup, report which field collided
			if cerr := s.checkAvailable(ctx, in.Email, in.Username); cerr != nil {
				return nil, cerr
			}
			return nil, conflict("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return s.issue(user)
}

func (s *AuthService) checkAvailable(ctx context.Context, email, username string) error {
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return conflict("Email already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.store.FindUserByUsername(ctx, username); err == nil {
		return conflict("Username already taken")
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}
	return nil
}

// Login checks the credentials of the user registered under the email
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	res, err := s.login(ctx, in)
	metrics.RecordAuthAttempt("login", outcome(err))
	return res, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthorized("Invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	ok, err := s.hasher.Verify(user.PasswordHash, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, unauthorized("Invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Authenticate resolves a bearer token to the acting principal
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, unauthorized("Authentication required")
	}
	identity, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, unauthorized("Token expired")
		}
		s.log.Debug().Err(err).Msg("rejected token")
		return nil, unauthorized("Invalid token")
	}

	user, err := s.store.GetUser(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthorized("User not found")
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}

	role := user.Role
	if s.roleSource == config.RoleSourceToken {
		role = models.Role(identity.Role)
	}
	return &Principal{UserID: user.ID, Role: role}, nil
}

// CurrentUser returns the stored profile of the principal
func (s *AuthService) CurrentUser(ctx context.Context, p *Principal) (*models.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthorized("User not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Promote grants the admin role. Only reachable from the operator CLI.
func (s *AuthService) Promote(ctx context.Context, username string) error {
	if username == "" {
		return Invalid("username", "required", "username is required")
	}
	if err := s.store.SetUserRole(ctx, username, models.RoleAdmin); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("User not found")
		}
		return fmt.Errorf("promote %s: %w", username, err)
	}
	s.log.Info().Str("username", username).Msg("user promoted to admin")
	return nil
}

func outcome(err error) string {
	var derr *Error
	var verr *ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &derr), errors.As(err, &verr):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
