// Package auth is the email/password identity provider: bcrypt password
// hashes, HS256 session tokens and sign-out revocation.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrUserNotFound       = errors.New("user not found")
)

// MinPasswordLength matches the hosted provider the web client used.
const MinPasswordLength = 6

// Credentials is the result of a successful sign-in or sign-up.
type Credentials struct {
	Identity identity.Identity `json:"identity"`
	Token    string            `json:"token"`
}

// Service issues and verifies sessions.
type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	cost   int

	mu      sync.Mutex
	revoked revocations
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the token clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost sets the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates a provider. An empty secret is replaced by a random one,
// so tokens do not survive a restart.
func NewService(repo Repository, secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		logging.L().Warn("[auth] JWT_SECRET not set, using an ephemeral secret")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	s := &Service{
		repo:   repo,
		secret: key,
		ttl:    ttl,
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Credentials, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Credentials{}, err
	}
	if len(password) < MinPasswordLength {
		return Credentials{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return Credentials{}, err
	}

	logging.L().Infow("[auth] account created", "uid", user.ID)
	return s.credentials(user)
}

// SignIn checks a password and issues a token.
func (s *Service) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Credentials{}, ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Credentials{}, ErrInvalidCredentials
	}
	if err != nil {
		return Credentials{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Credentials{}, ErrInvalidCredentials
	}
	return s.credentials(user)
}

// SignOut revokes token. Unparseable tokens are already unusable, so only
// valid ones are recorded.
func (s *Service) SignOut(_ context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked.add(claims.ID, claims.ExpiresAt.Time)
	return nil
}

// Verify resolves a token to the identity it was issued for.
func (s *Service) Verify(ctx context.Context, token string) (identity.Identity, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return identity.Identity{}, err
	}

	s.mu.Lock()
	revoked := s.revoked.has(claims.ID, s.now())
	s.mu.Unlock()
	if revoked {
		return identity.Identity{}, fmt.Errorf("%w: signed out", ErrInvalidToken)
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return identity.Identity{}, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if err != nil {
		return identity.Identity{}, err
	}
	return identity.Identity{UID: user.ID, Email: user.Email}, nil
}

func (s *Service) credentials(user User) (Credentials, error) {
	token, err := s.issueToken(user)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		Identity: identity.Identity{UID: user.ID, Email: user.Email},
		Token:    token,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
