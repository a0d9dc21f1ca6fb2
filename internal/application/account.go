package application

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

type credentialsInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type registerInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Nickname string `validate:"required,min=2,max=20"`
}

// AccountService covers the credential-based account operations: password
// login, registration, and withdrawal. OAuth logins go through the
// launcher/reconciler pair instead; both paths converge on the same
// SessionStore.
type AccountService struct {
	sessions *SessionStore
	backend  ports.Backend
	clock    ports.Clock
	validate *validator.Validate
	log      logger.Logger
}

func NewAccountService(sessions *SessionStore, backend ports.Backend, clock ports.Clock, log logger.Logger) *AccountService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &AccountService{
		sessions: sessions,
		backend:  backend,
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// Login authenticates with email and password and installs the resulting
// session.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	if err := s.validate.Struct(credentialsInput{Email: email, Password: password}); err != nil {
		return domain.Session{}, fmt.Errorf("validate credentials: %w", err)
	}

	result, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}

	session := domain.Session{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         &result.User,
		ObtainedAt:   s.clock.Now(),
	}

	if err := s.sessions.Set(ctx, s.sessions.Generation(), session); err != nil {
		return domain.Session{}, err
	}

	s.log.Info("password login", "user", result.User.ID)

	return session, nil
}

// Register creates an account. When the backend issues a token right away
// the new session is installed; when email confirmation is required the
// caller gets the message to show and no session.
func (s *AccountService) Register(ctx context.Context, email, password, nickname string) (ports.RegisterResult, error) {
	if err := s.validate.Struct(registerInput{Email: email, Password: password, Nickname: nickname}); err != nil {
		return ports.RegisterResult{}, fmt.Errorf("validate registration: %w", err)
	}

	result, err := s.backend.Register(ctx, email, password, nickname)
	if err != nil {
		return ports.RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	if result.NeedsEmailConfirmation || result.AccessToken == "" || result.User == nil {
		return result, nil
	}

	session := domain.Session{
		AccessToken: result.AccessToken,
		User:        result.User,
		ObtainedAt:  s.clock.Now(),
	}
	if err := s.sessions.Set(ctx, s.sessions.Generation(), session); err != nil {
		return ports.RegisterResult{}, err
	}

	return result, nil
}

// Logout clears the session. Safe to call when already logged out.
func (s *AccountService) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// Withdraw deletes the account on the backend, then clears the local
// session. A failed remote call keeps the session so the user can retry.
func (s *AccountService) Withdraw(ctx context.Context) error {
	session := s.sessions.Current()
	if !session.LoggedIn() {
		return domain.ErrSessionNotFound
	}

	if err := s.backend.Withdraw(ctx, session.AccessToken); err != nil {
		return fmt.Errorf("withdraw account: %w", err)
	}

	return s.sessions.Clear(ctx)
}
