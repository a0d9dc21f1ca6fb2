package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

type findIDInput struct {
	Nickname string `validate:"required"`
}

type findPasswordInput struct {
	Email string `validate:"required,email"`
}

type resetPasswordInput struct {
	NewPassword     string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=NewPassword"`
}

// RecoveryService drives account recovery. At most one recovery is in
// flight at a time; starting a new one replaces the old.
type RecoveryService struct {
	mu       sync.Mutex
	backend  ports.Backend
	clock    ports.Clock
	validate *validator.Validate
	log      logger.Logger

	current *domain.RecoveryRequest
}

func NewRecoveryService(backend ports.Backend, clock ports.Clock, log logger.Logger) *RecoveryService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &RecoveryService{
		backend:  backend,
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// FindID looks up the account registered under a nickname. It is
// stateless: no code round-trip follows.
func (s *RecoveryService) FindID(ctx context.Context, nickname string) (string, error) {
	if err := s.validate.Struct(findIDInput{Nickname: nickname}); err != nil {
		return "", fmt.Errorf("validate find-id input: %w", err)
	}

	found, err := s.backend.FindID(ctx, nickname)
	if err != nil {
		return "", fmt.Errorf("find id: %w", err)
	}

	return found, nil
}

// RequestPasswordReset asks the backend to mail a verification code and
// moves the recovery to CodeIssued. On failure the previous state, if any,
// is kept.
func (s *RecoveryService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.validate.Struct(findPasswordInput{Email: email}); err != nil {
		return fmt.Errorf("validate email: %w", err)
	}

	issue, err := s.backend.FindPassword(ctx, email)
	if err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	s.mu.Lock()
	s.current = &domain.RecoveryRequest{
		Mode:        domain.RecoveryFindPassword,
		Identifier:  email,
		IssuedCode:  issue.Code,
		IssuedToken: issue.Token,
		ExpiresAt:   issue.ExpiresAt,
		State:       domain.RecoveryCodeIssued,
	}
	s.mu.Unlock()

	s.log.Info("recovery code issued", "email", email)

	return nil
}

// VerifyCode checks the user-entered code against the issued one. A
// mismatch keeps the recovery open for another try; expiry or too many
// failures abort it.
func (s *RecoveryService) VerifyCode(candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return fmt.Errorf("%w: no recovery in progress", domain.ErrRecoveryState)
	}

	err := s.current.VerifyCode(candidate, s.clock.Now())
	if s.current.State == domain.RecoveryIdle {
		s.current = nil
	}
	return err
}

// ResetPassword submits the new password using the token issued for this
// recovery. Success ends the recovery; failure keeps it at CodeVerified so
// the user can retry.
func (s *RecoveryService) ResetPassword(ctx context.Context, newPassword, confirmPassword string) error {
	if err := s.validate.Struct(resetPasswordInput{NewPassword: newPassword, ConfirmPassword: confirmPassword}); err != nil {
		return fmt.Errorf("validate new password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.State != domain.RecoveryCodeVerified {
		return fmt.Errorf("%w: password reset requires a verified code", domain.ErrRecoveryState)
	}

	if err := s.backend.ResetPassword(ctx, s.current.IssuedToken, newPassword); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.current.CompleteReset(); err != nil {
		return err
	}
	s.current = nil

	s.log.Info("password reset completed")

	return nil
}

// AdoptRecoveryCallback installs a recovery that arrived through an email
// deep link. The link's token already proves ownership, so the flow starts
// at CodeVerified.
func (s *RecoveryService) AdoptRecoveryCallback(ev domain.CallbackEvent) error {
	if ev.Kind != domain.CallbackPasswordRecovery {
		return fmt.Errorf("%w: not a recovery callback", domain.ErrRecoveryState)
	}
	if ev.AccessToken == "" {
		return fmt.Errorf("%w: recovery callback carries no token", domain.ErrRecoveryState)
	}

	s.mu.Lock()
	s.current = &domain.RecoveryRequest{
		Mode:        domain.RecoveryFindPassword,
		Identifier:  ev.Email,
		IssuedToken: ev.AccessToken,
		State:       domain.RecoveryCodeVerified,
	}
	s.mu.Unlock()

	s.log.Info("recovery adopted from deep link", "email", ev.Email)

	return nil
}

// State reports the current recovery state, RecoveryIdle when none is in
// progress.
func (s *RecoveryService) State() domain.RecoveryState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return domain.RecoveryIdle
	}
	return s.current.State
}

// Cancel abandons any recovery in progress.
func (s *RecoveryService) Cancel() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
