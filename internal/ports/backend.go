package ports

import (
	"context"
	"time"

	"github.com/sohalab/petauth/internal/domain"
)

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.UserProfile
}

type RegisterResult struct {
	AccessToken string
	User        *domain.UserProfile
	Message     string
	// NeedsEmailConfirmation is set when registration succeeded but no token
	// was issued yet.
	NeedsEmailConfirmation bool
}

// RecoveryIssue is the short-lived (code, token) pair issued for a
// find-password request.
type RecoveryIssue struct {
	Code      string
	Token     string
	ExpiresAt time.Time
}

// Backend is the remote questionnaire-service API. Implementations report
// domain.ErrInvalidToken for rejected credentials and wrap transport
// failures in domain.ErrBackendUnavailable.
type Backend interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Register(ctx context.Context, email, password, nickname string) (RegisterResult, error)
	GetMe(ctx context.Context, accessToken string) (domain.UserProfile, error)
	FindID(ctx context.Context, nickname string) (string, error)
	FindPassword(ctx context.Context, email string) (RecoveryIssue, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	Withdraw(ctx context.Context, accessToken string) error
}
