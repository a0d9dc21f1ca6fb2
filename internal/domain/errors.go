package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrResumeNotFound  = errors.New("pending resume not found")

	ErrInvalidToken       = errors.New("access token rejected by backend")
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrProviderDenied  = errors.New("identity provider returned an error")
	ErrLaunchTimeout   = errors.New("timed out waiting for login callback")
	ErrStaleGeneration = errors.New("auth state changed since operation started")

	ErrRecoveryState            = errors.New("operation not allowed in current recovery state")
	ErrRecoveryCodeMismatch     = errors.New("recovery code does not match")
	ErrRecoveryExpired          = errors.New("recovery code expired")
	ErrRecoveryAttemptsExceeded = errors.New("recovery code attempts exceeded")
)
