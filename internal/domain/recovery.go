package domain

import (
	"strings"
	"time"
)

type RecoveryMode string

const (
	RecoveryFindID       RecoveryMode = "find_id"
	RecoveryFindPassword RecoveryMode = "find_password"
)

type RecoveryState string

const (
	RecoveryIdle          RecoveryState = "idle"
	RecoveryCodeIssued    RecoveryState = "code_issued"
	RecoveryCodeVerified  RecoveryState = "code_verified"
	RecoveryPasswordReset RecoveryState = "password_reset"
)

// MaxRecoveryCodeAttempts bounds code verification. The source behavior had
// no cap; five tries before forcing a fresh request is the chosen bound.
const MaxRecoveryCodeAttempts = 5

// RecoveryRequest is one in-flight find-password flow. Created when the
// issued code arrives, destroyed on success, cancel, or expiry.
type RecoveryRequest struct {
	Mode        RecoveryMode
	Identifier  string
	IssuedCode  string
	IssuedToken string
	ExpiresAt   time.Time
	State       RecoveryState
	Attempts    int
}

func (r *RecoveryRequest) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// VerifyCode attempts the CodeIssued -> CodeVerified transition. The match
// is case-insensitive and exact. A mismatch keeps the request in CodeIssued
// so the user can retry with the already-issued code, up to the attempt cap.
func (r *RecoveryRequest) VerifyCode(candidate string, now time.Time) error {
	if r.State != RecoveryCodeIssued {
		return ErrRecoveryState
	}
	if r.Expired(now) {
		r.State = RecoveryIdle
		return ErrRecoveryExpired
	}

	r.Attempts++
	if r.Attempts > MaxRecoveryCodeAttempts {
		r.State = RecoveryIdle
		return ErrRecoveryAttemptsExceeded
	}

	if !strings.EqualFold(strings.TrimSpace(candidate), r.IssuedCode) {
		return ErrRecoveryCodeMismatch
	}

	r.State = RecoveryCodeVerified
	return nil
}

// CompleteReset marks the terminal state and discards the recovery token.
// Recovery never yields a logged-in session; the user authenticates fresh.
func (r *RecoveryRequest) CompleteReset() error {
	if r.State != RecoveryCodeVerified {
		return ErrRecoveryState
	}
	r.State = RecoveryPasswordReset
	r.IssuedCode = ""
	r.IssuedToken = ""
	return nil
}
