package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuedRequest(expiresAt time.Time) *RecoveryRequest {
	return &RecoveryRequest{
		Mode:        RecoveryFindPassword,
		Identifier:  "user@example.com",
		IssuedCode:  "AB12CD",
		IssuedToken: "tok",
		ExpiresAt:   expiresAt,
		State:       RecoveryCodeIssued,
	}
}

func TestRecoveryRequestVerifyCode(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)

	tests := []struct {
		name      string
		candidate string
		wantErr   error
		wantState RecoveryState
	}{
		{name: "exact match", candidate: "AB12CD", wantState: RecoveryCodeVerified},
		{name: "lowercase matches", candidate: "ab12cd", wantState: RecoveryCodeVerified},
		{name: "mixed case matches", candidate: "Ab12cD", wantState: RecoveryCodeVerified},
		{name: "surrounding whitespace is trimmed", candidate: "  AB12CD ", wantState: RecoveryCodeVerified},
		{name: "mismatch stays issued", candidate: "ZZ99ZZ", wantErr: ErrRecoveryCodeMismatch, wantState: RecoveryCodeIssued},
		{name: "empty candidate stays issued", candidate: "", wantErr: ErrRecoveryCodeMismatch, wantState: RecoveryCodeIssued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := issuedRequest(now.Add(time.Minute))
			err := r.VerifyCode(tt.candidate, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantState, r.State)
		})
	}
}

func TestRecoveryRequestVerifyCodeExpired(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	r := issuedRequest(now.Add(-time.Second))

	err := r.VerifyCode("AB12CD", now)
	require.ErrorIs(t, err, ErrRecoveryExpired)
	assert.Equal(t, RecoveryIdle, r.State)
}

func TestRecoveryRequestVerifyCodeAttemptCap(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	r := issuedRequest(now.Add(time.Hour))

	for i := 0; i < MaxRecoveryCodeAttempts; i++ {
		require.ErrorIs(t, r.VerifyCode("WRONG1", now), ErrRecoveryCodeMismatch)
		assert.Equal(t, RecoveryCodeIssued, r.State)
	}

	require.ErrorIs(t, r.VerifyCode("WRONG1", now), ErrRecoveryAttemptsExceeded)
	assert.Equal(t, RecoveryIdle, r.State)
}

func TestRecoveryRequestVerifyCodeWrongState(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)

	for _, state := range []RecoveryState{RecoveryIdle, RecoveryCodeVerified, RecoveryPasswordReset} {
		r := issuedRequest(now.Add(time.Minute))
		r.State = state
		require.ErrorIs(t, r.VerifyCode("AB12CD", now), ErrRecoveryState, string(state))
	}
}

func TestRecoveryRequestCompleteReset(t *testing.T) {
	t.Parallel()

	r := issuedRequest(time.Unix(2000, 0))
	r.State = RecoveryCodeVerified

	require.NoError(t, r.CompleteReset())
	assert.Equal(t, RecoveryPasswordReset, r.State)
	assert.Empty(t, r.IssuedCode)
	assert.Empty(t, r.IssuedToken, "the recovery token must not outlive the reset")
}

func TestRecoveryRequestCompleteResetRequiresVerified(t *testing.T) {
	t.Parallel()

	r := issuedRequest(time.Unix(2000, 0))
	require.ErrorIs(t, r.CompleteReset(), ErrRecoveryState)
}

func TestRecoveryRequestNoExpiryNeverExpires(t *testing.T) {
	t.Parallel()

	r := issuedRequest(time.Time{})
	assert.False(t, r.Expired(time.Unix(1<<40, 0)))
}
