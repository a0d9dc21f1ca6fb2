package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

// ReconcileOutcome is what a successful reconcile hands to navigation.
type ReconcileOutcome struct {
	Session domain.Session
	// Resumed is the deferred action consumed during this reconcile, if any.
	Resumed *domain.PendingResume
}

// Reconciler turns a successful OAuth callback into a live session. Tokens
// are persisted before the profile fetch, and the whole operation is
// idempotent: replaying the same callback converges on the same state.
type Reconciler struct {
	sessions *SessionStore
	backend  ports.Backend
	resume   *ResumeManager
	state    ports.StateStore
	clock    ports.Clock
	log      logger.Logger
}

func NewReconciler(sessions *SessionStore, backend ports.Backend, resume *ResumeManager, state ports.StateStore, clock ports.Clock, log logger.Logger) *Reconciler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Reconciler{
		sessions: sessions,
		backend:  backend,
		resume:   resume,
		state:    state,
		clock:    clock,
		log:      log,
	}
}

// Reconcile persists the callback's tokens, fetches the profile they belong
// to, and installs the combined session. A logout that lands while the
// profile fetch is in flight wins: the install is rejected with
// domain.ErrStaleGeneration and no token is resurrected.
func (r *Reconciler) Reconcile(ctx context.Context, ev domain.CallbackEvent) (ReconcileOutcome, error) {
	return r.reconcile(ctx, ev, r.sessions.Generation())
}

// ReconcileAttempt reconciles a callback on behalf of the launch attempt it
// answers. An attempt superseded by a later launch, or outlived by a
// logout, carries a stale generation: its callback installs nothing.
func (r *Reconciler) ReconcileAttempt(ctx context.Context, ev domain.CallbackEvent, attempt Attempt) (ReconcileOutcome, error) {
	return r.reconcile(ctx, ev, attempt.Generation())
}

func (r *Reconciler) reconcile(ctx context.Context, ev domain.CallbackEvent, generation uint64) (ReconcileOutcome, error) {
	if ev.Kind != domain.CallbackOAuthSuccess {
		return ReconcileOutcome{}, fmt.Errorf("reconcile requires a success callback, got %q", ev.Kind)
	}
	if ev.AccessToken == "" {
		return ReconcileOutcome{}, fmt.Errorf("success callback carries no access token")
	}

	// Persist first. A crash between here and the profile fetch leaves the
	// token on disk; the next start revalidates it.
	if err := r.sessions.PersistTokens(ctx, generation, ev.AccessToken, ev.RefreshToken); err != nil {
		return ReconcileOutcome{}, fmt.Errorf("persist callback tokens: %w", err)
	}

	user, err := r.backend.GetMe(ctx, ev.AccessToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			if dropErr := r.sessions.DiscardTokens(ctx, generation); dropErr != nil && !errors.Is(dropErr, domain.ErrStaleGeneration) {
				r.log.Warn("drop rejected token", "error", dropErr)
			}
			return ReconcileOutcome{}, fmt.Errorf("callback token rejected: %w", err)
		}
		// Network trouble: the token stays persisted so the next start can
		// retry; the session stays logged out.
		return ReconcileOutcome{}, fmt.Errorf("fetch profile: %w", err)
	}

	session := domain.Session{
		AccessToken:  ev.AccessToken,
		RefreshToken: ev.RefreshToken,
		User:         &user,
		ObtainedAt:   r.clock.Now(),
	}

	if err := r.sessions.Set(ctx, generation, session); err != nil {
		return ReconcileOutcome{}, err
	}

	if err := r.state.SetFlag(ctx, FlagOAuthLoginSuccess, true); err != nil {
		r.log.Warn("record login marker", "error", err)
	}

	outcome := ReconcileOutcome{Session: session}

	if r.resume != nil {
		resumed, ok, err := r.resume.Consume(ctx)
		if err != nil {
			r.log.Warn("consume pending resume", "error", err)
		} else if ok {
			outcome.Resumed = &resumed
		}
	}

	return outcome, nil
}
