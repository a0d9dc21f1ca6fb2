package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

// Persisted key names, kept byte-compatible with the mobile app's storage.
const (
	accessTokenKey  = "authToken"
	refreshTokenKey = "refreshToken"
)

// FlagOAuthLoginSuccess marks that a reconcile landed, so a watchdog that
// lost the race does not surface a timeout on top of a successful login.
const FlagOAuthLoginSuccess = "oauthLoginSuccess"

// SessionStore is the single source of truth for the current session. All
// mutation goes through Set/Clear; persisted writes are serialized under
// one lock so a logout cannot be undone by a slower reconcile. Clear and
// Advance bump a generation counter; writers carrying a stale generation
// are rejected with domain.ErrStaleGeneration.
type SessionStore struct {
	mu          sync.Mutex
	session     domain.Session
	generation  uint64
	nextSubID   int
	subscribers map[int]func(domain.Session)

	tokens  ports.TokenStore
	backend ports.Backend
	clock   ports.Clock
	log     logger.Logger
}

func NewSessionStore(tokens ports.TokenStore, backend ports.Backend, clock ports.Clock, log logger.Logger) *SessionStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &SessionStore{
		subscribers: map[int]func(domain.Session){},
		tokens:      tokens,
		backend:     backend,
		clock:       clock,
		log:         log,
	}
}

func (s *SessionStore) Current() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Generation returns the tag an in-flight operation should carry. The tag
// goes stale as soon as Clear or Advance runs.
func (s *SessionStore) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Advance claims a fresh generation without touching the session. A new
// launch calls it so callbacks answering an earlier attempt can no longer
// install anything.
func (s *SessionStore) Advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Subscribe registers an observer for session changes. The returned cancel
// function removes it.
func (s *SessionStore) Subscribe(fn func(domain.Session)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// PersistTokens writes credential material durably without touching the
// in-memory session, so a crash before the profile fetch does not lose the
// token.
func (s *SessionStore) PersistTokens(ctx context.Context, generation uint64, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return domain.ErrStaleGeneration
	}

	return s.persistLocked(ctx, accessToken, refreshToken)
}

// DiscardTokens removes persisted credential material for a reconcile that
// learned its token is invalid.
func (s *SessionStore) DiscardTokens(ctx context.Context, generation uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return domain.ErrStaleGeneration
	}

	return s.dropTokensLocked(ctx)
}

// Set replaces the session atomically. Readers never observe a token
// without its user.
func (s *SessionStore) Set(ctx context.Context, generation uint64, session domain.Session) error {
	if !session.Consistent() {
		return fmt.Errorf("refusing inconsistent session: token and user must be set together")
	}

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return domain.ErrStaleGeneration
	}

	if err := s.persistLocked(ctx, session.AccessToken, session.RefreshToken); err != nil {
		s.mu.Unlock()
		return err
	}

	s.session = session
	observers := s.observersLocked()
	s.mu.Unlock()

	for _, fn := range observers {
		fn(session)
	}

	return nil
}

// Clear logs the session out: in-memory and persisted state both go, and
// the generation advances so in-flight reconciles land dead.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	s.session = domain.Session{}
	err := s.dropTokensLocked(ctx)
	observers := s.observersLocked()
	s.mu.Unlock()

	for _, fn := range observers {
		fn(domain.Session{})
	}

	return err
}

// Restore runs at app start: a persisted token is validated against the
// backend before anyone observes a logged-in state. A rejected token is
// cleared; an unreachable backend keeps the token for a later retry but
// leaves the session logged out.
func (s *SessionStore) Restore(ctx context.Context) error {
	accessToken, err := s.tokens.Get(ctx, accessTokenKey)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil
		}
		return fmt.Errorf("read persisted token: %w", err)
	}

	refreshToken, err := s.tokens.Get(ctx, refreshTokenKey)
	if err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
		return fmt.Errorf("read persisted refresh token: %w", err)
	}

	user, err := s.backend.GetMe(ctx, accessToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			s.log.Info("persisted token rejected, clearing storage")
			return s.Clear(ctx)
		}
		return fmt.Errorf("validate persisted token: %w", err)
	}

	return s.Set(ctx, s.Generation(), domain.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         &user,
		ObtainedAt:   s.clock.Now(),
	})
}

func (s *SessionStore) persistLocked(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return s.dropTokensLocked(ctx)
	}

	if err := s.tokens.Put(ctx, accessTokenKey, accessToken); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}

	if refreshToken == "" {
		if err := s.tokens.Delete(ctx, refreshTokenKey); err != nil {
			return fmt.Errorf("drop refresh token: %w", err)
		}
		return nil
	}

	if err := s.tokens.Put(ctx, refreshTokenKey, refreshToken); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}

	return nil
}

func (s *SessionStore) dropTokensLocked(ctx context.Context) error {
	accessErr := s.tokens.Delete(ctx, accessTokenKey)
	refreshErr := s.tokens.Delete(ctx, refreshTokenKey)
	if accessErr != nil || refreshErr != nil {
		return fmt.Errorf("drop persisted tokens: %w", errors.Join(accessErr, refreshErr))
	}
	return nil
}

func (s *SessionStore) observersLocked() []func(domain.Session) {
	observers := make([]func(domain.Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		observers = append(observers, fn)
	}
	return observers
}
