package application

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

// DefaultWatchdogTimeout bounds how long a launch waits for the provider
// to redirect back before the attempt is declared lost.
const DefaultWatchdogTimeout = 30 * time.Second

// LaunchConfig carries the endpoints a launch is built from.
type LaunchConfig struct {
	// AuthBaseURL is the authorization service root, e.g.
	// https://xyz.supabase.co.
	AuthBaseURL string
	// RedirectURI is where the provider sends the user back.
	RedirectURI string
	// Timeout overrides DefaultWatchdogTimeout when positive.
	Timeout time.Duration
}

// Attempt identifies one outbound launch.
type Attempt struct {
	ID        uuid.UUID
	Provider  domain.Provider
	StartedAt time.Time

	generation uint64
	seq        uint64
}

// Generation is the session-store tag this attempt's reconcile must carry.
// It goes stale as soon as a later launch or a logout happens.
func (a Attempt) Generation() uint64 { return a.generation }

// Launcher opens the provider's authorization page and arms a watchdog for
// the redirect back. Only the newest attempt counts: re-launching disarms
// the previous watchdog, a timeout that fires after a successful reconcile
// is swallowed, and each launch claims a fresh session generation so a
// superseded attempt's late callback cannot install a session.
type Launcher struct {
	mu       sync.Mutex
	cfg      LaunchConfig
	sessions *SessionStore
	opener   ports.URLOpener
	state    ports.StateStore
	clock    ports.Clock
	log      logger.Logger
	timeout  func(Attempt)

	timer   *time.Timer
	attempt *Attempt
	seq     uint64
}

func NewLauncher(cfg LaunchConfig, sessions *SessionStore, opener ports.URLOpener, state ports.StateStore, clock ports.Clock, log logger.Logger, onTimeout func(Attempt)) *Launcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWatchdogTimeout
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Launcher{
		cfg:      cfg,
		sessions: sessions,
		opener:   opener,
		state:    state,
		clock:    clock,
		log:      log,
		timeout:  onTimeout,
	}
}

// AuthorizationURL builds the provider authorization endpoint for p.
// prompt=login forces the provider's account chooser so switching accounts
// works without clearing browser cookies.
func (l *Launcher) AuthorizationURL(p domain.Provider) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("unsupported provider %q", p)
	}

	u, err := url.Parse(l.cfg.AuthBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse auth base url: %w", err)
	}
	u = u.JoinPath("auth", "v1", "authorize")

	q := u.Query()
	q.Set("provider", string(p))
	q.Set("redirect_to", l.cfg.RedirectURI)
	q.Set("prompt", "login")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Launch opens the browser for p and arms the watchdog. A failure to open
// the browser is terminal and reported synchronously; no watchdog is armed
// for it. A second Launch supersedes the first: it advances the session
// generation, so the first attempt's callback is classified but its
// reconcile is rejected as stale.
func (l *Launcher) Launch(ctx context.Context, p domain.Provider) (Attempt, error) {
	authURL, err := l.AuthorizationURL(p)
	if err != nil {
		return Attempt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.disarmLocked()

	if err := l.opener.OpenURL(ctx, authURL); err != nil {
		return Attempt{}, fmt.Errorf("open authorization page: %w", err)
	}

	l.seq++
	attempt := Attempt{
		ID:         uuid.New(),
		Provider:   p,
		StartedAt:  l.clock.Now(),
		generation: l.sessions.Advance(),
		seq:        l.seq,
	}
	l.attempt = &attempt

	seq := l.seq
	l.timer = time.AfterFunc(l.cfg.Timeout, func() { l.fireTimeout(seq) })

	l.log.Info("oauth launch", "provider", p, "attempt", attempt.ID)

	return attempt, nil
}

// Complete disarms the watchdog after a callback arrived. It reports the
// attempt the callback settled, if one was still pending.
func (l *Launcher) Complete() (Attempt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempt := l.attempt
	l.disarmLocked()
	if attempt == nil {
		return Attempt{}, false
	}
	return *attempt, true
}

// Cancel disarms the watchdog without reporting anything. Used when the
// user abandons the flow deliberately.
func (l *Launcher) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disarmLocked()
}

// Active reports whether a launch is still waiting for its callback.
func (l *Launcher) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempt != nil
}

func (l *Launcher) disarmLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.attempt = nil
}

func (l *Launcher) fireTimeout(seq uint64) {
	l.mu.Lock()
	if l.attempt == nil || l.attempt.seq != seq {
		l.mu.Unlock()
		return
	}
	attempt := *l.attempt
	l.disarmLocked()
	l.mu.Unlock()

	// A reconcile may have landed through a path that never called
	// Complete; the login marker tells those apart from a real timeout.
	if l.state != nil {
		if ok, err := l.state.TakeFlag(context.Background(), FlagOAuthLoginSuccess); err != nil {
			l.log.Warn("read login marker", "error", err)
		} else if ok {
			l.log.Debug("watchdog fired after successful login, ignoring", "attempt", attempt.ID)
			return
		}
	}

	l.log.Warn("oauth launch timed out", "provider", attempt.Provider, "attempt", attempt.ID)

	if l.timeout != nil {
		l.timeout(attempt)
	}
}
