package application

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohalab/petauth/internal/domain"
)

func testLaunchConfig(timeout time.Duration) LaunchConfig {
	return LaunchConfig{
		AuthBaseURL: "https://auth.example.com",
		RedirectURI: "petconstitution://auth/callback",
		Timeout:     timeout,
	}
}

func newLauncherSessions() *SessionStore {
	return NewSessionStore(newFakeTokenStore(), &fakeBackend{}, fixedClock{}, nil)
}

func TestLauncherAuthorizationURL(t *testing.T) {
	t.Parallel()

	l := NewLauncher(testLaunchConfig(0), newLauncherSessions(), &recordingOpener{}, nil, nil, nil, nil)

	raw, err := l.AuthorizationURL(domain.ProviderKakao)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "kakao", u.Query().Get("provider"))
	assert.Equal(t, "petconstitution://auth/callback", u.Query().Get("redirect_to"))
	assert.Equal(t, "login", u.Query().Get("prompt"))
}

func TestLauncherRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	l := NewLauncher(testLaunchConfig(0), newLauncherSessions(), &recordingOpener{}, nil, nil, nil, nil)

	_, err := l.Launch(context.Background(), domain.Provider("myspace"))
	require.Error(t, err)
	assert.False(t, l.Active())
}

func TestLauncherOpenFailureIsTerminal(t *testing.T) {
	t.Parallel()

	opener := &recordingOpener{err: errors.New("no browser")}
	fired := make(chan Attempt, 1)
	l := NewLauncher(testLaunchConfig(10*time.Millisecond), newLauncherSessions(), opener, newFakeStateStore(), nil, nil, func(a Attempt) { fired <- a })

	_, err := l.Launch(context.Background(), domain.ProviderGoogle)
	require.Error(t, err)
	assert.False(t, l.Active())

	select {
	case <-fired:
		t.Fatal("no watchdog should be armed for a failed launch")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLauncherWatchdogFiresOnTimeout(t *testing.T) {
	t.Parallel()

	fired := make(chan Attempt, 1)
	l := NewLauncher(testLaunchConfig(10*time.Millisecond), newLauncherSessions(), &recordingOpener{}, newFakeStateStore(), nil, nil, func(a Attempt) { fired <- a })

	attempt, err := l.Launch(context.Background(), domain.ProviderGoogle)
	require.NoError(t, err)
	require.True(t, l.Active())

	select {
	case got := <-fired:
		assert.Equal(t, attempt.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
	assert.False(t, l.Active())
}

func TestLauncherCompleteDisarmsWatchdog(t *testing.T) {
	t.Parallel()

	fired := make(chan Attempt, 1)
	l := NewLauncher(testLaunchConfig(20*time.Millisecond), newLauncherSessions(), &recordingOpener{}, newFakeStateStore(), nil, nil, func(a Attempt) { fired <- a })

	attempt, err := l.Launch(context.Background(), domain.ProviderApple)
	require.NoError(t, err)

	settled, ok := l.Complete()
	require.True(t, ok)
	assert.Equal(t, attempt.ID, settled.ID)

	select {
	case <-fired:
		t.Fatal("watchdog fired after completion")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLauncherRelaunchSupersedesPreviousAttempt(t *testing.T) {
	t.Parallel()

	fired := make(chan Attempt, 2)
	l := NewLauncher(testLaunchConfig(30*time.Millisecond), newLauncherSessions(), &recordingOpener{}, newFakeStateStore(), nil, nil, func(a Attempt) { fired <- a })

	first, err := l.Launch(context.Background(), domain.ProviderKakao)
	require.NoError(t, err)
	second, err := l.Launch(context.Background(), domain.ProviderGoogle)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	select {
	case got := <-fired:
		assert.Equal(t, second.ID, got.ID, "only the newest attempt may time out")
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}

	select {
	case got := <-fired:
		t.Fatalf("superseded attempt %s fired its watchdog", got.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLauncherLaunchClaimsFreshSessionGeneration(t *testing.T) {
	t.Parallel()

	sessions := newLauncherSessions()
	l := NewLauncher(testLaunchConfig(0), sessions, &recordingOpener{}, newFakeStateStore(), nil, nil, nil)

	before := sessions.Generation()
	first, err := l.Launch(context.Background(), domain.ProviderKakao)
	require.NoError(t, err)
	assert.Greater(t, first.Generation(), before)
	assert.Equal(t, sessions.Generation(), first.Generation())

	second, err := l.Launch(context.Background(), domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, sessions.Generation(), second.Generation())
	assert.NotEqual(t, first.Generation(), second.Generation(), "a superseded attempt's tag must be stale")
}

func TestLauncherSwallowsTimeoutAfterSuccessfulLogin(t *testing.T) {
	t.Parallel()

	state := newFakeStateStore()
	fired := make(chan Attempt, 1)
	l := NewLauncher(testLaunchConfig(10*time.Millisecond), newLauncherSessions(), &recordingOpener{}, state, nil, nil, func(a Attempt) { fired <- a })

	_, err := l.Launch(context.Background(), domain.ProviderKakao)
	require.NoError(t, err)

	// A reconcile landed through a path that never disarmed the watchdog.
	require.NoError(t, state.SetFlag(context.Background(), FlagOAuthLoginSuccess, true))

	select {
	case <-fired:
		t.Fatal("timeout surfaced on top of a successful login")
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, state.flag(FlagOAuthLoginSuccess), "the marker is consumed by the swallowed timeout")
}

func TestLauncherCancelIsSilent(t *testing.T) {
	t.Parallel()

	fired := make(chan Attempt, 1)
	l := NewLauncher(testLaunchConfig(10*time.Millisecond), newLauncherSessions(), &recordingOpener{}, newFakeStateStore(), nil, nil, func(a Attempt) { fired <- a })

	_, err := l.Launch(context.Background(), domain.ProviderGoogle)
	require.NoError(t, err)

	l.Cancel()
	assert.False(t, l.Active())

	select {
	case <-fired:
		t.Fatal("watchdog fired after cancel")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok := l.Complete()
	assert.False(t, ok)
}
