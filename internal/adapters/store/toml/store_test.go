package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohalab/petauth/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := viper.New()
	cfg.Set("state.path", filepath.Join(t.TempDir(), "state.toml"))

	s, err := NewStore(cfg)
	require.NoError(t, err)
	return s
}

func TestStoreResumeRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutResume(ctx, domain.PendingResume{
		Kind:    domain.ResumeReturnToResults,
		Payload: map[string]any{"resultId": "r-1"},
	}))

	resume, err := s.GetResume(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ResumeReturnToResults, resume.Kind)
	assert.Equal(t, "r-1", resume.Payload["resultId"])

	require.NoError(t, s.DeleteResume(ctx))

	_, err = s.GetResume(ctx)
	require.ErrorIs(t, err, domain.ErrResumeNotFound)
}

func TestStoreGetResumeEmptyFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.GetResume(context.Background())
	require.ErrorIs(t, err, domain.ErrResumeNotFound)
}

func TestStoreDeleteResumeMissingIsNoop(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	require.NoError(t, s.DeleteResume(context.Background()))
}

func TestStoreResumeSurvivesReopen(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")

	cfg := viper.New()
	cfg.Set("state.path", statePath)
	first, err := NewStore(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, first.PutResume(ctx, domain.PendingResume{Kind: domain.ResumeReturnToResults}))

	cfg = viper.New()
	cfg.Set("state.path", statePath)
	second, err := NewStore(cfg)
	require.NoError(t, err)

	resume, err := second.GetResume(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ResumeReturnToResults, resume.Kind)
}

func TestStoreFlags(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	set, err := s.TakeFlag(ctx, "oauthLoginSuccess")
	require.NoError(t, err)
	assert.False(t, set)

	require.NoError(t, s.SetFlag(ctx, "oauthLoginSuccess", true))

	set, err = s.TakeFlag(ctx, "oauthLoginSuccess")
	require.NoError(t, err)
	assert.True(t, set)

	// Take consumes the flag.
	set, err = s.TakeFlag(ctx, "oauthLoginSuccess")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestStoreSetFlagFalseClears(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetFlag(ctx, "oauthLoginSuccess", true))
	require.NoError(t, s.SetFlag(ctx, "oauthLoginSuccess", false))

	set, err := s.TakeFlag(ctx, "oauthLoginSuccess")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestStoreFlagDoesNotDisturbResume(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutResume(ctx, domain.PendingResume{Kind: domain.ResumeReturnToResults}))
	require.NoError(t, s.SetFlag(ctx, "oauthLoginSuccess", true))

	resume, err := s.GetResume(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ResumeReturnToResults, resume.Kind)
}

func TestStoreStateFilePermissions(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	cfg := viper.New()
	cfg.Set("state.path", statePath)

	s, err := NewStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.SetFlag(context.Background(), "oauthLoginSuccess", true))

	info, err := os.Stat(statePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreRejectsNewerSchema(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("version = 99\n"), 0o600))

	cfg := viper.New()
	cfg.Set("state.path", statePath)
	s, err := NewStore(cfg)
	require.NoError(t, err)

	_, err = s.GetResume(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported state schema version")
}

func TestStoreHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetResume(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.SetFlag(ctx, "x", true), context.Canceled)
}
