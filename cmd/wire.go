package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	backendclient "github.com/sohalab/petauth/internal/adapters/backend"
	statusadapter "github.com/sohalab/petauth/internal/adapters/render/status"
	chainstore "github.com/sohalab/petauth/internal/adapters/store/chain"
	tomlstore "github.com/sohalab/petauth/internal/adapters/store/toml"
	"github.com/sohalab/petauth/internal/application"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

type app struct {
	sessions   *application.SessionStore
	account    *application.AccountService
	recovery   *application.RecoveryService
	reconciler *application.Reconciler
	resume     *application.ResumeManager
	state      ports.StateStore
	tokens     ports.TokenStore

	statusRenderer func(statusadapter.View, statusadapter.RenderOptions) (string, error)
	oauth          oauthConfig
	log            logger.Logger
	now            func() time.Time
}

type oauthConfig struct {
	// AuthBaseURL hosts the /auth/v1/authorize endpoint.
	AuthBaseURL string
	// Scheme is the custom URI scheme deep links arrive on.
	Scheme string
	// ListenAddr is where the local callback receiver binds.
	ListenAddr string
	Timeout    time.Duration
}

func wireApp() (*app, error) {
	// A .env in the working directory is a developer convenience, not a
	// requirement.
	_ = godotenv.Load()

	log := logger.New(os.Stderr, envOrDefault("PETAUTH_LOG_LEVEL", "warn"))

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	tokens, err := chainstore.NewKeyringFirstWithFileFallback(filepath.Join(homeDir, ".petauth", "tokens"))
	if err != nil {
		return nil, fmt.Errorf("wire token store chain: %w", err)
	}

	state, err := tomlstore.NewStore(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire state store: %w", err)
	}

	backend := backendclient.NewClient(
		envOrDefault("PETAUTH_API_BASE_URL", "https://petconstitution.supabase.co/functions/v1"),
		http.DefaultClient,
		log,
	)

	clock := ports.SystemClock{}
	sessions := application.NewSessionStore(tokens, backend, clock, log)
	resume := application.NewResumeManager(state, log)

	return &app{
		sessions:       sessions,
		account:        application.NewAccountService(sessions, backend, clock, log),
		recovery:       application.NewRecoveryService(backend, clock, log),
		reconciler:     application.NewReconciler(sessions, backend, resume, state, clock, log),
		resume:         resume,
		state:          state,
		tokens:         tokens,
		statusRenderer: statusadapter.Render,
		oauth: oauthConfig{
			AuthBaseURL: envOrDefault("PETAUTH_AUTH_BASE_URL", "https://petconstitution.supabase.co"),
			Scheme:      envOrDefault("PETAUTH_CALLBACK_SCHEME", "petconstitution"),
			ListenAddr:  envOrDefault("PETAUTH_CALLBACK_LISTEN", "127.0.0.1:0"),
			Timeout:     application.DefaultWatchdogTimeout,
		},
		log: log,
		now: time.Now,
	}, nil
}

// newLauncher builds a launcher bound to one redirect target. Each oauth
// login run gets a fresh one since the local receiver's port changes.
func (a *app) newLauncher(redirectURI string, opener ports.URLOpener, onTimeout func(application.Attempt)) *application.Launcher {
	return application.NewLauncher(application.LaunchConfig{
		AuthBaseURL: a.oauth.AuthBaseURL,
		RedirectURI: redirectURI,
		Timeout:     a.oauth.Timeout,
	}, a.sessions, opener, a.state, ports.SystemClock{}, a.log, onTimeout)
}

func (a *app) newDispatcher(launcher *application.Launcher, out io.Writer) *application.Dispatcher {
	return application.NewDispatcher(launcher, a.reconciler, a.recovery, newCLINavigator(out), a.log)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
