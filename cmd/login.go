package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	browseradapter "github.com/sohalab/petauth/internal/adapters/browser"
	callbackadapter "github.com/sohalab/petauth/internal/adapters/callback"
	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/ports"
)

func newLoginCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your account",
	}

	cmd.AddCommand(newLoginPasswordCmd(app), newLoginOAuthCmd(app))

	return cmd
}

func newLoginPasswordCmd(app *app) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.account.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			greetLogin(cmd, session)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLoginOAuthCmd(app *app) *cobra.Command {
	var provider string
	var printURL bool

	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "Sign in through an identity provider (kakao, google, apple)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOAuthLogin(cmd, app, domain.Provider(provider), printURL)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", string(domain.ProviderKakao), "Identity provider (kakao|google|apple)")
	cmd.Flags().BoolVar(&printURL, "print-url", false, "Print the authorization URL instead of opening a browser")

	return cmd
}

func runOAuthLogin(cmd *cobra.Command, app *app, provider domain.Provider, printURL bool) error {
	server, err := callbackadapter.StartServer(app.oauth.ListenAddr, app.oauth.Scheme)
	if err != nil {
		return fmt.Errorf("start callback receiver: %w", err)
	}
	defer func() { _ = server.Close() }()

	var opener ports.URLOpener = browseradapter.Opener{}
	if printURL {
		opener = browseradapter.PrintOpener{Out: cmd.OutOrStdout()}
	}

	launcher := app.newLauncher(server.RedirectURI(), opener, nil)
	dispatcher := app.newDispatcher(launcher, cmd.OutOrStdout())

	if _, err := launcher.Launch(cmd.Context(), provider); err != nil {
		return err
	}

	var uri string
	waitErr := runWaitSpinner(cmd, fmt.Sprintf("Waiting for %s sign-in...", provider), func() error {
		var err error
		uri, err = server.WaitForURI(app.oauth.Timeout)
		return err
	})
	if waitErr != nil {
		launcher.Cancel()
		if errors.Is(waitErr, callbackadapter.ErrCallbackTimeout) {
			return fmt.Errorf("%w: the provider did not redirect back within %s", domain.ErrLaunchTimeout, app.oauth.Timeout)
		}
		return waitErr
	}

	if err := dispatcher.HandleURI(cmd.Context(), uri); err != nil {
		return err
	}

	if session := app.sessions.Current(); session.LoggedIn() {
		greetLogin(cmd, session)
	}

	return nil
}

func greetLogin(cmd *cobra.Command, session domain.Session) {
	name := session.User.DisplayName
	if name == "" {
		name = session.User.Email
	}

	if session.User.IsNew(time.Now()) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Your account was just created.\n", name)
		return
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s.\n", name)
}
