package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/sohalab/petauth/internal/adapters/render/status"
	"github.com/sohalab/petauth/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := statusadapter.View{
				RecoveryState: app.recovery.State(),
			}

			// A persisted token is validated before it is shown as a live
			// session. An unreachable backend is not a hard failure here:
			// the token survives and the session reads as logged out.
			if err := app.sessions.Restore(cmd.Context()); err != nil {
				if !errors.Is(err, domain.ErrBackendUnavailable) {
					return err
				}
				view.TokenPersisted = true
			}

			view.Session = app.sessions.Current()

			if _, ok, err := peekResume(cmd, app); err == nil {
				view.ResumePending = ok
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statusJSON(view))
			}

			rendered, err := app.statusRenderer(view, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")

	return cmd
}

// peekResume reports whether a pending resume exists without consuming it.
func peekResume(cmd *cobra.Command, app *app) (domain.PendingResume, bool, error) {
	resume, err := app.state.GetResume(cmd.Context())
	if err != nil {
		if errors.Is(err, domain.ErrResumeNotFound) {
			return domain.PendingResume{}, false, nil
		}
		return domain.PendingResume{}, false, err
	}
	return resume, true, nil
}

type statusPayload struct {
	LoggedIn       bool   `json:"logged_in"`
	UserID         string `json:"user_id,omitempty"`
	Email          string `json:"email,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
	TokenPersisted bool   `json:"token_persisted"`
	RecoveryState  string `json:"recovery_state"`
	ResumePending  bool   `json:"resume_pending"`
}

func statusJSON(view statusadapter.View) statusPayload {
	payload := statusPayload{
		LoggedIn:       view.Session.LoggedIn(),
		TokenPersisted: view.TokenPersisted || view.Session.LoggedIn(),
		RecoveryState:  string(view.RecoveryState),
		ResumePending:  view.ResumePending,
	}
	if payload.RecoveryState == "" {
		payload.RecoveryState = string(domain.RecoveryIdle)
	}

	if user := view.Session.User; user != nil {
		payload.UserID = user.ID
		payload.Email = user.Email
		payload.DisplayName = user.DisplayName
	}

	return payload
}
