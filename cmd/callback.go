package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sohalab/petauth/internal/domain"
)

// newCallbackCmd handles a deep-link URI delivered by the OS (or pasted by
// the user when the automatic channel failed).
func newCallbackCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "callback <uri>",
		Short: "Process an auth callback URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatcher := app.newDispatcher(nil, cmd.OutOrStdout())

			if err := dispatcher.HandleURI(cmd.Context(), args[0]); err != nil {
				return err
			}

			// A recovery link lands mid-flow; finish the password reset in
			// this invocation since the verified state is process-local.
			if app.recovery.State() == domain.RecoveryCodeVerified {
				return promptPasswordReset(cmd, app, bufio.NewReader(cmd.InOrStdin()))
			}

			if ev := domain.ClassifyCallback(args[0]); ev.Kind == domain.CallbackUnrecognized {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "URI not recognized as an auth callback; nothing to do.")
				return err
			}

			return nil
		},
	}
}
