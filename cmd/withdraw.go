package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sohalab/petauth/internal/domain"
)

func newWithdrawCmd(app *app) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Permanently delete your account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("account deletion is permanent; re-run with --yes to confirm")
			}

			if err := app.sessions.Restore(cmd.Context()); err != nil {
				return err
			}

			if err := app.account.Withdraw(cmd.Context()); err != nil {
				if errors.Is(err, domain.ErrSessionNotFound) {
					return errors.New("not signed in")
				}
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Account deleted. All stored credentials were removed.")
			return err
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm permanent account deletion")

	return cmd
}
