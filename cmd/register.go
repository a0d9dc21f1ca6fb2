package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegisterCmd(app *app) *cobra.Command {
	var email string
	var password string
	var nickname string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.account.Register(cmd.Context(), email, password, nickname)
			if err != nil {
				return err
			}

			if result.NeedsEmailConfirmation {
				msg := result.Message
				if msg == "" {
					msg = "Account created. Confirm your email address, then sign in."
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are signed in.\n", nickname)
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (6+ characters)")
	cmd.Flags().StringVar(&nickname, "nickname", "", "Display nickname")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("nickname")

	return cmd
}
