package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sohalab/petauth/internal/domain"
)

func newFindCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Recover a lost account",
	}

	cmd.AddCommand(newFindIDCmd(app), newFindPasswordCmd(app))

	return cmd
}

func newFindIDCmd(app *app) *cobra.Command {
	var nickname string

	cmd := &cobra.Command{
		Use:   "id",
		Short: "Look up the email registered under a nickname",
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := app.recovery.FindID(cmd.Context(), nickname)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "Nickname the account was registered with")
	_ = cmd.MarkFlagRequired("nickname")

	return cmd
}

func newFindPasswordCmd(app *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password with an emailed code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.recovery.RequestPasswordReset(cmd.Context(), email); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "A verification code was sent to %s.\n", email)

			in := bufio.NewReader(cmd.InOrStdin())

			if err := verifyRecoveryCode(cmd, app, in); err != nil {
				return err
			}

			return promptPasswordReset(cmd, app, in)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func verifyRecoveryCode(cmd *cobra.Command, app *app, in *bufio.Reader) error {
	for {
		code, err := promptLine(cmd, in, "Verification code: ")
		if err != nil {
			return err
		}

		err = app.recovery.VerifyCode(code)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrRecoveryCodeMismatch):
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "That code does not match. Try again.")
		case errors.Is(err, domain.ErrRecoveryExpired):
			return errors.New("the code expired; request a new one")
		case errors.Is(err, domain.ErrRecoveryAttemptsExceeded):
			return errors.New("too many failed attempts; request a new code")
		default:
			return err
		}
	}
}

func promptPasswordReset(cmd *cobra.Command, app *app, in *bufio.Reader) error {
	password, err := promptLine(cmd, in, "New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptLine(cmd, in, "Confirm password: ")
	if err != nil {
		return err
	}

	if err := app.recovery.ResetPassword(cmd.Context(), password, confirm); err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Password updated. Sign in with your new password.")
	return err
}

func promptLine(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}
