package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "petauth",
		Short:         "Pet Constitution auth client: sign in, recover accounts, inspect session state",
		Long:          "petauth drives the Pet Constitution questionnaire service's authentication from the terminal: provider sign-in through the browser, email login and registration, account recovery by code, and session inspection.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newRegisterCmd(app),
		newLogoutCmd(app),
		newStatusCmd(app),
		newWithdrawCmd(app),
		newFindCmd(app),
		newCallbackCmd(app),
	)

	return rootCmd
}
