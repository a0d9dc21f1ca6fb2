package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sohalab/petauth/internal/ports"
)

// cliNavigator stands in for the app's screen navigation: destinations
// become lines on the terminal.
type cliNavigator struct {
	out io.Writer
}

var _ ports.Navigator = (*cliNavigator)(nil)

func newCLINavigator(out io.Writer) *cliNavigator {
	return &cliNavigator{out: out}
}

func (n *cliNavigator) ShowHome(context.Context) {
	_, _ = fmt.Fprintln(n.out, "Signed in. You are back on the home screen.")
}

func (n *cliNavigator) ShowResults(_ context.Context, payload map[string]any) {
	if id, ok := payload["resultId"].(string); ok && id != "" {
		_, _ = fmt.Fprintf(n.out, "Signed in. Returning to your questionnaire results (%s).\n", id)
		return
	}
	_, _ = fmt.Fprintln(n.out, "Signed in. Returning to your questionnaire results.")
}

func (n *cliNavigator) ShowPasswordReset(_ context.Context, _ string, email string) {
	_, _ = fmt.Fprintf(n.out, "Recovery link accepted for %s. Choose a new password when prompted.\n", email)
}
