package ports

import "context"

// Navigator is the screen/navigation collaborator. The auth core only
// signals destinations; what a destination looks like is not its concern.
type Navigator interface {
	ShowHome(ctx context.Context)
	ShowResults(ctx context.Context, payload map[string]any)
	ShowPasswordReset(ctx context.Context, resetToken, email string)
}
