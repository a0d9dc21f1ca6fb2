package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/sohalab/petauth/internal/ports"
)

// Opener launches the system browser for an external auth session.
type Opener struct{}

var _ ports.URLOpener = Opener{}

func (Opener) OpenURL(ctx context.Context, url string) error {
	var name string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	default:
		name = "xdg-open"
	}

	path, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("no browser launcher available (%s)", name)
		}
		return fmt.Errorf("locate browser launcher: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, append(args, url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open auth url: %w", err)
	}

	// The browser outlives the command; only the handoff is awaited.
	go func() { _ = cmd.Wait() }()

	return nil
}

// PrintOpener writes the URL for the user to open manually instead of
// spawning a browser.
type PrintOpener struct {
	Out io.Writer
}

var _ ports.URLOpener = PrintOpener{}

func (p PrintOpener) OpenURL(_ context.Context, url string) error {
	_, err := fmt.Fprintf(p.Out, "Open this URL to continue signing in:\n%s\n", url)
	return err
}
