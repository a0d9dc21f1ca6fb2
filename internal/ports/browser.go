package ports

import "context"

// URLOpener hands a URL to the platform's external auth session mechanism.
// The call returns once the handoff succeeded; the flow result arrives
// later, out of band.
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}
