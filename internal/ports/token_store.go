package ports

import "context"

// TokenStore persists credential material across app restarts. Get reports
// an absent key with domain.ErrTokenNotFound; Delete of an absent key is
// not an error.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
