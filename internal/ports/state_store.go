package ports

import (
	"context"

	"github.com/sohalab/petauth/internal/domain"
)

// StateStore holds the small persisted app state that is not a credential:
// the pending-resume payload and transient one-shot flags.
type StateStore interface {
	// GetResume returns domain.ErrResumeNotFound when nothing is pending.
	GetResume(ctx context.Context) (domain.PendingResume, error)
	PutResume(ctx context.Context, resume domain.PendingResume) error
	DeleteResume(ctx context.Context) error

	SetFlag(ctx context.Context, name string, value bool) error
	// TakeFlag reads a flag and clears it in the same operation.
	TakeFlag(ctx context.Context, name string) (bool, error)
}
