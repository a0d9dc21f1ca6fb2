package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

// ResumeManager remembers the action a login interrupted so it can be
// replayed exactly once after the session lands.
type ResumeManager struct {
	mu    sync.Mutex
	state ports.StateStore
	log   logger.Logger
}

func NewResumeManager(state ports.StateStore, log logger.Logger) *ResumeManager {
	if log == nil {
		log = logger.NewNop()
	}
	return &ResumeManager{state: state, log: log}
}

// Remember stores the pending action, replacing any previous one.
func (m *ResumeManager) Remember(ctx context.Context, resume domain.PendingResume) error {
	if resume.Kind == "" {
		return fmt.Errorf("pending resume needs a kind")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.state.PutResume(ctx, resume); err != nil {
		return fmt.Errorf("store pending resume: %w", err)
	}
	return nil
}

// Consume hands out the pending action at most once. The delete happens
// before the caller sees the payload; if the delete fails, nothing is
// handed out, so a retried login cannot replay the action twice.
func (m *ResumeManager) Consume(ctx context.Context) (domain.PendingResume, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resume, err := m.state.GetResume(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrResumeNotFound) {
			return domain.PendingResume{}, false, nil
		}
		return domain.PendingResume{}, false, fmt.Errorf("read pending resume: %w", err)
	}

	if err := m.state.DeleteResume(ctx); err != nil {
		return domain.PendingResume{}, false, fmt.Errorf("clear pending resume: %w", err)
	}

	return resume, true, nil
}

// Discard drops any pending action without replaying it.
func (m *ResumeManager) Discard(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.state.DeleteResume(ctx); err != nil && !errors.Is(err, domain.ErrResumeNotFound) {
		return fmt.Errorf("discard pending resume: %w", err)
	}
	return nil
}
