package application

import (
	"context"
	"sync"
	"time"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type fakeTokenStore struct {
	mu     sync.Mutex
	values map[string]string
	puts   []string

	putErr    error
	deleteErr error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{values: map[string]string{}}
}

func (s *fakeTokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return "", domain.ErrTokenNotFound
	}
	return v, nil
}

func (s *fakeTokenStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.putErr != nil {
		return s.putErr
	}
	s.values[key] = value
	s.puts = append(s.puts, key)
	return nil
}

func (s *fakeTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.values, key)
	return nil
}

func (s *fakeTokenStore) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

type fakeBackend struct {
	loginFn         func(ctx context.Context, email, password string) (ports.LoginResult, error)
	registerFn      func(ctx context.Context, email, password, nickname string) (ports.RegisterResult, error)
	getMeFn         func(ctx context.Context, accessToken string) (domain.UserProfile, error)
	findIDFn        func(ctx context.Context, nickname string) (string, error)
	findPasswordFn  func(ctx context.Context, email string) (ports.RecoveryIssue, error)
	resetPasswordFn func(ctx context.Context, resetToken, newPassword string) error
	withdrawFn      func(ctx context.Context, accessToken string) error
}

var _ ports.Backend = (*fakeBackend)(nil)

func (b *fakeBackend) Login(ctx context.Context, email, password string) (ports.LoginResult, error) {
	return b.loginFn(ctx, email, password)
}

func (b *fakeBackend) Register(ctx context.Context, email, password, nickname string) (ports.RegisterResult, error) {
	return b.registerFn(ctx, email, password, nickname)
}

func (b *fakeBackend) GetMe(ctx context.Context, accessToken string) (domain.UserProfile, error) {
	return b.getMeFn(ctx, accessToken)
}

func (b *fakeBackend) FindID(ctx context.Context, nickname string) (string, error) {
	return b.findIDFn(ctx, nickname)
}

func (b *fakeBackend) FindPassword(ctx context.Context, email string) (ports.RecoveryIssue, error) {
	return b.findPasswordFn(ctx, email)
}

func (b *fakeBackend) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return b.resetPasswordFn(ctx, resetToken, newPassword)
}

func (b *fakeBackend) Withdraw(ctx context.Context, accessToken string) error {
	return b.withdrawFn(ctx, accessToken)
}

type fakeStateStore struct {
	mu     sync.Mutex
	resume *domain.PendingResume
	flags  map[string]bool

	deleteResumeErr error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{flags: map[string]bool{}}
}

func (s *fakeStateStore) GetResume(context.Context) (domain.PendingResume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resume == nil {
		return domain.PendingResume{}, domain.ErrResumeNotFound
	}
	return *s.resume, nil
}

func (s *fakeStateStore) PutResume(_ context.Context, resume domain.PendingResume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = &resume
	return nil
}

func (s *fakeStateStore) DeleteResume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteResumeErr != nil {
		return s.deleteResumeErr
	}
	s.resume = nil
	return nil
}

func (s *fakeStateStore) SetFlag(_ context.Context, name string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = value
	return nil
}

func (s *fakeStateStore) TakeFlag(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.flags[name]
	delete(s.flags, name)
	return v, nil
}

func (s *fakeStateStore) flag(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[name]
}

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (o *recordingOpener) OpenURL(_ context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}
	o.urls = append(o.urls, url)
	return nil
}

func (o *recordingOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

type recordingNavigator struct {
	mu         sync.Mutex
	home       int
	results    []map[string]any
	resetCalls []string
}

var _ ports.Navigator = (*recordingNavigator)(nil)

func (n *recordingNavigator) ShowHome(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.home++
}

func (n *recordingNavigator) ShowResults(_ context.Context, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, payload)
}

func (n *recordingNavigator) ShowPasswordReset(_ context.Context, resetToken, email string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetCalls = append(n.resetCalls, resetToken+":"+email)
}
