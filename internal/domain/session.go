package domain

import "time"

type Provider string

const (
	ProviderKakao  Provider = "kakao"
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderKakao, ProviderGoogle, ProviderApple:
		return true
	default:
		return false
	}
}

// UserProfile is fetched from the backend and replaced wholesale on refresh,
// never patched field by field.
type UserProfile struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Session is the single logged-in identity of the app. Invariant: User is
// non-nil exactly when AccessToken is non-empty.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
	ObtainedAt   time.Time
}

func (s Session) LoggedIn() bool {
	return s.AccessToken != "" && s.User != nil
}

// Consistent reports whether the user-iff-token invariant holds.
func (s Session) Consistent() bool {
	return (s.AccessToken == "") == (s.User == nil)
}

// NewUserWindow treats accounts created within this window as fresh signups.
const NewUserWindow = 24 * time.Hour

func (u UserProfile) IsNew(now time.Time) bool {
	if u.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(u.CreatedAt) < NewUserWindow
}

// PendingResume remembers what the user was doing before a login
// interruption. Consumed at most once.
type PendingResume struct {
	Kind    ResumeKind
	Payload map[string]any
}

type ResumeKind string

const ResumeReturnToResults ResumeKind = "returnToResults"
