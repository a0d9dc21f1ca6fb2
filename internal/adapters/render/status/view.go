package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sohalab/petauth/internal/domain"
)

// View is the snapshot of auth state the status screen renders.
type View struct {
	Session       domain.Session
	RecoveryState domain.RecoveryState
	ResumePending bool
	AttemptActive bool
	// TokenPersisted is true when a credential exists in storage, even if
	// the session itself is logged out (e.g. backend unreachable at start).
	TokenPersisted bool
}

type RenderOptions struct {
	Now time.Time
}

func renderView(v View, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Pet Constitution Auth"),
		s.header.Render(sessionHeadline(v)),
	}

	lines = append(lines, s.section.Render(renderSession(v, opts, s)))

	if extras := renderExtras(v, s); extras != "" {
		lines = append(lines, s.section.Render(extras))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionHeadline(v View) string {
	if v.Session.LoggedIn() {
		return "status: logged in"
	}
	if v.TokenPersisted {
		return "status: logged out (stored credential awaiting validation)"
	}
	return "status: logged out"
}

func renderSession(v View, opts RenderOptions, s styles) string {
	if !v.Session.LoggedIn() {
		return s.empty.Render("No active session. Run `petauth login` to sign in.")
	}

	user := v.Session.User
	parts := []string{
		s.identity.Render(identityTitle(user)),
		s.detail.Render(fmt.Sprintf("%s %s", s.key.Render("email:"), user.Email)),
	}

	if age := sessionAge(v.Session, opts.Now); age != "" {
		parts = append(parts, s.detail.Render(fmt.Sprintf("%s %s", s.key.Render("signed in:"), age)))
	}

	if !opts.Now.IsZero() && user.IsNew(opts.Now) {
		parts = append(parts, s.good.Render("new account (welcome!)"))
	}

	if v.Session.RefreshToken == "" {
		parts = append(parts, s.warning.Render("no refresh token; session cannot be renewed silently"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderExtras(v View, s styles) string {
	var parts []string

	if v.AttemptActive {
		parts = append(parts, s.detail.Render("A provider sign-in is still waiting for its callback."))
	}

	if v.RecoveryState != "" && v.RecoveryState != domain.RecoveryIdle {
		parts = append(parts, s.detail.Render(fmt.Sprintf("%s %s", s.key.Render("account recovery:"), recoveryLabel(v.RecoveryState, s))))
	}

	if v.ResumePending {
		parts = append(parts, s.detail.Render("An interrupted action will resume after the next sign-in."))
	}

	if len(parts) == 0 {
		return ""
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func identityTitle(user *domain.UserProfile) string {
	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		name = user.Email
	}
	return fmt.Sprintf("Account: %s (id %s)", name, user.ID)
}

func recoveryLabel(state domain.RecoveryState, s styles) string {
	switch state {
	case domain.RecoveryCodeIssued:
		return s.bad.Render("waiting for verification code")
	case domain.RecoveryCodeVerified:
		return s.good.Render("code verified, awaiting new password")
	case domain.RecoveryPasswordReset:
		return s.good.Render("password reset complete")
	default:
		return string(state)
	}
}

func sessionAge(session domain.Session, now time.Time) string {
	if session.ObtainedAt.IsZero() || now.IsZero() {
		return ""
	}

	elapsed := now.Sub(session.ObtainedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		minutes := int(math.Round(elapsed.Minutes()))
		return fmt.Sprintf("%d min ago", minutes)
	case elapsed < 24*time.Hour:
		hours := int(math.Round(elapsed.Hours()))
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(elapsed.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
