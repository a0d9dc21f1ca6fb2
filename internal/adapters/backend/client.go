package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

const (
	// requestTimeout bounds every backend call. Distinct from the OAuth
	// watchdog, which covers the external browser round trip.
	requestTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20

	// defaultCodeTTL applies when the backend omits an expiry for an issued
	// recovery code.
	defaultCodeTTL = 10 * time.Minute
)

// Client talks to the questionnaire-service function endpoints. Every
// response uses the {success, message, data} envelope.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

var _ ports.Backend = (*Client)(nil)

func NewClient(baseURL string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{baseURL: baseURL, http: httpClient, log: log}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type wireUser struct {
	ID        json.Number `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	CreatedAt string      `json:"created_at"`
}

func (u wireUser) toProfile() domain.UserProfile {
	createdAt, _ := time.Parse(time.RFC3339, u.CreatedAt)
	return domain.UserProfile{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.Name,
		CreatedAt:   createdAt,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (ports.LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	env, err := c.call(ctx, "/auth-login", body, "")
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", err)
	}

	var data struct {
		Token        string   `json:"token"`
		RefreshToken string   `json:"refresh_token"`
		User         wireUser `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ports.LoginResult{}, fmt.Errorf("decode login response: %w", err)
	}
	if data.Token == "" {
		return ports.LoginResult{}, errors.New("login response missing token")
	}

	return ports.LoginResult{
		AccessToken:  data.Token,
		RefreshToken: data.RefreshToken,
		User:         data.User.toProfile(),
	}, nil
}

func (c *Client) Register(ctx context.Context, email, password, nickname string) (ports.RegisterResult, error) {
	body := map[string]string{"email": email, "password": password}
	if nickname != "" {
		body["nickname"] = nickname
	}

	env, err := c.call(ctx, "/auth-register", body, "")
	if err != nil {
		return ports.RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	var data struct {
		Token string    `json:"token"`
		User  *wireUser `json:"user"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return ports.RegisterResult{}, fmt.Errorf("decode register response: %w", err)
		}
	}

	result := ports.RegisterResult{
		AccessToken: data.Token,
		Message:     env.Message,
		// No token on success means the account exists but awaits email
		// confirmation.
		NeedsEmailConfirmation: data.Token == "",
	}
	if data.User != nil {
		profile := data.User.toProfile()
		result.User = &profile
	}

	return result, nil
}

func (c *Client) GetMe(ctx context.Context, accessToken string) (domain.UserProfile, error) {
	body := map[string]string{"token": accessToken}
	env, err := c.call(ctx, "/auth-me", body, accessToken)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get me: %w", err)
	}

	var data struct {
		User wireUser `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return domain.UserProfile{}, fmt.Errorf("decode user response: %w", err)
	}
	if data.User.Email == "" && data.User.ID.String() == "" {
		return domain.UserProfile{}, fmt.Errorf("user response missing identity: %w", domain.ErrInvalidToken)
	}

	return data.User.toProfile(), nil
}

func (c *Client) FindID(ctx context.Context, nickname string) (string, error) {
	env, err := c.call(ctx, "/auth-find-id", map[string]string{"nickname": nickname}, "")
	if err != nil {
		return "", fmt.Errorf("find id: %w", err)
	}
	return env.Message, nil
}

func (c *Client) FindPassword(ctx context.Context, email string) (ports.RecoveryIssue, error) {
	env, err := c.call(ctx, "/auth-find-password", map[string]string{"email": email}, "")
	if err != nil {
		return ports.RecoveryIssue{}, fmt.Errorf("find password: %w", err)
	}

	var data struct {
		Code      string `json:"code"`
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ports.RecoveryIssue{}, fmt.Errorf("decode find password response: %w", err)
	}
	if data.Code == "" || data.Token == "" {
		return ports.RecoveryIssue{}, errors.New("find password response missing code or token")
	}

	ttl := defaultCodeTTL
	if data.ExpiresIn > 0 {
		ttl = time.Duration(data.ExpiresIn) * time.Second
	}

	return ports.RecoveryIssue{
		Code:      data.Code,
		Token:     data.Token,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body := map[string]string{"token": resetToken, "password": newPassword}
	if _, err := c.call(ctx, "/auth-reset-password", body, resetToken); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (c *Client) Withdraw(ctx context.Context, accessToken string) error {
	body := map[string]string{"token": accessToken}
	if _, err := c.call(ctx, "/auth-withdraw", body, accessToken); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, endpoint string, body any, bearer string) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("encode request body: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return envelope{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return envelope{}, fmt.Errorf("%w: %s", domain.ErrInvalidToken, statusMessage(env, resp.StatusCode))
	case resp.StatusCode >= http.StatusInternalServerError:
		return envelope{}, fmt.Errorf("%w: %s", domain.ErrBackendUnavailable, statusMessage(env, resp.StatusCode))
	case decodeErr != nil:
		return envelope{}, fmt.Errorf("decode response: %w", decodeErr)
	case resp.StatusCode >= http.StatusBadRequest || !env.Success:
		return envelope{}, errors.New(statusMessage(env, resp.StatusCode))
	}

	return env, nil
}

func statusMessage(env envelope, status int) string {
	if env.Message != "" {
		return env.Message
	}
	return fmt.Sprintf("backend returned status %d", status)
}
