package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	backend := newAuthBackend(t)
	defer backend.Close()

	stdout, stderr, err := runPetauth(t, binaryPath, home, backend.URL, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "status: logged out")

	stdout, stderr, err = runPetauth(t, binaryPath, home, backend.URL,
		"login", "password", "--email", "user@example.com", "--password", "hunter22")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Welcome back")

	stdout, stderr, err = runPetauth(t, binaryPath, home, backend.URL, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "status: logged in")
	assert.Contains(t, stdout, "user@example.com")

	stdout, stderr, err = runPetauth(t, binaryPath, home, backend.URL,
		"callback", "petconstitution://auth/callback#access_token=valid-token&refresh_token=rt")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "home screen")

	stdout, stderr, err = runPetauth(t, binaryPath, home, backend.URL, "logout")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Signed out.")

	stdout, stderr, err = runPetauth(t, binaryPath, home, backend.URL, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "status: logged out")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "petauth-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/petauth")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build petauth binary: %s", string(output))
	return binaryPath
}

func runPetauth(t *testing.T, binaryPath, home, backendURL string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"PETAUTH_API_BASE_URL="+backendURL,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func newAuthBackend(t *testing.T) *httptest.Server {
	t.Helper()

	user := map[string]any{
		"id":         "u1",
		"email":      "user@example.com",
		"name":       "mochi",
		"created_at": "2024-01-01T00:00:00Z",
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/auth-login":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"token":         "valid-token",
					"refresh_token": "rt",
					"user":          user,
				},
			})
		case "/auth-me":
			if r.Header.Get("Authorization") != "Bearer valid-token" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "invalid token"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"user": user},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "unknown endpoint"})
		}
	}))
}
