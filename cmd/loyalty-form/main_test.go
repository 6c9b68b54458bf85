// ABOUTME: Tests for the CLI subcommands and the colorized log handler

package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/loyalty-form/internal/auth"
	"github.com/2389/loyalty-form/internal/config"
)

const testSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "loyalty-form dev\n", out)
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:3000"
auth:
  jwt_secret: "`+testSecret+`"
`)

	tests := []struct {
		name  string
		extra []string
	}{
		{"flat", nil},
		{"nested", []string{"--nested"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", path, "token",
				"--user-id", "42", "--evse-id", "171", "--first-name", "Ann", "--evse-reference", "FR*3864"}, tt.extra...)
			out, err := run(t, "", args...)
			require.NoError(t, err)

			prefix := "http://localhost:3000/?payload="
			require.True(t, strings.HasPrefix(out, prefix), out)
			token := strings.TrimSpace(strings.TrimPrefix(out, prefix))

			decoder := auth.NewDecoder(nil, auth.DefaultStrategies(testSecret, true)...)
			decoded, err := decoder.Decode(token)
			require.NoError(t, err)

			assert.Equal(t, auth.SessionContext{
				UserID:        "42",
				EVSEID:        "171",
				FirstName:     "Ann",
				EVSEReference: "FR*3864",
			}, auth.Normalize(decoded.Claims))
		})
	}
}

func TestTokenCommand_BaseURL(t *testing.T) {
	path := writeConfig(t, "branding:\n  public_url: \"https://form.example.com/\"\n")

	out, err := run(t, "", "--config", path, "token", "--user-id", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "https://form.example.com/?payload="), out)

	out, err = run(t, "", "--config", path, "token", "--base-url", "http://10.0.0.5:3000")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "http://10.0.0.5:3000/?payload="), out)
}

func TestHashPasswordCommand(t *testing.T) {
	out, err := run(t, "s3cret\n", "hash-password", "--cost", "4")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestHealthCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	path := writeConfig(t, "server:\n  http_addr: \""+strings.TrimPrefix(srv.URL, "http://")+"\"\n")

	out, err := run(t, "", "--config", path, "health")
	require.NoError(t, err)
	assert.Equal(t, "healthy\n", out)

	_, err = run(t, "", "--config", path, "health", "--ready")
	assert.ErrorContains(t, err, "503")
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "component", "test")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"component":"test"`)
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug"}, &buf)

	logger.With("component", "gateway").WithGroup("req").Debug("request", "status", 200)

	line := buf.String()
	assert.Contains(t, line, "DBG request")
	assert.Contains(t, line, "component=gateway")
	assert.Contains(t, line, "req.status=200")

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
