package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// JWTConfig is a valid token configuration for tests.
func JWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-access-secret-0123456789abcdef",
		RefreshSecret:   "test-refresh-secret-0123456789abcdef",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "complaintdesk-test",
	}
}

// NewApp returns a fiber app wired with the production error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: apperr.Handler(zap.NewNop(), false)})
}

// Response is a decoded JSON response.
type Response struct {
	Status int
	Body   map[string]any
	Raw    []byte
}

// ErrorCode returns error.code of an error envelope, or "".
func (r Response) ErrorCode() string {
	e, ok := r.Body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}

// Do sends a request with an optional JSON body and bearer token.
func Do(t *testing.T, app *fiber.App, method, path string, body any, token string) Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := Response{Status: resp.StatusCode, Raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

// DecodeArray decodes a JSON array response body.
func DecodeArray(t *testing.T, r Response) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(r.Raw, &out))
	return out
}

