package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/services"
	"github.com/domainbrowser/searchjobs/internal/types"
)

func newAdminApp(t *testing.T, token string) *fiber.App {
	t.Helper()
	store, err := jobstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	admin := NewAdminHandler(services.NewReaperService(services.ReaperOptions{Store: store}), token)
	app := fiber.New()
	app.Post("/admin/cleanup", admin.Cleanup)
	return app
}

func cleanup(t *testing.T, app *fiber.App, auth string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/cleanup", nil)
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestCleanup_Disabled(t *testing.T) {
	code, _ := cleanup(t, newAdminApp(t, ""), "Bearer anything")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
}

func TestCleanup_Unauthorized(t *testing.T) {
	app := newAdminApp(t, "s3cret")
	for _, auth := range []string{"", "s3cret", "Bearer wrong", "Basic s3cret", "Bearer s3cret-and-more"} {
		code, _ := cleanup(t, app, auth)
		assert.Equal(t, fiber.StatusUnauthorized, code, auth)
	}
}

func TestCleanup_Authorized(t *testing.T) {
	code, raw := cleanup(t, newAdminApp(t, "s3cret"), "Bearer s3cret")
	require.Equal(t, fiber.StatusOK, code, string(raw))

	var body struct {
		Slug types.Slug          `json:"slug"`
		Data types.CleanupReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, types.SuccessSlug, body.Slug)
	assert.Equal(t, 0, body.Data.JobsScanned)
	assert.False(t, body.Data.StartedAt.IsZero())
}
