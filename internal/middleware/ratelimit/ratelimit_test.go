package ratelimit

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/recaptcha/internal/cache"
	"github.com/qolzam/telar/apps/recaptcha/internal/types"
)

func newApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(handler)
	app.Post("/contact", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func post(t *testing.T, app *fiber.App, remoteAddr string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/contact", strings.NewReader("{}"))
	req.Header.Set(types.HeaderContentType, "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRateLimit_ContactDefaults(t *testing.T) {
	app := newApp(NewContactLimiter(Limit{}, nil))

	for i := 0; i < 10; i++ {
		status, _ := post(t, app, "")
		assert.Equal(t, 200, status)
	}

	status, body := post(t, app, "")
	assert.Equal(t, 429, status)
	assert.Contains(t, body, "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, body, "contact")
	assert.Contains(t, body, `"retryAfter":3600`)
}

func TestRateLimit_CustomLimits_AppliedCorrectly(t *testing.T) {
	app := newApp(NewContactLimiter(Limit{MaxRequests: 2, WindowDuration: time.Minute}, nil))

	for i := 0; i < 2; i++ {
		status, _ := post(t, app, "")
		assert.Equal(t, 200, status)
	}
	status, body := post(t, app, "")
	assert.Equal(t, 429, status)
	assert.Contains(t, body, `"retryAfter":60`)
}

func TestRateLimit_UsesProvidedStorage(t *testing.T) {
	store := cache.NewMemoryStorage("rl:")
	app := newApp(NewContactLimiter(Limit{MaxRequests: 1, WindowDuration: time.Minute}, store))

	status, _ := post(t, app, "")
	assert.Equal(t, 200, status)
	status, _ = post(t, app, "")
	assert.Equal(t, 429, status)

	// clearing the shared store resets the budget
	require.NoError(t, store.Reset())
	status, _ = post(t, app, "")
	assert.Equal(t, 200, status)
}

func TestRateLimit_Next_SkipsLimiter(t *testing.T) {
	app := newApp(New(Config{
		Name:  "contact",
		Limit: Limit{MaxRequests: 1, WindowDuration: time.Minute},
		Next:  func(c *fiber.Ctx) bool { return c.Get("X-Skip") == "1" },
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/contact", nil)
		req.Header.Set("X-Skip", "1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestRateLimit_DefaultConfiguration(t *testing.T) {
	cfg := configDefault(Config{})
	assert.Equal(t, "request", cfg.Name)
	assert.Equal(t, DefaultContactLimit(), cfg.Limit)
	assert.NotNil(t, cfg.KeyGenerator)
	assert.NotNil(t, cfg.LimitReached)
}
