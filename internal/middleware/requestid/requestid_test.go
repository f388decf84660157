package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
)

func newApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(New())
	app.Get("/", func(c *fiber.Ctx) error {
		*seen = log.RequestID(c.UserContext())
		return c.SendString(GetRequestID(c))
	})
	return app
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	app := newApp(&seen)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	id := resp.Header.Get(HeaderRequestID)
	require.Len(t, id, 36)
	require.Equal(t, id, seen)
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	app := newApp(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)

	require.Equal(t, "abc-123", resp.Header.Get(HeaderRequestID))
	require.Equal(t, "abc-123", seen)
}
