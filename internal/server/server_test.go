package server

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/recaptcha/internal/cache"
	"github.com/qolzam/telar/apps/recaptcha/internal/captcha"
	"github.com/qolzam/telar/apps/recaptcha/internal/middleware/requestid"
	"github.com/qolzam/telar/apps/recaptcha/internal/platform/config"
	"github.com/qolzam/telar/apps/recaptcha/internal/testutil"
	"github.com/qolzam/telar/apps/recaptcha/internal/types"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	base := map[string]string{
		"RECAPTCHA_KEY":          "secret",
		"RECAPTCHA_SITE_KEY":     "site",
		"RATE_LIMIT_CONTACT_MAX": "2",
	}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.LoadFromMap(base)
	require.NoError(t, err)
	return cfg
}

func contactForm() url.Values {
	return url.Values{
		"name":                {"Ada"},
		"email":               {"ada@example.com"},
		"message":             {"hello"},
		captcha.ResponseField: {"tok"},
	}
}

func TestServer_HealthAndRequestID(t *testing.T) {
	s, err := New(loadConfig(t, nil), Options{Verifier: &testutil.FakeRecaptchaVerifier{ShouldSucceed: true}})
	require.NoError(t, err)

	resp := testutil.NewHTTPHelper(t, s.App).NewRequest(http.MethodGet, "/health", nil).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(requestid.HeaderRequestID))

	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, true, body["recaptcha"])
}

func TestServer_ContactFlowAndMetrics(t *testing.T) {
	fake := &testutil.FakeRecaptchaVerifier{ShouldSucceed: true}
	s, err := New(loadConfig(t, nil), Options{Verifier: fake})
	require.NoError(t, err)
	h := testutil.NewHTTPHelper(t, s.App)

	resp := h.NewRequest(http.MethodPost, "/contact", nil).AsForm(contactForm()).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fake.ShouldSucceed = false
	resp = h.NewRequest(http.MethodPost, "/contact", nil).AsForm(contactForm()).Send()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// RATE_LIMIT_CONTACT_MAX=2
	resp = h.NewRequest(http.MethodPost, "/contact", nil).AsForm(contactForm()).Send()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = h.NewRequest(http.MethodGet, "/metrics", nil).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `recaptcha_validations_total{outcome="success"} 1`)
	require.Contains(t, string(body), `recaptcha_validations_total{outcome="failure"} 1`)
}

func TestServer_ConfiguredMessage(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"RECAPTCHA_MESSAGE": "Please solve the captcha."})
	s, err := New(cfg, Options{Verifier: &testutil.FakeRecaptchaVerifier{}})
	require.NoError(t, err)

	resp := testutil.NewHTTPHelper(t, s.App).NewRequest(http.MethodPost, "/contact", nil).AsForm(contactForm()).Send()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Message string `json:"message"`
	}
	testutil.DecodeJSON(t, resp, &body)
	require.Equal(t, "Please solve the captcha.", body.Message)
}

func TestServer_TrustedRoleFromJWT(t *testing.T) {
	pub, priv := testutil.GenerateECDSAKeyPairPEM(t)
	cfg := loadConfig(t, map[string]string{
		"JWT_PUBLIC_KEY":          pub,
		"RECAPTCHA_TRUSTED_ROLES": "admin,moderator",
	})
	fake := &testutil.FakeRecaptchaVerifier{}
	s, err := New(cfg, Options{Verifier: fake})
	require.NoError(t, err)

	token, err := testutil.GenerateTestJWT(priv, types.UserContext{
		UserID: uuid.Must(uuid.NewV4()),
		Roles:  []string{"moderator"},
	}, time.Hour)
	require.NoError(t, err)

	resp := testutil.NewHTTPHelper(t, s.App).NewRequest(http.MethodPost, "/contact", nil).
		AsForm(contactForm()).
		WithCookieAuth(token).
		Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, fake.Calls())
}

func TestServer_Disabled(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"RECAPTCHA_ENABLED": "false", "RECAPTCHA_KEY": ""})
	s, err := New(cfg, Options{})
	require.NoError(t, err)

	resp := testutil.NewHTTPHelper(t, s.App).NewRequest(http.MethodPost, "/contact", nil).AsForm(contactForm()).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Errors(t *testing.T) {
	_, err := New(nil, Options{})
	require.Error(t, err)

	cfg := loadConfig(t, map[string]string{"JWT_PUBLIC_KEY": "not a pem"})
	_, err = New(cfg, Options{Verifier: &testutil.FakeRecaptchaVerifier{}})
	require.ErrorContains(t, err, "JWT_PUBLIC_KEY")
}

func TestServer_ShutdownClosesStorage(t *testing.T) {
	store := cache.NewMemoryStorage("")
	s, err := New(loadConfig(t, nil), Options{Verifier: &testutil.FakeRecaptchaVerifier{}, Storage: store})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = store.Get("k")
	require.ErrorIs(t, err, cache.ErrCacheClosed)
}

func TestServer_EmailRelayConfigured(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"SMTP_HOST":          "smtp.example.com",
		"CONTACT_RECIPIENTS": "inbox@example.com",
	})
	s, err := New(cfg, Options{Verifier: &testutil.FakeRecaptchaVerifier{}})
	require.NoError(t, err)
	require.NotNil(t, s.App)
}
