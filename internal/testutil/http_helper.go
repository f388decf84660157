package testutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/recaptcha/internal/types"
)

// HTTPHelper provides a robust way to make HTTP requests in tests.
// It enforces error checking and provides a fluent API for building requests.
type HTTPHelper struct {
	t   *testing.T
	app *fiber.App
}

// NewHTTPHelper creates a new test helper for a given Fiber app.
func NewHTTPHelper(t *testing.T, app *fiber.App) *HTTPHelper {
	require.NotNil(t, app, "Fiber app provided to HTTPHelper cannot be nil")
	return &HTTPHelper{
		t:   t,
		app: app,
	}
}

// Request represents a test request under construction.
type Request struct {
	helper     *HTTPHelper
	method     string
	path       string
	bodyReader io.Reader
	headers    http.Header
}

// NewRequest begins building a new test request. Non-string bodies are sent as JSON.
func (h *HTTPHelper) NewRequest(method, path string, body interface{}) *Request {
	var bodyBytes []byte
	if body != nil {
		switch b := body.(type) {
		case []byte:
			bodyBytes = b
		case string:
			bodyBytes = []byte(b)
		default:
			jsonBytes, err := json.Marshal(body)
			require.NoError(h.t, err, "Failed to marshal request body to JSON")
			bodyBytes = jsonBytes
		}
	}

	req := &Request{
		helper:     h,
		method:     method,
		path:       path,
		bodyReader: bytes.NewReader(bodyBytes),
		headers:    make(http.Header),
	}
	if body != nil {
		req.WithHeader(types.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return req
}

// AsForm replaces the body with url-encoded form values.
func (r *Request) AsForm(values url.Values) *Request {
	r.bodyReader = bytes.NewReader([]byte(values.Encode()))
	r.headers.Set(types.HeaderContentType, fiber.MIMEApplicationForm)
	return r
}

// WithHeader adds a header to the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.headers.Add(key, value)
	return r
}

// WithJWTAuth adds token as an Authorization: Bearer header.
func (r *Request) WithJWTAuth(token string) *Request {
	r.WithHeader(types.HeaderAuthorization, types.BearerPrefix+token)
	return r
}

// WithCookieAuth sends token the way browsers do.
func (r *Request) WithCookieAuth(token string) *Request {
	r.WithHeader("Cookie", (&http.Cookie{Name: "access_token", Value: token}).String())
	return r
}

// Send executes the request and returns the response.
func (r *Request) Send() *http.Response {
	req := httptest.NewRequest(r.method, r.path, r.bodyReader)
	for k, v := range r.headers {
		req.Header[k] = v
	}

	// Use a reasonable default timeout to prevent tests from hanging.
	resp, err := r.helper.app.Test(req, int(10*time.Second.Milliseconds()))
	require.NoError(r.helper.t, err, "app.Test should not return an error")
	require.NotNil(r.helper.t, resp, "app.Test response should not be nil")

	return resp
}

// DecodeJSON reads resp's body into out.
func DecodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// GenerateECDSAKeyPairPEM generates a P-256 key pair for signing test tokens.
// Returns (publicKeyPEM, privateKeyPEM) as strings.
func GenerateECDSAKeyPairPEM(t *testing.T) (string, string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate ECDSA private key")

	// Use PKCS8 format for private key
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err, "Failed to marshal ECDSA private key")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	// Use PKIX format for public key
	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err, "Failed to marshal ECDSA public key")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return string(pubPEM), string(privPEM)
}

// GenerateTestJWT signs an ES256 token carrying userCtx under the "claim" key.
// A negative ttl yields an expired token.
func GenerateTestJWT(privateKeyPEM string, userCtx types.UserContext, ttl time.Duration) (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("failed to parse test private key: %w", err)
	}

	roles := make([]interface{}, 0, len(userCtx.Roles))
	for _, r := range userCtx.Roles {
		roles = append(roles, r)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"claim": map[string]interface{}{
			types.HeaderUID: userCtx.UserID.String(),
			"username":      userCtx.Username,
			"displayName":   userCtx.DisplayName,
			"role":          userCtx.SystemRole,
			"roles":         roles,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to generate test JWT: %w", err)
	}
	return token, nil
}
