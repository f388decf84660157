package authjwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/recaptcha/internal/testutil"
	"github.com/qolzam/telar/apps/recaptcha/internal/types"
)

func newApp(t *testing.T, publicKey string, optional bool) *testutil.HTTPHelper {
	t.Helper()
	app := fiber.New()
	app.Use(New(Config{PublicKey: publicKey, Optional: optional}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		user, ok := c.Locals(types.UserCtxName).(types.UserContext)
		if !ok {
			return c.JSON(fiber.Map{"anonymous": true})
		}
		return c.JSON(fiber.Map{"uid": user.UserID.String(), "roles": user.GrantedRoles()})
	})
	return testutil.NewHTTPHelper(t, app)
}

func testUser() types.UserContext {
	return types.UserContext{
		UserID:     uuid.Must(uuid.NewV4()),
		Username:   "test@example.com",
		SystemRole: types.AdminRole,
		Roles:      []string{"moderator"},
	}
}

func TestAuthJWT_ValidBearer(t *testing.T) {
	pub, priv := testutil.GenerateECDSAKeyPairPEM(t)
	h := newApp(t, pub, false)
	user := testUser()

	token, err := testutil.GenerateTestJWT(priv, user, time.Hour)
	require.NoError(t, err)

	resp := h.NewRequest(http.MethodGet, "/whoami", nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UID   string   `json:"uid"`
		Roles []string `json:"roles"`
	}
	testutil.DecodeJSON(t, resp, &body)
	require.Equal(t, user.UserID.String(), body.UID)
	require.Equal(t, []string{types.AdminRole, "moderator"}, body.Roles)
}

func TestAuthJWT_Cookie(t *testing.T) {
	pub, priv := testutil.GenerateECDSAKeyPairPEM(t)
	h := newApp(t, pub, false)

	token, err := testutil.GenerateTestJWT(priv, testUser(), time.Hour)
	require.NoError(t, err)

	resp := h.NewRequest(http.MethodGet, "/whoami", nil).WithCookieAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthJWT_Required(t *testing.T) {
	pub, priv := testutil.GenerateECDSAKeyPairPEM(t)
	_, otherPriv := testutil.GenerateECDSAKeyPairPEM(t)
	h := newApp(t, pub, false)

	expired, err := testutil.GenerateTestJWT(priv, testUser(), -time.Minute)
	require.NoError(t, err)
	foreign, err := testutil.GenerateTestJWT(otherPriv, testUser(), time.Hour)
	require.NoError(t, err)

	resp := h.NewRequest(http.MethodGet, "/whoami", nil).Send()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.NewRequest(http.MethodGet, "/whoami", nil).WithJWTAuth(expired).Send()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.NewRequest(http.MethodGet, "/whoami", nil).WithJWTAuth(foreign).Send()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthJWT_Optional(t *testing.T) {
	pub, priv := testutil.GenerateECDSAKeyPairPEM(t)
	h := newApp(t, pub, true)

	expired, err := testutil.GenerateTestJWT(priv, testUser(), -time.Minute)
	require.NoError(t, err)

	for _, req := range []*testutil.Request{
		h.NewRequest(http.MethodGet, "/whoami", nil),
		h.NewRequest(http.MethodGet, "/whoami", nil).WithJWTAuth(expired),
		h.NewRequest(http.MethodGet, "/whoami", nil).WithJWTAuth("garbage"),
	} {
		resp := req.Send()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]interface{}
		testutil.DecodeJSON(t, resp, &body)
		require.Equal(t, true, body["anonymous"])
	}
}

func TestNew_PanicsOnBadKey(t *testing.T) {
	require.Panics(t, func() { New(Config{PublicKey: "not a key"}) })
}

func TestValidateToken_RejectsOtherECDSAAlgorithms(t *testing.T) {
	t.Parallel()

	pub, _ := testutil.GenerateECDSAKeyPairPEM(t)
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(pub))
	require.NoError(t, err)

	other, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodES384, jwt.MapClaims{
		"exp":   time.Now().Add(time.Hour).Unix(),
		"claim": map[string]interface{}{"uid": uuid.Must(uuid.NewV4()).String()},
	}).SignedString(other)
	require.NoError(t, err)

	_, err = ValidateToken(token, key, "claim")
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	require.ErrorContains(t, err, "signing method ES384 is invalid")
}
