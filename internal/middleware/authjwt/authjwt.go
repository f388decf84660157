package authjwt

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"

	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
	"github.com/qolzam/telar/apps/recaptcha/internal/types"
)

// AccessTokenCookie is the cookie browsers carry the access token in.
const AccessTokenCookie = "access_token"

// DefaultClaimKey is the claim holding the user profile.
const DefaultClaimKey = "claim"

// Config defines the config for the JWT middleware.
type Config struct {
	// The EC public key for validating ES256 tokens.
	PublicKey string
	// The claim key where the UserContext is stored.
	ClaimKey string
	// The context key to store the UserContext.
	UserCtxName string
	// Optional lets requests without a usable token through anonymously
	// instead of answering 401.
	Optional bool
}

// New creates a new middleware handler. It panics when PublicKey is not a
// PEM encoded EC public key.
func New(cfg Config) fiber.Handler {
	ecPublicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.PublicKey))
	if err != nil {
		panic(fmt.Sprintf("failed to parse EC public key: %v", err))
	}
	if cfg.ClaimKey == "" {
		cfg.ClaimKey = DefaultClaimKey
	}
	if cfg.UserCtxName == "" {
		cfg.UserCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			if cfg.Optional {
				return c.Next()
			}
			return unauthorized(c, "Missing or invalid JWT", "")
		}

		userCtx, err := ValidateToken(tokenString, ecPublicKey, cfg.ClaimKey)
		if err != nil {
			if cfg.Optional {
				log.Debug("[AuthJWT] ignoring unusable token: %v", err)
				return c.Next()
			}
			return unauthorized(c, "Invalid token", err.Error())
		}

		c.Locals(cfg.UserCtxName, userCtx)
		return c.Next()
	}
}

// extractToken prefers the bearer header (API clients) over the cookie (browsers).
func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 {
			return parts[1]
		}
	}
	return c.Cookies(AccessTokenCookie)
}

func unauthorized(c *fiber.Ctx, message, details string) error {
	body := fiber.Map{
		"code":    "UNAUTHORIZED",
		"message": message,
	}
	if details != "" {
		body["details"] = details
	}
	return c.Status(fiber.StatusUnauthorized).JSON(body)
}

// ValidateToken verifies an ES256 token against key and maps claimKey to a
// UserContext. It does not touch the response.
func ValidateToken(tokenString string, key *ecdsa.PublicKey, claimKey string) (types.UserContext, error) {
	var userCtx types.UserContext

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// CRITICAL: Enforce the expected signing algorithm.
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return userCtx, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return userCtx, errors.New("invalid token")
	}

	claimData, ok := claims[claimKey].(map[string]interface{})
	if !ok {
		return userCtx, errors.New("invalid token claim format")
	}

	userCtx, err = mapToUserContext(claimData)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user context in token: %w", err)
	}
	return userCtx, nil
}

func mapToUserContext(claimData map[string]interface{}) (types.UserContext, error) {
	var userCtx types.UserContext

	userIDStr, ok := claimData[types.HeaderUID].(string)
	if !ok {
		return userCtx, errors.New("missing or invalid uid in claim")
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user ID: %v", err)
	}
	userCtx.UserID = userID

	if username, ok := claimData["username"].(string); ok {
		userCtx.Username = username
	}
	if displayName, ok := claimData["displayName"].(string); ok {
		userCtx.DisplayName = displayName
	}
	if systemRole, ok := claimData["role"].(string); ok {
		userCtx.SystemRole = systemRole
	}

	// roles arrive as a JSON array
	if roles, ok := claimData["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				userCtx.Roles = append(userCtx.Roles, s)
			}
		}
	}

	return userCtx, nil
}
