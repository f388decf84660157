// Package ratelimit provides per-IP rate limiting for form endpoints.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
)

// Limit is a request budget over a fixed window.
type Limit struct {
	MaxRequests    int
	WindowDuration time.Duration
}

// DefaultContactLimit allows 10 contact submissions per hour per IP.
func DefaultContactLimit() Limit {
	return Limit{MaxRequests: 10, WindowDuration: time.Hour}
}

// Config holds the configuration for rate limiting middleware
type Config struct {
	// Name appears in logs and the error message, e.g. "contact".
	Name string

	// Limit is applied per key. Zero values take DefaultContactLimit.
	Limit Limit

	// Storage keeps counters outside the process, e.g. Redis. Nil uses
	// Fiber's in-memory store.
	Storage fiber.Storage

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// Custom key generator (optional - uses default IP-based if not provided)
	KeyGenerator func(c *fiber.Ctx) string

	// LimitReached defines the response when rate limit is exceeded
	LimitReached func(c *fiber.Ctx) error
}

func configDefault(config Config) Config {
	if config.Name == "" {
		config.Name = "request"
	}
	def := DefaultContactLimit()
	if config.Limit.MaxRequests <= 0 {
		config.Limit.MaxRequests = def.MaxRequests
	}
	if config.Limit.WindowDuration <= 0 {
		config.Limit.WindowDuration = def.WindowDuration
	}

	// rate limit by IP + endpoint path
	if config.KeyGenerator == nil {
		config.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Path()
		}
	}

	if config.LimitReached == nil {
		name := config.Name
		window := config.Limit.WindowDuration
		config.LimitReached = func(c *fiber.Ctx) error {
			log.WarnWithContext(c.UserContext(), "[RateLimit] Rate limit exceeded for %s from IP: %s", name, c.IP())

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":      "Rate limit exceeded",
				"code":       "RATE_LIMIT_EXCEEDED",
				"message":    fmt.Sprintf("Too many %s attempts. Please try again later.", name),
				"retryAfter": int(window.Seconds()),
			})
		}
	}

	return config
}

// New creates a new rate limiting middleware handler
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	return limiter.New(limiter.Config{
		Max:          cfg.Limit.MaxRequests,
		Expiration:   cfg.Limit.WindowDuration,
		KeyGenerator: cfg.KeyGenerator,
		LimitReached: cfg.LimitReached,
		Next:         cfg.Next,
		Storage:      cfg.Storage,
	})
}

// NewContactLimiter limits contact form submissions.
func NewContactLimiter(limit Limit, storage fiber.Storage) fiber.Handler {
	return New(Config{
		Name:    "contact",
		Limit:   limit,
		Storage: storage,
	})
}
