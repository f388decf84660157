// Package server assembles the HTTP application from configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/qolzam/telar/apps/recaptcha/contact"
	"github.com/qolzam/telar/apps/recaptcha/internal/cache"
	"github.com/qolzam/telar/apps/recaptcha/internal/captcha"
	"github.com/qolzam/telar/apps/recaptcha/internal/metrics"
	"github.com/qolzam/telar/apps/recaptcha/internal/middleware/authjwt"
	"github.com/qolzam/telar/apps/recaptcha/internal/middleware/ratelimit"
	"github.com/qolzam/telar/apps/recaptcha/internal/middleware/requestid"
	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
	"github.com/qolzam/telar/apps/recaptcha/internal/platform/config"
	"github.com/qolzam/telar/apps/recaptcha/internal/platform/email"
	"github.com/qolzam/telar/apps/recaptcha/internal/recaptcha"
	"github.com/qolzam/telar/apps/recaptcha/internal/types"
	"github.com/qolzam/telar/apps/recaptcha/internal/validation"
)

// Options replace collaborators that are otherwise built from configuration.
type Options struct {
	Verifier       recaptcha.Verifier
	Storage        fiber.Storage
	ContactService contact.Service
}

type Server struct {
	App     *fiber.App
	Metrics *metrics.Metrics

	cfg     *config.Config
	storage fiber.Storage
}

// New wires middleware, the captcha rule and the routes.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}
	if cfg.JWT.PublicKey != "" {
		if _, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.JWT.PublicKey)); err != nil {
			return nil, fmt.Errorf("JWT_PUBLIC_KEY: %w", err)
		}
	}

	m := metrics.New()

	verifier := opts.Verifier
	if verifier == nil && cfg.Recaptcha.Enabled {
		v, err := newGoogleVerifier(cfg.Recaptcha)
		if err != nil {
			return nil, err
		}
		verifier = v
	}

	rule := captcha.NewIsTrueValidator(verifier, captcha.Config{
		Enabled:      cfg.Recaptcha.Enabled,
		VerifyHost:   cfg.Recaptcha.VerifyHost,
		FailOpen:     cfg.Recaptcha.FailOpen,
		TrustedRoles: cfg.Recaptcha.TrustedRoles,
	}, captcha.WithAuthorizationChecker(captcha.RoleChecker{}), captcha.WithMetrics(m))

	constraint := captcha.NewIsTrue().WithMessages(cfg.Recaptcha.Message, cfg.Recaptcha.InvalidHostMessage)
	validator, err := validation.New(rule, constraint)
	if err != nil {
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}

	contactSvc := opts.ContactService
	if contactSvc == nil && cfg.Email.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.Email.SMTPHost, strconv.Itoa(cfg.Email.SMTPPort), cfg.Email.SMTPUser, cfg.Email.SMTPPass)
		if err != nil {
			return nil, fmt.Errorf("failed to create SMTP sender: %w", err)
		}
		contactSvc = contact.NewEmailService(sender, cfg.Email.From, cfg.Email.Recipients)
	}

	s := &Server{Metrics: m, cfg: cfg}

	var limiter fiber.Handler
	if cfg.RateLimits.Contact.Enabled {
		s.storage = opts.Storage
		if s.storage == nil {
			s.storage, err = cache.NewStorage(cfg.Cache)
			if err != nil {
				return nil, fmt.Errorf("failed to create rate limit storage: %w", err)
			}
		}
		limiter = ratelimit.NewContactLimiter(ratelimit.Limit{
			MaxRequests:    cfg.RateLimits.Contact.Max,
			WindowDuration: cfg.RateLimits.Contact.Duration,
		}, s.storage)
	}

	s.App = newApp(cfg.Server)

	s.App.Use(requestid.New())
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.WebDomain,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, OPTIONS",
	}))
	if cfg.JWT.PublicKey != "" {
		s.App.Use(authjwt.New(authjwt.Config{
			PublicKey:   cfg.JWT.PublicKey,
			ClaimKey:    authjwt.DefaultClaimKey,
			UserCtxName: types.UserCtxName,
			Optional:    true,
		}))
	}

	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "recaptcha": rule.Enabled()})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	contact.RegisterRoutes(s.App, contact.NewHandler(validator, contactSvc, contact.HandlerConfig{
		SiteKey: cfg.Recaptcha.SiteKey,
		APIHost: cfg.Recaptcha.APIHost,
	}), contact.RouterConfig{Limiter: limiter})

	return s, nil
}

func newGoogleVerifier(cfg config.RecaptchaConfig) (recaptcha.Verifier, error) {
	opts := []recaptcha.GoogleOption{
		recaptcha.WithAPIHost(cfg.APIHost),
		recaptcha.WithTimeout(cfg.Timeout),
	}
	if cfg.ScoreThreshold > 0 {
		opts = append(opts, recaptcha.WithScoreThreshold(cfg.ScoreThreshold))
	}
	if cfg.ExpectedAction != "" {
		opts = append(opts, recaptcha.WithExpectedAction(cfg.ExpectedAction))
	}
	v, err := recaptcha.NewGoogleVerifier(cfg.SecretKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create recaptcha verifier: %w", err)
	}
	return v, nil
}

func newApp(cfg config.ServerConfig) *fiber.App {
	return fiber.New(fiber.Config{
		ProxyHeader:             cfg.ProxyHeader,
		EnableTrustedProxyCheck: len(cfg.TrustedProxies) > 0,
		TrustedProxies:          cfg.TrustedProxies,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			log.ErrorWithContext(c.UserContext(), "[ErrorHandler] Path: %s, Error: %v, Code: %d", c.Path(), err, code)

			// If response already set by handler, don't override it
			if len(c.Response().Body()) > 0 {
				return nil
			}

			return c.Status(code).JSON(fiber.Map{
				"code":    "SYSTEM_ERROR",
				"message": err.Error(),
			})
		},
	})
}

// Listen blocks serving on the configured address.
func (s *Server) Listen() error {
	addr := s.cfg.Server.Addr()
	log.Info("[Server] listening on %s (recaptcha enabled: %t)", addr, s.cfg.Recaptcha.Enabled)
	return s.App.Listen(addr)
}

// Shutdown stops accepting connections and releases the rate limit storage.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.App.ShutdownWithContext(ctx)
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
