package captcha

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qolzam/telar/apps/recaptcha/internal/metrics"
	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
	"github.com/qolzam/telar/apps/recaptcha/internal/recaptcha"
)

var (
	ErrNoRequest  = errors.New("captcha: no current request")
	ErrNoVerifier = errors.New("captcha: no verifier configured")
)

// Config holds the rule toggles.
type Config struct {
	// Enabled false makes every value valid.
	Enabled bool
	// VerifyHost requires the solved hostname to equal the request host.
	VerifyHost bool
	// FailOpen accepts the value when the verification service cannot be reached.
	FailOpen bool
	// TrustedRoles skip the check entirely for callers holding any of them.
	TrustedRoles []string
}

// IsTrueValidator checks IsTrue constraints against the verification service.
type IsTrueValidator struct {
	cfg      Config
	verifier recaptcha.Verifier
	authz    AuthorizationChecker
	metrics  *metrics.Metrics
}

// Option customizes an IsTrueValidator.
type Option func(*IsTrueValidator)

// WithAuthorizationChecker enables the trusted-role bypass.
func WithAuthorizationChecker(c AuthorizationChecker) Option {
	return func(v *IsTrueValidator) { v.authz = c }
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *IsTrueValidator) { v.metrics = m }
}

// NewIsTrueValidator creates the rule around verifier.
func NewIsTrueValidator(verifier recaptcha.Verifier, cfg Config, opts ...Option) *IsTrueValidator {
	v := &IsTrueValidator{
		cfg:      cfg,
		verifier: verifier,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Enabled reports whether the rule performs any check.
func (v *IsTrueValidator) Enabled() bool {
	return v.cfg.Enabled
}

// Validate checks value, the submitted token, for the current request. The
// token posted under ResponseField takes precedence over value; an empty
// posted field counts as absent, since form lookups cannot tell them apart. A nil
// violation means the value is valid; errors signal misuse, never a failed
// captcha.
func (v *IsTrueValidator) Validate(ctx context.Context, req Request, value string, constraint IsTrue) (*Violation, error) {
	if !v.cfg.Enabled {
		v.metrics.ObserveValidation(metrics.OutcomeDisabled)
		return nil, nil
	}
	if req == nil {
		return nil, ErrNoRequest
	}

	if v.isTrusted(req) {
		log.Debug("[Captcha] trusted role bypass for %s", req.ClientIP())
		v.metrics.ObserveValidation(metrics.OutcomeBypassed)
		return nil, nil
	}

	if v.verifier == nil {
		return nil, ErrNoVerifier
	}

	remoteIP := req.ClientIP()
	answer := req.FormValue(ResponseField)
	if answer == "" {
		answer = value
	}

	start := time.Now()
	resp, err := v.verifier.Verify(ctx, answer, remoteIP)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		v.metrics.ObserveVerifierCall("error", elapsed)
		if v.cfg.FailOpen {
			log.WarnWithContext(ctx, "[Captcha] verification unavailable, accepting (fail-open): %v", err)
			v.metrics.ObserveValidation(metrics.OutcomeFailOpen)
			return nil, nil
		}
		log.WarnWithContext(ctx, "[Captcha] verification unavailable, rejecting: %v", err)
		v.metrics.ObserveValidation(metrics.OutcomeFailure)
		return constraint.violation(IsTrueErrorCode), nil
	}
	v.metrics.ObserveVerifierCall("ok", elapsed)

	if resp == nil || !resp.Success {
		if resp != nil {
			log.Debug("[Captcha] token rejected for %s: %s", remoteIP, strings.Join(resp.ErrorCodes, ","))
		}
		v.metrics.ObserveValidation(metrics.OutcomeFailure)
		return constraint.violation(IsTrueErrorCode), nil
	}

	if v.cfg.VerifyHost && !strings.EqualFold(resp.Hostname, req.Host()) {
		log.WarnWithContext(ctx, "[Captcha] solved on %q but requested on %q", resp.Hostname, req.Host())
		v.metrics.ObserveValidation(metrics.OutcomeHostMismatch)
		return constraint.violation(InvalidHostErrorCode), nil
	}

	v.metrics.ObserveValidation(metrics.OutcomeSuccess)
	return nil, nil
}

func (v *IsTrueValidator) isTrusted(req Request) bool {
	return v.authz != nil &&
		len(v.cfg.TrustedRoles) > 0 &&
		v.authz.IsGranted(req, v.cfg.TrustedRoles)
}
