package recaptcha

import (
	"context"
	"errors"
	"time"
)

// Verifier is the interface that wraps the basic Recaptcha verification method.
type Verifier interface {
	// Verify checks token for the client at remoteIP. A nil error with
	// Response.Success false means the token was rejected; a non-nil error
	// means the service could not be asked.
	Verify(ctx context.Context, token, remoteIP string) (*Response, error)
}

// Response is the outcome of one verification. It is produced per request
// and never stored.
type Response struct {
	Success        bool
	Hostname       string
	ChallengeTS    time.Time
	APKPackageName string
	Score          float64
	Action         string
	ErrorCodes     []string
}

// Error codes returned by the siteverify API or added by client-side checks.
const (
	ErrCodeMissingInputSecret   = "missing-input-secret"
	ErrCodeInvalidInputSecret   = "invalid-input-secret"
	ErrCodeMissingInputResponse = "missing-input-response"
	ErrCodeInvalidInputResponse = "invalid-input-response"
	ErrCodeBadRequest           = "bad-request"
	ErrCodeTimeoutOrDuplicate   = "timeout-or-duplicate"
	ErrCodeHostnameMismatch     = "hostname-mismatch"
	ErrCodeActionMismatch       = "action-mismatch"
	ErrCodeScoreThresholdNotMet = "score-threshold-not-met"
	ErrCodeChallengeTimeout     = "challenge-timeout"
)

var (
	ErrConnectionFailed = errors.New("recaptcha: connection failed")
	ErrBadResponse      = errors.New("recaptcha: bad response")
	ErrInvalidJSON      = errors.New("recaptcha: invalid json")
)

// HasErrorCode reports whether code is among the response's error codes.
func (r *Response) HasErrorCode(code string) bool {
	if r == nil {
		return false
	}
	for _, c := range r.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}
