// Package captcha implements the reCAPTCHA "is true" validation rule: a
// submitted response token must be confirmed by the verification service,
// optionally for the host that served the form.
package captcha

import "fmt"

// ResponseField is the form field the reCAPTCHA widget submits.
const ResponseField = "g-recaptcha-response"

// Violation codes.
const (
	IsTrueErrorCode      = "IS_TRUE_ERROR"
	InvalidHostErrorCode = "INVALID_HOST_ERROR"
)

const (
	DefaultMessage            = "This value is not a valid captcha."
	DefaultInvalidHostMessage = "The captcha was not resolved on the right domain."
)

// IsTrue is the constraint: it carries the messages reported on failure.
type IsTrue struct {
	Message            string
	InvalidHostMessage string
}

// NewIsTrue returns the constraint with the default messages.
func NewIsTrue() IsTrue {
	return IsTrue{
		Message:            DefaultMessage,
		InvalidHostMessage: DefaultInvalidHostMessage,
	}
}

// WithMessages returns a copy with non-empty overrides applied.
func (c IsTrue) WithMessages(message, invalidHostMessage string) IsTrue {
	if message != "" {
		c.Message = message
	}
	if invalidHostMessage != "" {
		c.InvalidHostMessage = invalidHostMessage
	}
	return c
}

func (c IsTrue) violation(code string) *Violation {
	v := &Violation{Code: code, Field: ResponseField}
	switch code {
	case InvalidHostErrorCode:
		v.Message = c.InvalidHostMessage
		if v.Message == "" {
			v.Message = DefaultInvalidHostMessage
		}
	default:
		v.Message = c.Message
		if v.Message == "" {
			v.Message = DefaultMessage
		}
	}
	return v
}

// Violation is a failed check attached to the validated field.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}
