package contact

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar/apps/recaptcha/internal/captcha"
)

// Error codes for the contact endpoint
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeSystemError      = "SYSTEM_ERROR"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// HandleValidationError answers 400 with every violation as details. The
// first violation's message becomes the summary.
func HandleValidationError(c *fiber.Ctx, violations []captcha.Violation) error {
	response := ErrorResponse{
		Code:    CodeValidationFailed,
		Message: "Validation failed",
		Details: violations,
	}
	if len(violations) > 0 {
		response.Message = violations[0].Message
	}
	return c.Status(http.StatusBadRequest).JSON(response)
}

// HandleInvalidRequestError handles invalid request errors with 400 Bad Request
func HandleInvalidRequestError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    CodeInvalidRequest,
		Message: message,
	})
}

// HandleSystemError hides err from the caller.
func HandleSystemError(c *fiber.Ctx) error {
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		Code:    CodeSystemError,
		Message: "An unexpected error occurred",
	})
}
