package captcha

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
)

// Middleware rejects requests whose submitted token fails the rule. It reads
// the token from the ResponseField form value only.
func Middleware(v *IsTrueValidator, constraint IsTrue) fiber.Handler {
	return func(c *fiber.Ctx) error {
		violation, err := v.Validate(c.UserContext(), FromFiber(c), "", constraint)
		if err != nil {
			log.ErrorWithContext(c.UserContext(), "[Captcha] %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"code":    "SYSTEM_ERROR",
				"message": "captcha validation is misconfigured",
			})
		}
		if violation != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":    "VALIDATION_FAILED",
				"message": violation.Message,
				"details": []*Violation{violation},
			})
		}
		return c.Next()
	}
}
