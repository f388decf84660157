package contact

import (
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar/apps/recaptcha/internal/captcha"
	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
	"github.com/qolzam/telar/apps/recaptcha/internal/types"
	"github.com/qolzam/telar/apps/recaptcha/internal/validation"
)

var formTemplate = template.Must(template.New("contact").Parse(`<!doctype html>
<html>
<head>
<title>Contact</title>
<script src="https://{{.APIHost}}/recaptcha/api.js" async defer></script>
</head>
<body>
<h1>Contact</h1>
<form method="post">
<input type="text" name="name" placeholder="Name"/>
<input type="email" name="email" placeholder="Email"/>
<textarea name="message" placeholder="Message"></textarea>
{{if .SiteKey}}<div class="g-recaptcha" data-sitekey="{{.SiteKey}}"></div>{{end}}
<button type="submit">Send</button>
</form>
</body>
</html>
`))

type HandlerConfig struct {
	SiteKey string
	// APIHost serves the widget script, e.g. www.google.com or www.recaptcha.net.
	APIHost string
}

type Handler struct {
	validator *validation.Service
	svc       Service
	config    HandlerConfig
}

func NewHandler(v *validation.Service, svc Service, cfg HandlerConfig) *Handler {
	if svc == nil {
		svc = LogService{}
	}
	if cfg.APIHost == "" {
		cfg.APIHost = "www.google.com"
	}
	return &Handler{validator: v, svc: svc, config: cfg}
}

// Form renders the HTML form with the reCAPTCHA widget.
func (h *Handler) Form(c *fiber.Ctx) error {
	c.Type("html")
	return formTemplate.Execute(c.Response().BodyWriter(), h.config)
}

// Submit validates the posted form, captcha included, and hands it to the service.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var model ContactModel
	if err := c.BodyParser(&model); err != nil {
		return HandleInvalidRequestError(c, "Invalid request body")
	}

	ctx := c.UserContext()
	violations, err := h.validator.ValidateStruct(ctx, captcha.FromFiber(c), &model, c.Get(types.HeaderAcceptLanguage))
	if err != nil {
		log.ErrorWithContext(ctx, "[Contact] validation misconfigured: %v", err)
		return HandleSystemError(c)
	}
	if len(violations) > 0 {
		return HandleValidationError(c, violations)
	}

	if err := h.svc.Submit(ctx, model); err != nil {
		log.ErrorWithContext(ctx, "[Contact] submit failed: %v", err)
		return HandleSystemError(c)
	}
	return c.JSON(SuccessResponse{Success: true})
}
