package contact

import "github.com/gofiber/fiber/v2"

// RouterConfig holds the middleware placed in front of the submission route.
type RouterConfig struct {
	// Limiter throttles submissions; nil disables it.
	Limiter fiber.Handler
}

// RegisterRoutes mounts GET and POST /contact.
func RegisterRoutes(app fiber.Router, h *Handler, cfg RouterConfig) {
	app.Get("/contact", h.Form)

	handlers := []fiber.Handler{}
	if cfg.Limiter != nil {
		handlers = append(handlers, cfg.Limiter)
	}
	handlers = append(handlers, h.Submit)
	app.Post("/contact", handlers...)
}
