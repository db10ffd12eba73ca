package poshttp

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options extras del servidor local.
type Options struct {
	Middleware []fiber.Handler // p. ej. métricas
	Metrics    fiber.Handler   // GET /metrics; nil = sin endpoint
}

// New arma la app Fiber de la caja.
func New(h *Handler, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "nordia-pos", DisableStartupMessage: true})
	app.Use(recover.New())
	for _, m := range opts.Middleware {
		app.Use(m)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "pos"})
	})
	if opts.Metrics != nil {
		app.Get("/metrics", opts.Metrics)
	}

	api := app.Group("/api")
	api.Post("/scan", h.Scan)

	api.Get("/pending", h.Pending)
	api.Post("/pending/:barcode", h.Complete)
	api.Delete("/pending/:barcode", h.CancelPending)

	api.Get("/cart", h.Cart)
	api.Delete("/cart", h.ClearCart)
	api.Put("/cart/items/:id", h.UpdateQuantity)
	api.Delete("/cart/items/:id", h.RemoveItem)

	api.Post("/checkout", h.Checkout)
	api.Get("/sales", h.Sales)
	api.Get("/sales/:id/receipt", h.Receipt)

	api.Get("/sync", h.SyncStatus)
	api.Post("/sync", h.Sync)
	api.Get("/sync/dead-letter", h.DeadLetter)
	api.Post("/sync/dead-letter/:id/requeue", h.Requeue)

	api.Get("/storage", h.Stats)
	return app
}
