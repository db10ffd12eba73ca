package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nordia-pos/internal/application/auth"
	"github.com/jhoicas/nordia-pos/internal/application/usecase"
	"github.com/jhoicas/nordia-pos/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC *usecase.ProductUseCase
	SaleUC    *usecase.SaleUseCase
	AuthUC    *auth.TerminalAuthUseCase
	Receipts  ReceiptGenerator
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/terminal", authHandler.Terminal)

	// Rutas protegidas (requieren Bearer Token de terminal u operador)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole(jwt.RoleTerminal, jwt.RoleAdmin))

	// Products: las rutas fijas antes de /:id
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Post("/", productHandler.Upsert)
	products.Get("/search", productHandler.Search)
	products.Get("/barcode/:code", productHandler.GetByBarcode)
	products.Get("/category/:category", productHandler.ByCategory)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id/stock", productHandler.UpdateStock)

	// Sales
	sales := protected.Group("/sales")
	saleHandler := NewSaleHandler(deps.SaleUC, deps.Receipts)
	sales.Post("/", saleHandler.Create)
	sales.Get("/", saleHandler.List)
	sales.Get("/analytics/today", saleHandler.Today)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Get("/:id/receipt", saleHandler.Receipt)
}
