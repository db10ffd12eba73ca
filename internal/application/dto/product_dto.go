package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpsertProductRequest entrada para crear o actualizar un producto (POST /api/products).
// Si el ID ya existe, o el código de barras ya está registrado, se actualiza.
type UpsertProductRequest struct {
	ID          string          `json:"id"`
	Barcode     string          `json:"barcode"`
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Supplier    string          `json:"supplier"`
	Image       string          `json:"image"`
	IsExternal  bool            `json:"is_external"`
}

// UpdateStockRequest entrada para PUT /api/products/{id}/stock.
type UpdateStockRequest struct {
	Stock int `json:"stock" validate:"min=0"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID          string          `json:"id"`
	Barcode     string          `json:"barcode,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand,omitempty"`
	Supplier    string          `json:"supplier,omitempty"`
	Image       string          `json:"image,omitempty"`
	IsExternal  bool            `json:"is_external"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
