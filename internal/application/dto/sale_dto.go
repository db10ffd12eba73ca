package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleItemDTO línea de venta tal como la envía la terminal.
type SaleItemDTO struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// CustomerInfoDTO datos opcionales del cliente.
type CustomerInfoDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// CreateSaleRequest entrada para POST /api/sales.
// ID lo genera la terminal y hace idempotente el registro; si viene vacío lo genera el servidor.
type CreateSaleRequest struct {
	ID            string           `json:"id"`
	TerminalID    string           `json:"terminal_id"`
	Items         []SaleItemDTO    `json:"items"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod string           `json:"payment_method"`
	CustomerInfo  *CustomerInfoDTO `json:"customer_info"`
	CreatedAt     *time.Time       `json:"created_at"`
}

// CrossSellDTO sugerencia de venta cruzada.
type CrossSellDTO struct {
	Product    string  `json:"product"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// InventoryAlertDTO alerta de stock derivada de la venta.
type InventoryAlertDTO struct {
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// SaleInsightsDTO sugerencias calculadas al registrar una venta.
type SaleInsightsDTO struct {
	CrossSelling    []CrossSellDTO      `json:"cross_selling"`
	InventoryAlerts []InventoryAlertDTO `json:"inventory_alerts"`
	PeakHours       bool                `json:"peak_hours"`
}

// SaleResponse salida de POST /api/sales.
type SaleResponse struct {
	ID             string           `json:"id"`
	Total          decimal.Decimal  `json:"total"`
	ItemsCount     int              `json:"items_count"`
	Timestamp      time.Time        `json:"timestamp"`
	Duplicate      bool             `json:"duplicate,omitempty"`
	NeuralInsights *SaleInsightsDTO `json:"neural_insights,omitempty"`
}

// SaleDetailResponse venta completa.
type SaleDetailResponse struct {
	ID            string           `json:"id"`
	TerminalID    string           `json:"terminal_id,omitempty"`
	Items         []SaleItemDTO    `json:"items"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod string           `json:"payment_method"`
	CustomerInfo  *CustomerInfoDTO `json:"customer_info"`
	CreatedAt     time.Time        `json:"created_at"`
}

// SaleListResponse lista paginada de ventas.
type SaleListResponse struct {
	Items []SaleDetailResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// TodayAnalyticsResponse salida de GET /api/sales/analytics/today.
type TodayAnalyticsResponse struct {
	Date              string          `json:"date"` // YYYY-MM-DD
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalTransactions int             `json:"total_transactions"`
	AverageTicket     decimal.Decimal `json:"average_ticket"`
}
