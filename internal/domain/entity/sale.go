package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/domain"
)

// PaymentMethod medio de pago de una venta.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentMercadoPago PaymentMethod = "mercadopago"
	PaymentQR          PaymentMethod = "qr"
)

// Valid indica si el medio de pago es uno de los aceptados.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMercadoPago, PaymentQR:
		return true
	}
	return false
}

// SaleItem línea de venta con snapshot del nombre y precio al momento del cobro.
type SaleItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// CustomerInfo datos opcionales del cliente.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// SaleRecord venta registrada en la terminal.
// Se persiste localmente al cobrar; Synced pasa a true solo cuando la tienda confirma la recepción.
type SaleRecord struct {
	ID            string          `json:"id"`
	TerminalID    string          `json:"terminal_id,omitempty"`
	Items         []SaleItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerInfo  *CustomerInfo   `json:"customer_info"`
	CreatedAt     time.Time       `json:"created_at"`
	Timestamp     int64           `json:"timestamp,omitempty"` // epoch ms, lo estampa la persistencia local
	Synced        bool            `json:"synced"`
}

// NewSaleRecord arma la venta a partir de las líneas del carrito.
// Cada total de línea es precio × cantidad y el total es la suma de las líneas.
func NewSaleRecord(items []CartItem, method PaymentMethod, customer *CustomerInfo, now time.Time) (*SaleRecord, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if !method.Valid() {
		return nil, domain.ErrInvalidPayment
	}
	sale := &SaleRecord{
		ID:            uuid.New().String(),
		Items:         make([]SaleItem, 0, len(items)),
		Total:         decimal.Zero,
		PaymentMethod: method,
		CustomerInfo:  customer,
		CreatedAt:     now,
	}
	for _, it := range items {
		if it.NeedsCompletion {
			return nil, domain.ErrNeedsCompletion
		}
		line := SaleItem{
			ProductID:   it.ID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			TotalPrice:  it.LineTotal(),
		}
		sale.Items = append(sale.Items, line)
		sale.Total = sale.Total.Add(line.TotalPrice)
	}
	return sale, nil
}

// ItemsCount cantidad de unidades vendidas.
func (s *SaleRecord) ItemsCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// saleTotalTolerance diferencia máxima aceptada entre el total declarado y la suma de líneas.
var saleTotalTolerance = decimal.NewFromFloat(0.01)

// Validate verifica que haya items y que el total coincida con la suma de líneas.
func (s *SaleRecord) Validate() error {
	if len(s.Items) == 0 {
		return domain.ErrEmptyCart
	}
	if !s.PaymentMethod.Valid() {
		return domain.ErrInvalidPayment
	}
	sum := decimal.Zero
	for _, it := range s.Items {
		if it.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
		sum = sum.Add(it.TotalPrice)
	}
	if sum.Sub(s.Total).Abs().GreaterThan(saleTotalTolerance) {
		return domain.ErrTotalMismatch
	}
	return nil
}
