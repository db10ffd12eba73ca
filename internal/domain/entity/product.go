package entity

import (
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func init() {
	// El almacenamiento local y la API de la tienda intercambian precios como números JSON.
	decimal.MarshalJSONWithoutQuotes = true
}

// Prefijos de ID según el origen del producto.
const (
	IDPrefixLocal         = "local-"
	IDPrefixUnknown       = "unknown-"
	IDPrefixOpenFoodFacts = "off-"
	IDPrefixCosmos        = "cosmos-"
)

// maxNameLength límite de caracteres para nombres que vienen de catálogos externos.
const maxNameLength = 100

// Product representa un producto del catálogo del comercio.
// Los nombres JSON coinciden con el formato persistido en el dispositivo.
type Product struct {
	ID              string          `json:"id"`
	Barcode         string          `json:"barcode,omitempty"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	Category        Category        `json:"category"`
	Brand           string          `json:"brand,omitempty"`
	Supplier        string          `json:"supplier,omitempty"`
	Image           string          `json:"image,omitempty"`
	IsExternal      bool            `json:"isExternal,omitempty"`
	IsUnknown       bool            `json:"isUnknown,omitempty"`
	NeedsCompletion bool            `json:"needsCompletion,omitempty"`
	LastUpdated     int64           `json:"lastUpdated,omitempty"` // epoch ms, lo estampa la persistencia local
}

// Sellable indica si el precio del producto es confiable para cobrar.
func (p *Product) Sellable() bool {
	return !p.NeedsCompletion
}

// LastUpdatedTime convierte LastUpdated a time.Time.
func (p *Product) LastUpdatedTime() time.Time {
	return time.UnixMilli(p.LastUpdated)
}

// PlaceholderName nombre provisorio derivado de los últimos 4 caracteres del código.
func PlaceholderName(barcode string) string {
	return "Producto " + lastN(barcode, 4)
}

// NewUnknownProduct construye el producto desconocido para un código sin coincidencias.
func NewUnknownProduct(barcode string) *Product {
	return &Product{
		ID:              IDPrefixUnknown + barcode,
		Barcode:         barcode,
		Name:            PlaceholderName(barcode),
		Price:           decimal.Zero,
		Stock:           1,
		Category:        CategoryOtros,
		IsUnknown:       true,
		NeedsCompletion: true,
	}
}

// TruncateName recorta un nombre externo a maxNameLength runas.
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxNameLength {
		return name
	}
	return string([]rune(name)[:maxNameLength])
}

func lastN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
