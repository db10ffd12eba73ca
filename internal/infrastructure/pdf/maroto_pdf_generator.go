// Package pdf genera el ticket de venta en PDF.
//
// Layout (80mm de ancho, alto según cantidad de líneas):
//
//	┌──────────────────────────────┐
//	│  Comercio + dirección         │
//	│  Ticket N° + fecha + caja     │
//	│  ──────────────────────────   │
//	│  Cant | Producto | Importe    │
//	│  ──────────────────────────   │
//	│  TOTAL + medio de pago        │
//	│  QR con el ID de venta        │
//	└──────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

const (
	ticketWidth  = 80.0
	ticketMargin = 4.0
)

var paymentLabels = map[entity.PaymentMethod]string{
	entity.PaymentCash:        "Efectivo",
	entity.PaymentCard:        "Tarjeta",
	entity.PaymentTransfer:    "Transferencia",
	entity.PaymentMercadoPago: "Mercado Pago",
	entity.PaymentQR:          "QR",
}

// StoreInfo encabezado del ticket.
type StoreInfo struct {
	Name    string
	Address string
	Footer  string
}

// ── Generator ─────────────────────────────────────────────────────────────────

// ReceiptGenerator arma tickets con Maroto v2.
type ReceiptGenerator struct {
	store StoreInfo
}

// NewReceiptGenerator construye el generador.
func NewReceiptGenerator(store StoreInfo) *ReceiptGenerator {
	if store.Name == "" {
		store.Name = "Nordia POS"
	}
	if store.Footer == "" {
		store.Footer = "Gracias por su compra. Documento no válido como factura."
	}
	return &ReceiptGenerator{store: store}
}

// GenerateReceipt genera el PDF del ticket y devuelve sus bytes.
func (g *ReceiptGenerator) GenerateReceipt(_ context.Context, sale *entity.SaleRecord) ([]byte, error) {
	if sale == nil {
		return nil, fmt.Errorf("pdf: venta nula")
	}
	// Alto estimado: encabezado + líneas + totales + QR.
	height := 95.0 + float64(len(sale.Items))*6
	cfg := config.NewBuilder().
		WithDimensions(ticketWidth, height).
		WithLeftMargin(ticketMargin).WithRightMargin(ticketMargin).
		WithTopMargin(ticketMargin).WithBottomMargin(ticketMargin).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 7}).
		WithTitle("Ticket "+sale.ID, true).
		WithAuthor(g.store.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRows(sale)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(itemsHeaderRow())
	m.AddRows(itemRows(sale.Items)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRows(sale)...)
	m.AddRows(g.footerRows(sale)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar ticket: %w", err)
	}
	return doc.GetBytes(), nil
}

// Filename nombre sugerido para la descarga.
func Filename(sale *entity.SaleRecord) string {
	return fmt.Sprintf("ticket-%s.pdf", sale.ID)
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *ReceiptGenerator) headerRows(sale *entity.SaleRecord) []core.Row {
	rows := []core.Row{
		row.New(7).Add(col.New(12).Add(
			text.New(g.store.Name, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Center, Color: colorPrimary,
			}),
		)),
	}
	if g.store.Address != "" {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(g.store.Address, props.Text{Size: 6.5, Align: align.Center, Color: colorGray}),
		)))
	}
	caja := nonEmpty(sale.TerminalID, "-")
	rows = append(rows,
		row.New(4).Add(col.New(12).Add(
			text.New("Ticket "+shortID(sale.ID), props.Text{Style: fontstyle.Bold, Size: 7, Top: 0.5}),
		)),
		row.New(4).Add(
			col.New(8).Add(text.New(sale.CreatedAt.Local().Format("02/01/2006 15:04"), props.Text{Size: 6.5, Color: colorGray})),
			col.New(4).Add(text.New("Caja "+caja, props.Text{Size: 6.5, Align: align.Right, Color: colorGray})),
		),
	)
	if sale.CustomerInfo != nil && sale.CustomerInfo.Name != "" {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New("Cliente: "+sale.CustomerInfo.Name, props.Text{Size: 6.5}),
		)))
	}
	return rows
}

func itemsHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 6.5, Align: a}))
	}
	return row.New(5).Add(
		h("Cant.", 2, align.Left),
		h("Producto", 6, align.Left),
		h("Importe", 4, align.Right),
	)
}

func itemRows(items []entity.SaleItem) []core.Row {
	out := make([]core.Row, 0, len(items))
	for _, it := range items {
		out = append(out, row.New(6).Add(
			col.New(2).Add(text.New(fmt.Sprintf("%d x", it.Quantity), props.Text{Size: 6.5})),
			col.New(6).Add(
				text.New(it.ProductName, props.Text{Size: 6.5}),
				text.New("$"+FormatMoney(it.UnitPrice)+" c/u", props.Text{Size: 5.5, Top: 3, Color: colorGray}),
			),
			col.New(4).Add(text.New("$"+FormatMoney(it.TotalPrice), props.Text{Size: 6.5, Align: align.Right})),
		))
	}
	return out
}

func totalRows(sale *entity.SaleRecord) []core.Row {
	method := paymentLabels[sale.PaymentMethod]
	if method == "" {
		method = string(sale.PaymentMethod)
	}
	return []core.Row{
		row.New(7).Add(
			col.New(6).Add(text.New("TOTAL", props.Text{Style: fontstyle.Bold, Size: 10, Color: colorPrimary})),
			col.New(6).Add(text.New("$"+FormatMoney(sale.Total), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary,
			})),
		),
		row.New(4).Add(
			col.New(6).Add(text.New(fmt.Sprintf("%d unidades", sale.ItemsCount()), props.Text{Size: 6.5, Color: colorGray})),
			col.New(6).Add(text.New(method, props.Text{Size: 6.5, Align: align.Right})),
		),
	}
}

func (g *ReceiptGenerator) footerRows(sale *entity.SaleRecord) []core.Row {
	return []core.Row{
		row.New(3),
		row.New(28).Add(
			col.New(3),
			col.New(6).Add(code.NewQr(sale.ID, props.Rect{Percent: 100, Center: true})),
			col.New(3),
		),
		row.New(8).Add(col.New(12).Add(
			text.New(g.store.Footer, props.Text{Size: 6, Align: align.Center, Color: colorGray, Top: 2}),
		)),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return strings.ToUpper(id[:8])
}

// FormatMoney formato es-AR: puntos de miles y coma decimal solo si hay centavos.
// Ej: 25000 → "25.000", 1250.5 → "1.250,50".
func FormatMoney(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, cents, _ := strings.Cut(fixed, ".")

	n := len(intPart)
	buf := make([]byte, 0, n+n/3+4)
	if d.IsNegative() {
		buf = append(buf, '-')
	}
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	if cents != "00" {
		buf = append(buf, ',')
		buf = append(buf, cents...)
	}
	return string(buf)
}
