// Package poshttp expone la caja como API HTTP local para la interfaz de venta.
// Escucha en loopback y no requiere autenticación.
package poshttp

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nordia-pos/internal/application/completion"
	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/application/terminal"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/localstore"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/pdf"
)

// Storage lecturas del almacén local que no pasan por la fachada.
type Storage interface {
	GetSales(ctx context.Context) []entity.SaleRecord
	Stats(ctx context.Context) localstore.Stats
}

// ReceiptGenerator genera el ticket PDF de una venta.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, sale *entity.SaleRecord) ([]byte, error)
}

// ScanRequest entrada de POST /api/scan.
type ScanRequest struct {
	Barcode string `json:"barcode"`
}

// QuantityRequest entrada de PUT /api/cart/items/{id}.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutRequest entrada de POST /api/checkout.
type CheckoutRequest struct {
	PaymentMethod string               `json:"payment_method"`
	CustomerInfo  *entity.CustomerInfo `json:"customer_info"`
}

// Handler endpoints de la caja.
type Handler struct {
	term     *terminal.Terminal
	storage  Storage
	receipts ReceiptGenerator
}

// NewHandler construye el handler. receipts puede ser nil.
func NewHandler(term *terminal.Terminal, storage Storage, receipts ReceiptGenerator) *Handler {
	return &Handler{term: term, storage: storage, receipts: receipts}
}

// ── Escaneo y completado ──

// Scan resuelve un código; 200 con added_to_cart o pending_completion.
func (h *Handler) Scan(c *fiber.Ctx) error {
	var in ScanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	barcode := strings.TrimSpace(in.Barcode)
	if barcode == "" {
		return writeError(c, domain.ErrInvalidInput)
	}
	out, err := h.term.Scan(c.UserContext(), barcode)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) Pending(c *fiber.Ctx) error {
	list, err := h.term.PendingCompletions(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if list == nil {
		list = []entity.Product{}
	}
	return c.JSON(fiber.Map{"items": list})
}

// Complete completa el pendiente del código y devuelve el producto y el carrito.
func (h *Handler) Complete(c *fiber.Ctx) error {
	var in completion.Fields
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	p, err := h.term.Complete(c.UserContext(), c.Params("barcode"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"product": p, "cart": h.term.Cart()})
}

func (h *Handler) CancelPending(c *fiber.Ctx) error {
	if err := h.term.CancelCompletion(c.UserContext(), c.Params("barcode")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Carrito ──

func (h *Handler) Cart(c *fiber.Ctx) error {
	return c.JSON(h.term.Cart())
}

// UpdateQuantity con quantity <= 0 quita la línea.
func (h *Handler) UpdateQuantity(c *fiber.Ctx) error {
	var in QuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	sum, err := h.term.UpdateQuantity(c.UserContext(), c.Params("id"), in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sum)
}

func (h *Handler) RemoveItem(c *fiber.Ctx) error {
	sum, err := h.term.RemoveItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sum)
}

func (h *Handler) ClearCart(c *fiber.Ctx) error {
	if err := h.term.ClearCart(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Cobro y ventas ──

// Checkout cobra el carrito (201). Si la venta quedó guardada pero no encolada responde 500
// con la venta en el cuerpo para que la interfaz no la pierda.
func (h *Handler) Checkout(c *fiber.Ctx) error {
	var in CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.term.Checkout(c.UserContext(), entity.PaymentMethod(in.PaymentMethod), in.CustomerInfo)
	if err != nil {
		if out != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"code": "NOT_QUEUED", "message": err.Error(), "outcome": out,
			})
		}
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Sales ventas locales, las más recientes primero.
func (h *Handler) Sales(c *fiber.Ctx) error {
	sales := h.storage.GetSales(c.UserContext())
	out := make([]entity.SaleRecord, 0, len(sales))
	for i := len(sales) - 1; i >= 0; i-- {
		out = append(out, sales[i])
	}
	return c.JSON(fiber.Map{"items": out})
}

func (h *Handler) Receipt(c *fiber.Ctx) error {
	if h.receipts == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_IMPLEMENTED", Message: "tickets deshabilitados"})
	}
	sale := FindSale(h.storage.GetSales(c.UserContext()), c.Params("id"))
	if sale == nil {
		return writeError(c, domain.ErrNotFound)
	}
	data, err := h.receipts.GenerateReceipt(c.UserContext(), sale)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+pdf.Filename(sale)+`"`)
	return c.Send(data)
}

// FindSale busca por ID o por prefijo (los tickets muestran el ID abreviado).
func FindSale(sales []entity.SaleRecord, id string) *entity.SaleRecord {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	var match *entity.SaleRecord
	for i := range sales {
		if sales[i].ID == id {
			return &sales[i]
		}
		if strings.HasPrefix(sales[i].ID, id) {
			if match != nil {
				return nil // prefijo ambiguo
			}
			match = &sales[i]
		}
	}
	return match
}

// ── Sincronización y mantenimiento ──

func (h *Handler) SyncStatus(c *fiber.Ctx) error {
	return c.JSON(h.term.SyncStatus(c.UserContext()))
}

// Sync drena la cola ahora; 503 si la caja no tiene tienda configurada.
func (h *Handler) Sync(c *fiber.Ctx) error {
	rep, err := h.term.Sync(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rep)
}

func (h *Handler) DeadLetter(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.term.Queue().DeadLetter(c.UserContext())})
}

func (h *Handler) Requeue(c *fiber.Ctx) error {
	if err := h.term.Queue().Requeue(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.storage.Stats(c.UserContext()))
}
