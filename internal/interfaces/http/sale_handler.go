package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/application/usecase"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/pdf"
)

// ReceiptGenerator genera el ticket PDF de una venta.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, sale *entity.SaleRecord) ([]byte, error)
}

// SaleHandler ventas enviadas por las terminales.
type SaleHandler struct {
	uc       *usecase.SaleUseCase
	receipts ReceiptGenerator
}

// NewSaleHandler construye el handler. receipts puede ser nil (ticket deshabilitado).
func NewSaleHandler(uc *usecase.SaleUseCase, receipts ReceiptGenerator) *SaleHandler {
	return &SaleHandler{uc: uc, receipts: receipts}
}

// Create godoc
// @Summary      Registrar venta
// @Description  Idempotente por id: reenviar una venta ya registrada responde 200 con duplicate=true.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSaleRequest  true  "Venta"
// @Success      201   {object}  dto.SaleResponse
// @Success      200   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Register(c.UserContext(), GetTerminalID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	if out.Duplicate {
		return c.JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar ventas
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite (default 20)"
// @Param        offset  query  int  false  "Offset"
// @Success      200  {object}  dto.SaleListResponse
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	out, err := h.uc.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Today godoc
// @Summary      Analíticas del día
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.TodayAnalyticsResponse
// @Router       /api/sales/analytics/today [get]
func (h *SaleHandler) Today(c *fiber.Ctx) error {
	out, err := h.uc.TodayAnalytics(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Receipt godoc
// @Summary      Ticket PDF de la venta
// @Tags         sales
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/receipt [get]
func (h *SaleHandler) Receipt(c *fiber.Ctx) error {
	if h.receipts == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_IMPLEMENTED", Message: "tickets deshabilitados"})
	}
	sale, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	data, err := h.receipts.GenerateReceipt(c.UserContext(), sale)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+pdf.Filename(sale)+`"`)
	return c.Send(data)
}
