package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/application/usecase"
)

// ProductHandler maneja las peticiones HTTP para Product (protegido).
type ProductHandler struct {
	uc *usecase.ProductUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *usecase.ProductUseCase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// Upsert godoc
// @Summary      Crear o actualizar producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.UpsertProductRequest  true  "Datos del producto"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Upsert(c *fiber.Ctx) error {
	var in dto.UpsertProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Upsert(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByBarcode godoc
// @Summary      Obtener producto por código de barras
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        code  path  string  true  "Código de barras"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/barcode/{code} [get]
func (h *ProductHandler) GetByBarcode(c *fiber.Ctx) error {
	out, err := h.uc.GetByBarcode(c.UserContext(), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite (default 20)"
// @Param        offset  query  int  false  "Offset"
// @Success      200  {object}  dto.ProductListResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	out, err := h.uc.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Search godoc
// @Summary      Buscar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        q      query  string  true   "Texto a buscar"
// @Param        limit  query  int     false  "Límite (default 20)"
// @Success      200  {object}  dto.ProductListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/products/search [get]
func (h *ProductHandler) Search(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	out, err := h.uc.Search(c.UserContext(), c.Query("q"), page.Limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ByCategory godoc
// @Summary      Productos por categoría
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        category  path  string  true  "Categoría"
// @Success      200  {object}  dto.ProductListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/products/category/{category} [get]
func (h *ProductHandler) ByCategory(c *fiber.Ctx) error {
	out, err := h.uc.ListByCategory(c.UserContext(), c.Params("category"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateStock godoc
// @Summary      Actualizar stock
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Param        id    path  string                  true  "ID del producto"
// @Param        body  body  dto.UpdateStockRequest  true  "Nuevo stock"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/stock [put]
func (h *ProductHandler) UpdateStock(c *fiber.Ctx) error {
	var in dto.UpdateStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.uc.UpdateStock(c.UserContext(), c.Params("id"), in); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
