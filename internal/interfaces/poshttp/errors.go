package poshttp

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/application/terminal"
	"github.com/jhoicas/nordia-pos/internal/domain"
)

// writeError traduce errores de la caja a status + dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNoPendingCompletion):
		status, code = fiber.StatusNotFound, "NO_PENDING"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrEmptyCart):
		status, code = fiber.StatusBadRequest, "EMPTY_CART"
	case errors.Is(err, domain.ErrNeedsCompletion):
		status, code = fiber.StatusConflict, "NEEDS_COMPLETION"
	case errors.Is(err, domain.ErrInvalidPayment):
		status, code = fiber.StatusBadRequest, "INVALID_PAYMENT"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, terminal.ErrOffline):
		status, code = fiber.StatusServiceUnavailable, "OFFLINE"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
