package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nordia-pos/internal/application/auth"
	"github.com/jhoicas/nordia-pos/internal/application/dto"
)

// AuthHandler enrolamiento de terminales.
type AuthHandler struct {
	uc *auth.TerminalAuthUseCase
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.TerminalAuthUseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Terminal godoc
// @Summary      Autenticar terminal
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TerminalAuthRequest  true  "terminal_id, enrollment_key"
// @Success      200   {object}  dto.TerminalAuthResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/terminal [post]
func (h *AuthHandler) Terminal(c *fiber.Ctx) error {
	var in dto.TerminalAuthRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.TerminalID == "" || in.EnrollmentKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "terminal_id y enrollment_key son requeridos"})
	}
	out, err := h.uc.Authenticate(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
