package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrEmptyCart           = errors.New("el carrito está vacío")
	ErrNeedsCompletion     = errors.New("el producto requiere completar datos antes de venderse")
	ErrNoPendingCompletion = errors.New("no hay producto pendiente de completar")
	ErrTotalMismatch       = errors.New("el total no coincide con los items")
	ErrInvalidPayment      = errors.New("método de pago inválido")
)
