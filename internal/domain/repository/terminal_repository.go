package repository

import "context"

// TerminalRepository registro de cajas que se autenticaron contra la tienda.
type TerminalRepository interface {
	// Touch crea la terminal si no existe y actualiza su último acceso.
	Touch(ctx context.Context, terminalID string) error
}
