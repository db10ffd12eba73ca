package dto

// Límites de paginación de los listados de la tienda.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest ?limit=&offset= de los listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// Normalize aplica el límite por defecto y recorta a MaxPageLimit.
func (p PageRequest) Normalize() PageRequest {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageResponse página devuelta; Total solo cuando se conoce sin otra consulta.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP. Code es estable (NOT_FOUND, TOTAL_MISMATCH...).
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
