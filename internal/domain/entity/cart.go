package entity

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/domain"
)

// CartItem línea del carrito: el producto más la cantidad (>= 1).
// En JSON los campos del producto quedan al mismo nivel que quantity.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal precio unitario por cantidad.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart agrega líneas por ID de producto. No hace I/O.
// Invariante: a lo sumo una línea por ID; agregar el mismo producto incrementa la cantidad.
type Cart struct {
	items []CartItem
}

// NewCart construye un carrito a partir de un snapshot (p. ej. el guardado en disco).
// Líneas repetidas se fusionan y las de cantidad <= 0 se descartan.
func NewCart(items []CartItem) *Cart {
	c := &Cart{}
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if idx := c.index(it.ID); idx >= 0 {
			c.items[idx].Quantity += it.Quantity
			continue
		}
		c.items = append(c.items, it)
	}
	return c
}

// Add suma una unidad del producto: incrementa la línea existente o agrega una nueva.
// Rechaza productos con datos incompletos.
func (c *Cart) Add(p Product) error {
	if p.NeedsCompletion {
		return domain.ErrNeedsCompletion
	}
	if idx := c.index(p.ID); idx >= 0 {
		c.items[idx].Quantity++
		return nil
	}
	c.items = append(c.items, CartItem{Product: p, Quantity: 1})
	return nil
}

// UpdateQuantity fija la cantidad de la línea; n <= 0 la elimina.
func (c *Cart) UpdateQuantity(id string, n int) {
	if n <= 0 {
		c.Remove(id)
		return
	}
	if idx := c.index(id); idx >= 0 {
		c.items[idx].Quantity = n
	}
}

// Remove elimina la línea del producto si existe.
func (c *Cart) Remove(id string) {
	idx := c.index(id)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}

// Clear vacía el carrito.
func (c *Cart) Clear() {
	c.items = nil
}

// Get devuelve la línea del producto.
func (c *Cart) Get(id string) (CartItem, bool) {
	if idx := c.index(id); idx >= 0 {
		return c.items[idx], true
	}
	return CartItem{}, false
}

// Items copia de las líneas en orden de inserción.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total Σ precio unitario × cantidad.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// ItemCount Σ cantidades.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// IsEmpty indica si no hay líneas.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}
