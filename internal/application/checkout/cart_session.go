package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// CartStore persistencia del carrito.
type CartStore interface {
	SaveCart(ctx context.Context, items []entity.CartItem) error
	GetCart(ctx context.Context) []entity.CartItem
}

// CartSummary vista del carrito para la UI.
type CartSummary struct {
	Items     []entity.CartItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
}

// CartSession carrito en curso respaldado en el almacenamiento local.
// Cada mutación se guarda; si el guardado falla el carrito vuelve al estado anterior.
type CartSession struct {
	mu    sync.Mutex
	cart  *entity.Cart
	store CartStore
	log   zerolog.Logger
}

// NewCartSession restaura el carrito guardado.
func NewCartSession(ctx context.Context, store CartStore, log zerolog.Logger) *CartSession {
	return &CartSession{
		cart:  entity.NewCart(store.GetCart(ctx)),
		store: store,
		log:   log.With().Str("component", "cart").Logger(),
	}
}

// Add suma una unidad del producto. Rechaza productos sin completar.
func (s *CartSession) Add(ctx context.Context, p entity.Product) error {
	return s.mutate(ctx, func(c *entity.Cart) error { return c.Add(p) })
}

// UpdateQuantity fija la cantidad; n <= 0 quita la línea.
func (s *CartSession) UpdateQuantity(ctx context.Context, productID string, n int) error {
	return s.mutate(ctx, func(c *entity.Cart) error {
		c.UpdateQuantity(productID, n)
		return nil
	})
}

func (s *CartSession) Remove(ctx context.Context, productID string) error {
	return s.mutate(ctx, func(c *entity.Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (s *CartSession) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(c *entity.Cart) error {
		c.Clear()
		return nil
	})
}

// Summary copia del estado actual.
func (s *CartSession) Summary() CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartSummary{Items: s.cart.Items(), Total: s.cart.Total(), ItemCount: s.cart.ItemCount()}
}

// Items copia de las líneas.
func (s *CartSession) Items() []entity.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

func (s *CartSession) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.IsEmpty()
}

// Settle entrega las líneas a fn y, si fn no falla, vacía el carrito, todo bajo el mismo candado.
// Lo que se agregue mientras fn corre espera y queda en el carrito siguiente; si fn falla el carrito no cambia.
func (s *CartSession) Settle(ctx context.Context, fn func(items []entity.CartItem) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.cart.Items()); err != nil {
		return err
	}
	s.cart.Clear()
	if err := s.store.SaveCart(ctx, nil); err != nil {
		s.log.Error().Err(err).Msg("venta guardada pero el carrito vacío no se persistió")
	}
	return nil
}

func (s *CartSession) mutate(ctx context.Context, fn func(*entity.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cart.Items()
	if err := fn(s.cart); err != nil {
		return err
	}
	if err := s.store.SaveCart(ctx, s.cart.Items()); err != nil {
		s.cart = entity.NewCart(prev)
		s.log.Error().Err(err).Msg("no se pudo guardar el carrito")
		return fmt.Errorf("guardar carrito: %w", err)
	}
	return nil
}
