package localstore

import (
	"context"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// SaveSale agrega la venta al historial local y estampa timestamp.
func (s *Store) SaveSale(ctx context.Context, sale entity.SaleRecord) error {
	sale.Timestamp = s.now().UnixMilli()
	return mutateList(ctx, s, CollectionSales, func(list []entity.SaleRecord) ([]entity.SaleRecord, error) {
		return append(list, sale), nil
	})
}

// GetSales devuelve el historial local de ventas.
func (s *Store) GetSales(ctx context.Context) []entity.SaleRecord {
	return loadList[entity.SaleRecord](ctx, s, CollectionSales)
}

// MarkSaleSynced marca la venta como confirmada por la tienda.
func (s *Store) MarkSaleSynced(ctx context.Context, id string) error {
	return mutateList(ctx, s, CollectionSales, func(list []entity.SaleRecord) ([]entity.SaleRecord, error) {
		for i := range list {
			if list[i].ID == id {
				list[i].Synced = true
				return list, nil
			}
		}
		return nil, domain.ErrNotFound
	})
}

// SaveCart reemplaza el snapshot del carrito.
func (s *Store) SaveCart(ctx context.Context, items []entity.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if items == nil {
		items = []entity.CartItem{}
	}
	if err := s.save(ctx, CollectionCart, items); err != nil {
		s.log.Error().Err(err).Msg("error guardando carrito")
		return err
	}
	return nil
}

// GetCart devuelve el snapshot del carrito en el orden guardado.
func (s *Store) GetCart(ctx context.Context) []entity.CartItem {
	return loadList[entity.CartItem](ctx, s, CollectionCart)
}
