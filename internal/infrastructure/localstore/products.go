package localstore

import (
	"context"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// SaveProduct inserta o reemplaza por ID y estampa lastUpdated.
func (s *Store) SaveProduct(ctx context.Context, p entity.Product) error {
	p.LastUpdated = s.now().UnixMilli()
	return mutateList(ctx, s, CollectionProducts, func(list []entity.Product) ([]entity.Product, error) {
		for i := range list {
			if list[i].ID == p.ID {
				list[i] = p
				return list, nil
			}
		}
		return append(list, p), nil
	})
}

// GetProducts devuelve el catálogo local.
func (s *Store) GetProducts(ctx context.Context) []entity.Product {
	return loadList[entity.Product](ctx, s, CollectionProducts)
}

// GetProductByBarcode búsqueda lineal por código. Sin coincidencia devuelve domain.ErrNotFound.
func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*entity.Product, error) {
	var list []entity.Product
	if err := s.load(ctx, CollectionProducts, &list); err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Barcode != "" && list[i].Barcode == barcode {
			p := list[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteProduct quita un producto del catálogo local.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return mutateList(ctx, s, CollectionProducts, func(list []entity.Product) ([]entity.Product, error) {
		out := list[:0]
		for _, p := range list {
			if p.ID != id {
				out = append(out, p)
			}
		}
		return out, nil
	})
}
