package repository

import (
	"context"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia del catálogo de la tienda (DIP).
// Las lecturas devuelven (nil, nil) cuando el producto no existe.
type ProductRepository interface {
	Upsert(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*entity.Product, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	ListByCategory(ctx context.Context, category entity.Category) ([]*entity.Product, error)
	Search(ctx context.Context, query string, limit int) ([]*entity.Product, error)
	UpdateStock(ctx context.Context, id string, stock int) error
}
