package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, barcode, name, description, price, stock, category, brand, supplier, image, is_external, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Upsert inserta o actualiza por ID. Un barcode ya tomado por otro ID devuelve domain.ErrDuplicate.
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			barcode = EXCLUDED.barcode, name = EXCLUDED.name, description = EXCLUDED.description,
			price = EXCLUDED.price, stock = EXCLUDED.stock, category = EXCLUDED.category,
			brand = EXCLUDED.brand, supplier = EXCLUDED.supplier, image = EXCLUDED.image,
			is_external = EXCLUDED.is_external, updated_at = now()
		RETURNING updated_at`
	var updated time.Time
	err := r.q.QueryRow(ctx, query,
		p.ID, nullIfEmpty(p.Barcode), p.Name, p.Description, p.Price, p.Stock, string(p.Category),
		p.Brand, p.Supplier, p.Image, p.IsExternal,
	).Scan(&updated)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("upsert product: %w", err)
	}
	p.LastUpdated = updated.UnixMilli()
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByBarcode obtiene un producto por código de barras.
func (r *ProductRepo) GetByBarcode(ctx context.Context, barcode string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode))
	if err != nil {
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return p, nil
}

// List lista productos por nombre con paginación.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
}

// ListByCategory productos de un rubro.
func (r *ProductRepo) ListByCategory(ctx context.Context, category entity.Category) ([]*entity.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY name`, string(category))
}

// Search busca por nombre, marca o código (sin distinguir mayúsculas).
func (r *ProductRepo) Search(ctx context.Context, query string, limit int) ([]*entity.Product, error) {
	return r.list(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE name ILIKE $1 OR brand ILIKE $1 OR barcode ILIKE $1
		ORDER BY name LIMIT $2`, likePattern(query), limit)
}

// UpdateStock fija el stock. Devuelve domain.ErrNotFound si el producto no existe.
func (r *ProductRepo) UpdateStock(ctx context.Context, id string, stock int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, id, stock)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// scanProduct devuelve (nil, nil) si no hay fila.
func scanProduct(row pgx.Row) (*entity.Product, error) {
	var (
		p        entity.Product
		barcode  *string
		category string
		updated  time.Time
	)
	err := row.Scan(&p.ID, &barcode, &p.Name, &p.Description, &p.Price, &p.Stock, &category,
		&p.Brand, &p.Supplier, &p.Image, &p.IsExternal, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if barcode != nil {
		p.Barcode = *barcode
	}
	p.Category = entity.ParseCategory(category)
	p.LastUpdated = updated.UnixMilli()
	return &p, nil
}
