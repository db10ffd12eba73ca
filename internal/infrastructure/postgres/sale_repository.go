package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas recibidas desde las terminales. Create debe correr dentro de una tx
// (TxRunner) para que cabecera e items queden juntos.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create persiste la venta y sus líneas. Un ID repetido devuelve domain.ErrDuplicate.
func (r *SaleRepo) Create(ctx context.Context, sale *entity.SaleRecord) error {
	var customerName, customerPhone *string
	if sale.CustomerInfo != nil {
		customerName = nullIfEmpty(sale.CustomerInfo.Name)
		customerPhone = nullIfEmpty(sale.CustomerInfo.Phone)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales (id, terminal_id, total, payment_method, customer_name, customer_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sale.ID, sale.TerminalID, sale.Total, string(sale.PaymentMethod), customerName, customerPhone, sale.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	for i, it := range sale.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_items (sale_id, line, product_id, product_name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sale.ID, i+1, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert sale item %d: %w", i+1, err)
		}
	}
	return nil
}

// GetByID venta con sus líneas; (nil, nil) si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.SaleRecord, error) {
	sale, err := scanSale(r.q.QueryRow(ctx, `
		SELECT id, terminal_id, total, payment_method, customer_name, customer_phone, created_at
		FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.SaleRecord{sale}); err != nil {
		return nil, err
	}
	return sale, nil
}

// List ventas más recientes primero.
func (r *SaleRepo) List(ctx context.Context, limit, offset int) ([]*entity.SaleRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, terminal_id, total, payment_method, customer_name, customer_phone, created_at
		FROM sales ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	var list []*entity.SaleRecord
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// SummaryBetween recaudación y cantidad de ventas en [from, to).
func (r *SaleRepo) SummaryBetween(ctx context.Context, from, to time.Time) (repository.SalesSummary, error) {
	var out repository.SalesSummary
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM sales WHERE created_at >= $1 AND created_at < $2`, from, to,
	).Scan(&out.Revenue, &out.Transactions)
	if err != nil {
		return repository.SalesSummary{}, fmt.Errorf("sales summary: %w", err)
	}
	return out, nil
}

func (r *SaleRepo) loadItems(ctx context.Context, sales []*entity.SaleRecord) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, len(sales))
	byID := make(map[string]*entity.SaleRecord, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		byID[s.ID] = s
		s.Items = []entity.SaleItem{}
	}
	rows, err := r.q.Query(ctx, `
		SELECT sale_id, product_id, product_name, quantity, unit_price, total_price
		FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, line`, ids)
	if err != nil {
		return fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			saleID string
			it     entity.SaleItem
		)
		if err := rows.Scan(&saleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return fmt.Errorf("scan sale item: %w", err)
		}
		if s := byID[saleID]; s != nil {
			s.Items = append(s.Items, it)
		}
	}
	return rows.Err()
}

func scanSale(row pgx.Row) (*entity.SaleRecord, error) {
	var (
		s       entity.SaleRecord
		method  string
		name    *string
		phone   *string
		total   decimal.Decimal
		created time.Time
	)
	if err := row.Scan(&s.ID, &s.TerminalID, &total, &method, &name, &phone, &created); err != nil {
		return nil, err
	}
	s.Total = total
	s.PaymentMethod = entity.PaymentMethod(method)
	s.CreatedAt = created
	s.Timestamp = created.UnixMilli()
	s.Synced = true
	if name != nil || phone != nil {
		s.CustomerInfo = &entity.CustomerInfo{}
		if name != nil {
			s.CustomerInfo.Name = *name
		}
		if phone != nil {
			s.CustomerInfo.Phone = *phone
		}
	}
	return &s, nil
}
