package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// SalesSummary agregado de ventas de un período.
type SalesSummary struct {
	Revenue      decimal.Decimal
	Transactions int
}

// SaleRepository define el puerto de persistencia de ventas recibidas desde las terminales.
type SaleRepository interface {
	// Create persiste cabecera e items. Devuelve domain.ErrDuplicate si el ID ya existe.
	Create(ctx context.Context, sale *entity.SaleRecord) error
	GetByID(ctx context.Context, id string) (*entity.SaleRecord, error)
	List(ctx context.Context, limit, offset int) ([]*entity.SaleRecord, error)
	SummaryBetween(ctx context.Context, from, to time.Time) (SalesSummary, error)
}
