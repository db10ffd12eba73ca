package resolver

import (
	"context"
	"time"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// Source origen de una resolución (valor expuesto en la API y en métricas).
type Source string

const (
	SourceCache         Source = "cache"
	SourceLocal         Source = "local"
	SourceBackend       Source = "backend"
	SourceOpenFoodFacts Source = "openfoodfacts"
	SourceCosmos        Source = "cosmos"
	SourceUnknown       Source = "unknown"
)

// LocalCatalog catálogo persistido en la terminal.
// GetProductByBarcode devuelve domain.ErrNotFound cuando no hay coincidencia.
type LocalCatalog interface {
	GetProductByBarcode(ctx context.Context, barcode string) (*entity.Product, error)
	SaveProduct(ctx context.Context, p entity.Product) error
}

// Match resultado positivo de un proveedor.
type Match struct {
	Product    entity.Product
	Confidence float64
}

// Provider fuente remota de datos de producto.
// Lookup devuelve domain.ErrNotFound si el proveedor no conoce el código; cualquier
// otro error se considera falla transitoria.
type Provider interface {
	Source() Source
	Lookup(ctx context.Context, barcode string) (*Match, error)
}

// Enqueuer registra una mutación para enviar a la tienda más tarde.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ entity.SyncType, payload any, priority entity.SyncPriority) (entity.SyncQueueEntry, error)
}

// Observer recibe métricas de cada resolución.
type Observer interface {
	ObserveAttempt(source Source, outcome Outcome)
	ObserveResolution(source Source, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(Source, Outcome)          {}
func (nopObserver) ObserveResolution(Source, time.Duration) {}
