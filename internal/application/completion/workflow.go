// Package completion gestiona los productos que no pueden venderse hasta que el operador
// complete sus datos (precio, nombre, categoría).
package completion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// PendingKey clave de estado con los productos pendientes (código → producto).
const PendingKey = "pending-completion"

// StateStore estado persistente de la terminal.
type StateStore interface {
	SaveAppState(ctx context.Context, key string, value any) error
	LoadAppState(ctx context.Context, key string, out any) (bool, error)
}

// Catalog catálogo local donde queda el producto completado.
type Catalog interface {
	SaveProduct(ctx context.Context, p entity.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// Cart destino del producto completado.
type Cart interface {
	Add(ctx context.Context, p entity.Product) error
}

// Fields datos que aporta el operador.
type Fields struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category entity.Category `json:"category"`
	Brand    string          `json:"brand"`
	Stock    *int            `json:"stock"`
}

// Workflow flujo begin → submit | cancel.
type Workflow struct {
	state   StateStore
	catalog Catalog
	cart    Cart
	cache   *resolver.Cache
	queue   resolver.Enqueuer
	log     zerolog.Logger
}

// New construye el flujo. cache y queue pueden ser nil.
func New(state StateStore, catalog Catalog, cart Cart, cache *resolver.Cache, queue resolver.Enqueuer, log zerolog.Logger) *Workflow {
	return &Workflow{
		state:   state,
		catalog: catalog,
		cart:    cart,
		cache:   cache,
		queue:   queue,
		log:     log.With().Str("component", "completion").Logger(),
	}
}

// Begin registra el producto como pendiente si necesita completarse. Devuelve true si quedó pendiente.
func (w *Workflow) Begin(ctx context.Context, res resolver.Result) (bool, error) {
	if !res.NeedsCompletion() {
		return false, nil
	}
	pending, err := w.load(ctx)
	if err != nil {
		return false, err
	}
	pending[res.Product.Barcode] = res.Product
	if err := w.state.SaveAppState(ctx, PendingKey, pending); err != nil {
		return false, fmt.Errorf("guardar pendiente: %w", err)
	}
	w.log.Info().Str("barcode", res.Product.Barcode).Str("source", string(res.Source)).Msg("producto pendiente de completar")
	return true, nil
}

// Pending productos pendientes ordenados por código.
func (w *Workflow) Pending(ctx context.Context) ([]entity.Product, error) {
	pending, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Product, 0, len(pending))
	for _, p := range pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, nil
}

// Get producto pendiente de un código.
func (w *Workflow) Get(ctx context.Context, barcode string) (*entity.Product, error) {
	pending, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := pending[barcode]
	if !ok {
		return nil, fmt.Errorf("código %s: %w", barcode, domain.ErrNoPendingCompletion)
	}
	return &p, nil
}

// Submit valida los datos, persiste el producto final, lo cachea y recién entonces lo agrega al carrito.
// Si la validación o la persistencia fallan el carrito no cambia y el pendiente se conserva.
func (w *Workflow) Submit(ctx context.Context, barcode string, f Fields) (*entity.Product, error) {
	pending, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	base, ok := pending[barcode]
	if !ok {
		return nil, fmt.Errorf("código %s: %w", barcode, domain.ErrNoPendingCompletion)
	}
	final, err := finalize(base, f)
	if err != nil {
		return nil, err
	}

	if err := w.catalog.SaveProduct(ctx, final); err != nil {
		return nil, fmt.Errorf("guardar producto completado: %w", err)
	}
	// El provisorio (off-, cosmos-) sale recién con el final ya guardado: el código nunca queda sin entrada.
	if base.ID != "" && base.ID != final.ID && !base.IsUnknown {
		if err := w.catalog.DeleteProduct(ctx, base.ID); err != nil {
			w.log.Error().Err(err).Str("barcode", barcode).Str("id", base.ID).Msg("no se pudo borrar el provisorio")
		}
	}
	if w.cache != nil {
		w.cache.Set(final.Barcode, final)
	}
	if w.queue != nil {
		if _, err := w.queue.Enqueue(ctx, entity.SyncProduct, final, entity.PriorityMedium); err != nil {
			w.log.Error().Err(err).Str("barcode", barcode).Msg("no se pudo encolar producto completado")
		}
	}
	if err := w.cart.Add(ctx, final); err != nil {
		return nil, fmt.Errorf("agregar al carrito: %w", err)
	}

	delete(pending, barcode)
	if err := w.state.SaveAppState(ctx, PendingKey, pending); err != nil {
		w.log.Error().Err(err).Str("barcode", barcode).Msg("no se pudo limpiar el pendiente")
	}
	w.log.Info().Str("barcode", barcode).Str("id", final.ID).Str("price", final.Price.String()).Msg("producto completado")
	return &final, nil
}

// Cancel descarta el pendiente sin tocar el catálogo.
func (w *Workflow) Cancel(ctx context.Context, barcode string) error {
	pending, err := w.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := pending[barcode]; !ok {
		return fmt.Errorf("código %s: %w", barcode, domain.ErrNoPendingCompletion)
	}
	delete(pending, barcode)
	if err := w.state.SaveAppState(ctx, PendingKey, pending); err != nil {
		return fmt.Errorf("descartar pendiente: %w", err)
	}
	return nil
}

func (w *Workflow) load(ctx context.Context) (map[string]entity.Product, error) {
	pending := map[string]entity.Product{}
	if _, err := w.state.LoadAppState(ctx, PendingKey, &pending); err != nil {
		return nil, fmt.Errorf("leer pendientes: %w", err)
	}
	if pending == nil {
		pending = map[string]entity.Product{}
	}
	return pending, nil
}

// finalize aplica los datos del operador sobre el producto pendiente.
func finalize(base entity.Product, f Fields) (entity.Product, error) {
	p := base
	if name := strings.TrimSpace(f.Name); name != "" {
		p.Name = name
	}
	if strings.TrimSpace(p.Name) == "" {
		return entity.Product{}, fmt.Errorf("el nombre es obligatorio: %w", domain.ErrInvalidInput)
	}
	if !f.Price.IsPositive() {
		return entity.Product{}, fmt.Errorf("el precio debe ser mayor a cero: %w", domain.ErrInvalidInput)
	}
	p.Price = f.Price
	if f.Category != "" {
		if !f.Category.Valid() {
			return entity.Product{}, fmt.Errorf("categoría %q: %w", f.Category, domain.ErrInvalidInput)
		}
		p.Category = f.Category
	}
	if !p.Category.Valid() {
		p.Category = entity.CategoryOtros
	}
	if f.Brand != "" {
		p.Brand = strings.TrimSpace(f.Brand)
	}
	if f.Stock != nil {
		if *f.Stock < 0 {
			return entity.Product{}, fmt.Errorf("el stock no puede ser negativo: %w", domain.ErrInvalidInput)
		}
		p.Stock = *f.Stock
	}
	p.ID = entity.IDPrefixLocal + uuid.New().String()
	p.NeedsCompletion = false
	p.IsUnknown = false
	p.LastUpdated = 0
	return p, nil
}
