// Package resolver convierte un código de barras en un producto sellable o en un
// producto a completar, consultando en orden cache, catálogo local y proveedores remotos.
package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// DefaultProviderTimeout límite por proveedor cuando no se configura uno propio.
const DefaultProviderTimeout = 8 * time.Second

// Outcome resultado de consultar una fuente.
type Outcome string

const (
	OutcomeHit    Outcome = "hit"
	OutcomeMiss   Outcome = "miss"
	OutcomeFailed Outcome = "failed"
)

// Attempt registro de la consulta a una fuente.
type Attempt struct {
	Source   Source        `json:"source"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result producto resuelto, su origen y el detalle de las fuentes consultadas.
type Result struct {
	Product    entity.Product `json:"product"`
	Source     Source         `json:"source"`
	Confidence float64        `json:"confidence"`
	Attempts   []Attempt      `json:"attempts"`
}

// NeedsCompletion indica si el operador debe completar datos antes de vender.
func (r Result) NeedsCompletion() bool {
	return r.Product.NeedsCompletion
}

// Option configura un Resolver.
type Option func(*Resolver)

// WithTimeout fija el límite de tiempo de un proveedor.
func WithTimeout(source Source, d time.Duration) Option {
	return func(r *Resolver) { r.timeouts[source] = d }
}

// WithEnqueuer encola los productos aprendidos de fuentes públicas para enviarlos a la tienda.
func WithEnqueuer(q Enqueuer) Option {
	return func(r *Resolver) { r.queue = q }
}

// WithObserver registra métricas de resolución.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.obs = o }
}

// WithLogger reemplaza el logger (por defecto zerolog.Nop).
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l.With().Str("component", "resolver").Logger() }
}

// WithClock reemplaza el reloj usado para medir duraciones.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// Resolver cadena ordenada de fuentes de producto.
type Resolver struct {
	cache     *Cache
	local     LocalCatalog
	providers []Provider
	timeouts  map[Source]time.Duration
	queue     Enqueuer
	obs       Observer
	log       zerolog.Logger
	now       func() time.Time
}

// New construye el resolver. Los proveedores se consultan en el orden recibido.
func New(cache *Cache, local LocalCatalog, providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{
		cache:     cache,
		local:     local,
		providers: providers,
		timeouts:  make(map[Source]time.Duration),
		obs:       nopObserver{},
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache devuelve el cache compartido del resolver.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve nunca devuelve error: si ninguna fuente conoce el código, el resultado es un
// producto desconocido a completar. Las fallas de cada fuente quedan en Attempts.
func (r *Resolver) Resolve(ctx context.Context, barcode string) Result {
	start := r.now()
	barcode = strings.TrimSpace(barcode)
	res := r.resolve(ctx, barcode)
	r.obs.ObserveResolution(res.Source, r.now().Sub(start))
	r.log.Info().
		Str("barcode", barcode).
		Str("source", string(res.Source)).
		Bool("needs_completion", res.NeedsCompletion()).
		Int("attempts", len(res.Attempts)).
		Msg("código resuelto")
	return res
}

func (r *Resolver) resolve(ctx context.Context, barcode string) Result {
	var attempts []Attempt
	if barcode == "" {
		return unknownResult(barcode, attempts)
	}

	if r.cache != nil {
		t0 := r.now()
		if p, ok := r.cache.Get(barcode); ok {
			attempts = r.record(attempts, SourceCache, OutcomeHit, nil, t0)
			return Result{Product: p, Source: SourceCache, Confidence: 1, Attempts: attempts}
		}
		attempts = r.record(attempts, SourceCache, OutcomeMiss, nil, t0)
	}

	if r.local != nil {
		t0 := r.now()
		p, err := r.local.GetProductByBarcode(ctx, barcode)
		switch {
		case err == nil && p != nil:
			attempts = r.record(attempts, SourceLocal, OutcomeHit, nil, t0)
			r.cacheSet(barcode, *p)
			return Result{Product: *p, Source: SourceLocal, Confidence: 1, Attempts: attempts}
		case err == nil || errors.Is(err, domain.ErrNotFound):
			attempts = r.record(attempts, SourceLocal, OutcomeMiss, nil, t0)
		default:
			attempts = r.record(attempts, SourceLocal, OutcomeFailed, err, t0)
		}
	}

	for _, pr := range r.providers {
		if ctx.Err() != nil {
			break
		}
		t0 := r.now()
		m, err := r.lookup(ctx, pr, barcode)
		switch {
		case err == nil && m != nil:
			attempts = r.record(attempts, pr.Source(), OutcomeHit, nil, t0)
			r.learn(ctx, pr.Source(), m.Product)
			return Result{Product: m.Product, Source: pr.Source(), Confidence: m.Confidence, Attempts: attempts}
		case err == nil || errors.Is(err, domain.ErrNotFound):
			attempts = r.record(attempts, pr.Source(), OutcomeMiss, nil, t0)
		default:
			attempts = r.record(attempts, pr.Source(), OutcomeFailed, err, t0)
		}
	}

	return unknownResult(barcode, attempts)
}

func (r *Resolver) lookup(ctx context.Context, pr Provider, barcode string) (*Match, error) {
	d, ok := r.timeouts[pr.Source()]
	if !ok || d <= 0 {
		d = DefaultProviderTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return pr.Lookup(cctx, barcode)
}

// learn persiste y cachea un producto obtenido de un proveedor. Los productos de
// fuentes públicas además se encolan para que la tienda los conozca.
func (r *Resolver) learn(ctx context.Context, source Source, p entity.Product) {
	if r.local != nil {
		if err := r.local.SaveProduct(ctx, p); err != nil {
			r.log.Error().Err(err).Str("barcode", p.Barcode).Msg("no se pudo guardar producto resuelto")
		}
	}
	r.cacheSet(p.Barcode, p)
	if r.queue == nil || source == SourceBackend {
		return
	}
	if _, err := r.queue.Enqueue(ctx, entity.SyncProduct, p, entity.PriorityLow); err != nil {
		r.log.Error().Err(err).Str("barcode", p.Barcode).Msg("no se pudo encolar producto resuelto")
	}
}

func (r *Resolver) cacheSet(barcode string, p entity.Product) {
	if r.cache != nil && barcode != "" {
		r.cache.Set(barcode, p)
	}
}

func (r *Resolver) record(attempts []Attempt, source Source, outcome Outcome, err error, t0 time.Time) []Attempt {
	a := Attempt{Source: source, Outcome: outcome, Duration: r.now().Sub(t0)}
	if err != nil {
		a.Error = err.Error()
		r.log.Warn().Err(err).Str("source", string(source)).Msg("fuente de productos falló")
	}
	r.obs.ObserveAttempt(source, outcome)
	return append(attempts, a)
}

func unknownResult(barcode string, attempts []Attempt) Result {
	return Result{
		Product:  *entity.NewUnknownProduct(barcode),
		Source:   SourceUnknown,
		Attempts: attempts,
	}
}
