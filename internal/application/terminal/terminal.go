// Package terminal orquesta los casos de uso de la caja: escanear, completar, cobrar y sincronizar.
// Lo consumen el CLI y la API local.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/nordia-pos/internal/application/checkout"
	"github.com/jhoicas/nordia-pos/internal/application/completion"
	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/application/syncqueue"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// ScanResult resultado de escanear un código.
type ScanResult struct {
	Resolution  resolver.Result      `json:"resolution"`
	AddedToCart bool                 `json:"added_to_cart"`
	Pending     bool                 `json:"pending_completion"`
	Cart        checkout.CartSummary `json:"cart"`
}

// Terminal fachada de la caja.
type Terminal struct {
	resolver   *resolver.Resolver
	completion *completion.Workflow
	cart       *checkout.CartSession
	checkout   *checkout.Service
	queue      *syncqueue.Queue
	sender     syncqueue.Sender
	log        zerolog.Logger
}

// Deps dependencias ya construidas. Sender nil deja la terminal en modo solo-offline.
type Deps struct {
	Resolver   *resolver.Resolver
	Completion *completion.Workflow
	Cart       *checkout.CartSession
	Checkout   *checkout.Service
	Queue      *syncqueue.Queue
	Sender     syncqueue.Sender
	Logger     zerolog.Logger
}

// New construye la fachada.
func New(d Deps) *Terminal {
	return &Terminal{
		resolver:   d.Resolver,
		completion: d.Completion,
		cart:       d.Cart,
		checkout:   d.Checkout,
		queue:      d.Queue,
		sender:     d.Sender,
		log:        d.Logger.With().Str("component", "terminal").Logger(),
	}
}

// Scan resuelve el código; si el producto es sellable lo agrega al carrito, si no lo deja pendiente.
func (t *Terminal) Scan(ctx context.Context, barcode string) (*ScanResult, error) {
	res := t.resolver.Resolve(ctx, barcode)
	out := &ScanResult{Resolution: res}

	if res.NeedsCompletion() {
		pending, err := t.completion.Begin(ctx, res)
		if err != nil {
			return nil, err
		}
		out.Pending = pending
	} else {
		if err := t.cart.Add(ctx, res.Product); err != nil {
			return nil, fmt.Errorf("agregar al carrito: %w", err)
		}
		out.AddedToCart = true
	}
	out.Cart = t.cart.Summary()
	return out, nil
}

// Complete completa un pendiente y lo agrega al carrito.
func (t *Terminal) Complete(ctx context.Context, barcode string, f completion.Fields) (*entity.Product, error) {
	return t.completion.Submit(ctx, barcode, f)
}

// CancelCompletion descarta un pendiente.
func (t *Terminal) CancelCompletion(ctx context.Context, barcode string) error {
	return t.completion.Cancel(ctx, barcode)
}

// PendingCompletions productos pendientes.
func (t *Terminal) PendingCompletions(ctx context.Context) ([]entity.Product, error) {
	return t.completion.Pending(ctx)
}

func (t *Terminal) Cart() checkout.CartSummary { return t.cart.Summary() }

func (t *Terminal) UpdateQuantity(ctx context.Context, productID string, n int) (checkout.CartSummary, error) {
	if err := t.cart.UpdateQuantity(ctx, productID, n); err != nil {
		return checkout.CartSummary{}, err
	}
	return t.cart.Summary(), nil
}

func (t *Terminal) RemoveItem(ctx context.Context, productID string) (checkout.CartSummary, error) {
	if err := t.cart.Remove(ctx, productID); err != nil {
		return checkout.CartSummary{}, err
	}
	return t.cart.Summary(), nil
}

func (t *Terminal) ClearCart(ctx context.Context) error { return t.cart.Clear(ctx) }

// Checkout cobra el carrito.
func (t *Terminal) Checkout(ctx context.Context, method entity.PaymentMethod, customer *entity.CustomerInfo) (*checkout.Outcome, error) {
	return t.checkout.Checkout(ctx, method, customer)
}

// ErrOffline no hay backend configurado para sincronizar.
var ErrOffline = errors.New("terminal sin backend configurado")

// Sync drena la cola una vez.
func (t *Terminal) Sync(ctx context.Context) (syncqueue.Report, error) {
	if t.sender == nil {
		return syncqueue.Report{}, ErrOffline
	}
	return t.queue.Drain(ctx, t.sender)
}

// RunSync drena periódicamente hasta que ctx se cancele. Sin backend espera la cancelación.
func (t *Terminal) RunSync(ctx context.Context, interval time.Duration) error {
	if t.sender == nil {
		t.log.Warn().Msg("sin backend: la cola se acumula hasta configurar pos.backend_url")
		<-ctx.Done()
		return nil
	}
	return t.queue.Run(ctx, t.sender, interval)
}

// SyncStatus pendientes de la cola.
func (t *Terminal) SyncStatus(ctx context.Context) syncqueue.SyncStatus {
	return t.queue.Pending(ctx)
}

// Queue acceso a la cola para operaciones de mantenimiento (requeue, purge).
func (t *Terminal) Queue() *syncqueue.Queue { return t.queue }

// IsNotFound ayuda a la capa de presentación a mapear errores.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNoPendingCompletion)
}
