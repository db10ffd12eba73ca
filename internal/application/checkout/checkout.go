// Package checkout contiene el carrito en curso y el cobro: la venta se guarda localmente,
// se intenta enviar a la tienda y, sin conexión, queda en la cola de sincronización.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// DefaultSendTimeout límite del envío directo de la venta al cobrar.
const DefaultSendTimeout = 5 * time.Second

// SaleStore ventas locales.
type SaleStore interface {
	SaveSale(ctx context.Context, sale entity.SaleRecord) error
	MarkSaleSynced(ctx context.Context, id string) error
}

// SaleSender envío directo a la tienda.
type SaleSender interface {
	SendSale(ctx context.Context, sale entity.SaleRecord) error
}

// Enqueuer cola de sincronización.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ entity.SyncType, payload any, priority entity.SyncPriority) (entity.SyncQueueEntry, error)
}

// Observer métricas de cobro.
type Observer interface {
	ObserveCheckout(method entity.PaymentMethod, sentDirectly bool)
}

type nopObserver struct{}

func (nopObserver) ObserveCheckout(entity.PaymentMethod, bool) {}

// Config parámetros del servicio.
type Config struct {
	TerminalID  string
	SendTimeout time.Duration
	Now         func() time.Time
	Observer    Observer
}

// Outcome resultado del cobro.
type Outcome struct {
	Sale         entity.SaleRecord `json:"sale"`
	SentDirectly bool              `json:"sent_directly"`
	QueueEntryID string            `json:"queue_entry_id,omitempty"`
}

// Service cobro del carrito.
type Service struct {
	cart   *CartSession
	sales  SaleStore
	sender SaleSender
	queue  Enqueuer
	cfg    Config
	log    zerolog.Logger
}

// NewService construye el servicio. sender nil desactiva el envío directo.
func NewService(cart *CartSession, sales SaleStore, sender SaleSender, queue Enqueuer, cfg Config, log zerolog.Logger) *Service {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Service{
		cart:   cart,
		sales:  sales,
		sender: sender,
		queue:  queue,
		cfg:    cfg,
		log:    log.With().Str("component", "checkout").Logger(),
	}
}

// Checkout cobra el carrito. La venta se arma y se guarda sin soltar el carrito, así lo que
// se escanee en paralelo no se pierde. Si la venta se guardó pero no pudo encolarse devuelve
// el Outcome junto con el error; en cualquier otro error el carrito queda intacto.
func (s *Service) Checkout(ctx context.Context, method entity.PaymentMethod, customer *entity.CustomerInfo) (*Outcome, error) {
	var sale *entity.SaleRecord
	err := s.cart.Settle(ctx, func(items []entity.CartItem) error {
		var err error
		sale, err = entity.NewSaleRecord(items, method, customer, s.cfg.Now())
		if err != nil {
			return err
		}
		sale.TerminalID = s.cfg.TerminalID
		if err := s.sales.SaveSale(ctx, *sale); err != nil {
			return fmt.Errorf("guardar venta: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := &Outcome{Sale: *sale}

	if s.sender != nil {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err := s.sender.SendSale(sctx, *sale)
		cancel()
		if err == nil {
			out.SentDirectly = true
			out.Sale.Synced = true
			if err := s.sales.MarkSaleSynced(ctx, sale.ID); err != nil {
				s.log.Error().Err(err).Str("sale_id", sale.ID).Msg("no se pudo marcar la venta como sincronizada")
			}
			s.cfg.Observer.ObserveCheckout(method, true)
			s.log.Info().Str("sale_id", sale.ID).Str("total", sale.Total.String()).Msg("venta enviada a la tienda")
			return out, nil
		}
		s.log.Warn().Err(err).Str("sale_id", sale.ID).Msg("tienda no disponible, la venta queda en cola")
	}

	entry, err := s.queue.Enqueue(ctx, entity.SyncSale, sale, entity.PriorityHigh)
	if err != nil {
		return out, fmt.Errorf("venta %s guardada pero no encolada: %w", sale.ID, err)
	}
	out.QueueEntryID = entry.ID
	s.cfg.Observer.ObserveCheckout(method, false)
	s.log.Info().Str("sale_id", sale.ID).Str("entry_id", entry.ID).Str("total", sale.Total.String()).Msg("venta registrada offline")
	return out, nil
}
