// Package events publica eventos de negocio del backend en NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// DefaultSubject subject de ventas registradas.
const DefaultSubject = "sale.created"

// Publisher publica eventos; las fallas no deben impedir registrar la venta.
type Publisher interface {
	SaleCreated(ctx context.Context, sale *entity.SaleRecord) error
	Close()
}

// SaleCreatedEvent cuerpo publicado en DefaultSubject.
type SaleCreatedEvent struct {
	SaleID        string               `json:"sale_id"`
	TerminalID    string               `json:"terminal_id,omitempty"`
	Total         decimal.Decimal      `json:"total"`
	ItemsCount    int                  `json:"items_count"`
	PaymentMethod entity.PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time            `json:"created_at"`
}

// NewSaleCreatedEvent resume la venta para los consumidores.
func NewSaleCreatedEvent(sale *entity.SaleRecord) SaleCreatedEvent {
	return SaleCreatedEvent{
		SaleID:        sale.ID,
		TerminalID:    sale.TerminalID,
		Total:         sale.Total,
		ItemsCount:    sale.ItemsCount(),
		PaymentMethod: sale.PaymentMethod,
		CreatedAt:     sale.CreatedAt,
	}
}

// NATSPublisher publica con nats.go core (sin JetStream).
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// Connect abre la conexión con reconexión indefinida.
func Connect(url, subject string, log zerolog.Logger) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	l := log.With().Str("component", "events").Logger()
	conn, err := nats.Connect(url,
		nats.Name("nordia-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn().Err(err).Msg("NATS desconectado")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconectado")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("conectar a NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject, log: l}, nil
}

func (p *NATSPublisher) SaleCreated(ctx context.Context, sale *entity.SaleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NewSaleCreatedEvent(sale))
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, sale.ID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publicar %s: %w", p.subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn().Err(err).Msg("error al drenar conexión NATS")
	}
}

// Nop descarta los eventos (NATS no configurado).
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) SaleCreated(context.Context, *entity.SaleRecord) error { return nil }
func (Nop) Close()                                               {}
