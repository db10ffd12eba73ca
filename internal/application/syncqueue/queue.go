// Package syncqueue administra la cola de mutaciones offline: encolado, envío por
// prioridad con reintentos exponenciales, dead-letter y purga explícita.
package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// ErrRejected la tienda rechazó la entrada de forma definitiva (no tiene sentido reintentar).
var ErrRejected = errors.New("entrada rechazada por la tienda")

// LastSyncKey clave de estado con la hora (epoch ms) del último envío confirmado.
const LastSyncKey = "last-sync"

// Store persistencia de la cola; la implementa localstore.Store.
type Store interface {
	AddToSyncQueue(ctx context.Context, typ entity.SyncType, data json.RawMessage, priority entity.SyncPriority) (entity.SyncQueueEntry, error)
	GetSyncQueue(ctx context.Context) []entity.SyncQueueEntry
	UpdateSyncQueue(ctx context.Context, fn func([]entity.SyncQueueEntry) []entity.SyncQueueEntry) error
	AddToDeadLetter(ctx context.Context, entries ...entity.SyncQueueEntry) error
	GetDeadLetter(ctx context.Context) []entity.SyncQueueEntry
	UpdateDeadLetter(ctx context.Context, fn func([]entity.SyncQueueEntry) []entity.SyncQueueEntry) error
	MarkSaleSynced(ctx context.Context, id string) error
	SaveAppState(ctx context.Context, key string, value any) error
	LoadAppState(ctx context.Context, key string, out any) (bool, error)
}

// Sender envía una entrada a la tienda. nil significa confirmada.
// Un error que envuelve ErrRejected pasa directo a dead-letter.
type Sender interface {
	Send(ctx context.Context, entry entity.SyncQueueEntry) error
}

// SenderFunc adapta una función a Sender.
type SenderFunc func(ctx context.Context, entry entity.SyncQueueEntry) error

func (f SenderFunc) Send(ctx context.Context, entry entity.SyncQueueEntry) error { return f(ctx, entry) }

// Observer métricas de drenado.
type Observer interface {
	ObserveSync(typ entity.SyncType, result string)
	SetQueueDepth(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveSync(entity.SyncType, string) {}
func (nopObserver) SetQueueDepth(int)                   {}

// Policy política de reintentos.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy 8 intentos, espera 30s × 2^(n-1) con tope de 30 minutos.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 8, BaseDelay: 30 * time.Second, MaxDelay: 30 * time.Minute}
}

// Backoff espera antes del próximo intento tras retryCount fallas (retryCount >= 1).
func (p Policy) Backoff(retryCount int) time.Duration {
	if retryCount < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < retryCount; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Report resumen de un drenado.
type Report struct {
	Attempted    int `json:"attempted"`
	Sent         int `json:"sent"`
	Failed       int `json:"failed"`
	DeadLettered int `json:"dead_lettered"`
	Deferred     int `json:"deferred"`
	// Skipped otro drenado estaba en curso; no se intentó nada.
	Skipped bool `json:"skipped,omitempty"`
}

// SyncStatus contadores de pendientes por tipo.
type SyncStatus struct {
	PendingSales     int        `json:"pending_sales"`
	PendingProducts  int        `json:"pending_products"`
	PendingInventory int        `json:"pending_inventory"`
	DeadLetter       int        `json:"dead_letter"`
	LastSync         *time.Time `json:"last_sync,omitempty"`
}

// Total entradas en la cola.
func (s SyncStatus) Total() int {
	return s.PendingSales + s.PendingProducts + s.PendingInventory
}

// Queue servicio de la cola de sincronización.
type Queue struct {
	draining sync.Mutex

	store  Store
	policy Policy
	now    func() time.Time
	log    zerolog.Logger
	obs    Observer
}

// Option configura la cola.
type Option func(*Queue)

// WithPolicy reemplaza DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(q *Queue) { q.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func WithObserver(o Observer) Option {
	return func(q *Queue) { q.obs = o }
}

func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.log = l.With().Str("component", "syncqueue").Logger() }
}

// New construye la cola sobre store.
func New(store Store, opts ...Option) *Queue {
	q := &Queue{
		store:  store,
		policy: DefaultPolicy(),
		now:    time.Now,
		log:    zerolog.Nop(),
		obs:    nopObserver{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue serializa payload y lo agrega a la cola.
func (q *Queue) Enqueue(ctx context.Context, typ entity.SyncType, payload any, priority entity.SyncPriority) (entity.SyncQueueEntry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return entity.SyncQueueEntry{}, fmt.Errorf("serializar payload %s: %w", typ, err)
	}
	entry, err := q.store.AddToSyncQueue(ctx, typ, data, priority)
	if err != nil {
		return entity.SyncQueueEntry{}, fmt.Errorf("encolar %s: %w", typ, err)
	}
	q.log.Info().Str("id", entry.ID).Str("type", string(typ)).Str("priority", string(priority)).Msg("mutación encolada")
	return entry, nil
}

// Entries devuelve la cola en el orden en que se enviaría.
func (q *Queue) Entries(ctx context.Context) []entity.SyncQueueEntry {
	list := q.store.GetSyncQueue(ctx)
	sortByPriority(list)
	return list
}

// DeadLetter devuelve las entradas que agotaron sus reintentos o fueron rechazadas.
func (q *Queue) DeadLetter(ctx context.Context) []entity.SyncQueueEntry {
	return q.store.GetDeadLetter(ctx)
}

type outcome struct {
	err  error
	dead bool
}

// Drain intenta enviar cada entrada vencida, de mayor a menor prioridad y de más vieja a más nueva.
// Las confirmadas salen de la cola; las fallidas incrementan retryCount y reprograman su próximo
// intento; las que agotan reintentos o son rechazadas pasan a dead-letter antes de salir de la cola.
// Un solo drenado a la vez: si hay otro en curso vuelve enseguida con Skipped.
func (q *Queue) Drain(ctx context.Context, sender Sender) (Report, error) {
	if !q.draining.TryLock() {
		q.log.Debug().Msg("drenado en curso, se omite")
		return Report{Skipped: true}, nil
	}
	defer q.draining.Unlock()

	var rep Report
	now := q.now()
	pending := q.Entries(ctx)

	results := make(map[string]outcome, len(pending))
	var dead []entity.SyncQueueEntry
	for _, e := range pending {
		if ctx.Err() != nil {
			break
		}
		if !e.Due(now) {
			rep.Deferred++
			continue
		}
		rep.Attempted++
		err := sender.Send(ctx, e)
		if err == nil {
			rep.Sent++
			results[e.ID] = outcome{}
			q.obs.ObserveSync(e.Type, "sent")
			q.acknowledge(ctx, e)
			continue
		}

		failed := q.fail(e, err, now)
		isDead := errors.Is(err, ErrRejected) || failed.RetryCount >= q.policy.MaxRetries
		results[e.ID] = outcome{err: err, dead: isDead}
		if isDead {
			rep.DeadLettered++
			dead = append(dead, failed)
			q.obs.ObserveSync(e.Type, "dead_letter")
			q.log.Error().Err(err).Str("id", e.ID).Str("type", string(e.Type)).Int("retry_count", failed.RetryCount).Msg("entrada enviada a dead-letter")
		} else {
			rep.Failed++
			q.obs.ObserveSync(e.Type, "failed")
			q.log.Warn().Err(err).Str("id", e.ID).Int("retry_count", failed.RetryCount).Msg("envío fallido, se reintentará")
		}
	}

	// Lo ya enviado se registra aunque ctx se haya cancelado.
	wctx := context.WithoutCancel(ctx)
	// Primero dead-letter: ante una caída intermedia la entrada queda duplicada, nunca perdida.
	if err := q.store.AddToDeadLetter(wctx, dead...); err != nil {
		return rep, fmt.Errorf("guardar dead-letter: %w", err)
	}
	err := q.store.UpdateSyncQueue(wctx, func(list []entity.SyncQueueEntry) []entity.SyncQueueEntry {
		out := list[:0]
		for _, e := range list {
			res, tried := results[e.ID]
			switch {
			case !tried:
				out = append(out, e)
			case res.err == nil || res.dead:
				// confirmada o ya en dead-letter
			default:
				out = append(out, q.fail(e, res.err, now))
			}
		}
		q.obs.SetQueueDepth(len(out))
		return out
	})
	if err != nil {
		return rep, fmt.Errorf("actualizar cola: %w", err)
	}

	if rep.Sent > 0 {
		if err := q.store.SaveAppState(wctx, LastSyncKey, now.UnixMilli()); err != nil {
			q.log.Error().Err(err).Msg("no se pudo registrar la última sincronización")
		}
	}
	if rep.Attempted > 0 {
		q.log.Info().
			Int("sent", rep.Sent).
			Int("failed", rep.Failed).
			Int("dead_lettered", rep.DeadLettered).
			Int("deferred", rep.Deferred).
			Msg("cola drenada")
	}
	return rep, ctx.Err()
}

func (q *Queue) fail(e entity.SyncQueueEntry, err error, now time.Time) entity.SyncQueueEntry {
	e.RetryCount++
	e.LastError = err.Error()
	e.LastAttempt = now.UnixMilli()
	e.NextAttempt = now.Add(q.policy.Backoff(e.RetryCount)).UnixMilli()
	return e
}

// acknowledge marca como sincronizada la venta local de una entrada confirmada.
func (q *Queue) acknowledge(ctx context.Context, e entity.SyncQueueEntry) {
	if e.Type != entity.SyncSale {
		return
	}
	var sale struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(e.Data, &sale); err != nil || sale.ID == "" {
		q.log.Warn().Str("id", e.ID).Msg("venta confirmada sin id legible")
		return
	}
	if err := q.store.MarkSaleSynced(ctx, sale.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		q.log.Error().Err(err).Str("sale_id", sale.ID).Msg("no se pudo marcar la venta como sincronizada")
	}
}

// Pending cuenta pendientes por tipo y lee la última sincronización.
func (q *Queue) Pending(ctx context.Context) SyncStatus {
	var st SyncStatus
	for _, e := range q.store.GetSyncQueue(ctx) {
		switch e.Type {
		case entity.SyncSale:
			st.PendingSales++
		case entity.SyncProduct:
			st.PendingProducts++
		case entity.SyncInventory:
			st.PendingInventory++
		}
	}
	st.DeadLetter = len(q.store.GetDeadLetter(ctx))
	var ms int64
	if ok, err := q.store.LoadAppState(ctx, LastSyncKey, &ms); err == nil && ok {
		t := time.UnixMilli(ms)
		st.LastSync = &t
	}
	return st
}

// Purge elimina de dead-letter las entradas encoladas hace más de maxAge.
// Es la única operación que descarta mutaciones.
func (q *Queue) Purge(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := q.now().Add(-maxAge).UnixMilli()
	removed := 0
	err := q.store.UpdateDeadLetter(ctx, func(list []entity.SyncQueueEntry) []entity.SyncQueueEntry {
		out := list[:0]
		for _, e := range list {
			if e.Timestamp < cutoff {
				removed++
				continue
			}
			out = append(out, e)
		}
		return out
	})
	if err != nil {
		return 0, fmt.Errorf("purgar dead-letter: %w", err)
	}
	if removed > 0 {
		q.log.Warn().Int("removed", removed).Dur("max_age", maxAge).Msg("dead-letter purgada")
	}
	return removed, nil
}

// Requeue devuelve una entrada de dead-letter a la cola con los reintentos en cero.
func (q *Queue) Requeue(ctx context.Context, id string) error {
	var found *entity.SyncQueueEntry
	err := q.store.UpdateDeadLetter(ctx, func(list []entity.SyncQueueEntry) []entity.SyncQueueEntry {
		out := list[:0]
		for _, e := range list {
			if e.ID == id && found == nil {
				e := e
				found = &e
				continue
			}
			out = append(out, e)
		}
		return out
	})
	if err != nil {
		return fmt.Errorf("leer dead-letter: %w", err)
	}
	if found == nil {
		return fmt.Errorf("entrada %s: %w", id, domain.ErrNotFound)
	}
	found.RetryCount, found.LastError, found.NextAttempt = 0, "", 0
	return q.store.UpdateSyncQueue(ctx, func(list []entity.SyncQueueEntry) []entity.SyncQueueEntry {
		return append(list, *found)
	})
}

// DefaultInterval período de drenado cuando Run recibe un intervalo no positivo.
const DefaultInterval = 30 * time.Second

// Run drena la cola cada interval hasta que ctx se cancele.
func (q *Queue) Run(ctx context.Context, sender Sender, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := q.Drain(ctx, sender); err != nil && ctx.Err() == nil {
			q.log.Error().Err(err).Msg("error drenando la cola")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func sortByPriority(list []entity.SyncQueueEntry) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := list[i].Priority.Rank(), list[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return list[i].Timestamp < list[j].Timestamp
	})
}
