package syncqueue_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nordia-pos/internal/application/syncqueue"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/localstore"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T, opts ...syncqueue.Option) (*syncqueue.Queue, *localstore.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	store, err := localstore.Open(context.Background(), t.TempDir(), localstore.Options{Logger: zerolog.Nop(), Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	opts = append([]syncqueue.Option{syncqueue.WithClock(clock.Now)}, opts...)
	return syncqueue.New(store, opts...), store, clock
}

// recordingSender registra el orden de envío y falla para los ids indicados.
type recordingSender struct {
	mu    sync.Mutex
	order []string
	fail  map[string]error
}

func (s *recordingSender) Send(_ context.Context, e entity.SyncQueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(e.Data, &payload)
	s.order = append(s.order, payload.ID)
	if err, ok := s.fail[payload.ID]; ok {
		return err
	}
	return nil
}

func TestPolicy_Backoff(t *testing.T) {
	p := syncqueue.DefaultPolicy()
	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 30*time.Second, p.Backoff(1))
	assert.Equal(t, time.Minute, p.Backoff(2))
	assert.Equal(t, 2*time.Minute, p.Backoff(3))
	assert.Equal(t, 16*time.Minute, p.Backoff(6))
	assert.Equal(t, 30*time.Minute, p.Backoff(7))
	assert.Equal(t, 30*time.Minute, p.Backoff(40))
}

func TestDrain_OrdenPorPrioridadYAntiguedad(t *testing.T) {
	ctx := context.Background()
	q, _, clock := setup(t)

	enqueue := func(id string, prio entity.SyncPriority) {
		_, err := q.Enqueue(ctx, entity.SyncProduct, map[string]string{"id": id}, prio)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	enqueue("low-1", entity.PriorityLow)
	enqueue("high-1", entity.PriorityHigh)
	enqueue("medium-1", entity.PriorityMedium)
	enqueue("high-2", entity.PriorityHigh)
	enqueue("low-2", entity.PriorityLow)

	sender := &recordingSender{}
	rep, err := q.Drain(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"high-1", "high-2", "medium-1", "low-1", "low-2"}, sender.order)
	assert.Equal(t, 5, rep.Sent)
	assert.Empty(t, q.Entries(ctx))
}

func TestDrain_FallaReprogramaYConservaPayload(t *testing.T) {
	ctx := context.Background()
	q, store, clock := setup(t)

	_, err := q.Enqueue(ctx, entity.SyncSale, map[string]string{"id": "v1"}, entity.PriorityHigh)
	require.NoError(t, err)

	sender := &recordingSender{fail: map[string]error{"v1": errors.New("HTTP 503")}}
	rep, err := q.Drain(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)

	list := store.GetSyncQueue(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].RetryCount)
	assert.Equal(t, "HTTP 503", list[0].LastError)
	assert.Equal(t, clock.Now().Add(30*time.Second).UnixMilli(), list[0].NextAttempt)
	assert.JSONEq(t, `{"id":"v1"}`, string(list[0].Data))

	// Antes del backoff no se reintenta.
	rep, err = q.Drain(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Deferred)
	assert.Equal(t, 0, rep.Attempted)

	clock.Advance(31 * time.Second)
	delete(sender.fail, "v1")
	rep, err = q.Drain(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Sent)
	assert.Empty(t, store.GetSyncQueue(ctx))
}

func TestDrain_ConfirmacionMarcaVentaSincronizada(t *testing.T) {
	ctx := context.Background()
	q, store, clock := setup(t)

	sale, err := entity.NewSaleRecord([]entity.CartItem{{
		Product:  entity.Product{ID: "p1", Name: "Pan", Price: decimal.NewFromInt(800)},
		Quantity: 2,
	}}, entity.PaymentCash, nil, clock.Now())
	require.NoError(t, err)
	require.NoError(t, store.SaveSale(ctx, *sale))
	_, err = q.Enqueue(ctx, entity.SyncSale, sale, entity.PriorityHigh)
	require.NoError(t, err)

	_, err = q.Drain(ctx, &recordingSender{})
	require.NoError(t, err)

	sales := store.GetSales(ctx)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Synced)

	st := q.Pending(ctx)
	assert.Equal(t, 0, st.Total())
	require.NotNil(t, st.LastSync)
	assert.Equal(t, clock.Now().UnixMilli(), st.LastSync.UnixMilli())
}

func TestDrain_AgotaReintentosADeadLetter(t *testing.T) {
	ctx := context.Background()
	q, store, clock := setup(t, syncqueue.WithPolicy(syncqueue.Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: time.Minute}))

	_, err := q.Enqueue(ctx, entity.SyncProduct, map[string]string{"id": "p9"}, entity.PriorityLow)
	require.NoError(t, err)
	sender := &recordingSender{fail: map[string]error{"p9": errors.New("timeout")}}

	for i := 0; i < 3; i++ {
		_, err := q.Drain(ctx, sender)
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}

	assert.Empty(t, store.GetSyncQueue(ctx))
	dead := q.DeadLetter(ctx)
	require.Len(t, dead, 1)
	assert.Equal(t, 3, dead[0].RetryCount)
	assert.JSONEq(t, `{"id":"p9"}`, string(dead[0].Data))
	assert.Equal(t, 1, q.Pending(ctx).DeadLetter)
}

func TestDrain_RechazoVaDirectoADeadLetter(t *testing.T) {
	ctx := context.Background()
	q, _, _ := setup(t)

	_, err := q.Enqueue(ctx, entity.SyncSale, map[string]string{"id": "mala"}, entity.PriorityHigh)
	require.NoError(t, err)
	sender := &recordingSender{fail: map[string]error{"mala": fmt.Errorf("HTTP 400: %w", syncqueue.ErrRejected)}}

	rep, err := q.Drain(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.DeadLettered)
	assert.Empty(t, q.Entries(ctx))
	require.Len(t, q.DeadLetter(ctx), 1)
}

func TestDrain_NoPierdeEntradasEncoladasDuranteElEnvio(t *testing.T) {
	ctx := context.Background()
	q, store, _ := setup(t)

	_, err := q.Enqueue(ctx, entity.SyncSale, map[string]string{"id": "v1"}, entity.PriorityHigh)
	require.NoError(t, err)

	sender := syncqueue.SenderFunc(func(ctx context.Context, e entity.SyncQueueEntry) error {
		_, err := q.Enqueue(ctx, entity.SyncSale, map[string]string{"id": "v2"}, entity.PriorityHigh)
		return err
	})
	_, err = q.Drain(ctx, sender)
	require.NoError(t, err)

	list := store.GetSyncQueue(ctx)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"id":"v2"}`, string(list[0].Data))
}

func TestRequeueYPurge(t *testing.T) {
	ctx := context.Background()
	q, _, clock := setup(t)

	_, err := q.Enqueue(ctx, entity.SyncProduct, map[string]string{"id": "a"}, entity.PriorityLow)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, entity.SyncProduct, map[string]string{"id": "b"}, entity.PriorityLow)
	require.NoError(t, err)
	reject := &recordingSender{fail: map[string]error{
		"a": syncqueue.ErrRejected,
		"b": syncqueue.ErrRejected,
	}}
	_, err = q.Drain(ctx, reject)
	require.NoError(t, err)
	dead := q.DeadLetter(ctx)
	require.Len(t, dead, 2)

	require.NoError(t, q.Requeue(ctx, dead[0].ID))
	entries := q.Entries(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].RetryCount)
	assert.Empty(t, entries[0].LastError)

	clock.Advance(10 * 24 * time.Hour)
	removed, err := q.Purge(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Empty(t, q.DeadLetter(ctx))
	assert.Len(t, q.Entries(ctx), 1, "la purga no toca la cola activa")
}

func TestPending_ContadoresPorTipo(t *testing.T) {
	ctx := context.Background()
	q, _, _ := setup(t)

	for _, typ := range []entity.SyncType{entity.SyncSale, entity.SyncSale, entity.SyncProduct, entity.SyncInventory} {
		_, err := q.Enqueue(ctx, typ, map[string]string{"id": string(typ)}, entity.PriorityMedium)
		require.NoError(t, err)
	}
	st := q.Pending(ctx)
	assert.Equal(t, 2, st.PendingSales)
	assert.Equal(t, 1, st.PendingProducts)
	assert.Equal(t, 1, st.PendingInventory)
	assert.Equal(t, 4, st.Total())
	assert.Nil(t, st.LastSync)
}

func TestRun_DrenaHastaCancelar(t *testing.T) {
	q, store, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := q.Enqueue(ctx, entity.SyncProduct, map[string]string{"id": "x"}, entity.PriorityLow)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, &recordingSender{}, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return len(store.GetSyncQueue(context.Background())) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRun_IntervaloNoPositivoUsaDefault(t *testing.T) {
	q, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Con ctx ya cancelado Run crea el ticker y vuelve en el primer select.
	for _, interval := range []time.Duration{0, -time.Second} {
		var err error
		assert.NotPanics(t, func() { err = q.Run(ctx, &recordingSender{}, interval) })
		assert.NoError(t, err)
	}
}

// blockingSender retiene el primer envío hasta que se cierre release.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (s *blockingSender) Send(ctx context.Context, _ entity.SyncQueueEntry) error {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		close(s.started)
		<-s.release
	}
	return nil
}

func TestDrain_NoSeSolapa(t *testing.T) {
	q, store, _ := setup(t)
	ctx := context.Background()
	_, err := q.Enqueue(ctx, entity.SyncSale, map[string]string{"id": "v-1"}, entity.PriorityHigh)
	require.NoError(t, err)

	sender := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	first := make(chan syncqueue.Report, 1)
	go func() {
		rep, _ := q.Drain(ctx, sender)
		first <- rep
	}()
	<-sender.started

	rep, err := q.Drain(ctx, sender)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Zero(t, rep.Attempted)

	close(sender.release)
	assert.Equal(t, 1, (<-first).Sent)
	assert.Equal(t, 1, sender.calls)
	assert.Empty(t, store.GetSyncQueue(ctx))
}
