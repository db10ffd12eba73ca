package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
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

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s, err := Open(context.Background(), t.TempDir(), Options{Logger: zerolog.Nop(), Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func product(id, barcode string, price int64) entity.Product {
	return entity.Product{
		ID: id, Barcode: barcode, Name: "Producto " + id,
		Price: decimal.NewFromInt(price), Stock: 10, Category: entity.CategoryAlmacen,
	}
}

func TestStore_ClavesConNamespace(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, "nordia-products", s.Key(CollectionProducts))
	assert.Equal(t, "nordia-sales", s.Key(CollectionSales))
	assert.Equal(t, "nordia-cart", s.Key(CollectionCart))
	assert.Equal(t, "nordia-sync-queue", s.Key(CollectionSyncQueue))
	assert.Equal(t, "nordia-app-state", s.Key(CollectionAppState))
}

func TestSaveProduct_UpsertPorIDYLastUpdated(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	require.NoError(t, s.SaveProduct(ctx, product("p1", "111", 100)))
	clock.Advance(time.Minute)
	updated := product("p1", "111", 150)
	require.NoError(t, s.SaveProduct(ctx, updated))
	require.NoError(t, s.SaveProduct(ctx, product("p2", "222", 200)))

	list := s.GetProducts(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.True(t, list[0].Price.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, clock.Now().UnixMilli(), list[0].LastUpdated)

	got, err := s.GetProductByBarcode(ctx, "222")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)

	_, err = s.GetProductByBarcode(ctx, "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCart_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	assert.Empty(t, s.GetCart(ctx), "sin carrito guardado se lee vacío")

	cart := []entity.CartItem{
		{Product: product("b", "2", 380), Quantity: 3},
		{Product: product("a", "1", 450), Quantity: 1},
	}
	require.NoError(t, s.SaveCart(ctx, cart))
	assert.Equal(t, cart, s.GetCart(ctx))

	require.NoError(t, s.SaveCart(ctx, nil))
	assert.Empty(t, s.GetCart(ctx))
}

func TestSales_GuardarYMarcarSincronizada(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	sale, err := entity.NewSaleRecord(
		[]entity.CartItem{{Product: product("a", "1", 450), Quantity: 2}},
		entity.PaymentCash, nil, clock.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, s.SaveSale(ctx, *sale))

	sales := s.GetSales(ctx)
	require.Len(t, sales, 1)
	assert.False(t, sales[0].Synced)
	assert.Equal(t, clock.Now().UnixMilli(), sales[0].Timestamp)
	assert.True(t, sales[0].Total.Equal(decimal.NewFromInt(900)))

	require.NoError(t, s.MarkSaleSynced(ctx, sale.ID))
	assert.True(t, s.GetSales(ctx)[0].Synced)
	assert.ErrorIs(t, s.MarkSaleSynced(ctx, "no-existe"), domain.ErrNotFound)
}

func TestSyncQueue_AddAsignaMetadatos(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	entry, err := s.AddToSyncQueue(ctx, entity.SyncSale, json.RawMessage(`{"id":"v1"}`), entity.PriorityHigh)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 0, entry.RetryCount)
	assert.Equal(t, clock.Now().UnixMilli(), entry.Timestamp)

	queue := s.GetSyncQueue(ctx)
	require.Len(t, queue, 1)
	assert.Equal(t, entry.ID, queue[0].ID)
	assert.Equal(t, entity.SyncSale, queue[0].Type)
	assert.JSONEq(t, `{"id":"v1"}`, string(queue[0].Data))

	require.NoError(t, s.UpdateSyncQueue(ctx, func(list []entity.SyncQueueEntry) []entity.SyncQueueEntry {
		return nil
	}))
	assert.Empty(t, s.GetSyncQueue(ctx))
}

func TestAppState_GuardarLeerBorrar(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveAppState(ctx, "last-sync", int64(1234)))
	var v int64
	ok, err := s.LoadAppState(ctx, "last-sync", &v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1234), v)

	require.NoError(t, s.DeleteAppState(ctx, "last-sync"))
	ok, err = s.LoadAppState(ctx, "last-sync", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearOldData_Retencion(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	require.NoError(t, s.SaveProduct(ctx, product("viejo", "1", 10)))
	sale := entity.SaleRecord{ID: "venta-vieja", PaymentMethod: entity.PaymentCash}
	require.NoError(t, s.SaveSale(ctx, sale))

	clock.Advance(40 * 24 * time.Hour)
	require.NoError(t, s.SaveProduct(ctx, product("nuevo", "2", 20)))
	require.NoError(t, s.SaveSale(ctx, entity.SaleRecord{ID: "venta-nueva", PaymentMethod: entity.PaymentCard}))

	require.NoError(t, s.ClearOldData(ctx, 0))

	cutoff := clock.Now().Add(-DefaultRetention).UnixMilli()
	products := s.GetProducts(ctx)
	require.Len(t, products, 1)
	assert.Equal(t, "nuevo", products[0].ID)
	for _, p := range products {
		assert.Greater(t, p.LastUpdated, cutoff)
	}
	sales := s.GetSales(ctx)
	require.Len(t, sales, 1)
	assert.Equal(t, "venta-nueva", sales[0].ID)
}

func TestStatsYClearStorage(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveProduct(ctx, product("p1", "1", 10)))
	require.NoError(t, s.SaveCart(ctx, []entity.CartItem{{Product: product("p1", "1", 10), Quantity: 1}}))

	st := s.Stats(ctx)
	raw, ok, err := s.getRaw(ctx, CollectionProducts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, len(raw), st.Breakdown[CollectionProducts])
	assert.Equal(t, 0, st.Breakdown[CollectionSales])
	assert.Equal(t, st.Breakdown[CollectionProducts]+st.Breakdown[CollectionCart], st.Total)
	assert.NotEmpty(t, st.Formatted)

	require.NoError(t, s.ClearStorage(ctx))
	assert.Equal(t, 0, s.Stats(ctx).Total)
	assert.Empty(t, s.GetProducts(ctx))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 Bytes", FormatBytes(0))
	assert.Equal(t, "512 Bytes", FormatBytes(512))
	assert.Equal(t, "1 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "1 MB", FormatBytes(1024*1024))
}

func TestLecturaCorrupta_DevuelveVacio(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.setRaw(ctx, CollectionProducts, "{no es json"))
	assert.Empty(t, s.GetProducts(ctx))
	_, err := s.GetProductByBarcode(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Una escritura posterior reemplaza el documento corrupto.
	require.NoError(t, s.SaveProduct(ctx, product("p1", "1", 10)))
	assert.Len(t, s.GetProducts(ctx), 1)
}

func TestSaveProduct_EscritoresConcurrentes(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SaveProduct(ctx, product(fmt.Sprintf("p%d", i), fmt.Sprintf("%d", i), 10)))
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.GetProducts(ctx), 20)
}
