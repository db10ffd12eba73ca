package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/domain/repository"
)

// ── Fakes en memoria ──

type memProducts struct {
	mu   sync.Mutex
	byID map[string]entity.Product
}

func newMemProducts() *memProducts { return &memProducts{byID: map[string]entity.Product{}} }

func (m *memProducts) Upsert(_ context.Context, p *entity.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.byID {
		if p.Barcode != "" && other.Barcode == p.Barcode && id != p.ID {
			return domain.ErrDuplicate
		}
	}
	p.LastUpdated = time.Now().UnixMilli()
	m.byID[p.ID] = *p
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memProducts) GetByBarcode(_ context.Context, barcode string) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memProducts) all(filter func(entity.Product) bool) []*entity.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Product
	for _, p := range m.byID {
		if filter(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *memProducts) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	all := m.all(func(entity.Product) bool { return true })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memProducts) ListByCategory(_ context.Context, c entity.Category) ([]*entity.Product, error) {
	return m.all(func(p entity.Product) bool { return p.Category == c }), nil
}

func (m *memProducts) Search(_ context.Context, q string, limit int) ([]*entity.Product, error) {
	q = strings.ToLower(q)
	out := m.all(func(p entity.Product) bool { return strings.Contains(strings.ToLower(p.Name), q) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memProducts) UpdateStock(_ context.Context, id string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Stock = stock
	m.byID[id] = p
	return nil
}

type memSales struct {
	mu   sync.Mutex
	byID map[string]entity.SaleRecord
}

func newMemSales() *memSales { return &memSales{byID: map[string]entity.SaleRecord{}} }

func (m *memSales) Create(_ context.Context, s *entity.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[s.ID]; ok {
		return domain.ErrDuplicate
	}
	m.byID[s.ID] = *s
	return nil
}

func (m *memSales) GetByID(_ context.Context, id string) (*entity.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *memSales) List(_ context.Context, limit, offset int) ([]*entity.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.SaleRecord
	for _, s := range m.byID {
		s := s
		out = append(out, &s)
	}
	return out, nil
}

func (m *memSales) SummaryBetween(_ context.Context, from, to time.Time) (repository.SalesSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := repository.SalesSummary{Revenue: decimal.Zero}
	for _, s := range m.byID {
		if !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			sum.Revenue = sum.Revenue.Add(s.Total)
			sum.Transactions++
		}
	}
	return sum, nil
}

type memTx struct {
	products *memProducts
	sales    *memSales
}

func (t memTx) Run(_ context.Context, fn func(repository.ProductRepository, repository.SaleRepository) error) error {
	return fn(t.products, t.sales)
}

type recordingEvents struct {
	ids []string
	err error
}

func (r *recordingEvents) SaleCreated(_ context.Context, s *entity.SaleRecord) error {
	r.ids = append(r.ids, s.ID)
	return r.err
}

type countingObserver map[string]int

func (c countingObserver) ObserveSaleReceived(result string) { c[result]++ }

// ── Productos ──

func TestProductUseCase_UpsertPorBarcodeExistente(t *testing.T) {
	ctx := context.Background()
	uc := NewProductUseCase(newMemProducts())

	first, err := uc.Upsert(ctx, dto.UpsertProductRequest{
		ID: "mock-1", Barcode: "7790895001234", Name: "Coca Cola 500ml",
		Price: decimal.NewFromInt(450), Stock: 48, Category: "Bebidas",
	})
	require.NoError(t, err)
	assert.Equal(t, "bebidas", first.Category)

	// La terminal completó el mismo código con un ID local.
	second, err := uc.Upsert(ctx, dto.UpsertProductRequest{
		ID: "local-abc", Barcode: "7790895001234", Name: "Coca Cola 500 ml",
		Price: decimal.NewFromInt(480), Stock: 40, Category: "bebidas",
	})
	require.NoError(t, err)
	assert.Equal(t, "mock-1", second.ID)

	got, err := uc.GetByBarcode(ctx, "7790895001234")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(480)))
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestProductUseCase_Validaciones(t *testing.T) {
	ctx := context.Background()
	uc := NewProductUseCase(newMemProducts())

	_, err := uc.Upsert(ctx, dto.UpsertProductRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Upsert(ctx, dto.UpsertProductRequest{Name: "x", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.GetByBarcode(ctx, "000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.GetByID(ctx, "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.ListByCategory(ctx, "juguetes")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Search(ctx, " ", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.ErrorIs(t, uc.UpdateStock(ctx, "nada", dto.UpdateStockRequest{Stock: 3}), domain.ErrNotFound)
	assert.ErrorIs(t, uc.UpdateStock(ctx, "nada", dto.UpdateStockRequest{Stock: -3}), domain.ErrInvalidInput)
}

func TestProductUseCase_ListadosYStock(t *testing.T) {
	ctx := context.Background()
	uc := NewProductUseCase(newMemProducts())
	for _, in := range []dto.UpsertProductRequest{
		{ID: "1", Name: "Leche Entera", Price: decimal.NewFromInt(890), Category: "lacteos"},
		{ID: "2", Name: "Yogur Frutilla", Price: decimal.NewFromInt(520), Category: "Lácteos"},
		{ID: "3", Name: "Agua Mineral", Price: decimal.NewFromInt(380), Category: "bebidas"},
	} {
		_, err := uc.Upsert(ctx, in)
		require.NoError(t, err)
	}

	lac, err := uc.ListByCategory(ctx, "LACTEOS")
	require.NoError(t, err)
	assert.Len(t, lac.Items, 2)

	found, err := uc.Search(ctx, "agua", 10)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "3", found.Items[0].ID)

	require.NoError(t, uc.UpdateStock(ctx, "3", dto.UpdateStockRequest{Stock: 12}))
	p, err := uc.GetByID(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 12, p.Stock)

	page, err := uc.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

// ── Ventas ──

func saleRequest(id string) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		ID: id,
		Items: []dto.SaleItemDTO{
			{ProductID: "mock-1", ProductName: "Coca Cola 500ml", Quantity: 2, UnitPrice: decimal.NewFromInt(450), TotalPrice: decimal.NewFromInt(900)},
			{ProductID: "6", ProductName: "Pan Lactal", Quantity: 1, UnitPrice: decimal.NewFromInt(650), TotalPrice: decimal.NewFromInt(650)},
		},
		Total:         decimal.NewFromInt(1550),
		PaymentMethod: "cash",
	}
}

func newSales(now time.Time) (*SaleUseCase, *memSales, *recordingEvents, countingObserver) {
	sales := newMemSales()
	ev := &recordingEvents{}
	obs := countingObserver{}
	uc := NewSaleUseCase(memTx{products: newMemProducts(), sales: sales}, sales, SaleOptions{
		Events: ev, Observer: obs, Now: func() time.Time { return now }, Location: time.UTC, Logger: zerolog.Nop(),
	})
	return uc, sales, ev, obs
}

func TestSaleUseCase_RegistroIdempotente(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 13, 30, 0, 0, time.UTC)
	uc, sales, ev, obs := newSales(now)

	resp, err := uc.Register(ctx, "caja-1", saleRequest("venta-1"))
	require.NoError(t, err)
	assert.Equal(t, "venta-1", resp.ID)
	assert.Equal(t, 2, resp.ItemsCount)
	assert.False(t, resp.Duplicate)
	require.NotNil(t, resp.NeuralInsights)
	assert.Len(t, resp.NeuralInsights.CrossSelling, 2)
	assert.True(t, resp.NeuralInsights.PeakHours)
	assert.Empty(t, resp.NeuralInsights.InventoryAlerts)

	stored, _ := sales.GetByID(ctx, "venta-1")
	assert.Equal(t, "caja-1", stored.TerminalID)

	again, err := uc.Register(ctx, "caja-1", saleRequest("venta-1"))
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Len(t, sales.byID, 1)
	assert.Equal(t, []string{"venta-1"}, ev.ids)
	assert.Equal(t, 1, obs["created"])
	assert.Equal(t, 1, obs["duplicate"])
}

func TestSaleUseCase_Rechazos(t *testing.T) {
	ctx := context.Background()
	uc, _, _, obs := newSales(time.Now())

	in := saleRequest("")
	in.Total = decimal.NewFromInt(1549)
	_, err := uc.Register(ctx, "", in)
	assert.ErrorIs(t, err, domain.ErrTotalMismatch)

	in = saleRequest("")
	in.Total = decimal.RequireFromString("1550.01")
	_, err = uc.Register(ctx, "", in)
	assert.NoError(t, err, "diferencia dentro de la tolerancia")

	in = saleRequest("")
	in.Items = nil
	_, err = uc.Register(ctx, "", in)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	in = saleRequest("")
	in.PaymentMethod = "bitcoin"
	_, err = uc.Register(ctx, "", in)
	assert.ErrorIs(t, err, domain.ErrInvalidPayment)

	assert.Equal(t, 3, obs["rejected"])
}

func TestSaleUseCase_EventoFallidoNoImpideRegistrar(t *testing.T) {
	uc, sales, ev, _ := newSales(time.Now())
	ev.err = errors.New("nats caído")
	_, err := uc.Register(context.Background(), "", saleRequest("v"))
	require.NoError(t, err)
	assert.Len(t, sales.byID, 1)
}

func TestSaleUseCase_AnaliticaDelDia(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 21, 0, 0, 0, time.UTC)
	uc, _, _, _ := newSales(now)

	for i, at := range []time.Time{
		now.Add(-time.Hour),
		now.Add(-2 * time.Hour),
		now.AddDate(0, 0, -1),
	} {
		in := saleRequest("v" + string(rune('a'+i)))
		at := at
		in.CreatedAt = &at
		_, err := uc.Register(ctx, "caja-1", in)
		require.NoError(t, err)
	}

	got, err := uc.TodayAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10", got.Date)
	assert.Equal(t, 2, got.TotalTransactions)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(3100)))
	assert.True(t, got.AverageTicket.Equal(decimal.NewFromInt(1550)))

	_, err = uc.Get(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsights(t *testing.T) {
	sale := &entity.SaleRecord{
		Total: decimal.NewFromInt(2500),
		Items: []entity.SaleItem{{ProductName: "Agua Mineral"}},
	}
	got := Insights(sale, time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC))
	assert.Empty(t, got.CrossSelling)
	require.Len(t, got.InventoryAlerts, 1)
	assert.Equal(t, "medium", got.InventoryAlerts[0].Priority)
	assert.False(t, got.PeakHours)

	assert.True(t, Insights(sale, time.Date(2024, 1, 1, 20, 59, 0, 0, time.UTC)).PeakHours)
	assert.False(t, Insights(sale, time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)).PeakHours)
}
