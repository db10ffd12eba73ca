package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenFoodFacts_MapeoCompleto(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/7790895001234.json", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Coca-Cola Sabor Original",
				"brands": "Coca-Cola, The Coca-Cola Company",
				"image_url": "https://images.example/coke.jpg",
				"categories_tags": ["en:beverages", "en:carbonated-drinks"],
				"ingredients_text_es": "Agua carbonatada, azúcar"
			}
		}`))
	})

	off := NewOpenFoodFacts(srv.URL, nil, srv.Client())
	m, err := off.Lookup(context.Background(), "7790895001234")
	require.NoError(t, err)

	p := m.Product
	assert.Equal(t, "off-7790895001234", p.ID)
	assert.Equal(t, "Coca-Cola Sabor Original", p.Name)
	assert.Equal(t, "Coca-Cola", p.Brand)
	assert.Equal(t, entity.CategoryBebidas, p.Category)
	assert.Equal(t, "Agua carbonatada, azúcar", p.Description)
	assert.True(t, p.Price.IsZero())
	assert.Equal(t, 0, p.Stock)
	assert.True(t, p.IsExternal)
	assert.True(t, p.NeedsCompletion)
	assert.InDelta(t, 1.0, m.Confidence, 1e-9)
}

func TestOpenFoodFacts_NombreProvisorioYConfianza(t *testing.T) {
	long := strings.Repeat("x", 130)
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "111") {
			_, _ = w.Write([]byte(`{"status":1,"product":{}}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":1,"product":{"product_name":"` + long + `","brands":"Arcor"}}`))
	})
	off := NewOpenFoodFacts(srv.URL, nil, srv.Client())

	m, err := off.Lookup(context.Background(), "0000000000111")
	require.NoError(t, err)
	assert.Equal(t, "Producto 0111", m.Product.Name)
	assert.Equal(t, entity.CategoryOtros, m.Product.Category)
	assert.InDelta(t, 0.5, m.Confidence, 1e-9)

	m, err = off.Lookup(context.Background(), "222")
	require.NoError(t, err)
	assert.Len(t, m.Product.Name, 100)
	assert.InDelta(t, 0.8, m.Confidence, 1e-9)
}

func TestOpenFoodFacts_NoEncontrado(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	})
	_, err := NewOpenFoodFacts(srv.URL, nil, srv.Client()).Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenFoodFacts_ErrorDeServidor(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := NewOpenFoodFacts(srv.URL, nil, srv.Client()).Lookup(context.Background(), "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCosmos_EnviaTokenYMapea(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secreto", r.Header.Get("X-Cosmos-Token"))
		assert.Equal(t, "/7891000100103", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"description": "Cerveza Brahma Lata 350ml",
			"brand": {"name": "Brahma"},
			"category": {"description": "Cerveza"},
			"thumbnail": "https://cdn.example/brahma.png"
		}`))
	})

	m, err := NewCosmos(srv.URL, "secreto", nil, srv.Client()).Lookup(context.Background(), "7891000100103")
	require.NoError(t, err)
	assert.Equal(t, "cosmos-7891000100103", m.Product.ID)
	assert.Equal(t, "Cerveza Brahma Lata 350ml", m.Product.Name)
	assert.Equal(t, "Brahma", m.Product.Brand)
	assert.Equal(t, entity.CategoryBebidas, m.Product.Category)
	assert.Equal(t, "https://cdn.example/brahma.png", m.Product.Image)
	assert.True(t, m.Product.NeedsCompletion)
	assert.InDelta(t, 0.8, m.Confidence, 1e-9)
}

func TestCosmos_ProductoEnvuelto(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"product":{"description":"Detergente Ala","category":{"name":"Limpieza detergent"},"images":[{"url":"https://cdn.example/ala.png"}]}}`))
	})

	m, err := NewCosmos(srv.URL, "t", nil, srv.Client()).Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Detergente Ala", m.Product.Name)
	assert.Equal(t, entity.CategoryLimpieza, m.Product.Category)
	assert.Equal(t, "https://cdn.example/ala.png", m.Product.Image)
}

func TestCosmos_SinTokenY404(t *testing.T) {
	_, err := NewCosmos("http://127.0.0.1:0", "", nil, nil).Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, ErrCosmosToken)
	assert.ErrorIs(t, err, domain.ErrNotFound, "sin token cuenta como miss")

	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err = NewCosmos(srv.URL, "t", nil, srv.Client()).Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
