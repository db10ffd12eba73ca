package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/application/syncqueue"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "tok-123", time.Second).WithHTTPClient(srv.Client())
}

func TestLookup_NormalizaProducto(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/barcode/7790895001234", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(dto.ProductResponse{
			ID: "1", Barcode: "7790895001234", Name: "Coca Cola 500ml",
			Price: decimal.NewFromInt(350), Stock: 48, Category: "Bebidas",
		})
	})

	m, err := c.Lookup(context.Background(), "7790895001234")
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryBebidas, m.Product.Category)
	assert.True(t, m.Product.Price.Equal(decimal.NewFromInt(350)))
	assert.False(t, m.Product.NeedsCompletion)
	assert.Equal(t, 1.0, m.Confidence)
}

func TestLookup_404EsNoEncontrado(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"Producto no encontrado"}`))
	})
	_, err := c.Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSend_VentaYClasificacionDeErrores(t *testing.T) {
	status := http.StatusCreated
	var got map[string]any
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sales", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(status)
	})

	entry := entity.SyncQueueEntry{Type: entity.SyncSale, Data: json.RawMessage(`{"id":"v1","total":900,"items":[]}`)}
	require.NoError(t, c.Send(context.Background(), entry))
	assert.Equal(t, "v1", got["id"])

	status = http.StatusConflict
	assert.NoError(t, c.Send(context.Background(), entry), "409 significa que la tienda ya la tiene")

	status = http.StatusBadRequest
	assert.ErrorIs(t, c.Send(context.Background(), entry), syncqueue.ErrRejected)

	status = http.StatusServiceUnavailable
	err := c.Send(context.Background(), entry)
	require.Error(t, err)
	assert.NotErrorIs(t, err, syncqueue.ErrRejected)
}

func TestSend_ProductoEInventario(t *testing.T) {
	var paths []string
	var upsert dto.UpsertProductRequest
	var stock dto.UpdateStockRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&upsert)
		case http.MethodPut:
			_ = json.NewDecoder(r.Body).Decode(&stock)
		}
		w.WriteHeader(http.StatusOK)
	})

	p := entity.Product{ID: "local-1", Barcode: "55", Name: "Yerba", Price: decimal.NewFromInt(1500), Category: entity.CategoryAlmacen}
	data, _ := json.Marshal(p)
	require.NoError(t, c.Send(context.Background(), entity.SyncQueueEntry{Type: entity.SyncProduct, Data: data}))
	assert.Equal(t, "almacen", upsert.Category)
	assert.Equal(t, "55", upsert.Barcode)

	data, _ = json.Marshal(entity.InventoryUpdate{ProductID: "local-1", Stock: 7})
	require.NoError(t, c.Send(context.Background(), entity.SyncQueueEntry{Type: entity.SyncInventory, Data: data}))
	assert.Equal(t, 7, stock.Stock)

	assert.Equal(t, []string{"POST /api/products", "PUT /api/products/local-1/stock"}, paths)
}

func TestSend_TipoDesconocidoSeRechaza(t *testing.T) {
	c := New("http://127.0.0.1:0", "", time.Second)
	err := c.Send(context.Background(), entity.SyncQueueEntry{Type: "otro"})
	assert.ErrorIs(t, err, syncqueue.ErrRejected)
}

func TestSend_SinConexionEsTransitorio(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, "", 200*time.Millisecond)
	err := c.SendSale(context.Background(), entity.SaleRecord{ID: "v1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, syncqueue.ErrRejected)
}

func TestAuthenticate_GuardaToken(t *testing.T) {
	var lastAuth string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/terminal" {
			var req dto.TerminalAuthRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.EnrollmentKey != "clave" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(dto.TerminalAuthResponse{Token: "nuevo"})
			return
		}
		lastAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Authenticate(context.Background(), "caja-1", "mala")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	out, err := c.Authenticate(context.Background(), "caja-1", "clave")
	require.NoError(t, err)
	assert.Equal(t, "nuevo", out.Token)

	_, _ = c.Lookup(context.Background(), "1")
	assert.Equal(t, "Bearer nuevo", lastAuth)
}
