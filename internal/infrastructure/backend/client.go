// Package backend es el cliente HTTP de la terminal contra la API de la tienda:
// búsqueda por código de barras (fuente del resolver) y envío de la cola de sincronización.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/application/syncqueue"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

var (
	_ resolver.Provider = (*Client)(nil)
	_ syncqueue.Sender  = (*Client)(nil)
)

const maxBodyBytes = 256 * 1024

// Client cliente de la API de la tienda.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New construye el cliente. timeout <= 0 usa 5 segundos.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient reemplaza el http.Client (tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// SetToken actualiza el bearer token (p. ej. tras Authenticate).
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Source() resolver.Source { return resolver.SourceBackend }

// Lookup GET /api/products/barcode/{code}.
func (c *Client) Lookup(ctx context.Context, barcode string) (*resolver.Match, error) {
	var p dto.ProductResponse
	status, err := c.do(ctx, http.MethodGet, "/api/products/barcode/"+url.PathEscape(barcode), nil, &p)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("backend: %w", domain.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend: HTTP %d", status)
	}
	return &resolver.Match{Product: ProductFromDTO(p), Confidence: 1}, nil
}

// Send envía una entrada de la cola según su tipo.
// Los 4xx de validación se reportan envolviendo syncqueue.ErrRejected.
func (c *Client) Send(ctx context.Context, entry entity.SyncQueueEntry) error {
	switch entry.Type {
	case entity.SyncSale:
		status, err := c.do(ctx, http.MethodPost, "/api/sales", json.RawMessage(entry.Data), nil)
		if err != nil {
			return err
		}
		// 409: la tienda ya tiene la venta.
		if status == http.StatusConflict {
			return nil
		}
		return classify("venta", status)

	case entity.SyncProduct:
		var p entity.Product
		if err := json.Unmarshal(entry.Data, &p); err != nil {
			return fmt.Errorf("producto ilegible: %v: %w", err, syncqueue.ErrRejected)
		}
		status, err := c.do(ctx, http.MethodPost, "/api/products", ProductToDTO(p), nil)
		if err != nil {
			return err
		}
		return classify("producto", status)

	case entity.SyncInventory:
		var upd entity.InventoryUpdate
		if err := json.Unmarshal(entry.Data, &upd); err != nil || upd.ProductID == "" {
			return fmt.Errorf("inventario ilegible: %w", syncqueue.ErrRejected)
		}
		path := "/api/products/" + url.PathEscape(upd.ProductID) + "/stock"
		status, err := c.do(ctx, http.MethodPut, path, dto.UpdateStockRequest{Stock: upd.Stock}, nil)
		if err != nil {
			return err
		}
		return classify("inventario", status)
	}
	return fmt.Errorf("tipo de sincronización %q: %w", entry.Type, syncqueue.ErrRejected)
}

// SendSale envía una venta directamente (checkout con conexión).
func (c *Client) SendSale(ctx context.Context, sale entity.SaleRecord) error {
	data, err := json.Marshal(sale)
	if err != nil {
		return fmt.Errorf("serializar venta: %w", err)
	}
	return c.Send(ctx, entity.SyncQueueEntry{ID: sale.ID, Type: entity.SyncSale, Data: data})
}

// Authenticate canjea la clave de enrolamiento por un token y lo deja activo en el cliente.
func (c *Client) Authenticate(ctx context.Context, terminalID, key string) (*dto.TerminalAuthResponse, error) {
	var out dto.TerminalAuthResponse
	status, err := c.do(ctx, http.MethodPost, "/api/auth/terminal", dto.TerminalAuthRequest{TerminalID: terminalID, EnrollmentKey: key}, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, fmt.Errorf("backend: %w", domain.ErrUnauthorized)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend: HTTP %d", status)
	}
	c.SetToken(out.Token)
	return &out, nil
}

// classify traduce el código HTTP de un envío.
func classify(what string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest, status == http.StatusNotFound, status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: HTTP %d: %w", what, status, syncqueue.ErrRejected)
	default:
		return fmt.Errorf("%s: HTTP %d", what, status)
	}
}

// do ejecuta la llamada; decodifica en out solo respuestas 2xx.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("backend: URL no configurada")
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("backend: serializar request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("backend: crear HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("backend: timeout o cancelación: %w", ctx.Err())
		}
		return 0, fmt.Errorf("backend: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("backend: leer respuesta: %w", err)
	}
	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("backend: deserializar respuesta: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// ProductFromDTO normaliza un producto de la tienda al formato de la terminal.
func ProductFromDTO(p dto.ProductResponse) entity.Product {
	return entity.Product{
		ID:          p.ID,
		Barcode:     p.Barcode,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    entity.ParseCategory(p.Category),
		Brand:       p.Brand,
		Supplier:    p.Supplier,
		Image:       p.Image,
		IsExternal:  p.IsExternal,
	}
}

// ProductToDTO arma el upsert que la terminal envía a la tienda.
func ProductToDTO(p entity.Product) dto.UpsertProductRequest {
	return dto.UpsertProductRequest{
		ID:          p.ID,
		Barcode:     p.Barcode,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    string(p.Category),
		Brand:       p.Brand,
		Supplier:    p.Supplier,
		Image:       p.Image,
		IsExternal:  p.IsExternal,
	}
}
