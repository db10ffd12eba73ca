// Package providers implementa las fuentes públicas de datos de producto (Open Food Facts, Cosmos).
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhoicas/nordia-pos/internal/domain"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxBodyBytes       = 512 * 1024
	userAgent          = "nordia-pos/1.0 (+https://nordia.app)"
)

func newHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	// El resolver impone además un context.WithTimeout por proveedor.
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// getJSON hace GET y decodifica la respuesta en out.
// 404 se traduce a domain.ErrNotFound; otros códigos distintos de 200 son error.
func getJSON(ctx context.Context, client *http.Client, name, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: crear HTTP request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: timeout o cancelación: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: llamada HTTP fallida: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: leer respuesta: %w", name, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", name, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: HTTP %d", name, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: deserializar respuesta: %w", name, err)
	}
	return nil
}
