package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

func TestObservers(t *testing.T) {
	m := New("pos")

	m.ObserveAttempt(resolver.SourceLocal, resolver.OutcomeMiss)
	m.ObserveAttempt(resolver.SourceOpenFoodFacts, resolver.OutcomeHit)
	m.ObserveAttempt(resolver.SourceOpenFoodFacts, resolver.OutcomeHit)
	m.ObserveResolution(resolver.SourceOpenFoodFacts, 120*time.Millisecond)
	m.ObserveSync(entity.SyncSale, "sent")
	m.SetQueueDepth(7)
	m.ObserveCheckout(entity.PaymentCash, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("openfoodfacts", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("local", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncs.WithLabelValues("sale", "sent")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("cash", "queued")))
}

func TestHandlerYMiddleware(t *testing.T) {
	m := New("api")
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/api/products/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	resp, err := app.Test(httptest.NewRequest("GET", "/api/products/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpReqs.WithLabelValues("GET", "/api/products/:id", "404")))

	m.ObserveSaleReceived("created")
	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "nordia_api_sales_received_total"))
}
