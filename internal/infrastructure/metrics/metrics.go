// Package metrics expone contadores Prometheus de la terminal y del backend.
// Cada Metrics usa su propio registro para que varios servidores (y los tests) no choquen.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/nordia-pos/internal/application/checkout"
	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/application/syncqueue"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

const namespace = "nordia"

var (
	_ resolver.Observer  = (*Metrics)(nil)
	_ syncqueue.Observer = (*Metrics)(nil)
	_ checkout.Observer  = (*Metrics)(nil)
)

// Metrics agrupa los colectores.
type Metrics struct {
	reg *prometheus.Registry

	attempts    *prometheus.CounterVec
	resolutions *prometheus.HistogramVec
	syncs       *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	checkouts   *prometheus.CounterVec
	salesIn     *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New registra los colectores en un registro nuevo. subsystem distingue "pos" de "api".
func New(subsystem string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "resolver_attempts_total",
			Help: "Consultas por fuente y resultado (hit, miss, failed).",
		}, []string{"source", "outcome"}),
		resolutions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "resolver_duration_seconds",
			Help:    "Tiempo total de resolución de un código por fuente final.",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 2, 5, 10},
		}, []string{"source"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sync_entries_total",
			Help: "Entradas de la cola procesadas por tipo y resultado.",
		}, []string{"type", "result"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sync_queue_depth",
			Help: "Entradas pendientes en la cola de sincronización.",
		}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "checkouts_total",
			Help: "Cobros por medio de pago y forma de entrega (direct, queued).",
		}, []string{"method", "delivery"}),
		salesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sales_received_total",
			Help: "Ventas recibidas desde terminales por resultado.",
		}, []string{"result"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "http_requests_total",
			Help: "Peticiones HTTP por método, ruta y status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de las peticiones HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.attempts, m.resolutions, m.syncs, m.queueDepth,
		m.checkouts, m.salesIn, m.httpReqs, m.httpLatency,
	)
	return m
}

// Registry registro subyacente.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ── Resolver ──

func (m *Metrics) ObserveAttempt(source resolver.Source, outcome resolver.Outcome) {
	m.attempts.WithLabelValues(string(source), string(outcome)).Inc()
}

func (m *Metrics) ObserveResolution(source resolver.Source, elapsed time.Duration) {
	m.resolutions.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

// ── Cola ──

func (m *Metrics) ObserveSync(typ entity.SyncType, result string) {
	m.syncs.WithLabelValues(string(typ), result).Inc()
}

func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Set(float64(n)) }

// ── Cobro ──

func (m *Metrics) ObserveCheckout(method entity.PaymentMethod, sentDirectly bool) {
	delivery := "queued"
	if sentDirectly {
		delivery = "direct"
	}
	m.checkouts.WithLabelValues(string(method), delivery).Inc()
}

// ObserveSaleReceived cuenta ventas en el backend: created, duplicate o rejected.
func (m *Metrics) ObserveSaleReceived(result string) {
	m.salesIn.WithLabelValues(result).Inc()
}

// ── HTTP ──

// Middleware mide cada petición usando la ruta registrada (no el path crudo) como etiqueta.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.httpReqs.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler expone /metrics en Fiber.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg}))
}
