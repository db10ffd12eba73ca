package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jhoicas/nordia-pos/internal/application/checkout"
	"github.com/jhoicas/nordia-pos/internal/application/completion"
	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/application/syncqueue"
	"github.com/jhoicas/nordia-pos/internal/application/terminal"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/catalog"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/backend"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/localstore"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/metrics"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/pdf"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/providers"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/seed"
	"github.com/jhoicas/nordia-pos/pkg/config"
	"github.com/jhoicas/nordia-pos/pkg/logger"
)

// tokenKey estado local con el token emitido por la tienda al enrolar la caja.
const tokenKey = "backend-token"

// posApp dependencias de una invocación del CLI.
type posApp struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *localstore.Store
	term     *terminal.Terminal
	metrics  *metrics.Metrics
	backend  *backend.Client // nil = caja sin tienda
	receipts *pdf.ReceiptGenerator
}

func openApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*posApp, error) {
	store, err := localstore.Open(ctx, cfg.POS.DataDir, localstore.Options{
		Namespace: cfg.POS.Namespace,
		Logger:    log.Zerolog(),
	})
	if err != nil {
		return nil, err
	}

	// Catálogo inicial: solo en el primer arranque.
	products, err := seed.Default()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if n, err := seed.SeedLocal(ctx, store, products); err != nil {
		log.Warn().Err(err).Msg("no se pudo cargar el catálogo inicial")
	} else if n > 0 {
		log.Info().Int("products", n).Msg("catálogo inicial cargado")
	}

	a := &posApp{
		cfg:      cfg,
		log:      log,
		store:    store,
		metrics:  metrics.New("pos"),
		receipts: pdf.NewReceiptGenerator(pdf.StoreInfo{Name: cfg.Store.Name, Address: cfg.Store.Address, Footer: cfg.Store.Footer}),
	}

	policy := syncqueue.DefaultPolicy()
	policy.MaxRetries = cfg.POS.MaxRetries
	queue := syncqueue.New(store,
		syncqueue.WithPolicy(policy),
		syncqueue.WithObserver(a.metrics),
		syncqueue.WithLogger(log.Zerolog()),
	)

	classifier := catalog.NewClassifier(nil)
	httpClient := &http.Client{Timeout: cfg.Providers.Timeout}
	var chain []resolver.Provider
	if cfg.POS.BackendURL != "" {
		a.backend = backend.New(cfg.POS.BackendURL, a.backendToken(ctx), cfg.Providers.BackendTimeout)
		chain = append(chain, a.backend)
	}
	chain = append(chain,
		providers.NewOpenFoodFacts(cfg.Providers.OpenFoodFactsURL, classifier, httpClient),
		providers.NewCosmos(cfg.Providers.CosmosURL, cfg.Providers.CosmosToken, classifier, httpClient),
	)

	cache := resolver.NewCache(cfg.POS.CacheTTL, nil)
	res := resolver.New(cache, store, chain,
		resolver.WithEnqueuer(queue),
		resolver.WithObserver(a.metrics),
		resolver.WithLogger(log.Zerolog()),
		resolver.WithTimeout(resolver.SourceBackend, cfg.Providers.BackendTimeout),
		resolver.WithTimeout(resolver.SourceOpenFoodFacts, cfg.Providers.Timeout),
		resolver.WithTimeout(resolver.SourceCosmos, cfg.Providers.Timeout),
	)

	cart := checkout.NewCartSession(ctx, store, log.Zerolog())
	flow := completion.New(store, store, cart, cache, queue, log.Zerolog())

	// Sin tienda los emisores quedan en nil (interfaz nula, no puntero nulo).
	var (
		saleSender checkout.SaleSender
		sender     syncqueue.Sender
	)
	if a.backend != nil {
		saleSender, sender = a.backend, a.backend
	}
	svc := checkout.NewService(cart, store, saleSender, queue, checkout.Config{
		TerminalID:  cfg.POS.TerminalID,
		SendTimeout: cfg.POS.SendTimeout,
		Observer:    a.metrics,
	}, log.Zerolog())

	a.term = terminal.New(terminal.Deps{
		Resolver:   res,
		Completion: flow,
		Cart:       cart,
		Checkout:   svc,
		Queue:      queue,
		Sender:     sender,
		Logger:     log.Zerolog(),
	})
	return a, nil
}

// backendToken prioriza el token configurado; si no, el guardado al enrolar.
func (a *posApp) backendToken(ctx context.Context) string {
	if a.cfg.POS.BackendToken != "" {
		return a.cfg.POS.BackendToken
	}
	var tok string
	if ok, err := a.store.LoadAppState(ctx, tokenKey, &tok); err == nil && ok {
		return tok
	}
	return ""
}

// enroll canjea la clave de enrolamiento y guarda el token para próximas invocaciones.
func (a *posApp) enroll(ctx context.Context, key string) error {
	if a.backend == nil {
		return terminal.ErrOffline
	}
	if key == "" {
		return fmt.Errorf("clave de enrolamiento vacía: %w", domain.ErrInvalidInput)
	}
	out, err := a.backend.Authenticate(ctx, a.cfg.POS.TerminalID, key)
	if err != nil {
		return err
	}
	if err := a.store.SaveAppState(ctx, tokenKey, out.Token); err != nil {
		return fmt.Errorf("guardar token: %w", err)
	}
	a.backend.SetToken(out.Token)
	a.log.Info().Str("terminal_id", a.cfg.POS.TerminalID).Time("expires_at", out.ExpiresAt).Msg("caja enrolada")
	return nil
}

// ensureEnrolled enrola automáticamente si hay clave configurada y todavía no hay token.
func (a *posApp) ensureEnrolled(ctx context.Context) {
	if a.backend == nil || a.backendToken(ctx) != "" || a.cfg.POS.EnrollmentKey == "" {
		return
	}
	if err := a.enroll(ctx, a.cfg.POS.EnrollmentKey); err != nil && !errors.Is(err, terminal.ErrOffline) {
		a.log.Warn().Err(err).Msg("no se pudo enrolar la caja, se sigue offline")
	}
}

func (a *posApp) Close() error {
	return a.store.Close()
}
