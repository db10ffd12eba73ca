package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/nordia-pos/internal/application/auth"
	"github.com/jhoicas/nordia-pos/internal/application/usecase"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/events"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/nordia-pos/internal/infrastructure/pdf"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/nordia-pos/internal/interfaces/http"
	"github.com/jhoicas/nordia-pos/pkg/config"
	"github.com/jhoicas/nordia-pos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "api",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando tienda")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	if err := postgres.Migrate(postgres.PoolDSN(cfg.DB), log.Component("migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	terminalRepo := postgres.NewTerminalRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	m := metrics.New("api")

	// Eventos sale.created: opcionales, una tienda sin NATS funciona igual.
	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject, log.Component("events"))
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS no disponible, se continúa sin eventos")
		} else {
			publisher = nc
		}
	}
	defer publisher.Close()

	productUC := usecase.NewProductUseCase(productRepo)
	saleUC := usecase.NewSaleUseCase(txRunner, saleRepo, usecase.SaleOptions{
		Events:   publisher,
		Observer: m,
		Logger:   log.Zerolog(),
	})
	authUC := auth.NewTerminalAuthUseCase(terminalRepo, cfg.Terminal.EnrollmentKeyHash, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	if cfg.Terminal.EnrollmentKeyHash == "" {
		log.Warn().Msg("TERMINAL_ENROLLMENT_KEY_HASH vacío: enrolamiento de cajas deshabilitado")
	}

	receipts := infrapdf.NewReceiptGenerator(infrapdf.StoreInfo{
		Name:    cfg.Store.Name,
		Address: cfg.Store.Address,
		Footer:  cfg.Store.Footer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(m.Middleware())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Nordia POS API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", m.Handler())

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC: productUC,
		SaleUC:    saleUC,
		AuthUC:    authUC,
		Receipts:  receipts,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
