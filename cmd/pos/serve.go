package main

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/nordia-pos/internal/interfaces/poshttp"
)

func serveCmd(s *session) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "API local para la interfaz de venta + sincronización periódica",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = s.app.cfg.POS.ServeAddr
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return serve(ctx, s.app, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Dirección de escucha (default POS_SERVE_ADDR)")
	return cmd
}

// serve corre la API local y el drenado de la cola hasta que ctx se cancele.
func serve(ctx context.Context, a *posApp, addr string) error {
	log := a.log.Component("serve")
	h := poshttp.NewHandler(a.term, a.store, a.receipts)
	app := poshttp.New(h, poshttp.Options{
		Middleware: []fiber.Handler{a.metrics.Middleware()},
		Metrics:    a.metrics.Handler(),
	})

	// Profundidad de la cola visible en /metrics desde el arranque.
	a.metrics.SetQueueDepth(a.term.SyncStatus(ctx).Total())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("terminal_id", a.cfg.POS.TerminalID).Msg("API local escuchando")
		return app.Listen(addr)
	})
	g.Go(func() error {
		return a.term.RunSync(gctx, a.cfg.POS.SyncInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info().Msg("caja detenida")
	return err
}
