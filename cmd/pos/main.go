// pos es la caja: escanea, arma el carrito, cobra offline y sincroniza con la tienda.
//
// Uso: pos scan 7790895001234 · pos checkout --method cash · pos serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/nordia-pos/pkg/config"
	"github.com/jhoicas/nordia-pos/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session estado compartido por los subcomandos.
type session struct {
	dataDir  string
	logLevel string
	jsonOut  bool

	app *posApp
}

func rootCmd() *cobra.Command {
	s := &session{}

	cmd := &cobra.Command{
		Use:           "pos",
		Short:         "Caja Nordia POS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if s.app == nil {
				return nil
			}
			return s.app.Close()
		},
	}
	cmd.PersistentFlags().StringVar(&s.dataDir, "data-dir", "", "Directorio de datos (default POS_DATA_DIR)")
	cmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "Nivel de log (default LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&s.jsonOut, "json", false, "Salida JSON")

	cmd.AddCommand(
		scanCmd(s),
		completeCmd(s),
		cancelCmd(s),
		pendingCmd(s),
		cartCmd(s),
		checkoutCmd(s),
		salesCmd(s),
		receiptCmd(s),
		syncCmd(s),
		statusCmd(s),
		deadLetterCmd(s),
		requeueCmd(s),
		purgeCmd(s),
		statsCmd(s),
		cleanupCmd(s),
		importCmd(s),
		enrollCmd(s),
		serveCmd(s),
	)
	return cmd
}

func (s *session) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	if s.dataDir != "" {
		cfg.POS.DataDir = s.dataDir
	}
	if s.logLevel != "" {
		cfg.App.LogLevel = s.logLevel
	}
	// Los logs van a stderr; stdout queda para la salida de los comandos.
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "pos", Out: os.Stderr})

	app, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	s.app = app
	app.ensureEnrolled(ctx)
	return nil
}

// signalContext se cancela con SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
