// seed carga el catálogo de la tienda en PostgreSQL: el catálogo de demostración embebido
// o una planilla CSV / YAML. También genera el hash de la clave de enrolamiento de cajas.
//
// Uso: seed · seed --csv lista.csv --latin1 · seed hash-key <clave>
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/nordia-pos/internal/application/auth"
	"github.com/jhoicas/nordia-pos/internal/application/usecase"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/backend"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/seed"
	"github.com/jhoicas/nordia-pos/pkg/config"
	"github.com/jhoicas/nordia-pos/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		csvPath, yamlPath, delimiter string
		latin1, dryRun               bool
	)
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Cargar productos en la base de la tienda",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			products, err := loadProducts(csvPath, yamlPath, latin1, delimiter)
			if err != nil {
				return err
			}
			if dryRun {
				for _, p := range products {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", p.ID, p.Barcode, p.Name, p.Price.StringFixed(2))
				}
				return nil
			}
			return upsertAll(cmd.Context(), cmd, products)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Planilla CSV (id, barcode, name, price, category, stock, brand, description)")
	cmd.Flags().StringVar(&yamlPath, "yaml", "", "Catálogo YAML")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "Separador del CSV")
	cmd.Flags().BoolVar(&latin1, "latin1", false, "CSV en ISO-8859-1")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Solo mostrar lo que se cargaría")
	cmd.MarkFlagsMutuallyExclusive("csv", "yaml")

	cmd.AddCommand(&cobra.Command{
		Use:   "hash-key <clave>",
		Short: "Imprimir el hash bcrypt para TERMINAL_ENROLLMENT_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})
	return cmd
}

// loadProducts sin archivo devuelve el catálogo embebido.
func loadProducts(csvPath, yamlPath string, latin1 bool, delimiter string) ([]entity.Product, error) {
	switch {
	case csvPath != "":
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("abrir CSV: %w", err)
		}
		defer f.Close()
		opts := seed.CSVOptions{Latin1: latin1}
		if r := []rune(delimiter); len(r) == 1 {
			opts.Delimiter = r[0]
		}
		return seed.ParseCSV(f, opts)
	case yamlPath != "":
		if ext := strings.ToLower(filepath.Ext(yamlPath)); ext != ".yaml" && ext != ".yml" {
			return nil, fmt.Errorf("se esperaba un archivo .yaml: %s", yamlPath)
		}
		f, err := os.Open(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("abrir YAML: %w", err)
		}
		defer f.Close()
		return seed.ParseYAML(f)
	default:
		return seed.Default()
	}
}

func upsertAll(ctx context.Context, cmd *cobra.Command, products []entity.Product) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed", Out: os.Stderr})

	if err := postgres.Migrate(postgres.PoolDSN(cfg.DB), log.Component("migrate")); err != nil {
		return err
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	defer pool.Close()

	uc := usecase.NewProductUseCase(postgres.NewProductRepository(pool))
	loaded := 0
	for _, p := range products {
		if _, err := uc.Upsert(ctx, backend.ProductToDTO(p)); err != nil {
			log.Error().Err(err).Str("id", p.ID).Str("barcode", p.Barcode).Msg("producto rechazado")
			continue
		}
		loaded++
	}
	log.Info().Int("loaded", loaded).Int("total", len(products)).Msg("catálogo cargado")
	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d productos cargados\n", loaded, len(products))
	if loaded < len(products) {
		return fmt.Errorf("%d productos rechazados", len(products)-loaded)
	}
	return nil
}
