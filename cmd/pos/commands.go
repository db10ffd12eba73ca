package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/nordia-pos/internal/application/checkout"
	"github.com/jhoicas/nordia-pos/internal/application/completion"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/localstore"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/pdf"
	"github.com/jhoicas/nordia-pos/internal/infrastructure/seed"
	"github.com/jhoicas/nordia-pos/internal/interfaces/poshttp"
)

// ── Escaneo y completado ──

func scanCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <codigo>...",
		Short: "Escanear uno o más códigos de barras",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, code := range args {
				out, err := s.app.term.Scan(cmd.Context(), strings.TrimSpace(code))
				if err != nil {
					return err
				}
				if s.jsonOut {
					if err := writeJSON(w, out); err != nil {
						return err
					}
					continue
				}
				p := out.Resolution.Product
				switch {
				case out.AddedToCart:
					fmt.Fprintf(w, "+ %s  $%s  [%s, %.2f]\n", p.Name, pdf.FormatMoney(p.Price), out.Resolution.Source, out.Resolution.Confidence)
				case out.Pending:
					fmt.Fprintf(w, "? %s  %q requiere completar datos: pos complete %s --name ... --price ...\n", code, p.Name, code)
				}
			}
			if !s.jsonOut {
				printCart(w, s.app.term.Cart())
			}
			return nil
		},
	}
}

func completeCmd(s *session) *cobra.Command {
	var (
		name, brand, category, price string
		stock                        int
	)
	cmd := &cobra.Command{
		Use:   "complete <codigo>",
		Short: "Completar un producto pendiente y agregarlo al carrito",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseMoney(price)
			if err != nil {
				return err
			}
			f := completion.Fields{Name: name, Brand: brand, Price: amount, Category: entity.Category(category)}
			if cmd.Flags().Changed("stock") {
				f.Stock = &stock
			}
			p, err := s.app.term.Complete(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "+ %s  $%s  [%s]\n", p.Name, pdf.FormatMoney(p.Price), p.Category)
			printCart(cmd.OutOrStdout(), s.app.term.Cart())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Nombre")
	cmd.Flags().StringVar(&price, "price", "", "Precio (acepta coma decimal)")
	cmd.Flags().StringVar(&category, "category", "", "Categoría")
	cmd.Flags().StringVar(&brand, "brand", "", "Marca")
	cmd.Flags().IntVar(&stock, "stock", 0, "Stock inicial")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func cancelCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <codigo>",
		Short: "Descartar un producto pendiente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.app.term.CancelCompletion(cmd.Context(), args[0])
		},
	}
}

func pendingCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Listar productos pendientes de completar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := s.app.term.PendingCompletions(cmd.Context())
			if err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "CÓDIGO\tNOMBRE\tCATEGORÍA\tORIGEN")
			for _, p := range list {
				origin := "desconocido"
				if p.IsExternal {
					origin = "externo"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Barcode, p.Name, p.Category, origin)
			}
			return tw.Flush()
		},
	}
}

// ── Carrito ──

func cartCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Ver el carrito",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.showCart(cmd.OutOrStdout(), s.app.term.Cart())
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "update <producto> <cantidad>",
			Short: "Cambiar la cantidad de una línea (0 la quita)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("cantidad %q: %w", args[1], domain.ErrInvalidInput)
				}
				sum, err := s.app.term.UpdateQuantity(cmd.Context(), args[0], n)
				if err != nil {
					return err
				}
				return s.showCart(cmd.OutOrStdout(), sum)
			},
		},
		&cobra.Command{
			Use:   "remove <producto>",
			Short: "Quitar una línea",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sum, err := s.app.term.RemoveItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return s.showCart(cmd.OutOrStdout(), sum)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Vaciar el carrito",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return s.app.term.ClearCart(cmd.Context())
			},
		},
	)
	return cmd
}

func (s *session) showCart(w io.Writer, sum checkout.CartSummary) error {
	if s.jsonOut {
		return writeJSON(w, sum)
	}
	printCart(w, sum)
	return nil
}

func printCart(w io.Writer, sum checkout.CartSummary) {
	if sum.ItemCount == 0 {
		fmt.Fprintln(w, "carrito vacío")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tPRODUCTO\tCANT\tPRECIO\tSUBTOTAL")
	for _, it := range sum.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t$%s\t$%s\n", it.ID, it.Name, it.Quantity, pdf.FormatMoney(it.Price), pdf.FormatMoney(it.LineTotal()))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t$%s\n", sum.ItemCount, pdf.FormatMoney(sum.Total))
	_ = tw.Flush()
}

// ── Cobro y ventas ──

func checkoutCmd(s *session) *cobra.Command {
	var method, customer, phone string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Cobrar el carrito",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var info *entity.CustomerInfo
			if customer != "" {
				info = &entity.CustomerInfo{Name: customer, Phone: phone}
			}
			out, err := s.app.term.Checkout(cmd.Context(), entity.PaymentMethod(method), info)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			state := "en cola para sincronizar"
			if out.SentDirectly {
				state = "enviada a la tienda"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "venta %s  $%s  %s (%s)\n", out.Sale.ID, pdf.FormatMoney(out.Sale.Total), method, state)
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", string(entity.PaymentCash), "Medio de pago: cash, card, transfer, mercadopago, qr")
	cmd.Flags().StringVar(&customer, "customer", "", "Nombre del cliente")
	cmd.Flags().StringVar(&phone, "phone", "", "Teléfono del cliente")
	return cmd
}

func salesCmd(s *session) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Listar ventas locales (más recientes primero)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sales := s.app.store.GetSales(cmd.Context())
			var out []entity.SaleRecord
			for i := len(sales) - 1; i >= 0 && len(out) < limit; i-- {
				out = append(out, sales[i])
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tFECHA\tTOTAL\tPAGO\tSINCRONIZADA")
			for _, sale := range out {
				synced := "no"
				if sale.Synced {
					synced = "sí"
				}
				fmt.Fprintf(tw, "%s\t%s\t$%s\t%s\t%s\n", sale.ID, sale.CreatedAt.Local().Format("02/01 15:04"),
					pdf.FormatMoney(sale.Total), sale.PaymentMethod, synced)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Cantidad máxima")
	return cmd
}

func receiptCmd(s *session) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "receipt <venta>",
		Short: "Generar el ticket PDF de una venta local (acepta el ID abreviado)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sale := poshttp.FindSale(s.app.store.GetSales(cmd.Context()), args[0])
			if sale == nil {
				return fmt.Errorf("venta %s: %w", args[0], domain.ErrNotFound)
			}
			data, err := s.app.receipts.GenerateReceipt(cmd.Context(), sale)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = pdf.Filename(sale)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("escribir ticket: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Archivo de salida (default ticket-<id>.pdf)")
	return cmd
}

// ── Sincronización ──

func syncCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Enviar ahora la cola a la tienda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := s.app.term.Sync(cmd.Context())
			if err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enviadas %d, fallidas %d, diferidas %d, a dead-letter %d\n",
				rep.Sent, rep.Failed, rep.Deferred, rep.DeadLettered)
			return nil
		},
	}
}

func statusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Pendientes de sincronizar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := s.app.term.SyncStatus(cmd.Context())
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintf(tw, "ventas\t%d\n", st.PendingSales)
			fmt.Fprintf(tw, "productos\t%d\n", st.PendingProducts)
			fmt.Fprintf(tw, "inventario\t%d\n", st.PendingInventory)
			fmt.Fprintf(tw, "dead-letter\t%d\n", st.DeadLetter)
			last := "nunca"
			if st.LastSync != nil {
				last = st.LastSync.Local().Format(time.DateTime)
			}
			fmt.Fprintf(tw, "última sincronización\t%s\n", last)
			if s.app.backend == nil {
				fmt.Fprintln(tw, "tienda\tno configurada (POS_BACKEND_URL)")
			}
			return tw.Flush()
		},
	}
}

func deadLetterCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "dead-letter",
		Short: "Entradas que agotaron los reintentos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := s.app.term.Queue().DeadLetter(cmd.Context())
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTIPO\tINTENTOS\tÚLTIMO ERROR")
			for _, e := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ID, e.Type, e.RetryCount, e.LastError)
			}
			return tw.Flush()
		},
	}
}

func requeueCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <entrada>",
		Short: "Devolver una entrada de dead-letter a la cola",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.app.term.Queue().Requeue(cmd.Context(), args[0])
		},
	}
}

func purgeCmd(s *session) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Eliminar de dead-letter las entradas viejas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := s.app.term.Queue().Purge(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entradas eliminadas\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Antigüedad mínima")
	return cmd
}

// ── Mantenimiento del almacén local ──

func statsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Espacio usado por colección",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := s.app.store.Stats(cmd.Context())
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			tw := table(cmd.OutOrStdout())
			for _, c := range localstore.Collections() {
				fmt.Fprintf(tw, "%s\t%s\n", c, localstore.FormatBytes(st.Breakdown[c]))
			}
			fmt.Fprintf(tw, "total\t%s\n", st.Formatted)
			return tw.Flush()
		},
	}
}

func cleanupCmd(s *session) *cobra.Command {
	var maxAge time.Duration
	var all bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Borrar ventas sincronizadas viejas (o todo con --all)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				return s.app.store.ClearStorage(cmd.Context())
			}
			return s.app.store.ClearOldData(cmd.Context(), maxAge)
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", localstore.DefaultRetention, "Antigüedad máxima")
	cmd.Flags().BoolVar(&all, "all", false, "Borrar todo el almacén local")
	return cmd
}

func importCmd(s *session) *cobra.Command {
	var latin1 bool
	var delimiter string
	cmd := &cobra.Command{
		Use:   "import <archivo.csv|archivo.yaml>",
		Short: "Importar productos al catálogo local",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := readCatalog(args[0], latin1, delimiter)
			if err != nil {
				return err
			}
			for _, p := range products {
				if err := s.app.store.SaveProduct(cmd.Context(), p); err != nil {
					return fmt.Errorf("guardar %s: %w", p.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d productos importados\n", len(products))
			return nil
		},
	}
	cmd.Flags().BoolVar(&latin1, "latin1", false, "CSV en ISO-8859-1")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "Separador del CSV")
	return cmd
}

// readCatalog elige el parser por extensión.
func readCatalog(path string, latin1 bool, delimiter string) ([]entity.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir catálogo: %w", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return seed.ParseYAML(f)
	default:
		opts := seed.CSVOptions{Latin1: latin1}
		if r := []rune(delimiter); len(r) == 1 {
			opts.Delimiter = r[0]
		}
		return seed.ParseCSV(f, opts)
	}
}

func enrollCmd(s *session) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enrolar la caja en la tienda con la clave compartida",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" {
				key = s.app.cfg.POS.EnrollmentKey
			}
			if err := s.app.enroll(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "caja %s enrolada\n", s.app.cfg.POS.TerminalID)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Clave de enrolamiento (default POS_ENROLLMENT_KEY)")
	return cmd
}

// ── Helpers ──

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// parseMoney acepta "1250,50" y "1250.50".
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("precio %q: %w", s, domain.ErrInvalidInput)
	}
	return d, nil
}
