// Package seed carga el catálogo inicial: el catálogo de demostración embebido (YAML)
// o una planilla CSV exportada por el comercio.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

//go:embed catalog.yaml
var catalogYAML []byte

// SeededKey clave de estado que marca que la terminal ya cargó el catálogo inicial.
const SeededKey = "catalog-seeded"

type item struct {
	ID          string `yaml:"id"`
	Barcode     string `yaml:"barcode"`
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	Stock       int    `yaml:"stock"`
	Brand       string `yaml:"brand"`
	Description string `yaml:"description"`
}

type document struct {
	Products []item `yaml:"products"`
}

// Default catálogo de demostración embebido.
func Default() ([]entity.Product, error) {
	return ParseYAML(bytes.NewReader(catalogYAML))
}

// ParseYAML lee un documento {products: [...]}.
func ParseYAML(r io.Reader) ([]entity.Product, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("seed: decodificar YAML: %w", err)
	}
	out := make([]entity.Product, 0, len(doc.Products))
	for i, it := range doc.Products {
		p, err := it.product()
		if err != nil {
			return nil, fmt.Errorf("seed: producto %d (%s): %w", i+1, it.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (it item) product() (entity.Product, error) {
	if strings.TrimSpace(it.Name) == "" {
		return entity.Product{}, errors.New("nombre vacío")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(it.Price))
	if err != nil {
		return entity.Product{}, fmt.Errorf("precio %q: %w", it.Price, err)
	}
	id := it.ID
	if id == "" {
		id = entity.IDPrefixLocal + it.Barcode
	}
	return entity.Product{
		ID:          id,
		Barcode:     strings.TrimSpace(it.Barcode),
		Name:        strings.TrimSpace(it.Name),
		Description: it.Description,
		Price:       price,
		Stock:       it.Stock,
		Category:    entity.ParseCategory(it.Category),
		Brand:       it.Brand,
	}, nil
}

// CSVOptions formato de la planilla.
type CSVOptions struct {
	// Latin1 decodifica la entrada como ISO-8859-1 (exportaciones de Excel en Windows).
	Latin1    bool
	Delimiter rune
}

// ParseCSV lee una planilla con encabezado (id, barcode, name, price, category, stock, brand,
// description; sin importar mayúsculas). Columnas obligatorias: name y price.
// Se aceptan precios con coma decimal ("1250,50").
func ParseCSV(r io.Reader, opts CSVOptions) ([]entity.Product, error) {
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("seed: leer encabezado CSV: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"name", "price"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("seed: falta la columna %q", required)
		}
	}

	var out []entity.Product
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("seed: línea %d: %w", line, err)
		}
		field := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		it := item{
			ID:          field("id"),
			Barcode:     field("barcode"),
			Name:        field("name"),
			Price:       strings.ReplaceAll(field("price"), ",", "."),
			Category:    field("category"),
			Brand:       field("brand"),
			Description: field("description"),
		}
		if s := field("stock"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("seed: línea %d: stock %q: %w", line, s, err)
			}
			it.Stock = n
		}
		if it.ID == "" && it.Barcode == "" {
			return nil, fmt.Errorf("seed: línea %d: se requiere id o barcode", line)
		}
		p, err := it.product()
		if err != nil {
			return nil, fmt.Errorf("seed: línea %d: %w", line, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// LocalStore lo que necesita la carga inicial de la terminal.
type LocalStore interface {
	SaveProduct(ctx context.Context, p entity.Product) error
	SaveAppState(ctx context.Context, key string, value any) error
	LoadAppState(ctx context.Context, key string, out any) (bool, error)
}

// SeedLocal carga products en el catálogo local una única vez. Devuelve cuántos guardó.
func SeedLocal(ctx context.Context, store LocalStore, products []entity.Product) (int, error) {
	var done bool
	if ok, err := store.LoadAppState(ctx, SeededKey, &done); err != nil {
		return 0, err
	} else if ok && done {
		return 0, nil
	}
	for _, p := range products {
		if err := store.SaveProduct(ctx, p); err != nil {
			return 0, fmt.Errorf("seed: guardar %s: %w", p.ID, err)
		}
	}
	if err := store.SaveAppState(ctx, SeededKey, true); err != nil {
		return len(products), err
	}
	return len(products), nil
}
