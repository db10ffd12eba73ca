package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/catalog"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// Verificar en tiempo de compilación que OpenFoodFacts implementa resolver.Provider.
var _ resolver.Provider = (*OpenFoodFacts)(nil)

// DefaultOpenFoodFactsURL base de la API v0 de Open Food Facts.
const DefaultOpenFoodFactsURL = "https://world.openfoodfacts.org/api/v0/product/"

// OpenFoodFacts proveedor A: catálogo público y gratuito.
type OpenFoodFacts struct {
	baseURL    string
	classifier *catalog.Classifier
	httpClient *http.Client
}

// NewOpenFoodFacts construye el proveedor. baseURL vacío usa DefaultOpenFoodFactsURL.
func NewOpenFoodFacts(baseURL string, classifier *catalog.Classifier, client *http.Client) *OpenFoodFacts {
	if baseURL == "" {
		baseURL = DefaultOpenFoodFactsURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if classifier == nil {
		classifier = catalog.NewClassifier(nil)
	}
	return &OpenFoodFacts{baseURL: baseURL, classifier: classifier, httpClient: newHTTPClient(client)}
}

func (o *OpenFoodFacts) Source() resolver.Source { return resolver.SourceOpenFoodFacts }

type offResponse struct {
	Status  int         `json:"status"`
	Product *offProduct `json:"product"`
}

type offProduct struct {
	ProductName       string   `json:"product_name"`
	ProductNameES     string   `json:"product_name_es"`
	Brands            string   `json:"brands"`
	ImageURL          string   `json:"image_url"`
	CategoriesTags    []string `json:"categories_tags"`
	IngredientsTextES string   `json:"ingredients_text_es"`
	IngredientsText   string   `json:"ingredients_text"`
}

// Lookup consulta {base}{codigo}.json. status distinto de 1 es "no encontrado".
func (o *OpenFoodFacts) Lookup(ctx context.Context, barcode string) (*resolver.Match, error) {
	var body offResponse
	if err := getJSON(ctx, o.httpClient, "openfoodfacts", o.baseURL+url.PathEscape(barcode)+".json", nil, &body); err != nil {
		return nil, err
	}
	if body.Status != 1 || body.Product == nil {
		return nil, fmt.Errorf("openfoodfacts: %w", domain.ErrNotFound)
	}
	return &resolver.Match{
		Product:    o.mapProduct(body.Product, barcode),
		Confidence: offConfidence(body.Product),
	}, nil
}

func (o *OpenFoodFacts) mapProduct(p *offProduct, barcode string) entity.Product {
	name := firstNonEmpty(p.ProductName, p.ProductNameES, entity.PlaceholderName(barcode))
	return entity.Product{
		ID:              entity.IDPrefixOpenFoodFacts + barcode,
		Barcode:         barcode,
		Name:            entity.TruncateName(name),
		Description:     firstNonEmpty(p.IngredientsTextES, p.IngredientsText),
		Price:           decimal.Zero,
		Stock:           0,
		Category:        o.classifier.Classify(p.CategoriesTags),
		Brand:           firstBrand(p.Brands),
		Image:           p.ImageURL,
		IsExternal:      true,
		NeedsCompletion: true,
	}
}

// offConfidence 0.5 base, +0.2 nombre, +0.1 marca, +0.1 imagen, +0.1 categorías; tope 1.
func offConfidence(p *offProduct) float64 {
	c := 0.5
	if p.ProductName != "" {
		c += 0.2
	}
	if p.Brands != "" {
		c += 0.1
	}
	if p.ImageURL != "" {
		c += 0.1
	}
	if len(p.CategoriesTags) > 0 {
		c += 0.1
	}
	return math.Min(math.Round(c*100)/100, 1)
}

func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
