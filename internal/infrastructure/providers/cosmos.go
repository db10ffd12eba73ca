package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/application/resolver"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/catalog"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

var _ resolver.Provider = (*Cosmos)(nil)

// DefaultCosmosURL base de la API de productos de Cosmos (Bluesoft).
const DefaultCosmosURL = "https://api.cosmos.bluesoft.com.br/products/"

// cosmosConfidence confianza fija de una coincidencia en Cosmos.
const cosmosConfidence = 0.8

// ErrCosmosToken el proveedor se usó sin token configurado. Envuelve domain.ErrNotFound
// para que el resolver lo cuente como miss y siga con la cadena.
var ErrCosmosToken = fmt.Errorf("cosmos: X-Cosmos-Token no configurado: %w", domain.ErrNotFound)

// Cosmos proveedor B: requiere token de acceso.
type Cosmos struct {
	baseURL    string
	token      string
	classifier *catalog.Classifier
	httpClient *http.Client
}

// NewCosmos construye el proveedor. Sin token, Lookup devuelve ErrCosmosToken.
func NewCosmos(baseURL, token string, classifier *catalog.Classifier, client *http.Client) *Cosmos {
	if baseURL == "" {
		baseURL = DefaultCosmosURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if classifier == nil {
		classifier = catalog.NewClassifier(nil)
	}
	return &Cosmos{baseURL: baseURL, token: token, classifier: classifier, httpClient: newHTTPClient(client)}
}

func (c *Cosmos) Source() resolver.Source { return resolver.SourceCosmos }

// Configured indica si hay token para consultar.
func (c *Cosmos) Configured() bool { return c.token != "" }

type cosmosProduct struct {
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Brand       *struct {
		Name string `json:"name"`
	} `json:"brand"`
	Category *struct {
		Description string `json:"description"`
		Name        string `json:"name"`
	} `json:"category"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type cosmosResponse struct {
	cosmosProduct
	// Algunas cuentas reciben el producto envuelto.
	Product *cosmosProduct `json:"product"`
}

// Lookup consulta {base}{codigo} con el header X-Cosmos-Token.
func (c *Cosmos) Lookup(ctx context.Context, barcode string) (*resolver.Match, error) {
	if !c.Configured() {
		return nil, ErrCosmosToken
	}
	var body cosmosResponse
	headers := map[string]string{"X-Cosmos-Token": c.token}
	if err := getJSON(ctx, c.httpClient, "cosmos", c.baseURL+url.PathEscape(barcode), headers, &body); err != nil {
		return nil, err
	}
	p := body.Product
	if p == nil {
		p = &body.cosmosProduct
	}
	if p.Description == "" && p.Brand == nil && p.Category == nil {
		return nil, fmt.Errorf("cosmos: %w", domain.ErrNotFound)
	}
	return &resolver.Match{Product: c.mapProduct(p, barcode), Confidence: cosmosConfidence}, nil
}

func (c *Cosmos) mapProduct(p *cosmosProduct, barcode string) entity.Product {
	var brand, category string
	if p.Brand != nil {
		brand = p.Brand.Name
	}
	if p.Category != nil {
		category = firstNonEmpty(p.Category.Name, p.Category.Description)
	}
	image := p.Thumbnail
	if len(p.Images) > 0 && p.Images[0].URL != "" {
		image = p.Images[0].URL
	}
	return entity.Product{
		ID:              entity.IDPrefixCosmos + barcode,
		Barcode:         barcode,
		Name:            entity.TruncateName(firstNonEmpty(p.Description, entity.PlaceholderName(barcode))),
		Price:           decimal.Zero,
		Stock:           0,
		Category:        c.classifier.ClassifyText(category),
		Brand:           brand,
		Image:           image,
		IsExternal:      true,
		NeedsCompletion: true,
	}
}
