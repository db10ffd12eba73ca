// Package catalog contiene la clasificación de productos externos en las categorías del comercio.
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// Rule asocia una categoría con las palabras clave que la identifican.
type Rule struct {
	Category entity.Category
	Keywords []string
}

// DefaultRules tabla de palabras clave (inglés de Open Food Facts y español local).
// El orden importa: gana la primera categoría con coincidencia.
var DefaultRules = []Rule{
	{entity.CategoryBebidas, []string{"beverages", "drinks", "agua", "gaseosa", "jugo", "cerveza", "vino"}},
	{entity.CategoryLacteos, []string{"dairy", "milk", "cheese", "yogurt", "leche", "queso", "manteca"}},
	{entity.CategoryPanaderia, []string{"bread", "bakery", "cookies", "pan", "galleta", "factura"}},
	{entity.CategorySnacks, []string{"snacks", "chips", "crackers", "papas", "maní"}},
	{entity.CategoryLimpieza, []string{"cleaning", "detergent", "soap", "lavandina", "jabón"}},
	{entity.CategoryCigarrillos, []string{"tobacco", "cigarette", "cigarrillo"}},
	{entity.CategoryAlmacen, []string{"rice", "pasta", "oil", "arroz", "fideos", "aceite", "azúcar"}},
	{entity.CategoryVarios, []string{"varios", "other"}},
	{entity.CategoryOtros, []string{"otros", "miscellaneous"}},
}

// Classifier mapea etiquetas de texto libre a una categoría cerrada.
// Es puro y seguro para uso concurrente.
type Classifier struct {
	rules []Rule
}

// NewClassifier construye el clasificador; con rules nil usa DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	normalized := make([]Rule, len(rules))
	lower := cases.Lower(language.Und)
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = lower.String(kw)
		}
		normalized[i] = Rule{Category: r.Category, Keywords: kws}
	}
	return &Classifier{rules: normalized}
}

// Classify busca por subcadena (sin distinguir mayúsculas) sobre todas las etiquetas unidas.
// Sin etiquetas o sin coincidencias devuelve otros.
func (c *Classifier) Classify(tags []string) entity.Category {
	if len(tags) == 0 {
		return entity.CategoryOtros
	}
	// cases.Caser guarda estado: uno por llamada.
	text := cases.Lower(language.Und).String(strings.Join(tags, " "))
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Category
			}
		}
	}
	return entity.CategoryOtros
}

// ClassifyText clasifica un único texto (p. ej. el nombre de categoría de Cosmos).
func (c *Classifier) ClassifyText(text string) entity.Category {
	if strings.TrimSpace(text) == "" {
		return entity.CategoryOtros
	}
	return c.Classify([]string{text})
}
