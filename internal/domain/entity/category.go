package entity

import "strings"

// Category es el rubro de un producto dentro del catálogo del comercio (enumeración cerrada).
type Category string

const (
	CategoryBebidas     Category = "bebidas"
	CategoryLacteos     Category = "lacteos"
	CategoryPanaderia   Category = "panaderia"
	CategorySnacks      Category = "snacks"
	CategoryLimpieza    Category = "limpieza"
	CategoryCigarrillos Category = "cigarrillos"
	CategoryAlmacen     Category = "almacen"
	CategoryVarios      Category = "varios"
	CategoryOtros       Category = "otros"
)

// Categories devuelve las categorías en el orden en que las evalúa el clasificador.
func Categories() []Category {
	return []Category{
		CategoryBebidas,
		CategoryLacteos,
		CategoryPanaderia,
		CategorySnacks,
		CategoryLimpieza,
		CategoryCigarrillos,
		CategoryAlmacen,
		CategoryVarios,
		CategoryOtros,
	}
}

// Valid indica si c pertenece a la enumeración.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normaliza un texto libre a una categoría conocida.
// Acepta mayúsculas y acentos del backend ("Lácteos", "Almacén"); lo desconocido cae en otros.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(s)
	c := Category(s)
	if c.Valid() {
		return c
	}
	return CategoryOtros
}
