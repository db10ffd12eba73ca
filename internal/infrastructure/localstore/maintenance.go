package localstore

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// DefaultRetention antigüedad máxima por defecto para ClearOldData.
const DefaultRetention = 30 * 24 * time.Hour

// Stats tamaño en bytes de cada colección serializada.
type Stats struct {
	Total     int                `json:"total"`
	Breakdown map[Collection]int `json:"breakdown"`
	Formatted string             `json:"formatted"`
}

// Stats calcula el tamaño serializado por colección.
func (s *Store) Stats(ctx context.Context) Stats {
	st := Stats{Breakdown: make(map[Collection]int, len(Collections()))}
	for _, c := range Collections() {
		raw, _, err := s.getRaw(ctx, c)
		if err != nil {
			s.log.Error().Err(err).Str("collection", string(c)).Msg("error midiendo colección")
		}
		st.Breakdown[c] = len(raw)
		st.Total += len(raw)
	}
	st.Formatted = FormatBytes(st.Total)
	return st
}

// FormatBytes representa un tamaño en Bytes/KB/MB/GB con hasta dos decimales.
func FormatBytes(n int) string {
	if n <= 0 {
		return "0 Bytes"
	}
	const k = 1024.0
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(k)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := math.Round(float64(n)/math.Pow(k, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}

// ClearStorage borra todas las colecciones del espacio de nombres.
func (s *Store) ClearStorage(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range Collections() {
		if err := s.deleteRaw(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// ClearOldData elimina productos y ventas con marca de tiempo anterior o igual a now - maxAge.
// maxAge <= 0 usa DefaultRetention. La cola de sincronización no se toca.
func (s *Store) ClearOldData(ctx context.Context, maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	cutoff := s.now().Add(-maxAge).UnixMilli()

	err := mutateList(ctx, s, CollectionProducts, func(list []entity.Product) ([]entity.Product, error) {
		out := list[:0]
		for _, p := range list {
			if p.LastUpdated > cutoff {
				out = append(out, p)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	return mutateList(ctx, s, CollectionSales, func(list []entity.SaleRecord) ([]entity.SaleRecord, error) {
		out := list[:0]
		for _, sale := range list {
			if sale.Timestamp > cutoff {
				out = append(out, sale)
			}
		}
		return out, nil
	})
}
