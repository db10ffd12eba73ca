package localstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// AppStateValue valor del mapa de estado con su marca de tiempo (epoch ms).
type AppStateValue struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
}

// SaveAppState guarda value bajo key.
func (s *Store) SaveAppState(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serializar estado %q: %w", key, err)
	}
	return s.mutateAppState(ctx, func(state map[string]AppStateValue) {
		state[key] = AppStateValue{Value: raw, Timestamp: s.now().UnixMilli()}
	})
}

// DeleteAppState elimina key del estado.
func (s *Store) DeleteAppState(ctx context.Context, key string) error {
	return s.mutateAppState(ctx, func(state map[string]AppStateValue) {
		delete(state, key)
	})
}

// GetAppState devuelve el mapa completo de estado.
func (s *Store) GetAppState(ctx context.Context) map[string]AppStateValue {
	state := map[string]AppStateValue{}
	if err := s.load(ctx, CollectionAppState, &state); err != nil {
		s.log.Error().Err(err).Msg("error leyendo estado de la app")
		return map[string]AppStateValue{}
	}
	if state == nil {
		return map[string]AppStateValue{}
	}
	return state
}

// LoadAppState decodifica el valor de key en out. Devuelve false si no existe.
func (s *Store) LoadAppState(ctx context.Context, key string, out any) (bool, error) {
	v, ok := s.GetAppState(ctx)[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(v.Value, out); err != nil {
		return false, fmt.Errorf("decodificar estado %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) mutateAppState(ctx context.Context, fn func(map[string]AppStateValue)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := map[string]AppStateValue{}
	if err := s.load(ctx, CollectionAppState, &state); err != nil {
		return err
	}
	if state == nil {
		state = map[string]AppStateValue{}
	}
	fn(state)
	if err := s.save(ctx, CollectionAppState, state); err != nil {
		s.log.Error().Err(err).Msg("error guardando estado de la app")
		return err
	}
	return nil
}
