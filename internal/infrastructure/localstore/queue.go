package localstore

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jhoicas/nordia-pos/internal/domain/entity"
)

// AddToSyncQueue agrega una entrada con ID generado, timestamp y retryCount 0.
func (s *Store) AddToSyncQueue(ctx context.Context, typ entity.SyncType, data json.RawMessage, priority entity.SyncPriority) (entity.SyncQueueEntry, error) {
	entry := entity.SyncQueueEntry{
		ID:         "sync-" + uuid.New().String(),
		Type:       typ,
		Data:       data,
		Priority:   priority,
		Timestamp:  s.now().UnixMilli(),
		RetryCount: 0,
	}
	err := mutateList(ctx, s, CollectionSyncQueue, func(list []entity.SyncQueueEntry) ([]entity.SyncQueueEntry, error) {
		return append(list, entry), nil
	})
	if err != nil {
		return entity.SyncQueueEntry{}, err
	}
	return entry, nil
}

// GetSyncQueue devuelve las entradas pendientes.
func (s *Store) GetSyncQueue(ctx context.Context) []entity.SyncQueueEntry {
	return loadList[entity.SyncQueueEntry](ctx, s, CollectionSyncQueue)
}

// UpdateSyncQueue aplica fn sobre la cola completa de forma atómica respecto de otros escritores del proceso.
func (s *Store) UpdateSyncQueue(ctx context.Context, fn func([]entity.SyncQueueEntry) []entity.SyncQueueEntry) error {
	return mutateList(ctx, s, CollectionSyncQueue, func(list []entity.SyncQueueEntry) ([]entity.SyncQueueEntry, error) {
		return fn(list), nil
	})
}

// AddToDeadLetter guarda entradas que agotaron sus reintentos.
func (s *Store) AddToDeadLetter(ctx context.Context, entries ...entity.SyncQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return mutateList(ctx, s, CollectionDeadLetter, func(list []entity.SyncQueueEntry) ([]entity.SyncQueueEntry, error) {
		return append(list, entries...), nil
	})
}

// GetDeadLetter devuelve las entradas que agotaron sus reintentos.
func (s *Store) GetDeadLetter(ctx context.Context) []entity.SyncQueueEntry {
	return loadList[entity.SyncQueueEntry](ctx, s, CollectionDeadLetter)
}

// UpdateDeadLetter aplica fn sobre la colección dead-letter.
func (s *Store) UpdateDeadLetter(ctx context.Context, fn func([]entity.SyncQueueEntry) []entity.SyncQueueEntry) error {
	return mutateList(ctx, s, CollectionDeadLetter, func(list []entity.SyncQueueEntry) ([]entity.SyncQueueEntry, error) {
		return fn(list), nil
	})
}
