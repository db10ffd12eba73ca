package entity

import (
	"encoding/json"
	"time"
)

// SyncType tipo de mutación pendiente de enviar a la tienda.
type SyncType string

const (
	SyncSale      SyncType = "sale"
	SyncProduct   SyncType = "product"
	SyncInventory SyncType = "inventory"
)

// SyncPriority prioridad de envío.
type SyncPriority string

const (
	PriorityLow    SyncPriority = "low"
	PriorityMedium SyncPriority = "medium"
	PriorityHigh   SyncPriority = "high"
)

// Rank valor numérico para ordenar (mayor primero).
func (p SyncPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// SyncQueueEntry mutación registrada offline. Nunca se descarta en silencio:
// sale de la cola al ser confirmada, al pasar a dead-letter o por una purga explícita.
type SyncQueueEntry struct {
	ID          string          `json:"id"`
	Type        SyncType        `json:"type"`
	Data        json.RawMessage `json:"data"`
	Priority    SyncPriority    `json:"priority"`
	Timestamp   int64           `json:"timestamp"`
	RetryCount  int             `json:"retryCount"`
	LastError   string          `json:"lastError,omitempty"`
	LastAttempt int64           `json:"lastAttempt,omitempty"`
	NextAttempt int64           `json:"nextAttempt,omitempty"`
}

// Due indica si la entrada puede intentarse en now.
func (e *SyncQueueEntry) Due(now time.Time) bool {
	return e.NextAttempt == 0 || now.UnixMilli() >= e.NextAttempt
}

// InventoryUpdate payload de una entrada de tipo inventory.
type InventoryUpdate struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}
