package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/nordia-pos/internal/domain/repository"
)

var _ repository.TerminalRepository = (*TerminalRepo)(nil)

// TerminalRepo implementación sobre PostgreSQL.
type TerminalRepo struct {
	q Querier
}

// NewTerminalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTerminalRepository(q Querier) *TerminalRepo {
	return &TerminalRepo{q: q}
}

func (r *TerminalRepo) Touch(ctx context.Context, terminalID string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO terminals (id, last_seen_at) VALUES ($1, now())
		ON CONFLICT (id) DO UPDATE SET last_seen_at = now()`, terminalID)
	if err != nil {
		return fmt.Errorf("touch terminal: %w", err)
	}
	return nil
}
