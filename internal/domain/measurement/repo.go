package measurement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is intentionally append-only: measurements are clinical
// history, so there is no update or delete.
type Repository interface {
	Append(ctx context.Context, m *Measurement) error
	// ListByClient returns the history ordered by taken_at ascending,
	// optionally restricted to rows taken at or after since.
	ListByClient(ctx context.Context, clientID uuid.UUID, since *time.Time, limit, offset int) ([]*Measurement, int, error)
	Latest(ctx context.Context, clientID uuid.UUID) (*Measurement, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int, error)
}
