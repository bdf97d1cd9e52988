package client

import (
	"context"

	"github.com/google/uuid"
)

type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetByPharmacyID(ctx context.Context, pharmacyID string) (*Client, error)
	Update(ctx context.Context, c *Client) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Client, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Client, int, error)
	IncrementVisits(ctx context.Context, id uuid.UUID) error
	// MaxPharmacyID returns the highest assigned pharmacy ID as an integer,
	// including soft-deleted clients, or 0 when none exist.
	MaxPharmacyID(ctx context.Context) (int, error)
	// PharmacyIDExists checks assignment across live and soft-deleted clients
	// so IDs are never recycled.
	PharmacyIDExists(ctx context.Context, pharmacyID string) (bool, error)
}

type NoteRepository interface {
	CreateNote(ctx context.Context, n *Note) error
	ListNotes(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Note, int, error)
	DeleteNote(ctx context.Context, clientID, noteID uuid.UUID) error
}
