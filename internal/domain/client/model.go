package client

import (
	"time"

	"github.com/google/uuid"
)

// Client maps to the clients table. PharmacyID is the 5-digit identifier
// handed to the client at the counter; it never changes once assigned and is
// never reused, which is why deletion is a soft delete.
type Client struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PharmacyID       string     `db:"pharmacy_id" json:"pharmacy_id"`
	FullName         string     `db:"full_name" json:"full_name"`
	Age              int        `db:"age" json:"age"`
	Sex              string     `db:"sex" json:"sex"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Address          *string    `db:"address" json:"address,omitempty"`
	Occupation       *string    `db:"occupation" json:"occupation,omitempty"`
	Language         string     `db:"language" json:"language"`
	HealthConditions *string    `db:"health_conditions" json:"health_conditions,omitempty"`
	Goal             string     `db:"goal" json:"goal"`
	TargetWeightKg   *float64   `db:"target_weight_kg" json:"target_weight_kg,omitempty"`
	ActivityLevel    string     `db:"activity_level" json:"activity_level"`
	CadenceDays      int        `db:"cadence_days" json:"cadence_days"`
	VisitCount       int        `db:"visit_count" json:"visit_count"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Deleted reports whether the client has been soft-deleted.
func (c *Client) Deleted() bool { return c.DeletedAt != nil }

// Note is a dated free-text entry on a client's record, separate from the
// structured health_conditions field.
type Note struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ClientID   uuid.UUID `db:"client_id" json:"client_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
