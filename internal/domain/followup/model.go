package followup

import (
	"time"

	"github.com/google/uuid"
)

// FollowUp is derived on demand from the client's cadence and last recorded
// event; it is never persisted. Recomputing with the same reference day
// always yields the same answer.
type FollowUp struct {
	ClientID    uuid.UUID `json:"client_id"`
	PharmacyID  string    `json:"pharmacy_id"`
	FullName    string    `json:"full_name"`
	LastEvent   time.Time `json:"last_event"`
	DueDate     time.Time `json:"due_date"`
	Status      Status    `json:"status"`
	DaysUntil   int       `json:"days_until"`
	CadenceDays int       `json:"cadence_days"`
}
