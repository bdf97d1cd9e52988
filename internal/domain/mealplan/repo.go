package mealplan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts the plan or, when one already exists for the same
	// client and date, replaces its slots in place.
	Upsert(ctx context.Context, p *MealPlan) error
	GetByClientAndDate(ctx context.Context, clientID uuid.UUID, date time.Time) (*MealPlan, error)
	// ListByClient returns plans with plan_date in [from, to], ascending.
	ListByClient(ctx context.Context, clientID uuid.UUID, from, to time.Time, limit, offset int) ([]*MealPlan, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
