package mealplan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutrirec/nutrirec/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const planCols = `id, client_id, plan_date, breakfast, morning_snack, lunch,
	afternoon_snack, dinner, evening_snack, water_liters, total_calories,
	compliance_score, notes, created_at, updated_at`

func scanPlan(row pgx.Row) (*MealPlan, error) {
	var p MealPlan
	err := row.Scan(&p.ID, &p.ClientID, &p.PlanDate, &p.Breakfast, &p.MorningSnack,
		&p.Lunch, &p.AfternoonSnack, &p.Dinner, &p.EveningSnack, &p.WaterLiters,
		&p.TotalCalories, &p.ComplianceScore, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Upsert(ctx context.Context, p *MealPlan) error {
	// On conflict the existing row's id survives; RETURNING reports it back.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO meal_plans (id, client_id, plan_date, breakfast, morning_snack,
			lunch, afternoon_snack, dinner, evening_snack, water_liters,
			total_calories, compliance_score, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (client_id, plan_date) DO UPDATE SET
			breakfast = EXCLUDED.breakfast,
			morning_snack = EXCLUDED.morning_snack,
			lunch = EXCLUDED.lunch,
			afternoon_snack = EXCLUDED.afternoon_snack,
			dinner = EXCLUDED.dinner,
			evening_snack = EXCLUDED.evening_snack,
			water_liters = EXCLUDED.water_liters,
			total_calories = EXCLUDED.total_calories,
			compliance_score = EXCLUDED.compliance_score,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), p.ClientID, p.PlanDate, p.Breakfast, p.MorningSnack, p.Lunch,
		p.AfternoonSnack, p.Dinner, p.EveningSnack, p.WaterLiters, p.TotalCalories,
		p.ComplianceScore, p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByClientAndDate(ctx context.Context, clientID uuid.UUID, date time.Time) (*MealPlan, error) {
	return scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM meal_plans WHERE client_id = $1 AND plan_date = $2`,
		clientID, date))
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID, from, to time.Time, limit, offset int) ([]*MealPlan, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM meal_plans WHERE client_id = $1 AND plan_date BETWEEN $2 AND $3`,
		clientID, from, to).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+planCols+` FROM meal_plans
		 WHERE client_id = $1 AND plan_date BETWEEN $2 AND $3
		 ORDER BY plan_date ASC LIMIT $4 OFFSET $5`,
		clientID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*MealPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM meal_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
