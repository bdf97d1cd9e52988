package measurement

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

const measurementCols = `id, client_id, taken_at, height_cm, weight_kg, bmi,
	body_fat_pct, muscle_pct, water_pct, mineral_pct, bone_density, notes, created_at`

func scanMeasurement(row pgx.Row) (*Measurement, error) {
	var m Measurement
	err := row.Scan(&m.ID, &m.ClientID, &m.TakenAt, &m.HeightCm, &m.WeightKg,
		&m.BMI, &m.BodyFatPct, &m.MusclePct, &m.WaterPct, &m.MineralPct,
		&m.BoneDensity, &m.Notes, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) Append(ctx context.Context, m *Measurement) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO measurements (id, client_id, taken_at, height_cm, weight_kg,
			bmi, body_fat_pct, muscle_pct, water_pct, mineral_pct, bone_density, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at`,
		m.ID, m.ClientID, m.TakenAt, m.HeightCm, m.WeightKg, m.BMI,
		m.BodyFatPct, m.MusclePct, m.WaterPct, m.MineralPct, m.BoneDensity, m.Notes,
	).Scan(&m.CreatedAt)
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID, since *time.Time, limit, offset int) ([]*Measurement, int, error) {
	var (
		total int
		rows  pgx.Rows
		err   error
	)
	if since != nil {
		err = r.conn(ctx).QueryRow(ctx,
			`SELECT COUNT(*) FROM measurements WHERE client_id = $1 AND taken_at >= $2`,
			clientID, *since).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
		rows, err = r.conn(ctx).Query(ctx,
			`SELECT `+measurementCols+` FROM measurements
			 WHERE client_id = $1 AND taken_at >= $2
			 ORDER BY taken_at ASC LIMIT $3 OFFSET $4`,
			clientID, *since, limit, offset)
	} else {
		err = r.conn(ctx).QueryRow(ctx,
			`SELECT COUNT(*) FROM measurements WHERE client_id = $1`,
			clientID).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
		rows, err = r.conn(ctx).Query(ctx,
			`SELECT `+measurementCols+` FROM measurements
			 WHERE client_id = $1 ORDER BY taken_at ASC LIMIT $2 OFFSET $3`,
			clientID, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Latest(ctx context.Context, clientID uuid.UUID) (*Measurement, error) {
	return scanMeasurement(r.conn(ctx).QueryRow(ctx,
		`SELECT `+measurementCols+` FROM measurements
		 WHERE client_id = $1 ORDER BY taken_at DESC LIMIT 1`, clientID))
}

func (r *repoPG) CountByClient(ctx context.Context, clientID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM measurements WHERE client_id = $1`, clientID).Scan(&n)
	return n, err
}
