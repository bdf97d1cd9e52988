package client

import (
	"context"
	"errors"

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

type clientRepoPG struct{ pool *pgxpool.Pool }

func NewClientRepoPG(pool *pgxpool.Pool) ClientRepository {
	return &clientRepoPG{pool: pool}
}

func (r *clientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const clientCols = `id, pharmacy_id, full_name, age, sex, phone, address, occupation,
	language, health_conditions, goal, target_weight_kg, activity_level,
	cadence_days, visit_count, deleted_at, created_at, updated_at`

func (r *clientRepoPG) scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.PharmacyID, &c.FullName, &c.Age, &c.Sex, &c.Phone,
		&c.Address, &c.Occupation, &c.Language, &c.HealthConditions, &c.Goal,
		&c.TargetWeightKg, &c.ActivityLevel, &c.CadenceDays, &c.VisitCount,
		&c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRepoPG) Create(ctx context.Context, c *Client) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clients (id, pharmacy_id, full_name, age, sex, phone, address,
			occupation, language, health_conditions, goal, target_weight_kg,
			activity_level, cadence_days, visit_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		c.ID, c.PharmacyID, c.FullName, c.Age, c.Sex, c.Phone, c.Address,
		c.Occupation, c.Language, c.HealthConditions, c.Goal, c.TargetWeightKg,
		c.ActivityLevel, c.CadenceDays, c.VisitCount,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *clientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	return r.scanClient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clientCols+` FROM clients WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *clientRepoPG) GetByPharmacyID(ctx context.Context, pharmacyID string) (*Client, error) {
	return r.scanClient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clientCols+` FROM clients WHERE pharmacy_id = $1 AND deleted_at IS NULL`, pharmacyID))
}

func (r *clientRepoPG) Update(ctx context.Context, c *Client) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET full_name=$2, age=$3, sex=$4, phone=$5, address=$6,
			occupation=$7, language=$8, health_conditions=$9, goal=$10,
			target_weight_kg=$11, activity_level=$12, cadence_days=$13, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		c.ID, c.FullName, c.Age, c.Sex, c.Phone, c.Address,
		c.Occupation, c.Language, c.HealthConditions, c.Goal,
		c.TargetWeightKg, c.ActivityLevel, c.CadenceDays)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clients SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepoPG) List(ctx context.Context, limit, offset int) ([]*Client, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clients WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clientCols+` FROM clients WHERE deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *clientRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Client, int, error) {
	pattern := "%" + query + "%"
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM clients
		WHERE deleted_at IS NULL
		  AND (full_name ILIKE $1 OR phone LIKE $1 OR pharmacy_id LIKE $1)`,
		pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+clientCols+` FROM clients
		WHERE deleted_at IS NULL
		  AND (full_name ILIKE $1 OR phone LIKE $1 OR pharmacy_id LIKE $1)
		ORDER BY full_name LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *clientRepoPG) collect(rows pgx.Rows, total int) ([]*Client, int, error) {
	var items []*Client
	for rows.Next() {
		c, err := r.scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *clientRepoPG) IncrementVisits(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clients SET visit_count = visit_count + 1, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepoPG) MaxPharmacyID(ctx context.Context) (int, error) {
	var max int
	// Soft-deleted rows are included so released IDs are never reassigned.
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(pharmacy_id::integer), 0) FROM clients`).Scan(&max)
	return max, err
}

func (r *clientRepoPG) PharmacyIDExists(ctx context.Context, pharmacyID string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE pharmacy_id = $1)`, pharmacyID).Scan(&exists)
	return exists, err
}

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const noteCols = `id, client_id, author_id, author_name, body, created_at`

func (r *noteRepoPG) CreateNote(ctx context.Context, n *Note) error {
	n.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO client_notes (id, client_id, author_id, author_name, body)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		n.ID, n.ClientID, n.AuthorID, n.AuthorName, n.Body,
	).Scan(&n.CreatedAt)
}

func (r *noteRepoPG) ListNotes(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM client_notes WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM client_notes WHERE client_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ClientID, &n.AuthorID, &n.AuthorName, &n.Body, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &n)
	}
	return items, total, rows.Err()
}

func (r *noteRepoPG) DeleteNote(ctx context.Context, clientID, noteID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM client_notes WHERE id = $1 AND client_id = $2`, noteID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
