package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinrec/clinrec/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type AuditRepoPG struct {
	pool *pgxpool.Pool
}

func NewAuditRepoPG(pool *pgxpool.Pool) *AuditRepoPG {
	return &AuditRepoPG{pool: pool}
}

func (r *AuditRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const auditCols = `id, actor_id, actor_role, patient_id, action, reason,
	emergency, requires_review, request_id, recorded, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.ActorID, &e.ActorRole, &e.PatientID, &e.Action, &e.Reason,
		&e.Emergency, &e.RequiresReview, &e.RequestID, &e.Recorded, &e.CreatedAt,
	)
	return &e, err
}

func (r *AuditRepoPG) Record(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	const q = `INSERT INTO access_audit (id, actor_id, actor_role, patient_id,
			action, reason, emergency, requires_review, request_id, recorded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.conn(ctx).Exec(ctx, q,
		e.ID, e.ActorID, e.ActorRole, e.PatientID,
		e.Action, e.Reason, e.Emergency, e.RequiresReview, e.RequestID, e.Recorded,
	)
	return err
}

func (r *AuditRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	q := fmt.Sprintf("SELECT %s FROM access_audit WHERE id = $1", auditCols)
	return scanEntry(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *AuditRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if v, ok := params["action"]; ok {
		where = append(where, fmt.Sprintf("action = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["reason"]; ok {
		where = append(where, fmt.Sprintf("reason = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["actor"]; ok {
		where = append(where, fmt.Sprintf("actor_id = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["patient"]; ok {
		where = append(where, fmt.Sprintf("patient_id = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["requires-review"]; ok {
		where = append(where, fmt.Sprintf("requires_review = $%d", idx))
		args = append(args, v == "true")
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM access_audit %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM access_audit %s ORDER BY recorded DESC LIMIT $%d OFFSET $%d",
		auditCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
