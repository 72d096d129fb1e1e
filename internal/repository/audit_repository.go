package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/modbot/internal/domain"
)

// AuditRepository persists audit records to Postgres.
type AuditRepository interface {
	Insert(ctx context.Context, rec *domain.AuditRecord) error
	// List returns the newest records first, optionally for one target.
	List(ctx context.Context, targetID string, limit int) ([]domain.AuditRecord, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns a Postgres-backed implementation.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Insert(ctx context.Context, rec *domain.AuditRecord) error {
	const query = `
        INSERT INTO audit_records (id, event_type, domain, actor_id, target_id, summary, payload, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO NOTHING`

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	if rec.Payload == nil {
		payload = []byte("{}")
	}

	_, err = r.pool.Exec(ctx, query,
		rec.ID,
		rec.Type,
		rec.Domain,
		rec.ActorID,
		rec.TargetID,
		rec.Summary,
		payload,
		rec.CreatedAt,
	)
	return err
}

func (r *auditRepository) List(ctx context.Context, targetID string, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const query = `
        SELECT id::text, event_type, domain, actor_id, target_id, summary, payload, created_at
        FROM audit_records
        WHERE ($1 = '' OR target_id = $1)
        ORDER BY created_at DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditRecord
	for rows.Next() {
		var (
			rec     domain.AuditRecord
			payload []byte
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Type,
			&rec.Domain,
			&rec.ActorID,
			&rec.TargetID,
			&rec.Summary,
			&payload,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
