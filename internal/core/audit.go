package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Auditor records who did what. Recording is fire-and-forget: failures are
// logged and never surface to the primary operation.
type Auditor interface {
	Record(ctx context.Context, role, action, affectedTable string, recordID int, before, after any)
	Recent(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID            int             `json:"id"`
	Role          string          `json:"role"`
	Action        string          `json:"action"`
	AffectedTable *string         `json:"affected_table,omitempty"`
	RecordID      *int            `json:"record_id,omitempty"`
	Before        json.RawMessage `json:"before,omitempty"`
	After         json.RawMessage `json:"after,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuditFilter narrows Recent queries. Zero values mean "no bound".
type AuditFilter struct {
	Role     string
	Table    string
	FromDate string // YYYY-MM-DD
	ToDate   string
	Limit    int
}

type auditor struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewAuditor constructs a database-backed Auditor.
func NewAuditor(pool *pgxpool.Pool, log *zap.Logger) Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &auditor{pool: pool, log: log}
}

func (a *auditor) Record(ctx context.Context, role, action, affectedTable string, recordID int, before, after any) {
	beforeJSON := marshalOrNil(before)
	afterJSON := marshalOrNil(after)

	var tablePtr *string
	if affectedTable != "" {
		tablePtr = &affectedTable
	}
	var idPtr *int
	if recordID != 0 {
		idPtr = &recordID
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO audit_log (role, action, affected_table, record_id, before_data, after_data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, role, action, tablePtr, idPtr, beforeJSON, afterJSON)
	if err != nil {
		a.log.Warn("audit record failed",
			zap.String("action", action),
			zap.String("role", role),
			zap.Error(err))
	}
}

func (a *auditor) Recent(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	q := `
		SELECT id, role, action, affected_table, record_id, before_data, after_data, created_at
		FROM audit_log
		WHERE 1=1`
	var args []any

	if filter.Role != "" {
		args = append(args, filter.Role)
		q += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Table != "" {
		args = append(args, filter.Table)
		q += fmt.Sprintf(" AND affected_table = $%d", len(args))
	}
	if filter.FromDate != "" {
		args = append(args, filter.FromDate)
		q += fmt.Sprintf(" AND created_at::date >= $%d::date", len(args))
	}
	if filter.ToDate != "" {
		args = append(args, filter.ToDate)
		q += fmt.Sprintf(" AND created_at::date <= $%d::date", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Role, &e.Action, &e.AffectedTable, &e.RecordID,
			&e.Before, &e.After, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalOrNil(v any) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
