package repository

import (
	"context"
	"database/sql"
)

// AuditRepo appends to the audit_logs and auth_attempts tables.  Both are
// best-effort: callers log write failures but do not fail the request.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Record appends an audit row.  actorID may be nil for anonymous actions.
func (r *AuditRepo) Record(ctx context.Context, actorID *uint64, action, entity string, entityID uint64, detail string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_logs (actor_id, action, entity, entity_id, detail) VALUES (?,?,?,?,?)",
		actorID, action, entity, entityID, detail)
	return err
}

// RecordAuthAttempt appends a login attempt row.
func (r *AuditRepo) RecordAuthAttempt(ctx context.Context, identifier string, ok bool) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_attempts (identifier, ok) VALUES (?,?)",
		identifier, ok)
	return err
}
