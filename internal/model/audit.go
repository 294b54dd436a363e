package model

import "time"

// AuditLog mirrors the `audit_logs` table.  Rows are written by auth and
// admin mutations; the table is append-only.
type AuditLog struct {
	ID        uint64    // audit_logs.id
	ActorID   *uint64   // audit_logs.actor_id (nullable, nil for anonymous)
	Action    string    // audit_logs.action (e.g. "booking.create")
	Entity    string    // audit_logs.entity (table name)
	EntityID  uint64    // audit_logs.entity_id
	Detail    string    // audit_logs.detail (short human-readable note)
	CreatedAt time.Time // audit_logs.created_at
}

// AuthAttempt mirrors the `auth_attempts` table, one row per login try.
type AuthAttempt struct {
	ID         uint64    // auth_attempts.id
	Identifier string    // auth_attempts.identifier (normalized email/username)
	OK         bool      // auth_attempts.ok
	CreatedAt  time.Time // auth_attempts.created_at
}
