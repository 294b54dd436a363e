package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/roamfleet/vehicle-rental/internal/utils"
)

// VerificationRepo persists email verification tokens.  A new token is
// issued at sign-up and on every resend; issuing consumes any earlier
// outstanding token for the same email so only the latest link works.
type VerificationRepo struct{ DB *sql.DB }

func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{DB: db} }

// Issue creates a fresh verification token for the email and returns the
// raw token to embed in the verification link.  Older unconsumed tokens
// for the same address are retired first.
func (r *VerificationRepo) Issue(ctx context.Context, email string, ttl time.Duration) (string, error) {
	email = utils.NormalizeIdentifier(email)
	raw, err := utils.RandomHex(32)
	if err != nil {
		return "", err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE email_verifications SET consumed_at=NOW() WHERE email=? AND consumed_at IS NULL",
		email); err != nil {
		return "", err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO email_verifications (email, token_hash, expires_at) VALUES (?,?,?)",
		email, utils.HashTokenRaw(raw), time.Now().UTC().Add(ttl))
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Consume validates a raw verification token and marks it used.  It
// returns the email the token was issued for.
func (r *VerificationRepo) Consume(ctx context.Context, raw string) (string, error) {
	hash := utils.HashTokenRaw(raw)
	var (
		email      string
		expiresAt  time.Time
		consumedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT email, expires_at, consumed_at FROM email_verifications WHERE token_hash=? LIMIT 1",
		hash).Scan(&email, &expiresAt, &consumedAt)
	if err != nil {
		return "", err
	}
	if consumedAt.Valid || time.Now().UTC().After(expiresAt) {
		return "", sql.ErrNoRows
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE email_verifications SET consumed_at=NOW() WHERE token_hash=?", hash)
	if err != nil {
		return "", err
	}
	return email, nil
}
