package model

import "time"

// Profile represents a customer or admin account as stored in the
// `profiles` table.  Each field corresponds to a column.  The json tags
// are omitted here because these structs are used internally by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID               – primary key identifier of the profile.
//  Username         – unique handle, lowercase letters, digits, underscore.
//  Email            – unique email address, stored lowercase.
//  PasswordHash     – bcrypt hashed password.
//  FullName         – display name shown on bookings.
//  AvatarURL        – optional reference to a stored avatar image.
//  Role             – CUSTOMER or ADMIN.
//  IsActive         – whether the account may sign in.
//  EmailConfirmedAt – when the email was verified; nil until confirmed.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Profile struct {
	ID               uint64     // profiles.id
	Username         string     // profiles.username
	Email            string     // profiles.email
	PasswordHash     string     // profiles.password_hash
	FullName         string     // profiles.full_name
	AvatarURL        *string    // profiles.avatar_url (nullable)
	Role             string     // profiles.role
	IsActive         bool       // profiles.is_active
	EmailConfirmedAt *time.Time // profiles.email_confirmed_at (nullable)
	CreatedAt        time.Time  // profiles.created_at
	UpdatedAt        time.Time  // profiles.updated_at
}

// EmailVerified reports whether the profile's email has been confirmed.
// A profile is verified iff the confirmation timestamp is set.
func (p Profile) EmailVerified() bool { return p.EmailConfirmedAt != nil }

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a profile and carries metadata for expiry
// and revocation.  The plain token is never stored; only its SHA-256
// hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (nil if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// EmailVerification models a row in the `email_verifications` table.
// A fresh token is issued at sign-up and on each resend; older tokens
// for the same email are invalidated by consumption or expiry.
type EmailVerification struct {
	ID         uint64     // email_verifications.id
	Email      string     // email_verifications.email
	TokenHash  string     // email_verifications.token_hash
	ExpiresAt  time.Time  // email_verifications.expires_at
	ConsumedAt *time.Time // email_verifications.consumed_at (nullable)
	CreatedAt  time.Time  // email_verifications.created_at
}
