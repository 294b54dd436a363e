package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/roamfleet/vehicle-rental/internal/model"
	"github.com/roamfleet/vehicle-rental/internal/utils"
)

// ProfileRepo persists the `profiles` table.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileCols = "id,username,email,password_hash,full_name,avatar_url,role,is_active,email_confirmed_at,created_at,updated_at"

func scanProfile(row *sql.Row) (model.Profile, error) {
	var (
		p         model.Profile
		avatar    sql.NullString
		confirmed sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.FullName,
		&avatar, &p.Role, &p.IsActive, &confirmed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Profile{}, err
	}
	if avatar.Valid {
		v := avatar.String
		p.AvatarURL = &v
	}
	if confirmed.Valid {
		t := confirmed.Time
		p.EmailConfirmedAt = &t
	}
	return p, nil
}

// Create inserts a profile and returns its ID.  Unique-index violations on
// username or email are translated into the matching sentinel error.
func (r *ProfileRepo) Create(ctx context.Context, username, email, password, fullName, role string, cost int) (uint64, error) {
	email = utils.NormalizeIdentifier(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO profiles (username, email, password_hash, full_name, role) VALUES (?,?,?,?,?)",
		username, email, hash, fullName, role)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindCollision checks for an existing profile holding the given username
// or email in a single lookup.  It returns the name of the colliding field
// ("username" or "email"), or the empty string when both are free.
func (r *ProfileRepo) FindCollision(ctx context.Context, username, email string) (string, error) {
	email = utils.NormalizeIdentifier(email)
	var u, e string
	err := r.DB.QueryRowContext(ctx,
		"SELECT username, email FROM profiles WHERE username=? OR email=? LIMIT 1",
		username, email).Scan(&u, &e)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if u == username {
		return "username", nil
	}
	return "email", nil
}

// GetByID fetches a profile by id.
func (r *ProfileRepo) GetByID(ctx context.Context, id uint64) (model.Profile, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+profileCols+" FROM profiles WHERE id=? LIMIT 1", id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return model.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// GetByIdentifier fetches a profile by normalized email or username.  The
// login form accepts either, so both columns are probed.
func (r *ProfileRepo) GetByIdentifier(ctx context.Context, identifier string) (model.Profile, error) {
	identifier = utils.NormalizeIdentifier(identifier)
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+profileCols+" FROM profiles WHERE email=? OR username=? LIMIT 1",
		identifier, identifier)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return model.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// ProfileUpdate carries the optional fields of a profile update.  Nil
// pointers leave the column untouched.
type ProfileUpdate struct {
	Username  *string
	FullName  *string
	AvatarURL *string
}

// Update merges the provided fields into the profile row and bumps
// updated_at.  Callers validate the username before passing it in.
func (r *ProfileRepo) Update(ctx context.Context, id uint64, upd ProfileUpdate) error {
	set := []string{"updated_at=NOW()"}
	args := []any{}
	if upd.Username != nil {
		set = append(set, "username=?")
		args = append(args, *upd.Username)
	}
	if upd.FullName != nil {
		set = append(set, "full_name=?")
		args = append(args, *upd.FullName)
	}
	if upd.AvatarURL != nil {
		set = append(set, "avatar_url=?")
		args = append(args, *upd.AvatarURL)
	}
	args = append(args, id)
	q := "UPDATE profiles SET " + strings.Join(set, ", ") + " WHERE id=?"
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrUsernameExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// ConfirmEmail stamps email_confirmed_at for the profile owning the given
// email, if not already confirmed.
func (r *ProfileRepo) ConfirmEmail(ctx context.Context, email string, at time.Time) error {
	email = utils.NormalizeIdentifier(email)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET email_confirmed_at=?, updated_at=NOW() WHERE email=? AND email_confirmed_at IS NULL",
		at.UTC(), email)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// SetActive toggles whether an account may sign in.
func (r *ProfileRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET is_active=?, updated_at=NOW() WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// List returns profiles ordered by id for the admin back-office.
func (r *ProfileRepo) List(ctx context.Context, limit, offset int) ([]model.Profile, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+profileCols+" FROM profiles ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Profile, 0, limit)
	for rows.Next() {
		var (
			p         model.Profile
			avatar    sql.NullString
			confirmed sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.FullName,
			&avatar, &p.Role, &p.IsActive, &confirmed, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if avatar.Valid {
			v := avatar.String
			p.AvatarURL = &v
		}
		if confirmed.Valid {
			t := confirmed.Time
			p.EmailConfirmedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
