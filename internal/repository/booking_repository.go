package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/roamfleet/vehicle-rental/internal/model"
)

// BookingRepo persists the `bookings` table.  Inserts run inside a
// transaction that re-checks range conflicts so two racing submissions
// cannot both land on the same vehicle and dates.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingCols = "id,user_id,vehicle_id,start_date,end_date,pickup_location,dropoff_location,customer_name,customer_email,customer_phone,special_requests,total_amount_cents,status,idempotency_key,created_at,updated_at"

func scanBooking(scan func(dest ...any) error) (model.Booking, error) {
	var b model.Booking
	err := scan(&b.ID, &b.UserID, &b.VehicleID, &b.StartDate, &b.EndDate,
		&b.PickupLocation, &b.DropoffLocation, &b.CustomerName, &b.CustomerEmail,
		&b.CustomerPhone, &b.SpecialRequests, &b.TotalAmountCents, &b.Status,
		&b.IdempotencyKey, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CountConflicts returns how many CONFIRMED or ACTIVE bookings on the
// vehicle overlap the inclusive range.  excludeID skips one booking so an
// admin confirming a PENDING booking does not conflict with itself.
func (r *BookingRepo) CountConflicts(ctx context.Context, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE vehicle_id=? AND id<>? AND status IN ('CONFIRMED','ACTIVE')
		   AND start_date <= ? AND end_date >= ?`,
		vehicleID, excludeID, end, start).Scan(&n)
	return n, err
}

// Create inserts a booking in PENDING status.  When the idempotency key is
// already present the insert is treated as a resubmission: the existing
// booking is returned and created reports false.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) (created bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Re-check conflicts at the storage boundary.  The availability search
	// already filtered, but another booking may have landed since.
	var conflicts int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE vehicle_id=? AND status IN ('CONFIRMED','ACTIVE')
		   AND start_date <= ? AND end_date >= ?`,
		b.VehicleID, b.EndDate, b.StartDate).Scan(&conflicts)
	if err != nil {
		return false, err
	}
	if conflicts > 0 {
		return false, ErrConflict
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, vehicle_id, start_date, end_date,
			pickup_location, dropoff_location, customer_name, customer_email,
			customer_phone, special_requests, total_amount_cents, status, idempotency_key)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.UserID, b.VehicleID, b.StartDate, b.EndDate,
		b.PickupLocation, b.DropoffLocation, b.CustomerName, b.CustomerEmail,
		b.CustomerPhone, b.SpecialRequests, b.TotalAmountCents, model.BookingPending,
		b.IdempotencyKey)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			existing, lookupErr := r.GetByIdempotencyKey(ctx, b.IdempotencyKey)
			if lookupErr != nil {
				return false, ErrDuplicateKey
			}
			*b = existing
			return false, nil
		}
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	b.ID = uint64(id)
	b.Status = model.BookingPending
	return true, nil
}

// GetByID fetches a booking by id.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE id=? LIMIT 1", id)
	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// GetByIdempotencyKey fetches a booking by its idempotency key.
func (r *BookingRepo) GetByIdempotencyKey(ctx context.Context, key string) (model.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE idempotency_key=? LIMIT 1", key)
	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// ListByUser returns a customer's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// List returns bookings for the admin back-office, optionally filtered by
// status and/or vehicle.
func (r *BookingRepo) List(ctx context.Context, status string, vehicleID uint64, limit, offset int) ([]model.Booking, error) {
	where := []string{}
	args := []any{}
	if status != "" {
		where = append(where, "status=?")
		args = append(args, status)
	}
	if vehicleID > 0 {
		where = append(where, "vehicle_id=?")
		args = append(args, vehicleID)
	}
	q := "SELECT " + bookingCols + " FROM bookings"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// allowedTransitions is the admin status transition map.  Terminal states
// (COMPLETED, CANCELLED) have no outgoing edges.
var allowedTransitions = map[string]map[string]bool{
	model.BookingPending:   {model.BookingConfirmed: true, model.BookingCancelled: true},
	model.BookingConfirmed: {model.BookingActive: true, model.BookingCancelled: true},
	model.BookingActive:    {model.BookingCompleted: true},
}

// TransitionAllowed reports whether from -> to is a legal status change.
func TransitionAllowed(from, to string) bool {
	return allowedTransitions[from][to]
}

// UpdateStatus applies an admin status transition.  Confirming re-checks
// range conflicts so two overlapping PENDING bookings cannot both be
// confirmed.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, to string) (model.Booking, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !TransitionAllowed(b.Status, to) {
		return model.Booking{}, ErrInvalidTransition
	}
	if to == model.BookingConfirmed {
		conflicts, err := r.CountConflicts(ctx, b.VehicleID, b.StartDate, b.EndDate, b.ID)
		if err != nil {
			return model.Booking{}, err
		}
		if conflicts > 0 {
			return model.Booking{}, ErrConflict
		}
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET status=?, updated_at=NOW() WHERE id=? AND status=?",
		to, id, b.Status)
	if err != nil {
		return model.Booking{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Row changed under us since the read; treat as a conflict.
		return model.Booking{}, ErrConflict
	}
	b.Status = to
	return b, nil
}

// CancelOwn lets a customer cancel their own booking while it is still
// PENDING.  Any other state requires an admin.
func (r *BookingRepo) CancelOwn(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET status=?, updated_at=NOW() WHERE id=? AND user_id=? AND status=?",
		model.BookingCancelled, id, userID, model.BookingPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing/foreign bookings from non-cancellable ones.
		b, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return ErrBookingNotFound
		}
		return ErrConflict
	}
	return nil
}
