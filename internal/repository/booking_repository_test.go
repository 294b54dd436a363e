package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/roamfleet/vehicle-rental/internal/model"
)

var bookingRowCols = []string{
	"id", "user_id", "vehicle_id", "start_date", "end_date",
	"pickup_location", "dropoff_location", "customer_name", "customer_email",
	"customer_phone", "special_requests", "total_amount_cents", "status",
	"idempotency_key", "created_at", "updated_at",
}

func bookingFixture() model.Booking {
	return model.Booking{
		UserID:           3,
		VehicleID:        7,
		StartDate:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		PickupLocation:   "Lyon",
		DropoffLocation:  "Lyon",
		CustomerName:     "Jean Martin",
		CustomerEmail:    "jean@example.com",
		CustomerPhone:    "+33600000000",
		TotalAmountCents: 40000,
		IdempotencyKey:   "key-abc",
	}
}

func TestCreateBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	repo := NewBookingRepo(db)
	b := bookingFixture()
	created, err := repo.Create(context.Background(), &b)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !created {
		t.Fatal("created = false, want true")
	}
	if b.ID != 42 {
		t.Fatalf("ID = %d, want 42", b.ID)
	}
	if b.Status != model.BookingPending {
		t.Fatalf("Status = %q, want PENDING", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingRangeConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
	mock.ExpectRollback()

	repo := NewBookingRepo(db)
	b := bookingFixture()
	if _, err := repo.Create(context.Background(), &b); !errors.Is(err, ErrConflict) {
		t.Fatalf("Create returned %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingIdempotentResubmission(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	fixture := bookingFixture()
	now := time.Now()
	existing := sqlmock.NewRows(bookingRowCols).AddRow(
		42, fixture.UserID, fixture.VehicleID, fixture.StartDate, fixture.EndDate,
		fixture.PickupLocation, fixture.DropoffLocation, fixture.CustomerName,
		fixture.CustomerEmail, fixture.CustomerPhone, "", fixture.TotalAmountCents,
		model.BookingPending, fixture.IdempotencyKey, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(fmt.Errorf("Error 1062 (23000): Duplicate entry 'key-abc' for key 'bookings.idempotency_key'"))
	mock.ExpectQuery(`FROM bookings WHERE idempotency_key=`).
		WithArgs(fixture.IdempotencyKey).
		WillReturnRows(existing)
	mock.ExpectRollback()

	repo := NewBookingRepo(db)
	b := bookingFixture()
	created, err := repo.Create(context.Background(), &b)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created {
		t.Fatal("created = true on resubmission, want false")
	}
	if b.ID != 42 {
		t.Fatalf("resubmission returned ID %d, want existing 42", b.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{model.BookingPending, model.BookingConfirmed, true},
		{model.BookingPending, model.BookingCancelled, true},
		{model.BookingPending, model.BookingActive, false},
		{model.BookingConfirmed, model.BookingActive, true},
		{model.BookingConfirmed, model.BookingCancelled, true},
		{model.BookingConfirmed, model.BookingPending, false},
		{model.BookingActive, model.BookingCompleted, true},
		{model.BookingActive, model.BookingCancelled, false},
		{model.BookingCompleted, model.BookingActive, false},
		{model.BookingCancelled, model.BookingPending, false},
	}
	for _, tc := range cases {
		if got := TransitionAllowed(tc.from, tc.to); got != tc.want {
			t.Errorf("TransitionAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestUpdateStatusConfirmRechecksConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	fixture := bookingFixture()
	now := time.Now()
	mock.ExpectQuery(`FROM bookings WHERE id=`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingRowCols).AddRow(
			42, fixture.UserID, fixture.VehicleID, fixture.StartDate, fixture.EndDate,
			fixture.PickupLocation, fixture.DropoffLocation, fixture.CustomerName,
			fixture.CustomerEmail, fixture.CustomerPhone, "", fixture.TotalAmountCents,
			model.BookingPending, fixture.IdempotencyKey, now, now))
	// Another booking was confirmed on the same range in the meantime.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))

	repo := NewBookingRepo(db)
	if _, err := repo.UpdateStatus(context.Background(), 42, model.BookingConfirmed); !errors.Is(err, ErrConflict) {
		t.Fatalf("UpdateStatus returned %v, want ErrConflict", err)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	fixture := bookingFixture()
	now := time.Now()
	mock.ExpectQuery(`FROM bookings WHERE id=`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingRowCols).AddRow(
			42, fixture.UserID, fixture.VehicleID, fixture.StartDate, fixture.EndDate,
			fixture.PickupLocation, fixture.DropoffLocation, fixture.CustomerName,
			fixture.CustomerEmail, fixture.CustomerPhone, "", fixture.TotalAmountCents,
			model.BookingCompleted, fixture.IdempotencyKey, now, now))

	repo := NewBookingRepo(db)
	if _, err := repo.UpdateStatus(context.Background(), 42, model.BookingActive); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("UpdateStatus returned %v, want ErrInvalidTransition", err)
	}
}

func TestCancelOwnForeignBookingHidden(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	fixture := bookingFixture()
	now := time.Now()
	mock.ExpectExec(`UPDATE bookings SET status=`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM bookings WHERE id=`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingRowCols).AddRow(
			42, uint64(99), fixture.VehicleID, fixture.StartDate, fixture.EndDate,
			fixture.PickupLocation, fixture.DropoffLocation, fixture.CustomerName,
			fixture.CustomerEmail, fixture.CustomerPhone, "", fixture.TotalAmountCents,
			model.BookingPending, fixture.IdempotencyKey, now, now))

	repo := NewBookingRepo(db)
	// user 3 probing booking 42 owned by user 99: must look like 404, not 409.
	if err := repo.CancelOwn(context.Background(), 42, 3); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("CancelOwn returned %v, want ErrBookingNotFound", err)
	}
}

func TestCancelOwnNonPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	fixture := bookingFixture()
	now := time.Now()
	mock.ExpectExec(`UPDATE bookings SET status=`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM bookings WHERE id=`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingRowCols).AddRow(
			42, fixture.UserID, fixture.VehicleID, fixture.StartDate, fixture.EndDate,
			fixture.PickupLocation, fixture.DropoffLocation, fixture.CustomerName,
			fixture.CustomerEmail, fixture.CustomerPhone, "", fixture.TotalAmountCents,
			model.BookingConfirmed, fixture.IdempotencyKey, now, now))

	repo := NewBookingRepo(db)
	if err := repo.CancelOwn(context.Background(), 42, fixture.UserID); !errors.Is(err, ErrConflict) {
		t.Fatalf("CancelOwn returned %v, want ErrConflict", err)
	}
}
