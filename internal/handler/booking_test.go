package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/model"
	"github.com/roamfleet/vehicle-rental/internal/queue"
	"github.com/roamfleet/vehicle-rental/internal/repository"
)

var vehicleTestCols = []string{
	"id", "make", "model", "year", "category", "daily_rate_cents",
	"weekly_discount_pct", "monthly_discount_pct", "features", "specs",
	"status", "location", "created_at", "updated_at",
}

var bookingTestCols = []string{
	"id", "user_id", "vehicle_id", "start_date", "end_date",
	"pickup_location", "dropoff_location", "customer_name", "customer_email",
	"customer_phone", "special_requests", "total_amount_cents", "status",
	"idempotency_key", "created_at", "updated_at",
}

func availableVehicleRow(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(vehicleTestCols).AddRow(
		7, "Toyota", "Corolla", 2022, "ECONOMIC", uint32(10000),
		uint8(10), nil, []byte(`[]`), []byte(`{}`), status, "Lyon", now, now)
}

func newBookingTest(t *testing.T) (*BookingHandler, sqlmock.Sqlmock, chan queue.BookingCreatedEvent, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	h := NewBookingHandler(
		repository.NewBookingRepo(db),
		repository.NewVehicleRepo(db),
		repository.NewAuditRepo(db))
	events := make(chan queue.BookingCreatedEvent, 1)
	h.Publish = func(ctx context.Context, ev queue.BookingCreatedEvent) error {
		events <- ev
		return nil
	}
	return h, mock, events, func() { db.Close() }
}

func postBookingJSON(t *testing.T, fn echo.HandlerFunc, userID uint64, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	if err := fn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

const validBookingBody = `{
	"vehicle_id": 7,
	"start_date": "2025-06-01",
	"end_date": "2025-06-05",
	"pickup_location": "Lyon",
	"dropoff_location": "Lyon",
	"customer_name": "Jean Martin",
	"customer_email": "jean@example.com",
	"customer_phone": "+33600000000",
	"idempotency_key": "key-abc"
}`

func TestCreateBookingMissingContactField(t *testing.T) {
	h, _, _, done := newBookingTest(t)
	defer done()

	// Phone dropped from the valid payload; nothing may reach the DB.
	body := strings.Replace(validBookingBody, `"customer_phone": "+33600000000",`, "", 1)
	rec := postBookingJSON(t, h.Create, 3, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"customer_phone"`) {
		t.Fatalf("body %s does not name the missing field", rec.Body.String())
	}
}

func TestCreateBookingInvertedDates(t *testing.T) {
	h, _, _, done := newBookingTest(t)
	defer done()

	body := strings.Replace(validBookingBody, `"end_date": "2025-06-05"`, `"end_date": "2025-05-30"`, 1)
	rec := postBookingJSON(t, h.Create, 3, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateBookingVehicleNotAvailable(t *testing.T) {
	h, mock, _, done := newBookingTest(t)
	defer done()

	mock.ExpectQuery(`FROM vehicles WHERE id=`).
		WithArgs(uint64(7)).
		WillReturnRows(availableVehicleRow(model.VehicleMaintenance))

	rec := postBookingJSON(t, h.Create, 3, validBookingBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCreateBookingComputesPriceServerSide(t *testing.T) {
	h, mock, events, done := newBookingTest(t)
	defer done()

	mock.ExpectQuery(`FROM vehicles WHERE id=`).
		WithArgs(uint64(7)).
		WillReturnRows(availableVehicleRow(model.VehicleAvailable))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postBookingJSON(t, h.Create, 3, validBookingBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	// 4 days at 100.00/day, below the weekly tier: 400.00 total.
	if !strings.Contains(rec.Body.String(), `"total_amount_cents":40000`) {
		t.Fatalf("body %s does not carry the server-side total", rec.Body.String())
	}

	select {
	case ev := <-events:
		if ev.BookingID != 42 || ev.VehicleID != 7 {
			t.Fatalf("published event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no booking.created event published")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingIdempotentResubmission(t *testing.T) {
	h, mock, events, done := newBookingTest(t)
	defer done()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(`FROM vehicles WHERE id=`).
		WithArgs(uint64(7)).
		WillReturnRows(availableVehicleRow(model.VehicleAvailable))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(fmt.Errorf("Error 1062 (23000): Duplicate entry 'key-abc'"))
	mock.ExpectQuery(`FROM bookings WHERE idempotency_key=`).
		WithArgs("key-abc").
		WillReturnRows(sqlmock.NewRows(bookingTestCols).AddRow(
			42, uint64(3), uint64(7), start, end, "Lyon", "Lyon",
			"Jean Martin", "jean@example.com", "+33600000000", "",
			uint64(40000), model.BookingPending, "key-abc", now, now))
	mock.ExpectRollback()

	rec := postBookingJSON(t, h.Create, 3, validBookingBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a resubmission (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"id":42`) {
		t.Fatalf("body %s does not return the existing booking", rec.Body.String())
	}

	// No new booking, no new event.
	select {
	case ev := <-events:
		t.Fatalf("unexpected event published on resubmission: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGetBookingForeignOwner(t *testing.T) {
	h, mock, _, done := newBookingTest(t)
	defer done()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(`FROM bookings WHERE id=`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingTestCols).AddRow(
			42, uint64(99), uint64(7), start, end, "Lyon", "Lyon",
			"Jean Martin", "jean@example.com", "+33600000000", "",
			uint64(40000), model.BookingPending, "key-abc", now, now))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/42", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	c.Set("user_id", uint64(3))
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for a foreign booking", rec.Code)
	}
}
