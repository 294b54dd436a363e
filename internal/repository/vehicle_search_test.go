package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var vehicleRowCols = []string{
	"id", "make", "model", "year", "category", "daily_rate_cents",
	"weekly_discount_pct", "monthly_discount_pct", "features", "specs",
	"status", "location", "created_at", "updated_at",
}

func vehicleRow(rows *sqlmock.Rows, id uint64, rate uint32, specs string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Toyota", "Corolla", 2022, "ECONOMIC", rate,
		nil, nil, []byte(`["gps"]`), []byte(specs), "AVAILABLE", "Lyon", now, now)
}

func searchWindow() (time.Time, time.Time) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	return start, end
}

func TestSearchAvailableExcludesOverlapsInSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	start, end := searchWindow()
	rows := sqlmock.NewRows(vehicleRowCols)
	vehicleRow(rows, 1, 10000, `{"seats":5,"transmission":"MANUAL","fuel_type":"PETROL"}`)

	// The overlap predicate must be part of the statement, with the range
	// bound as (end, start) per the half-open test.
	mock.ExpectQuery(`(?s)FROM vehicles v.*NOT IN.*start_date <= \? AND b\.end_date >= \?`).
		WithArgs("AVAILABLE", end, start).
		WillReturnRows(rows)

	repo := NewVehicleRepo(db)
	got, err := repo.SearchAvailable(context.Background(), AvailabilityQuery{Start: start, End: end})
	if err != nil {
		t.Fatalf("SearchAvailable error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("got %d vehicles, want the single free one", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchAvailableAppliesSpecFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	start, end := searchWindow()
	rows := sqlmock.NewRows(vehicleRowCols)
	vehicleRow(rows, 1, 10000, `{"seats":7,"transmission":"AUTOMATIC","fuel_type":"DIESEL"}`)
	vehicleRow(rows, 2, 9000, `{"seats":4,"transmission":"AUTOMATIC"}`)
	vehicleRow(rows, 3, 8000, `{}`) // no specs recorded

	mock.ExpectQuery(`FROM vehicles v`).
		WithArgs("AVAILABLE", end, start).
		WillReturnRows(rows)

	repo := NewVehicleRepo(db)
	got, err := repo.SearchAvailable(context.Background(), AvailabilityQuery{
		Start: start, End: end, Seats: 5,
	})
	if err != nil {
		t.Fatalf("SearchAvailable error: %v", err)
	}
	// Only vehicle 1 seats 5+; vehicle 3 has no seat data, so an active
	// seats filter must not match it.
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("seat filter returned %d vehicles, want only id=1", len(got))
	}
}

func TestSearchAvailableSkipsInactiveFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	start, end := searchWindow()
	rows := sqlmock.NewRows(vehicleRowCols)
	vehicleRow(rows, 1, 10000, `{}`)
	vehicleRow(rows, 2, 9000, `{"seats":2}`)

	mock.ExpectQuery(`FROM vehicles v`).
		WithArgs("AVAILABLE", end, start).
		WillReturnRows(rows)

	repo := NewVehicleRepo(db)
	got, err := repo.SearchAvailable(context.Background(), AvailabilityQuery{Start: start, End: end})
	if err != nil {
		t.Fatalf("SearchAvailable error: %v", err)
	}
	// No spec filter active: vehicles without spec data pass through.
	if len(got) != 2 {
		t.Fatalf("got %d vehicles, want 2 when all filters are at defaults", len(got))
	}
}

func TestSearchAvailableNarrowsByCategoryAndPrice(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	start, end := searchWindow()
	mock.ExpectQuery(`(?s)category = \?.*daily_rate_cents >= \?.*daily_rate_cents <= \?`).
		WithArgs("AVAILABLE", "SUV", uint32(5000), uint32(20000), end, start).
		WillReturnRows(sqlmock.NewRows(vehicleRowCols))

	repo := NewVehicleRepo(db)
	_, err = repo.SearchAvailable(context.Background(), AvailabilityQuery{
		Start: start, End: end, Category: "suv",
		MinDailyCents: 5000, MaxDailyCents: 20000,
	})
	if err != nil {
		t.Fatalf("SearchAvailable error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
