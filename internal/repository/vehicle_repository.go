package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/roamfleet/vehicle-rental/internal/model"
)

// VehicleRepo persists the `vehicles` table.  The features and specs
// columns are JSON; they are decoded into the model on every read so the
// search layer can filter on structured specifications.
type VehicleRepo struct{ DB *sql.DB }

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{DB: db} }

const vehicleCols = "id,make,model,year,category,daily_rate_cents,weekly_discount_pct,monthly_discount_pct,features,specs,status,location,created_at,updated_at"

// scanVehicle reads one vehicle row from any scanner (sql.Row or sql.Rows).
func scanVehicle(scan func(dest ...any) error) (model.Vehicle, error) {
	var (
		v          model.Vehicle
		weekly     sql.NullInt16
		monthly    sql.NullInt16
		featuresJS []byte
		specsJS    []byte
	)
	err := scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.Category, &v.DailyRateCents,
		&weekly, &monthly, &featuresJS, &specsJS, &v.Status, &v.Location,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return model.Vehicle{}, err
	}
	if weekly.Valid {
		p := uint8(weekly.Int16)
		v.WeeklyDiscountPct = &p
	}
	if monthly.Valid {
		p := uint8(monthly.Int16)
		v.MonthlyDiscountPct = &p
	}
	if len(featuresJS) > 0 {
		_ = json.Unmarshal(featuresJS, &v.Features) // malformed JSON leaves the list empty
	}
	if len(specsJS) > 0 {
		_ = json.Unmarshal(specsJS, &v.Specs)
	}
	return v, nil
}

// Create inserts a vehicle and returns its ID.
func (r *VehicleRepo) Create(ctx context.Context, v model.Vehicle) (uint64, error) {
	featuresJS, err := json.Marshal(v.Features)
	if err != nil {
		return 0, err
	}
	specsJS, err := json.Marshal(v.Specs)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO vehicles (make, model, year, category, daily_rate_cents,
			weekly_discount_pct, monthly_discount_pct, features, specs, status, location)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		v.Make, v.Model, v.Year, v.Category, v.DailyRateCents,
		nullPct(v.WeeklyDiscountPct), nullPct(v.MonthlyDiscountPct),
		featuresJS, specsJS, v.Status, v.Location)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func nullPct(p *uint8) any {
	if p == nil {
		return nil
	}
	return *p
}

// GetByID fetches a vehicle by id.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (model.Vehicle, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+vehicleCols+" FROM vehicles WHERE id=? LIMIT 1", id)
	v, err := scanVehicle(row.Scan)
	if err == sql.ErrNoRows {
		return model.Vehicle{}, ErrVehicleNotFound
	}
	return v, err
}

// VehicleUpdate carries the optional fields of an admin vehicle edit.
type VehicleUpdate struct {
	Make               *string
	Model              *string
	Year               *int
	Category           *string
	DailyRateCents     *uint32
	WeeklyDiscountPct  *uint8
	MonthlyDiscountPct *uint8
	Features           []string
	Specs              *model.VehicleSpecs
	Status             *string
	Location           *string
}

// Update merges the provided fields into the vehicle row.
func (r *VehicleRepo) Update(ctx context.Context, id uint64, upd VehicleUpdate) error {
	set := []string{"updated_at=NOW()"}
	args := []any{}
	add := func(col string, val any) {
		set = append(set, col+"=?")
		args = append(args, val)
	}
	if upd.Make != nil {
		add("make", *upd.Make)
	}
	if upd.Model != nil {
		add("model", *upd.Model)
	}
	if upd.Year != nil {
		add("year", *upd.Year)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.DailyRateCents != nil {
		add("daily_rate_cents", *upd.DailyRateCents)
	}
	if upd.WeeklyDiscountPct != nil {
		add("weekly_discount_pct", *upd.WeeklyDiscountPct)
	}
	if upd.MonthlyDiscountPct != nil {
		add("monthly_discount_pct", *upd.MonthlyDiscountPct)
	}
	if upd.Features != nil {
		js, err := json.Marshal(upd.Features)
		if err != nil {
			return err
		}
		add("features", js)
	}
	if upd.Specs != nil {
		js, err := json.Marshal(upd.Specs)
		if err != nil {
			return err
		}
		add("specs", js)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	args = append(args, id)
	q := "UPDATE vehicles SET " + strings.Join(set, ", ") + " WHERE id=?"
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// Delete removes a vehicle unless open bookings still reference it.
// PENDING, CONFIRMED and ACTIVE bookings block deletion.
func (r *VehicleRepo) Delete(ctx context.Context, id uint64) error {
	var open int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE vehicle_id=? AND status IN ('PENDING','CONFIRMED','ACTIVE')",
		id).Scan(&open)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM vehicles WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// List returns vehicles ordered by id, optionally filtered by status.
func (r *VehicleRepo) List(ctx context.Context, status string, limit, offset int) ([]model.Vehicle, error) {
	q := "SELECT " + vehicleCols + " FROM vehicles"
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Vehicle, 0, limit)
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
