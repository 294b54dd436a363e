package repository

import (
	"context"
	"strings"
	"time"

	"github.com/roamfleet/vehicle-rental/internal/model"
)

// AvailabilityQuery defines the search window and filters for the
// availability engine.  Zero values mean "any" and skip the filter.
// Price bounds are expressed in cents against the daily rate.
type AvailabilityQuery struct {
	Start          time.Time
	End            time.Time
	Category       string
	MinDailyCents  uint32
	MaxDailyCents  uint32
	Seats          int    // minimum seat count
	Transmission   string // exact match against specs
	FuelType       string // exact match against specs
	PickupLocation string // branch the vehicle is stationed at
}

// SearchAvailable returns vehicles free for the requested inclusive range.
// The candidate set (status AVAILABLE, optional category/price bounds) and
// the overlap exclusion both run server-side; only the structured-spec
// filters are applied in Go after decoding the specs JSON.  Two bookings
// conflict when `start_date <= :end AND end_date >= :start` and the
// existing booking is CONFIRMED or ACTIVE.
func (r *VehicleRepo) SearchAvailable(ctx context.Context, q AvailabilityQuery) ([]model.Vehicle, error) {
	where := []string{"v.status = ?"}
	args := []any{model.VehicleAvailable}

	if q.Category != "" {
		where = append(where, "v.category = ?")
		args = append(args, strings.ToUpper(q.Category))
	}
	if q.MinDailyCents > 0 {
		where = append(where, "v.daily_rate_cents >= ?")
		args = append(args, q.MinDailyCents)
	}
	if q.MaxDailyCents > 0 {
		where = append(where, "v.daily_rate_cents <= ?")
		args = append(args, q.MaxDailyCents)
	}
	if q.PickupLocation != "" {
		where = append(where, "v.location = ?")
		args = append(args, q.PickupLocation)
	}

	// Overlap exclusion pushed into the query rather than filtered in
	// memory, so the check stays correct as booking volume grows.
	where = append(where, `v.id NOT IN (
		SELECT b.vehicle_id FROM bookings b
		WHERE b.status IN ('CONFIRMED','ACTIVE')
		  AND b.start_date <= ? AND b.end_date >= ?)`)
	args = append(args, q.End, q.Start)

	sqlQ := "SELECT " + prefixCols("v", vehicleCols) + ` FROM vehicles v
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY v.id`

	rows, err := r.DB.QueryContext(ctx, sqlQ, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, err
		}
		if !matchesSpecs(v.Specs, q) {
			continue
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// matchesSpecs applies the seat/transmission/fuel filters against a
// vehicle's decoded specifications.  A filter left at its zero value is
// skipped; an active filter fails against a vehicle missing that field.
func matchesSpecs(s model.VehicleSpecs, q AvailabilityQuery) bool {
	if q.Seats > 0 {
		if s.Seats == nil || *s.Seats < q.Seats {
			return false
		}
	}
	if q.Transmission != "" {
		if s.Transmission == nil || !strings.EqualFold(*s.Transmission, q.Transmission) {
			return false
		}
	}
	if q.FuelType != "" {
		if s.FuelType == nil || !strings.EqualFold(*s.FuelType, q.FuelType) {
			return false
		}
	}
	return true
}

// prefixCols rewrites "a,b,c" into "v.a,v.b,v.c" for aliased queries.
func prefixCols(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ",")
}
