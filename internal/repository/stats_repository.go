package repository

import (
	"context"
	"database/sql"
	"sync"
)

// DashboardStats is the payload of the admin analytics endpoint.
type DashboardStats struct {
	TotalUsers       int64            `json:"total_users"`
	TotalVehicles    int64            `json:"total_vehicles"`
	BookingsByStatus map[string]int64 `json:"bookings_by_status"`
	RevenueCents     int64            `json:"revenue_cents"` // sum over COMPLETED bookings
}

// StatsRepo serves the admin dashboard.
type StatsRepo struct{ DB *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{DB: db} }

// Dashboard issues the independent count queries concurrently and waits
// for all of them before returning.  The first error encountered wins.
func (r *StatsRepo) Dashboard(ctx context.Context) (DashboardStats, error) {
	var (
		stats DashboardStats
		mu    sync.Mutex
		wg    sync.WaitGroup
		first error
	)
	stats.BookingsByStatus = map[string]int64{}

	fail := func(err error) {
		mu.Lock()
		if first == nil {
			first = err
		}
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&stats.TotalUsers); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles").Scan(&stats.TotalVehicles); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		rows, err := r.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM bookings GROUP BY status")
		if err != nil {
			fail(err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var (
				status string
				n      int64
			)
			if err := rows.Scan(&status, &n); err != nil {
				fail(err)
				return
			}
			mu.Lock()
			stats.BookingsByStatus[status] = n
			mu.Unlock()
		}
		if err := rows.Err(); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := r.DB.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(total_amount_cents),0) FROM bookings WHERE status='COMPLETED'").Scan(&stats.RevenueCents); err != nil {
			fail(err)
		}
	}()
	wg.Wait()

	if first != nil {
		return DashboardStats{}, first
	}
	return stats, nil
}
