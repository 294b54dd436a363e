// Package pricing computes rental durations and discounted totals.  All
// money is handled in integer cents, matching the *_cents columns.
package pricing

import "time"

// Duration thresholds for the discount tiers.
const (
	weeklyTierDays  = 7
	monthlyTierDays = 30
)

// Quote is the priced result for one vehicle over a requested range.
// Totals are 64-bit: the daily rate is a uint32 but nothing bounds the
// requested duration, so the products must not wrap.
type Quote struct {
	Days            int    // billable rental days, never less than 1
	BaseCents       uint64 // daily rate * days
	DiscountPct     uint8  // applied tier percentage, 0 when no tier matches
	DiscountedCents uint64 // base after discount, rounded down to the cent
}

// RentalDays returns the billable number of days for an inclusive date
// range at day granularity.  A same-day rental bills one day; fractional
// ranges (when callers pass timestamps rather than midnight dates) round
// up to the next whole day.
func RentalDays(start, end time.Time) int {
	if !end.After(start) {
		return 1
	}
	d := end.Sub(start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// SelectDiscount picks the discount percentage for a rental of the given
// length.  Tiers are mutually exclusive: the monthly tier supersedes the
// weekly one, and an undefined tier (nil) never applies.
func SelectDiscount(days int, weeklyPct, monthlyPct *uint8) uint8 {
	if days >= monthlyTierDays && monthlyPct != nil {
		return *monthlyPct
	}
	if days >= weeklyTierDays && weeklyPct != nil {
		return *weeklyPct
	}
	return 0
}

// Compute prices a rental of the given range at dailyRateCents per day.
func Compute(start, end time.Time, dailyRateCents uint32, weeklyPct, monthlyPct *uint8) Quote {
	days := RentalDays(start, end)
	base := uint64(dailyRateCents) * uint64(days)
	pct := SelectDiscount(days, weeklyPct, monthlyPct)
	discounted := base
	if pct > 0 {
		discounted = base * uint64(100-pct) / 100
	}
	return Quote{
		Days:            days,
		BaseCents:       base,
		DiscountPct:     pct,
		DiscountedCents: discounted,
	}
}
