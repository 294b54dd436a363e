package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/model"
	"github.com/roamfleet/vehicle-rental/internal/pricing"
	"github.com/roamfleet/vehicle-rental/internal/repository"
)

// PublicHandler exposes the unauthenticated vehicle catalog and the
// availability search.  Guests can browse and price a rental before
// creating an account.
type PublicHandler struct {
	Vehicles *repository.VehicleRepo
}

func NewPublicHandler(v *repository.VehicleRepo) *PublicHandler {
	return &PublicHandler{Vehicles: v}
}

// vehicleView is the sanitized public projection of a vehicle.
type vehicleView struct {
	ID                 uint64             `json:"id"`
	Make               string             `json:"make"`
	Model              string             `json:"model"`
	Year               int                `json:"year"`
	Category           string             `json:"category"`
	DailyRateCents     uint32             `json:"daily_rate_cents"`
	DailyRate          float64            `json:"daily_rate"`
	WeeklyDiscountPct  *uint8             `json:"weekly_discount_pct,omitempty"`
	MonthlyDiscountPct *uint8             `json:"monthly_discount_pct,omitempty"`
	Features           []string           `json:"features"`
	Specs              model.VehicleSpecs `json:"specs"`
	Status             string             `json:"status"`
	Location           string             `json:"location"`
}

func toVehicleView(v model.Vehicle) vehicleView {
	return vehicleView{
		ID:                 v.ID,
		Make:               v.Make,
		Model:              v.Model,
		Year:               v.Year,
		Category:           v.Category,
		DailyRateCents:     v.DailyRateCents,
		DailyRate:          float64(v.DailyRateCents) / 100.0,
		WeeklyDiscountPct:  v.WeeklyDiscountPct,
		MonthlyDiscountPct: v.MonthlyDiscountPct,
		Features:           v.Features,
		Specs:              v.Specs,
		Status:             v.Status,
		Location:           v.Location,
	}
}

// searchResult decorates a vehicle with the computed price for the
// requested range.
type searchResult struct {
	Vehicle         vehicleView `json:"vehicle"`
	Days            int         `json:"days"`
	BaseCents       uint64      `json:"base_cents"`
	DiscountPct     uint8       `json:"discount_pct"`
	DiscountedCents uint64      `json:"discounted_cents"`
	Total           float64     `json:"total"`
}

// ListVehicles handles GET /v1/vehicles.  Only non-retired vehicles are
// shown to guests.
func (h *PublicHandler) ListVehicles(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	limit, offset := parsePage(c)

	vehicles, err := h.Vehicles.List(ctx, status, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]vehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status == model.VehicleRetired {
			continue
		}
		out = append(out, toVehicleView(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicles": out})
}

// GetVehicle handles GET /v1/vehicles/:id.
func (h *PublicHandler) GetVehicle(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toVehicleView(v))
}

// SearchAvailability handles GET /v1/vehicles/search.  It returns vehicles
// free for the requested inclusive date range, each decorated with the
// priced quote.  Dates use YYYY-MM-DD; an inverted range is rejected
// outright rather than silently producing an empty result.
func (h *PublicHandler) SearchAvailability(c echo.Context) error {
	start, err := parseDate(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	end, err := parseDate(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must not be before from"})
	}

	q := repository.AvailabilityQuery{
		Start:          start,
		End:            end,
		Category:       strings.TrimSpace(c.QueryParam("category")),
		Transmission:   strings.TrimSpace(c.QueryParam("transmission")),
		FuelType:       strings.TrimSpace(c.QueryParam("fuel_type")),
		PickupLocation: strings.TrimSpace(c.QueryParam("pickup_location")),
	}
	if s := c.QueryParam("seats"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must be a positive integer"})
		}
		q.Seats = n
	}
	// Price bounds arrive in whole currency units and filter the daily rate.
	if s := c.QueryParam("min_price"); s != "" {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "min_price must be a non-negative number"})
		}
		q.MinDailyCents = uint32(n * 100)
	}
	if s := c.QueryParam("max_price"); s != "" {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_price must be a non-negative number"})
		}
		q.MaxDailyCents = uint32(n * 100)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	vehicles, err := h.Vehicles.SearchAvailable(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}

	results := make([]searchResult, 0, len(vehicles))
	for _, v := range vehicles {
		quote := pricing.Compute(start, end, v.DailyRateCents, v.WeeklyDiscountPct, v.MonthlyDiscountPct)
		results = append(results, searchResult{
			Vehicle:         toVehicleView(v),
			Days:            quote.Days,
			BaseCents:       quote.BaseCents,
			DiscountPct:     quote.DiscountPct,
			DiscountedCents: quote.DiscountedCents,
			Total:           float64(quote.DiscountedCents) / 100.0,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":    start.Format("2006-01-02"),
		"to":      end.Format("2006-01-02"),
		"results": results,
	})
}

// parseDate parses a YYYY-MM-DD query value in UTC.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

// parsePage reads limit/offset query params with sane bounds.
func parsePage(c echo.Context) (limit, offset int) {
	limit = 50
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if s := c.QueryParam("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
