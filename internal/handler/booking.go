package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/model"
	"github.com/roamfleet/vehicle-rental/internal/pricing"
	"github.com/roamfleet/vehicle-rental/internal/queue"
	"github.com/roamfleet/vehicle-rental/internal/repository"
	queue_publisher "github.com/roamfleet/vehicle-rental/internal/service"
)

// BookingHandler implements the customer booking flow: submission of a
// draft booking, listing, detail and cancellation.  JWT auth and the
// CUSTOMER role are enforced by middleware before any method runs.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Vehicles *repository.VehicleRepo
	Audit    *repository.AuditRepo

	// Publish is swappable in tests; defaults to the RabbitMQ publisher.
	Publish func(ctx context.Context, ev queue.BookingCreatedEvent) error
}

func NewBookingHandler(b *repository.BookingRepo, v *repository.VehicleRepo, a *repository.AuditRepo) *BookingHandler {
	return &BookingHandler{
		Bookings: b,
		Vehicles: v,
		Audit:    a,
		Publish:  queue_publisher.PublishBookingCreated,
	}
}

type createBookingReq struct {
	VehicleID       uint64 `json:"vehicle_id"`
	StartDate       string `json:"start_date"` // YYYY-MM-DD
	EndDate         string `json:"end_date"`   // YYYY-MM-DD
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	SpecialRequests string `json:"special_requests"`
	IdempotencyKey  string `json:"idempotency_key"`
}

type bookingView struct {
	ID               uint64  `json:"id"`
	VehicleID        uint64  `json:"vehicle_id"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	PickupLocation   string  `json:"pickup_location"`
	DropoffLocation  string  `json:"dropoff_location"`
	CustomerName     string  `json:"customer_name"`
	SpecialRequests  string  `json:"special_requests,omitempty"`
	TotalAmountCents uint64  `json:"total_amount_cents"`
	Total            float64 `json:"total"`
	Status           string  `json:"status"`
	IdempotencyKey   string  `json:"idempotency_key"`
}

func toBookingView(b model.Booking) bookingView {
	return bookingView{
		ID:               b.ID,
		VehicleID:        b.VehicleID,
		StartDate:        b.StartDate.Format("2006-01-02"),
		EndDate:          b.EndDate.Format("2006-01-02"),
		PickupLocation:   b.PickupLocation,
		DropoffLocation:  b.DropoffLocation,
		CustomerName:     b.CustomerName,
		SpecialRequests:  b.SpecialRequests,
		TotalAmountCents: b.TotalAmountCents,
		Total:            float64(b.TotalAmountCents) / 100.0,
		Status:           b.Status,
		IdempotencyKey:   b.IdempotencyKey,
	}
}

// Create handles POST /v1/bookings.  The total is recomputed server-side
// from the vehicle's current rates; the client-quoted price is never
// trusted.  Resubmission with the same idempotency key returns the
// existing booking with 200 instead of creating a duplicate.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.VehicleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicle_id is required"})
	}
	// Required contact fields, reported per field so forms can highlight.
	for field, val := range map[string]string{
		"customer_name":  req.CustomerName,
		"customer_email": req.CustomerEmail,
		"customer_phone": req.CustomerPhone,
	} {
		if strings.TrimSpace(val) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": field + " is required", "field": field})
		}
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must not be before start_date"})
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, req.VehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if v.Status != model.VehicleAvailable {
		return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle is not available"})
	}

	quote := pricing.Compute(start, end, v.DailyRateCents, v.WeeklyDiscountPct, v.MonthlyDiscountPct)

	b := model.Booking{
		UserID:           userID,
		VehicleID:        v.ID,
		StartDate:        start,
		EndDate:          end,
		PickupLocation:   strings.TrimSpace(req.PickupLocation),
		DropoffLocation:  strings.TrimSpace(req.DropoffLocation),
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerEmail:    strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
		SpecialRequests:  strings.TrimSpace(req.SpecialRequests),
		TotalAmountCents: quote.DiscountedCents,
		IdempotencyKey:   key,
	}

	created, err := h.Bookings.Create(ctx, &b)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle already booked for this range"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	if !created {
		// Idempotent resubmission: hand back what we already have.
		return c.JSON(http.StatusOK, toBookingView(b))
	}

	_ = h.Audit.Record(ctx, &userID, "booking.create", "bookings", b.ID, key)

	// Event publication is best effort and must not delay the response.
	ev := queue.BookingCreatedEvent{
		BookingID:        b.ID,
		UserID:           b.UserID,
		VehicleID:        b.VehicleID,
		VehicleLabel:     fmt.Sprintf("%s %s %d", v.Make, v.Model, v.Year),
		StartDate:        b.StartDate.Format("2006-01-02"),
		EndDate:          b.EndDate.Format("2006-01-02"),
		PickupLocation:   b.PickupLocation,
		DropoffLocation:  b.DropoffLocation,
		TotalAmountCents: b.TotalAmountCents,
		Status:           b.Status,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		if err := h.Publish(context.Background(), ev); err != nil {
			log.Printf("booking: publish created event for id=%d failed: %v", b.ID, err)
		}
	}()

	return c.JSON(http.StatusCreated, toBookingView(b))
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]bookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingView(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get handles GET /v1/bookings/:id, restricted to the owning customer.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toBookingView(b))
}

// Cancel handles DELETE /v1/bookings/:id.  Customers may only cancel their
// own bookings while still PENDING.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Bookings.CancelOwn(ctx, id, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking can no longer be cancelled here"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
		}
	}
	_ = h.Audit.Record(ctx, &userID, "booking.cancel", "bookings", id, "")
	return c.NoContent(http.StatusNoContent)
}
