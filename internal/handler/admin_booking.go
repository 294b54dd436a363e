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
	"github.com/roamfleet/vehicle-rental/internal/repository"
)

// AdminBookingHandler manages the back-office booking list and the status
// transition endpoint.  Transitions follow a strict map; terminal states
// cannot be reopened.
type AdminBookingHandler struct {
	Bookings *repository.BookingRepo
	Audit    *repository.AuditRepo
}

func NewAdminBookingHandler(b *repository.BookingRepo, a *repository.AuditRepo) *AdminBookingHandler {
	return &AdminBookingHandler{Bookings: b, Audit: a}
}

var validBookingStatuses = map[string]bool{
	model.BookingPending:   true,
	model.BookingConfirmed: true,
	model.BookingActive:    true,
	model.BookingCompleted: true,
	model.BookingCancelled: true,
}

// adminBookingView extends the customer projection with contact details.
type adminBookingView struct {
	bookingView
	UserID        uint64 `json:"user_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

func toAdminBookingView(b model.Booking) adminBookingView {
	return adminBookingView{
		bookingView:   toBookingView(b),
		UserID:        b.UserID,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
	}
}

// List handles GET /v1/admin/bookings with optional status and vehicle_id
// filters.
func (h *AdminBookingHandler) List(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && !validBookingStatuses[status] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	var vehicleID uint64
	if s := c.QueryParam("vehicle_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || n == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle_id"})
		}
		vehicleID = n
	}
	limit, offset := parsePage(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Bookings.List(ctx, status, vehicleID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminBookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toAdminBookingView(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /v1/admin/bookings/:id/status.  Confirming a
// booking re-checks date conflicts, so two overlapping PENDING bookings
// cannot both be confirmed.
func (h *AdminBookingHandler) UpdateStatus(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	to := strings.ToUpper(strings.TrimSpace(req.Status))
	if !validBookingStatuses[to] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.UpdateStatus(ctx, id, to)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "status transition not allowed"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "date range conflicts with another booking"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	_ = h.Audit.Record(ctx, &actorID, "booking.status", "bookings", id, to)
	return c.JSON(http.StatusOK, toAdminBookingView(b))
}
