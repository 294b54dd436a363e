package router

import (
	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/handler"
	"github.com/roamfleet/vehicle-rental/internal/middleware"
)

// RegisterCustomer registers the booking flow endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role.  Customers can submit
// a booking, list their own bookings, view one, and cancel a PENDING one.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	g.POST("/bookings", h.Create)
	g.GET("/my-bookings", h.ListMine)
	g.GET("/bookings/:id", h.Get)
	g.DELETE("/bookings/:id", h.Cancel)
}
