package router

import (
	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/handler"
	"github.com/roamfleet/vehicle-rental/internal/middleware"
)

// RegisterAdmin registers the back-office endpoints under /v1/admin.  All
// routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, vh *handler.AdminVehicleHandler, bh *handler.AdminBookingHandler, uh *handler.AdminUserHandler, sh *handler.AdminStatsHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	g.GET("/vehicles", vh.List)
	g.POST("/vehicles", vh.Create)
	g.PATCH("/vehicles/:id", vh.Update)
	g.DELETE("/vehicles/:id", vh.Delete)

	g.GET("/bookings", bh.List)
	g.PATCH("/bookings/:id/status", bh.UpdateStatus)

	g.GET("/users", uh.List)
	g.PATCH("/users/:id/active", uh.SetActive)

	g.GET("/stats", sh.Dashboard)
}
