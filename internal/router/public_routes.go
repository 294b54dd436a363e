package router

import (
	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/handler"
)

// RegisterPublic registers the unauthenticated catalog and availability
// endpoints.  Guests can browse vehicles and price a rental before
// creating an account.  The optional cacheMW (Redis response cache) is
// applied to these read-only routes; pass nil to skip it.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheMW echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cacheMW != nil {
		mws = append(mws, cacheMW)
	}
	// The search route is registered before the :id route so "search" is
	// not parsed as a vehicle id.
	e.GET("/v1/vehicles/search", p.SearchAvailability, mws...)
	e.GET("/v1/vehicles", p.ListVehicles, mws...)
	e.GET("/v1/vehicles/:id", p.GetVehicle, mws...)
}
