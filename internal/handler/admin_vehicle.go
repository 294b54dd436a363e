package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/model"
	"github.com/roamfleet/vehicle-rental/internal/repository"
)

// AdminVehicleHandler covers the back-office fleet management endpoints.
// Middleware guarantees the caller holds the ADMIN role.
type AdminVehicleHandler struct {
	Vehicles *repository.VehicleRepo
	Audit    *repository.AuditRepo
}

func NewAdminVehicleHandler(v *repository.VehicleRepo, a *repository.AuditRepo) *AdminVehicleHandler {
	return &AdminVehicleHandler{Vehicles: v, Audit: a}
}

var validCategories = map[string]bool{
	model.CategoryEconomic: true,
	model.CategoryLuxury:   true,
	model.CategorySUV:      true,
	model.CategoryUtility:  true,
}

var validVehicleStatuses = map[string]bool{
	model.VehicleAvailable:   true,
	model.VehicleRented:      true,
	model.VehicleMaintenance: true,
	model.VehicleRetired:     true,
}

type createVehicleReq struct {
	Make               string             `json:"make"`
	Model              string             `json:"model"`
	Year               int                `json:"year"`
	Category           string             `json:"category"`
	DailyRateCents     uint32             `json:"daily_rate_cents"`
	WeeklyDiscountPct  *uint8             `json:"weekly_discount_pct"`
	MonthlyDiscountPct *uint8             `json:"monthly_discount_pct"`
	Features           []string           `json:"features"`
	Specs              model.VehicleSpecs `json:"specs"`
	Status             string             `json:"status"`
	Location           string             `json:"location"`
}

// Create handles POST /v1/admin/vehicles.
func (h *AdminVehicleHandler) Create(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createVehicleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Make = strings.TrimSpace(req.Make)
	req.Model = strings.TrimSpace(req.Model)
	if req.Make == "" || req.Model == "" || req.Year == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "make, model and year are required"})
	}
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	if !validCategories[req.Category] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}
	if req.DailyRateCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "daily_rate_cents must be positive"})
	}
	if err := checkDiscountPct(req.WeeklyDiscountPct); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := checkDiscountPct(req.MonthlyDiscountPct); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		status = model.VehicleAvailable
	}
	if !validVehicleStatuses[status] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Vehicles.Create(ctx, model.Vehicle{
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		Category:           req.Category,
		DailyRateCents:     req.DailyRateCents,
		WeeklyDiscountPct:  req.WeeklyDiscountPct,
		MonthlyDiscountPct: req.MonthlyDiscountPct,
		Features:           req.Features,
		Specs:              req.Specs,
		Status:             status,
		Location:           strings.TrimSpace(req.Location),
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create vehicle failed"})
	}
	_ = h.Audit.Record(ctx, &actorID, "vehicle.create", "vehicles", id, req.Make+" "+req.Model)
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func checkDiscountPct(p *uint8) error {
	if p != nil && *p > 90 {
		return errors.New("discount percentage out of range")
	}
	return nil
}

type updateVehicleReq struct {
	Make               *string             `json:"make"`
	Model              *string             `json:"model"`
	Year               *int                `json:"year"`
	Category           *string             `json:"category"`
	DailyRateCents     *uint32             `json:"daily_rate_cents"`
	WeeklyDiscountPct  *uint8              `json:"weekly_discount_pct"`
	MonthlyDiscountPct *uint8              `json:"monthly_discount_pct"`
	Features           []string            `json:"features"`
	Specs              *model.VehicleSpecs `json:"specs"`
	Status             *string             `json:"status"`
	Location           *string             `json:"location"`
}

// Update handles PATCH /v1/admin/vehicles/:id.
func (h *AdminVehicleHandler) Update(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	var req updateVehicleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Category != nil {
		cat := strings.ToUpper(strings.TrimSpace(*req.Category))
		if !validCategories[cat] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
		}
		req.Category = &cat
	}
	if req.Status != nil {
		st := strings.ToUpper(strings.TrimSpace(*req.Status))
		if !validVehicleStatuses[st] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		req.Status = &st
	}
	if err := checkDiscountPct(req.WeeklyDiscountPct); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := checkDiscountPct(req.MonthlyDiscountPct); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Vehicles.Update(ctx, id, repository.VehicleUpdate{
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		Category:           req.Category,
		DailyRateCents:     req.DailyRateCents,
		WeeklyDiscountPct:  req.WeeklyDiscountPct,
		MonthlyDiscountPct: req.MonthlyDiscountPct,
		Features:           req.Features,
		Specs:              req.Specs,
		Status:             req.Status,
		Location:           req.Location,
	})
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update vehicle failed"})
	}
	_ = h.Audit.Record(ctx, &actorID, "vehicle.update", "vehicles", id, "")
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/admin/vehicles/:id.  A vehicle with open
// bookings cannot be removed.
func (h *AdminVehicleHandler) Delete(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Vehicles.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrVehicleNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle has open bookings"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete vehicle failed"})
		}
	}
	_ = h.Audit.Record(ctx, &actorID, "vehicle.delete", "vehicles", id, "")
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/admin/vehicles with an optional status filter.
// Unlike the public catalog this includes retired vehicles.
func (h *AdminVehicleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && !validVehicleStatuses[status] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	limit, offset := parsePage(c)

	vehicles, err := h.Vehicles.List(ctx, status, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]vehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleView(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicles": out})
}
