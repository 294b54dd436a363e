package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/repository"
)

// AdminUserHandler lists accounts and toggles their active flag.
// Deactivation also revokes all of the user's refresh tokens so open
// sessions die with the account.
type AdminUserHandler struct {
	Profiles *repository.ProfileRepo
	Tokens   *repository.TokenRepo
	Audit    *repository.AuditRepo
}

func NewAdminUserHandler(p *repository.ProfileRepo, t *repository.TokenRepo, a *repository.AuditRepo) *AdminUserHandler {
	return &AdminUserHandler{Profiles: p, Tokens: t, Audit: a}
}

// List handles GET /v1/admin/users.
func (h *AdminUserHandler) List(c echo.Context) error {
	limit, offset := parsePage(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profiles, err := h.Profiles.List(ctx, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type adminUserView struct {
		profilePart
		IsActive bool `json:"is_active"`
	}
	out := make([]adminUserView, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, adminUserView{profilePart: toProfilePart(p), IsActive: p.IsActive})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

type setActiveReq struct {
	Active bool `json:"active"`
}

// SetActive handles PATCH /v1/admin/users/:id/active.
func (h *AdminUserHandler) SetActive(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Profiles.SetActive(ctx, id, req.Active); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !req.Active {
		if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke sessions failed"})
		}
	}
	action := "user.activate"
	if !req.Active {
		action = "user.deactivate"
	}
	_ = h.Audit.Record(ctx, &actorID, action, "profiles", id, "")
	return c.NoContent(http.StatusNoContent)
}
