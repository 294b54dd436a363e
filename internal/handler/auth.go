package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/config"
	"github.com/roamfleet/vehicle-rental/internal/model"
	"github.com/roamfleet/vehicle-rental/internal/repository"
	"github.com/roamfleet/vehicle-rental/internal/retry"
	"github.com/roamfleet/vehicle-rental/internal/utils"
)

const verificationTTL = 48 * time.Hour

// AuthHandler bundles dependencies for identity endpoints: registration,
// login, token refresh, logout, email verification and profile updates.
type AuthHandler struct {
	Cfg           config.Config
	Profiles      *repository.ProfileRepo
	Tokens        *repository.TokenRepo
	Verifications *repository.VerificationRepo
	Audit         *repository.AuditRepo

	policy  retry.Policy  // bounded retry for store calls on the auth path
	pending *pendingStore // emails awaiting verification
}

func NewAuthHandler(cfg config.Config, p *repository.ProfileRepo, t *repository.TokenRepo, v *repository.VerificationRepo, a *repository.AuditRepo) *AuthHandler {
	return &AuthHandler{
		Cfg:           cfg,
		Profiles:      p,
		Tokens:        t,
		Verifications: v,
		Audit:         a,
		policy: retry.Policy{
			Attempts: cfg.AuthRetries,
			Delay:    time.Duration(cfg.AuthRetryDelayMS) * time.Millisecond,
		},
		pending: newPendingStore(verificationTTL),
	}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}
type loginReq struct {
	Identifier string `json:"identifier"` // email or username
	Password   string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resendReq struct {
	Email string `json:"email"`
}
type verifyReq struct {
	Token string `json:"token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type profilePart struct {
	ID            uint64  `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	Role          string  `json:"role"`
	EmailVerified bool    `json:"email_verified"`
}
type authResp struct {
	User    profilePart `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func toProfilePart(p model.Profile) profilePart {
	return profilePart{
		ID:            p.ID,
		Username:      p.Username,
		Email:         p.Email,
		FullName:      p.FullName,
		AvatarURL:     p.AvatarURL,
		Role:          p.Role,
		EmailVerified: p.EmailVerified(),
	}
}

// Register creates a profile and issues an email verification token.  The
// client is expected to proceed to login after verifying; no session
// tokens are returned here.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = utils.NormalizeIdentifier(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if !utils.ValidEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	if !utils.ValidUsername(req.Username) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username must match [a-z0-9_]{3,20}"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	// Single lookup naming the colliding field, so the form can highlight
	// the right input.
	field, err := h.Profiles.FindCollision(ctx, req.Username, req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if field != "" {
		return c.JSON(http.StatusConflict, echo.Map{"error": field + " already exists", "field": field})
	}

	uid, err := retry.DoValue(ctx, h.policy, func(ctx context.Context) (uint64, error) {
		return h.Profiles.Create(ctx, req.Username, req.Email, req.Password, req.FullName, "CUSTOMER", h.Cfg.BcryptCost)
	})
	if err != nil {
		// The race between FindCollision and Create still surfaces here.
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists", "field": "username"})
		}
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists", "field": "email"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create profile failed"})
	}

	// Confirm the row actually materialized before telling the client to
	// log in; a handful of quick re-reads papers over replica lag.
	confirmPolicy := retry.Policy{Attempts: 3, Delay: 300 * time.Millisecond}
	if _, err := retry.DoValue(ctx, confirmPolicy, func(ctx context.Context) (model.Profile, error) {
		return h.Profiles.GetByID(ctx, uid)
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration incomplete, try again"})
	}

	h.pending.Add(req.Email)
	if _, err := h.Verifications.Issue(ctx, req.Email, verificationTTL); err != nil {
		log.Printf("auth: issue verification for %s failed: %v", req.Email, err)
	}
	_ = h.Audit.Record(ctx, nil, "profile.register", "profiles", uid, req.Username)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":                   uid,
		"username":             req.Username,
		"email":                req.Email,
		"verification_pending": true,
	})
}

// Login authenticates by email or username.  The whole operation runs
// under a deadline that actually cancels the store calls, so a slow
// backend cannot leave a request dangling past the configured timeout.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = utils.NormalizeIdentifier(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(),
		time.Duration(h.Cfg.LoginTimeoutSec)*time.Second)
	defer cancel()

	p, err := retry.DoValue(ctx, h.policy, func(ctx context.Context) (model.Profile, error) {
		return h.Profiles.GetByIdentifier(ctx, req.Identifier)
	})
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			_ = h.Audit.RecordAuthAttempt(ctx, req.Identifier, false)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		if ctx.Err() != nil {
			return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "login timed out"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(p.PasswordHash, req.Password) {
		_ = h.Audit.RecordAuthAttempt(ctx, req.Identifier, false)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !p.IsActive {
		_ = h.Audit.RecordAuthAttempt(ctx, req.Identifier, false)
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}
	if !p.EmailVerified() {
		// Track the address so the resend endpoint can work without the
		// user retyping it.
		h.pending.Add(p.Email)
		_ = h.Audit.RecordAuthAttempt(ctx, req.Identifier, false)
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":                "email not verified",
			"pending_verification": true,
			"email":                p.Email,
		})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.policy.Do(ctx, func(ctx context.Context) error {
		return h.Tokens.StoreRefresh(ctx, p.ID, utils.HashTokenRaw(refresh.Raw), refresh.Exp)
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	_ = h.Audit.RecordAuthAttempt(ctx, req.Identifier, true)

	return c.JSON(http.StatusOK, authResp{
		User:    toProfilePart(p),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// token pair (rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashTokenRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	p, err := h.Profiles.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load profile failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, p.ID, utils.HashTokenRaw(newRef.Raw), newRef.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}

	return c.JSON(http.StatusOK, authResp{
		User:    toProfilePart(p),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
	})
}

// RefreshAccess issues a new access token from a valid refresh token
// WITHOUT rotating the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashTokenRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	p, err := h.Profiles.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load profile failed"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes the presented refresh token and clears any pending
// verification tracking for the owning email.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashTokenRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.policy.Do(ctx, func(ctx context.Context) error {
		return h.Tokens.RevokeByHash(ctx, hash)
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	if p, err := h.Profiles.GetByID(ctx, userID); err == nil {
		h.pending.Remove(p.Email)
	} else {
		// Sign-out still succeeds; the entry expires on its own.
		log.Printf("auth: logout pending-clear lookup for user %d failed: %v", userID, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResendVerification issues a fresh verification token.  The email may be
// supplied in the body; otherwise the most recently tracked pending
// address is used.  With neither available this is a validation error.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req resendReq
	_ = c.Bind(&req) // empty body is fine
	email := utils.NormalizeIdentifier(req.Email)
	if email == "" {
		email = h.pending.Latest()
	}
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no email pending verification"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Only unverified accounts get a new token; respond 204 either way to
	// avoid leaking which addresses exist.
	p, err := h.Profiles.GetByIdentifier(ctx, email)
	if err == nil && !p.EmailVerified() {
		h.pending.Add(p.Email)
		if _, err := h.Verifications.Issue(ctx, p.Email, verificationTTL); err != nil {
			log.Printf("auth: reissue verification for %s failed: %v", p.Email, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resend failed"})
		}
		log.Printf("auth: verification email queued for %s", p.Email)
	}
	return c.NoContent(http.StatusNoContent)
}

// Verify consumes a verification token and stamps the profile's
// email_confirmed_at.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	email, err := h.Verifications.Consume(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	if err := h.Profiles.ConfirmEmail(ctx, email, time.Now().UTC()); err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	h.pending.Remove(email)
	return c.JSON(http.StatusOK, echo.Map{"verified": true, "email": email})
}

// Me returns the authenticated user's profile projection.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProfilePart(p))
}

type updateProfileReq struct {
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

// UpdateMe merges the provided fields into the caller's profile.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username == nil && req.FullName == nil && req.AvatarURL == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if !utils.ValidUsername(trimmed) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username must match [a-z0-9_]{3,20}"})
		}
		req.Username = &trimmed
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Profiles.Update(ctx, userID, repository.ProfileUpdate{
		Username:  req.Username,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists", "field": "username"})
		}
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	p, err := h.Profiles.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	_ = h.Audit.Record(ctx, &userID, "profile.update", "profiles", userID, "")
	return c.JSON(http.StatusOK, toProfilePart(p))
}
