package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/roamfleet/vehicle-rental/internal/config"
	"github.com/roamfleet/vehicle-rental/internal/repository"
	"github.com/roamfleet/vehicle-rental/internal/utils"
)

var profileRowCols = []string{
	"id", "username", "email", "password_hash", "full_name", "avatar_url",
	"role", "is_active", "email_confirmed_at", "created_at", "updated_at",
}

// profileRow builds a DB row for a CUSTOMER profile.  confirmed is nil for
// an unverified account.
func profileRow(id uint64, username, email, hash string, confirmed any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(profileRowCols).AddRow(
		id, username, email, hash, "Jean Martin", nil, "CUSTOMER", true, confirmed, now, now)
}

func newAuthTest(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	cfg := config.Config{
		JWTSecret:       "test-secret",
		AccessTTLMin:    15,
		RefreshTTLDays:  30,
		BcryptCost:      bcrypt.MinCost,
		LoginTimeoutSec: 5,
		AuthRetries:     1, // no retry delays in tests
	}
	h := NewAuthHandler(cfg,
		repository.NewProfileRepo(db),
		repository.NewTokenRepo(db),
		repository.NewVerificationRepo(db),
		repository.NewAuditRepo(db))
	return h, mock, func() { db.Close() }
}

func postJSON(t *testing.T, fn echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := fn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := utils.HashPassword(plain, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

func TestRegisterRejectsInvalidUsername(t *testing.T) {
	h, _, done := newAuthTest(t)
	defer done()

	for _, username := range []string{"ab", "Bad-Name", "spaced out", "UPPER"} {
		rec := postJSON(t, h.Register,
			`{"username":"`+username+`","email":"new@example.com","password":"secret123"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("username %q: status = %d, want 400", username, rec.Code)
		}
	}
}

func TestRegisterCollisionNamesField(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	mock.ExpectQuery(`SELECT username, email FROM profiles`).
		WithArgs("taken", "new@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}).
			AddRow("taken", "other@example.com"))

	rec := postJSON(t, h.Register,
		`{"username":"taken","email":"new@example.com","password":"secret123"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"username"`) {
		t.Fatalf("body %s does not name the colliding field", rec.Body.String())
	}
}

func TestRegisterCreatesProfileAndVerification(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	mock.ExpectQuery(`SELECT username, email FROM profiles`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO profiles`).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(`FROM profiles WHERE id=`).
		WithArgs(uint64(5)).
		WillReturnRows(profileRow(5, "newuser", "new@example.com", "x", nil))
	mock.ExpectExec(`UPDATE email_verifications SET consumed_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO email_verifications`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Register,
		`{"username":"newuser","email":"new@example.com","password":"secret123","full_name":"Jean Martin"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"verification_pending":true`) {
		t.Fatalf("body %s does not flag pending verification", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	confirmed := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`FROM profiles WHERE email=`).
		WillReturnRows(profileRow(5, "newuser", "new@example.com",
			mustHash(t, "secret123"), confirmed))
	mock.ExpectExec(`INSERT INTO auth_attempts`).
		WithArgs("new@example.com", false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Login,
		`{"identifier":"new@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginUnverifiedThenResendFallback(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	hash := mustHash(t, "secret123")

	// Login with correct credentials but no email confirmation: rejected,
	// and the address is remembered for resends.
	mock.ExpectQuery(`FROM profiles WHERE email=`).
		WillReturnRows(profileRow(5, "newuser", "new@example.com", hash, nil))
	mock.ExpectExec(`INSERT INTO auth_attempts`).
		WithArgs("new@example.com", false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Login,
		`{"identifier":"new@example.com","password":"secret123"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("login status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"pending_verification":true`) {
		t.Fatalf("login body %s does not flag pending verification", rec.Body.String())
	}

	// Resend with an empty body: the handler falls back to the tracked
	// pending address.
	mock.ExpectQuery(`FROM profiles WHERE email=`).
		WillReturnRows(profileRow(5, "newuser", "new@example.com", hash, nil))
	mock.ExpectExec(`UPDATE email_verifications SET consumed_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO email_verifications`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec = postJSON(t, h.ResendVerification, `{}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("resend status = %d, want 204", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResendWithoutPendingEmail(t *testing.T) {
	h, _, done := newAuthTest(t)
	defer done()

	// No body email and nothing tracked: validation error, no DB calls.
	rec := postJSON(t, h.ResendVerification, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	confirmed := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`FROM profiles WHERE email=`).
		WillReturnRows(profileRow(5, "newuser", "new@example.com",
			mustHash(t, "secret123"), confirmed))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO auth_attempts`).
		WithArgs("new@example.com", true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Login,
		`{"identifier":"new@example.com","password":"secret123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"access"`) || !strings.Contains(body, `"refresh"`) {
		t.Fatalf("body %s is missing the token pair", body)
	}
	if !strings.Contains(body, `"email_verified":true`) {
		t.Fatalf("body %s should report a verified profile", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLogoutClearsPendingVerification(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	h.pending.Add("new@example.com")

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(5, time.Now().Add(24*time.Hour), nil))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM profiles WHERE id=`).
		WithArgs(uint64(5)).
		WillReturnRows(profileRow(5, "newuser", "new@example.com", "x", nil))

	rec := postJSON(t, h.Logout, `{"refresh_token":"raw-refresh"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := h.pending.Latest(); got != "" {
		t.Fatalf("pending email %q still tracked after logout", got)
	}
}

func TestLogoutSurvivesProfileLookupFailure(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(5, time.Now().Add(24*time.Hour), nil))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The pending-clear lookup failing must not fail the sign-out.
	mock.ExpectQuery(`FROM profiles WHERE id=`).
		WillReturnError(sql.ErrConnDone)

	rec := postJSON(t, h.Logout, `{"refresh_token":"raw-refresh"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	h, mock, done := newAuthTest(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows(profileRowCols).AddRow(
		5, "newuser", "new@example.com", mustHash(t, "secret123"),
		"Jean Martin", nil, "CUSTOMER", false, now.Add(-time.Hour), now, now)
	mock.ExpectQuery(`FROM profiles WHERE email=`).WillReturnRows(rows)
	mock.ExpectExec(`INSERT INTO auth_attempts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Login,
		`{"identifier":"new@example.com","password":"secret123"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "account disabled") {
		t.Fatalf("body %s should explain the disabled account", rec.Body.String())
	}
}
