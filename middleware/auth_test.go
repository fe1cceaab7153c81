package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"timesheet/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	SetJWTSecret("test-secret")
}

func TestGenerateAndValidateToken(t *testing.T) {
	p := &models.Principal{EmployeeCode: "M1", Roles: []models.Role{models.RoleManager}}

	token, err := GenerateToken(p, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "M1", claims.EmployeeCode)
	assert.Equal(t, []models.Role{models.RoleManager}, claims.Roles)
}

func TestValidateToken_Rejects(t *testing.T) {
	p := &models.Principal{EmployeeCode: "M1"}

	expired, err := GenerateToken(p, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{EmployeeCode: "M1"})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = ValidateToken(signed)
	assert.Error(t, err)

	anonymous, err := GenerateToken(&models.Principal{}, time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(anonymous)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	var seen *models.Principal
	var actor string
	h := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserFromContext(r.Context())
		actor = models.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing bearer token")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := GenerateToken(&models.Principal{EmployeeCode: "E1", Roles: []models.Role{models.RoleEmployee}}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "E1", seen.EmployeeCode)
	assert.Equal(t, "E1", actor)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(p *models.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if p != nil {
			req = req.WithContext(WithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&models.Principal{EmployeeCode: "E1", Roles: []models.Role{models.RoleEmployee}}))
	assert.Equal(t, http.StatusNoContent, serve(&models.Principal{EmployeeCode: "M1", Roles: []models.Role{models.RoleManager}}))
	assert.Equal(t, http.StatusNoContent, serve(&models.Principal{EmployeeCode: "A1", Roles: []models.Role{models.RoleAdmin}}))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/timesheets", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "/api/timesheets", fields["path"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}
