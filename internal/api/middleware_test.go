// internal/api/middleware_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-crm/internal/auth"
	"agency-crm/internal/common/config"
	"agency-crm/internal/models"
	"agency-crm/internal/repository"
)

func authServiceForTest() *auth.Service {
	return auth.NewService(
		repository.NewUserRepo(nil),
		nil,
		config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1},
	)
}

func claimsEcho(t *testing.T, expected string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		require.NotNil(t, claims)
		assert.Equal(t, expected, claims.UserID)
		w.WriteHeader(http.StatusOK)
	})
}

func signTestToken(t *testing.T, svc *auth.Service, userID, role string) string {
	t.Helper()
	token, _, err := svc.IssueToken(userID, role)
	require.NoError(t, err)
	return token
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	svc := authServiceForTest()
	h := requireAuth(svc)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	svc := authServiceForTest()
	h := requireAuth(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/submissions", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	svc := authServiceForTest()

	protected := requireAuth(svc)(
		requireRole(models.RoleAdmin)(okHandler()),
	)

	// An agent token is authenticated but not authorized for admin routes.
	token := signTestToken(t, svc, "agent-1", models.RoleAgent)
	req := httptest.NewRequest(http.MethodDelete, "/api/submissions/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token = signTestToken(t, svc, "admin-1", models.RoleAdmin)
	req = httptest.NewRequest(http.MethodDelete, "/api/submissions/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClaimsReachHandler(t *testing.T) {
	svc := authServiceForTest()
	h := requireAuth(svc)(claimsEcho(t, "user-9"))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, svc, "user-9", models.RoleAgent))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
