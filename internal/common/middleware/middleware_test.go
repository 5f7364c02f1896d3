package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelcore/service-booking/internal/common/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(verifier *auth.Verifier) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	group := r.Group("/")
	if verifier != nil {
		group.Use(AuthMiddleware(verifier))
	}
	group.GET("/whoami", func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.Role)
	})
	group.DELETE("/admin", RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	v := auth.NewVerifier("mw-secret")
	r := newRouter(v)

	rec := serve(r, http.MethodGet, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	rec = serve(r, http.MethodGet, "/whoami", "bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := v.Issue("u", auth.RoleStaff, []uuid.UUID{uuid.New()}, time.Hour)
	require.NoError(t, err)
	rec = serve(r, http.MethodGet, "/whoami", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.RoleStaff, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	v := auth.NewVerifier("mw-secret")
	r := newRouter(v)

	staff, err := v.Issue("u", auth.RoleStaff, nil, time.Hour)
	require.NoError(t, err)
	admin, err := v.Issue("u", auth.RoleAdmin, nil, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodDelete, "/admin", staff).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/admin", admin).Code)
}

func TestRequireRole_PassesWithoutAuth(t *testing.T) {
	r := newRouter(nil)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/admin", "").Code)
	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/whoami", "").Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newRouter(nil)

	rec := serve(r, http.MethodGet, "/whoami", "")
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
