package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core/apperror"
	appctx "atelier/internal/core/context"
)

type stubValidator struct {
	users map[string]*appctx.UserContext
}

func (v *stubValidator) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	if u, ok := v.users[tokenString]; ok {
		return u, nil
	}
	return nil, apperror.NewUnauthorized("invalid token")
}

func newTestRouter(validator JWTValidator, handled *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())

	protected := router.Group("/api")
	protected.Use(Auth(validator))
	protected.POST("/admin-only", RequireAdmin(), func(c *gin.Context) {
		*handled++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	protected.GET("/anyone", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": appctx.GetUserID(c.Request.Context())})
	})

	return router
}

func TestAuth_MissingAndMalformedHeader(t *testing.T) {
	var handled int
	router := newTestRouter(&stubValidator{}, &handled)

	req := httptest.NewRequest(http.MethodGet, "/api/anyone", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/anyone", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_BlocksBeforeHandler(t *testing.T) {
	var handled int
	validator := &stubValidator{users: map[string]*appctx.UserContext{
		"user-token":  {UserID: "u1", Role: "user"},
		"admin-token": {UserID: "a1", Role: "admin", IsAdmin: true},
	}}
	router := newTestRouter(validator, &handled)

	req := httptest.NewRequest(http.MethodPost, "/api/admin-only", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, handled, "handler must not run for non-admin")
	assert.Contains(t, w.Body.String(), apperror.CodeForbidden)

	req = httptest.NewRequest(http.MethodPost, "/api/admin-only", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, handled)
}

func TestAuth_PopulatesUserContext(t *testing.T) {
	var handled int
	validator := &stubValidator{users: map[string]*appctx.UserContext{
		"user-token": {UserID: "u1", Email: "u1@example.com", Role: "user"},
	}}
	router := newTestRouter(validator, &handled)

	req := httptest.NewRequest(http.MethodGet, "/api/anyone", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}
