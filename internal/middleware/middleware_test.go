package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret-key-32-characters")

type stubRoles struct {
	role access.Role
	err  error
}

func (s stubRoles) ResolveRole(ctx context.Context, userID uint) (access.Role, error) {
	return s.role, s.err
}

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key interface{}) string {
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"uid":  "42",
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func setupRouter(roles RoleResolver, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuth(testSecret, roles)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, identity)
	})
	router.GET("/protected", handlers...)
	return router
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	router := setupRouter(nil)
	w := doRequest(router, signToken(t, validClaims("admin"), jwt.SigningMethodHS256, testSecret))
	require.Equal(t, http.StatusOK, w.Code)

	var identity access.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, uint(42), identity.UserID)
	assert.Equal(t, access.Admin, identity.Displayed)
	assert.Equal(t, access.Vendor, identity.Capability)
}

func TestJWTAuthPrefersStoredRole(t *testing.T) {
	router := setupRouter(stubRoles{role: access.Staff})
	w := doRequest(router, signToken(t, validClaims("student"), jwt.SigningMethodHS256, testSecret))
	require.Equal(t, http.StatusOK, w.Code)

	var identity access.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, access.Staff, identity.Displayed)

	failing := setupRouter(stubRoles{err: errors.New("db down")})
	w = doRequest(failing, signToken(t, validClaims("student"), jwt.SigningMethodHS256, testSecret))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	router := setupRouter(nil)

	expired := validClaims("student")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExp := validClaims("student")
	delete(noExp, "exp")
	noUID := validClaims("student")
	delete(noUID, "uid")
	zeroUID := validClaims("student")
	zeroUID["uid"] = "0"

	tests := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", signToken(t, validClaims("student"), jwt.SigningMethodHS256, []byte("other"))},
		{"expired", signToken(t, expired, jwt.SigningMethodHS256, testSecret)},
		{"no exp", signToken(t, noExp, jwt.SigningMethodHS256, testSecret)},
		{"no uid", signToken(t, noUID, jwt.SigningMethodHS256, testSecret)},
		{"zero uid", signToken(t, zeroUID, jwt.SigningMethodHS256, testSecret)},
		{"unknown role", signToken(t, validClaims("user"), jwt.SigningMethodHS256, testSecret)},
		{"none alg", signToken(t, validClaims("admin"), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestJWTAuthRequiresBearerScheme(t *testing.T) {
	router := setupRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLegacyRoleClaimIsNormalized(t *testing.T) {
	router := setupRouter(nil)
	w := doRequest(router, signToken(t, validClaims("superadmin"), jwt.SigningMethodHS256, testSecret))
	require.Equal(t, http.StatusOK, w.Code)

	var identity access.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, access.Admin, identity.Displayed)
}

func TestRequireRoleUsesDisplayedRole(t *testing.T) {
	router := setupRouter(nil, RequireRole(access.OrderOperators...))

	w := doRequest(router, signToken(t, validClaims("staff"), jwt.SigningMethodHS256, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, signToken(t, validClaims("student"), jwt.SigningMethodHS256, testSecret))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not authorized")
}

func TestRequireCapabilityUsesSwappedRole(t *testing.T) {
	router := setupRouter(nil, RequireCapability(access.UserManagers...))

	// a displayed vendor carries admin capabilities
	w := doRequest(router, signToken(t, validClaims("vendor"), jwt.SigningMethodHS256, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, signToken(t, validClaims("admin"), jwt.SigningMethodHS256, testSecret))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", RequireRole(access.Admin), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestLoggerAssignsID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "5f0c1a56-8b1e-4c55-9d7a-6e2f8f1d3c4b")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "5f0c1a56-8b1e-4c55-9d7a-6e2f8f1d3c4b", w.Header().Get(RequestIDHeader))
}
