package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

func TestGateOrder(t *testing.T) {
	result := Gate(nil, models.RoleAdmin)
	assert.Equal(t, GateUnauthenticated, result.Status)
	assert.Equal(t, http.StatusUnauthorized, result.Err.Status)

	inactive := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	result = Gate(inactive, models.RoleAdmin)
	assert.Equal(t, GateForbidden, result.Status)
	assert.ErrorIs(t, result.Err, appErrors.ErrInactiveAccount)
	assert.Equal(t, "account is inactive", result.Err.Message)

	student := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, Active: true}
	result = Gate(student, models.RoleAdmin, models.RoleTeacher)
	assert.Equal(t, GateForbidden, result.Status)
	assert.ErrorIs(t, result.Err, appErrors.ErrForbidden)

	result = Gate(student)
	assert.Equal(t, GateAuthorized, result.Status)
	assert.Same(t, student, result.Claims)
	assert.Nil(t, result.Err)
}

func gatedRouter(claims *models.JWTClaims, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	r.GET("/private", Require(roles...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequire(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		roles  []models.UserRole
		status int
		code   string
	}{
		{name: "anonymous", status: http.StatusUnauthorized, code: "UNAUTHORIZED", roles: []models.UserRole{models.RoleAdmin}},
		{name: "inactive", claims: &models.JWTClaims{Role: models.RoleAdmin}, roles: []models.UserRole{models.RoleAdmin}, status: http.StatusForbidden, code: "ACCOUNT_INACTIVE"},
		{name: "wrong role", claims: &models.JWTClaims{Role: models.RoleTeacher, Active: true}, roles: []models.UserRole{models.RoleAdmin}, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "admin", claims: &models.JWTClaims{Role: models.RoleAdmin, Active: true}, roles: []models.UserRole{models.RoleAdmin}, status: http.StatusNoContent},
		{name: "any role", claims: &models.JWTClaims{Role: models.RoleStudent, Active: true}, status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			gatedRouter(tc.claims, tc.roles...).ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Contains(t, w.Body.String(), `"code":"`+tc.code+`"`)
			}
		})
	}
}
