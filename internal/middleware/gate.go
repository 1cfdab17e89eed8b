package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// GateStatus tags the outcome of Gate.
type GateStatus int

const (
	GateAuthorized GateStatus = iota
	GateUnauthenticated
	GateForbidden
)

func (s GateStatus) String() string {
	switch s {
	case GateAuthorized:
		return "authorized"
	case GateUnauthenticated:
		return "unauthenticated"
	case GateForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// GateResult carries the claims when authorized and the error to render
// otherwise.
type GateResult struct {
	Status GateStatus
	Claims *models.JWTClaims
	Err    *appErrors.Error
}

// Gate decides whether claims may pass. An empty allow-list admits every role.
func Gate(claims *models.JWTClaims, allowed ...models.UserRole) GateResult {
	if claims == nil {
		return GateResult{Status: GateUnauthenticated, Err: appErrors.Clone(appErrors.ErrUnauthorized, "")}
	}
	if !claims.Active {
		return GateResult{Status: GateForbidden, Err: appErrors.Clone(appErrors.ErrInactiveAccount, "")}
	}
	if len(allowed) > 0 && !hasRole(claims.Role, allowed) {
		return GateResult{Status: GateForbidden, Err: appErrors.Clone(appErrors.ErrForbidden, "")}
	}
	return GateResult{Status: GateAuthorized, Claims: claims}
}

// Require aborts the request unless Gate authorizes the current claims.
func Require(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := Gate(CurrentClaims(c), roles...)
		if result.Status != GateAuthorized {
			response.Error(c, result.Err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func hasRole(role models.UserRole, allowed []models.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
