package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type sessionChecker interface {
	Check(ctx context.Context, userID, sid string) error
}

type claimEnricher interface {
	Enrich(ctx context.Context, claims *models.JWTClaims) *models.JWTClaims
}

// AuthOptions toggles per-request session enforcement.
type AuthOptions struct {
	SingleSession bool
}

// Authenticate resolves the bearer token into enriched claims. Requests
// without an Authorization header pass through anonymously so public routes
// can share it; Require rejects them where a caller is needed. A malformed or
// expired token, or a sid replaced by a newer sign-in, is rejected with 401.
func Authenticate(tokens tokenValidator, sessions sessionChecker, enricher claimEnricher, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if opts.SingleSession && sessions != nil {
			if err := sessions.Check(c.Request.Context(), claims.UserID, claims.SessionID); err != nil {
				response.Error(c, err)
				c.Abort()
				return
			}
		}

		if enricher != nil {
			claims = enricher.Enrich(c.Request.Context(), claims)
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentClaims returns the claims attached by Authenticate, or nil.
func CurrentClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
