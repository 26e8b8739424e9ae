// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/auth"
)

const actorKey = "actor"

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, apperrors.Unauthorized("authorization header required"))
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			AbortWithError(c, apperrors.Unauthorized("invalid authorization header format"))
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			AbortWithError(c, apperrors.Unauthorized("invalid or expired token"))
			return
		}

		// Store actor information in context
		a := claims.Actor()
		c.Set(actorKey, a)
		c.Set("user_id", a.ID)
		c.Set("tenant_id", a.TenantID)

		c.Next()
	}
}

// RequireStockManager lets only owners and pharmacists through
func RequireStockManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := ActorFromContext(c)
		if !ok {
			AbortWithError(c, apperrors.Unauthorized(""))
			return
		}
		if !a.CanManageStock() {
			AbortWithError(c, apperrors.Forbidden("owner or pharmacist role required"))
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor
func ActorFromContext(c *gin.Context) (actor.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return actor.Actor{}, false
	}
	a, ok := value.(actor.Actor)
	return a, ok
}
