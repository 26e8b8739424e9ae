package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/middleware"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
)

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		middleware.AbortWithError(c, apperrors.ValidationWithFields("invalid path parameter", map[string]string{
			name: "must be a positive integer",
		}))
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body, rendering a validation error on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.AbortWithError(c, apperrors.Validation("invalid request data").WithDetail("body", err.Error()))
		return false
	}
	return true
}

// currentActor returns the authenticated actor or renders 401
func currentActor(c *gin.Context) (actor.Actor, bool) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		middleware.AbortWithError(c, apperrors.Unauthorized(""))
	}
	return a, ok
}
