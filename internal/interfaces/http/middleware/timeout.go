package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
)

// Timeout bounds the request context. Services stop at their next database call once
// the deadline passes and the transaction rolls back.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			AbortWithError(c, apperrors.Transient("request", ctx.Err()))
		}
	}
}
