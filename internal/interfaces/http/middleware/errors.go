package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/logger"
)

// ErrorBody is the JSON shape of every failed response
type ErrorBody struct {
	Error *apperrors.AppError `json:"error"`
}

// AbortWithError renders err and stops the handler chain. Errors that are not
// AppErrors are reported as internal errors without leaking their text.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal("", err)
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		if log, exists := c.Get(loggerKey); exists {
			if l, ok := log.(logrus.FieldLogger); ok {
				logger.LogError(l, "http", c.HandlerName(), c.FullPath(), requestFields(c), err)
			}
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: appErr})
}

func requestFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}
	if id, ok := c.Get(requestIDKey); ok {
		fields["request_id"] = id
	}
	if a, ok := ActorFromContext(c); ok {
		fields["tenant_id"] = a.TenantID
		fields["actor_id"] = a.ID
	}
	return fields
}
