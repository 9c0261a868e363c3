package middleware

import (
	"net/http"

	"streampulse/pkg/errors"
	"streampulse/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware renders the last error attached with c.Error as a
// structured JSON response. Server errors are logged with the request's
// context fields.
func ErrorHandlerMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()
		route := []zap.Field{
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		}

		if !errors.IsAppError(err) {
			cl.LogError(ctx, err, "unhandled error", route...)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   string(errors.ErrCodeInternal),
				"message": "Internal server error",
			})
			return
		}

		appErr := errors.GetAppError(err)
		fields := append(route,
			zap.String("code", string(appErr.Code)),
			zap.Int("status", appErr.HTTPStatus),
			zap.Any("context", appErr.Context),
		)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			cl.LogError(ctx, err, "application error", fields...)
		} else {
			cl.WithContext(ctx).Warn("application error", append(fields, zap.String("message", appErr.Message))...)
		}

		body := gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		}
		if len(appErr.Context) > 0 {
			body["details"] = appErr.Context
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response
func RecoveryMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
