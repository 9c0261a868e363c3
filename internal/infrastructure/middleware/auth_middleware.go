package middleware

import (
	"errors"
	"strings"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/services"
	apperrors "streampulse/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	ContextSubjectKey = "subject"
	ContextRoleKey    = "role"
)

// AuthMiddleware requires a bearer token carrying at least requiredRole. A nil
// authService disables the check.
func AuthMiddleware(authService services.AuthService, requiredRole domain.OperatorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.NewUnauthorizedError("authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, apperrors.NewUnauthorizedError("invalid authorization header format"))
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, services.ErrExpiredToken) {
				msg = "token expired"
			}
			abortWithError(c, apperrors.NewUnauthorizedError(msg))
			return
		}

		if !claims.Role.Allows(requiredRole) {
			abortWithError(c, apperrors.NewForbiddenError("insufficient permissions").
				WithContext("required_role", string(requiredRole)))
			return
		}

		c.Set(ContextSubjectKey, claims.Subject)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

func abortWithError(c *gin.Context, err *apperrors.AppError) {
	_ = c.Error(err)
	c.Abort()
}
