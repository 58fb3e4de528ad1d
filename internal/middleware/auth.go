package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/utils"
)

// Context keys set by AuthMiddleware.
const (
	ContextSubject = "userId"
	ContextClaims  = "claims"
)

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortWithError(c, errors.Unauthorized("Authorization header required"))
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			abortWithError(c, errors.Unauthorized("Invalid authorization header format"))
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			abortWithError(c, errors.Unauthorized("Invalid or expired token: "+err.Error()))
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}
