package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/utils"
)

// AdminOnly restricts access to tokens carrying the ADMIN role. It must run
// after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextClaims)
		if !exists {
			abortWithError(c, errors.ErrUnauthorized)
			return
		}

		claims, ok := value.(*utils.Claims)
		if !ok || claims.Role != utils.RoleAdmin {
			abortWithError(c, errors.Forbidden("Admin access required"))
			return
		}

		c.Next()
	}
}
