package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds security headers suited to a JSON API that also serves
// generated images.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'")
		// Generated banners are embedded by the frontend on another origin.
		c.Header("Cross-Origin-Resource-Policy", "cross-origin")

		c.Next()
	}
}
