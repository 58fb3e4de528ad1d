package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/config"
)

// CORSMiddleware allows the configured frontend origins. FRONTEND_URL may be
// a comma separated list, or "*" to allow any origin without credentials.
func CORSMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	origins := allowedOrigins(config.AppConfig.FrontendURL)
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func allowedOrigins(raw string) []string {
	seen := map[string]bool{}
	var out []string
	for _, origin := range append(strings.Split(raw, ","), "http://localhost:5173") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			continue
		}
		if origin == "*" {
			return []string{"*"}
		}
		seen[origin] = true
		out = append(out, origin)
	}
	return out
}
