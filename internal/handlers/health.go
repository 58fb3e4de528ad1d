package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/database"
)

// Health reports database and Redis reachability. Redis is optional, so
// "disabled" does not fail the check.
func Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "disabled"}
	status := http.StatusOK

	if err := database.Ping(); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if database.Redis != nil {
		if err := database.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	c.JSON(status, gin.H{
		"success": status == http.StatusOK,
		"status":  map[bool]string{true: "healthy", false: "unhealthy"}[status == http.StatusOK],
		"checks":  checks,
		"time":    time.Now().UTC(),
	})
}
