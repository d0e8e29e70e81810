package controller

import (
	"context"
	"net/http"
	"time"

	"todo-api/internal/cache"
	"todo-api/internal/config"
	"todo-api/internal/database"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// Health returns 200 if the process is alive. Used by load balancers.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now(),
		"uptime":      time.Since(startTime).Seconds(),
		"environment": config.Get().Environment,
	})
}

// Ready returns 200 if DB and Redis are reachable. Used by K8s readiness probes.
func Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	db := database.DB(ctx)
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	if err := db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
		return
	}
	if rc := cache.Client(ctx); rc != nil {
		if err := rc.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis ping failed"})
			return
		}
	}
	c.String(http.StatusOK, "OK")
}
