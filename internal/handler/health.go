package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	depUp       = "up"
	depDown     = "down"
	depDisabled = "disabled"
)

type healthResponse struct {
	Status string            `json:"status"` // ok | degraded
	Checks map[string]string `json:"checks"`
}

// Health pings the database (required) and redis (optional). A down database
// is 503; a down redis only degrades the status because rate limiting falls
// back to memory.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{
			"database": pingDatabase(ctx, db),
			"redis":    pingRedis(ctx, rdb),
		}}

		code := http.StatusOK
		switch {
		case resp.Checks["database"] != depUp:
			resp.Status = "down"
			code = http.StatusServiceUnavailable
		case resp.Checks["redis"] == depDown:
			resp.Status = "degraded"
		}
		if code != http.StatusOK || resp.Status != "ok" {
			log.Warn().Interface("checks", resp.Checks).Msg("health check failing")
		}
		c.JSON(code, resp)
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) string {
	sqlDB, err := db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return depDown
	}
	return depUp
}

func pingRedis(ctx context.Context, rdb *redis.Client) string {
	if rdb == nil {
		return depDisabled
	}
	if rdb.Ping(ctx).Err() != nil {
		return depDown
	}
	return depUp
}
