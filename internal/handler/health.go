package handler

import (
	"context"
	"net/http"
	"time"

	"entrepeques/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports whether the API can take bookings: Postgres holds the slot
// locks, Redis carries the confirmation emails. policyVersion is echoed so
// operators can tell which pricing policy a node quotes with.
//
//	@Summary  Estado del servicio
//	@Tags     health
//	@Produce  json
//	@Success  200  {object}  map[string]interface{}
//	@Failure  503  {object}  map[string]interface{}
//	@Router   /health [get]
func Health(db *gorm.DB, rdb *redis.Client, policyVersion string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{"policy_version": policyVersion}
		ok := true

		body["db"] = "connected"
		if err := pingDB(ctx, db); err != nil {
			body["db"] = "error"
			ok = false
		}

		body["redis"] = "connected"
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			body["redis"] = "error"
			ok = false
		} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueEmail); err == nil {
			// failed confirmations waiting for an operator; informative only
			body["email_dlq"] = n
		}

		body["ok"] = ok
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
