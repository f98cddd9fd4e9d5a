package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health checks DB and Redis connectivity. Redis is optional: a nil client
// reports "desativado" and does not fail the check. With Redis up it also
// reports how many audit jobs wait in the DLQ.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "conectado"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "erro"
		}

		redisStatus := "desativado"
		var dlq *int64
		if rdb != nil {
			redisStatus = "conectado"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "erro"
			} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueAuditoria); err == nil {
				dlq = &n
			}
		}

		status := http.StatusOK
		if dbStatus == "erro" || redisStatus == "erro" {
			status = http.StatusServiceUnavailable
		}
		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if dlq != nil {
			body["dlq_auditoria"] = *dlq
		}
		c.JSON(status, body)
	}
}
