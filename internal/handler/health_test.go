package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func novoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:health_"+uuid.NewString()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func chamarHealth(t *testing.T, db *gorm.DB, rdb *redis.Client) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", Health(db, rdb))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w.Code, body
}

func TestHealth_RelataDLQDeAuditoria(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	worker.SendToDLQ(context.Background(), rdb, worker.QueueAuditoria, worker.JobAuditoria,
		json.RawMessage(`{}`), "falhou", worker.MaxTentativas)

	status, body := chamarHealth(t, novoDB(t), rdb)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "conectado", body["redis"])
	assert.EqualValues(t, 1, body["dlq_auditoria"])
}

func TestHealth_RedisForaDevolve503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	status, body := chamarHealth(t, novoDB(t), rdb)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "erro", body["redis"])
	assert.NotContains(t, body, "dlq_auditoria")
}

func TestHealth_SemRedis(t *testing.T) {
	status, body := chamarHealth(t, novoDB(t), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "desativado", body["redis"])
	assert.Equal(t, true, body["ok"])
}
