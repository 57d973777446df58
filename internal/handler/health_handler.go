package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/yourusername/photodrop-api/internal/config"
)

// HealthHandler отвечает на GET /health. Ответ сообщает, НАСТРОЕНЫ ли
// внешние сервисы (булевы признаки присутствия), но никогда не раскрывает
// сами значения секретов.
type HealthHandler struct {
	cfg         *config.Config
	sqlDB       *sql.DB
	redisClient redis.UniversalClient
}

func NewHealthHandler(cfg *config.Config, sqlDB *sql.DB, redisClient redis.UniversalClient) *HealthHandler {
	return &HealthHandler{
		cfg:         cfg,
		sqlDB:       sqlDB,
		redisClient: redisClient,
	}
}

func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbOK := false
	if h.sqlDB != nil {
		dbOK = h.sqlDB.PingContext(ctx) == nil
	}

	redisOK := false
	if h.redisClient != nil {
		redisOK = h.redisClient.Ping(ctx).Err() == nil
	}

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   map[bool]string{true: "ok", false: "degraded"}[dbOK],
		"database": dbOK,
		"redis":    redisOK,
		"configured": gin.H{
			"storage":      h.cfg.Storage.StorageConfigured(),
			"email":        h.cfg.Email.ResendAPIKey != "",
			"google_login": h.cfg.Google.ClientID != "",
			"token_secret": h.cfg.Token.Secret != "",
		},
	})
}
