package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/novastar-ctl/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
	"github.com/taoyao-code/novastar-ctl/internal/metrics"
)

// RegisterControlRoutes 注册控制API路由
func RegisterControlRoutes(
	r *gin.Engine,
	handler *ControlHandler,
	authCfg cfgpkg.AuthConfig,
	m *metrics.AppMetrics,
	logger *zap.Logger,
) {
	if r == nil || handler == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := r.Group("/api/v1")
	api.Use(requestID(), requestMetrics(m))
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api.POST("/brightness", handler.SetBrightness)
	api.POST("/pattern", handler.ShowPattern)
	api.GET("/patterns", handler.ListPatterns)
	api.GET("/state", handler.GetState)
	api.GET("/commands", handler.ListCommands)

	logger.Info("control routes registered", zap.Int("endpoints", 5))
}

// requestID 为每个请求分配追踪ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestMetrics 按路由与状态码计数
func requestMetrics(m *metrics.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
