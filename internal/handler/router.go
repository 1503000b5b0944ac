package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BeygonK/Health-Information-System/internal/auth"
	"github.com/BeygonK/Health-Information-System/internal/middleware"
	"github.com/BeygonK/Health-Information-System/internal/service"
	"github.com/BeygonK/Health-Information-System/pkg/logger"
	corsmiddleware "github.com/BeygonK/Health-Information-System/pkg/middleware/cors"
	reqidmiddleware "github.com/BeygonK/Health-Information-System/pkg/middleware/requestid"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Programs       *ProgramHandler
	Clients        *ClientHandler
	Ops            *MetricsHandler
	Verifier       auth.Verifier
	Metrics        *service.MetricsService
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter wires middleware and routes. Operational endpoints sit outside
// the authenticated group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/health", cfg.Ops.Health)
	r.GET("/ready", cfg.Ops.Ready)
	r.GET("/metrics", cfg.Ops.Prometheus)

	api := r.Group("/", middleware.BearerAuth(cfg.Verifier), middleware.CacheControl())
	{
		api.POST("/programs", cfg.Programs.Create)
		api.GET("/programs", cfg.Programs.List)

		api.POST("/clients", cfg.Clients.Register)
		api.GET("/clients/search", cfg.Clients.Search)
		api.GET("/clients/:client_id", cfg.Clients.Profile)
		api.POST("/clients/:client_id/enroll", cfg.Clients.Enroll)
	}

	return r
}
