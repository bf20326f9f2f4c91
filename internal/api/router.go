package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/orion/internal/api/middleware"
	"github.com/liliang-cn/orion/internal/api/workspace"
	"github.com/liliang-cn/orion/internal/service"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
	Logger       *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(workspaceService *service.WorkspaceService, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDs())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Workspace API (API key optional)
	workspaceHandler := workspace.NewHandler(workspaceService)
	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.Auth(cfg.APIKey))
	workspaceHandler.RegisterRoutes(apiGroup)

	return r
}
