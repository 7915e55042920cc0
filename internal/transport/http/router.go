package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esurat/backend/internal/auth"
	jwtpkg "esurat/backend/internal/auth/jwt"
	"esurat/backend/internal/config"
	"esurat/backend/internal/health"
	"esurat/backend/internal/middleware"
	"esurat/backend/internal/monitoring"
	"esurat/backend/internal/service"
	"esurat/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	LetterService *service.LetterService
	QuickService  *service.QuickActionService
	Dispatcher    *service.Dispatcher
	AuthService   *auth.Service
	JWTManager    *jwtpkg.Manager
	WebSocketHub  *websocket.Hub       // 可为 nil
	Metrics       *monitoring.Metrics  // 可为 nil
	Health        *health.HealthChecker // 可为 nil
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())

	// 全局请求体上限：PDF 上限 20MB，留出 multipart 编码余量
	router.Use(middleware.RequestSizeLimit(32 * 1024 * 1024))

	if deps.Metrics != nil {
		mon := middleware.NewMonitoringMiddleware(deps.Metrics)
		router.Use(mon.HTTPMetrics())
		router.Use(mon.BusinessMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	letterHandler := NewLetterHandler(deps.LetterService, deps.Dispatcher, deps.Logger)
	quickHandler := NewQuickHandler(deps.QuickService, deps.Logger)
	verifyHandler := NewVerifyHandler(deps.LetterService)
	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)

	// 快捷操作端点免登录，单独限流
	quickLimit := middleware.NewRateLimiter(5, 10)

	// 健康检查
	if deps.Health != nil {
		router.GET("/healthz", gin.WrapF(deps.Health.LiveHandler()))
		router.GET("/readyz", gin.WrapF(deps.Health.ReadyHandler()))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// 本地文件存储的静态访问（BaseURL 为相对路径时才有意义）
	if len(deps.Config.Storage.BaseURL) > 0 && deps.Config.Storage.BaseURL[0] == '/' {
		router.Static(deps.Config.Storage.BaseURL, deps.Config.Storage.BasePath)
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
		}

		// ========== Verify Routes（公开验证页） ==========
		v1.GET("/verify/:qrHash", verifyHandler.Verify)

		// ========== Quick Action Routes（魔法链接，免登录） ==========
		quickRoutes := v1.Group("/quick")
		quickRoutes.Use(quickLimit.Limit())
		{
			quickRoutes.GET("/:action/:token", quickHandler.Inspect)
			quickRoutes.POST("/approve", quickHandler.Approve)
			quickRoutes.POST("/reject", quickHandler.Reject)
			quickRoutes.POST("/sign", quickHandler.UploadSigned)
		}

		// ========== Letter Routes（JWT 认证） ==========
		letterRoutes := v1.Group("/letters")
		letterRoutes.Use(jwtAuth.RequireAuth())
		{
			letterRoutes.POST("", letterHandler.Create)
			letterRoutes.GET("", letterHandler.List)
			letterRoutes.GET("/:id", letterHandler.Get)
			letterRoutes.PUT("/:id/approvers", letterHandler.SetApprovers)
			letterRoutes.POST("/:id/submit", letterHandler.Submit)
			letterRoutes.POST("/:id/approve", letterHandler.Approve)
			letterRoutes.POST("/:id/reject", letterHandler.Reject)
			letterRoutes.POST("/:id/sign", letterHandler.UploadSigned)
			letterRoutes.POST("/:id/cancel", letterHandler.Cancel)
			letterRoutes.DELETE("/:id", letterHandler.Delete)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", deps.WebSocketHub.HandleConnection)
		}
	}

	return router
}
