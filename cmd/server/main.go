package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"esurat/backend/internal/auth"
	jwtpkg "esurat/backend/internal/auth/jwt"
	"esurat/backend/internal/config"
	"esurat/backend/internal/filestore"
	"esurat/backend/internal/health"
	"esurat/backend/internal/logger"
	"esurat/backend/internal/monitoring"
	"esurat/backend/internal/notify"
	"esurat/backend/internal/pool"
	"esurat/backend/internal/service"
	"esurat/backend/internal/stamp"
	"esurat/backend/internal/storage"
	"esurat/backend/internal/storage/memory"
	redisstore "esurat/backend/internal/storage/redis"
	sqlstore "esurat/backend/internal/storage/sql"
	httptransport "esurat/backend/internal/transport/http"
	"esurat/backend/internal/websocket"
)

// main 启动公文流程 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting esurat server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// Redis（OTP 尝试限流），未配置时关闭
	var attempts storage.AttemptLimitRepository
	var redisClient *redisstore.Client
	if cfg.Redis.Address != "" {
		redisClient, err = redisstore.New(redisstore.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn("failed to connect redis, otp attempt limiting disabled", zap.Error(err))
		} else {
			attempts = redisClient
			defer redisClient.Close()
			log.Info("redis connected", zap.String("address", cfg.Redis.Address))
		}
	}

	// 文件存储
	files, err := filestore.NewLocalStore(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize file storage: %v", err))
	}

	// 监控指标
	metrics := monitoring.NewMetrics()

	// 盖章服务
	var stamper stamp.Stamper = stamp.NewHTTPStamper(cfg.Letter.StampServiceURL, cfg.Letter.StampTimeout)
	stamper = stamp.NewMeteredStamper(stamper, metrics)
	stamps := stamp.NewCoordinator(stamper, files, cfg.Letter.VerifyBaseURL, log)

	// WhatsApp 网关，未配置时降级为日志发送
	var sender notify.Sender
	if cfg.WhatsApp.GatewayURL != "" {
		sender = notify.NewWhatsAppClient(cfg.WhatsApp.GatewayURL, cfg.WhatsApp.APIKey, cfg.WhatsApp.Timeout, log)
	} else {
		sender = notify.NewLogSender(log)
	}
	sender = notify.NewMeteredSender(sender, metrics)

	// 健康检查
	var redisPinger health.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	healthChecker := health.NewHealthChecker(store, redisPinger, log)

	// WebSocket Hub
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, log)

	// 通知分发协程池
	workers := pool.NewWorkerPool(4, 256, log)

	// 服务层
	linkService := service.NewMagicLinkService(store, sender, cfg, metrics, log)
	letterService := service.NewLetterService(store, files, stamps, log)
	dispatcher := service.NewDispatcher(store, linkService, sender, wsHub, workers, log)
	quickService := service.NewQuickActionService(letterService, linkService, dispatcher, attempts, log)

	// 认证
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authService := auth.NewService(store, jwtManager)

	// HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		LetterService: letterService,
		QuickService:  quickService,
		Dispatcher:    dispatcher,
		AuthService:   authService,
		JWTManager:    jwtManager,
		WebSocketHub:  wsHub,
		Metrics:       metrics,
		Health:        healthChecker,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// 通知分发协程池
	workers.Start(groupCtx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 定时清理过期魔法链接 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Info("starting expired magic link cleanup task", zap.Duration("interval", 1*time.Hour))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("cleanup task stopped")
				return nil
			case <-ticker.C:
				count, err := linkService.PurgeExpired()
				if err != nil {
					log.Error("failed to purge expired magic links", zap.Error(err))
				} else if count > 0 {
					metrics.RecordLinksPurged(count)
					log.Info("expired magic links purged", zap.Int("count", count))
				}
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		workers.Stop()
		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
