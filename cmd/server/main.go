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

	_ "github.com/gambey/amz-saas-svr/docs" // Swagger docs
	"github.com/gambey/amz-saas-svr/internal/auth"
	jwtpkg "github.com/gambey/amz-saas-svr/internal/auth/jwt"
	"github.com/gambey/amz-saas-svr/internal/config"
	"github.com/gambey/amz-saas-svr/internal/crawler"
	"github.com/gambey/amz-saas-svr/internal/health"
	"github.com/gambey/amz-saas-svr/internal/logger"
	"github.com/gambey/amz-saas-svr/internal/mailer"
	"github.com/gambey/amz-saas-svr/internal/monitoring"
	"github.com/gambey/amz-saas-svr/internal/ratelimit"
	"github.com/gambey/amz-saas-svr/internal/security"
	"github.com/gambey/amz-saas-svr/internal/service"
	"github.com/gambey/amz-saas-svr/internal/storage"
	"github.com/gambey/amz-saas-svr/internal/storage/memory"
	redisstore "github.com/gambey/amz-saas-svr/internal/storage/redis"
	sqlstore "github.com/gambey/amz-saas-svr/internal/storage/sql"
	httptransport "github.com/gambey/amz-saas-svr/internal/transport/http"
)

// main 启动客户抓取与管理服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting amz-saas server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 存储层：配置了数据库时使用 SQL 存储，否则使用内存存储（开发环境）
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		sqlStore, err := sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		if err := sqlStore.Migrate(); err != nil {
			panic(fmt.Sprintf("failed to run migrations: %v", err))
		}
		store = sqlStore
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// Redis：启用时登录限流使用 Redis 存储，支持多实例部署
	var redisClient *redisstore.Client
	var loginLimiter ratelimit.LoginLimiter
	limiterCfg := ratelimit.Config{
		Window:   cfg.RateLimit.LoginWindow,
		MaxFails: cfg.RateLimit.LoginMax,
		BlockTTL: cfg.RateLimit.LoginBlockTTL,
	}
	if cfg.Redis.Enabled {
		redisClient, err = redisstore.New(&cfg.Redis, log)
		if err != nil {
			panic(fmt.Sprintf("failed to connect redis: %v", err))
		}
		loginLimiter = ratelimit.NewRedisLimiter(redisClient.Client(), limiterCfg)
		log.Info("login rate limiting backed by redis")
	} else {
		loginLimiter = ratelimit.NewMemoryLimiter(limiterCfg)
	}

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, redisClient, log)

	keyManager, err := security.NewKeyManager(cfg.RSA.KeyDir, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize rsa keys: %v", err))
	}

	authService := auth.NewService(store)
	if created, err := authService.EnsureDefaultAdmin(); err != nil {
		panic(fmt.Sprintf("failed to ensure default admin: %v", err))
	} else if created {
		log.Warn("默认管理员已创建，请尽快修改初始密码",
			zap.String("username", auth.DefaultAdminUsername),
		)
	}

	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	orchestrator := crawler.NewOrchestrator(&crawler.TLSDialer{
		ConnectTimeout:     cfg.Crawler.ConnectTimeout,
		CommandTimeout:     cfg.Crawler.CommandTimeout,
		InsecureSkipVerify: cfg.Crawler.InsecureSkipVerify,
		Logger:             log,
	}, nil, log)

	customerService := service.NewCustomerService(store)
	accountService := service.NewEmailAccountService(store)
	crawlService := service.NewCrawlService(
		orchestrator,
		cfg.Crawler.Folders,
		cfg.Crawler.RunTimeout,
		metrics,
		log,
	)
	schedulerService := service.NewSchedulerService(service.SchedulerConfig{
		CronExpr:    cfg.Scheduler.CronExpr,
		Timezone:    cfg.Scheduler.Timezone,
		Keyword:     cfg.Scheduler.Keyword,
		Brand:       cfg.Scheduler.Brand,
		Tag:         cfg.Scheduler.Tag,
		Remarks:     cfg.Scheduler.Remarks,
		ExtractMode: cfg.Scheduler.ExtractMode,
		DaysBack:    cfg.Scheduler.DaysBack,
		RunTimeout:  cfg.Crawler.RunTimeout,
	}, store, store, orchestrator, metrics, log)

	outboundMailer := mailer.New(log,
		mailer.WithTimeout(cfg.SMTP.Timeout),
		mailer.WithOverrides(cfg.SMTP.ServerOverrides),
	)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:              cfg,
		AuthService:         authService,
		CustomerService:     customerService,
		EmailAccountService: accountService,
		CrawlService:        crawlService,
		SchedulerService:    schedulerService,
		Mailer:              outboundMailer,
		JWTManager:          jwtManager,
		KeyManager:          keyManager,
		LoginLimiter:        loginLimiter,
		Metrics:             metrics,
		HealthChecker:       healthChecker,
		Logger:              log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// 交互式抓取最长跑满整轮截止时间
		WriteTimeout: cfg.Crawler.RunTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	if cfg.Scheduler.Enabled {
		if err := schedulerService.Start(); err != nil {
			panic(fmt.Sprintf("failed to start scheduler: %v", err))
		}
	} else {
		log.Info("scheduled crawl disabled")
	}

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if cfg.Scheduler.Enabled {
			schedulerService.Stop()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if err := store.Close(); err != nil {
			log.Error("store close error", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}
