package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/auth"
	jwtpkg "github.com/gambey/amz-saas-svr/internal/auth/jwt"
	"github.com/gambey/amz-saas-svr/internal/config"
	"github.com/gambey/amz-saas-svr/internal/health"
	"github.com/gambey/amz-saas-svr/internal/mailer"
	"github.com/gambey/amz-saas-svr/internal/middleware"
	"github.com/gambey/amz-saas-svr/internal/monitoring"
	"github.com/gambey/amz-saas-svr/internal/ratelimit"
	"github.com/gambey/amz-saas-svr/internal/security"
	"github.com/gambey/amz-saas-svr/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config              *config.Config
	AuthService         *auth.Service
	CustomerService     *service.CustomerService
	EmailAccountService *service.EmailAccountService
	CrawlService        *service.CrawlService
	SchedulerService    *service.SchedulerService
	Mailer              *mailer.Mailer
	JWTManager          *jwtpkg.Manager
	KeyManager          *security.KeyManager
	LoginLimiter        ratelimit.LoginLimiter
	Metrics             *monitoring.Metrics
	HealthChecker       *health.HealthChecker
	Logger              *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Monitoring(deps.Metrics))
	router.Use(middleware.RequestSizeLimit(2 * 1024 * 1024))

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许任意来源时按 CORS 规范禁用凭证
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager, deps.KeyManager, deps.Logger)
	customerHandler := NewCustomerHandler(deps.CustomerService, deps.Logger)
	accountHandler := NewEmailAccountHandler(deps.EmailAccountService, deps.Logger)
	crawlerHandler := NewCrawlerHandler(deps.CrawlService, deps.SchedulerService, deps.Logger)
	mailHandler := NewMailHandler(deps.Mailer, deps.Metrics, deps.Logger)

	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)

	// 运维端点
	router.GET("/healthz", gin.WrapF(deps.HealthChecker.LiveHandler()))
	router.GET("/readyz", gin.WrapF(deps.HealthChecker.ReadyHandler()))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login",
			middleware.DecryptPassword(deps.KeyManager, deps.Logger, "password"),
			middleware.LoginRateLimit(deps.LoginLimiter, deps.Metrics, deps.Logger),
			authHandler.Login,
		)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.GET("/public-key", authHandler.PublicKey)

		authGroup.GET("/profile", jwtAuth.RequireAuth(), authHandler.Profile)
		authGroup.POST("/change-password",
			jwtAuth.RequireAuth(),
			middleware.DecryptPassword(deps.KeyManager, deps.Logger, "oldPassword", "newPassword"),
			authHandler.ChangePassword,
		)
	}

	customers := api.Group("/customers", jwtAuth.RequireAuth())
	{
		customers.GET("", customerHandler.List)
		customers.POST("", customerHandler.Create)
		customers.PUT("/:id", customerHandler.Update)
		customers.DELETE("/:id", customerHandler.Delete)
		customers.POST("/batch", customerHandler.BatchUpsert)
	}

	accounts := api.Group("/email-accounts", jwtAuth.RequireAuth())
	{
		accounts.GET("", accountHandler.List)
		accounts.POST("", middleware.RequireSuperAdmin(), accountHandler.Create)
		accounts.PUT("/:id", middleware.RequireSuperAdmin(), accountHandler.UpdateAuthCode)
		accounts.DELETE("/:id", middleware.RequireSuperAdmin(), accountHandler.Delete)
	}

	emailCrawler := api.Group("/email-crawler", jwtAuth.RequireAuth())
	{
		emailCrawler.POST("/search", crawlerHandler.Search)
		emailCrawler.POST("/run", middleware.RequireSuperAdmin(), crawlerHandler.Run)
		emailCrawler.GET("/status", crawlerHandler.Status)
	}

	email := api.Group("/email", jwtAuth.RequireAuth())
	{
		email.POST("/send", mailHandler.Send)
	}

	return router
}
