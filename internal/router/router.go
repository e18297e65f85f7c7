package router

import (
	"biostats-go/internal/config"
	"biostats-go/internal/handler"
	"biostats-go/internal/metrics"
	"biostats-go/internal/middleware"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"
	"biostats-go/internal/service"
	"biostats-go/internal/utils"
	"biostats-go/pkg/hub_client"
	"biostats-go/pkg/redis_limiter"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// limiterKeyPrefix 并发槽位在Redis中的键前缀
const limiterKeyPrefix = "biostats:limiter:"

// SetupRouter 设置路由
// registry 为 nil 时指标注册到默认注册表
func SetupRouter(
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	logger *logrus.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	registry *prometheus.Registry,
) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.RegisterGinValidators()

	var collector *metrics.Collector
	if registry != nil {
		collector = metrics.NewCollectorWithRegistry("biostats", registry)
	} else {
		collector = metrics.NewCollector("biostats")
	}

	r := gin.New()

	// 全局中间件
	r.Use(middleware.LoggerMiddleware(logger, collector))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg))

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "BigBio 数据集统计 API",
			"version": "1.0.0",
		})
	})

	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// 初始化Repository
	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	// 初始化基础设施
	limiter := redis_limiter.NewRedisLimiter(
		redisClient,
		cfg.Dashboard.MaxConcurrentFetches,
		limiterKeyPrefix,
		cfg.Dashboard.GetFetchTimeout(),
		logger,
	)
	var hubClient *hub_client.HubClient
	if cfg.Hub.BaseURL != "" {
		hubClient = hub_client.NewHubClient(cfg.Hub.BaseURL, cfg.Hub.Token, cfg.Hub.GetTimeout())
	}
	sessions := service.NewSessionStore(redisClient, cfg.Dashboard.GetSessionTTL())
	progress := service.NewProgressStore(redisClient, cfg.Dashboard.GetProgressTTL())

	// 初始化Service
	authService := service.NewAuthService(userRepo, jwtManager, cfg.Admin, logger)
	catalogService := service.NewCatalogService(catalogRepo, cfg.Catalog, collector, logger)
	if err := catalogService.Refresh(); err != nil {
		logger.WithError(err).Warn("读取数据集目录失败")
	}
	datasetService := service.NewDatasetService(catalogService, recordRepo, collector, logger)
	hubService := service.NewHubService(hubClient, catalogService, datasetService, limiter, logger)
	dashboardService := service.NewDashboardService(catalogService, datasetService, sessions, progress, limiter, collector, cfg, logger)

	// 初始化Handler
	authHandler := handler.NewAuthHandler(authService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)
	adminHandler := handler.NewAdminHandler(userRepo, catalogService, datasetService, hubService)
	ingestHandler := handler.NewIngestHandler(datasetService)

	// API路由组
	api := r.Group("/api")
	{
		// 公开路由
		api.POST("/login", authHandler.Login)

		// 数据集目录
		api.GET("/datasets", catalogHandler.ListDatasets)
		api.GET("/datasets/:name", catalogHandler.GetDataset)
		api.GET("/datasets/:name/configs", catalogHandler.ListConfigs)

		// 统计面板，按会话保存选择
		dashboard := api.Group("/dashboard")
		dashboard.Use(middleware.Session())
		{
			dashboard.GET("", dashboardHandler.View)
			dashboard.POST("/select", dashboardHandler.Select)
			dashboard.POST("/fetch", dashboardHandler.Fetch)
			dashboard.GET("/labels", dashboardHandler.Labels)
			dashboard.GET("/progress", dashboardHandler.Progress)
			dashboard.GET("/token_lengths.csv", dashboardHandler.ExportTokenLengths)
			dashboard.GET("/token_lengths.jsonl", dashboardHandler.ExportTokenLengthsJSONL)
		}

		// 外部系统推送记录（API密钥认证）
		api.POST("/ingest/records", middleware.IngestAPIAuth(cfg.Ingest.APIKey), ingestHandler.IngestRecords)

		// 认证路由
		authorized := api.Group("")
		authorized.Use(middleware.AuthMiddleware(jwtManager))
		{
			authorized.GET("/me", authHandler.GetMe)

			// 目录维护
			maintain := authorized.Group("/admin")
			maintain.Use(middleware.RequireRole(models.RoleAdmin, models.RoleEditor))
			{
				maintain.POST("/catalog/import", adminHandler.ImportCatalog)
				maintain.POST("/datasets/:name/configs/:config/splits/:split", adminHandler.UploadSplit)
				maintain.POST("/hub/import", adminHandler.HubImport)
			}

			// 管理员接口
			adminGroup := authorized.Group("/admin")
			adminGroup.Use(middleware.RequireRole(models.RoleAdmin))
			{
				adminGroup.GET("/users", adminHandler.ListUsers)
				adminGroup.POST("/users", authHandler.CreateUser)
				adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
				adminGroup.DELETE("/datasets/:name", adminHandler.DeleteDataset)
			}
		}
	}

	return r
}
