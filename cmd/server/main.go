// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"radvision-go/internal/config"
	"radvision-go/internal/handler"
	"radvision-go/internal/middleware"
	"radvision-go/internal/model"
	"radvision-go/internal/pipeline"
	"radvision-go/internal/repository"
	"radvision-go/internal/service"
	"radvision-go/pkg/chatrelay"
	"radvision-go/pkg/database"
	"radvision-go/pkg/diagnosis"
	"radvision-go/pkg/es"
	"radvision-go/pkg/kafka"
	"radvision-go/pkg/log"
	"radvision-go/pkg/storage"
	"radvision-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(
		&model.ChatSession{},
		&model.User{},
		&model.Patient{},
		&model.Folder{},
		&model.ReportTemplate{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 4. 初始化对象存储、ES 与 Kafka
	store, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		log.Fatalf("MinIO 初始化失败: %v", err)
	}
	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("Elasticsearch 初始化失败: %v", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)

	// 5. 初始化 Repository
	sessionRepo := repository.NewSessionRepository(database.DB)
	historyRepo := repository.NewChatHistoryRepository(database.RDB)
	userRepo := repository.NewUserRepository(database.DB)
	patientRepo := repository.NewPatientRepository(database.DB)
	folderRepo := repository.NewFolderRepository(database.DB)
	templateRepo := repository.NewTemplateRepository(database.DB)

	// 6. 初始化外部客户端与 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	diagClient := diagnosis.NewClient(cfg.Diagnosis)
	relayClient := chatrelay.NewClient(cfg.ChatRelay)

	analysisService := service.NewAnalysisService(diagClient, store, sessionRepo, producer)
	sessionService := service.NewSessionService(sessionRepo, store, historyRepo)
	chatService := service.NewChatService(relayClient, cfg.ChatRelay, sessionRepo, historyRepo)
	searchService := service.NewSearchService(esClient)
	userService := service.NewUserService(userRepo, jwtManager)
	patientService := service.NewPatientService(patientRepo)
	folderService := service.NewFolderService(folderRepo, patientRepo)
	templateService := service.NewTemplateService(templateRepo)

	// 7. 启动后台 Kafka 消费者，将新建会话索引到 ES
	indexer := pipeline.NewIndexer(sessionRepo, esClient)
	go kafka.StartConsumer(cfg.Kafka, database.RDB, indexer)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewUserHandler(userService).Refresh)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", handler.NewUserHandler(userService).Register)
			users.POST("/login", handler.NewUserHandler(userService).Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", handler.NewUserHandler(userService).Profile)
			}
		}

		// Session 路由组：核心分析流水线与会话管理，需要认证
		sessions := apiV1.Group("/sessions")
		sessions.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			sessions.POST("/analyze", handler.NewAnalysisHandler(analysisService).Analyze)
			sessions.GET("", handler.NewSessionHandler(sessionService).List)
			sessions.GET("/:id", handler.NewSessionHandler(sessionService).Get)
			sessions.PUT("/:id/title", handler.NewSessionHandler(sessionService).Rename)
			sessions.DELETE("/:id", handler.NewSessionHandler(sessionService).Delete)
			sessions.GET("/:id/image-url", handler.NewSessionHandler(sessionService).ImageURL)
		}

		// Search 路由组
		search := apiV1.Group("/search")
		search.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			search.GET("/sessions", handler.NewSearchHandler(searchService).Search)
		}

		// Patient 路由组，需要认证
		patients := apiV1.Group("/patients")
		patients.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			patients.POST("", handler.NewPatientHandler(patientService).Create)
			patients.GET("", handler.NewPatientHandler(patientService).List)
			patients.GET("/:id", handler.NewPatientHandler(patientService).Get)
			patients.PUT("/:id", handler.NewPatientHandler(patientService).Update)
			patients.DELETE("/:id", handler.NewPatientHandler(patientService).Delete)
		}

		// Folder 路由组，需要认证
		folders := apiV1.Group("/folders")
		folders.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			folders.POST("", handler.NewFolderHandler(folderService).Create)
			folders.GET("", handler.NewFolderHandler(folderService).List)
			folders.PUT("/:id", handler.NewFolderHandler(folderService).Rename)
			folders.DELETE("/:id", handler.NewFolderHandler(folderService).Delete)
		}

		// ReportTemplate 路由组，需要认证
		templates := apiV1.Group("/templates")
		templates.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			templates.POST("", handler.NewTemplateHandler(templateService).Create)
			templates.GET("", handler.NewTemplateHandler(templateService).List)
			templates.GET("/:id", handler.NewTemplateHandler(templateService).Get)
			templates.PUT("/:id", handler.NewTemplateHandler(templateService).Update)
			templates.DELETE("/:id", handler.NewTemplateHandler(templateService).Delete)
		}
	}

	// Chat 路由 (WebSocket)，token 通过查询参数传入
	r.GET("/chat/:sessionId", handler.NewChatHandler(chatService, jwtManager).Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
