package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pengpeng/config"
	"pengpeng/internal/handler"
	"pengpeng/internal/middleware"
	"pengpeng/internal/repository"
	"pengpeng/internal/service"
	"pengpeng/pkg/jwt"
	"pengpeng/pkg/logger"
	"pengpeng/pkg/mapsearch"
	"pengpeng/pkg/mirror"
	"pengpeng/pkg/mongodb"
	"pengpeng/pkg/push"
	redisPkg "pengpeng/pkg/redis"
	"pengpeng/pkg/response"
	"pengpeng/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== 碰碰服务启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("mongo_database", cfg.Mongo.Database),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.Bool("push_enabled", cfg.Push.Enabled),
		zap.Bool("mirror_enabled", cfg.Mirror.Enabled),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化MongoDB
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelInit()
	db, err := mongodb.InitMongo(initCtx, cfg.Mongo)
	if err != nil {
		log.Fatal("MongoDB连接失败", zap.Error(err))
	}
	defer func() {
		if err := mongodb.Close(context.Background()); err != nil {
			log.Error("关闭MongoDB连接失败", zap.Error(err))
		}
	}()
	if err := mongodb.EnsureIndexes(initCtx); err != nil {
		log.Fatal("创建索引失败", zap.Error(err))
	}
	log.Info("MongoDB连接成功")

	// 3.1 初始化Redis（在线状态）
	if err := redisPkg.InitRedis(cfg.Redis); err != nil {
		log.Fatal("Redis连接失败", zap.Error(err))
	}
	defer func() {
		if err := redisPkg.Close(); err != nil {
			log.Error("关闭Redis连接失败", zap.Error(err))
		}
	}()
	log.Info("Redis连接成功")

	// 3.2 初始化外部协作方
	notifier, err := push.NewNotifier(cfg.Push)
	if err != nil {
		log.Fatal("初始化APNs推送失败", zap.Error(err))
	}
	collab := service.Collaborators{
		Presence: redisPkg.Checker{},
		Pusher:   notifier,
		Mirror:   mirror.NewClient(cfg.Mirror),
	}
	mapClient := mapsearch.NewClient(cfg.Map)

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		log.Fatal("创建上传目录失败", zap.Error(err))
	}

	// 3.3 组装业务服务
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	userRepo := repository.NewUserRepository(db)
	meetRepo := repository.NewMeetRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	userSvc := service.NewUserService(userRepo, jwtSvc)
	friendSvc := service.NewFriendService(friendRepo, userRepo, collab)
	meetSvc := service.NewMeetService(meetRepo, userRepo, friendSvc, collab)
	messageSvc := service.NewMessageService(messageRepo, collab)

	userHandler := handler.NewUserHandler(userSvc, cfg.Upload.Dir)
	meetHandler := handler.NewMeetHandler(meetSvc)
	friendHandler := handler.NewFriendHandler(friendSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	mapHandler := handler.NewMapHandler(mapClient)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()

	// 注入jwt_config到Gin context，供WebSocket使用
	router.Use(func(c *gin.Context) {
		c.Set("jwt_config", cfg.JWT)
		c.Next()
	})

	router.Use(logger.LoggerMiddleware())
	router.Use(logger.ErrorLoggerMiddleware())

	// 6. 基础路由
	setupBasicRoutes(router)

	// 6.1 业务路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的接口：JWT验证后装载当前用户
			auth := users.Group("")
			auth.Use(jwtSvc.AuthMiddleware())
			auth.Use(middleware.CurrentUser(userSvc))
			{
				auth.POST("/updateLocation", userHandler.UpdateLocation)
				auth.POST("/getLastLocation", userHandler.GetLastLocation)
				auth.POST("/sendMeetCheck", userHandler.SendMeetCheck)
				auth.POST("/selectFake", userHandler.SelectFake)
				auth.POST("/updateSpecialInfo", userHandler.UpdateSpecialInfo)
				auth.POST("/getSpecialInfo", userHandler.GetSpecialInfo)
				auth.POST("/uploadSpecialPic", userHandler.UploadSpecialPic)
				auth.POST("/updateDeviceToken", userHandler.UpdateDeviceToken)

				auth.POST("/createMeetSearchTarget", meetHandler.CreateMeetSearchTarget)
				auth.POST("/confirmMeetSearchTarget", meetHandler.ConfirmMeetSearchTarget)
				auth.POST("/createMeetNo", meetHandler.CreateMeetNo)
				auth.POST("/createMeetClickTarget", meetHandler.CreateMeetClickTarget)
				auth.POST("/confirmMeetClickTarget", meetHandler.ConfirmMeetClickTarget)
				auth.POST("/replyMeetSearchTarget", meetHandler.ReplyMeetSearchTarget)
				auth.POST("/replyMeetClickTarget", meetHandler.ReplyMeetClickTarget)
				auth.POST("/readMeet", meetHandler.ReadMeet)

				auth.POST("/getFriends", friendHandler.GetFriends)
				auth.POST("/sendMsg", messageHandler.SendMsg)
				auth.POST("/getMsg", messageHandler.GetMsg)
				auth.POST("/readMsg", messageHandler.ReadMsg)

				auth.POST("/searchLoc", mapHandler.SearchLoc)
			}
		}
	}

	// WebSocket在线心跳
	router.GET("/ws", websocket.WsHandler)

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine) {
	// 健康检查
	// 完整url为：http://localhost:8080/health
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := mongodb.HealthCheck(ctx); err != nil {
			status = "mongo-down"
		} else if err := redisPkg.HealthCheck(); err != nil {
			status = "redis-down"
		}
		response.Success(c, gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "碰碰服务运行中",
			"version": "1.0.0",
		})
	})
}
