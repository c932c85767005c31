package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"im-social/internal/auth"
	"im-social/internal/config"
	"im-social/internal/handlers/apiserver"
	"im-social/internal/imtypes"
	appKafka "im-social/internal/kafka"
	kafkahandlers "im-social/internal/kafka/handlers"
	"im-social/internal/logger"
	"im-social/internal/middleware"
	appRedis "im-social/internal/redis"
	"im-social/internal/services"
	"im-social/internal/session"
	"im-social/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认在 ./config 和当前目录查找 config.yaml")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer logger.Sync(zlog)
	zlog = zlog.With(zap.String("app", cfg.AppName), zap.String("version", cfg.AppVersion))

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("API 服务器异常退出", zap.Error(err))
	}
}

func run(cfg config.Config, zlog *zap.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database, zlog)
	if err != nil {
		return fmt.Errorf("无法初始化数据库: %w", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		return fmt.Errorf("数据库表迁移失败: %w", err)
	}
	zlog.Info("数据库连接成功", zap.String("type", cfg.Database.Type))

	// 3. Token 黑名单：启用 Redis 时跨实例共享
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := appRedis.NewClient(rootCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("无法连接到 Redis: %w", err)
		}
		defer redisClient.Close()
		blacklist = appRedis.NewRedisTokenBlacklist(redisClient)
		zlog.Info("成功连接到 Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		blacklist = auth.NewMemoryBlacklist()
		zlog.Warn("Redis 未启用，Token 黑名单仅在本进程内有效")
	}

	// 4. 初始化 Repositories
	userRepo := storage.NewGormUserRepository(db)
	friendRepo := storage.NewGormFriendRelationRepository(db)
	groupRepo := storage.NewGormGroupRepository(db)
	msgRepo := storage.NewGormMessageRepository(db)

	// 5. Kafka：关系事件发布者
	var publisher imtypes.RelationEventPublisher
	if cfg.Kafka.Enabled {
		producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka, zlog)
		if err != nil {
			return fmt.Errorf("无法创建 Kafka 生产者: %w", err)
		}
		defer producer.Close()
		relationPublisher := appKafka.NewRelationEventPublisher(producer, cfg.Kafka.RelationEventsTopic, zlog)
		// 先于 producer.Close 执行，保证队列中的事件被发出
		defer relationPublisher.Close()
		publisher = relationPublisher
		zlog.Info("Kafka 生产者初始化成功", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// 6. 初始化 Services
	friendService := services.NewFriendService(userRepo, friendRepo, publisher, zlog)
	groupService := services.NewGroupService(db, groupRepo, userRepo, publisher, zlog)
	authService := services.NewAuthService(userRepo, blacklist, cfg.Auth, zlog)
	userService := services.NewUserService(userRepo, friendRepo, msgRepo, groupService, zlog)
	messageService := services.NewMessageService(msgRepo, friendService, groupService, zlog)

	// 7. 会话与定时刷新
	sessions := session.NewManager(friendService, groupService, cfg.Refresh, zlog)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions.Run(rootCtx, cfg.Refresh.Interval)
	}()

	// 8. Kafka 消费者：其他实例上的关系变更触发本地会话刷新
	if cfg.Kafka.Enabled {
		consumer := appKafka.NewConfluentKafkaConsumer(cfg.Kafka, zlog)
		defer consumer.Close()
		eventLogic := kafkahandlers.NewRelationEventConsumerLogic(sessions, zlog)

		wg.Add(1)
		go func() {
			defer wg.Done()
			topics := []string{cfg.Kafka.RelationEventsTopic}
			zlog.Info("Kafka 关系事件消费者启动",
				zap.Strings("topics", topics), zap.String("group", cfg.Kafka.ConsumerGroup))
			err := consumer.Consume(rootCtx, topics, cfg.Kafka.ConsumerGroup, eventLogic.HandleRelationEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error("Kafka 关系事件消费者错误", zap.Error(err))
			}
		}()
	}

	// 9. 初始化 Handlers 和路由
	limiter := middleware.NewRateLimiter(rootCtx, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	router := apiserver.NewRouter(apiserver.Handlers{
		Auth:         apiserver.NewAuthHandler(authService, sessions, zlog),
		User:         apiserver.NewUserHandler(userService, authService, sessions, zlog),
		Relationship: apiserver.NewRelationshipHandler(friendService, sessions, zlog),
		Group:        apiserver.NewGroupHandler(groupService, sessions, zlog),
		Message:      apiserver.NewMessageHandler(messageService, zlog),
		View:         apiserver.NewViewHandler(sessions, zlog),
	}, middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, blacklist), limiter.Middleware)

	// 定义 CORS 选项，从配置中读取
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	httpLog := zap.NewStdLog(zlog.Named("http"))
	handler := handlers.RecoveryHandler(handlers.RecoveryLogger(httpLog))(handlers.CORS(corsOptions...)(router))

	// 10. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.APIServer.ReadTimeout,
		WriteTimeout: cfg.APIServer.WriteTimeout,
		IdleTimeout:  cfg.APIServer.IdleTimeout,
		ErrorLog:     httpLog,
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("API 服务器启动", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("API 服务器启动失败: %w", err)
	case <-rootCtx.Done():
	}
	zlog.Info("收到关闭信号，正在关闭 API 服务器...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.APIServer.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("API 服务器强制关闭: %w", err)
	}

	// 等待刷新循环和 Kafka 消费者退出
	wg.Wait()
	zlog.Info("API 服务器已成功关闭")
	return nil
}
