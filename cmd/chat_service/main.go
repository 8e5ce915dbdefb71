package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_sync_service/internal/chat/app"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/internal/chat/router"
	"chat_sync_service/pkg/config"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/logger"
	testtool "chat_sync_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	testtool.StartPprof(":6061")

	// 1. 建立 Mongo 連線 (存訊息 / 聊天室)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. 建立 Redis 連線 (Pub/Sub, presence)
	redisClient, err := connectRedis(cfg.Redis)
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.Error(err))
	}
	defer redisClient.Close()

	// 3. 建立 Kafka writer (message created 事件)
	kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: cfg.Kafka.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("kafka writer err", zap.Error(err))
	}
	defer kafkaWriter.Close()

	// 4. 初始化 Repository
	roomRepo := repository.NewMongoChatRepository(mongo.Database)
	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	pub := repository.NewRedisPubSub(redisClient)
	presence := repository.NewPresenceRepository(database.NewRedisRepository[string](redisClient), cfg.Sync.PresenceTTL)
	events := repository.NewKafkaEventPublisher(kafkaWriter)

	// 5. 初始化 UseCases
	roomUC := app.NewRoomUseCase(roomRepo, msgRepo)
	messageUC := app.NewMessageUseCase(roomRepo, msgRepo, pub, events)
	listUC := app.NewRoomListUseCase(roomRepo)

	// 6. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	wsHandler := app.NewChatWebsocketHandler(roomUC, messageUC, listUC, pub, presence, app.SessionSettings{
		WindowSize:      cfg.Sync.WindowSize,
		PageSize:        cfg.Sync.PageSize,
		PresenceRefresh: cfg.Sync.PresenceTTL / 2,
	})
	router.RegisterRoutes(r, wsHandler, app.NewRoomsHandler(listUC))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

// connectRedis standalone when an address is configured, sentinel otherwise
func connectRedis(c config.RedisConfig) (*redis.Client, error) {
	if c.Addr != "" {
		return database.NewRedisStandaloneClient(c.Addr, c.RedisDB)
	}
	masterName, sentinel := config.GetRedisSetting()
	return database.NewRedisClient(masterName, sentinel, c.RedisDB)
}
