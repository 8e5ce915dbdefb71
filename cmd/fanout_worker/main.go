package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_sync_service/internal/chat/app"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/config"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/push"
	testtool "chat_sync_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const ledgerTTL = 24 * time.Hour

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.FanoutWorker, config.EnvConfig.FanoutWorkerLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Fanout](config.EnvConfig.FanoutWorker, config.EnvConfig.FanoutWorkerYAMLPath)
	testtool.StartPprof(":6062")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Mongo
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal("Unable to connect to mongoDB database after retries", zap.Error(err))
	}
	defer mongo.Close(context.Background())

	// 2. Redis
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = database.NewRedisStandaloneClient(cfg.Redis.Addr, cfg.Redis.RedisDB)
	} else {
		masterName, sentinel := config.GetRedisSetting()
		redisClient, err = database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	}
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.Error(err))
	}
	defer redisClient.Close()

	// 3. Push gateway, inline or through RabbitMQ
	gateway := push.NewGateway(push.Settings{
		Endpoint:      cfg.Push.Endpoint,
		AccessToken:   cfg.Push.AccessToken,
		Timeout:       time.Duration(cfg.Push.TimeoutSec) * time.Second,
		MaxFailures:   cfg.Push.MaxFailures,
		OpenTimeout:   time.Duration(cfg.Push.OpenSec) * time.Second,
		RatePerSecond: cfg.Push.RatePerSecond,
		Burst:         cfg.Push.Burst,
	})
	var notifier app.Notifier = app.NewGatewayNotifier(gateway)

	if cfg.RabbitMQ.Host != "" {
		rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    rabbitURL,
			RetryCount:    cfg.RabbitMQ.RetryCount,
			RetryInterval: cfg.RabbitMQ.RetryInterval,
		})
		if err != nil {
			logger.Log.Fatal("connect rabbitmq err", zap.Error(err))
		}
		defer conn.Close()

		ch := openPushChannel(conn, cfg.RabbitMQ)
		defer ch.Close()
		consumerCh := openPushChannel(conn, cfg.RabbitMQ)
		defer consumerCh.Close()

		queue := repository.NewRabbitPushQueue(database.NewRabbitRepository(ch), cfg.RabbitMQ.Queue)
		go func() {
			pc := app.NewPushConsumer(consumerCh, notifier, cfg.RabbitMQ.Queue, cfg.RabbitMQ.RetryInterval*time.Second)
			if err := pc.StartConsumer(ctx); err != nil {
				logger.Log.Error("push consumer", zap.Error(err))
			}
		}()
		notifier = app.NewQueueNotifier(queue)
	}

	// 4. Fan-out
	service := app.NewRoomFanoutService(
		repository.NewMongoChatRepository(mongo.Database),
		repository.NewMongoUserRepository(mongo.Database),
		repository.NewPresenceRepository(database.NewRedisRepository[string](redisClient), 0),
		repository.NewRedisFanoutLedger(database.NewRedisRepository[int64](redisClient), ledgerTTL),
		repository.NewRedisPubSub(redisClient),
		notifier,
		app.FanoutSettings{
			DeepLinkBase: cfg.Push.DeepLinkBase,
			BodyLimit:    cfg.Push.BodyLimit,
		},
	)

	reader := database.NewKafkaReader(database.KafkaConnection{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer reader.Close()

	consumer := app.NewFanoutConsumer(reader, service, cfg.Kafka.RetryCount, cfg.Kafka.RetryInterval*time.Second)
	if err := consumer.StartConsumer(ctx); err != nil {
		logger.Log.Error("fanout consumer", zap.Error(err))
		os.Exit(1)
	}
}

// openPushChannel channel with the push queue declared durable
func openPushChannel(conn *amqp.Connection, c config.RabbitMQConfig) *amqp.Channel {
	ch, err := database.GetRabbitMQChannelWithRetry(conn, c.RetryCount, c.RetryInterval)
	if err != nil {
		logger.Log.Fatal("rabbitmq channel err", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		logger.Log.Fatal("declare push queue", zap.String("queue", c.Queue), zap.Error(err))
	}
	return ch
}
