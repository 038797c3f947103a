package main

import (
	"context"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/config"
	"github.com/example/shop-backend/internal/infrastructure/kafka"
	"github.com/example/shop-backend/internal/infrastructure/store"
	"github.com/example/shop-backend/internal/notification"
	"github.com/example/shop-backend/internal/push"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Parse()
	if err != nil {
		logger.Fatal("parsing configuration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("loading aws config failed", zap.Error(err))
	}

	registry := store.NewDynamoTokenRegistry(dynamodb.NewFromConfig(awsCfg), cfg.DeviceTokensTable)
	sender := push.NewClient(cfg.PushURL, cfg.PushAPIKey)
	dispatcher := notification.NewDispatcher(registry, sender, logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID+"-notifier", logger)
	defer consumer.Close()

	logger.Info("notifier started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("tokens_table", cfg.DeviceTokensTable))

	if err := consumer.Consume(ctx, dispatcher.HandleEvent); err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", zap.Error(err))
	}

	logger.Info("shutting down")
}
