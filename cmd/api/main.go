package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/api"
	"github.com/example/shop-backend/internal/auth"
	"github.com/example/shop-backend/internal/command"
	"github.com/example/shop-backend/internal/config"
	"github.com/example/shop-backend/internal/domain/cart"
	"github.com/example/shop-backend/internal/feed"
	"github.com/example/shop-backend/internal/infrastructure/kafka"
	"github.com/example/shop-backend/internal/infrastructure/store"
	"github.com/example/shop-backend/internal/query"
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

	db, err := store.ConnectPostgres(cfg.DatabaseURI)
	if err != nil {
		logger.Fatal("connecting to postgres failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("ensuring schema failed", zap.Error(err))
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	products := store.NewPostgresProductRepository(db)
	orders := store.NewPostgresOrderRepository(db)
	users := store.NewPostgresUserRepository(db)
	cartRepo := store.NewPostgresCartRepository(db)

	carts := cart.NewService(cartRepo, products, logger)
	cmdHandler := command.NewHandler(products, orders, users, carts, producer, logger)
	queryHandler := query.NewHandler(products, orders, users, carts)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	hub := feed.NewHub(logger)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID+"-feed", logger)
	defer consumer.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		carts.Run(ctx, cfg.SweepInterval)
	}()
	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, hub.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Error("feed consumer stopped", zap.Error(err))
		}
	}()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("loading aws config failed", zap.Error(err))
	}
	devices := store.NewDynamoTokenRegistry(dynamodb.NewFromConfig(awsCfg), cfg.DeviceTokensTable)

	handlers := api.NewHandlers(cmdHandler, queryHandler, carts, hub, devices, logger)
	authHandlers := api.NewAuthHandlers(users, jwtService, logger)
	router := api.NewRouter(handlers, authHandlers, jwtService, logger)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: router,
	}

	go func() {
		logger.Info("server started", zap.String("address", cfg.RunAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
}
