package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetflow/realtime/internal/api"
	"github.com/fleetflow/realtime/internal/config"
	"github.com/fleetflow/realtime/internal/events"
	"github.com/fleetflow/realtime/internal/hub"
	"github.com/fleetflow/realtime/internal/logging"
	"github.com/fleetflow/realtime/internal/metrics"
	"github.com/fleetflow/realtime/internal/presence"
	"github.com/fleetflow/realtime/internal/store"
	"github.com/fleetflow/realtime/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("jwt secret is required (FLEET_JWT_SECRET)")
	}

	logger, err := logging.New(cfg.App.Development())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	var mongoClient *mongo.Client
	if cfg.Mongo.URI != "" {
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		mongoClient, err = mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err == nil {
			err = mongoClient.Ping(connectCtx, nil)
		}
		connectCancel()
		if err != nil {
			logger.Fatalw("mongo connect", "err", err)
		}
		col := mongoClient.Database(cfg.Mongo.Database).Collection("notifications")
		st, err = store.NewMongoStore(ctx, col)
		if err != nil {
			logger.Fatalw("mongo store init", "err", err)
		}
	} else {
		logger.Warn("no mongo uri configured, notifications will not survive restarts")
		st = store.NewMemoryStore()
	}

	var pres *presence.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pres = presence.New(rdb, cfg.Redis.Prefix, 2*time.Minute)
	}

	registry := hub.NewRegistry()
	notifHub := hub.New(st, registry, logger)

	wsHandler := ws.NewHandler(registry, pres, cfg.JWT.Secret, ws.Options{
		PingInterval:      cfg.PingInterval,
		WriteDeadline:     cfg.WriteDeadline,
		MaxMsgSize:        cfg.WS.MaxMessageSizeBytes,
		MessagesPerSecond: cfg.WS.MessagesPerSecond,
	}, logger)

	app := api.New(notifHub, st, wsHandler, cfg.JWT.Secret, logger)

	var consumer *events.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		consumer = events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, notifHub, logger)
		go consumer.Run(ctx)
	} else {
		logger.Warn("no kafka brokers configured, event consumer disabled")
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
			logger.Errorw("metrics server", "err", err)
		}
	}()

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infow("starting realtime service", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		logger.Fatalw("server error", "err", err)
	case s := <-sig:
		logger.Infow("signal received", "signal", s)
	}

	cancel()
	if consumer != nil {
		_ = consumer.Close()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Errorw("shutdown", "err", err)
	}
	if mongoClient != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = mongoClient.Disconnect(disconnectCtx)
		disconnectCancel()
	}
	logger.Info("shut down")
}
