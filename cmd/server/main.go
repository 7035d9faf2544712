package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Pin3appl3ishan/iLike-web/internal/api"
	"github.com/Pin3appl3ishan/iLike-web/internal/auth"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
	"github.com/Pin3appl3ishan/iLike-web/internal/config"
	"github.com/Pin3appl3ishan/iLike-web/internal/directory"
	"github.com/Pin3appl3ishan/iLike-web/internal/events"
	"github.com/Pin3appl3ishan/iLike-web/internal/logger"
	"github.com/Pin3appl3ishan/iLike-web/internal/presence"
	"github.com/Pin3appl3ishan/iLike-web/internal/repository"
	"github.com/Pin3appl3ishan/iLike-web/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	zlog, err := logger.New(cfg.Development())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	mc, err := repository.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo connect", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		zlog.Fatalw("mongo indexes", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		zlog.Fatalw("redis ping", "err", err)
	}
	cancelPing()

	var sink chat.EventSink
	var pub *events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer pub.Close()
		sink = pub
	} else {
		zlog.Warnw("kafka brokers not configured, domain events disabled")
	}

	verifier, err := auth.NewVerifier(cfg.JWT.Secret)
	if err != nil {
		zlog.Fatalw("auth verifier", "err", err)
	}

	hub := ws.NewHub()
	svc := chat.NewService(
		repository.NewMongoStore(db),
		directory.NewMongo(db),
		hub,
		sink,
		zlog,
		cfg.Limits.MaxMessageLen,
	)
	pres := presence.NewStore(rdb, cfg.Redis.Prefix)
	gw := ws.NewGateway(hub, svc, verifier, pres, zlog, cfg.Limits.WSEventsPerSec)
	limiter := api.RateLimitByUser(rdb, cfg.Redis.Prefix, cfg.Limits.APIRequestsPerMin, time.Minute)

	app := api.New(svc, gw, verifier, pres, limiter, zlog)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	go func() {
		zlog.Infow("chat backend listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Warnw("shutdown", "err", err)
	}
	zlog.Infow("stopped")
}
