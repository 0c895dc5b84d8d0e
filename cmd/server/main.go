package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/skincare_tracker/internal/config"
	"github.com/Skotchmaster/skincare_tracker/internal/db"
	"github.com/Skotchmaster/skincare_tracker/internal/events"
	"github.com/Skotchmaster/skincare_tracker/internal/hash"
	"github.com/Skotchmaster/skincare_tracker/internal/httpserver"
	"github.com/Skotchmaster/skincare_tracker/internal/logging"
	"github.com/Skotchmaster/skincare_tracker/internal/ratelimit"
	"github.com/Skotchmaster/skincare_tracker/internal/repo"
	"github.com/Skotchmaster/skincare_tracker/internal/service"
)

type eventSink interface {
	service.Publisher
	Close() error
}

func main() {
	cfg := config.Load()
	cfg.Validate()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.Env)
	slog.SetDefault(logger)

	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_open_failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	var sink eventSink = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		sink = events.NewProducer(cfg.KafkaBrokers, cfg.AuthEventsTopic, func(err error) {
			logger.Error("kafka_delivery_failed", "topic", cfg.AuthEventsTopic, "error", err)
		})
	} else {
		logger.Info("kafka_disabled", "reason", "KAFKA_BROKERS not set")
	}

	var (
		limiter     echomw.RateLimiterStore
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = ratelimit.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("redis_connect_failed", "error", err)
			os.Exit(1)
		}
		limiter = ratelimit.FailOpen(ratelimit.NewRedisStore(redisClient, "rl:auth:", cfg.RateLimitPerMinute), logger)
	} else {
		limiter = ratelimit.NewMemoryStore(cfg.RateLimitPerMinute)
	}

	// NewBcrypt computes the dummy hash before the server accepts logins.
	hasher := hash.NewBcrypt(cfg.BcryptCost)

	r := repo.New(gdb)
	svc := &service.AuthService{
		Users:         r,
		Tokens:        r,
		Hasher:        hasher,
		Events:        sink,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
	}

	e := httpserver.New(&httpserver.Deps{
		Browser:      &httpserver.BrowserHTTP{Svc: svc, SecureCookies: cfg.Production()},
		Mobile:       &httpserver.MobileHTTP{Svc: svc},
		Auth:         svc,
		Logger:       logger,
		LimiterStore: limiter,
		Ready:        func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	srv := httpserver.NewServer(":"+strconv.Itoa(cfg.ServerPort), e)
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	svc.Wait()

	if err := sink.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", "error", err)
	}

	logger.Info("shutdown complete")
}
