package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/palisade-sh/palisade/internal/app"
	"github.com/palisade-sh/palisade/internal/audit"
	"github.com/palisade-sh/palisade/internal/authz"
	authzpg "github.com/palisade-sh/palisade/internal/authz/pg"
	"github.com/palisade-sh/palisade/internal/observability"
	"github.com/palisade-sh/palisade/internal/platform/cache"
	"github.com/palisade-sh/palisade/internal/platform/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	registry := authz.NewRegistry(cfg.Mode())
	if err := authz.RegisterDefaults(registry); err != nil {
		logger.Error("load endpoint policies", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("endpoint policies loaded",
		slog.Int("count", registry.Len()),
		slog.String("mode", registry.Mode().String()))

	decisionCache := authz.NewDecisionCache(cfg.CacheConfig())
	decisionCache.SetRecorder(metrics)

	store := authzpg.NewStore(pool)
	evaluator := authz.NewEvaluator(store, decisionCache, cfg.AdminRoleCode, logger)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	sink := audit.MultiSink{
		audit.LogSink{Logger: logger},
		audit.NewQueueSink(asynqClient),
	}

	gateway := authz.NewGateway(registry, evaluator, sink, logger)
	gateway.SetRecorder(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Gateway:      gateway,
		AuthzHandler: authz.NewHandler(logger, registry, evaluator),
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	subscriber := authz.NewInvalidationSubscriber(redisClient, decisionCache, cfg.InvalidationChannel, logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return subscriber.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("stopped")
}
