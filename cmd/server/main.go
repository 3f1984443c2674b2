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

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ecosort_backend/internal/app/config"
	"ecosort_backend/internal/app/di"
	"ecosort_backend/internal/app/router"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	"ecosort_backend/internal/feature/classification/adapters/history"
	classhandler "ecosort_backend/internal/feature/classification/transport/handler"
	sessionhandler "ecosort_backend/internal/feature/session/transport/handler"
	infradb "ecosort_backend/internal/platform/db"
	platformhandler "ecosort_backend/internal/platform/http/handler"
	infraredis "ecosort_backend/internal/platform/redis"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	// db
	db, err := infradb.Open(infradb.LoadConfigFromEnv())
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if err := infradb.Close(db); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}()
		if err := infradb.Migrate(db, &history.ClassificationRecord{}); err != nil {
			return err
		}
	} else {
		slog.Warn("DB_DRIVER=none. Classification history is disabled.")
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig()); err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// Classifier
	clf, closeClassifier, err := di.NewClassifier(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeClassifier(); err != nil {
			slog.Error("failed to close classifier", "error", err)
		}
	}()

	// Usecase
	pipeline := captureusecase.NewPipeline(cfg.ImageMaxEdge)
	classifyUC := di.NewClassifyUsecase(cfg, clf, di.NewHistoryRepository(db))

	// Sessions
	store := di.NewSessionStore(cfg, di.SessionDeps{
		Encoder:    pipeline,
		Source:     di.NewFrameSource(),
		Classifier: classifyUC,
		Speaker:    di.NewSpeaker(cfg, rdb),
	})
	if err := store.StartJanitor(janitorInterval); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close session store", "error", err)
		}
	}()

	// Handler
	classifyH := classhandler.NewClassifyHandler(classifyUC, pipeline)
	sessionH := sessionhandler.NewSessionHandler(store)

	if !cfg.AuthEnabled() {
		slog.Warn("JWT_SECRET is not set. /v1 routes are open.")
	}

	// ルータ生成
	r := router.NewRouter(classifyH, sessionH, router.Options{
		JWTSecret:        cfg.JWTSecret,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		Checkers:         readinessCheckers(db, rdb),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "classifier", cfg.ClassifierBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func readinessCheckers(db *gorm.DB, rdb *redisv9.Client) map[string]platformhandler.Checker {
	checkers := map[string]platformhandler.Checker{}
	if db != nil {
		checkers["db"] = func(ctx context.Context) error { return infradb.Ping(ctx, db) }
	}
	if rdb != nil {
		checkers["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checkers
}
