// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ecosort_backend/internal/app/config"
	"ecosort_backend/internal/feature/classification/adapters/gemini"
	"ecosort_backend/internal/feature/classification/adapters/history"
	"ecosort_backend/internal/feature/classification/adapters/vision"
	classhandler "ecosort_backend/internal/feature/classification/transport/handler"
	"ecosort_backend/internal/feature/classification/usecase"
	"ecosort_backend/internal/platform/cache"
	infrahttp "ecosort_backend/internal/platform/http"
	"ecosort_backend/internal/shared/ratelimiter"
)

// NewClassifier creates the classifier selected by cfg.ClassifierBackend.
// When Redis is available the classifier is wrapped with a result cache.
// The returned close func releases the underlying client and is never nil.
func NewClassifier(ctx context.Context, cfg config.Config, rdb *redis.Client) (usecase.Classifier, func() error, error) {
	var (
		clf     usecase.Classifier
		closeFn = func() error { return nil }
	)

	switch cfg.ClassifierBackend {
	case config.BackendVision:
		v, err := vision.NewVisionClassifier(ctx)
		if err != nil {
			return nil, nil, err
		}
		clf, closeFn = v, v.Close
	case config.BackendGemini, "":
		g, err := gemini.NewGeminiClassifier(ctx, gemini.LoadConfig(), infrahttp.NewHTTPClient(cfg.ClassifyTimeout))
		if err != nil {
			return nil, nil, err
		}
		clf = g
	default:
		return nil, nil, fmt.Errorf("%w: CLASSIFIER_BACKEND=%q", config.ErrInvalidValue, cfg.ClassifierBackend)
	}

	if rdb == nil {
		slog.Warn("Redis unavailable. Running without classification cache.")
		return clf, closeFn, nil
	}
	return cache.NewCachingClassifier(rdb, cfg.CacheTTL, clf, "classify:"+cfg.ClassifierBackend), closeFn, nil
}

// NewHistoryRepository returns a gorm-backed history repository, or nil when no database is configured.
func NewHistoryRepository(db *gorm.DB) usecase.HistoryRepository {
	if db == nil {
		return nil
	}
	return history.NewHistoryRepository(db)
}

// NewClassifyUsecase wires the classification usecase with its rate limiter and history.
func NewClassifyUsecase(cfg config.Config, clf usecase.Classifier, repo usecase.HistoryRepository) classhandler.ClassifyUsecase {
	return usecase.NewClassifyUsecase(clf, repo, ratelimiter.NewRateLimiter(cfg.RatePerMinute), usecase.Config{
		Backend:       cfg.ClassifierBackend,
		Timeout:       cfg.ClassifyTimeout,
		MinConfidence: cfg.MinConfidence,
	})
}
