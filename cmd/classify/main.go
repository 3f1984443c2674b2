// Command classify は画像ファイルを分類し、1ファイルにつき1行のJSONを出力します。
//
//	go run ./cmd/classify [-purge-cache] image1.jpg image2.png ...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"ecosort_backend/internal/api"
	"ecosort_backend/internal/app/config"
	"ecosort_backend/internal/app/di"
	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	"ecosort_backend/internal/feature/classification/adapters/history"
	"ecosort_backend/internal/feature/classification/domain/entity"
	classhandler "ecosort_backend/internal/feature/classification/transport/handler"
	"ecosort_backend/internal/platform/cache"
	infradb "ecosort_backend/internal/platform/db"
	infraredis "ecosort_backend/internal/platform/redis"
)

// classifier は1枚の静止画を分類します。
type classifier interface {
	Classify(ctx context.Context, still *captureentity.Still) (*entity.Outcome, error)
}

// decoder は画像ファイルを静止画に変換します。
type decoder interface {
	FromUpload(ctx context.Context, r io.Reader) (*captureentity.Still, error)
}

// fileResult は1ファイル分の出力行です。
type fileResult struct {
	File   string                      `json:"file"`
	Result *api.ClassificationResponse `json:"result,omitempty"`
	Error  string                      `json:"error,omitempty"`
}

func main() {
	purge := flag.Bool("purge-cache", false, "delete cached classifications before running")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if flag.NArg() == 0 && !*purge {
		fmt.Fprintln(os.Stderr, "usage: classify [-purge-cache] FILE...")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = run(ctx, cfg, *purge, flag.Args(), os.Stdout)
	cancel()
	if err != nil {
		slog.Error("classify failed", "error", err)
		os.Exit(1)
	}
}

// run は依存を組み立てて分類を実行します。確保した資源はreturn前にすべて解放します。
func run(ctx context.Context, cfg config.Config, purge bool, paths []string, w io.Writer) error {
	db, err := infradb.Open(infradb.LoadConfigFromEnv())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if db != nil {
		defer func() {
			if err := infradb.Close(db); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}()
		if err := infradb.Migrate(db, &history.ClassificationRecord{}); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig()); err == nil {
		rdb = tmp
		defer func() { _ = rdb.Close() }()
	}

	clf, closeClassifier, err := di.NewClassifier(ctx, cfg, rdb)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}
	defer func() { _ = closeClassifier() }()

	if purge {
		if cc, ok := clf.(*cache.CachingClassifier); ok {
			if err := cc.Purge(ctx); err != nil {
				return fmt.Errorf("failed to purge cache: %w", err)
			}
			slog.Info("classification cache purged")
		}
	}

	uc := di.NewClassifyUsecase(cfg, clf, di.NewHistoryRepository(db))
	pipeline := captureusecase.NewPipeline(cfg.ImageMaxEdge)

	if err := classifyFiles(ctx, uc, pipeline, paths, w); err != nil {
		return fmt.Errorf("classification finished with errors: %w", err)
	}
	return nil
}

// classifyFiles はファイルを順番に分類し、結果をwへ書き出します。
// 1ファイルの失敗で処理を止めず、エラーはまとめて返します。
func classifyFiles(ctx context.Context, uc classifier, dec decoder, paths []string, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	var errs error
	for _, path := range paths {
		res := fileResult{File: path}
		out, err := classifyFile(ctx, uc, dec, path)
		if err != nil {
			res.Error = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
		} else {
			r := classhandler.ToClassificationResponse(out)
			res.Result = &r
		}
		if err := enc.Encode(res); err != nil {
			return multierr.Append(errs, err)
		}
	}
	return errs
}

func classifyFile(ctx context.Context, uc classifier, dec decoder, path string) (*entity.Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	still, err := dec.FromUpload(ctx, f)
	if err != nil {
		return nil, err
	}
	return uc.Classify(ctx, still)
}
