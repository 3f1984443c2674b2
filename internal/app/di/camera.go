package di

import (
	"log/slog"
	"os"

	"github.com/disintegration/imaging"

	"ecosort_backend/internal/feature/capture/adapters/snapshot"
	"ecosort_backend/internal/feature/capture/adapters/static"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	infrahttp "ecosort_backend/internal/platform/http"
)

// NewFrameSource creates the frame source for live view.
// A snapshot camera wins over CAMERA_STATIC_IMAGE, which serves a fixed picture for demos.
// It returns nil when neither is configured; live view then reports the camera error.
func NewFrameSource() captureusecase.FrameSource {
	cfg := snapshot.LoadConfig()
	if cfg.Enabled() {
		return snapshot.NewSource(cfg, infrahttp.NewHTTPClient(cfg.Timeout, infrahttp.WithMaxIdleConnsPerHost(1)))
	}

	if path := os.Getenv("CAMERA_STATIC_IMAGE"); path != "" {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			slog.Error("failed to load static camera image", "path", path, "error", err)
			return static.NewUnavailableSource()
		}
		slog.Info("using static camera image", "path", path)
		return static.NewSource(img)
	}

	slog.Warn("CAMERA_SNAPSHOT_URL is not set. Live view is disabled.")
	return nil
}
