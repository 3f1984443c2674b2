package di

import (
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"

	"ecosort_backend/internal/app/config"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	"ecosort_backend/internal/feature/session/adapters/memory"
	"ecosort_backend/internal/feature/session/adapters/speech"
	"ecosort_backend/internal/feature/session/usecase"
)

// NewSpeaker creates a Speaker implementation.
// If Redis is available and selected, it returns a Redis pub/sub speaker.
// Otherwise, it falls back to the log speaker.
func NewSpeaker(cfg config.Config, rdb *redis.Client) usecase.Speaker {
	if cfg.SpeechBackend == config.SpeechRedis {
		if rdb != nil {
			return speech.NewRedisSpeaker(rdb, speech.DefaultChannel)
		}
		slog.Warn("Redis unavailable. Falling back to log speaker.")
	}
	return speech.NewLogSpeaker(slog.Default())
}

// SessionDeps are the collaborators shared by every session controller.
type SessionDeps struct {
	Encoder    usecase.StillEncoder
	Source     captureusecase.FrameSource
	Classifier usecase.Classifier
	Speaker    usecase.Speaker
	Clock      clock.Clock
}

// NewSessionStore creates the in-memory session store. Each session gets its own countdown.
func NewSessionStore(cfg config.Config, deps SessionDeps) *memory.Store {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	factory := func(id string) *usecase.Controller {
		return usecase.NewController(id, usecase.Dependencies{
			Encoder:    deps.Encoder,
			Source:     deps.Source,
			Classifier: deps.Classifier,
			Speaker:    deps.Speaker,
			Clock:      clk,
		})
	}
	return memory.NewStore(factory, cfg.SessionIdleTTL, clk)
}
