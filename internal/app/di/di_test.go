package di

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/disintegration/imaging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort_backend/internal/app/config"
	"ecosort_backend/internal/feature/capture/adapters/snapshot"
	"ecosort_backend/internal/feature/capture/adapters/static"
	"ecosort_backend/internal/feature/classification/adapters/gemini"
	"ecosort_backend/internal/feature/session/adapters/speech"
	"ecosort_backend/internal/platform/cache"
)

func TestNewSpeaker(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tests := []struct {
		name      string
		backend   string
		rdb       *redis.Client
		wantRedis bool
	}{
		{"log backend", config.SpeechLog, rdb, false},
		{"redis backend", config.SpeechRedis, rdb, true},
		{"redis backend without redis falls back", config.SpeechRedis, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sp := NewSpeaker(config.Config{SpeechBackend: tt.backend}, tt.rdb)
			_, isRedis := sp.(*speech.RedisSpeaker)
			_, isLog := sp.(*speech.LogSpeaker)
			assert.Equal(t, tt.wantRedis, isRedis)
			assert.Equal(t, !tt.wantRedis, isLog)
		})
	}
}

func TestNewHistoryRepository_NilDB(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewHistoryRepository(nil))
}

func TestNewFrameSource_Disabled(t *testing.T) {
	t.Setenv("CAMERA_SNAPSHOT_URL", "")
	t.Setenv("CAMERA_STATIC_IMAGE", "")

	assert.Nil(t, NewFrameSource())
}

func TestNewFrameSource_Snapshot(t *testing.T) {
	t.Setenv("CAMERA_SNAPSHOT_URL", "http://192.0.2.10/snapshot.jpg")
	t.Setenv("CAMERA_STATIC_IMAGE", "")

	assert.IsType(t, &snapshot.Source{}, NewFrameSource())
}

func TestNewFrameSource_StaticImage(t *testing.T) {
	t.Setenv("CAMERA_SNAPSHOT_URL", "")

	path := filepath.Join(t.TempDir(), "demo.png")
	require.NoError(t, imaging.Save(imaging.New(32, 24, color.White), path))
	t.Setenv("CAMERA_STATIC_IMAGE", path)

	src := NewFrameSource()
	require.IsType(t, &static.Source{}, src)

	st, err := src.Open(context.Background())
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	frame, err := st.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, frame.Bounds().Dx())
	assert.Equal(t, 24, frame.Bounds().Dy())
}

func TestNewFrameSource_StaticImageMissing(t *testing.T) {
	t.Setenv("CAMERA_SNAPSHOT_URL", "")
	t.Setenv("CAMERA_STATIC_IMAGE", filepath.Join(t.TempDir(), "missing.png"))

	src := NewFrameSource()
	require.NotNil(t, src)

	_, err := src.Open(context.Background())
	assert.ErrorIs(t, err, static.ErrUnavailable)
}

func TestNewClassifier_InvalidBackend(t *testing.T) {
	t.Parallel()

	_, _, err := NewClassifier(context.Background(), config.Config{ClassifierBackend: "onnx"}, nil)
	assert.ErrorIs(t, err, config.ErrInvalidValue)
}

func TestNewClassifier_Gemini(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Config{ClassifierBackend: config.BackendGemini}

	clf, closeFn, err := NewClassifier(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.NoError(t, closeFn())
	assert.IsType(t, &gemini.GeminiClassifier{}, clf)

	cached, _, err := NewClassifier(context.Background(), cfg, rdb)
	require.NoError(t, err)
	assert.IsType(t, &cache.CachingClassifier{}, cached)
}

func TestNewSessionStore(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(config.Config{}, SessionDeps{})
	t.Cleanup(func() { _ = store.Close() })

	ctrl := store.Create()
	require.NotNil(t, ctrl)

	got, err := store.Get(ctrl.ID())
	require.NoError(t, err)
	assert.Same(t, ctrl, got)
	assert.False(t, got.Snapshot().Live)
}
