package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort_backend/internal/feature/capture/adapters/static"
	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	classentity "ecosort_backend/internal/feature/classification/domain/entity"
	classusecase "ecosort_backend/internal/feature/classification/usecase"
	"ecosort_backend/internal/feature/session/domain/entity"
	"ecosort_backend/internal/feature/session/usecase"
)

const (
	waitFor = 2 * time.Second
	tickFor = 5 * time.Millisecond
)

// mockClassifier はClassifierインターフェースのモック実装です。
type mockClassifier struct {
	ClassifyFunc func(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error)
}

func (m *mockClassifier) Classify(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error) {
	return m.ClassifyFunc(ctx, still)
}

// recordingSpeaker は読み上げた文言を記録します。
type recordingSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSpeaker) Speak(ctx context.Context, text, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSpeaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(w, h)))
	return buf.Bytes()
}

func bottleOutcome(still *captureentity.Still) *classentity.Outcome {
	d := classentity.Detection{
		Label:    "塑料瓶",
		Category: classentity.CategoryRecyclable,
		Box:      classentity.BoundingBox{YMin: 0, XMin: 0, YMax: 500, XMax: 500},
	}
	return &classentity.Outcome{
		Detections:   []classentity.Detection{d},
		Overlays:     []classentity.OverlayRect{{Top: 0, Left: 0, Width: 50, Height: 50, Category: d.Category, Label: d.Label}},
		Dimensions:   still.Dimensions,
		Announcement: classusecase.Announce([]classentity.Detection{d}),
	}
}

func okClassifier() *mockClassifier {
	return &mockClassifier{ClassifyFunc: func(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error) {
		return bottleOutcome(still), nil
	}}
}

type fixture struct {
	ctrl    *usecase.Controller
	source  *static.Source
	speaker *recordingSpeaker
	clock   *clock.Mock
}

func newFixture(t *testing.T, clf usecase.Classifier, source *static.Source) *fixture {
	t.Helper()

	// *static.Sourceのnilをそのままインターフェースに入れるとnil判定をすり抜けるため、素のnilに揃えます。
	var src captureusecase.FrameSource
	if source != nil {
		src = source
	}

	mock := clock.NewMock()
	speaker := &recordingSpeaker{}
	ctrl := usecase.NewController("s-1", usecase.Dependencies{
		Encoder:    captureusecase.NewPipeline(0),
		Source:     src,
		Classifier: clf,
		Speaker:    speaker,
		Clock:      mock,
	})
	t.Cleanup(func() { _ = ctrl.Close() })
	return &fixture{ctrl: ctrl, source: source, speaker: speaker, clock: mock}
}

func (f *fixture) eventually(t *testing.T, cond func(s entity.State) bool, msg string) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(f.ctrl.Snapshot()) }, waitFor, tickFor, msg)
}

func TestController_Upload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okClassifier(), nil)

	require.NoError(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 64, 48))))

	f.eventually(t, func(s entity.State) bool { return !s.Processing && len(s.Detections) == 1 }, "classification did not complete")

	s := f.ctrl.Snapshot()
	assert.True(t, s.HasImage())
	assert.Equal(t, classentity.ImageDimensions{Width: 64, Height: 48}, s.Dimensions)
	assert.Len(t, s.Overlays, 1)
	assert.Empty(t, s.Error)
	require.NotNil(t, s.Utterance)
	assert.Equal(t, "这是塑料瓶，它是可回收物。", s.Utterance.Text)
	assert.Equal(t, classentity.SpeechLang, s.Utterance.Lang)
	assert.Equal(t, []string{"这是塑料瓶，它是可回收物。"}, f.speaker.Texts())

	still, ok := f.ctrl.Still()
	require.True(t, ok)
	assert.Equal(t, s.ImageHash, still.Hash())
}

func TestController_UploadDecodeFailureKeepsState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okClassifier(), nil)

	require.NoError(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 10, 10))))
	f.eventually(t, func(s entity.State) bool { return !s.Processing && len(s.Detections) == 1 }, "first upload did not complete")
	before := f.ctrl.Snapshot()

	err := f.ctrl.Upload(context.Background(), strings.NewReader("not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, captureusecase.ErrDecodeFailed)

	assert.Equal(t, before, f.ctrl.Snapshot())
}

func TestController_ClassificationFailure(t *testing.T) {
	t.Parallel()

	clf := &mockClassifier{ClassifyFunc: func(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error) {
		return nil, errors.New("gemini API error")
	}}
	f := newFixture(t, clf, nil)

	require.NoError(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 10, 10))))
	f.eventually(t, func(s entity.State) bool { return !s.Processing && s.Error != "" }, "failure was not reported")

	s := f.ctrl.Snapshot()
	assert.Equal(t, classusecase.UserErrorMessage, s.Error)
	assert.Empty(t, s.Detections)
	assert.True(t, s.HasImage())
	require.NotNil(t, s.Utterance)
	assert.Equal(t, classusecase.FailurePhrase, s.Utterance.Text)
}

func TestController_StaleResultIsDropped(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	clf := &mockClassifier{ClassifyFunc: func(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// 1回目はキャンセルされても結果を返す
			<-release
			out := bottleOutcome(still)
			out.Detections[0].Label = "旧结果"
			return out, nil
		}
		return bottleOutcome(still), nil
	}}
	f := newFixture(t, clf, nil)

	require.NoError(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 10, 10))))
	require.NoError(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 20, 20))))

	f.eventually(t, func(s entity.State) bool { return !s.Processing && len(s.Detections) == 1 }, "second upload did not complete")
	close(release)

	// 古い結果が遅れて届いても状態は変わらない
	time.Sleep(50 * time.Millisecond)
	s := f.ctrl.Snapshot()
	assert.Equal(t, "塑料瓶", s.Detections[0].Label)
	assert.Equal(t, classentity.ImageDimensions{Width: 20, Height: 20}, s.Dimensions)
}

func TestController_StartLiveCameraFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okClassifier(), static.NewUnavailableSource())

	err := f.ctrl.StartLive(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrCameraUnavailable)

	s := f.ctrl.Snapshot()
	assert.Equal(t, usecase.CameraErrorMessage, s.Error)
	assert.False(t, s.Live)
	assert.Zero(t, s.Countdown)
	assert.Empty(t, f.speaker.Texts())
}

func TestController_StartLiveWithoutSource(t *testing.T) {
	t.Parallel()

	var typedNil *static.Source

	tests := []struct {
		name   string
		source captureusecase.FrameSource
	}{
		{name: "nil source", source: nil},
		{name: "typed nil static source", source: typedNil},
		{name: "unavailable camera", source: static.NewUnavailableSource()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := usecase.NewController("s-1", usecase.Dependencies{
				Encoder:    captureusecase.NewPipeline(0),
				Source:     tt.source,
				Classifier: okClassifier(),
				Speaker:    &recordingSpeaker{},
				Clock:      clock.NewMock(),
			})
			t.Cleanup(func() { _ = ctrl.Close() })

			var err error
			require.NotPanics(t, func() { err = ctrl.StartLive(context.Background()) })
			assert.ErrorIs(t, err, usecase.ErrCameraUnavailable)

			s := ctrl.Snapshot()
			assert.Equal(t, usecase.CameraErrorMessage, s.Error)
			assert.False(t, s.Live)
		})
	}
}

func TestController_AutoCapture(t *testing.T) {
	t.Parallel()

	src := static.NewSource(solidImage(32, 24))
	f := newFixture(t, okClassifier(), src)

	require.NoError(t, f.ctrl.StartLive(context.Background()))

	s := f.ctrl.Snapshot()
	assert.True(t, s.Live)
	assert.Equal(t, 3, s.Countdown)
	assert.False(t, s.HasImage())
	require.NotNil(t, s.Utterance)
	assert.Equal(t, usecase.LiveStartPhrase, s.Utterance.Text)
	assert.Equal(t, 1, src.Active())

	for _, want := range []int{2, 1} {
		f.clock.Add(time.Second)
		f.eventually(t, func(s entity.State) bool { return s.Countdown == want }, "countdown did not advance")
	}
	f.clock.Add(time.Second)

	f.eventually(t, func(s entity.State) bool { return s.HasImage() && !s.Processing && len(s.Detections) == 1 }, "auto capture did not classify")

	s = f.ctrl.Snapshot()
	assert.False(t, s.Live)
	assert.Zero(t, s.Countdown)
	assert.Equal(t, classentity.ImageDimensions{Width: 32, Height: 24}, s.Dimensions)
	assert.Equal(t, 0, src.Active())
}

func TestController_StopLive(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	clf := &mockClassifier{ClassifyFunc: func(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return bottleOutcome(still), nil
	}}
	src := static.NewSource(solidImage(8, 8))
	f := newFixture(t, clf, src)

	require.NoError(t, f.ctrl.StartLive(context.Background()))
	require.NoError(t, f.ctrl.StopLive())

	s := f.ctrl.Snapshot()
	assert.False(t, s.Live)
	assert.Zero(t, s.Countdown)
	assert.Equal(t, 0, src.Active())

	f.clock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()
	assert.False(t, f.ctrl.Snapshot().HasImage())
}

func TestController_CaptureLive(t *testing.T) {
	t.Parallel()

	t.Run("error: not live", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, okClassifier(), static.NewSource(solidImage(8, 8)))

		assert.ErrorIs(t, f.ctrl.CaptureLive(context.Background()), usecase.ErrNotLive)
		assert.False(t, f.ctrl.Snapshot().HasImage())
	})

	t.Run("success: manual capture releases camera", func(t *testing.T) {
		t.Parallel()
		src := static.NewSource(solidImage(16, 8))
		f := newFixture(t, okClassifier(), src)

		require.NoError(t, f.ctrl.StartLive(context.Background()))
		require.NoError(t, f.ctrl.CaptureLive(context.Background()))

		assert.Equal(t, 0, src.Active())
		f.eventually(t, func(s entity.State) bool { return !s.Processing && len(s.Detections) == 1 }, "capture did not classify")
		assert.False(t, f.ctrl.Snapshot().Live)
	})
}

func TestController_ResetDropsInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	clf := &mockClassifier{ClassifyFunc: func(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := newFixture(t, clf, nil)

	require.NoError(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 10, 10))))
	<-started
	assert.True(t, f.ctrl.Snapshot().Processing)

	require.NoError(t, f.ctrl.Reset())

	time.Sleep(20 * time.Millisecond)
	s := f.ctrl.Snapshot()
	assert.False(t, s.Processing)
	assert.False(t, s.HasImage())
	assert.Empty(t, s.Detections)
	assert.Empty(t, s.Error)
	assert.Empty(t, f.speaker.Texts())
}

func TestController_Close(t *testing.T) {
	t.Parallel()

	clf := &mockClassifier{ClassifyFunc: func(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	src := static.NewSource(solidImage(8, 8))
	f := newFixture(t, clf, src)

	require.NoError(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 10, 10))))
	require.NoError(t, f.ctrl.StartLive(context.Background()))
	require.Equal(t, 1, src.Active())

	require.NoError(t, f.ctrl.Close())
	assert.Equal(t, 0, src.Active())
	assert.NoError(t, f.ctrl.Close())

	assert.ErrorIs(t, f.ctrl.StartLive(context.Background()), usecase.ErrClosed)
	assert.ErrorIs(t, f.ctrl.Upload(context.Background(), bytes.NewReader(pngBytes(t, 4, 4))), usecase.ErrClosed)
	assert.ErrorIs(t, f.ctrl.CaptureLive(context.Background()), usecase.ErrClosed)
}

func TestController_Guide(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okClassifier(), nil)
	f.ctrl.Guide()
	f.ctrl.Guide()

	s := f.ctrl.Snapshot()
	require.NotNil(t, s.Utterance)
	assert.Equal(t, usecase.GuidePhrase, s.Utterance.Text)
	assert.Equal(t, uint64(2), s.Utterance.Seq)
	assert.Len(t, f.speaker.Texts(), 2)
}
