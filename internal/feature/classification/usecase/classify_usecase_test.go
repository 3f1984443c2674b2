package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	"ecosort_backend/internal/feature/classification/domain/entity"
	"ecosort_backend/internal/feature/classification/usecase"
)

// ErrAPI はモックと期待値の間で共有されるセンチネルエラーです。
var ErrAPI = errors.New("api error")

// mockClassifier はClassifierインターフェースのモック実装です。
type mockClassifier struct {
	ClassifyFunc  func(ctx context.Context, imageData []byte) ([]entity.Detection, error)
	ClassifyCalls int
}

func (m *mockClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	m.ClassifyCalls++
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, imageData)
	}
	return nil, errors.New("ClassifyFunc is not implemented")
}

// mockHistory はHistoryRepositoryインターフェースのモック実装です。
type mockHistory struct {
	saved   []entity.HistoryEntry
	saveErr error
	limit   int
}

func (m *mockHistory) Save(ctx context.Context, e entity.HistoryEntry) error {
	m.saved = append(m.saved, e)
	return m.saveErr
}

func (m *mockHistory) ListRecent(ctx context.Context, limit int) ([]entity.HistoryEntry, error) {
	m.limit = limit
	return m.saved, nil
}

// mockLimiter はLimiterインターフェースのモック実装です。
type mockLimiter struct {
	err   error
	calls int
}

func (m *mockLimiter) Wait(ctx context.Context) error {
	m.calls++
	return m.err
}

func testStill() *captureentity.Still {
	return &captureentity.Still{
		JPEG:       []byte("fake-jpeg"),
		Dimensions: entity.ImageDimensions{Width: 200, Height: 200},
	}
}

func TestClassifyUsecase_Classify(t *testing.T) {
	ctx := context.Background()
	bottle := entity.Detection{
		Label:      "塑料瓶",
		Category:   entity.CategoryRecyclable,
		Confidence: 0.93,
		Box:        entity.BoundingBox{YMin: 0, XMin: 0, YMax: 1000, XMax: 1000},
	}

	testCases := []struct {
		name             string
		still            *captureentity.Still
		mockFunc         func(ctx context.Context, imageData []byte) ([]entity.Detection, error)
		expectedCount    int
		expectedText     string
		expectedErr      error
		expectedOverlays int
	}{
		{
			name:  "success: detections announced",
			still: testStill(),
			mockFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
				return []entity.Detection{bottle}, nil
			},
			expectedCount:    1,
			expectedOverlays: 1,
			expectedText:     "这是塑料瓶，它是可回收物。",
		},
		{
			name:  "success: nothing detected",
			still: testStill(),
			mockFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
				return nil, nil
			},
			expectedCount: 0,
			expectedText:  usecase.RetryPhrase,
		},
		{
			name:        "error: no image",
			still:       &captureentity.Still{},
			expectedErr: usecase.ErrNoImage,
		},
		{
			name:  "error: classifier fails",
			still: testStill(),
			mockFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
				return nil, ErrAPI
			},
			expectedErr: ErrAPI,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classifier := &mockClassifier{ClassifyFunc: tc.mockFunc}
			uc := usecase.NewClassifyUsecase(classifier, nil, nil, usecase.Config{})

			out, err := uc.Classify(ctx, tc.still)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				if classifier.ClassifyCalls > 0 {
					assert.ErrorIs(t, err, usecase.ErrClassificationFailed)
				}
				return
			}

			require.NoError(t, err)
			assert.Len(t, out.Detections, tc.expectedCount)
			assert.NotNil(t, out.Detections)
			assert.Len(t, out.Overlays, tc.expectedOverlays)
			assert.Equal(t, tc.expectedText, out.Announcement.Text)
			assert.Equal(t, "zh-CN", out.Announcement.Lang)
			assert.Equal(t, tc.still.Dimensions, out.Dimensions)
		})
	}
}

func TestClassifyUsecase_Classify_DefersOverlayWithoutDimensions(t *testing.T) {
	classifier := &mockClassifier{ClassifyFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
		return []entity.Detection{{
			Label:    "电池",
			Category: entity.CategoryHazardous,
			Box:      entity.BoundingBox{YMin: 10, XMin: 10, YMax: 1500, XMax: 1500},
		}}, nil
	}}
	uc := usecase.NewClassifyUsecase(classifier, nil, nil, usecase.Config{})

	out, err := uc.Classify(context.Background(), &captureentity.Still{JPEG: []byte("x")})

	require.NoError(t, err)
	assert.Len(t, out.Detections, 1)
	assert.Nil(t, out.Overlays)
}

func TestClassifyUsecase_Classify_MinConfidence(t *testing.T) {
	classifier := &mockClassifier{ClassifyFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
		return []entity.Detection{
			{Label: "低", Category: entity.CategoryOther, Confidence: 0.1},
			{Label: "高", Category: entity.CategoryOther, Confidence: 0.8},
			{Label: "不明", Category: entity.CategoryOther},
		}, nil
	}}
	uc := usecase.NewClassifyUsecase(classifier, nil, nil, usecase.Config{MinConfidence: 0.5})

	out, err := uc.Classify(context.Background(), testStill())

	require.NoError(t, err)
	require.Len(t, out.Detections, 2)
	assert.Equal(t, "高", out.Detections[0].Label)
	assert.Equal(t, "不明", out.Detections[1].Label)
}

func TestClassifyUsecase_Classify_Limiter(t *testing.T) {
	classifier := &mockClassifier{ClassifyFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
		return nil, nil
	}}

	t.Run("waits before calling classifier", func(t *testing.T) {
		limiter := &mockLimiter{}
		uc := usecase.NewClassifyUsecase(classifier, nil, limiter, usecase.Config{})

		_, err := uc.Classify(context.Background(), testStill())

		require.NoError(t, err)
		assert.Equal(t, 1, limiter.calls)
	})

	t.Run("limiter error stops the call", func(t *testing.T) {
		limiter := &mockLimiter{err: context.DeadlineExceeded}
		c := &mockClassifier{}
		uc := usecase.NewClassifyUsecase(c, nil, limiter, usecase.Config{})

		_, err := uc.Classify(context.Background(), testStill())

		assert.ErrorIs(t, err, usecase.ErrClassificationFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 0, c.ClassifyCalls)
	})
}

func TestClassifyUsecase_Classify_Timeout(t *testing.T) {
	classifier := &mockClassifier{ClassifyFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	uc := usecase.NewClassifyUsecase(classifier, nil, nil, usecase.Config{Timeout: 10 * time.Millisecond})

	_, err := uc.Classify(context.Background(), testStill())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifyUsecase_History(t *testing.T) {
	classifier := &mockClassifier{ClassifyFunc: func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
		return []entity.Detection{{Label: "果皮", Category: entity.CategoryKitchen, Confidence: 0.7}}, nil
	}}

	t.Run("records the main detection", func(t *testing.T) {
		history := &mockHistory{}
		uc := usecase.NewClassifyUsecase(classifier, history, nil, usecase.Config{Backend: "gemini"})

		_, err := uc.Classify(context.Background(), testStill())
		require.NoError(t, err)

		require.Len(t, history.saved, 1)
		saved := history.saved[0]
		assert.Equal(t, "果皮", saved.Label)
		assert.Equal(t, entity.CategoryKitchen, saved.Category)
		assert.Equal(t, 1, saved.Count)
		assert.Equal(t, "gemini", saved.Backend)
		assert.Equal(t, testStill().Hash(), saved.ImageHash)
	})

	t.Run("history failure does not fail classification", func(t *testing.T) {
		history := &mockHistory{saveErr: errors.New("db down")}
		uc := usecase.NewClassifyUsecase(classifier, history, nil, usecase.Config{})

		out, err := uc.Classify(context.Background(), testStill())
		require.NoError(t, err)
		assert.Len(t, out.Detections, 1)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		history := &mockHistory{}
		uc := usecase.NewClassifyUsecase(classifier, history, nil, usecase.Config{})

		_, err := uc.History(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, usecase.DefaultHistoryLimit, history.limit)

		_, err = uc.History(context.Background(), 5000)
		require.NoError(t, err)
		assert.Equal(t, usecase.MaxHistoryLimit, history.limit)
	})

	t.Run("no repository returns empty list", func(t *testing.T) {
		uc := usecase.NewClassifyUsecase(classifier, nil, nil, usecase.Config{})

		entries, err := uc.History(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
