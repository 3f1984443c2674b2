// Package static は固定画像を返すFrameSourceを提供します。デモやテストで使います。
package static

import (
	"context"
	"errors"
	"image"
	"sync"

	"ecosort_backend/internal/feature/capture/usecase"
)

// ErrUnavailable はカメラが利用できないことを示します。
var ErrUnavailable = errors.New("camera unavailable")

// Source は常に同じフレームを返すFrameSourceです。
type Source struct {
	frame   image.Image
	openErr error

	mu     sync.Mutex
	opened int
	closed int
}

var _ usecase.FrameSource = (*Source)(nil)

// NewSource はframeを返すSourceを生成します。
func NewSource(frame image.Image) *Source {
	return &Source{frame: frame}
}

// NewUnavailableSource はOpenが常に失敗するSourceを生成します。
func NewUnavailableSource() *Source {
	return &Source{openErr: ErrUnavailable}
}

// Open はストリームを返します。nilのSourceはカメラなしとして扱います。
func (s *Source) Open(ctx context.Context) (usecase.Stream, error) {
	if s == nil {
		return nil, ErrUnavailable
	}
	if s.openErr != nil {
		return nil, s.openErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &stream{src: s}, nil
}

// Active は確保されたまま解放されていないストリーム数を返します。
func (s *Source) Active() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened - s.closed
}

type stream struct {
	src  *Source
	once sync.Once
}

func (st *stream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return st.src.frame, nil
}

func (st *stream) Close() error {
	st.once.Do(func() {
		st.src.mu.Lock()
		st.src.closed++
		st.src.mu.Unlock()
	})
	return nil
}
