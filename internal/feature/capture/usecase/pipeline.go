// Package usecase はcaptureフィーチャーのビジネスロジックを実装します。
// カメラのフレームやアップロードされたファイルを、送信用のJPEG静止画に正規化します。
package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // image.Decode にWebPを登録

	"ecosort_backend/internal/feature/capture/domain/entity"
	classentity "ecosort_backend/internal/feature/classification/domain/entity"
)

const (
	// MaxImageSize は画像アップロードの最大サイズ（10MB）です。
	MaxImageSize = 10 * 1024 * 1024
	// JPEGQuality は送信用JPEGの品質です。
	JPEGQuality = 80
)

var (
	// ErrEmptyImage は画像データが空であることを示します。
	ErrEmptyImage = errors.New("image data is empty")
	// ErrImageTooLarge は画像がMaxImageSizeを超えていることを示します。
	ErrImageTooLarge = errors.New("image size exceeds maximum")
	// ErrDecodeFailed は画像のデコードに失敗したことを示します。
	ErrDecodeFailed = errors.New("failed to decode image")
	// ErrNoFrame はカメラから有効なフレームを取得できなかったことを示します。
	ErrNoFrame = errors.New("no frame available")
)

// Pipeline は入力画像を送信用の静止画に変換します。
type Pipeline struct {
	maxEdge uint
}

// NewPipeline はPipelineの新しいインスタンスを生成します。
// maxEdgeが0以下の場合は縮小しません。
func NewPipeline(maxEdge int) *Pipeline {
	if maxEdge < 0 {
		maxEdge = 0
	}
	return &Pipeline{maxEdge: uint(maxEdge)}
}

// FromUpload はアップロードされた画像ファイルをデコードし、静止画を返します。
// EXIFの回転情報は反映されます。
func (p *Pipeline) FromUpload(ctx context.Context, r io.Reader) (*entity.Still, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w of %d bytes", ErrImageTooLarge, MaxImageSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.encode(img)
}

// FromFrame はライブ映像の1フレームを静止画にします。サイズはフレームの解像度そのものです。
func (p *Pipeline) FromFrame(frame image.Image) (*entity.Still, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrNoFrame
	}
	return p.encode(frame)
}

func (p *Pipeline) encode(img image.Image) (*entity.Still, error) {
	if p.maxEdge > 0 {
		b := img.Bounds()
		if uint(b.Dx()) > p.maxEdge || uint(b.Dy()) > p.maxEdge {
			img = resize.Thumbnail(p.maxEdge, p.maxEdge, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	b := img.Bounds()
	return &entity.Still{
		JPEG: buf.Bytes(),
		Dimensions: classentity.ImageDimensions{
			Width:  b.Dx(),
			Height: b.Dy(),
		},
	}, nil
}
