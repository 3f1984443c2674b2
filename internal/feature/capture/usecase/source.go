package usecase

import (
	"context"
	"image"
)

// FrameSource はカメラ映像の取得元です。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type FrameSource interface {
	// Open はカメラストリームを確保します。不要になったら必ずCloseすること。
	Open(ctx context.Context) (Stream, error)
}

// Stream は確保済みのカメラストリームです。
type Stream interface {
	// Frame は現在のフレームを返します。
	Frame(ctx context.Context) (image.Image, error)
	// Close はストリームを解放します。
	Close() error
}
