// Package entity はcaptureフィーチャーのドメインモデルを定義します。
package entity

import (
	"crypto/sha256"
	"encoding/hex"

	classentity "ecosort_backend/internal/feature/classification/domain/entity"
)

// MIMEType は送信用静止画のMIMEタイプです。
const MIMEType = "image/jpeg"

// Still は送信用にエンコードされた静止画と、そのピクセルサイズです。
type Still struct {
	JPEG       []byte
	Dimensions classentity.ImageDimensions
}

// Hash は画像内容のSHA-256を16進文字列で返します。
func (s *Still) Hash() string {
	sum := sha256.Sum256(s.JPEG)
	return hex.EncodeToString(sum[:])
}
