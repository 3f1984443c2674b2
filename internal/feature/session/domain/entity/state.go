// Package entity はsessionフィーチャーのドメインモデルを定義します。
package entity

import (
	"time"

	classentity "ecosort_backend/internal/feature/classification/domain/entity"
)

// Utterance はセッションが最後に読み上げた文言です。Seqは読み上げごとに増加します。
type Utterance struct {
	Seq  uint64
	Text string
	Lang string
}

// State はセッションの表示状態のスナップショットです。
type State struct {
	ID         string
	Live       bool // ライブ表示中
	Countdown  int  // 自動撮影までの残りカウント（0はカウントダウンなし）
	Processing bool // 分類中

	// 現在の静止画。未撮影の場合は空です。
	ImageHash  string
	Dimensions classentity.ImageDimensions

	Detections []classentity.Detection
	Overlays   []classentity.OverlayRect // 寸法が未確定の場合はnil

	Error     string // 画面に表示するエラー文言
	Utterance *Utterance
	UpdatedAt time.Time
}

// HasImage は静止画を保持しているかどうかを返します。
func (s State) HasImage() bool {
	return s.ImageHash != ""
}
