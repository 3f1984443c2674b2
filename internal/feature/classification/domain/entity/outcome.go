package entity

import "time"

// SpeechLang は読み上げに使う言語タグです。
const SpeechLang = "zh-CN"

// Announcement はクライアントが読み上げる文言です。
type Announcement struct {
	Text string
	Lang string
}

// Outcome は1回の分類サイクルの結果です。
type Outcome struct {
	Detections   []Detection
	Overlays     []OverlayRect // 寸法が未確定の場合はnil
	Dimensions   ImageDimensions
	Announcement Announcement
}

// HistoryEntry は分類履歴の1件です。
type HistoryEntry struct {
	ID         uint
	ImageHash  string
	Width      int
	Height     int
	Label      string   // 先頭の検出物名（検出なしの場合は空）
	Category   Category // 先頭の検出物の分類
	Confidence float64
	Count      int // 検出件数
	Backend    string
	CreatedAt  time.Time
}
