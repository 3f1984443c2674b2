// Package snapshot はHTTPスナップショットを提供するネットワークカメラからフレームを取得します。
package snapshot

import (
	"os"
	"time"
)

// Config はスナップショットカメラの設定です。
type Config struct {
	URL     string        // スナップショットURL（例: "http://192.168.0.10/snapshot.jpg"）
	Width   int           // 希望解像度（幅）
	Height  int           // 希望解像度（高さ）
	Facing  string        // 希望するカメラの向き
	Timeout time.Duration // 1フレームあたりのHTTPタイムアウト
}

// LoadConfig は環境変数からスナップショットカメラの設定を読み込みます。
func LoadConfig() Config {
	return Config{
		URL:     os.Getenv("CAMERA_SNAPSHOT_URL"),
		Width:   1080,
		Height:  1080,
		Facing:  "environment",
		Timeout: 5 * time.Second,
	}
}

// Enabled はカメラURLが設定されているかを返します。
func (c Config) Enabled() bool {
	return c.URL != ""
}
