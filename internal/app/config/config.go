// Package config はサーバー全体の設定を環境変数から読み込みます。
// 外部サービスごとの接続設定は各アダプターのLoadConfigが担当します。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const (
	BackendGemini = "gemini"
	BackendVision = "vision"

	SpeechLog   = "log"
	SpeechRedis = "redis"
)

// ErrInvalidValue は環境変数の値が解釈できないことを示します。
var ErrInvalidValue = errors.New("invalid config value")

// Config はサーバーの設定です。
type Config struct {
	Port              string
	LogLevel          slog.Level
	ClassifierBackend string        // gemini | vision
	ClassifyTimeout   time.Duration // 1回の分類のタイムアウト
	RatePerMinute     int           // 分類APIの1分あたりの呼び出し上限（0なら無制限）
	MinConfidence     float64
	ImageMaxEdge      int // 送信画像の長辺の上限（px）
	SessionIdleTTL    time.Duration
	CacheTTL          time.Duration
	SpeechBackend     string // log | redis
	JWTSecret         string
	CORSAllowOrigins  []string
}

// LoadDotEnv は.envファイルがあれば読み込みます。ファイルがなくてもエラーにはしません。
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	if err := godotenv.Load(paths...); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
}

// Load は環境変数から設定を読み込みます。
// 解釈できない値はすべてまとめてエラーとして返します。
func Load() (Config, error) {
	var errs error
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		ClassifierBackend: strings.ToLower(getEnv("CLASSIFIER_BACKEND", BackendGemini)),
		SpeechBackend:     strings.ToLower(getEnv("SPEECH_BACKEND", SpeechLog)),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CORSAllowOrigins:  splitList(os.Getenv("CORS_ALLOW_ORIGINS")),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.ClassifyTimeout, err = envDuration("CLASSIFY_TIMEOUT", 30*time.Second); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.SessionIdleTTL, err = envDuration("SESSION_IDLE_TTL", 15*time.Minute); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", time.Hour); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.RatePerMinute, err = envInt("CLASSIFY_RATE_PER_MINUTE", 30); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.ImageMaxEdge, err = envInt("IMAGE_MAX_EDGE", 1080); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.MinConfidence, err = envFloat("MIN_CONFIDENCE", 0); err != nil {
		errs = multierr.Append(errs, err)
	}

	switch cfg.ClassifierBackend {
	case BackendGemini, BackendVision:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%w: CLASSIFIER_BACKEND=%q", ErrInvalidValue, cfg.ClassifierBackend))
	}
	switch cfg.SpeechBackend {
	case SpeechLog, SpeechRedis:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%w: SPEECH_BACKEND=%q", ErrInvalidValue, cfg.SpeechBackend))
	}

	return cfg, errs
}

// Addr はgin.Runに渡すアドレスを返します。
func (c Config) Addr() string {
	return ":" + c.Port
}

// AuthEnabled はJWT認証を要求するかを返します。
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return f, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: LOG_LEVEL=%q", ErrInvalidValue, s)
	}
	return l, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
