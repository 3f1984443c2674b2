// Package speech は読み上げ文言の出力先を提供します。
// 実際の音声合成はクライアント側で行い、サーバーは文言を配信するだけです。
package speech

import (
	"context"
	"log/slog"

	"ecosort_backend/internal/feature/session/usecase"
)

// LogSpeaker は読み上げ文言を構造化ログに出力します。
type LogSpeaker struct {
	logger *slog.Logger
}

var _ usecase.Speaker = (*LogSpeaker)(nil)

// NewLogSpeaker はLogSpeakerを生成します。loggerがnilの場合はslog.Default()を使います。
func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSpeaker{logger: logger}
}

func (s *LogSpeaker) Speak(ctx context.Context, text, lang string) error {
	s.logger.InfoContext(ctx, "speak", "text", text, "lang", lang)
	return nil
}
