// Package usecase はclassificationフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	"ecosort_backend/internal/feature/classification/domain/entity"
	"ecosort_backend/internal/feature/classification/overlay"
)

const (
	// UserErrorMessage は分類に失敗したときに画面へ表示する文言です。
	UserErrorMessage = "AI 识别暂时不可用。"
	// FailurePhrase は分類に失敗したときに読み上げる文言です。
	FailurePhrase = "系统出了点小状况。"
	// RetryPhrase は何も検出できなかったときに読み上げる文言です。
	RetryPhrase = "没看清，请再试一次。"
	// DetectedPhraseTemplate は先頭の検出結果を読み上げる文言のテンプレートです。
	DetectedPhraseTemplate = "这是%s，它是%s。"

	// DefaultHistoryLimit は履歴取得件数のデフォルト値です。
	DefaultHistoryLimit = 20
	// MaxHistoryLimit は履歴取得件数の上限です。
	MaxHistoryLimit = 100
)

// Classifier は画像から物品を検出・分類する外部サービスのインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type Classifier interface {
	// Classify はJPEG画像から検出結果を返します。
	// 応答が解析できない場合は空のスライスを返し、通信失敗などはエラーを返します。
	Classify(ctx context.Context, imageData []byte) ([]entity.Detection, error)
}

// HistoryRepository は分類履歴の永続化レイヤーを抽象化します。
type HistoryRepository interface {
	Save(ctx context.Context, e entity.HistoryEntry) error
	ListRecent(ctx context.Context, limit int) ([]entity.HistoryEntry, error)
}

// Limiter は外部APIの呼び出し頻度を制限します。
type Limiter interface {
	Wait(ctx context.Context) error
}

// Config は分類ユースケースの設定です。
type Config struct {
	Backend       string        // 履歴に記録するバックエンド名
	Timeout       time.Duration // 1回の分類のタイムアウト（0なら無制限）
	MinConfidence float64       // これ未満の信頼度の検出結果を除外（0なら除外しない）
}

// classifyUsecase は静止画の分類・オーバーレイ計算・読み上げ文言の生成を行います。
type classifyUsecase struct {
	classifier Classifier
	history    HistoryRepository
	limiter    Limiter
	cfg        Config
}

// NewClassifyUsecase はclassifyUsecaseの新しいインスタンスを生成します。
// historyとlimiterはnilでも構いません。
func NewClassifyUsecase(c Classifier, history HistoryRepository, limiter Limiter, cfg Config) *classifyUsecase {
	return &classifyUsecase{classifier: c, history: history, limiter: limiter, cfg: cfg}
}

// Classify は静止画を分類し、検出結果・オーバーレイ・読み上げ文言をまとめて返します。
func (u *classifyUsecase) Classify(ctx context.Context, still *captureentity.Still) (*entity.Outcome, error) {
	if still == nil || len(still.JPEG) == 0 {
		return nil, ErrNoImage
	}

	if u.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.Timeout)
		defer cancel()
	}

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrClassificationFailed, err)
		}
	}

	detections, err := u.classifier.Classify(ctx, still.JPEG)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	detections = u.filter(detections)

	overlays, err := overlay.MapAll(detections, still.Dimensions)
	if err != nil {
		if !errors.Is(err, overlay.ErrDimensionsUnknown) {
			return nil, err
		}
		// サイズが確定するまで描画を保留する
		slog.Warn("overlay deferred until image dimensions are known", "detections", len(detections))
		overlays = nil
	}

	out := &entity.Outcome{
		Detections:   detections,
		Overlays:     overlays,
		Dimensions:   still.Dimensions,
		Announcement: Announce(detections),
	}

	u.record(ctx, still, detections)
	return out, nil
}

// History は最近の分類履歴を新しい順に返します。
func (u *classifyUsecase) History(ctx context.Context, limit int) ([]entity.HistoryEntry, error) {
	if u.history == nil {
		return []entity.HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return u.history.ListRecent(ctx, limit)
}

// Announce は検出結果から読み上げ文言を生成します。
func Announce(detections []entity.Detection) entity.Announcement {
	if len(detections) == 0 {
		return entity.Announcement{Text: RetryPhrase, Lang: entity.SpeechLang}
	}
	main := detections[0]
	return entity.Announcement{
		Text: fmt.Sprintf(DetectedPhraseTemplate, main.Label, main.Category),
		Lang: entity.SpeechLang,
	}
}

// FailureAnnouncement は分類失敗時の読み上げ文言を返します。
func FailureAnnouncement() entity.Announcement {
	return entity.Announcement{Text: FailurePhrase, Lang: entity.SpeechLang}
}

// filter は信頼度の低い検出結果を除外します。信頼度0はモデルが返さなかったものとして残します。
func (u *classifyUsecase) filter(in []entity.Detection) []entity.Detection {
	if in == nil {
		return []entity.Detection{}
	}
	if u.cfg.MinConfidence <= 0 {
		return in
	}
	out := make([]entity.Detection, 0, len(in))
	for _, d := range in {
		if d.Confidence == 0 || d.Confidence >= u.cfg.MinConfidence {
			out = append(out, d)
		}
	}
	return out
}

func (u *classifyUsecase) record(ctx context.Context, still *captureentity.Still, detections []entity.Detection) {
	if u.history == nil {
		return
	}
	e := entity.HistoryEntry{
		ImageHash: still.Hash(),
		Width:     still.Dimensions.Width,
		Height:    still.Dimensions.Height,
		Count:     len(detections),
		Backend:   u.cfg.Backend,
	}
	if len(detections) > 0 {
		e.Label = detections[0].Label
		e.Category = detections[0].Category
		e.Confidence = detections[0].Confidence
	}
	if err := u.history.Save(ctx, e); err != nil {
		slog.Warn("failed to save classification history", "error", err, "hash", e.ImageHash)
	}
}
