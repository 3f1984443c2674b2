// Package gemini はGoogle Gemini APIを使用したゴミ分類クライアントを提供します。
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	"ecosort_backend/internal/feature/classification/domain/entity"
	"ecosort_backend/internal/feature/classification/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-3-flash-preview"
)

// Config はGeminiクライアントの設定です。
type Config struct {
	APIKey  string // 空の場合はADC（GOOGLE_GENAI_USE_VERTEXAI など）を使用
	Model   string
	BaseURL string // テスト・プロキシ用の接続先上書き
}

// LoadConfig は環境変数からGeminiの設定を読み込みます。
func LoadConfig() Config {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("API_KEY")
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = DefaultModel
	}
	return Config{APIKey: key, Model: model, BaseURL: os.Getenv("GEMINI_BASE_URL")}
}

// GeminiClassifier はGoogle Gemini APIを使用して画像内のゴミを分類します。
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// GeminiClassifierがClassifierを実装していることをコンパイル時に検証します。
var _ usecase.Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier はGeminiClassifierの新しいインスタンスを生成します。
func NewGeminiClassifier(ctx context.Context, cfg Config, httpClient *http.Client) (*GeminiClassifier, error) {
	cc := &genai.ClientConfig{HTTPClient: httpClient}
	if cfg.APIKey != "" {
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

// Classify はJPEG画像をGeminiに送り、検出結果を返します。
// 応答JSONが解析できない場合はエラーにせず空の結果を返します。
func (g *GeminiClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(imageData, captureentity.MIMEType),
			genai.NewPartFromText(userPrompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API request failed: %w", err)
	}

	return parseResults(resp.Text()), nil
}

// wireResponse はレスポンススキーマに対応する構造体です。
type wireResponse struct {
	Results []wireDetection `json:"results"`
}

type wireDetection struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Box        struct {
		YMin float64 `json:"ymin"`
		XMin float64 `json:"xmin"`
		YMax float64 `json:"ymax"`
		XMax float64 `json:"xmax"`
	} `json:"box"`
}

// parseResults はモデルの応答テキストを検出結果に変換します。
// 解析できない応答は空の結果として扱います。
func parseResults(text string) []entity.Detection {
	var w wireResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &w); err != nil {
		slog.Warn("failed to parse gemini response", "error", err, "length", len(text))
		return []entity.Detection{}
	}

	out := make([]entity.Detection, 0, len(w.Results))
	for _, r := range w.Results {
		out = append(out, entity.Detection{
			Label:      r.Name,
			Category:   entity.ParseCategory(r.Category),
			Confidence: r.Confidence,
			Box: entity.BoundingBox{
				YMin: r.Box.YMin,
				XMin: r.Box.XMin,
				YMax: r.Box.YMax,
				XMax: r.Box.XMax,
			},
		})
	}
	return out
}
