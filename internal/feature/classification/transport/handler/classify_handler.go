// Package handler はclassificationフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"ecosort_backend/internal/api"
	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	"ecosort_backend/internal/feature/classification/domain/entity"
	"ecosort_backend/internal/feature/classification/usecase"
)

// クライアントに返すエラー文言
const (
	MsgImageRequired = "请上传图片文件"
	MsgImageInvalid  = "无法读取图片"
	MsgImageTooLarge = "图片不能超过 10MB"
	MsgInternal      = "服务器内部错误"
	msgInvalidLimit  = "limit 参数无效"
)

// ClassifyUsecase は分類ユースケースのインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ClassifyUsecase interface {
	Classify(ctx context.Context, still *captureentity.Still) (*entity.Outcome, error)
	History(ctx context.Context, limit int) ([]entity.HistoryEntry, error)
}

// StillDecoder はアップロード画像を静止画に変換します。
type StillDecoder interface {
	FromUpload(ctx context.Context, r io.Reader) (*captureentity.Still, error)
}

// ClassifyHandler は分類関連のHTTPリクエストを処理します。
type ClassifyHandler struct {
	uc      ClassifyUsecase
	decoder StillDecoder
}

// NewClassifyHandler はClassifyHandlerの新しいインスタンスを生成します。
func NewClassifyHandler(uc ClassifyUsecase, decoder StillDecoder) *ClassifyHandler {
	return &ClassifyHandler{uc: uc, decoder: decoder}
}

// Classify は画像をアップロードして分類します。
//
// エンドポイント: POST /v1/classify
// Content-Type: multipart/form-data
// フィールド: image（画像ファイル、最大10MB）
func (h *ClassifyHandler) Classify(c *gin.Context) {
	still, ok := ReadUpload(c, h.decoder)
	if !ok {
		return
	}

	out, err := h.uc.Classify(c.Request.Context(), still)
	if err != nil {
		slog.Error("分類に失敗", "error", err)
		if errors.Is(err, usecase.ErrNoImage) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: MsgImageRequired})
			return
		}
		ann := usecase.FailureAnnouncement()
		c.JSON(http.StatusBadGateway, api.ClassificationErrorResponse{
			Error:        usecase.UserErrorMessage,
			Announcement: api.AnnouncementResponse{Text: ann.Text, Lang: ann.Lang},
		})
		return
	}

	c.JSON(http.StatusOK, ToClassificationResponse(out))
}

// Categories は4分類と表示スタイルの一覧を返します。
//
// エンドポイント: GET /v1/categories
func (h *ClassifyHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, lo.Map(entity.Categories, func(cat entity.Category, _ int) api.CategoryResponse {
		return toCategoryResponse(cat)
	}))
}

// History は最近の分類履歴を返します。
//
// エンドポイント: GET /v1/history?limit=N
func (h *ClassifyHandler) History(c *gin.Context) {
	var params api.ListHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil || lo.FromPtr(params.Limit) < 0 {
		slog.Warn("履歴取得パラメータが不正", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: msgInvalidLimit})
		return
	}

	entries, err := h.uc.History(c.Request.Context(), lo.FromPtr(params.Limit))
	if err != nil {
		slog.Error("履歴の取得に失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: MsgInternal})
		return
	}

	c.JSON(http.StatusOK, lo.Map(entries, func(e entity.HistoryEntry, _ int) api.HistoryEntryResponse {
		return toHistoryResponse(e)
	}))
}

// ReadUpload はmultipartのimageフィールドを静止画に変換します。
// 失敗した場合はエラーレスポンスを書き込み、falseを返します。
func ReadUpload(c *gin.Context, decoder StillDecoder) (*captureentity.Still, bool) {
	f, ok := OpenUpload(c)
	if !ok {
		return nil, false
	}
	defer closeUpload(f)

	still, err := decoder.FromUpload(c.Request.Context(), f)
	if err != nil {
		WriteUploadError(c, err)
		return nil, false
	}
	return still, true
}

// OpenUpload はmultipartのimageフィールドを開きます。呼び出し側で必ずCloseすること。
// 失敗した場合はエラーレスポンスを書き込み、falseを返します。
func OpenUpload(c *gin.Context) (io.ReadCloser, bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		slog.Warn("画像ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: MsgImageRequired})
		return nil, false
	}

	var body api.ClassifyImageMultipartBody
	body.Image.InitFromMultipart(fh)
	if body.Image.FileSize() > captureusecase.MaxImageSize {
		slog.Warn("画像サイズが上限を超過", "size", body.Image.FileSize(), "filename", body.Image.Filename())
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: MsgImageTooLarge})
		return nil, false
	}

	f, err := body.Image.Reader()
	if err != nil {
		slog.Error("画像ファイルのオープンに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: MsgInternal})
		return nil, false
	}
	return f, true
}

// WriteUploadError は画像の読み込みエラーをHTTPステータスに対応付けて書き込みます。
func WriteUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, captureusecase.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: MsgImageTooLarge})
	case errors.Is(err, captureusecase.ErrEmptyImage), errors.Is(err, captureusecase.ErrDecodeFailed):
		slog.Warn("画像のデコードに失敗", "error", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: MsgImageInvalid})
	default:
		slog.Error("画像の読み込みに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: MsgInternal})
	}
}

func closeUpload(f io.Closer) {
	if err := f.Close(); err != nil {
		slog.Warn("画像ファイルのクローズに失敗", "error", err)
	}
}
