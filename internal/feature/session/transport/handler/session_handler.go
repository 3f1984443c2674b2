// Package handler はsessionフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"ecosort_backend/internal/api"
	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	classhandler "ecosort_backend/internal/feature/classification/transport/handler"
	"ecosort_backend/internal/feature/session/domain/entity"
	"ecosort_backend/internal/feature/session/usecase"
)

const (
	msgSessionNotFound = "会话不存在"
	msgNotLive         = "相机未开启"
	msgNoFrame         = "无法获取画面"
	msgNoImage         = "还没有拍摄图片"
)

// SessionStore はセッションの保存先を定義します。
type SessionStore interface {
	Create() *usecase.Controller
	Get(id string) (*usecase.Controller, error)
	Delete(id string) error
}

// SessionHandler はセッション操作のHTTPリクエストを処理します。
type SessionHandler struct {
	store SessionStore
}

// NewSessionHandler はSessionHandlerの新しいインスタンスを生成します。
func NewSessionHandler(store SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// Create は新しいセッションを作成します。
//
// エンドポイント: POST /v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	ctrl := h.store.Create()
	c.JSON(http.StatusCreated, toSessionResponse(ctrl.Snapshot()))
}

// Get はセッションの状態を返します。
//
// エンドポイント: GET /v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(ctrl.Snapshot()))
}

// Delete はセッションを閉じて削除します。
//
// エンドポイント: DELETE /v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: msgSessionNotFound})
			return
		}
		// 削除自体は完了しているので解放エラーはログのみ
		slog.Warn("セッションの解放に失敗", "session", c.Param("id"), "error", err)
	}
	c.Status(http.StatusNoContent)
}

// Image は現在の静止画をJPEGで返します。
//
// エンドポイント: GET /v1/sessions/:id/image
func (h *SessionHandler) Image(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	still, ok := ctrl.Still()
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: msgNoImage})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, captureentity.MIMEType, still.JPEG)
}

// Upload は画像をアップロードして分類を開始します。分類結果はGetで取得します。
//
// エンドポイント: POST /v1/sessions/:id/upload
func (h *SessionHandler) Upload(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	f, ok := classhandler.OpenUpload(c)
	if !ok {
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()

	if err := ctrl.Upload(c.Request.Context(), f); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toSessionResponse(ctrl.Snapshot()))
}

// StartLive はライブ表示と自動撮影のカウントダウンを開始します。
//
// エンドポイント: POST /v1/sessions/:id/live/start
func (h *SessionHandler) StartLive(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := ctrl.StartLive(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(ctrl.Snapshot()))
}

// StopLive はライブ表示を終了します。
//
// エンドポイント: POST /v1/sessions/:id/live/stop
func (h *SessionHandler) StopLive(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := ctrl.StopLive(); err != nil {
		slog.Warn("カメラの解放に失敗", "session", ctrl.ID(), "error", err)
	}
	c.JSON(http.StatusOK, toSessionResponse(ctrl.Snapshot()))
}

// Capture はライブ映像を撮影して分類を開始します。
//
// エンドポイント: POST /v1/sessions/:id/capture
func (h *SessionHandler) Capture(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := ctrl.CaptureLive(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toSessionResponse(ctrl.Snapshot()))
}

// Reset はセッションを初期状態に戻します。
//
// エンドポイント: POST /v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := ctrl.Reset(); err != nil {
		slog.Warn("カメラの解放に失敗", "session", ctrl.ID(), "error", err)
	}
	c.JSON(http.StatusOK, toSessionResponse(ctrl.Snapshot()))
}

// Guide は操作案内を読み上げます。
//
// エンドポイント: POST /v1/sessions/:id/guide
func (h *SessionHandler) Guide(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	ctrl.Guide()
	c.JSON(http.StatusOK, toSessionResponse(ctrl.Snapshot()))
}

func (h *SessionHandler) lookup(c *gin.Context) (*usecase.Controller, bool) {
	ctrl, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: msgSessionNotFound})
		return nil, false
	}
	return ctrl, true
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrClosed):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: msgSessionNotFound})
	case errors.Is(err, usecase.ErrCameraUnavailable):
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: usecase.CameraErrorMessage})
	case errors.Is(err, usecase.ErrNotLive):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: msgNotLive})
	case errors.Is(err, captureusecase.ErrNoFrame):
		slog.Warn("フレームの取得に失敗", "error", err)
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: msgNoFrame})
	default:
		classhandler.WriteUploadError(c, err)
	}
}

func toSessionResponse(s entity.State) api.SessionResponse {
	out := api.SessionResponse{
		Id:         s.ID,
		Live:       s.Live,
		Processing: s.Processing,
		Detections: classhandler.ToDetectionResponses(s.Detections),
		Overlays:   classhandler.ToOverlayResponses(s.Overlays),
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Countdown > 0 {
		out.Countdown = lo.ToPtr(s.Countdown)
	}
	if s.HasImage() {
		out.ImageHash = lo.ToPtr(s.ImageHash)
		out.Image = &api.ImageSize{Width: s.Dimensions.Width, Height: s.Dimensions.Height}
	}
	if s.Error != "" {
		out.Error = lo.ToPtr(s.Error)
	}
	if s.Utterance != nil {
		out.Utterance = &api.UtteranceResponse{
			Seq:  int64(s.Utterance.Seq),
			Text: s.Utterance.Text,
			Lang: s.Utterance.Lang,
		}
	}
	return out
}
