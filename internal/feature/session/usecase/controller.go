// Package usecase はsessionフィーチャーのビジネスロジックを実装します。
// 1つのControllerが1つのセッションの状態・カメラ・分類処理を所有します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"

	captureentity "ecosort_backend/internal/feature/capture/domain/entity"
	captureusecase "ecosort_backend/internal/feature/capture/usecase"
	classentity "ecosort_backend/internal/feature/classification/domain/entity"
	classusecase "ecosort_backend/internal/feature/classification/usecase"
	"ecosort_backend/internal/feature/session/domain/entity"
)

const (
	// CameraErrorMessage はカメラを開けなかったときに画面へ表示する文言です。
	CameraErrorMessage = "无法开启相机，请检查权限。"
	// LiveStartPhrase はライブ表示を開始したときに読み上げる文言です。
	LiveStartPhrase = "准备自动识别，请保持物品在中心。"
	// GuidePhrase は操作案内の文言です。
	GuidePhrase = "请对准垃圾拍照，我会自动为你分类。"
)

var (
	// ErrNotFound はセッションが存在しないことを示します。
	ErrNotFound = errors.New("session not found")
	// ErrClosed はセッションが既に閉じられていることを示します。
	ErrClosed = errors.New("session closed")
	// ErrNotLive はライブ表示中でないことを示します。
	ErrNotLive = errors.New("live view is not active")
	// ErrCameraUnavailable はカメラを開けなかったことを示します。
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// StillEncoder は入力画像を送信用の静止画に変換します。
type StillEncoder interface {
	FromUpload(ctx context.Context, r io.Reader) (*captureentity.Still, error)
	FromFrame(frame image.Image) (*captureentity.Still, error)
}

// Classifier は静止画を分類します。
type Classifier interface {
	Classify(ctx context.Context, still *captureentity.Still) (*classentity.Outcome, error)
}

// Speaker は文言を読み上げます。新しい読み上げは前の読み上げを打ち切ります。
type Speaker interface {
	Speak(ctx context.Context, text, lang string) error
}

// Dependencies はControllerが利用する協調オブジェクトです。
// SourceとSpeakerはnilでも構いません（ライブ表示と読み上げが無効になります）。
type Dependencies struct {
	Encoder    StillEncoder
	Source     captureusecase.FrameSource
	Classifier Classifier
	Speaker    Speaker
	Countdown  *captureusecase.Countdown
	Clock      clock.Clock
}

// Controller は1つのセッションの状態を所有します。
type Controller struct {
	id        string
	encoder   StillEncoder
	source    captureusecase.FrameSource
	clf       Classifier
	speaker   Speaker
	countdown *captureusecase.Countdown
	clock     clock.Clock

	// バックグラウンド処理の親コンテキスト。Closeでキャンセルされる
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	state          entity.State
	still          *captureentity.Still
	stream         captureusecase.Stream
	stopCountdown  func()
	liveSeq        uint64
	cancelClassify context.CancelFunc
	generation     uint64
	utterSeq       uint64
	closed         bool
}

// NewController はControllerの新しいインスタンスを生成します。
func NewController(id string, deps Dependencies) *Controller {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	cd := deps.Countdown
	if cd == nil {
		cd = captureusecase.NewCountdown(clk)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:        id,
		encoder:   deps.Encoder,
		source:    deps.Source,
		clf:       deps.Classifier,
		speaker:   deps.Speaker,
		countdown: cd,
		clock:     clk,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.state.ID = id
	c.state.UpdatedAt = clk.Now()
	return c
}

// ID はセッションIDを返します。
func (c *Controller) ID() string {
	return c.id
}

// StartLive はセッションをリセットしてカメラを開き、自動撮影のカウントダウンを開始します。
// カメラを開けない場合は画面用のエラー文言を設定し、ErrCameraUnavailableを返します。
func (c *Controller) StartLive(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	release := c.detachLocked()
	c.cancelInFlightLocked()
	c.clearLocked()
	seq := c.liveSeq
	c.mu.Unlock()
	c.releaseAndLog(release)

	if c.source == nil {
		c.cameraFailed(seq)
		return ErrCameraUnavailable
	}
	stream, err := c.source.Open(ctx)
	if err != nil {
		slog.Warn("failed to open camera", "session", c.id, "error", err)
		c.cameraFailed(seq)
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	c.mu.Lock()
	if c.closed || seq != c.liveSeq {
		c.mu.Unlock()
		// 開いている間に停止・リセットされた
		if err := stream.Close(); err != nil {
			slog.Warn("failed to close camera stream", "session", c.id, "error", err)
		}
		return ErrNotLive
	}
	c.stream = stream
	c.state.Live = true
	c.touchLocked()
	c.mu.Unlock()

	c.say(LiveStartPhrase, classentity.SpeechLang)

	stop := c.countdown.Start(c.ctx,
		func(remaining int) { c.tick(seq, remaining) },
		func() { c.fire(seq) },
	)

	c.mu.Lock()
	if c.closed || seq != c.liveSeq {
		c.mu.Unlock()
		stop()
		return nil
	}
	c.stopCountdown = stop
	c.mu.Unlock()
	return nil
}

// StopLive はカウントダウンを止め、カメラを解放します。ライブ表示中でなければ何もしません。
func (c *Controller) StopLive() error {
	c.mu.Lock()
	release := c.detachLocked()
	c.touchLocked()
	c.mu.Unlock()
	return release()
}

// CaptureLive はライブ映像の現在のフレームを撮影し、分類を開始します。
// 撮影に失敗した場合は状態を変えずにエラーを返します。
func (c *Controller) CaptureLive(ctx context.Context) error {
	return c.captureLive(ctx, nil)
}

// Upload はアップロードされた画像を読み込み、分類を開始します。
// 読み込みに失敗した場合は状態を変えずにエラーを返します。
func (c *Controller) Upload(ctx context.Context, r io.Reader) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	still, err := c.encoder.FromUpload(ctx, r)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	release := c.detachLocked()
	c.beginLocked(still)
	c.mu.Unlock()
	c.releaseAndLog(release)
	return nil
}

// Reset は静止画・検出結果・処理中フラグ・ライブ表示をすべてクリアし、実行中の分類を破棄します。
func (c *Controller) Reset() error {
	c.mu.Lock()
	release := c.detachLocked()
	c.cancelInFlightLocked()
	c.clearLocked()
	c.mu.Unlock()
	return release()
}

// Guide は操作案内を読み上げます。
func (c *Controller) Guide() {
	c.say(GuidePhrase, classentity.SpeechLang)
}

// Snapshot は現在の状態のコピーを返します。
func (c *Controller) Snapshot() entity.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Detections = slices.Clone(c.state.Detections)
	s.Overlays = slices.Clone(c.state.Overlays)
	if c.state.Utterance != nil {
		u := *c.state.Utterance
		s.Utterance = &u
	}
	return s
}

// Still は現在の静止画を返します。
func (c *Controller) Still() (*captureentity.Still, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.still, c.still != nil
}

// Close はカメラ・カウントダウン・実行中の分類をすべて解放します。2回目以降は何もしません。
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	release := c.detachLocked()
	c.cancelInFlightLocked()
	c.mu.Unlock()

	c.cancel()
	err := release()
	c.wg.Wait()
	return err
}

func (c *Controller) captureLive(ctx context.Context, want *uint64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.stream == nil || (want != nil && *want != c.liveSeq) {
		c.mu.Unlock()
		return ErrNotLive
	}
	stream, seq := c.stream, c.liveSeq
	c.mu.Unlock()

	frame, err := stream.Frame(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", captureusecase.ErrNoFrame, err)
	}
	still, err := c.encoder.FromFrame(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if seq != c.liveSeq {
		c.mu.Unlock()
		return ErrNotLive
	}
	release := c.detachLocked()
	c.beginLocked(still)
	c.mu.Unlock()
	c.releaseAndLog(release)
	return nil
}

// beginLocked は新しい静止画を採用し、バックグラウンドで分類を開始します。
func (c *Controller) beginLocked(still *captureentity.Still) {
	c.cancelInFlightLocked()
	gen := c.generation

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelClassify = cancel

	c.still = still
	c.state.ImageHash = still.Hash()
	c.state.Dimensions = still.Dimensions
	c.state.Detections = nil
	c.state.Overlays = nil
	c.state.Error = ""
	c.state.Processing = true
	c.touchLocked()

	c.wg.Add(1)
	go c.classify(ctx, gen, still)
}

func (c *Controller) classify(ctx context.Context, gen uint64, still *captureentity.Still) {
	defer c.wg.Done()

	out, err := c.clf.Classify(ctx, still)

	c.mu.Lock()
	if c.closed || gen != c.generation || ctx.Err() != nil {
		c.mu.Unlock()
		slog.Debug("dropping stale classification result", "session", c.id, "generation", gen)
		return
	}
	if c.cancelClassify != nil {
		c.cancelClassify()
		c.cancelClassify = nil
	}

	var ann classentity.Announcement
	c.state.Processing = false
	if err != nil {
		slog.Error("classification failed", "session", c.id, "error", err)
		c.state.Error = classusecase.UserErrorMessage
		c.state.Detections = []classentity.Detection{}
		c.state.Overlays = []classentity.OverlayRect{}
		ann = classusecase.FailureAnnouncement()
	} else {
		c.state.Detections = out.Detections
		c.state.Overlays = out.Overlays
		ann = out.Announcement
	}
	c.touchLocked()
	u := c.utterLocked(ann.Text, ann.Lang)
	c.mu.Unlock()

	c.speak(u)
}

// detachLocked はストリームとカウントダウンを切り離し、ライブ表示を終了します。
// 返り値の関数はロックを外してから呼ぶこと。
func (c *Controller) detachLocked() func() error {
	stream, stop := c.stream, c.stopCountdown
	c.stream = nil
	c.stopCountdown = nil
	c.liveSeq++
	c.state.Live = false
	c.state.Countdown = 0
	return func() error {
		if stop != nil {
			stop()
		}
		if stream != nil {
			return stream.Close()
		}
		return nil
	}
}

func (c *Controller) cancelInFlightLocked() {
	if c.cancelClassify != nil {
		c.cancelClassify()
		c.cancelClassify = nil
	}
	c.generation++
}

func (c *Controller) clearLocked() {
	c.still = nil
	c.state.ImageHash = ""
	c.state.Dimensions = classentity.ImageDimensions{}
	c.state.Detections = nil
	c.state.Overlays = nil
	c.state.Processing = false
	c.state.Error = ""
	c.touchLocked()
}

func (c *Controller) touchLocked() {
	c.state.UpdatedAt = c.clock.Now()
}

func (c *Controller) releaseAndLog(release func() error) {
	if err := release(); err != nil {
		slog.Warn("failed to release camera", "session", c.id, "error", err)
	}
}

func (c *Controller) cameraFailed(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.liveSeq {
		return
	}
	c.state.Error = CameraErrorMessage
	c.touchLocked()
}

func (c *Controller) tick(seq uint64, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.liveSeq {
		return
	}
	c.state.Countdown = remaining
	c.touchLocked()
}

// fire はカウントダウンのゴルーチン上で呼ばれます。
// 自分自身のstopを待つとデッドロックするため、先に切り離してから撮影します。
func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.liveSeq {
		c.mu.Unlock()
		return
	}
	c.stopCountdown = nil
	c.state.Countdown = 0
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	if err := c.captureLive(c.ctx, &seq); err != nil {
		slog.Warn("auto capture failed", "session", c.id, "error", err)
	}
}

func (c *Controller) say(text, lang string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	u := c.utterLocked(text, lang)
	c.mu.Unlock()
	c.speak(u)
}

func (c *Controller) utterLocked(text, lang string) entity.Utterance {
	c.utterSeq++
	u := entity.Utterance{Seq: c.utterSeq, Text: text, Lang: lang}
	c.state.Utterance = &u
	return u
}

func (c *Controller) speak(u entity.Utterance) {
	if c.speaker == nil {
		return
	}
	if err := c.speaker.Speak(c.ctx, u.Text, u.Lang); err != nil {
		slog.Warn("failed to speak", "session", c.id, "error", err)
	}
}
