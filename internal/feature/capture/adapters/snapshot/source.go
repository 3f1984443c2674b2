package snapshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"

	"ecosort_backend/internal/feature/capture/usecase"
)

// maxFrameSize は1フレームとして受け付ける最大バイト数です。
const maxFrameSize = usecase.MaxImageSize

// ErrStreamClosed はClose済みのストリームからフレームを取得しようとしたことを示します。
var ErrStreamClosed = errors.New("camera stream is closed")

// Source はHTTPスナップショットカメラのFrameSource実装です。
type Source struct {
	cfg    Config
	client *http.Client
}

// SourceがFrameSourceを実装していることをコンパイル時に検証します。
var _ usecase.FrameSource = (*Source)(nil)

// NewSource は指定された設定とHTTPクライアントでSourceの新しいインスタンスを生成します。
func NewSource(cfg Config, client *http.Client) *Source {
	return &Source{cfg: cfg, client: client}
}

// Open はカメラに1フレーム要求して疎通を確認し、ストリームを返します。
// カメラに到達できない場合は権限エラーと同様に扱われます。
func (s *Source) Open(ctx context.Context) (usecase.Stream, error) {
	if !s.cfg.Enabled() {
		return nil, fmt.Errorf("camera snapshot url is not configured")
	}
	st := &stream{src: s}
	if _, err := st.Frame(ctx); err != nil {
		return nil, fmt.Errorf("failed to open camera: %w", err)
	}
	slog.Info("camera stream opened", "url", s.cfg.URL)
	return st, nil
}

func (s *Source) frameURL() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if s.cfg.Width > 0 {
		q.Set("width", strconv.Itoa(s.cfg.Width))
	}
	if s.cfg.Height > 0 {
		q.Set("height", strconv.Itoa(s.cfg.Height))
	}
	if s.cfg.Facing != "" {
		q.Set("facing", s.cfg.Facing)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// stream は1回のライブ表示中に確保されるカメラストリームです。
type stream struct {
	src *Source

	mu     sync.Mutex
	closed bool
}

// Frame はカメラから現在のスナップショットを取得します。
func (st *stream) Frame(ctx context.Context) (image.Image, error) {
	st.mu.Lock()
	closed := st.closed
	st.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}

	u, err := st.src.frameURL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/jpeg")

	res, err := st.src.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", res.StatusCode)
	}

	img, err := imaging.Decode(io.LimitReader(res.Body, maxFrameSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// Close はストリームを解放します。2回目以降の呼び出しは何もしません。
func (st *stream) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil
	}
	st.closed = true
	st.src.client.CloseIdleConnections()
	return nil
}
