// Package http は外部API・ネットワークカメラ向けのHTTPクライアントを提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent は外部呼び出しに付与するUser-Agentです。
const DefaultUserAgent = "ecosort-backend"

// Option はクライアント生成時の設定を変更します。
type Option func(*options)

type options struct {
	maxIdleConnsPerHost int
	userAgent           string
}

// WithMaxIdleConnsPerHost は1ホストあたりのアイドル接続数を設定します。
// 同じカメラを繰り返しポーリングする場合に接続を使い回せます。
func WithMaxIdleConnsPerHost(n int) Option {
	return func(o *options) { o.maxIdleConnsPerHost = n }
}

// WithUserAgent はUser-Agentヘッダーを上書きします。
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// NewHTTPClient は外部呼び出し用に設定されたHTTPクライアントを作成します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト（デフォルトより短い）
//   - IdleConnTimeout: アイドル接続の維持期間
//   - Client.Timeout: リクエスト全体のタイムアウト（0なら無制限。Geminiは呼び出し側のctxで制御）
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にカスタムクライアントを使用すること
func NewHTTPClient(timeout time.Duration, opts ...Option) *http.Client {
	o := options{maxIdleConnsPerHost: 4, userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(&o)
	}

	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: o.maxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{Timeout: timeout, Transport: &userAgentTransport{base: t, ua: o.userAgent}}
}

// userAgentTransport は未設定のリクエストにUser-Agentを付与します。
type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ua == "" || req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}
