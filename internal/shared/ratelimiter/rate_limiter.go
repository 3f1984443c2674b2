// Package ratelimiter は外部API呼び出しの頻度制限を提供します。
package ratelimiter

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter は、分類モデル呼び出しなどの操作の頻度を制限します。
type RateLimiter struct {
	limiter *rate.Limiter
	limit   int // 1分あたりの上限
}

// NewRateLimiter は1分あたりperMinute回まで許可するRateLimiterを生成します。
// perMinuteが0以下の場合は制限しません。
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	// 1分の枠内ならperMinute回まで連続で許可する
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		limit:   perMinute,
	}
}

// Wait はトークンが得られるまで待機します。ctxがキャンセルされた場合はエラーを返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	r := rl.limiter.Reserve()
	if !r.OK() {
		return rl.limiter.Wait(ctx)
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	slog.Info("rate limit reached, waiting", "limit_per_minute", rl.limit, "delay", delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Allow は待たずに実行できる場合にtrueを返します。
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}
