package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultCountdownSteps はライブ表示中の自動撮影までのカウント数です。
	DefaultCountdownSteps = 3
	// DefaultCountdownInterval はカウント1つあたりの時間です。
	DefaultCountdownInterval = time.Second
)

// Countdown はライブ表示中の自動撮影タイマーです。
type Countdown struct {
	clock    clock.Clock
	steps    int
	interval time.Duration
}

// NewCountdown は3秒カウントのCountdownを生成します。clkがnilの場合は実時間を使います。
func NewCountdown(clk clock.Clock) *Countdown {
	if clk == nil {
		clk = clock.New()
	}
	return &Countdown{clock: clk, steps: DefaultCountdownSteps, interval: DefaultCountdownInterval}
}

// Start はカウントダウンを開始します。
// onTickは残りカウント（steps, steps-1, ..., 1）ごとに、onFireは0になった時点で1回だけ呼ばれます。
// 返り値のstopを満了前に呼ぶと、onFireは呼ばれません。stopは満了まで待機します。
func (c *Countdown) Start(ctx context.Context, onTick func(remaining int), onFire func()) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	ticker := c.clock.Ticker(c.interval)

	var wg sync.WaitGroup
	wg.Add(1)

	remaining := c.steps
	if onTick != nil {
		onTick(remaining)
	}

	go func() {
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			// 停止とtickが同時に届いた場合は停止を優先する
			if ctx.Err() != nil {
				return
			}
			remaining--
			if remaining <= 0 {
				if onFire != nil {
					onFire()
				}
				return
			}
			if onTick != nil {
				onTick(remaining)
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
