// Package throttle 控制器下发帧节流
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 基于Token Bucket的下发帧限速器
// 控制器串口处理能力有限，连续命令之间需要节流
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter 创建限速器
// ratePerSec: 每秒允许下发的帧数（<=0 时按10）；burst: 桶容量（<=0 时按1）
func NewRateLimiter(ratePerSec int, burst int) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Wait 阻塞到允许下发一帧，返回实际等待时长
// ctx 取消或剩余期限不足以等到令牌时立即返回错误，不消耗令牌
func (l *RateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	return time.Since(start), err
}
