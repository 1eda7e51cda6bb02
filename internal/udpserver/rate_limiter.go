package udpserver

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter 入站数据报令牌桶限流。
// 超出速率的数据报由转发循环直接丢弃，不排队。
type RateLimiter struct {
	limiter    *rate.Limiter
	ratePerSec int
	burst      int
	passed     atomic.Int64
	dropped    atomic.Int64
}

// NewRateLimiter 创建限流器
// ratePerSec: 每秒放行的数据报数
// burst: 突发容量，缺省为 ratePerSec 的 2 倍
func NewRateLimiter(ratePerSec int, burst int) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 100
	}
	if burst <= 0 {
		burst = ratePerSec * 2
	}
	return &RateLimiter{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Allow 取一个令牌，失败计为丢弃
func (l *RateLimiter) Allow() bool {
	if l.limiter.Allow() {
		l.passed.Add(1)
		return true
	}
	l.dropped.Add(1)
	return false
}

// RateLimiterStats 出现在 /status 的 rate_limit 字段
type RateLimiterStats struct {
	RatePerSecond int   `json:"rate_per_second"`
	Burst         int   `json:"burst"`
	Passed        int64 `json:"passed"`
	Dropped       int64 `json:"dropped"`
}

func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		RatePerSecond: l.ratePerSec,
		Burst:         l.burst,
		Passed:        l.passed.Load(),
		Dropped:       l.dropped.Load(),
	}
}
