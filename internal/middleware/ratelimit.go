package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/utils"
	"golang.org/x/time/rate"
)

// RateLimiter 按客户端 IP 限流，长时间不活跃的 IP 随 LRU 淘汰
type RateLimiter struct {
	mu       sync.Mutex
	limiters *utils.LRUCache[*rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter 每分钟 perMinute 次，允许突发 burst 次
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: utils.NewLRUCache[*rate.Limiter](10000, time.Hour),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
	}
}

// Allow 判断该 IP 本次请求是否放行
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters.Set(ip, limiter)
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// Middleware 超出限额返回 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			utils.TooManyRequests(c, "")
			return
		}
		c.Next()
	}
}
