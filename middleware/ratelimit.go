package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterPool keeps one token bucket per client IP and reaps buckets for
// clients that have gone quiet, so disconnected players do not accumulate.
type limiterPool struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(r rate.Limit, b int) *limiterPool {
	p := &limiterPool{buckets: make(map[string]*bucket), rate: r, burst: b}
	go p.reap(5*time.Minute, 10*time.Minute)
	return p
}

func (p *limiterPool) allow(ip string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	bk, ok := p.buckets[ip]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(p.rate, p.burst)}
		p.buckets[ip] = bk
	}
	bk.lastSeen = time.Now()
	return bk.lim.Allow()
}

func (p *limiterPool) reap(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-idle)
		p.mu.Lock()
		for ip, bk := range p.buckets {
			if bk.lastSeen.Before(cutoff) {
				delete(p.buckets, ip)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit throttles requests per client IP with a token bucket.
// r is the sustained rate, b the burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	pool := newLimiterPool(r, b)
	return func(c *gin.Context) {
		if !pool.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
