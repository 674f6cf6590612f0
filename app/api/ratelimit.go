package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimitMiddleware enforces a per-client-IP token bucket: max requests
// per window, with a burst of the full window allowance. Idle clients are
// pruned lazily so the limiter map cannot grow without bound.
func rateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	limit := rate.Limit(float64(maxRequests) / window.Seconds())

	prune := func(now time.Time) {
		for ip, c := range clients {
			if now.Sub(c.lastSeen) > 3*window {
				delete(clients, ip)
			}
		}
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		entry, ok := clients[ip]
		if !ok {
			if len(clients) > 1024 {
				prune(now)
			}
			entry = &client{limiter: rate.NewLimiter(limit, maxRequests)}
			clients[ip] = entry
		}
		entry.lastSeen = now
		allowed := entry.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
