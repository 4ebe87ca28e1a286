package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	evictEvery = 5 * time.Minute
	idleFor    = 10 * time.Minute
)

// visitorLimiter keeps a token bucket per client IP and evicts idle entries.
// Eviction runs inline on the request path so the limiter owns no goroutine.
type visitorLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       rate.Limit
	burst     int
	lastEvict time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newVisitorLimiter(rps float64, burst int) *visitorLimiter {
	return &visitorLimiter{
		visitors:  make(map[string]*visitor),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastEvict: time.Now(),
		now:       time.Now,
	}
}

func (vl *visitorLimiter) allow(ip string) bool {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	now := vl.now()
	if now.Sub(vl.lastEvict) > evictEvery {
		for k, v := range vl.visitors {
			if now.Sub(v.lastSeen) > idleFor {
				delete(vl.visitors, k)
			}
		}
		vl.lastEvict = now
	}

	v, ok := vl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(vl.rps, vl.burst)}
		vl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// RateLimit throttles requests per client IP. Used on the public verification
// endpoint so token guessing stays impractical.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	vl := newVisitorLimiter(rps, burst)
	return func(c *gin.Context) {
		if !vl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
