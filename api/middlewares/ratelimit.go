package middlewares

import (
	"net/http"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moyoez/localshare-go/tool"
)

const limiterIdleTTL = 10 * time.Minute

// LoginLimiter throttles password attempts per client IP. Idle limiters
// expire from the cache on their own.
type LoginLimiter struct {
	mu        sync.Mutex
	perMinute int
	limiters  *ttlworker.Cache[string, *rate.Limiter]
}

// NewLoginLimiter allows perMinute attempts per IP with an equal burst.
// A non-positive perMinute returns nil, which never throttles.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &LoginLimiter{
		perMinute: perMinute,
		limiters:  ttlworker.NewCache[string, *rate.Limiter](limiterIdleTTL),
	}
}

// Allow consumes one attempt for ip.
func (l *LoginLimiter) Allow(ip string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim := l.limiters.Get(ip)
	if lim == nil {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
	}
	// Set refreshes the entry's ttl
	l.limiters.Set(ip, lim)
	return lim.Allow()
}

// Middleware answers 429 once ip has used up its attempts.
func (l *LoginLimiter) Middleware(c *gin.Context) {
	if !l.Allow(c.ClientIP()) {
		tool.DefaultLogger.Warnf("[Login] Too many attempts from %s", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusTooManyRequests, tool.FastReturnError("too_many_attempts"))
		return
	}
	c.Next()
}
