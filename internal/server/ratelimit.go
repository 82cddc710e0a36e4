// internal/server/ratelimit.go
package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"transferd/internal/auth"
)

// rateLimiter 以呼叫者身分為 key 的 token bucket；key 數量以 LRU 上限控制。
type rateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *lru.Cache[string, *rate.Limiter]
}

func newRateLimiter(perSecond float64, burst, maxKeys int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	c, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		panic(err) // 只在 maxKeys <= 0 時發生
	}
	return &rateLimiter{limit: rate.Limit(perSecond), burst: burst, limiters: c}
}

func (l *rateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(key, lim)
	return lim
}

// middleware 超出額度時回傳 429 與 Retry-After。
func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := l.get(limiterKey(r))
		res := lim.Reserve()
		if d := res.Delay(); d > 0 {
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
			writeProblem(w, http.StatusTooManyRequests, "RateLimited", "too many transfer requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterKey 以驗證身分為主；匿名時改用來源 IP。
func limiterKey(r *http.Request) string {
	if id, ok := auth.FromContext(r.Context()); ok && id.Method != "none" {
		return "sub:" + id.Subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
