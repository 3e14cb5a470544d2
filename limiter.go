package overlaystudio

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ExportLimiter rate-limits exports per IP address with a token bucket.
type ExportLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewExportLimiter allows perMinute exports per IP with bursts of burst.
// Buckets unused for idle are dropped.
func NewExportLimiter(perMinute, burst int, idle time.Duration) *ExportLimiter {
	perMinute = max(perMinute, 1)
	l := &ExportLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     idle,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *ExportLimiter) cleanup() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.idle)
			l.mu.Lock()
			for ip, v := range l.visitors {
				if v.seen.Before(cutoff) {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow reports whether ip may export now and consumes a token if so.
func (l *ExportLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.seen = time.Now()
	return v.limiter.Allow()
}

// Close stops the cleanup goroutine.
func (l *ExportLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
