package admission

import (
	"sync"
	"time"
)

// WindowLimiter is a fixed-window request counter keyed by caller identity.
// All mutation happens under one mutex so concurrent bursts cannot
// undercount. State is process-scoped; it dies with the process.
type WindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
	now    func() time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewWindowLimiter allows limit requests per caller per window.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]*windowCount),
		now:    time.Now,
	}
}

// Allow records one request for caller and reports whether it fits in the
// current window.
func (l *WindowLimiter) Allow(caller string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	c := l.counts[caller]
	if c == nil || now.Sub(c.start) >= l.window {
		// New window; lazily drop counters from expired windows so the map
		// does not grow with caller churn.
		if len(l.counts) > 1024 {
			for k, v := range l.counts {
				if now.Sub(v.start) >= l.window {
					delete(l.counts, k)
				}
			}
		}
		l.counts[caller] = &windowCount{start: now, n: 1}
		return true
	}
	if c.n >= l.limit {
		return false
	}
	c.n++
	return true
}
