package edupress

import (
	"sync"
	"time"
)

// AuthLimiter counts failed authentications per IP address over a sliding
// window.
type AuthLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewAuthLimiter allows up to max failures per window for each IP. A
// non-positive max disables limiting.
func NewAuthLimiter(max int, window time.Duration) *AuthLimiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &AuthLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *AuthLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip := range l.failures {
				l.prune(ip, now)
			}
			l.mu.Unlock()
		}
	}
}

// prune drops failures older than the window. Callers hold l.mu.
func (l *AuthLimiter) prune(ip string, now time.Time) int {
	cutoff := now.Add(-l.window)
	hits := l.failures[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, ip)
		return 0
	}
	l.failures[ip] = kept
	return len(kept)
}

// Check reports whether ip may attempt to authenticate.
func (l *AuthLimiter) Check(ip string) bool {
	if l.max <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(ip, time.Now()) < l.max
}

// Record registers a failed authentication for ip.
func (l *AuthLimiter) Record(ip string) {
	l.mu.Lock()
	l.failures[ip] = append(l.failures[ip], time.Now())
	l.mu.Unlock()
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *AuthLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
