package inspect

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter spaces consecutive page loads against the same host.
type hostLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return &hostLimiter{interval: interval, limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until a page load against the URL's host is allowed.
func (h *hostLimiter) Wait(ctx context.Context, pageURL string) error {
	if h == nil || h.interval <= 0 {
		return nil
	}
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return nil
	}
	host := strings.ToLower(parsed.Hostname())

	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.interval), 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
