/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands every client IP its own token bucket refilling limit
// tokens per window.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	every  rate.Limit
	burst  int
	window time.Duration
	exempt func(path string) bool
	now    func() time.Time
}

func newRateLimiter(limit int, window time.Duration, exempt func(string) bool) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		window:   window,
		exempt:   exempt,
		now:      time.Now,
	}
}

// gameplayPath matches per-room traffic, which is never throttled.
func gameplayPath(path string) bool {
	return strings.Contains(path, "/games/buzzer/")
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// prune forgets visitors not seen since cutoff and returns how many it removed.
func (rl *rateLimiter) prune(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}

	return removed
}

// sweep prunes idle visitors once per window until ctx is done. A visitor idle
// for a full window has a full bucket again, so forgetting it changes nothing.
func (rl *rateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune(rl.now().Add(-rl.window))
		}
	}
}

func (rl *rateLimiter) middleware(cfg *Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt != nil && rl.exempt(r.URL.Path) {
			next.ServeHTTP(w, r)

			return
		}

		if !rl.allow(clientIP(r)) {
			logf(cfg, "SERVE: Throttled %s %s from %s", r.Method, r.URL.Path, realIP(r))

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			securityHeaders(cfg, w)
			w.WriteHeader(http.StatusTooManyRequests)

			io.WriteString(w, "Too many requests\n")

			return
		}

		next.ServeHTTP(w, r)
	})
}
