package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is an in-memory token bucket per client
type RateLimiter struct {
	clients map[string]*clientLimit
	now     func() time.Time
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	mu      sync.Mutex
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per client
// with bursts up to burst. Clients idle longer than idleTTL are forgotten.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimit),
		now:     time.Now,
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
	}
}

// Middleware returns a rate limiting middleware
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	now := rl.now()
	client, exists := rl.clients[clientID]
	if !exists {
		client = &clientLimit{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientID] = client
	}
	client.lastSeen = now
	rl.mu.Unlock()

	return client.limiter.AllowN(now, 1)
}

// Cleanup forgets clients idle longer than idleTTL until stop is closed
func (rl *RateLimiter) Cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	for clientID, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, clientID)
		}
	}
}

// clientKey identifies the caller: the acting user once RequireActor has
// accepted it, else the IP. The raw actor header is never trusted here.
func clientKey(r *http.Request) string {
	if actor := GetActorID(r); actor != "" {
		return "actor:" + actor
	}
	return "ip:" + getClientIP(r)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// first hop of X-Forwarded-For is the original client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
