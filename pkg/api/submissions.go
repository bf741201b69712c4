package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/dao"
	"label-catalog-api/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SubmissionRateLimiter limits demo submissions per client IP. Forwarding
// headers are only believed when the connection comes from a trusted proxy.
type SubmissionRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
	trusted  []*net.IPNet
}

func NewSubmissionRateLimiter(perMinute float64, burst int) *SubmissionRateLimiter {
	return &SubmissionRateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		now:      time.Now,
	}
}

// TrustProxies sets the proxies allowed to report the client address. Each
// entry is a CIDR or a single IP.
func (rl *SubmissionRateLimiter) TrustProxies(proxies []string) error {
	trusted := make([]*net.IPNet, 0, len(proxies))
	for _, proxy := range proxies {
		proxy = strings.TrimSpace(proxy)
		if !strings.Contains(proxy, "/") {
			ip := net.ParseIP(proxy)
			if ip == nil {
				return fmt.Errorf("invalid trusted proxy %q", proxy)
			}
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			proxy = fmt.Sprintf("%s/%d", proxy, bits)
		}
		_, network, err := net.ParseCIDR(proxy)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", proxy, err)
		}
		trusted = append(trusted, network)
	}
	rl.trusted = trusted
	return nil
}

// Run evicts idle entries until ctx is done.
func (rl *SubmissionRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(15 * time.Minute)
		}
	}
}

func (rl *SubmissionRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		if !rl.allow(ip) {
			logrus.WithField("ip", ip).Warn("Submission rate limit exceeded")
			respondWithAppError(w, fmt.Errorf("%w: too many submissions, try again later", apperr.ErrRateLimited))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *SubmissionRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.limiters[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (rl *SubmissionRateLimiter) evict(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > idle {
			delete(rl.limiters, ip)
		}
	}
}

// clientIP walks X-Forwarded-For from the right and returns the first hop that
// is not a trusted proxy. Headers from untrusted peers are ignored.
func (rl *SubmissionRateLimiter) clientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !rl.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				return remote
			}
			if !rl.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); net.ParseIP(xri) != nil {
		return xri
	}
	return remote
}

func (rl *SubmissionRateLimiter) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range rl.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func createSubmission(handler dao.DbHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		body, err := readBody(w, r)
		if err != nil {
			respondWithAppError(w, err)
			return
		}

		var submission models.Submission
		if _, err := models.MergePatch(&submission, body); err != nil {
			respondWithAppError(w, err)
			return
		}

		id, err := handler.Create(r.Context(), models.SubmissionCollection, "", submission)
		if err != nil {
			logrus.WithError(err).Error("Error saving submission")
			respondWithAppError(w, err)
			return
		}

		logrus.WithField("id", id).Info("Demo submission received")
		respondWithSuccess(w, http.StatusCreated, map[string]string{"id": id})
	}
}
