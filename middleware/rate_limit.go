package middleware

import (
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge-api/dto"
)

// RateLimiter is the admission decision surface the filter needs.
type RateLimiter interface {
	Enabled() bool
	TryConsume(clientID string) bool
	AvailableTokens(clientID string) int
	Limit() int
	RetryAfter() time.Duration
}

// RateLimitMiddleware sits first in the request pipeline and rejects over-rate
// clients with 429 before any other handler runs.
type RateLimitMiddleware struct {
	limiter        RateLimiter
	excludePaths   []string
	trustedProxies map[string]struct{}
}

func NewRateLimitMiddleware(limiter RateLimiter, excludePaths, trustedProxies []string) *RateLimitMiddleware {
	trusted := make(map[string]struct{}, len(trustedProxies))
	for _, proxy := range trustedProxies {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			trusted[proxy] = struct{}{}
		}
	}

	return &RateLimitMiddleware{
		limiter:        limiter,
		excludePaths:   excludePaths,
		trustedProxies: trusted,
	}
}

func (m *RateLimitMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.limiter.Enabled() || m.isExcluded(c.Path()) {
			return c.Next()
		}

		clientID := m.clientID(c)
		info := m.admit(clientID)

		c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))

		if info.Allowed {
			return c.Next()
		}

		retryAfter := int64(info.RetryAfter.Seconds())

		log.WithFields(log.Fields{
			"client_id": clientID,
			"path":      c.Path(),
		}).Debug("Rate limit exceeded")

		c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

		return c.Status(fiber.StatusTooManyRequests).JSON(dto.RateLimitExceededResponse{
			Timestamp:  time.Now().UTC(),
			Status:     fiber.StatusTooManyRequests,
			Error:      "Too Many Requests",
			Message:    "Rate limit exceeded. Please retry later.",
			Limit:      info.Limit,
			RetryAfter: retryAfter,
		})
	}
}

// admit runs the consume attempt and snapshots the decision. Remaining stays
// zero on a rejection.
func (m *RateLimitMiddleware) admit(clientID string) dto.RateLimitInfo {
	info := dto.RateLimitInfo{
		Limit:      m.limiter.Limit(),
		RetryAfter: m.limiter.RetryAfter(),
	}

	if m.limiter.TryConsume(clientID) {
		info.Allowed = true
		info.Remaining = m.limiter.AvailableTokens(clientID)
	}
	return info
}

func (m *RateLimitMiddleware) isExcluded(reqPath string) bool {
	for _, pattern := range m.excludePaths {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.HasSuffix(pattern, "/*") {
			if strings.HasPrefix(reqPath, strings.TrimSuffix(pattern, "*")) || reqPath == strings.TrimSuffix(pattern, "/*") {
				return true
			}
			continue
		}
		if matched, err := path.Match(pattern, reqPath); err == nil && matched {
			return true
		}
	}
	return false
}

// clientID resolves the client identifier. Forwarding headers are spoofable,
// so they are honored only when the direct peer is a configured proxy.
func (m *RateLimitMiddleware) clientID(c *fiber.Ctx) string {
	remoteIP := remoteAddrIP(c)

	if _, trusted := m.trustedProxies[remoteIP]; !trusted {
		return remoteIP
	}

	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return remoteIP
}

func remoteAddrIP(c *fiber.Ctx) string {
	addr := c.Context().RemoteAddr().String()
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return ip
}
