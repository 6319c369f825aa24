// Package ratelimit limits expensive API calls per client with token buckets.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Rule limits one method and path prefix.
type Rule struct {
	Method string        // HTTP method (GET, POST, etc.)
	Path   string        // Path prefix; "/interviews/" matches "/interviews/{id}/feedback"
	Suffix string        // Optional path suffix
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// DefaultRules protect the endpoints that call the LLM.
func DefaultRules() []Rule {
	return []Rule{
		{Method: "POST", Path: "/interviews", Limit: 10, Window: time.Hour, Burst: 3},
		{Method: "POST", Path: "/interviews/", Suffix: "/feedback", Limit: 30, Window: time.Hour, Burst: 5},
	}
}

// Info describes the limit applied to a request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func (b *bucket) take(now time.Time) (bool, time.Duration) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := (1 - b.tokens) / b.refillRate
	return false, time.Duration(wait * float64(time.Second))
}

// Limiter manages token buckets keyed by client and rule.
type Limiter struct {
	rules   []Rule
	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	swept   time.Time
	now     func() time.Time
}

// NewLimiter creates a limiter for rules. Requests matching no rule are
// always allowed.
func NewLimiter(rules []Rule) *Limiter {
	return &Limiter{
		rules:   rules,
		buckets: make(map[string]*bucket),
		idleTTL: 2 * time.Hour,
		now:     time.Now,
	}
}

// Allow consumes a token for clientID when the request matches a rule.
func (l *Limiter) Allow(clientID, method, path string) Info {
	rule := l.match(method, path)
	if rule == nil {
		return Info{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	key := clientID + "|" + rule.Method + "|" + rule.Path + rule.Suffix
	b, ok := l.buckets[key]
	if !ok {
		burst := rule.Burst
		if burst <= 0 {
			burst = rule.Limit
		}
		b = &bucket{
			capacity:   float64(burst),
			refillRate: float64(rule.Limit) / rule.Window.Seconds(),
			tokens:     float64(burst),
			lastRefill: now,
		}
		l.buckets[key] = b
	}

	allowed, retry := b.take(now)
	return Info{
		Allowed:    allowed,
		Limit:      rule.Limit,
		Remaining:  int(b.tokens),
		RetryAfter: retry,
	}
}

// match returns the most specific rule for the request.
func (l *Limiter) match(method, path string) *Rule {
	var best *Rule
	for i := range l.rules {
		r := &l.rules[i]
		if r.Method != method || r.Limit <= 0 || r.Window <= 0 {
			continue
		}
		exact := r.Suffix == "" && !strings.HasSuffix(r.Path, "/") && path == r.Path
		prefixed := strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) &&
			(r.Suffix == "" || strings.HasSuffix(path, r.Suffix))
		if !exact && !prefixed {
			continue
		}
		if best == nil || len(r.Path)+len(r.Suffix) > len(best.Path)+len(best.Suffix) {
			best = r
		}
	}
	return best
}

// sweep drops full buckets that have been idle for idleTTL.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.swept) < l.idleTTL {
		return
	}
	l.swept = now
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
}
