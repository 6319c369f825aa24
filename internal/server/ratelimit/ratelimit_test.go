package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(rules []Rule) (*Limiter, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(rules)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllow_BurstThenLimited(t *testing.T) {
	l, _ := newTestLimiter([]Rule{{Method: "POST", Path: "/interviews", Limit: 10, Window: time.Hour, Burst: 2}})

	assert.True(t, l.Allow("1.2.3.4", "POST", "/interviews").Allowed)
	assert.True(t, l.Allow("1.2.3.4", "POST", "/interviews").Allowed)

	info := l.Allow("1.2.3.4", "POST", "/interviews")
	assert.False(t, info.Allowed)
	assert.Equal(t, 10, info.Limit)
	assert.InDelta(t, float64(6*time.Minute), float64(info.RetryAfter), float64(time.Millisecond))
}

func TestAllow_Refills(t *testing.T) {
	l, now := newTestLimiter([]Rule{{Method: "POST", Path: "/interviews", Limit: 60, Window: time.Minute, Burst: 1}})

	assert.True(t, l.Allow("c", "POST", "/interviews").Allowed)
	assert.False(t, l.Allow("c", "POST", "/interviews").Allowed)

	*now = now.Add(time.Second)
	assert.True(t, l.Allow("c", "POST", "/interviews").Allowed)
}

func TestAllow_PerClient(t *testing.T) {
	l, _ := newTestLimiter([]Rule{{Method: "POST", Path: "/interviews", Limit: 1, Window: time.Hour}})

	assert.True(t, l.Allow("a", "POST", "/interviews").Allowed)
	assert.False(t, l.Allow("a", "POST", "/interviews").Allowed)
	assert.True(t, l.Allow("b", "POST", "/interviews").Allowed)
}

func TestAllow_Unmatched(t *testing.T) {
	l, _ := newTestLimiter(DefaultRules())

	for i := 0; i < 50; i++ {
		assert.True(t, l.Allow("c", "GET", "/interviews/abc").Allowed)
		assert.True(t, l.Allow("c", "GET", "/health").Allowed)
	}
}

func TestMatch(t *testing.T) {
	l := NewLimiter(DefaultRules())

	tests := []struct {
		method, path string
		wantPath     string
	}{
		{"POST", "/interviews", "/interviews"},
		{"POST", "/interviews/123/feedback", "/interviews/"},
		{"POST", "/interviews/123/answers", ""},
		{"GET", "/interviews", ""},
	}
	for _, tt := range tests {
		r := l.match(tt.method, tt.path)
		if tt.wantPath == "" {
			assert.Nil(t, r, tt.path)
			continue
		}
		if assert.NotNil(t, r, tt.path) {
			assert.Equal(t, tt.wantPath, r.Path)
		}
	}
}

func TestSweep_DropsIdleBuckets(t *testing.T) {
	l, now := newTestLimiter([]Rule{{Method: "POST", Path: "/interviews", Limit: 1, Window: time.Minute}})

	l.Allow("a", "POST", "/interviews")
	assert.Len(t, l.buckets, 1)

	*now = now.Add(3 * time.Hour)
	l.Allow("b", "POST", "/interviews")
	assert.Len(t, l.buckets, 1)
	_, ok := l.buckets["b|POST|/interviews"]
	assert.True(t, ok)
}
