package mcp

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter implements per-minute and per-hour token buckets
type RateLimiter struct {
	minute *rate.Limiter
	hour   *rate.Limiter
}

// lifecycle methods are never limited
var unlimitedMethods = map[string]bool{
	"initialize":                true,
	"initialized":               true,
	"notifications/initialized": true,
	"ping":                      true,
}

// NewRateLimiter creates a new rate limiter. A non-positive limit disables
// that bucket.
func NewRateLimiter(perMinute, perHour int) *RateLimiter {
	r := &RateLimiter{}
	if perMinute > 0 {
		r.minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	if perHour > 0 {
		r.hour = rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour)
	}
	return r
}

// Allow checks if a request is allowed
func (r *RateLimiter) Allow(method string) bool {
	if r == nil || unlimitedMethods[method] {
		return true
	}
	if r.minute != nil && !r.minute.Allow() {
		return false
	}
	if r.hour != nil && !r.hour.Allow() {
		return false
	}
	return true
}

// Available reports whether a request would be allowed, without consuming a token
func (r *RateLimiter) Available() bool {
	if r == nil {
		return true
	}
	if r.minute != nil && r.minute.Tokens() < 1 {
		return false
	}
	if r.hour != nil && r.hour.Tokens() < 1 {
		return false
	}
	return true
}
