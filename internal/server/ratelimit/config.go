package ratelimit

import (
	"net/http"
	"time"
)

// Tier is a named limiter.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Config holds the limiters applied to the API, keyed by client IP.
type Config struct {
	Write Tier
	Read  Tier
}

// NewConfig creates a Config allowing writesPerMinute mutating requests per
// client with a burst of a sixth of that, and a hundred times as many reads.
// It returns nil when writesPerMinute is not positive, which disables rate
// limiting.
func NewConfig(writesPerMinute int) *Config {
	if writesPerMinute <= 0 {
		return nil
	}
	burst := max(writesPerMinute/6, 1)
	return &Config{
		Write: Tier{Name: "write", Limiter: NewLimiter(writesPerMinute, time.Minute, burst)},
		Read:  Tier{Name: "read", Limiter: NewLimiter(100*writesPerMinute, time.Minute, 100*burst)},
	}
}

// Match returns the tier for a request, or nil when the request is not rate
// limited. A nil Config matches nothing.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/api/v1/health" {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return &c.Write
	case http.MethodGet, http.MethodHead:
		return &c.Read
	default:
		return nil
	}
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	if c == nil {
		return
	}
	c.Write.Limiter.Close()
	c.Read.Limiter.Close()
}
