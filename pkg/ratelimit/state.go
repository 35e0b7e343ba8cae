// Package ratelimit implements a shared 429 cooldown for cooperating client
// processes. CoinGecko signals rate limiting only through the HTTP 429
// status, with no budget headers, so the tracker records observed 429s in
// Redis and cooperating processes hold off until the cooldown window passes.
package ratelimit

import (
	"time"
)

// Redis keys for cooldown state storage.
const (
	RedisKeyConsecutive429 = "cg:rate_limit:consecutive_429"
	RedisKeyCooldownUntil  = "cg:rate_limit:cooldown_until"
	RedisKeyLastObserved   = "cg:rate_limit:last_observed"
)

// State is the shared rate-limit state as read from Redis.
type State struct {
	// Consecutive429 counts 429 responses observed since the last success.
	Consecutive429 int `json:"consecutive_429"`

	// CooldownUntil is when dispatching may resume. Zero when no cooldown
	// is active.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastObserved is when a 429 was last recorded.
	LastObserved time.Time `json:"last_observed"`
}

// InCooldown reports whether the cooldown window is still open.
func (s *State) InCooldown() bool {
	return time.Now().Before(s.CooldownUntil)
}

// Remaining returns the time left in the cooldown window, or 0 when none is
// active.
func (s *State) Remaining() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}
