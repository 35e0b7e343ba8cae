package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	cg429ObservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cg_429_observed_total",
		Help: "Total number of 429 responses recorded in the shared tracker",
	})

	cgCooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cg_cooldown_remaining_seconds",
		Help: "Seconds remaining in the shared rate-limit cooldown window",
	})
)

// Tracker records observed rate limiting in Redis so that cooperating
// processes back off together instead of hammering the API independently.
type Tracker struct {
	redis    *redis.Client
	cooldown time.Duration
	logger   zerolog.Logger
}

// NewTracker creates a new cooldown tracker. cooldown is the hold-off window
// opened by each observed 429.
func NewTracker(redisClient *redis.Client, cooldown time.Duration, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:    redisClient,
		cooldown: cooldown,
		logger:   logger,
	}
}

// GetState retrieves the current shared state from Redis. Absent keys yield
// the zero state (no cooldown).
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	state := &State{}

	consecutive, err := t.redis.Get(ctx, RedisKeyConsecutive429).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get consecutive 429 count: %w", err)
	}
	state.Consecutive429 = consecutive

	until, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get cooldown deadline: %w", err)
	}
	if until > 0 {
		state.CooldownUntil = time.Unix(until, 0)
	}

	last, err := t.redis.Get(ctx, RedisKeyLastObserved).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last observed: %w", err)
	}
	if last > 0 {
		state.LastObserved = time.Unix(last, 0)
	}

	return state, nil
}

// Observe429 records a rate-limited response and opens (or extends) the
// shared cooldown window.
func (t *Tracker) Observe429(ctx context.Context) error {
	now := time.Now()
	until := now.Add(t.cooldown)

	pipe := t.redis.Pipeline()
	count := pipe.Incr(ctx, RedisKeyConsecutive429)
	pipe.Set(ctx, RedisKeyCooldownUntil, until.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastObserved, now.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cooldown state in redis: %w", err)
	}

	cg429ObservedTotal.Inc()
	cgCooldownSeconds.Set(t.cooldown.Seconds())

	t.logger.Warn().
		Int64("consecutive_429", count.Val()).
		Time("cooldown_until", until).
		Msg("Rate limiting observed, shared cooldown opened")

	return nil
}

// ObserveSuccess clears the consecutive-429 counter and any open cooldown.
func (t *Tracker) ObserveSuccess(ctx context.Context) error {
	pipe := t.redis.Pipeline()
	pipe.Del(ctx, RedisKeyConsecutive429)
	pipe.Del(ctx, RedisKeyCooldownUntil)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("clear cooldown state in redis: %w", err)
	}

	cgCooldownSeconds.Set(0)
	return nil
}

// CooldownRemaining returns how long dispatching should hold off, or 0 when
// no cooldown is active.
func (t *Tracker) CooldownRemaining(ctx context.Context) (time.Duration, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return 0, fmt.Errorf("get cooldown state: %w", err)
	}

	remaining := state.Remaining()
	cgCooldownSeconds.Set(remaining.Seconds())
	return remaining, nil
}
