package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const registerOpTimeout = 500 * time.Millisecond

// RegisterGuard throttles sign ups per client IP: a cooldown between attempts and a daily cap
// on successful registrations. Without Redis, or with both limits at zero, everything passes.
type RegisterGuard struct {
	rc        *redis.Client
	maxPerDay int
	cooldown  time.Duration
	now       func() time.Time
}

func NewRegisterGuard(rc *redis.Client, maxPerDay int, cooldown time.Duration) *RegisterGuard {
	return &RegisterGuard{rc: rc, maxPerDay: maxPerDay, cooldown: cooldown, now: time.Now}
}

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// Allow reports whether ip may attempt a registration now. Redis errors fail open.
func (g *RegisterGuard) Allow(ctx context.Context, ip string) bool {
	if g == nil || g.rc == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, registerOpTimeout)
	defer cancel()

	if g.maxPerDay > 0 {
		n, err := g.rc.Get(ctx, g.dayKey(ip)).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			Logger.Warn("register guard lookup failed", zap.String("ip", ip), zap.Error(err))
			return true
		}
		if n >= g.maxPerDay {
			return false
		}
	}

	if g.cooldown > 0 {
		ok, err := g.rc.SetNX(ctx, regKey("cooldown", ip), "1", g.cooldown).Result()
		if err != nil {
			return true
		}
		return ok
	}
	return true
}

// Record counts a successful registration for ip until the end of the day.
func (g *RegisterGuard) Record(ctx context.Context, ip string) {
	if g == nil || g.rc == nil || g.maxPerDay <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, registerOpTimeout)
	defer cancel()

	key := g.dayKey(ip)
	if err := g.rc.Incr(ctx, key).Err(); err != nil {
		Logger.Warn("register guard increment failed", zap.String("ip", ip), zap.Error(err))
		return
	}
	now := g.now()
	_ = g.rc.Expire(ctx, key, now.Truncate(24*time.Hour).Add(24*time.Hour).Sub(now)).Err()
}

func (g *RegisterGuard) dayKey(ip string) string {
	return regKey("succday", ip, g.now().Format("20060102"))
}
