package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisterGuardDailyCap(t *testing.T) {
	_, rc := newTestRedis(t)
	g := NewRegisterGuard(rc, 2, 0)
	ctx := context.Background()

	assert.True(t, g.Allow(ctx, "1.1.1.1"))
	g.Record(ctx, "1.1.1.1")
	g.Record(ctx, "1.1.1.1")
	assert.False(t, g.Allow(ctx, "1.1.1.1"))
	assert.True(t, g.Allow(ctx, "2.2.2.2"))

	// a new day resets the count
	g.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	assert.True(t, g.Allow(ctx, "1.1.1.1"))
}

func TestRegisterGuardCooldown(t *testing.T) {
	mr, rc := newTestRedis(t)
	g := NewRegisterGuard(rc, 0, 30*time.Second)
	ctx := context.Background()

	assert.True(t, g.Allow(ctx, "1.1.1.1"))
	assert.False(t, g.Allow(ctx, "1.1.1.1"))

	mr.FastForward(31 * time.Second)
	assert.True(t, g.Allow(ctx, "1.1.1.1"))
}

func TestRegisterGuardWithoutRedis(t *testing.T) {
	g := NewRegisterGuard(nil, 1, time.Minute)
	ctx := context.Background()

	g.Record(ctx, "1.1.1.1")
	assert.True(t, g.Allow(ctx, "1.1.1.1"))
}
