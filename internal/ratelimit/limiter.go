package ratelimit

import (
	"context"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

// RateLimiter throttles outbound sends per delivery channel so a large
// dispatch run does not exceed provider quotas.
type RateLimiter interface {
	Allow(ctx context.Context, channel domain.Channel) (bool, error)
	Wait(ctx context.Context, channel domain.Channel) error
}

// Unlimited performs no throttling. Used when no limiter backend is
// configured and in tests.
type Unlimited struct{}

func (Unlimited) Allow(ctx context.Context, channel domain.Channel) (bool, error) { return true, nil }
func (Unlimited) Wait(ctx context.Context, channel domain.Channel) error          { return nil }
