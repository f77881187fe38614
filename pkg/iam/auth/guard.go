package auth

import (
	"context"

	"github.com/Abraxas-365/filesmile/pkg/iam"
	"github.com/Abraxas-365/filesmile/pkg/logx"
)

// AttemptGuard wraps an AttemptLimiter so that limiter outages never block
// authentication: storage errors are logged and the attempt proceeds.
type AttemptGuard struct {
	limiter AttemptLimiter
}

// NewAttemptGuard accepts a nil limiter, which disables limiting.
func NewAttemptGuard(limiter AttemptLimiter) *AttemptGuard {
	return &AttemptGuard{limiter: limiter}
}

// Check fails TOO_MANY_ATTEMPTS once the subject is over its limit.
func (g *AttemptGuard) Check(ctx context.Context, scope, subject string) error {
	if g == nil || g.limiter == nil {
		return nil
	}
	ok, err := g.limiter.Allow(ctx, scope, subject)
	if err != nil {
		logx.WithError(err).WithField("scope", scope).Warn("Attempt limiter unavailable, allowing request")
		return nil
	}
	if !ok {
		return iam.ErrTooManyAttempts().WithDetail("scope", scope)
	}
	return nil
}

// Fail records one failed attempt.
func (g *AttemptGuard) Fail(ctx context.Context, scope, subject string) {
	if g == nil || g.limiter == nil {
		return
	}
	if err := g.limiter.RecordFailure(ctx, scope, subject); err != nil {
		logx.WithError(err).WithField("scope", scope).Warn("Failed to record auth attempt")
	}
}

// Succeed clears the subject's counter.
func (g *AttemptGuard) Succeed(ctx context.Context, scope, subject string) {
	if g == nil || g.limiter == nil {
		return
	}
	if err := g.limiter.Reset(ctx, scope, subject); err != nil {
		logx.WithError(err).WithField("scope", scope).Warn("Failed to reset auth attempts")
	}
}
