package identity

import (
	"context"
	"time"

	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/policy"
	"go.uber.org/zap"
)

// DecisionRecorder observes gate decisions, typically for metrics
type DecisionRecorder interface {
	RecordDecision(entity, transition string, d policy.Decision)
}

// Guard combines principal resolution, idle tracking and the authorization
// gate into the checks every use case runs before touching a record
type Guard struct {
	resolver *Resolver
	gate     *policy.Gate
	activity identity.ActivityTracker
	recorder DecisionRecorder
	now      func() time.Time
	logger   *zap.Logger
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithDecisionRecorder reports every decision to rec
func WithDecisionRecorder(rec DecisionRecorder) GuardOption {
	return func(g *Guard) {
		g.recorder = rec
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard creates a new Guard. activity may be nil to disable idle expiry.
func NewGuard(resolver *Resolver, gate *policy.Gate, activity identity.ActivityTracker, logger *zap.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		resolver: resolver,
		gate:     gate,
		activity: activity,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the guard's clock reading
func (g *Guard) Now() time.Time {
	return g.now()
}

// Actor resolves the principal to a live profile
func (g *Guard) Actor(ctx context.Context, principalID string) (*identity.User, error) {
	return g.resolver.Resolve(ctx, principalID)
}

// Check authorizes req, filling in the actor's last activity and the current time.
// It returns nil when allowed and an UNAUTHORIZED domain error otherwise.
func (g *Guard) Check(ctx context.Context, req policy.Request) error {
	if req.Now.IsZero() {
		req.Now = g.now()
	}
	if req.Actor != nil && g.activity != nil {
		last, ok, err := g.activity.LastActivity(ctx, req.Actor.ID)
		switch {
		case err != nil:
			g.logger.Warn("Activity lookup failed, skipping idle check",
				zap.String("user_id", req.Actor.ID.String()), zap.Error(err))
		case ok:
			req.LastActivity = last
		}
	}

	d := g.gate.Authorize(req)
	if g.recorder != nil {
		g.recorder.RecordDecision(string(req.Entity), string(req.Transition), d)
	}
	if !d.Allowed {
		fields := []zap.Field{
			zap.String("entity", string(req.Entity)),
			zap.String("transition", string(req.Transition)),
			zap.String("status", req.Status),
			zap.String("reason", string(d.Reason)),
		}
		if req.Actor != nil {
			fields = append(fields, zap.String("user_id", req.Actor.ID.String()), zap.String("role", string(req.Actor.Role)))
		}
		g.logger.Info("Authorization denied", fields...)
	}
	return d.Err()
}

// Touch records activity after a successful action. Failures are logged only.
func (g *Guard) Touch(ctx context.Context, actor *identity.User) {
	if g.activity == nil || actor == nil {
		return
	}
	if err := g.activity.Touch(ctx, actor.ID, g.now()); err != nil {
		g.logger.Warn("Failed to record activity", zap.String("user_id", actor.ID.String()), zap.Error(err))
	}
}
