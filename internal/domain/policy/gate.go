// Package policy decides whether a user may take a transition on a case or
// user profile. Decisions are pure: everything the gate needs is on the Request.
package policy

import (
	"time"

	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// DenyReason is the machine-readable reason for a denial
type DenyReason string

const (
	DenyUnauthenticated DenyReason = "unauthenticated"
	DenyInactive        DenyReason = "inactive"
	DenySessionExpired  DenyReason = "session-expired"
	DenySelfAction      DenyReason = "self-action"
	DenyRole            DenyReason = "role"
)

// Request describes a proposed action
type Request struct {
	Actor      *identity.User
	Entity     casework.EntityType
	Status     string
	Transition casework.Transition
	// IsSelfRecord is set when the target is the actor's own user profile
	IsSelfRecord bool
	// IsAuthor is set when the actor created the target case
	IsAuthor bool
	// IsAssignee is set when the actor is the inspector assigned to the case
	IsAssignee bool
	// LastActivity is zero when unknown
	LastActivity time.Time
	Now          time.Time
}

// Decision is the gate's answer
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Allow is the permitting decision
var Allow = Decision{Allowed: true}

// Deny builds a denial
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into an UNAUTHORIZED domain error, or nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == DenyUnauthenticated {
		return shared.ErrUnauthenticated
	}
	return shared.NewUnauthorizedError(string(d.Reason))
}

// Config holds the gate's tunables
type Config struct {
	// IdleTimeout denies actors idle for longer; zero disables the check
	IdleTimeout time.Duration
	// SelfReviewPrevention denies authors reviewing their own cases
	SelfReviewPrevention bool
}

// Gate evaluates requests against a rule table
type Gate struct {
	cfg   Config
	rules map[Key]Rule
}

// NewGate creates a gate. A nil rules map uses DefaultRules.
func NewGate(cfg Config, rules map[Key]Rule) *Gate {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Gate{cfg: cfg, rules: rules}
}

// Rule returns the rule for a key
func (g *Gate) Rule(entity casework.EntityType, tr casework.Transition) (Rule, bool) {
	r, ok := g.rules[Key{Entity: entity, Transition: tr}]
	return r, ok
}

// Authorize evaluates the request. Checks run in a fixed order: active flag,
// idle session, self-action, then role.
func (g *Gate) Authorize(req Request) Decision {
	if req.Actor == nil {
		return Deny(DenyUnauthenticated)
	}
	if !req.Actor.IsActive {
		return Deny(DenyInactive)
	}
	if g.cfg.IdleTimeout > 0 && !req.LastActivity.IsZero() && req.Now.Sub(req.LastActivity) > g.cfg.IdleTimeout {
		return Deny(DenySessionExpired)
	}

	rule, ok := g.rules[Key{Entity: req.Entity, Transition: req.Transition}]
	if !ok {
		return Allow
	}
	if rule.ForbidSelf && req.IsSelfRecord {
		return Deny(DenySelfAction)
	}
	if rule.ForbidAuthor && req.IsAuthor && g.cfg.SelfReviewPrevention {
		return Deny(DenySelfAction)
	}
	if rule.permits(req) {
		return Allow
	}
	return Deny(DenyRole)
}
