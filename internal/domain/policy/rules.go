package policy

import (
	"slices"

	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
)

// Key identifies a rule by entity and transition
type Key struct {
	Entity     casework.EntityType
	Transition casework.Transition
}

// Rule lists who may take a transition
type Rule struct {
	// AnyOf grants the transition to holders of any listed capability
	AnyOf []identity.Capability
	// AllowAssignee grants the transition to the assigned inspector
	AllowAssignee bool
	// AllowSelf grants the transition on the actor's own profile
	AllowSelf bool
	// ForbidSelf denies the transition on the actor's own profile
	ForbidSelf bool
	// ForbidAuthor denies the case author when self-review prevention is on
	ForbidAuthor bool
}

func (r Rule) permits(req Request) bool {
	caps := req.Actor.Capabilities()
	if slices.ContainsFunc(r.AnyOf, caps.Has) {
		return true
	}
	if r.AllowAssignee && req.IsAssignee {
		return true
	}
	return r.AllowSelf && req.IsSelfRecord
}

var (
	registrarOnly = []identity.Capability{identity.CapRegistrar}
	officeStaff   = []identity.Capability{identity.CapAdmin, identity.CapRegistrar, identity.CapSupervisor}
	anyStaff      = []identity.Capability{identity.CapStaff}
	adminOnly     = []identity.Capability{identity.CapAdmin}
)

func grant(rules map[Key]Rule, entity casework.EntityType, rule Rule, transitions ...casework.Transition) {
	for _, tr := range transitions {
		rules[Key{Entity: entity, Transition: tr}] = rule
	}
}

// DefaultRules returns the authority's standard rule table
func DefaultRules() map[Key]Rule {
	rules := make(map[Key]Rule)

	grant(rules, casework.EntityRegistration, Rule{AnyOf: registrarOnly},
		casework.TransitionCreate, casework.TransitionUpdate, casework.TransitionSubmit,
		casework.TransitionBeginReview, casework.TransitionUnsuspend, casework.TransitionExpire)
	grant(rules, casework.EntityRegistration, Rule{AnyOf: registrarOnly, ForbidAuthor: true},
		casework.TransitionApprove, casework.TransitionReject, casework.TransitionRequestInfo,
		casework.TransitionSuspend, casework.TransitionRevoke)

	grant(rules, casework.EntityInspection, Rule{AnyOf: officeStaff},
		casework.TransitionCreate, casework.TransitionSchedule, casework.TransitionReschedule, casework.TransitionCancel)
	grant(rules, casework.EntityInspection, Rule{AnyOf: officeStaff, AllowAssignee: true},
		casework.TransitionStart, casework.TransitionSaveProgress, casework.TransitionSubmitForReview)
	grant(rules, casework.EntityInspection, Rule{AnyOf: officeStaff, ForbidAuthor: true},
		casework.TransitionApprove, casework.TransitionReject)

	grant(rules, casework.EntityOperatorLicense, Rule{AnyOf: officeStaff},
		casework.TransitionCreate, casework.TransitionSubmit, casework.TransitionMarkReadyForTest,
		casework.TransitionScheduleTest, casework.TransitionRecordTestPass, casework.TransitionRecordTestFail,
		casework.TransitionUnsuspend, casework.TransitionExpire)
	grant(rules, casework.EntityOperatorLicense, Rule{AnyOf: officeStaff, ForbidAuthor: true},
		casework.TransitionApprove, casework.TransitionReject, casework.TransitionRequestInfo,
		casework.TransitionSuspend, casework.TransitionRevoke)

	grant(rules, casework.EntityInfringement, Rule{AnyOf: anyStaff},
		casework.TransitionCreate, casework.TransitionUpdate, casework.TransitionIssue, casework.TransitionSubmitForReview)
	grant(rules, casework.EntityInfringement, Rule{AnyOf: officeStaff, ForbidAuthor: true},
		casework.TransitionApprove, casework.TransitionReject)
	grant(rules, casework.EntityInfringement, Rule{AnyOf: officeStaff},
		casework.TransitionRecordPayment)

	grant(rules, casework.EntityUser, Rule{AnyOf: adminOnly},
		casework.TransitionCreate, casework.TransitionChangeRole, casework.TransitionActivate)
	grant(rules, casework.EntityUser, Rule{AnyOf: adminOnly, ForbidSelf: true},
		casework.TransitionDeactivate, casework.TransitionDelete)
	grant(rules, casework.EntityUser, Rule{AnyOf: adminOnly, AllowSelf: true},
		casework.TransitionUpdateProfile)

	return rules
}
