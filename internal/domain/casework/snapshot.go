package casework

import "time"

// RegistrationSnapshot is a cached copy of registration details held by
// dependent cases so they render without a live lookup
type RegistrationSnapshot struct {
	OwnerName  string    `json:"ownerName"`
	CraftMake  string    `json:"craftMake"`
	CraftModel string    `json:"craftModel"`
	HullID     string    `json:"hullId"`
	ScaRegoNo  string    `json:"scaRegoNo,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// SameDetails compares snapshots ignoring capture time
func (s RegistrationSnapshot) SameDetails(o RegistrationSnapshot) bool {
	s.CapturedAt, o.CapturedAt = time.Time{}, time.Time{}
	return s == o
}

// PersonSnapshot is a cached copy of a user's display details
type PersonSnapshot struct {
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// SameDetails compares snapshots ignoring capture time
func (s PersonSnapshot) SameDetails(o PersonSnapshot) bool {
	return s.DisplayName == o.DisplayName && s.Email == o.Email
}

// Resolved is a reference read either live or from its cached snapshot
type Resolved[T any] struct {
	Value T    `json:"value"`
	Stale bool `json:"stale"`
}
