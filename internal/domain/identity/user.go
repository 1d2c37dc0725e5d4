package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/scaregistry/backend/internal/domain/shared"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is a staff profile. The identity provider owns credentials; this
// aggregate owns role and active state, which every authorization reads live.
type User struct {
	shared.BaseAggregateRoot
	PrincipalID string `json:"principalId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	IsActive    bool   `json:"isActive"`
}

// NewUser creates an active user profile bound to an identity-provider principal
func NewUser(principalID, email, displayName string, role Role) (*User, error) {
	principalID = strings.TrimSpace(principalID)
	var missing []string
	if principalID == "" {
		missing = append(missing, "principalId")
	}
	if !role.IsValid() {
		missing = append(missing, "role")
	}
	if email != "" && !emailPattern.MatchString(email) {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, shared.NewValidationError(missing...)
	}

	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PrincipalID:       principalID,
		Email:             strings.ToLower(strings.TrimSpace(email)),
		DisplayName:       strings.TrimSpace(displayName),
		Role:              role,
		IsActive:          true,
	}
	u.AddDomainEvent(NewUserCreatedEvent(u))
	return u, nil
}

// BootstrapUser is the minimal identity used when no profile store is reachable
// in an offline bootstrap context. It is never persisted.
func BootstrapUser(principalID string) *User {
	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PrincipalID:       principalID,
		Role:              RoleReadOnly,
		IsActive:          true,
	}
}

// Capabilities derives the user's capability flags from its role
func (u *User) Capabilities() Capabilities {
	return CapabilitiesOf(u.Role)
}

// ChangeRole assigns a new role
func (u *User) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewValidationError("role")
	}
	if role == u.Role {
		return nil
	}
	previous := u.Role
	u.Role = role
	u.changed()
	u.AddDomainEvent(NewUserRoleChangedEvent(u, previous))
	return nil
}

// Activate re-enables a deactivated profile
func (u *User) Activate() error {
	if u.IsActive {
		return shared.NewDomainError(shared.CodeIllegalTransition, "user is already active")
	}
	u.IsActive = true
	u.changed()
	u.AddDomainEvent(NewUserActivationChangedEvent(u))
	return nil
}

// Deactivate blocks the user from every transition
func (u *User) Deactivate() error {
	if !u.IsActive {
		return shared.NewDomainError(shared.CodeIllegalTransition, "user is already inactive")
	}
	u.IsActive = false
	u.changed()
	u.AddDomainEvent(NewUserActivationChangedEvent(u))
	return nil
}

// UpdateProfile changes the fields other cases cache in their snapshots
func (u *User) UpdateProfile(email, displayName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && !emailPattern.MatchString(email) {
		return shared.NewValidationError("email")
	}
	displayName = strings.TrimSpace(displayName)
	if email == u.Email && displayName == u.DisplayName {
		return nil
	}
	u.Email = email
	u.DisplayName = displayName
	u.changed()
	u.AddDomainEvent(NewUserProfileUpdatedEvent(u))
	return nil
}

// MarkDeleted records the deletion event; the repository removes the row.
func (u *User) MarkDeleted() {
	u.AddDomainEvent(NewUserDeletedEvent(u))
}

func (u *User) changed() {
	u.Touch(time.Now())
}
