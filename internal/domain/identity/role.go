package identity

import (
	"fmt"

	"github.com/scaregistry/backend/internal/domain/shared"
)

// Role is the staff role held by a user. Roles are flat; Admin carries every
// other role's capabilities through CapabilitiesOf rather than inheritance.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleSupervisor Role = "Supervisor"
	RoleRegistrar  Role = "Registrar"
	RoleInspector  Role = "Inspector"
	RoleReadOnly   Role = "ReadOnly"
)

// AllRoles returns every role in declaration order
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleSupervisor, RoleRegistrar, RoleInspector, RoleReadOnly}
}

// IsValid checks if the role is a known Role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleRegistrar, RoleInspector, RoleReadOnly:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a case-sensitive role name
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

// Capability names a derived permission flag
type Capability string

const (
	CapAdmin      Capability = "admin"
	CapRegistrar  Capability = "registrar"
	CapInspector  Capability = "inspector"
	CapSupervisor Capability = "supervisor"
	// CapStaff is held by every role that may create cases (all but ReadOnly)
	CapStaff Capability = "staff"
)

// Capabilities are the boolean flags derived from a role
type Capabilities struct {
	IsAdmin      bool `json:"isAdmin"`
	IsRegistrar  bool `json:"isRegistrar"`
	IsInspector  bool `json:"isInspector"`
	IsSupervisor bool `json:"isSupervisor"`
	IsStaff      bool `json:"isStaff"`
}

// CapabilitiesOf derives capability flags from a role
func CapabilitiesOf(r Role) Capabilities {
	admin := r == RoleAdmin
	return Capabilities{
		IsAdmin:      admin,
		IsRegistrar:  r == RoleRegistrar || admin,
		IsInspector:  r == RoleInspector || admin,
		IsSupervisor: r == RoleSupervisor || admin,
		IsStaff:      r.IsValid() && r != RoleReadOnly,
	}
}

// Has reports whether the flag for c is set
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapAdmin:
		return c.IsAdmin
	case CapRegistrar:
		return c.IsRegistrar
	case CapInspector:
		return c.IsInspector
	case CapSupervisor:
		return c.IsSupervisor
	case CapStaff:
		return c.IsStaff
	}
	return false
}
