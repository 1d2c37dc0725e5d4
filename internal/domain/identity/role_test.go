package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesOf(t *testing.T) {
	tests := []struct {
		role Role
		want Capabilities
	}{
		{RoleAdmin, Capabilities{IsAdmin: true, IsRegistrar: true, IsInspector: true, IsSupervisor: true, IsStaff: true}},
		{RoleSupervisor, Capabilities{IsSupervisor: true, IsStaff: true}},
		{RoleRegistrar, Capabilities{IsRegistrar: true, IsStaff: true}},
		{RoleInspector, Capabilities{IsInspector: true, IsStaff: true}},
		{RoleReadOnly, Capabilities{}},
		{Role("Citizen"), Capabilities{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, CapabilitiesOf(tt.role))
		})
	}
}

func TestCapabilities_AdminIsSuperset(t *testing.T) {
	admin := CapabilitiesOf(RoleAdmin)
	for _, role := range AllRoles() {
		caps := CapabilitiesOf(role)
		for _, c := range []Capability{CapAdmin, CapRegistrar, CapInspector, CapSupervisor, CapStaff} {
			if caps.Has(c) {
				assert.True(t, admin.Has(c), "admin lacks %s held by %s", c, role)
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Registrar")
	require.NoError(t, err)
	assert.Equal(t, RoleRegistrar, r)

	_, err = ParseRole("registrar")
	assert.Error(t, err, "role names are case-sensitive")
}
