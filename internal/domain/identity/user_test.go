package identity

import (
	"testing"

	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates active user with event", func(t *testing.T) {
		u, err := NewUser("auth0|abc", "Jane.Doe@Example.org", " Jane Doe ", RoleRegistrar)
		require.NoError(t, err)

		assert.True(t, u.IsActive)
		assert.Equal(t, "jane.doe@example.org", u.Email)
		assert.Equal(t, "Jane Doe", u.DisplayName)
		require.Len(t, u.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeUserCreated, u.GetDomainEvents()[0].EventType())
	})

	t.Run("lists every invalid field", func(t *testing.T) {
		_, err := NewUser("", "not-an-email", "x", Role("Boss"))

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeValidation, de.Code)
		assert.ElementsMatch(t, []string{"principalId", "role", "email"}, de.Fields)
	})
}

func TestBootstrapUser(t *testing.T) {
	u := BootstrapUser("offline")
	assert.Equal(t, RoleReadOnly, u.Role)
	assert.True(t, u.IsActive)
	assert.Empty(t, u.GetDomainEvents())
}

func TestUser_ActivationLifecycle(t *testing.T) {
	u, err := NewUser("p1", "", "Inspector Gadget", RoleInspector)
	require.NoError(t, err)
	u.ClearDomainEvents()

	require.NoError(t, u.Deactivate())
	assert.False(t, u.IsActive)
	assert.Error(t, u.Deactivate())

	require.NoError(t, u.Activate())
	assert.True(t, u.IsActive)
	assert.Error(t, u.Activate())

	assert.Len(t, u.GetDomainEvents(), 2)
}

func TestUser_ChangeRole(t *testing.T) {
	u, err := NewUser("p1", "", "", RoleInspector)
	require.NoError(t, err)
	u.ClearDomainEvents()

	require.NoError(t, u.ChangeRole(RoleSupervisor))
	assert.True(t, u.Capabilities().IsSupervisor)
	require.Len(t, u.GetDomainEvents(), 1)
	evt := u.GetDomainEvents()[0].(*UserRoleChangedEvent)
	assert.Equal(t, RoleInspector, evt.PreviousRole)

	require.NoError(t, u.ChangeRole(RoleSupervisor))
	assert.Len(t, u.GetDomainEvents(), 1, "same role is a no-op")

	assert.Error(t, u.ChangeRole(Role("")))
}

func TestUser_UpdateProfile(t *testing.T) {
	u, err := NewUser("p1", "a@b.co", "Old", RoleInspector)
	require.NoError(t, err)
	u.ClearDomainEvents()

	require.NoError(t, u.UpdateProfile("a@b.co", "New Name"))
	require.Len(t, u.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeUserProfileUpdated, u.GetDomainEvents()[0].EventType())

	require.NoError(t, u.UpdateProfile("a@b.co", "New Name"))
	assert.Len(t, u.GetDomainEvents(), 1)

	assert.Error(t, u.UpdateProfile("bad", "New Name"))
	assert.Equal(t, "a@b.co", u.Email)
}
