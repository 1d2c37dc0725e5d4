package persistence

import (
	"context"
	"strings"
	"testing"
	"unicode"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepo(t *testing.T) (*GormUserRepository, func() int64) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db, event.NewOutboxPublisher(event.NewEventSerializer()))
	return repo, func() int64 { return countOutbox(t, db) }
}

func newTestUser(t *testing.T, principal string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(principal, testEmail(principal), "Officer "+principal, role)
	require.NoError(t, err)
	return u
}

// testEmail drops the provider prefix and anything an address cannot carry
func testEmail(principal string) string {
	if i := strings.LastIndex(principal, "|"); i >= 0 {
		principal = principal[i+1:]
	}
	local := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.') {
			return r
		}
		return -1
	}, principal)
	return local + "@sca.gov.pg"
}

func TestUserFixtureEmail(t *testing.T) {
	assert.Equal(t, "mk@sca.gov.pg", testEmail("auth0|mk"))
	assert.Equal(t, "user7@sca.gov.pg", testEmail("user 7"))
	_, err := identity.NewUser("auth0|mk", testEmail("auth0|mk"), "Officer", identity.RoleReadOnly)
	assert.NoError(t, err)
}

func TestGormUserRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a new profile with its events", func(t *testing.T) {
		repo, outbox := newUserRepo(t)
		u := newTestUser(t, "auth0|mk", identity.RoleRegistrar)

		require.NoError(t, repo.Save(ctx, u))
		assert.Empty(t, u.GetDomainEvents())
		assert.Equal(t, 1, u.Version)
		assert.EqualValues(t, 1, outbox())

		found, err := repo.FindByPrincipal(ctx, "auth0|mk")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)
		assert.Equal(t, identity.RoleRegistrar, found.Role)
		assert.Equal(t, "mk@sca.gov.pg", found.Email)
		assert.True(t, found.IsActive)
	})

	t.Run("updates and bumps the version", func(t *testing.T) {
		repo, outbox := newUserRepo(t)
		u := newTestUser(t, "auth0|jw", identity.RoleInspector)
		require.NoError(t, repo.Save(ctx, u))

		require.NoError(t, u.ChangeRole(identity.RoleSupervisor))
		require.NoError(t, u.Deactivate())
		require.NoError(t, repo.Save(ctx, u))
		assert.Equal(t, 2, u.Version)
		assert.EqualValues(t, 3, outbox())

		found, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleSupervisor, found.Role)
		assert.False(t, found.IsActive)
		assert.Equal(t, 2, found.Version)
	})

	t.Run("stale copy conflicts", func(t *testing.T) {
		repo, _ := newUserRepo(t)
		u := newTestUser(t, "auth0|rp", identity.RoleInspector)
		require.NoError(t, repo.Save(ctx, u))

		first, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)

		require.NoError(t, first.UpdateProfile("rp@sca.gov.pg", "Ruth Pala"))
		require.NoError(t, repo.Save(ctx, first))

		require.NoError(t, second.ChangeRole(identity.RoleAdmin))
		err = repo.Save(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.NotEmpty(t, second.GetDomainEvents())
	})

	t.Run("duplicate principal already exists", func(t *testing.T) {
		repo, _ := newUserRepo(t)
		require.NoError(t, repo.Save(ctx, newTestUser(t, "auth0|dup", identity.RoleReadOnly)))

		err := repo.Save(ctx, newTestUser(t, "auth0|dup", identity.RoleReadOnly))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormUserRepository_Find(t *testing.T) {
	ctx := context.Background()
	repo, _ := newUserRepo(t)

	for _, p := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.Save(ctx, newTestUser(t, p, identity.RoleInspector)))
	}

	t.Run("unknown principal is not found", func(t *testing.T) {
		_, err := repo.FindByPrincipal(ctx, "nobody")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByPrincipal(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("pages in the requested order", func(t *testing.T) {
		users, total, err := repo.FindAll(ctx, shared.Filter{Page: 1, PageSize: 2, OrderBy: "principal_id", OrderDir: "asc"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].PrincipalID)
		assert.Equal(t, "bob", users[1].PrincipalID)

		users, _, err = repo.FindAll(ctx, shared.Filter{Page: 2, PageSize: 2, OrderBy: "principal_id", OrderDir: "asc"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "carol", users[0].PrincipalID)
	})

	t.Run("unknown sort field falls back", func(t *testing.T) {
		users, total, err := repo.FindAll(ctx, shared.Filter{OrderBy: "password; --"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, users, 3)
	})
}

func TestGormUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo, outbox := newUserRepo(t)
	u := newTestUser(t, "auth0|gone", identity.RoleReadOnly)
	require.NoError(t, repo.Save(ctx, u))

	u.MarkDeleted()
	require.NoError(t, repo.Delete(ctx, u))
	assert.EqualValues(t, 2, outbox())

	_, err := repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, u), shared.ErrNotFound)
}
