package casework

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func approvedRegistrationUntil(t *testing.T, expiry string) *casework.Registration {
	r := newRegistrationBy(t, uuid.New())
	effective, end := casework.MustDate("2023-01-01"), casework.MustDate(expiry)
	scaRegoNo := "SCA-" + expiry
	require.NoError(t, r.Apply(casework.TransitionApprove, casework.TransitionInput{
		ScaRegoNo: &scaRegoNo, EffectiveDate: &effective, ExpiryDate: &end,
	}, uuid.New(), fixedNow.Add(-48*time.Hour)))
	r.ClearDomainEvents()
	return r
}

func TestExpirySweep_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("expires only lapsed approvals", func(t *testing.T) {
		f := newEngineFixture()
		system := newProfile(t, "system", identity.RoleAdmin)
		f.signIn(system)

		lapsed := approvedRegistrationUntil(t, "2024-02-01")
		current := approvedRegistrationUntil(t, "2025-02-01")
		f.stored(t, lapsed)
		f.repo.On("QueryByField", mock.Anything, casework.EntityRegistration, "status", casework.OpEq, "Approved").
			Return([]*casework.Document{documentOf(t, lapsed), documentOf(t, current)}, nil)
		f.repo.On("Update", mock.Anything, casework.EntityRegistration, lapsed.ID, 1,
			mock.MatchedBy(func(d casework.FieldDeltas) bool { return d["status"] == "Expired" }), mock.Anything).Return(nil)

		sweep := NewExpirySweep(f.engine, f.repo, "system", f.metrics, zap.NewNop())
		n, err := sweep.Sweep(ctx, casework.EntityRegistration)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, f.metrics.expired["Registration"])
		f.repo.AssertNotCalled(t, "GetByID", mock.Anything, casework.EntityRegistration, current.ID)
	})

	t.Run("conflicts are skipped until the next run", func(t *testing.T) {
		f := newEngineFixture()
		f.signIn(newProfile(t, "system", identity.RoleAdmin))
		lapsed := approvedRegistrationUntil(t, "2024-02-01")
		f.stored(t, lapsed)
		f.repo.On("QueryByField", mock.Anything, casework.EntityRegistration, "status", casework.OpEq, "Approved").
			Return([]*casework.Document{documentOf(t, lapsed)}, nil)
		f.repo.On("Update", mock.Anything, casework.EntityRegistration, lapsed.ID, 1, mock.Anything, mock.Anything).Return(shared.ErrConflict)

		n, err := NewExpirySweep(f.engine, f.repo, "system", nil, zap.NewNop()).Sweep(ctx, casework.EntityRegistration)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("store outage stops the run", func(t *testing.T) {
		f := newEngineFixture()
		f.signIn(newProfile(t, "system", identity.RoleAdmin))
		lapsed := approvedRegistrationUntil(t, "2024-02-01")
		f.stored(t, lapsed)
		f.repo.On("QueryByField", mock.Anything, casework.EntityRegistration, "status", casework.OpEq, "Approved").
			Return([]*casework.Document{documentOf(t, lapsed)}, nil)
		f.repo.On("Update", mock.Anything, casework.EntityRegistration, lapsed.ID, 1, mock.Anything, mock.Anything).
			Return(shared.NewStoreUnavailableError(nil))

		_, err := NewExpirySweep(f.engine, f.repo, "system", nil, zap.NewNop()).Sweep(ctx, casework.EntityRegistration)
		assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	})
}

func TestExpirySweep_SweepAll(t *testing.T) {
	f := newEngineFixture()
	f.signIn(newProfile(t, "system", identity.RoleAdmin))
	f.repo.On("QueryByField", mock.Anything, mock.Anything, "status", casework.OpEq, "Approved").
		Return([]*casework.Document{}, nil)

	n, err := NewExpirySweep(f.engine, f.repo, "system", nil, zap.NewNop()).SweepAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	f.repo.AssertNumberOfCalls(t, "QueryByField", len(ExpiryEntities))
}
