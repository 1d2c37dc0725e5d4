package casework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStatus string

func TestTransitionTable(t *testing.T) {
	table := NewTransitionTable(EntityRegistration,
		Row[testStatus]{From: []testStatus{"A", "B"}, On: TransitionSubmit, To: "C"},
		Row[testStatus]{From: []testStatus{"A"}, On: TransitionUpdate, Stay: true},
	)

	to, err := table.Next("B", TransitionSubmit)
	require.NoError(t, err)
	assert.Equal(t, testStatus("C"), to)

	to, err = table.Next("A", TransitionUpdate)
	require.NoError(t, err)
	assert.Equal(t, testStatus("A"), to)

	_, err = table.Next("C", TransitionSubmit)
	requireIllegal(t, err)

	assert.Equal(t, []Transition{TransitionSubmit, TransitionUpdate}, table.Available("A"))
	assert.True(t, table.IsTerminal("C"))
	assert.Equal(t, []Transition{TransitionSubmit, TransitionUpdate}, table.Transitions())
}

func TestTransitionTable_DuplicateEdgePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewTransitionTable(EntityRegistration,
			Row[testStatus]{From: []testStatus{"A"}, On: TransitionSubmit, To: "B"},
			Row[testStatus]{From: []testStatus{"A"}, On: TransitionSubmit, To: "C"},
		)
	})
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, registrationTable.IsTerminal(RegistrationRevoked))
	assert.True(t, registrationTable.IsTerminal(RegistrationRejected))
	assert.False(t, registrationTable.IsTerminal(RegistrationExpired))

	for _, s := range []InspectionStatus{InspectionPassed, InspectionFailed, InspectionCancelled} {
		assert.True(t, inspectionTable.IsTerminal(s), s)
	}
	assert.True(t, licenseTable.IsTerminal(LicenseRevoked))
	assert.True(t, licenseTable.IsTerminal(LicenseRejected))
	assert.True(t, infringementTable.IsTerminal(InfringementRejected))
}

func TestLicenseApproveSources(t *testing.T) {
	allowed := map[LicenseStatus]bool{
		LicensePendingReview: true,
		LicenseSubmitted:     true,
		LicenseTestPassed:    true,
		LicenseRequiresInfo:  true,
	}
	all := []LicenseStatus{
		LicenseDraft, LicenseSubmitted, LicensePendingReview, LicenseRequiresInfo, LicenseAwaitingTest,
		LicenseTestScheduled, LicenseTestPassed, LicenseTestFailed, LicenseApproved, LicenseRejected,
		LicenseExpired, LicenseSuspended, LicenseRevoked,
	}
	for _, s := range all {
		assert.Equal(t, allowed[s], licenseTable.Allows(s, TransitionApprove), s)
	}
}

func TestParseEntityType(t *testing.T) {
	e, err := ParseEntityType("Inspection")
	require.NoError(t, err)
	assert.Equal(t, EntityInspection, e)
	assert.Equal(t, "inspectionId", e.IDField())

	_, err = ParseEntityType("inspection")
	assert.Error(t, err)
}
