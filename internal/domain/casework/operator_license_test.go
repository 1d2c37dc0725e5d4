package casework

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLicense(t *testing.T) *OperatorLicense {
	l, err := NewOperatorLicense(NewOperatorLicenseRequest{
		OperatorRef:     uuid.New(),
		OperatorName:    "Kila Boat Hire",
		ApplicationType: LicenseNew,
	}, uuid.New(), testNow)
	require.NoError(t, err)
	l.ClearDomainEvents()
	return l
}

func TestNewOperatorLicense(t *testing.T) {
	t.Run("renewal requires previous license number", func(t *testing.T) {
		_, err := NewOperatorLicense(NewOperatorLicenseRequest{
			OperatorRef:     uuid.New(),
			OperatorName:    "Kila Boat Hire",
			ApplicationType: LicenseRenewal,
		}, uuid.New(), testNow)
		requireValidation(t, err, "previousLicenseNumber")
	})

	t.Run("creates draft", func(t *testing.T) {
		l := newTestLicense(t)
		assert.Equal(t, LicenseDraft, l.Status)
		assert.NotNil(t, l.AttachedDocuments)
	})
}

func TestOperatorLicense_TestPath(t *testing.T) {
	actor := uuid.New()
	l := newTestLicense(t)

	require.NoError(t, l.Apply(TransitionSubmit, TransitionInput{}, actor, testNow))
	assert.Equal(t, LicensePendingReview, l.Status)

	require.NoError(t, l.Apply(TransitionMarkReadyForTest, TransitionInput{}, actor, testNow))
	assert.Equal(t, LicenseAwaitingTest, l.Status)

	requireValidation(t, l.Apply(TransitionScheduleTest, TransitionInput{}, actor, testNow), "testDate")
	require.NoError(t, l.Apply(TransitionScheduleTest, TransitionInput{TestDate: dp("2024-03-20")}, actor, testNow))
	assert.Equal(t, LicenseTestScheduled, l.Status)
	assert.Equal(t, "2024-03-20", l.TestDate.String())

	require.NoError(t, l.Apply(TransitionRecordTestPass, TransitionInput{TestNotes: strp("Good handling")}, actor, testNow))
	assert.Equal(t, LicenseTestPassed, l.Status)
	assert.Equal(t, "Good handling", l.TestNotes)

	require.NoError(t, l.Apply(TransitionApprove, TransitionInput{AssignedLicenseNumber: strp("OL-77")}, actor, testNow))
	assert.Equal(t, LicenseApproved, l.Status)
}

func TestOperatorLicense_Approve(t *testing.T) {
	actor := uuid.New()

	t.Run("defaults issue and expiry dates", func(t *testing.T) {
		l := newTestLicense(t)
		require.NoError(t, l.Apply(TransitionSubmit, TransitionInput{}, actor, testNow))
		require.NoError(t, l.Apply(TransitionApprove, TransitionInput{AssignedLicenseNumber: strp("OL-1")}, actor, testNow))

		assert.Equal(t, "OL-1", l.AssignedLicenseNumber)
		require.NotNil(t, l.ApprovedAt)
		require.NotNil(t, l.IssuedAt)
		assert.Equal(t, testNow, *l.IssuedAt)
		assert.Equal(t, "2027-03-01", l.ExpiryDate.String())
	})

	t.Run("keeps supplied issue date", func(t *testing.T) {
		l := newTestLicense(t)
		require.NoError(t, l.Apply(TransitionSubmit, TransitionInput{}, actor, testNow))
		issued := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
		require.NoError(t, l.Apply(TransitionApprove, TransitionInput{AssignedLicenseNumber: strp("OL-2"), IssuedAt: &issued}, actor, testNow))
		assert.Equal(t, "2027-02-15", l.ExpiryDate.String())
	})

	t.Run("requires license number", func(t *testing.T) {
		l := newTestLicense(t)
		require.NoError(t, l.Apply(TransitionSubmit, TransitionInput{}, actor, testNow))
		requireValidation(t, l.Apply(TransitionApprove, TransitionInput{}, actor, testNow), "assignedLicenseNumber")
		assert.Equal(t, LicensePendingReview, l.Status)
		assert.Nil(t, l.ApprovedAt)
	})

	t.Run("not reachable from awaiting test", func(t *testing.T) {
		l := newTestLicense(t)
		require.NoError(t, l.Apply(TransitionSubmit, TransitionInput{}, actor, testNow))
		require.NoError(t, l.Apply(TransitionMarkReadyForTest, TransitionInput{}, actor, testNow))
		requireIllegal(t, l.Apply(TransitionApprove, TransitionInput{AssignedLicenseNumber: strp("OL-3")}, actor, testNow))
	})
}

func TestOperatorLicense_Suspension(t *testing.T) {
	actor := uuid.New()
	l := newTestLicense(t)
	require.NoError(t, l.Apply(TransitionSubmit, TransitionInput{}, actor, testNow))
	require.NoError(t, l.Apply(TransitionApprove, TransitionInput{AssignedLicenseNumber: strp("OL-9")}, actor, testNow))

	requireValidation(t, l.Apply(TransitionSuspend, TransitionInput{}, actor, testNow), "reason")
	require.NoError(t, l.Apply(TransitionSuspend, TransitionInput{Reason: strp("Complaint")}, actor, testNow))
	assert.Equal(t, LicenseSuspended, l.Status)
	assert.Equal(t, "Complaint", l.SuspensionReason)

	require.NoError(t, l.Apply(TransitionUnsuspend, TransitionInput{}, actor, testNow))
	assert.Equal(t, LicenseApproved, l.Status)
	assert.Empty(t, l.SuspensionReason)

	require.NoError(t, l.Apply(TransitionRevoke, TransitionInput{Reason: strp("Repeat offences")}, actor, testNow))
	assert.Equal(t, LicenseRevoked, l.Status)
	assert.True(t, licenseTable.IsTerminal(l.Status))
}

func TestOperatorLicense_RejectFromTestFailed(t *testing.T) {
	actor := uuid.New()
	l := newTestLicense(t)
	for _, tr := range []Transition{TransitionSubmit, TransitionMarkReadyForTest} {
		require.NoError(t, l.Apply(tr, TransitionInput{}, actor, testNow))
	}
	require.NoError(t, l.Apply(TransitionScheduleTest, TransitionInput{TestDate: dp("2024-03-20")}, actor, testNow))
	require.NoError(t, l.Apply(TransitionRecordTestFail, TransitionInput{}, actor, testNow))
	requireIllegal(t, l.Apply(TransitionApprove, TransitionInput{AssignedLicenseNumber: strp("OL-4")}, actor, testNow))
	require.NoError(t, l.Apply(TransitionReject, TransitionInput{Reason: strp("Failed practical")}, actor, testNow))
	assert.Equal(t, LicenseRejected, l.Status)
	assert.Equal(t, "Failed practical", l.RejectionReason)
}
