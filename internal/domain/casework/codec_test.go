package casework

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	r := approvedRegistration(t)
	r.Version = 4

	fields, err := Encode(r)
	require.NoError(t, err)
	assert.Equal(t, r.ID.String(), fields["registrationId"])
	assert.Equal(t, "Approved", fields["status"])
	assert.Equal(t, "2025-01-01", fields["expiryDate"])
	assert.Equal(t, DocumentID(EntityRegistration, fields), r.ID)

	decoded, err := Decode(&Document{Entity: EntityRegistration, ID: r.ID, Version: 4, Fields: fields})
	require.NoError(t, err)
	got, ok := decoded.(*Registration)
	require.True(t, ok)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, 4, got.GetVersion())
	assert.Equal(t, r.ScaRegoNo, got.ScaRegoNo)
	assert.Equal(t, r.AuthorRef(), got.AuthorRef())
	assert.Equal(t, r.ExpiryDate.String(), got.ExpiryDate.String())
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
}

func TestDecode_UnknownEntity(t *testing.T) {
	_, err := Decode(&Document{Entity: EntityUser, ID: uuid.New()})
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	t.Run("reports changed, added and removed fields", func(t *testing.T) {
		before := Fields{"status": "Approved", "scaRegoNo": "SCA-1", "suspensionReason": "x"}
		after := Fields{"status": "Suspended", "scaRegoNo": "SCA-1", "revocationReason": "y"}

		deltas := Diff(before, after)
		assert.Equal(t, FieldDeltas{
			"status":           "Suspended",
			"revocationReason": "y",
			"suspensionReason": nil,
		}, deltas)
	})

	t.Run("empty when nothing changed", func(t *testing.T) {
		f := Fields{"owners": []any{map[string]any{"name": "A"}}}
		assert.Empty(t, Diff(f, Fields{"owners": []any{map[string]any{"name": "A"}}}))
	})

	t.Run("unsuspend clears suspension fields", func(t *testing.T) {
		r := approvedRegistration(t)
		require.NoError(t, r.Apply(TransitionSuspend, TransitionInput{Reason: strp("Unseaworthy")}, uuid.New(), testNow))
		before, err := Encode(r)
		require.NoError(t, err)
		require.NoError(t, r.Apply(TransitionUnsuspend, TransitionInput{}, uuid.New(), testNow))
		after, err := Encode(r)
		require.NoError(t, err)

		deltas := Diff(before, after)
		assert.Equal(t, "Approved", deltas["status"])
		assert.Contains(t, deltas, "suspensionReason")
		assert.Nil(t, deltas["suspensionReason"])
		assert.Contains(t, deltas, "suspensionStartDate")
		assert.NotContains(t, deltas, "scaRegoNo")
	})
}

func TestMerge(t *testing.T) {
	fields := Fields{"status": "Approved", "suspensionReason": "x"}
	merged := Merge(fields, FieldDeltas{"status": "Revoked", "suspensionReason": nil})
	assert.Equal(t, Fields{"status": "Revoked"}, merged)
}
