package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
	"github.com/cyphermed/record-access-api/pkg/utils"
)

// TestAssignGuardianDefaults tests that capabilities default to the full set
// and the guardianship expires on the ward's 18th birthday
func TestAssignGuardianDefaults(t *testing.T) {
	env := newTestEnv()
	patient := env.registerMinor("did:example:child")

	guardian, svcErr := env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        patient.PatientID,
		GuardianIdentity: "did:example:parent",
		Relationship:     "parent",
	}, "admin")
	require.Nil(t, svcErr)

	assert.True(t, guardian.CanView)
	assert.True(t, guardian.CanCreate)
	assert.True(t, guardian.CanApprove)
	assert.True(t, guardian.Active)
	expiry := utils.TimeToMillis(utils.EighteenthBirthday(utils.MillisToTime(patient.DateOfBirth)))
	assert.Equal(t, expiry, guardian.ExpiresAt)
}

// TestAssignGuardianExplicitCapabilities tests the narrowed capability case
func TestAssignGuardianExplicitCapabilities(t *testing.T) {
	env := newTestEnv()
	patient := env.registerMinor("did:example:child")

	viewOnly := true
	noCreate := false
	noApprove := false
	guardian, svcErr := env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        patient.PatientID,
		GuardianIdentity: "did:example:aunt",
		Relationship:     "relative",
		CanView:          &viewOnly,
		CanCreate:        &noCreate,
		CanApprove:       &noApprove,
	}, "admin")
	require.Nil(t, svcErr)

	assert.True(t, guardian.CanView)
	assert.False(t, guardian.CanCreate)
	assert.False(t, guardian.CanApprove)
}

// TestAssignGuardianRejections tests the assignment guardrails
func TestAssignGuardianRejections(t *testing.T) {
	env := newTestEnv()
	adult := env.registerAdult("did:example:alice")
	minor := env.registerMinor("did:example:child")

	// Adults do not get guardians.
	_, svcErr := env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        adult.PatientID,
		GuardianIdentity: "did:example:parent",
		Relationship:     "parent",
	}, "admin")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.NotAMinorError))

	// A patient cannot be their own guardian.
	_, svcErr = env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        minor.PatientID,
		GuardianIdentity: "did:example:child",
		Relationship:     "self",
	}, "admin")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.ValidationError))

	// Unknown patient.
	_, svcErr = env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        "PAT-missing",
		GuardianIdentity: "did:example:parent",
		Relationship:     "parent",
	}, "admin")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.ResourceNotFoundError))
}

// TestRevokeGuardianTwice tests that a second revoke reports the state
func TestRevokeGuardianTwice(t *testing.T) {
	env := newTestEnv()
	patient := env.registerMinor("did:example:child")
	guardian, svcErr := env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        patient.PatientID,
		GuardianIdentity: "did:example:parent",
		Relationship:     "parent",
	}, "admin")
	require.Nil(t, svcErr)

	revoked, svcErr := env.guardians.Revoke(context.Background(), guardian.GuardianID, "court")
	require.Nil(t, svcErr)
	assert.False(t, revoked.Active)
	require.NotNil(t, revoked.RevokedBy)
	assert.Equal(t, "court", *revoked.RevokedBy)

	_, svcErr = env.guardians.Revoke(context.Background(), guardian.GuardianID, "court")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.AlreadyRevokedError))
}

// TestEffectiveProxyCapabilitiesUnion tests that multiple guardianships by the
// same actor union their capabilities
func TestEffectiveProxyCapabilitiesUnion(t *testing.T) {
	env := newTestEnv()
	patient := env.registerMinor("did:example:child")

	viewOnly := true
	no := false
	_, svcErr := env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        patient.PatientID,
		GuardianIdentity: "did:example:parent",
		Relationship:     "parent",
		CanView:          &viewOnly,
		CanCreate:        &no,
		CanApprove:       &no,
	}, "admin")
	require.Nil(t, svcErr)
	_, svcErr = env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        patient.PatientID,
		GuardianIdentity: "did:example:parent",
		Relationship:     "legal_guardian",
		CanView:          &no,
		CanCreate:        &no,
		CanApprove:       &viewOnly,
	}, "admin")
	require.Nil(t, svcErr)

	caps, err := env.guardians.EffectiveProxyCapabilities(context.Background(), mustGetPatient(t, env, patient.PatientID), "did:example:parent")
	require.NoError(t, err)
	assert.True(t, caps.CanView)
	assert.False(t, caps.CanCreate)
	assert.True(t, caps.CanApprove)
}

// TestEffectiveProxyCapabilitiesExpiry tests that an expired guardianship
// contributes nothing even while still marked active
func TestEffectiveProxyCapabilitiesExpiry(t *testing.T) {
	env := newTestEnv()
	patient := env.registerMinor("did:example:child")
	_, svcErr := env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
		PatientID:        patient.PatientID,
		GuardianIdentity: "did:example:parent",
		Relationship:     "parent",
	}, "admin")
	require.Nil(t, svcErr)

	env.clock.Instant = time.Date(2034, 1, 21, 0, 0, 0, 0, time.UTC)

	caps, err := env.guardians.EffectiveProxyCapabilities(context.Background(), mustGetPatient(t, env, patient.PatientID), "did:example:parent")
	require.NoError(t, err)
	assert.False(t, caps.CanView)
	assert.False(t, caps.CanCreate)
	assert.False(t, caps.CanApprove)
}

// TestListWards tests the guardian-side listing
func TestListWards(t *testing.T) {
	env := newTestEnv()
	first := env.registerMinor("did:example:child-one")
	second, svcErr := env.patients.Register(context.Background(), &models.PatientRegisterAPIRequest{
		Identity:    "did:example:child-two",
		Name:        "Second Child",
		DateOfBirth: "2018-05-01T00:00:00Z",
	})
	require.Nil(t, svcErr)

	for _, patientID := range []string{first.PatientID, second.PatientID} {
		_, svcErr := env.guardians.Assign(context.Background(), &models.GuardianAssignAPIRequest{
			PatientID:        patientID,
			GuardianIdentity: "did:example:parent",
			Relationship:     "parent",
		}, "admin")
		require.Nil(t, svcErr)
	}

	wards, svcErr := env.guardians.ListWards(context.Background(), "did:example:parent")
	require.Nil(t, svcErr)
	assert.Len(t, wards, 2)
}

func mustGetPatient(t *testing.T, env *testEnv, patientID string) *models.Patient {
	t.Helper()
	patient, svcErr := env.patients.GetByID(context.Background(), patientID)
	require.Nil(t, svcErr)
	return patient
}
