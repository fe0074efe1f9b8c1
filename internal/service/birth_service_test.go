package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
)

func registerBirth(t *testing.T, env *testEnv, certificateID string) *models.BirthRegistration {
	t.Helper()
	registration, svcErr := env.births.RegisterBirth(context.Background(), &models.BirthRegisterAPIRequest{
		BirthCertificateID: certificateID,
		ChildName:          "Newborn Doe",
		BirthDate:          "2026-03-09T04:30:00Z",
		BirthPlace:         "General Hospital",
		GuardianIdentity:   "did:example:parent",
		RegisteredBy:       "did:example:hospital",
	})
	require.Nil(t, svcErr)
	return registration
}

// TestRegisterBirth tests that one registration creates the patient account,
// the guardianship, the registration row and the certificate record together
func TestRegisterBirth(t *testing.T) {
	env := newTestEnv()
	registration := registerBirth(t, env, "BC-2026-0001")

	patient, svcErr := env.patients.GetByID(context.Background(), registration.PatientID)
	require.Nil(t, svcErr)
	assert.Equal(t, "pending:BC-2026-0001", patient.Identity)
	assert.True(t, patient.IsMinor)
	assert.True(t, patient.Active)

	guardians, svcErr := env.guardians.ListByPatient(context.Background(), patient.PatientID, true)
	require.Nil(t, svcErr)
	require.Len(t, guardians, 1)
	assert.Equal(t, "did:example:parent", guardians[0].GuardianIdentity)
	assert.True(t, guardians[0].CanView)
	assert.True(t, guardians[0].CanCreate)
	assert.True(t, guardians[0].CanApprove)

	records, total, svcErr := env.records.ListByPatient(context.Background(), patient.PatientID, 10, 0)
	require.Nil(t, svcErr)
	require.Equal(t, 1, total)
	assert.Equal(t, models.RecordTypeBirthCertificate, records[0].RecordType)
	assert.NotEmpty(t, records[0].ContentHash)

	// Both the registration and the certificate creation are in the ledger.
	events := env.auditEventsFor(patient.PatientID)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, models.AuditActionBirthRegistered)
	assert.Contains(t, actions, models.AuditActionCreate)
}

// TestRegisterBirthDuplicateCertificate tests certificate uniqueness
func TestRegisterBirthDuplicateCertificate(t *testing.T) {
	env := newTestEnv()
	registerBirth(t, env, "BC-2026-0001")

	_, svcErr := env.births.RegisterBirth(context.Background(), &models.BirthRegisterAPIRequest{
		BirthCertificateID: "BC-2026-0001",
		ChildName:          "Other Newborn",
		BirthDate:          "2026-03-09T06:00:00Z",
		BirthPlace:         "General Hospital",
		GuardianIdentity:   "did:example:other-parent",
		RegisteredBy:       "did:example:hospital",
	})
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.ConflictError))
}

// TestRegisterBirthFutureDateRejected tests the birth date guardrail
func TestRegisterBirthFutureDateRejected(t *testing.T) {
	env := newTestEnv()

	_, svcErr := env.births.RegisterBirth(context.Background(), &models.BirthRegisterAPIRequest{
		BirthCertificateID: "BC-2026-0002",
		ChildName:          "Not Born Yet",
		BirthDate:          "2027-01-01T00:00:00Z",
		BirthPlace:         "General Hospital",
		GuardianIdentity:   "did:example:parent",
		RegisteredBy:       "did:example:hospital",
	})
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.ValidationError))
}

// TestAssignIdentity tests linking a real identity to a newborn account
func TestAssignIdentity(t *testing.T) {
	env := newTestEnv()
	registration := registerBirth(t, env, "BC-2026-0001")

	patient, svcErr := env.births.AssignIdentity(context.Background(), registration.PatientID, "did:example:newborn", "did:example:parent")
	require.Nil(t, svcErr)
	assert.Equal(t, "did:example:newborn", patient.Identity)

	// A second assignment is a conflict: the placeholder is gone.
	_, svcErr = env.births.AssignIdentity(context.Background(), registration.PatientID, "did:example:renamed", "did:example:parent")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.ConflictError))
}

// TestAssignIdentityRejections tests the identity assignment guardrails
func TestAssignIdentityRejections(t *testing.T) {
	env := newTestEnv()
	env.registerAdult("did:example:alice")
	registration := registerBirth(t, env, "BC-2026-0001")

	// Placeholder prefix is reserved.
	_, svcErr := env.births.AssignIdentity(context.Background(), registration.PatientID, "pending:BC-9999", "did:example:parent")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.ValidationError))

	// The identity must not belong to another patient.
	_, svcErr = env.births.AssignIdentity(context.Background(), registration.PatientID, "did:example:alice", "did:example:parent")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.DuplicateIdentityError))
}

// TestGetRegistration tests the registration lookup
func TestGetRegistration(t *testing.T) {
	env := newTestEnv()
	registration := registerBirth(t, env, "BC-2026-0001")

	found, svcErr := env.births.GetRegistration(context.Background(), registration.PatientID)
	require.Nil(t, svcErr)
	assert.Equal(t, registration.RegistrationID, found.RegistrationID)
	assert.Equal(t, "BC-2026-0001", found.BirthCertificateID)

	_, svcErr = env.births.GetRegistration(context.Background(), "PAT-missing")
	require.NotNil(t, svcErr)
	assert.True(t, serviceerror.Is(svcErr, serviceerror.ResourceNotFoundError))
}
