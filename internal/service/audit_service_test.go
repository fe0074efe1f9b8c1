package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphermed/record-access-api/internal/models"
)

// TestAuditSequenceGapFree tests that patient-scoped sequences count up
// without gaps across mixed operations
func TestAuditSequenceGapFree(t *testing.T) {
	env := newTestEnv()
	patient := env.registerAdult("did:example:alice")

	_, svcErr := env.access.Grant(context.Background(), &models.GrantAPIRequest{
		PatientID:        patient.PatientID,
		ProviderIdentity: "did:example:dr-bob",
		Role:             "doctor",
		CanView:          true,
		GrantedBy:        "did:example:alice",
	})
	require.Nil(t, svcErr)
	_, svcErr = env.access.Authorize(context.Background(), authorizeReq(patient.PatientID, "did:example:dr-bob", "view", "lab_result"))
	require.Nil(t, svcErr)
	_, svcErr = env.patients.Deactivate(context.Background(), patient.PatientID, "admin")
	require.Nil(t, svcErr)

	events := env.auditEventsFor(patient.PatientID)
	require.Len(t, events, 4)
	for i, event := range events {
		assert.Equal(t, int64(i+1), event.Sequence)
	}
}

// TestAuditSequenceConcurrentAppends tests that concurrent appends against
// the same patient never collide on a sequence number
func TestAuditSequenceConcurrentAppends(t *testing.T) {
	env := newTestEnv()
	patient := env.registerAdult("did:example:alice")

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, svcErr := env.audit.Append(context.Background(), &models.AuditEvent{
				PatientID:     patient.PatientID,
				ActorIdentity: "did:example:dr-bob",
				Action:        models.AuditActionView,
				Success:       true,
			})
			assert.Nil(t, svcErr)
		}()
	}
	wg.Wait()

	events := env.auditEventsFor(patient.PatientID)
	require.Len(t, events, workers+1)
	seen := make(map[int64]bool)
	var max int64
	for _, event := range events {
		assert.False(t, seen[event.Sequence], "sequence %d assigned twice", event.Sequence)
		seen[event.Sequence] = true
		if event.Sequence > max {
			max = event.Sequence
		}
	}
	assert.Equal(t, int64(workers+1), max, "sequences must be gap-free")
}

// TestAuditRecordScopeIndependent tests that record-scoped sequences count
// independently of the patient scope
func TestAuditRecordScopeIndependent(t *testing.T) {
	env := newTestEnv()
	patient := env.registerAdult("did:example:alice")

	record, svcErr := env.records.Create(context.Background(), &models.RecordCreateAPIRequest{
		PatientID:   patient.PatientID,
		RecordType:  "lab_result",
		ContentHash: "abc123",
		CreatedBy:   "did:example:alice",
	})
	require.Nil(t, svcErr)

	// First record-scoped event gets sequence 1 despite prior patient events.
	events := env.auditEventsFor(patient.PatientID)
	var recordEvents []models.AuditEvent
	for _, e := range events {
		if e.RecordID != nil && *e.RecordID == record.RecordID {
			recordEvents = append(recordEvents, e)
		}
	}
	require.Len(t, recordEvents, 1)
	assert.Equal(t, int64(1), recordEvents[0].Sequence)
}

// TestAuditAppendRejectsUnknownAction tests the closed action set
func TestAuditAppendRejectsUnknownAction(t *testing.T) {
	env := newTestEnv()
	patient := env.registerAdult("did:example:alice")

	_, svcErr := env.audit.Append(context.Background(), &models.AuditEvent{
		PatientID:     patient.PatientID,
		ActorIdentity: "did:example:dr-bob",
		Action:        "browse",
		Success:       true,
	})
	require.NotNil(t, svcErr)
}

// TestAuditQueryFilters tests filtered retrieval
func TestAuditQueryFilters(t *testing.T) {
	env := newTestEnv()
	patient := env.registerAdult("did:example:alice")
	_, svcErr := env.access.Authorize(context.Background(), authorizeReq(patient.PatientID, "did:example:stranger", "view", "lab_result"))
	require.Nil(t, svcErr)

	failed := false
	events, total, svcErr := env.audit.Query(context.Background(), models.AuditSearchFilters{
		PatientID: patient.PatientID,
		Success:   &failed,
	})
	require.Nil(t, svcErr)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "did:example:stranger", events[0].ActorIdentity)
}

// TestAuditSummary tests compliance aggregation counts
func TestAuditSummary(t *testing.T) {
	env := newTestEnv()
	patient := env.registerAdult("did:example:alice")

	_, svcErr := env.access.Authorize(context.Background(), authorizeReq(patient.PatientID, "did:example:stranger", "view", "lab_result"))
	require.Nil(t, svcErr)
	req := authorizeReq(patient.PatientID, "did:example:medic", "view", "lab_result")
	req.EmergencyClaim = &models.EmergencyClaim{Justification: "roadside trauma"}
	_, svcErr = env.access.Authorize(context.Background(), req)
	require.Nil(t, svcErr)

	summary, svcErr := env.audit.Summary(context.Background(), models.AuditSearchFilters{PatientID: patient.PatientID})
	require.Nil(t, svcErr)
	assert.Equal(t, 3, summary.TotalEvents) // registration, denial, emergency
	assert.Equal(t, 2, summary.SuccessfulCount)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 1, summary.EmergencyCount)
}
