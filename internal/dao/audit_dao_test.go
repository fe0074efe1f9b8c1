package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphermed/record-access-api/internal/models"
)

// TestMaxSequenceWithTxPatientScope tests the patient-scoped sequence query:
// record-less events only, locked for the duration of the transaction
func TestMaxSequenceWithTxPatientScope(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewAuditDAO(db)
	tx := beginTx(t, db, mock)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(SEQUENCE\), 0\) FROM RA_AUDIT_EVENT WHERE PATIENT_ID = \? AND RECORD_ID IS NULL FOR UPDATE`).
		WithArgs("PAT-1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(7))

	max, err := dao.MaxSequenceWithTx(context.Background(), tx, "PAT-1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMaxSequenceWithTxRecordScope tests the record-scoped sequence query
func TestMaxSequenceWithTxRecordScope(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewAuditDAO(db)
	tx := beginTx(t, db, mock)

	recordID := "REC-1"
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(SEQUENCE\), 0\) FROM RA_AUDIT_EVENT WHERE RECORD_ID = \? FOR UPDATE`).
		WithArgs(recordID).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))

	max, err := dao.MaxSequenceWithTx(context.Background(), tx, "PAT-1", &recordID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max, "empty scope starts at zero")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestAuditCreateWithTx tests the append statement
func TestAuditCreateWithTx(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewAuditDAO(db)
	tx := beginTx(t, db, mock)

	event := &models.AuditEvent{
		AuditID:       "AUDIT-1",
		PatientID:     "PAT-1",
		ActorIdentity: "did:example:dr-bob",
		Action:        models.AuditActionView,
		Success:       true,
		Timestamp:     1700000000000,
		Sequence:      3,
	}

	mock.ExpectExec(`INSERT INTO RA_AUDIT_EVENT`).
		WithArgs(event.AuditID, event.PatientID, nil, event.ActorIdentity, nil,
			event.Action, event.Success, event.IsEmergency, nil, nil, nil,
			event.Timestamp, event.Sequence).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, dao.CreateWithTx(context.Background(), tx, event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestAuditSearchFilters tests the dynamic where clause and ordering
func TestAuditSearchFilters(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewAuditDAO(db)

	success := false
	filters := models.AuditSearchFilters{
		PatientID: "PAT-1",
		Success:   &success,
		Limit:     10,
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM RA_AUDIT_EVENT WHERE 1 = 1 AND PATIENT_ID = \? AND SUCCESS = \?`).
		WithArgs("PAT-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`SELECT .+ FROM RA_AUDIT_EVENT WHERE 1 = 1 AND PATIENT_ID = \? AND SUCCESS = \? ORDER BY TIMESTAMP DESC, SEQUENCE DESC LIMIT \? OFFSET \?`).
		WithArgs("PAT-1", false, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"AUDIT_ID", "PATIENT_ID", "ACTOR_IDENTITY", "ACTION", "SUCCESS", "IS_EMERGENCY", "TIMESTAMP", "SEQUENCE"}).
			AddRow("AUDIT-1", "PAT-1", "did:example:stranger", "view", false, false, 1700000000000, 2))

	events, total, err := dao.Search(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "AUDIT-1", events[0].AuditID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
