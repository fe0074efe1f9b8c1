package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordUpdateContentWithTx tests the partial update: nil fields keep
// their stored value through COALESCE
func TestRecordUpdateContentWithTx(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)
	tx := beginTx(t, db, mock)

	newHash := "sha256:def456"
	mock.ExpectExec(`UPDATE RA_RECORD SET CONTENT_HASH = COALESCE\(\?, CONTENT_HASH\), METADATA = COALESCE\(\?, METADATA\), MODIFIED_TIME = \? WHERE RECORD_ID = \? AND ACTIVE = TRUE`).
		WithArgs(newHash, nil, 1700000000000, "REC-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dao.UpdateContentWithTx(context.Background(), tx, "REC-1", &newHash, nil, 1700000000000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordUpdateTombstoned tests that updating a tombstoned record fails:
// the active guard in the statement matches no rows
func TestRecordUpdateTombstoned(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)
	tx := beginTx(t, db, mock)

	newHash := "sha256:def456"
	mock.ExpectExec(`UPDATE RA_RECORD`).
		WithArgs(newHash, nil, 1700000000000, "REC-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := dao.UpdateContentWithTx(context.Background(), tx, "REC-1", &newHash, nil, 1700000000000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordSoftDeleteWithTx tests the tombstone update
func TestRecordSoftDeleteWithTx(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(`UPDATE RA_RECORD SET ACTIVE = FALSE, MODIFIED_TIME = \? WHERE RECORD_ID = \? AND ACTIVE = TRUE`).
		WithArgs(1700000000000, "REC-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dao.SoftDeleteWithTx(context.Background(), tx, "REC-1", 1700000000000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordSetAccessSequenceWithTx tests the access sequence bump
func TestRecordSetAccessSequenceWithTx(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(`UPDATE RA_RECORD SET ACCESS_SEQUENCE = \? WHERE RECORD_ID = \?`).
		WithArgs(4, "REC-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dao.SetAccessSequenceWithTx(context.Background(), tx, "REC-1", 4)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
