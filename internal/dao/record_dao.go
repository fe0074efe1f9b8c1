package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const recordColumns = `
	RECORD_ID, PATIENT_ID, RECORD_TYPE, CONTENT_HASH, PAYLOAD_REF, METADATA,
	CREATED_BY, ACTIVE, ACCESS_SEQUENCE, CREATED_TIME, MODIFIED_TIME
`

// RecordDAO handles database operations for the record catalog
type RecordDAO struct {
	db *database.DB
}

// NewRecordDAO creates a new RecordDAO instance
func NewRecordDAO(db *database.DB) *RecordDAO {
	return &RecordDAO{db: db}
}

// CreateWithTx inserts a new record using a transaction
func (dao *RecordDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.Record) error {
	query := `
		INSERT INTO RA_RECORD (
			RECORD_ID, PATIENT_ID, RECORD_TYPE, CONTENT_HASH, PAYLOAD_REF, METADATA,
			CREATED_BY, ACTIVE, ACCESS_SEQUENCE, CREATED_TIME, MODIFIED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		record.RecordID,
		record.PatientID,
		record.RecordType,
		record.ContentHash,
		record.PayloadRef,
		record.Metadata,
		record.CreatedBy,
		record.Active,
		record.AccessSequence,
		record.CreatedTime,
		record.ModifiedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

// GetByID retrieves a record by ID
func (dao *RecordDAO) GetByID(ctx context.Context, recordID string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM RA_RECORD WHERE RECORD_ID = ?`

	var record models.Record
	err := dao.db.GetContext(ctx, &record, query, recordID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return &record, nil
}

// ListByPatient retrieves a patient's records with pagination. Soft-deleted
// records are excluded unless includeDeleted is set.
func (dao *RecordDAO) ListByPatient(ctx context.Context, patientID string, includeDeleted bool, limit, offset int) ([]models.Record, int, error) {
	where := ` WHERE PATIENT_ID = ?`
	if !includeDeleted {
		where += ` AND ACTIVE = TRUE`
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM RA_RECORD` + where
	if err := dao.db.GetContext(ctx, &total, countQuery, patientID); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM RA_RECORD` + where +
		` ORDER BY CREATED_TIME DESC LIMIT ? OFFSET ?`

	var records []models.Record
	if err := dao.db.SelectContext(ctx, &records, query, patientID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}

	return records, total, nil
}

// UpdateContentWithTx updates record content metadata using a transaction.
// Nil fields are left unchanged.
func (dao *RecordDAO) UpdateContentWithTx(ctx context.Context, tx *database.Transaction, recordID string, contentHash, metadata *string, modifiedAt int64) error {
	query := `
		UPDATE RA_RECORD
		SET CONTENT_HASH = COALESCE(?, CONTENT_HASH),
		    METADATA = COALESCE(?, METADATA),
		    MODIFIED_TIME = ?
		WHERE RECORD_ID = ? AND ACTIVE = TRUE
	`

	result, err := tx.ExecContext(ctx, query, contentHash, metadata, modifiedAt, recordID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("record not found: %s", recordID)
	}

	return nil
}

// SoftDeleteWithTx tombstones a record using a transaction
func (dao *RecordDAO) SoftDeleteWithTx(ctx context.Context, tx *database.Transaction, recordID string, deletedAt int64) error {
	query := `
		UPDATE RA_RECORD
		SET ACTIVE = FALSE, MODIFIED_TIME = ?
		WHERE RECORD_ID = ? AND ACTIVE = TRUE
	`

	result, err := tx.ExecContext(ctx, query, deletedAt, recordID)
	if err != nil {
		return fmt.Errorf("failed to soft delete record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("record not found: %s", recordID)
	}

	return nil
}

// DeleteWithTx removes a record row permanently using a transaction. Audit
// events referencing it are left untouched.
func (dao *RecordDAO) DeleteWithTx(ctx context.Context, tx *database.Transaction, recordID string) error {
	query := `DELETE FROM RA_RECORD WHERE RECORD_ID = ?`

	result, err := tx.ExecContext(ctx, query, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("record not found: %s", recordID)
	}

	return nil
}

// SetAccessSequenceWithTx stores the record's latest audit sequence number
func (dao *RecordDAO) SetAccessSequenceWithTx(ctx context.Context, tx *database.Transaction, recordID string, sequence int64) error {
	query := `UPDATE RA_RECORD SET ACCESS_SEQUENCE = ? WHERE RECORD_ID = ?`

	if _, err := tx.ExecContext(ctx, query, sequence, recordID); err != nil {
		return fmt.Errorf("failed to set record access sequence: %w", err)
	}

	return nil
}
