package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const guardianColumns = `
	GUARDIAN_ID, PATIENT_ID, GUARDIAN_IDENTITY, RELATIONSHIP, CAN_VIEW,
	CAN_CREATE, CAN_APPROVE, ACTIVE, EXPIRES_AT, REVOKED_AT, REVOKED_BY,
	CREATED_TIME
`

// GuardianDAO handles database operations for guardians
type GuardianDAO struct {
	db *database.DB
}

// NewGuardianDAO creates a new GuardianDAO instance
func NewGuardianDAO(db *database.DB) *GuardianDAO {
	return &GuardianDAO{db: db}
}

// CreateWithTx inserts a new guardian using a transaction
func (dao *GuardianDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, guardian *models.Guardian) error {
	query := `
		INSERT INTO RA_GUARDIAN (
			GUARDIAN_ID, PATIENT_ID, GUARDIAN_IDENTITY, RELATIONSHIP, CAN_VIEW,
			CAN_CREATE, CAN_APPROVE, ACTIVE, EXPIRES_AT, REVOKED_AT, REVOKED_BY,
			CREATED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		guardian.GuardianID,
		guardian.PatientID,
		guardian.GuardianIdentity,
		guardian.Relationship,
		guardian.CanView,
		guardian.CanCreate,
		guardian.CanApprove,
		guardian.Active,
		guardian.ExpiresAt,
		guardian.RevokedAt,
		guardian.RevokedBy,
		guardian.CreatedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create guardian: %w", err)
	}

	return nil
}

// GetByID retrieves a guardian by ID
func (dao *GuardianDAO) GetByID(ctx context.Context, guardianID string) (*models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM RA_GUARDIAN WHERE GUARDIAN_ID = ?`

	var guardian models.Guardian
	err := dao.db.GetContext(ctx, &guardian, query, guardianID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get guardian: %w", err)
	}

	return &guardian, nil
}

// ListByPatient retrieves guardians of a patient
func (dao *GuardianDAO) ListByPatient(ctx context.Context, patientID string, activeOnly bool) ([]models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM RA_GUARDIAN WHERE PATIENT_ID = ?`
	if activeOnly {
		query += ` AND ACTIVE = TRUE`
	}
	query += ` ORDER BY CREATED_TIME DESC`

	var guardians []models.Guardian
	if err := dao.db.SelectContext(ctx, &guardians, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list guardians: %w", err)
	}

	return guardians, nil
}

// ListByGuardianIdentity retrieves all guardianships held by an identity
func (dao *GuardianDAO) ListByGuardianIdentity(ctx context.Context, identity string, activeOnly bool) ([]models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM RA_GUARDIAN WHERE GUARDIAN_IDENTITY = ?`
	if activeOnly {
		query += ` AND ACTIVE = TRUE`
	}
	query += ` ORDER BY CREATED_TIME DESC`

	var guardians []models.Guardian
	if err := dao.db.SelectContext(ctx, &guardians, query, identity); err != nil {
		return nil, fmt.Errorf("failed to list guardianships: %w", err)
	}

	return guardians, nil
}

// RevokeWithTx deactivates a single guardian using a transaction
func (dao *GuardianDAO) RevokeWithTx(ctx context.Context, tx *database.Transaction, guardianID, revokedBy string, revokedAt int64) error {
	query := `
		UPDATE RA_GUARDIAN
		SET ACTIVE = FALSE, REVOKED_AT = ?, REVOKED_BY = ?
		WHERE GUARDIAN_ID = ?
	`

	result, err := tx.ExecContext(ctx, query, revokedAt, revokedBy, guardianID)
	if err != nil {
		return fmt.Errorf("failed to revoke guardian: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("guardian not found: %s", guardianID)
	}

	return nil
}

// DeactivateAllForPatientWithTx deactivates every active guardian of a
// patient in one statement, as part of the guardian transfer transaction.
func (dao *GuardianDAO) DeactivateAllForPatientWithTx(ctx context.Context, tx *database.Transaction, patientID string, revokedAt int64) error {
	query := `
		UPDATE RA_GUARDIAN
		SET ACTIVE = FALSE, REVOKED_AT = ?
		WHERE PATIENT_ID = ? AND ACTIVE = TRUE
	`

	if _, err := tx.ExecContext(ctx, query, revokedAt, patientID); err != nil {
		return fmt.Errorf("failed to deactivate guardians: %w", err)
	}

	return nil
}
