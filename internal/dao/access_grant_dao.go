package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const grantColumns = `
	GRANT_ID, PATIENT_ID, PROVIDER_IDENTITY, ROLE, ALLOWED_RECORD_TYPES,
	CAN_CREATE, CAN_MODIFY, CAN_VIEW, EXPIRES_AT, ACTIVE, GRANTED_AT,
	GRANTED_BY, REASON, REVOKED_AT, REVOKED_BY
`

// GrantDAO handles database operations for access grants
type GrantDAO struct {
	db *database.DB
}

// NewGrantDAO creates a new GrantDAO instance
func NewGrantDAO(db *database.DB) *GrantDAO {
	return &GrantDAO{db: db}
}

// CreateWithTx inserts a new access grant using a transaction
func (dao *GrantDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, grant *models.AccessGrant) error {
	query := `
		INSERT INTO RA_ACCESS_GRANT (
			GRANT_ID, PATIENT_ID, PROVIDER_IDENTITY, ROLE, ALLOWED_RECORD_TYPES,
			CAN_CREATE, CAN_MODIFY, CAN_VIEW, EXPIRES_AT, ACTIVE, GRANTED_AT,
			GRANTED_BY, REASON, REVOKED_AT, REVOKED_BY
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		grant.GrantID,
		grant.PatientID,
		grant.ProviderIdentity,
		grant.Role,
		grant.AllowedRecordTypes,
		grant.CanCreate,
		grant.CanModify,
		grant.CanView,
		grant.ExpiresAt,
		grant.Active,
		grant.GrantedAt,
		grant.GrantedBy,
		grant.Reason,
		grant.RevokedAt,
		grant.RevokedBy,
	)

	if err != nil {
		return fmt.Errorf("failed to create access grant: %w", err)
	}

	return nil
}

// GetByID retrieves a grant by ID
func (dao *GrantDAO) GetByID(ctx context.Context, grantID string) (*models.AccessGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM RA_ACCESS_GRANT WHERE GRANT_ID = ?`

	var grant models.AccessGrant
	err := dao.db.GetContext(ctx, &grant, query, grantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get access grant: %w", err)
	}

	return &grant, nil
}

// GetActivePair retrieves the single active grant for a (patient, provider)
// pair, if any.
func (dao *GrantDAO) GetActivePair(ctx context.Context, patientID, providerIdentity string) (*models.AccessGrant, error) {
	query := `SELECT ` + grantColumns + `
		FROM RA_ACCESS_GRANT
		WHERE PATIENT_ID = ? AND PROVIDER_IDENTITY = ? AND ACTIVE = TRUE
		ORDER BY GRANTED_AT DESC
		LIMIT 1`

	var grant models.AccessGrant
	err := dao.db.GetContext(ctx, &grant, query, patientID, providerIdentity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active grant: %w", err)
	}

	return &grant, nil
}

// ListByPatient retrieves grants of a patient with pagination
func (dao *GrantDAO) ListByPatient(ctx context.Context, patientID string, activeOnly bool, limit, offset int) ([]models.AccessGrant, int, error) {
	where := ` WHERE PATIENT_ID = ?`
	if activeOnly {
		where += ` AND ACTIVE = TRUE`
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM RA_ACCESS_GRANT` + where
	if err := dao.db.GetContext(ctx, &total, countQuery, patientID); err != nil {
		return nil, 0, fmt.Errorf("failed to count access grants: %w", err)
	}

	query := `SELECT ` + grantColumns + ` FROM RA_ACCESS_GRANT` + where +
		` ORDER BY GRANTED_AT DESC LIMIT ? OFFSET ?`

	var grants []models.AccessGrant
	if err := dao.db.SelectContext(ctx, &grants, query, patientID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list access grants: %w", err)
	}

	return grants, total, nil
}

// DeactivateWithTx revokes a single grant using a transaction
func (dao *GrantDAO) DeactivateWithTx(ctx context.Context, tx *database.Transaction, grantID, revokedBy string, revokedAt int64) error {
	query := `
		UPDATE RA_ACCESS_GRANT
		SET ACTIVE = FALSE, REVOKED_AT = ?, REVOKED_BY = ?
		WHERE GRANT_ID = ?
	`

	result, err := tx.ExecContext(ctx, query, revokedAt, revokedBy, grantID)
	if err != nil {
		return fmt.Errorf("failed to revoke access grant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("access grant not found: %s", grantID)
	}

	return nil
}

// DeactivateActivePairWithTx marks any active grant for the pair inactive.
// Used when a new grant supersedes the old one in the same transaction.
func (dao *GrantDAO) DeactivateActivePairWithTx(ctx context.Context, tx *database.Transaction, patientID, providerIdentity, revokedBy string, revokedAt int64) error {
	query := `
		UPDATE RA_ACCESS_GRANT
		SET ACTIVE = FALSE, REVOKED_AT = ?, REVOKED_BY = ?
		WHERE PATIENT_ID = ? AND PROVIDER_IDENTITY = ? AND ACTIVE = TRUE
	`

	if _, err := tx.ExecContext(ctx, query, revokedAt, revokedBy, patientID, providerIdentity); err != nil {
		return fmt.Errorf("failed to supersede access grant: %w", err)
	}

	return nil
}
