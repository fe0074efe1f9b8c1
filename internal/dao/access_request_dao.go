package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const requestColumns = `
	REQUEST_ID, PATIENT_ID, REQUESTER_IDENTITY, ROLE, REASON, STATUS,
	REQUESTED_AT, EXPIRES_AT, RESOLVED_AT, RESOLVED_BY, DENIAL_REASON
`

// RequestDAO handles database operations for access requests
type RequestDAO struct {
	db *database.DB
}

// NewRequestDAO creates a new RequestDAO instance
func NewRequestDAO(db *database.DB) *RequestDAO {
	return &RequestDAO{db: db}
}

// CreateWithTx inserts a new access request using a transaction
func (dao *RequestDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, request *models.AccessRequest) error {
	query := `
		INSERT INTO RA_ACCESS_REQUEST (
			REQUEST_ID, PATIENT_ID, REQUESTER_IDENTITY, ROLE, REASON, STATUS,
			REQUESTED_AT, EXPIRES_AT, RESOLVED_AT, RESOLVED_BY, DENIAL_REASON
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		request.RequestID,
		request.PatientID,
		request.RequesterIdentity,
		request.Role,
		request.Reason,
		request.Status,
		request.RequestedAt,
		request.ExpiresAt,
		request.ResolvedAt,
		request.ResolvedBy,
		request.DenialReason,
	)

	if err != nil {
		return fmt.Errorf("failed to create access request: %w", err)
	}

	return nil
}

// GetByID retrieves an access request by ID
func (dao *RequestDAO) GetByID(ctx context.Context, requestID string) (*models.AccessRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM RA_ACCESS_REQUEST WHERE REQUEST_ID = ?`

	var request models.AccessRequest
	err := dao.db.GetContext(ctx, &request, query, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get access request: %w", err)
	}

	return &request, nil
}

// Search retrieves access requests matching the given filters with pagination
func (dao *RequestDAO) Search(ctx context.Context, filters models.RequestSearchFilters) ([]models.AccessRequest, int, error) {
	where := ` WHERE 1 = 1`
	args := []interface{}{}

	if filters.PatientID != "" {
		where += ` AND PATIENT_ID = ?`
		args = append(args, filters.PatientID)
	}
	if filters.RequesterIdentity != "" {
		where += ` AND REQUESTER_IDENTITY = ?`
		args = append(args, filters.RequesterIdentity)
	}
	if filters.Status != "" {
		where += ` AND STATUS = ?`
		args = append(args, filters.Status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM RA_ACCESS_REQUEST` + where
	if err := dao.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count access requests: %w", err)
	}

	query := `SELECT ` + requestColumns + ` FROM RA_ACCESS_REQUEST` + where +
		` ORDER BY REQUESTED_AT DESC LIMIT ? OFFSET ?`
	args = append(args, filters.Limit, filters.Offset)

	var requests []models.AccessRequest
	if err := dao.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search access requests: %w", err)
	}

	return requests, total, nil
}

// ResolveWithTx moves a pending request into a terminal status using a
// transaction. The status guard keeps concurrent resolutions from both
// succeeding.
func (dao *RequestDAO) ResolveWithTx(ctx context.Context, tx *database.Transaction, requestID string, status models.RequestStatus, resolvedBy string, resolvedAt int64, denialReason *string) error {
	query := `
		UPDATE RA_ACCESS_REQUEST
		SET STATUS = ?, RESOLVED_AT = ?, RESOLVED_BY = ?, DENIAL_REASON = ?
		WHERE REQUEST_ID = ? AND STATUS = ?
	`

	result, err := tx.ExecContext(ctx, query, status, resolvedAt, resolvedBy, denialReason, requestID, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("failed to resolve access request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("access request not pending: %s", requestID)
	}

	return nil
}
