package dao

import (
	"context"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const auditColumns = `
	AUDIT_ID, PATIENT_ID, RECORD_ID, ACTOR_IDENTITY, ACTOR_ROLE, ACTION,
	SUCCESS, IS_EMERGENCY, JUSTIFICATION, FAILURE_REASON, METADATA,
	TIMESTAMP, SEQUENCE
`

// AuditDAO handles database operations for the append-only audit ledger.
// There are no update or delete statements against RA_AUDIT_EVENT anywhere
// in this package.
type AuditDAO struct {
	db *database.DB
}

// NewAuditDAO creates a new AuditDAO instance
func NewAuditDAO(db *database.DB) *AuditDAO {
	return &AuditDAO{db: db}
}

// MaxSequenceWithTx returns the highest sequence number already assigned in
// the event's scope: the record when recordID is set, otherwise the patient's
// record-less events. Returns 0 when the scope has no events yet.
func (dao *AuditDAO) MaxSequenceWithTx(ctx context.Context, tx *database.Transaction, patientID string, recordID *string) (int64, error) {
	var query string
	var args []interface{}

	if recordID != nil {
		query = `SELECT COALESCE(MAX(SEQUENCE), 0) FROM RA_AUDIT_EVENT WHERE RECORD_ID = ? FOR UPDATE`
		args = []interface{}{*recordID}
	} else {
		query = `SELECT COALESCE(MAX(SEQUENCE), 0) FROM RA_AUDIT_EVENT WHERE PATIENT_ID = ? AND RECORD_ID IS NULL FOR UPDATE`
		args = []interface{}{patientID}
	}

	var max int64
	if err := tx.GetContext(ctx, &max, query, args...); err != nil {
		return 0, fmt.Errorf("failed to get max audit sequence: %w", err)
	}

	return max, nil
}

// CreateWithTx appends a new audit event using a transaction
func (dao *AuditDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, event *models.AuditEvent) error {
	query := `
		INSERT INTO RA_AUDIT_EVENT (
			AUDIT_ID, PATIENT_ID, RECORD_ID, ACTOR_IDENTITY, ACTOR_ROLE, ACTION,
			SUCCESS, IS_EMERGENCY, JUSTIFICATION, FAILURE_REASON, METADATA,
			TIMESTAMP, SEQUENCE
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		event.AuditID,
		event.PatientID,
		event.RecordID,
		event.ActorIdentity,
		event.ActorRole,
		event.Action,
		event.Success,
		event.IsEmergency,
		event.Justification,
		event.FailureReason,
		event.Metadata,
		event.Timestamp,
		event.Sequence,
	)

	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

func auditWhereClause(filters models.AuditSearchFilters) (string, []interface{}) {
	where := ` WHERE 1 = 1`
	args := []interface{}{}

	if filters.PatientID != "" {
		where += ` AND PATIENT_ID = ?`
		args = append(args, filters.PatientID)
	}
	if filters.ActorIdentity != "" {
		where += ` AND ACTOR_IDENTITY = ?`
		args = append(args, filters.ActorIdentity)
	}
	if filters.Action != "" {
		where += ` AND ACTION = ?`
		args = append(args, filters.Action)
	}
	if filters.RecordID != "" {
		where += ` AND RECORD_ID = ?`
		args = append(args, filters.RecordID)
	}
	if filters.Success != nil {
		where += ` AND SUCCESS = ?`
		args = append(args, *filters.Success)
	}
	if filters.FromTime != nil {
		where += ` AND TIMESTAMP >= ?`
		args = append(args, *filters.FromTime)
	}
	if filters.ToTime != nil {
		where += ` AND TIMESTAMP <= ?`
		args = append(args, *filters.ToTime)
	}

	return where, args
}

// Search retrieves audit events matching the given filters, newest first
func (dao *AuditDAO) Search(ctx context.Context, filters models.AuditSearchFilters) ([]models.AuditEvent, int, error) {
	where, args := auditWhereClause(filters)

	var total int
	countQuery := `SELECT COUNT(*) FROM RA_AUDIT_EVENT` + where
	if err := dao.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	query := `SELECT ` + auditColumns + ` FROM RA_AUDIT_EVENT` + where +
		` ORDER BY TIMESTAMP DESC, SEQUENCE DESC LIMIT ? OFFSET ?`
	args = append(args, filters.Limit, filters.Offset)

	var events []models.AuditEvent
	if err := dao.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search audit events: %w", err)
	}

	return events, total, nil
}

// Summary aggregates audit events matching the given filters for compliance
// reporting.
func (dao *AuditDAO) Summary(ctx context.Context, filters models.AuditSearchFilters) (*models.ComplianceSummary, error) {
	where, args := auditWhereClause(filters)

	var counts struct {
		Total     int `db:"TOTAL"`
		Succeeded int `db:"SUCCEEDED"`
		Emergency int `db:"EMERGENCY"`
	}
	countsQuery := `
		SELECT COUNT(*) AS TOTAL,
		       COALESCE(SUM(CASE WHEN SUCCESS = TRUE THEN 1 ELSE 0 END), 0) AS SUCCEEDED,
		       COALESCE(SUM(CASE WHEN IS_EMERGENCY = TRUE THEN 1 ELSE 0 END), 0) AS EMERGENCY
		FROM RA_AUDIT_EVENT` + where
	if err := dao.db.GetContext(ctx, &counts, countsQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize audit events: %w", err)
	}

	summary := &models.ComplianceSummary{
		TotalEvents:     counts.Total,
		SuccessfulCount: counts.Succeeded,
		FailedCount:     counts.Total - counts.Succeeded,
		EmergencyCount:  counts.Emergency,
	}
	if counts.Total > 0 {
		summary.SuccessRate = float64(counts.Succeeded) / float64(counts.Total)
	}

	actorsQuery := `
		SELECT ACTOR_IDENTITY, COUNT(*) AS CNT
		FROM RA_AUDIT_EVENT` + where + `
		GROUP BY ACTOR_IDENTITY ORDER BY CNT DESC LIMIT 10`
	if err := dao.db.SelectContext(ctx, &summary.TopActors, actorsQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize audit actors: %w", err)
	}

	actionsQuery := `
		SELECT ACTION, COUNT(*) AS CNT
		FROM RA_AUDIT_EVENT` + where + `
		GROUP BY ACTION ORDER BY CNT DESC`
	if err := dao.db.SelectContext(ctx, &summary.ActionBreakdown, actionsQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize audit actions: %w", err)
	}

	return summary, nil
}
