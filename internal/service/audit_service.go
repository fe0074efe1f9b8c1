package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/clock"
	"github.com/cyphermed/record-access-api/internal/dao"
	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/lock"
	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
	"github.com/cyphermed/record-access-api/pkg/utils"
)

// AuditService owns the append-only audit ledger. Every append reserves the
// next gap-free sequence number inside the caller's transaction while the
// patient's exclusive section is held, so two concurrent events can never
// claim the same number.
type AuditService struct {
	db        TxRunner
	auditDAO  dao.AuditDAOContract
	recordDAO dao.RecordDAOContract
	locks     *lock.Keyed
	clock     clock.Clock
	logger    *logrus.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(db TxRunner, auditDAO dao.AuditDAOContract, recordDAO dao.RecordDAOContract, locks *lock.Keyed, clk clock.Clock, logger *logrus.Logger) *AuditService {
	return &AuditService{
		db:        db,
		auditDAO:  auditDAO,
		recordDAO: recordDAO,
		locks:     locks,
		clock:     clk,
		logger:    logger,
	}
}

// AppendWithTx appends one event inside an existing transaction. The caller
// must hold the patient's exclusive section. The event's AuditID, Timestamp
// and Sequence are assigned here; when the event targets a record, the
// record's access sequence is advanced to match.
func (s *AuditService) AppendWithTx(ctx context.Context, tx *database.Transaction, event *models.AuditEvent) error {
	if !models.IsAuditAction(event.Action) {
		return fmt.Errorf("unknown audit action: %q", event.Action)
	}

	maxSeq, err := s.auditDAO.MaxSequenceWithTx(ctx, tx, event.PatientID, event.RecordID)
	if err != nil {
		return err
	}

	event.AuditID = utils.GenerateAuditID()
	event.Sequence = maxSeq + 1
	if event.Timestamp == 0 {
		event.Timestamp = utils.TimeToMillis(s.clock.Now())
	}

	if err := s.auditDAO.CreateWithTx(ctx, tx, event); err != nil {
		return err
	}

	// Every event referencing a record moves its access sequence forward.
	// After a hard delete the row is gone and the update matches nothing.
	if event.RecordID != nil {
		if err := s.recordDAO.SetAccessSequenceWithTx(ctx, tx, *event.RecordID, event.Sequence); err != nil {
			return err
		}
	}

	return nil
}

// Append records a standalone event under the patient's exclusive section.
func (s *AuditService) Append(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, *serviceerror.ServiceError) {
	release := s.locks.Acquire(event.PatientID)
	defer release()

	err := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		return s.AppendWithTx(ctx, tx, event)
	})
	if err != nil {
		s.logger.WithError(err).WithField("patientId", event.PatientID).Error("Failed to append audit event")
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to append audit event")
	}

	return event, nil
}

// Query retrieves audit events matching the filters, newest first.
func (s *AuditService) Query(ctx context.Context, filters models.AuditSearchFilters) ([]models.AuditEvent, int, *serviceerror.ServiceError) {
	if filters.Limit <= 0 {
		filters.Limit = defaultPageSize
	}

	events, total, err := s.auditDAO.Search(ctx, filters)
	if err != nil {
		s.logger.WithError(err).Error("Failed to search audit events")
		return nil, 0, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to search audit events")
	}

	if events == nil {
		events = []models.AuditEvent{}
	}
	return events, total, nil
}

// Summary aggregates matching events for compliance reporting.
func (s *AuditService) Summary(ctx context.Context, filters models.AuditSearchFilters) (*models.ComplianceSummary, *serviceerror.ServiceError) {
	summary, err := s.auditDAO.Summary(ctx, filters)
	if err != nil {
		s.logger.WithError(err).Error("Failed to summarize audit events")
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to summarize audit events")
	}

	return summary, nil
}
