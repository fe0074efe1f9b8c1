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
	"github.com/cyphermed/record-access-api/internal/notify"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
	"github.com/cyphermed/record-access-api/pkg/utils"
)

// RecordService manages the record catalog: metadata about medical records
// whose payloads live in external storage. Every mutation is authorized
// through the access engine first; a denied attempt is audited and refused.
type RecordService struct {
	db           TxRunner
	patientDAO   dao.PatientDAOContract
	recordDAO    dao.RecordDAOContract
	access       *AccessService
	auditService *AuditService
	notifier     *notify.Notifier
	locks        *lock.Keyed
	clock        clock.Clock
	logger       *logrus.Logger
}

// NewRecordService creates a new RecordService instance
func NewRecordService(db TxRunner, patientDAO dao.PatientDAOContract, recordDAO dao.RecordDAOContract, access *AccessService, auditService *AuditService, notifier *notify.Notifier, locks *lock.Keyed, clk clock.Clock, logger *logrus.Logger) *RecordService {
	return &RecordService{
		db:           db,
		patientDAO:   patientDAO,
		recordDAO:    recordDAO,
		access:       access,
		auditService: auditService,
		notifier:     notifier,
		locks:        locks,
		clock:        clk,
		logger:       logger,
	}
}

// Create catalogs a new record for a patient. The creator must be the
// patient, a guardian with create capability, the holder of a grant covering
// the record type, or an emergency claimant while emergency creation is
// enabled.
func (s *RecordService) Create(ctx context.Context, request *models.RecordCreateAPIRequest) (*models.Record, *serviceerror.ServiceError) {
	recordType, err := models.ParseRecordType(request.RecordType)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRecordTypeError, err.Error())
	}
	if err := utils.ValidateRequired("contentHash", request.ContentHash); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateIdentity("createdBy", request.CreatedBy); err != nil {
		return nil, validationError(err)
	}
	if request.EmergencyClaim != nil {
		if err := utils.ValidateRequired("justification", request.EmergencyClaim.Justification); err != nil {
			return nil, validationError(err)
		}
		if err := utils.ValidateMaxLength("justification", request.EmergencyClaim.Justification, maxReasonLength); err != nil {
			return nil, validationError(err)
		}
	}

	patient, err := s.patientDAO.GetByID(ctx, request.PatientID)
	if err != nil {
		return nil, databaseError(s.logger, "get patient", err)
	}
	if patient == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "patient %s not found", request.PatientID)
	}
	if !patient.Active {
		return nil, serviceerror.Customf(serviceerror.PatientInactiveError, "patient %s is inactive", request.PatientID)
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	decision, actorRole, svcErr := s.authorizeMutation(ctx, patient, nil, request.CreatedBy, models.ActionCreate, recordType, request.EmergencyClaim)
	if svcErr != nil {
		return nil, svcErr
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	record := &models.Record{
		RecordID:     utils.GenerateRecordID(),
		PatientID:    patient.PatientID,
		RecordType:   recordType,
		ContentHash:  request.ContentHash,
		PayloadRef:   request.PayloadRef,
		Metadata:     request.Metadata,
		CreatedBy:    request.CreatedBy,
		Active:       true,
		CreatedTime:  nowMillis,
		ModifiedTime: nowMillis,
	}

	event := &models.AuditEvent{
		PatientID:     patient.PatientID,
		RecordID:      &record.RecordID,
		ActorIdentity: request.CreatedBy,
		ActorRole:     actorRole,
		Action:        models.AuditActionCreate,
		Success:       true,
	}
	if decision.Emergency {
		event.IsEmergency = true
		event.Justification = &request.EmergencyClaim.Justification
	}

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.recordDAO.CreateWithTx(ctx, tx, record); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, event)
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "create record", txErr)
	}
	record.AccessSequence = 1

	s.notifier.Send(ctx, patient.Identity, models.NotificationRecordCreated, models.PriorityNormal,
		"New record added",
		fmt.Sprintf("A %s record was added to your file", recordType), nil)

	s.logger.WithFields(logrus.Fields{
		"patientId":  patient.PatientID,
		"recordId":   record.RecordID,
		"recordType": recordType,
	}).Info("Record cataloged")

	return record, nil
}

// GetByID retrieves a record. Soft-deleted records are reported as missing.
func (s *RecordService) GetByID(ctx context.Context, recordID string) (*models.Record, *serviceerror.ServiceError) {
	record, err := s.recordDAO.GetByID(ctx, recordID)
	if err != nil {
		return nil, databaseError(s.logger, "get record", err)
	}
	if record == nil || !record.Active {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "record %s not found", recordID)
	}
	return record, nil
}

// ListByPatient retrieves a patient's records, excluding soft-deleted ones
func (s *RecordService) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]models.Record, int, *serviceerror.ServiceError) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	records, total, err := s.recordDAO.ListByPatient(ctx, patientID, false, limit, offset)
	if err != nil {
		return nil, 0, databaseError(s.logger, "list records", err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, total, nil
}

// Update modifies a record's content metadata. The updater needs modify
// capability; every update advances the record's access sequence through the
// audit append.
func (s *RecordService) Update(ctx context.Context, recordID string, request *models.RecordUpdateAPIRequest) (*models.Record, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("updateNote", request.UpdateNote); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateMaxLength("updateNote", request.UpdateNote, maxReasonLength); err != nil {
		return nil, validationError(err)
	}

	record, svcErr := s.GetByID(ctx, recordID)
	if svcErr != nil {
		return nil, svcErr
	}
	patient, svcErr := s.getPatient(ctx, record.PatientID)
	if svcErr != nil {
		return nil, svcErr
	}

	release := s.locks.Acquire(record.PatientID)
	defer release()

	if _, _, svcErr := s.authorizeMutation(ctx, patient, &recordID, request.UpdatedBy, models.ActionModify, record.RecordType, nil); svcErr != nil {
		return nil, svcErr
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.recordDAO.UpdateContentWithTx(ctx, tx, recordID, request.ContentHash, request.Metadata, nowMillis); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     record.PatientID,
			RecordID:      &recordID,
			ActorIdentity: request.UpdatedBy,
			Action:        models.AuditActionModify,
			Success:       true,
			Justification: &request.UpdateNote,
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "update record", txErr)
	}

	record, svcErr = s.GetByID(ctx, recordID)
	if svcErr != nil {
		return nil, svcErr
	}

	s.notifier.Send(ctx, patient.Identity, models.NotificationRecordUpdated, models.PriorityNormal,
		"Record updated",
		fmt.Sprintf("Your %s record was updated", record.RecordType), nil)

	return record, nil
}

// SoftDelete tombstones a record: it disappears from listings but the row
// and its audit history remain. Deletion needs modify capability.
func (s *RecordService) SoftDelete(ctx context.Context, recordID, deletedBy string) *serviceerror.ServiceError {
	record, svcErr := s.GetByID(ctx, recordID)
	if svcErr != nil {
		return svcErr
	}
	patient, svcErr := s.getPatient(ctx, record.PatientID)
	if svcErr != nil {
		return svcErr
	}

	release := s.locks.Acquire(record.PatientID)
	defer release()

	if svcErr := s.authorizeDelete(ctx, patient, recordID, deletedBy, record.RecordType); svcErr != nil {
		return svcErr
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.recordDAO.SoftDeleteWithTx(ctx, tx, recordID, nowMillis); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     record.PatientID,
			RecordID:      &recordID,
			ActorIdentity: deletedBy,
			Action:        models.AuditActionDelete,
			Success:       true,
		})
	})
	if txErr != nil {
		return databaseError(s.logger, "soft delete record", txErr)
	}

	s.logger.WithField("recordId", recordID).Info("Record tombstoned")

	return nil
}

// HardDelete removes the record row permanently. The record's audit events
// are kept untouched.
func (s *RecordService) HardDelete(ctx context.Context, recordID, deletedBy string) *serviceerror.ServiceError {
	record, err := s.recordDAO.GetByID(ctx, recordID)
	if err != nil {
		return databaseError(s.logger, "get record", err)
	}
	if record == nil {
		return serviceerror.Customf(serviceerror.ResourceNotFoundError, "record %s not found", recordID)
	}
	patient, svcErr := s.getPatient(ctx, record.PatientID)
	if svcErr != nil {
		return svcErr
	}

	release := s.locks.Acquire(record.PatientID)
	defer release()

	if svcErr := s.authorizeDelete(ctx, patient, recordID, deletedBy, record.RecordType); svcErr != nil {
		return svcErr
	}

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     record.PatientID,
			RecordID:      &recordID,
			ActorIdentity: deletedBy,
			Action:        models.AuditActionDelete,
			Success:       true,
			Metadata:      strPtr(`{"permanent":true}`),
		}); err != nil {
			return err
		}
		return s.recordDAO.DeleteWithTx(ctx, tx, recordID)
	})
	if txErr != nil {
		return databaseError(s.logger, "delete record", txErr)
	}

	s.logger.WithField("recordId", recordID).Info("Record permanently deleted")

	return nil
}

// authorizeMutation runs the access engine for a catalog mutation while the
// caller holds the patient's exclusive section. A denied decision is audited
// with success=false and surfaced as an access_denied error.
func (s *RecordService) authorizeMutation(ctx context.Context, patient *models.Patient, recordID *string, actorIdentity string, action models.Action, recordType models.RecordType, claim *models.EmergencyClaim) (*models.Decision, *string, *serviceerror.ServiceError) {
	decision, actorRole, evalErr := s.access.evaluate(ctx, patient, actorIdentity, action, recordType, claim)
	if evalErr != nil {
		return nil, nil, databaseError(s.logger, "evaluate record access", evalErr)
	}
	if decision.Allow {
		return decision, actorRole, nil
	}

	event := decisionEvent(patient.PatientID, recordID, actorIdentity, actorRole, action, decision, claim)
	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		return s.auditService.AppendWithTx(ctx, tx, event)
	})
	if txErr != nil {
		return nil, nil, databaseError(s.logger, "record access denial", txErr)
	}

	s.logger.WithFields(logrus.Fields{
		"patientId": patient.PatientID,
		"actor":     actorIdentity,
		"action":    action,
	}).Info("Record mutation denied")

	return nil, nil, serviceerror.CustomServiceError(serviceerror.AccessDeniedError, decision.Reason)
}

// authorizeDelete gates deletions behind modify capability. The denial event
// keeps the delete action so the attempted operation stays visible.
func (s *RecordService) authorizeDelete(ctx context.Context, patient *models.Patient, recordID, actorIdentity string, recordType models.RecordType) *serviceerror.ServiceError {
	decision, actorRole, evalErr := s.access.evaluate(ctx, patient, actorIdentity, models.ActionModify, recordType, nil)
	if evalErr != nil {
		return databaseError(s.logger, "evaluate record access", evalErr)
	}
	if decision.Allow {
		return nil
	}

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			RecordID:      &recordID,
			ActorIdentity: actorIdentity,
			ActorRole:     actorRole,
			Action:        models.AuditActionDelete,
			FailureReason: &decision.Reason,
		})
	})
	if txErr != nil {
		return databaseError(s.logger, "record access denial", txErr)
	}

	return serviceerror.CustomServiceError(serviceerror.AccessDeniedError, decision.Reason)
}

func (s *RecordService) getPatient(ctx context.Context, patientID string) (*models.Patient, *serviceerror.ServiceError) {
	patient, err := s.patientDAO.GetByID(ctx, patientID)
	if err != nil {
		return nil, databaseError(s.logger, "get patient", err)
	}
	if patient == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "patient %s not found", patientID)
	}
	return patient, nil
}
