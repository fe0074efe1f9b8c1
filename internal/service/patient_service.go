package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/clock"
	"github.com/cyphermed/record-access-api/internal/dao"
	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/lock"
	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
	"github.com/cyphermed/record-access-api/pkg/utils"
)

const ageOfMajority = 18

// PatientService manages patient accounts and the minor-to-adult transfer.
type PatientService struct {
	db           TxRunner
	patientDAO   dao.PatientDAOContract
	guardianDAO  dao.GuardianDAOContract
	auditService *AuditService
	locks        *lock.Keyed
	clock        clock.Clock
	logger       *logrus.Logger
}

// NewPatientService creates a new PatientService instance
func NewPatientService(db TxRunner, patientDAO dao.PatientDAOContract, guardianDAO dao.GuardianDAOContract, auditService *AuditService, locks *lock.Keyed, clk clock.Clock, logger *logrus.Logger) *PatientService {
	return &PatientService{
		db:           db,
		patientDAO:   patientDAO,
		guardianDAO:  guardianDAO,
		auditService: auditService,
		locks:        locks,
		clock:        clk,
		logger:       logger,
	}
}

// Register creates a new patient account. Identities are unique across all
// patients; a patient under 18 at registration time is flagged as a minor.
func (s *PatientService) Register(ctx context.Context, request *models.PatientRegisterAPIRequest) (*models.Patient, *serviceerror.ServiceError) {
	if err := utils.ValidateIdentity("identity", request.Identity); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateRequired("name", request.Name); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateMaxLength("name", request.Name, 256); err != nil {
		return nil, validationError(err)
	}

	dob, err := utils.ParseTime(request.DateOfBirth)
	if err != nil {
		return nil, serviceerror.Customf(serviceerror.ValidationError, "invalid dateOfBirth: %s", request.DateOfBirth)
	}

	now := s.clock.Now()
	if dob.After(now) {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "dateOfBirth is in the future")
	}

	existing, err := s.patientDAO.GetByIdentity(ctx, request.Identity)
	if err != nil {
		return nil, databaseError(s.logger, "check patient identity", err)
	}
	if existing != nil {
		return nil, serviceerror.Customf(serviceerror.DuplicateIdentityError, "identity %s is already registered", request.Identity)
	}

	nowMillis := utils.TimeToMillis(now)
	patient := &models.Patient{
		PatientID:        utils.GeneratePatientID(),
		Identity:         request.Identity,
		Name:             request.Name,
		DateOfBirth:      utils.TimeToMillis(dob),
		IsMinor:          utils.AgeAt(dob, now) < ageOfMajority,
		EmergencyContact: request.EmergencyContact,
		Active:           true,
		CreatedTime:      nowMillis,
		UpdatedTime:      nowMillis,
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.patientDAO.CreateWithTx(ctx, tx, patient); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			ActorIdentity: request.Identity,
			Action:        models.AuditActionPatientRegistered,
			Success:       true,
		})
	})
	if err != nil {
		return nil, databaseError(s.logger, "register patient", err)
	}

	s.logger.WithFields(logrus.Fields{
		"patientId": patient.PatientID,
		"isMinor":   patient.IsMinor,
	}).Info("Patient registered")

	return patient, nil
}

// GetByID retrieves a patient by ID
func (s *PatientService) GetByID(ctx context.Context, patientID string) (*models.Patient, *serviceerror.ServiceError) {
	patient, err := s.patientDAO.GetByID(ctx, patientID)
	if err != nil {
		return nil, databaseError(s.logger, "get patient", err)
	}
	if patient == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "patient %s not found", patientID)
	}
	return patient, nil
}

// GetByIdentity retrieves a patient by external identity
func (s *PatientService) GetByIdentity(ctx context.Context, identity string) (*models.Patient, *serviceerror.ServiceError) {
	patient, err := s.patientDAO.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, databaseError(s.logger, "get patient by identity", err)
	}
	if patient == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "no patient with identity %s", identity)
	}
	return patient, nil
}

// List retrieves patients with pagination
func (s *PatientService) List(ctx context.Context, limit, offset int) ([]models.Patient, int, *serviceerror.ServiceError) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	patients, total, err := s.patientDAO.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, databaseError(s.logger, "list patients", err)
	}
	if patients == nil {
		patients = []models.Patient{}
	}
	return patients, total, nil
}

// TransferToAdult flips a minor patient to self-control once they have
// reached 18: the minor flag clears, every active guardianship is
// deactivated, and the transfer instant is recorded. The operation is
// idempotent in effect but a second call reports AlreadyTransferred.
func (s *PatientService) TransferToAdult(ctx context.Context, patientID string) (*models.Patient, *serviceerror.ServiceError) {
	release := s.locks.Acquire(patientID)
	defer release()

	patient, svcErr := s.GetByID(ctx, patientID)
	if svcErr != nil {
		return nil, svcErr
	}

	if patient.GuardianTransferredAt != nil {
		return nil, serviceerror.Customf(serviceerror.AlreadyTransferredError, "guardian control for patient %s was already transferred", patientID)
	}
	if !patient.IsMinor {
		return nil, serviceerror.Customf(serviceerror.NotAMinorError, "patient %s is not a minor", patientID)
	}

	now := s.clock.Now()
	dob := utils.MillisToTime(patient.DateOfBirth)
	if now.Before(utils.EighteenthBirthday(dob)) {
		return nil, serviceerror.Customf(serviceerror.StillMinorError, "patient %s has not turned %d yet", patientID, ageOfMajority)
	}

	nowMillis := utils.TimeToMillis(now)
	patient.IsMinor = false
	patient.GuardianTransferredAt = &nowMillis
	patient.UpdatedTime = nowMillis

	err := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.patientDAO.UpdateWithTx(ctx, tx, patient); err != nil {
			return err
		}
		if err := s.guardianDAO.DeactivateAllForPatientWithTx(ctx, tx, patientID, nowMillis); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patientID,
			ActorIdentity: patient.Identity,
			Action:        models.AuditActionGuardianTransfer,
			Success:       true,
		})
	})
	if err != nil {
		return nil, databaseError(s.logger, "transfer guardian control", err)
	}

	s.logger.WithField("patientId", patientID).Info("Guardian control transferred to patient")

	return patient, nil
}

// UpdateEmergencyContact updates the patient's emergency contact
func (s *PatientService) UpdateEmergencyContact(ctx context.Context, patientID string, request *models.PatientUpdateAPIRequest, updatedBy string) (*models.Patient, *serviceerror.ServiceError) {
	release := s.locks.Acquire(patientID)
	defer release()

	patient, svcErr := s.GetByID(ctx, patientID)
	if svcErr != nil {
		return nil, svcErr
	}
	if !patient.Active {
		return nil, serviceerror.Customf(serviceerror.PatientInactiveError, "patient %s is inactive", patientID)
	}

	patient.EmergencyContact = request.EmergencyContact
	patient.UpdatedTime = utils.TimeToMillis(s.clock.Now())

	err := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.patientDAO.UpdateWithTx(ctx, tx, patient); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patientID,
			ActorIdentity: updatedBy,
			Action:        models.AuditActionEmergencyContactUpdated,
			Success:       true,
		})
	})
	if err != nil {
		return nil, databaseError(s.logger, "update emergency contact", err)
	}

	return patient, nil
}

// Deactivate suspends a patient account. Records and audit history are kept;
// authorization checks against the patient start denying.
func (s *PatientService) Deactivate(ctx context.Context, patientID, deactivatedBy string) (*models.Patient, *serviceerror.ServiceError) {
	release := s.locks.Acquire(patientID)
	defer release()

	patient, svcErr := s.GetByID(ctx, patientID)
	if svcErr != nil {
		return nil, svcErr
	}
	if !patient.Active {
		return nil, serviceerror.Customf(serviceerror.PatientInactiveError, "patient %s is already inactive", patientID)
	}

	patient.Active = false
	patient.UpdatedTime = utils.TimeToMillis(s.clock.Now())

	err := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.patientDAO.UpdateWithTx(ctx, tx, patient); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patientID,
			ActorIdentity: deactivatedBy,
			Action:        models.AuditActionPatientDeactivated,
			Success:       true,
		})
	})
	if err != nil {
		return nil, databaseError(s.logger, "deactivate patient", err)
	}

	s.logger.WithField("patientId", patientID).Info("Patient deactivated")

	return patient, nil
}

// Reactivate restores a suspended patient account
func (s *PatientService) Reactivate(ctx context.Context, patientID, reactivatedBy string) (*models.Patient, *serviceerror.ServiceError) {
	release := s.locks.Acquire(patientID)
	defer release()

	patient, svcErr := s.GetByID(ctx, patientID)
	if svcErr != nil {
		return nil, svcErr
	}
	if patient.Active {
		return nil, serviceerror.Customf(serviceerror.PatientAlreadyActiveError, "patient %s is already active", patientID)
	}

	patient.Active = true
	patient.UpdatedTime = utils.TimeToMillis(s.clock.Now())

	err := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.patientDAO.UpdateWithTx(ctx, tx, patient); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patientID,
			ActorIdentity: reactivatedBy,
			Action:        models.AuditActionPatientReactivated,
			Success:       true,
		})
	})
	if err != nil {
		return nil, databaseError(s.logger, "reactivate patient", err)
	}

	s.logger.WithField("patientId", patientID).Info("Patient reactivated")

	return patient, nil
}
