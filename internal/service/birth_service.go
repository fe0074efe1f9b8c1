package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

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

// pendingIdentityPrefix marks a newborn account whose external identity has
// not been assigned yet.
const pendingIdentityPrefix = "pending:"

// BirthService handles birth registration: one atomic operation creates the
// newborn's patient account, the initial guardianship, the registration row
// and the birth certificate record.
type BirthService struct {
	db           TxRunner
	patientDAO   dao.PatientDAOContract
	guardianDAO  dao.GuardianDAOContract
	recordDAO    dao.RecordDAOContract
	birthDAO     dao.BirthRegistrationDAOContract
	auditService *AuditService
	notifier     *notify.Notifier
	locks        *lock.Keyed
	clock        clock.Clock
	logger       *logrus.Logger
}

// NewBirthService creates a new BirthService instance
func NewBirthService(db TxRunner, patientDAO dao.PatientDAOContract, guardianDAO dao.GuardianDAOContract, recordDAO dao.RecordDAOContract, birthDAO dao.BirthRegistrationDAOContract, auditService *AuditService, notifier *notify.Notifier, locks *lock.Keyed, clk clock.Clock, logger *logrus.Logger) *BirthService {
	return &BirthService{
		db:           db,
		patientDAO:   patientDAO,
		guardianDAO:  guardianDAO,
		recordDAO:    recordDAO,
		birthDAO:     birthDAO,
		auditService: auditService,
		notifier:     notifier,
		locks:        locks,
		clock:        clk,
		logger:       logger,
	}
}

// RegisterBirth registers a newborn. The patient account starts with a
// placeholder identity until AssignIdentity links a real one; the declared
// guardian receives full capabilities until the child turns 18.
func (s *BirthService) RegisterBirth(ctx context.Context, request *models.BirthRegisterAPIRequest) (*models.BirthRegistration, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("birthCertificateId", request.BirthCertificateID); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateRequired("childName", request.ChildName); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateRequired("birthPlace", request.BirthPlace); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateIdentity("guardianIdentity", request.GuardianIdentity); err != nil {
		return nil, validationError(err)
	}

	birthDate, err := utils.ParseTime(request.BirthDate)
	if err != nil {
		return nil, serviceerror.Customf(serviceerror.ValidationError, "invalid birthDate: %s", request.BirthDate)
	}

	now := s.clock.Now()
	if birthDate.After(now) {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "birthDate is in the future")
	}

	existing, err := s.birthDAO.GetByCertificateID(ctx, request.BirthCertificateID)
	if err != nil {
		return nil, databaseError(s.logger, "check birth certificate", err)
	}
	if existing != nil {
		return nil, serviceerror.Customf(serviceerror.ConflictError, "birth certificate %s is already registered", request.BirthCertificateID)
	}

	relationship := request.GuardianRelationship
	if relationship == "" {
		relationship = "parent"
	}

	nowMillis := utils.TimeToMillis(now)
	patient := &models.Patient{
		PatientID:   utils.GeneratePatientID(),
		Identity:    pendingIdentityPrefix + request.BirthCertificateID,
		Name:        request.ChildName,
		DateOfBirth: utils.TimeToMillis(birthDate),
		IsMinor:     true,
		Active:      true,
		CreatedTime: nowMillis,
		UpdatedTime: nowMillis,
	}

	guardian := &models.Guardian{
		GuardianID:       utils.GenerateGuardianID(),
		PatientID:        patient.PatientID,
		GuardianIdentity: request.GuardianIdentity,
		Relationship:     relationship,
		CanView:          true,
		CanCreate:        true,
		CanApprove:       true,
		Active:           true,
		ExpiresAt:        utils.TimeToMillis(utils.EighteenthBirthday(birthDate)),
		CreatedTime:      nowMillis,
	}

	registration := &models.BirthRegistration{
		RegistrationID:     utils.GenerateBirthRegistrationID(),
		PatientID:          patient.PatientID,
		BirthCertificateID: request.BirthCertificateID,
		BirthDate:          patient.DateOfBirth,
		BirthPlace:         request.BirthPlace,
		BirthWeight:        request.BirthWeight,
		BirthLength:        request.BirthLength,
		MotherName:         request.MotherName,
		FatherName:         request.FatherName,
		AttendingPhysician: request.AttendingPhysician,
		RegisteredBy:       request.RegisteredBy,
		CreatedTime:        nowMillis,
	}

	certificateMetadata, _ := json.Marshal(map[string]interface{}{
		"birthCertificateId": request.BirthCertificateID,
		"birthPlace":         request.BirthPlace,
		"birthDate":          request.BirthDate,
	})
	hash := sha256.Sum256(certificateMetadata)
	metadata := string(certificateMetadata)

	record := &models.Record{
		RecordID:     utils.GenerateRecordID(),
		PatientID:    patient.PatientID,
		RecordType:   models.RecordTypeBirthCertificate,
		ContentHash:  hex.EncodeToString(hash[:]),
		Metadata:     &metadata,
		CreatedBy:    request.RegisteredBy,
		Active:       true,
		CreatedTime:  nowMillis,
		ModifiedTime: nowMillis,
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.patientDAO.CreateWithTx(ctx, tx, patient); err != nil {
			return err
		}
		if err := s.guardianDAO.CreateWithTx(ctx, tx, guardian); err != nil {
			return err
		}
		if err := s.birthDAO.CreateWithTx(ctx, tx, registration); err != nil {
			return err
		}
		if err := s.recordDAO.CreateWithTx(ctx, tx, record); err != nil {
			return err
		}
		if err := s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			ActorIdentity: request.RegisteredBy,
			Action:        models.AuditActionBirthRegistered,
			Success:       true,
			Metadata:      strPtr(`{"registrationId":"` + registration.RegistrationID + `"}`),
		}); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			RecordID:      &record.RecordID,
			ActorIdentity: request.RegisteredBy,
			Action:        models.AuditActionCreate,
			Success:       true,
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "register birth", txErr)
	}

	s.notifier.Send(ctx, request.GuardianIdentity, models.NotificationRecordCreated, models.PriorityNormal,
		"Birth registered",
		"A birth registration and certificate record were created for your ward", nil)

	s.logger.WithFields(logrus.Fields{
		"patientId":      patient.PatientID,
		"registrationId": registration.RegistrationID,
	}).Info("Birth registered")

	return registration, nil
}

// AssignIdentity links a real external identity to a newborn account that
// still carries its placeholder.
func (s *BirthService) AssignIdentity(ctx context.Context, patientID, identity, assignedBy string) (*models.Patient, *serviceerror.ServiceError) {
	if err := utils.ValidateIdentity("identity", identity); err != nil {
		return nil, validationError(err)
	}
	if strings.HasPrefix(identity, pendingIdentityPrefix) {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "identity must not use the placeholder prefix")
	}

	release := s.locks.Acquire(patientID)
	defer release()

	patient, err := s.patientDAO.GetByID(ctx, patientID)
	if err != nil {
		return nil, databaseError(s.logger, "get patient", err)
	}
	if patient == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "patient %s not found", patientID)
	}
	if !strings.HasPrefix(patient.Identity, pendingIdentityPrefix) {
		return nil, serviceerror.Customf(serviceerror.ConflictError, "patient %s already has an identity", patientID)
	}

	duplicate, err := s.patientDAO.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, databaseError(s.logger, "check patient identity", err)
	}
	if duplicate != nil {
		return nil, serviceerror.Customf(serviceerror.DuplicateIdentityError, "identity %s is already registered", identity)
	}

	patient.Identity = identity
	patient.UpdatedTime = utils.TimeToMillis(s.clock.Now())

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.patientDAO.UpdateWithTx(ctx, tx, patient); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patientID,
			ActorIdentity: assignedBy,
			Action:        models.AuditActionIdentityAssigned,
			Success:       true,
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "assign identity", txErr)
	}

	s.logger.WithField("patientId", patientID).Info("Identity assigned to newborn account")

	return patient, nil
}

// GetRegistration retrieves a birth registration by the child's patient ID
func (s *BirthService) GetRegistration(ctx context.Context, patientID string) (*models.BirthRegistration, *serviceerror.ServiceError) {
	registration, err := s.birthDAO.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil, databaseError(s.logger, "get birth registration", err)
	}
	if registration == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "no birth registration for patient %s", patientID)
	}
	return registration, nil
}
