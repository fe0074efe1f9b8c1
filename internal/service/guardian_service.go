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

// GuardianService manages guardianships over minor patients.
type GuardianService struct {
	db           TxRunner
	patientDAO   dao.PatientDAOContract
	guardianDAO  dao.GuardianDAOContract
	auditService *AuditService
	locks        *lock.Keyed
	clock        clock.Clock
	logger       *logrus.Logger
}

// NewGuardianService creates a new GuardianService instance
func NewGuardianService(db TxRunner, patientDAO dao.PatientDAOContract, guardianDAO dao.GuardianDAOContract, auditService *AuditService, locks *lock.Keyed, clk clock.Clock, logger *logrus.Logger) *GuardianService {
	return &GuardianService{
		db:           db,
		patientDAO:   patientDAO,
		guardianDAO:  guardianDAO,
		auditService: auditService,
		locks:        locks,
		clock:        clk,
		logger:       logger,
	}
}

// Assign creates a guardianship over a minor patient. The guardianship
// expires on the patient's 18th birthday regardless of when it was created.
// Capabilities default to the full set when not supplied.
func (s *GuardianService) Assign(ctx context.Context, request *models.GuardianAssignAPIRequest, assignedBy string) (*models.Guardian, *serviceerror.ServiceError) {
	if err := utils.ValidateIdentity("guardianIdentity", request.GuardianIdentity); err != nil {
		return nil, validationError(err)
	}
	if err := utils.ValidateRequired("relationship", request.Relationship); err != nil {
		return nil, validationError(err)
	}

	release := s.locks.Acquire(request.PatientID)
	defer release()

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
	if !patient.IsMinor {
		return nil, serviceerror.Customf(serviceerror.NotAMinorError, "patient %s is not a minor", request.PatientID)
	}
	if request.GuardianIdentity == patient.Identity {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "a patient cannot be their own guardian")
	}

	capability := func(v *bool) bool {
		if v == nil {
			return true
		}
		return *v
	}

	now := s.clock.Now()
	guardian := &models.Guardian{
		GuardianID:       utils.GenerateGuardianID(),
		PatientID:        request.PatientID,
		GuardianIdentity: request.GuardianIdentity,
		Relationship:     request.Relationship,
		CanView:          capability(request.CanView),
		CanCreate:        capability(request.CanCreate),
		CanApprove:       capability(request.CanApprove),
		Active:           true,
		ExpiresAt:        utils.TimeToMillis(utils.EighteenthBirthday(utils.MillisToTime(patient.DateOfBirth))),
		CreatedTime:      utils.TimeToMillis(now),
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.guardianDAO.CreateWithTx(ctx, tx, guardian); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     request.PatientID,
			ActorIdentity: assignedBy,
			Action:        models.AuditActionGuardianAssigned,
			Success:       true,
			Metadata:      strPtr(`{"guardianId":"` + guardian.GuardianID + `"}`),
		})
	})
	if err != nil {
		return nil, databaseError(s.logger, "assign guardian", err)
	}

	s.logger.WithFields(logrus.Fields{
		"patientId":  request.PatientID,
		"guardianId": guardian.GuardianID,
	}).Info("Guardian assigned")

	return guardian, nil
}

// Revoke deactivates a guardianship before its natural expiry.
func (s *GuardianService) Revoke(ctx context.Context, guardianID, revokedBy string) (*models.Guardian, *serviceerror.ServiceError) {
	guardian, err := s.guardianDAO.GetByID(ctx, guardianID)
	if err != nil {
		return nil, databaseError(s.logger, "get guardian", err)
	}
	if guardian == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "guardian %s not found", guardianID)
	}

	release := s.locks.Acquire(guardian.PatientID)
	defer release()

	// Re-read under the lock so a concurrent revoke is seen.
	guardian, err = s.guardianDAO.GetByID(ctx, guardianID)
	if err != nil {
		return nil, databaseError(s.logger, "get guardian", err)
	}
	if guardian == nil || !guardian.Active {
		return nil, serviceerror.Customf(serviceerror.AlreadyRevokedError, "guardian %s is not active", guardianID)
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.guardianDAO.RevokeWithTx(ctx, tx, guardianID, revokedBy, nowMillis); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     guardian.PatientID,
			ActorIdentity: revokedBy,
			Action:        models.AuditActionGuardianRevoked,
			Success:       true,
			Metadata:      strPtr(`{"guardianId":"` + guardianID + `"}`),
		})
	})
	if err != nil {
		return nil, databaseError(s.logger, "revoke guardian", err)
	}

	guardian.Active = false
	guardian.RevokedAt = &nowMillis
	guardian.RevokedBy = &revokedBy

	s.logger.WithFields(logrus.Fields{
		"patientId":  guardian.PatientID,
		"guardianId": guardianID,
	}).Info("Guardian revoked")

	return guardian, nil
}

// ListByPatient retrieves a patient's guardianships
func (s *GuardianService) ListByPatient(ctx context.Context, patientID string, activeOnly bool) ([]models.Guardian, *serviceerror.ServiceError) {
	guardians, err := s.guardianDAO.ListByPatient(ctx, patientID, activeOnly)
	if err != nil {
		return nil, databaseError(s.logger, "list guardians", err)
	}
	if guardians == nil {
		guardians = []models.Guardian{}
	}
	return guardians, nil
}

// ListWards retrieves the active guardianships held by an identity
func (s *GuardianService) ListWards(ctx context.Context, guardianIdentity string) ([]models.Guardian, *serviceerror.ServiceError) {
	guardians, err := s.guardianDAO.ListByGuardianIdentity(ctx, guardianIdentity, true)
	if err != nil {
		return nil, databaseError(s.logger, "list wards", err)
	}
	if guardians == nil {
		guardians = []models.Guardian{}
	}
	return guardians, nil
}

// EffectiveProxyCapabilities resolves what an actor may do on behalf of a
// minor patient: the union of the actor's active, unexpired guardianships.
// An adult patient always yields the empty set.
func (s *GuardianService) EffectiveProxyCapabilities(ctx context.Context, patient *models.Patient, actorIdentity string) (models.GuardianCapabilities, error) {
	var caps models.GuardianCapabilities
	if !patient.IsMinor {
		return caps, nil
	}

	guardians, err := s.guardianDAO.ListByPatient(ctx, patient.PatientID, true)
	if err != nil {
		return caps, err
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	for _, g := range guardians {
		if g.GuardianIdentity != actorIdentity {
			continue
		}
		if nowMillis > g.ExpiresAt {
			continue
		}
		caps.CanView = caps.CanView || g.CanView
		caps.CanCreate = caps.CanCreate || g.CanCreate
		caps.CanApprove = caps.CanApprove || g.CanApprove
	}

	return caps, nil
}
