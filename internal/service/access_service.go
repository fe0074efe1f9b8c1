package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/clock"
	"github.com/cyphermed/record-access-api/internal/config"
	"github.com/cyphermed/record-access-api/internal/dao"
	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/lock"
	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/notify"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
	"github.com/cyphermed/record-access-api/pkg/utils"
)

// AccessService is the authorization core: it evaluates access decisions,
// manages standing grants, and drives the request/approval workflow. Every
// authorization decision, allowed or denied, lands in the audit ledger
// exactly once.
type AccessService struct {
	db              TxRunner
	patientDAO      dao.PatientDAOContract
	grantDAO        dao.GrantDAOContract
	requestDAO      dao.RequestDAOContract
	guardianService *GuardianService
	auditService    *AuditService
	notifier        *notify.Notifier
	locks           *lock.Keyed
	clock           clock.Clock
	cfg             config.AccessConfig
	logger          *logrus.Logger
}

// NewAccessService creates a new AccessService instance
func NewAccessService(db TxRunner, patientDAO dao.PatientDAOContract, grantDAO dao.GrantDAOContract, requestDAO dao.RequestDAOContract, guardianService *GuardianService, auditService *AuditService, notifier *notify.Notifier, locks *lock.Keyed, clk clock.Clock, cfg config.AccessConfig, logger *logrus.Logger) *AccessService {
	return &AccessService{
		db:              db,
		patientDAO:      patientDAO,
		grantDAO:        grantDAO,
		requestDAO:      requestDAO,
		guardianService: guardianService,
		auditService:    auditService,
		notifier:        notifier,
		locks:           locks,
		clock:           clk,
		cfg:             cfg,
		logger:          logger,
	}
}

// Authorize decides whether an actor may perform an action against a
// patient's records. Evaluation order: patient active, self access, guardian
// proxy, standing grant, emergency override. A denial is a normal outcome
// carried in the Decision, not an error. The decision and its audit event
// commit together.
func (s *AccessService) Authorize(ctx context.Context, request *models.AuthorizeAPIRequest) (*models.Decision, *serviceerror.ServiceError) {
	action, err := models.ParseAction(request.Action)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	recordType, err := models.ParseRecordType(request.RecordType)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRecordTypeError, err.Error())
	}
	if request.EmergencyClaim != nil {
		if err := utils.ValidateRequired("justification", request.EmergencyClaim.Justification); err != nil {
			return nil, validationError(err)
		}
		if err := utils.ValidateMaxLength("justification", request.EmergencyClaim.Justification, maxReasonLength); err != nil {
			return nil, validationError(err)
		}
	}

	patient, svcErr := s.getPatient(ctx, request.PatientID)
	if svcErr != nil {
		return nil, svcErr
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	decision, actorRole, evalErr := s.evaluate(ctx, patient, request.ActorIdentity, action, recordType, request.EmergencyClaim)
	if evalErr != nil {
		return nil, databaseError(s.logger, "evaluate authorization", evalErr)
	}

	event := decisionEvent(patient.PatientID, request.RecordID, request.ActorIdentity, actorRole, action, decision, request.EmergencyClaim)

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		return s.auditService.AppendWithTx(ctx, tx, event)
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "record authorization decision", txErr)
	}

	if decision.Allow && decision.Emergency {
		s.notifier.Send(ctx, patient.Identity, models.NotificationEmergencyAccess, models.PriorityUrgent,
			"Emergency access to your records",
			fmt.Sprintf("%s accessed your records under the emergency override", request.ActorIdentity), nil)
	}

	s.logger.WithFields(logrus.Fields{
		"patientId": patient.PatientID,
		"actor":     request.ActorIdentity,
		"action":    action,
		"allow":     decision.Allow,
		"path":      decision.Path,
	}).Info("Authorization decision")

	return decision, nil
}

func (s *AccessService) evaluate(ctx context.Context, patient *models.Patient, actorIdentity string, action models.Action, recordType models.RecordType, claim *models.EmergencyClaim) (*models.Decision, *string, error) {
	if !patient.Active {
		return &models.Decision{
			Reason:     "patient account is inactive",
			ReasonCode: models.DecisionInactive,
		}, nil, nil
	}

	// The patient always controls their own records, minor or not.
	if actorIdentity == patient.Identity {
		return &models.Decision{
			Allow:      true,
			Reason:     "actor is the patient",
			ReasonCode: models.DecisionSelf,
			Path:       models.DecisionSelf,
		}, nil, nil
	}

	if patient.IsMinor {
		caps, err := s.guardianService.EffectiveProxyCapabilities(ctx, patient, actorIdentity)
		if err != nil {
			return nil, nil, err
		}
		if caps.Covers(action) {
			return &models.Decision{
				Allow:      true,
				Reason:     "actor holds an active guardianship",
				ReasonCode: models.DecisionGuardianProxy,
				Path:       models.DecisionGuardianProxy,
			}, nil, nil
		}
	}

	grant, err := s.grantDAO.GetActivePair(ctx, patient.PatientID, actorIdentity)
	if err != nil {
		return nil, nil, err
	}
	if grant != nil && s.grantUsable(grant) && grant.AllowedRecordTypes.Allows(recordType) {
		caps := models.GrantCapabilities{CanCreate: grant.CanCreate, CanModify: grant.CanModify, CanView: grant.CanView}
		if caps.Covers(action) {
			role := string(grant.Role)
			return &models.Decision{
				Allow:      true,
				Reason:     "actor holds an active grant",
				ReasonCode: models.DecisionGrant,
				Path:       models.DecisionGrant,
			}, &role, nil
		}
	}

	if claim != nil {
		role := string(models.RoleEmergencyResponder)
		switch {
		case action == models.ActionModify:
			return &models.Decision{
				Reason:     "emergency override never covers modification",
				ReasonCode: models.DecisionEmergencyWrite,
				Emergency:  true,
			}, &role, nil
		case action == models.ActionCreate && !s.cfg.EmergencyCreateEnabled:
			return &models.Decision{
				Reason:     "emergency record creation is disabled",
				ReasonCode: models.DecisionEmergencyWrite,
				Emergency:  true,
			}, &role, nil
		default:
			return &models.Decision{
				Allow:      true,
				Reason:     "emergency override",
				ReasonCode: models.DecisionEmergency,
				Path:       models.DecisionEmergency,
				Emergency:  true,
			}, &role, nil
		}
	}

	return &models.Decision{
		Reason:     "no access path covers the action",
		ReasonCode: models.DecisionNoActiveGrant,
	}, nil, nil
}

// decisionEvent builds the audit event for one authorization decision.
// Emergency decisions are recorded as emergency_access with the claimed
// justification; denials carry the reason.
func decisionEvent(patientID string, recordID *string, actorIdentity string, actorRole *string, action models.Action, decision *models.Decision, claim *models.EmergencyClaim) *models.AuditEvent {
	event := &models.AuditEvent{
		PatientID:     patientID,
		RecordID:      recordID,
		ActorIdentity: actorIdentity,
		ActorRole:     actorRole,
		Action:        string(action),
		Success:       decision.Allow,
		IsEmergency:   decision.Emergency,
	}
	if decision.Emergency {
		event.Action = models.AuditActionEmergencyAccess
		event.Justification = &claim.Justification
	}
	if !decision.Allow {
		event.FailureReason = &decision.Reason
	}
	return event
}

// normalizeScope treats an omitted record type scope as unrestricted.
func normalizeScope(scope models.RecordTypeSet) models.RecordTypeSet {
	if !scope.All && len(scope.Types) == 0 {
		return models.AllRecordTypes()
	}
	return scope
}

func (s *AccessService) grantUsable(grant *models.AccessGrant) bool {
	if !grant.Active {
		return false
	}
	if grant.ExpiresAt != nil && utils.TimeToMillis(s.clock.Now()) > *grant.ExpiresAt {
		return false
	}
	return true
}

// Grant issues a standing grant directly, superseding any active grant for
// the same (patient, provider) pair.
func (s *AccessService) Grant(ctx context.Context, request *models.GrantAPIRequest) (*models.AccessGrant, *serviceerror.ServiceError) {
	role, err := models.ParseRole(request.Role)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRoleError, err.Error())
	}
	if err := utils.ValidateIdentity("providerIdentity", request.ProviderIdentity); err != nil {
		return nil, validationError(err)
	}
	if !request.CanCreate && !request.CanModify && !request.CanView {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "grant must carry at least one capability")
	}
	if request.Reason != nil {
		if err := utils.ValidateMaxLength("reason", *request.Reason, maxReasonLength); err != nil {
			return nil, validationError(err)
		}
	}

	now := s.clock.Now()
	var expiresAt *int64
	if request.ExpiresAt != nil {
		t, err := utils.ParseTime(*request.ExpiresAt)
		if err != nil {
			return nil, serviceerror.Customf(serviceerror.ValidationError, "invalid expiresAt: %s", *request.ExpiresAt)
		}
		if !t.After(now) {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "expiresAt must be in the future")
		}
		millis := utils.TimeToMillis(t)
		expiresAt = &millis
	}

	patient, svcErr := s.getPatient(ctx, request.PatientID)
	if svcErr != nil {
		return nil, svcErr
	}
	if !patient.Active {
		return nil, serviceerror.Customf(serviceerror.PatientInactiveError, "patient %s is inactive", patient.PatientID)
	}
	if request.ProviderIdentity == patient.Identity {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "a patient cannot grant access to themselves")
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	nowMillis := utils.TimeToMillis(now)
	grant := &models.AccessGrant{
		GrantID:            utils.GenerateGrantID(),
		PatientID:          patient.PatientID,
		ProviderIdentity:   request.ProviderIdentity,
		Role:               role,
		AllowedRecordTypes: normalizeScope(request.AllowedRecordTypes),
		CanCreate:          request.CanCreate,
		CanModify:          request.CanModify,
		CanView:            request.CanView,
		ExpiresAt:          expiresAt,
		Active:             true,
		GrantedAt:          nowMillis,
		GrantedBy:          request.GrantedBy,
		Reason:             request.Reason,
	}

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.grantDAO.DeactivateActivePairWithTx(ctx, tx, patient.PatientID, request.ProviderIdentity, request.GrantedBy, nowMillis); err != nil {
			return err
		}
		if err := s.grantDAO.CreateWithTx(ctx, tx, grant); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			ActorIdentity: request.GrantedBy,
			Action:        models.AuditActionGrantAccess,
			Success:       true,
			Metadata:      strPtr(`{"grantId":"` + grant.GrantID + `","provider":"` + request.ProviderIdentity + `"}`),
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "create access grant", txErr)
	}

	s.notifier.Send(ctx, request.ProviderIdentity, models.NotificationAccessGranted, models.PriorityNormal,
		"Access granted",
		fmt.Sprintf("You were granted access to patient %s's records", patient.PatientID), nil)

	s.logger.WithFields(logrus.Fields{
		"patientId": patient.PatientID,
		"grantId":   grant.GrantID,
	}).Info("Access grant created")

	return grant, nil
}

// RevokeGrant deactivates a standing grant.
func (s *AccessService) RevokeGrant(ctx context.Context, grantID, revokedBy string) (*models.AccessGrant, *serviceerror.ServiceError) {
	grant, err := s.grantDAO.GetByID(ctx, grantID)
	if err != nil {
		return nil, databaseError(s.logger, "get access grant", err)
	}
	if grant == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "access grant %s not found", grantID)
	}

	release := s.locks.Acquire(grant.PatientID)
	defer release()

	// Re-read under the lock so a concurrent revoke is seen.
	grant, err = s.grantDAO.GetByID(ctx, grantID)
	if err != nil {
		return nil, databaseError(s.logger, "get access grant", err)
	}
	if grant == nil || !grant.Active {
		return nil, serviceerror.Customf(serviceerror.AlreadyInactiveError, "access grant %s is not active", grantID)
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.grantDAO.DeactivateWithTx(ctx, tx, grantID, revokedBy, nowMillis); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     grant.PatientID,
			ActorIdentity: revokedBy,
			Action:        models.AuditActionRevokeAccess,
			Success:       true,
			Metadata:      strPtr(`{"grantId":"` + grantID + `"}`),
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "revoke access grant", txErr)
	}

	grant.Active = false
	grant.RevokedAt = &nowMillis
	grant.RevokedBy = &revokedBy

	s.notifier.Send(ctx, grant.ProviderIdentity, models.NotificationAccessRevoked, models.PriorityNormal,
		"Access revoked",
		fmt.Sprintf("Your access to patient %s's records was revoked", grant.PatientID), nil)

	return grant, nil
}

// ListGrants retrieves a patient's grants with pagination
func (s *AccessService) ListGrants(ctx context.Context, patientID string, activeOnly bool, limit, offset int) ([]models.AccessGrant, int, *serviceerror.ServiceError) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	grants, total, err := s.grantDAO.ListByPatient(ctx, patientID, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, databaseError(s.logger, "list access grants", err)
	}
	if grants == nil {
		grants = []models.AccessGrant{}
	}
	return grants, total, nil
}

// SubmitRequest files a provider's ask for access. The request stays pending
// until resolved or until its validity window lapses.
func (s *AccessService) SubmitRequest(ctx context.Context, request *models.RequestSubmitAPIRequest) (*models.AccessRequest, *serviceerror.ServiceError) {
	role, err := models.ParseRole(request.Role)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRoleError, err.Error())
	}
	if err := utils.ValidateIdentity("requesterIdentity", request.RequesterIdentity); err != nil {
		return nil, validationError(err)
	}
	if request.Reason != nil {
		if err := utils.ValidateMaxLength("reason", *request.Reason, maxReasonLength); err != nil {
			return nil, validationError(err)
		}
	}

	patient, svcErr := s.getPatient(ctx, request.PatientID)
	if svcErr != nil {
		return nil, svcErr
	}
	if !patient.Active {
		return nil, serviceerror.Customf(serviceerror.PatientInactiveError, "patient %s is inactive", patient.PatientID)
	}
	if request.RequesterIdentity == patient.Identity {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "a patient cannot request access to their own records")
	}

	now := s.clock.Now()
	expiresAt := utils.TimeToMillis(now.Add(time.Duration(s.cfg.RequestTTLDays) * 24 * time.Hour))
	if request.ExpiresAt != nil {
		t, err := utils.ParseTime(*request.ExpiresAt)
		if err != nil {
			return nil, serviceerror.Customf(serviceerror.ValidationError, "invalid expiresAt: %s", *request.ExpiresAt)
		}
		if !t.After(now) {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "expiresAt must be in the future")
		}
		expiresAt = utils.TimeToMillis(t)
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	accessRequest := &models.AccessRequest{
		RequestID:         utils.GenerateRequestID(),
		PatientID:         patient.PatientID,
		RequesterIdentity: request.RequesterIdentity,
		Role:              role,
		Reason:            request.Reason,
		Status:            models.RequestStatusPending,
		RequestedAt:       utils.TimeToMillis(now),
		ExpiresAt:         expiresAt,
	}

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.requestDAO.CreateWithTx(ctx, tx, accessRequest); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			ActorIdentity: request.RequesterIdentity,
			ActorRole:     strPtr(string(role)),
			Action:        models.AuditActionRequestAccess,
			Success:       true,
			Metadata:      strPtr(`{"requestId":"` + accessRequest.RequestID + `"}`),
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "submit access request", txErr)
	}

	s.notifyApprovers(ctx, patient, models.NotificationAccessRequest, models.PriorityHigh,
		"New access request",
		fmt.Sprintf("%s requested access to patient %s's records", request.RequesterIdentity, patient.PatientID))

	s.logger.WithFields(logrus.Fields{
		"patientId": patient.PatientID,
		"requestId": accessRequest.RequestID,
	}).Info("Access request submitted")

	return accessRequest, nil
}

// ApproveRequest resolves a pending request and issues the resulting grant
// in the same transaction: a half-approved request is never visible.
func (s *AccessService) ApproveRequest(ctx context.Context, requestID string, request *models.RequestApproveAPIRequest) (*models.AccessGrant, *serviceerror.ServiceError) {
	if !request.CanCreate && !request.CanModify && !request.CanView {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "approval must carry at least one capability")
	}

	accessRequest, err := s.requestDAO.GetByID(ctx, requestID)
	if err != nil {
		return nil, databaseError(s.logger, "get access request", err)
	}
	if accessRequest == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "access request %s not found", requestID)
	}

	patient, svcErr := s.getPatient(ctx, accessRequest.PatientID)
	if svcErr != nil {
		return nil, svcErr
	}
	if !patient.Active {
		return nil, serviceerror.Customf(serviceerror.PatientInactiveError, "patient %s is inactive", patient.PatientID)
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	// Re-read under the lock so only one of two racing resolutions wins.
	accessRequest, err = s.requestDAO.GetByID(ctx, requestID)
	if err != nil {
		return nil, databaseError(s.logger, "get access request", err)
	}
	if accessRequest == nil || accessRequest.Status != models.RequestStatusPending {
		return nil, serviceerror.Customf(serviceerror.NotPendingError, "access request %s is not pending", requestID)
	}

	now := s.clock.Now()
	nowMillis := utils.TimeToMillis(now)
	if nowMillis > accessRequest.ExpiresAt {
		return nil, serviceerror.Customf(serviceerror.RequestExpiredError, "access request %s expired", requestID)
	}

	if svcErr := s.checkResolver(ctx, patient, request.ApprovedBy); svcErr != nil {
		return nil, svcErr
	}

	var grantExpiresAt *int64
	if request.GrantExpiresAt != nil {
		t, err := utils.ParseTime(*request.GrantExpiresAt)
		if err != nil {
			return nil, serviceerror.Customf(serviceerror.ValidationError, "invalid grantExpiresAt: %s", *request.GrantExpiresAt)
		}
		if !t.After(now) {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "grantExpiresAt must be in the future")
		}
		millis := utils.TimeToMillis(t)
		grantExpiresAt = &millis
	}

	grant := &models.AccessGrant{
		GrantID:            utils.GenerateGrantID(),
		PatientID:          patient.PatientID,
		ProviderIdentity:   accessRequest.RequesterIdentity,
		Role:               accessRequest.Role,
		AllowedRecordTypes: normalizeScope(request.AllowedRecordTypes),
		CanCreate:          request.CanCreate,
		CanModify:          request.CanModify,
		CanView:            request.CanView,
		ExpiresAt:          grantExpiresAt,
		Active:             true,
		GrantedAt:          nowMillis,
		GrantedBy:          request.ApprovedBy,
		Reason:             accessRequest.Reason,
	}

	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.requestDAO.ResolveWithTx(ctx, tx, requestID, models.RequestStatusApproved, request.ApprovedBy, nowMillis, nil); err != nil {
			return err
		}
		if err := s.grantDAO.DeactivateActivePairWithTx(ctx, tx, patient.PatientID, accessRequest.RequesterIdentity, request.ApprovedBy, nowMillis); err != nil {
			return err
		}
		if err := s.grantDAO.CreateWithTx(ctx, tx, grant); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			ActorIdentity: request.ApprovedBy,
			Action:        models.AuditActionApproveAccessRequest,
			Success:       true,
			Metadata:      strPtr(`{"requestId":"` + requestID + `","grantId":"` + grant.GrantID + `"}`),
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "approve access request", txErr)
	}

	s.notifier.Send(ctx, accessRequest.RequesterIdentity, models.NotificationAccessGranted, models.PriorityNormal,
		"Access request approved",
		fmt.Sprintf("Your access request for patient %s was approved", patient.PatientID), nil)

	s.logger.WithFields(logrus.Fields{
		"patientId": patient.PatientID,
		"requestId": requestID,
		"grantId":   grant.GrantID,
	}).Info("Access request approved")

	return grant, nil
}

// DenyRequest resolves a pending request without issuing a grant.
func (s *AccessService) DenyRequest(ctx context.Context, requestID string, request *models.RequestDenyAPIRequest) (*models.AccessRequest, *serviceerror.ServiceError) {
	if request.Reason != nil {
		if err := utils.ValidateMaxLength("reason", *request.Reason, maxReasonLength); err != nil {
			return nil, validationError(err)
		}
	}

	accessRequest, err := s.requestDAO.GetByID(ctx, requestID)
	if err != nil {
		return nil, databaseError(s.logger, "get access request", err)
	}
	if accessRequest == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "access request %s not found", requestID)
	}

	patient, svcErr := s.getPatient(ctx, accessRequest.PatientID)
	if svcErr != nil {
		return nil, svcErr
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	accessRequest, err = s.requestDAO.GetByID(ctx, requestID)
	if err != nil {
		return nil, databaseError(s.logger, "get access request", err)
	}
	if accessRequest == nil || accessRequest.Status != models.RequestStatusPending {
		return nil, serviceerror.Customf(serviceerror.NotPendingError, "access request %s is not pending", requestID)
	}

	if svcErr := s.checkResolver(ctx, patient, request.DeniedBy); svcErr != nil {
		return nil, svcErr
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.requestDAO.ResolveWithTx(ctx, tx, requestID, models.RequestStatusDenied, request.DeniedBy, nowMillis, request.Reason); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			ActorIdentity: request.DeniedBy,
			Action:        models.AuditActionDenyAccessRequest,
			Success:       true,
			Metadata:      strPtr(`{"requestId":"` + requestID + `"}`),
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "deny access request", txErr)
	}

	accessRequest.Status = models.RequestStatusDenied
	accessRequest.ResolvedAt = &nowMillis
	accessRequest.ResolvedBy = &request.DeniedBy
	accessRequest.DenialReason = request.Reason

	s.notifier.Send(ctx, accessRequest.RequesterIdentity, models.NotificationAccessDenied, models.PriorityNormal,
		"Access request denied",
		fmt.Sprintf("Your access request for patient %s was denied", patient.PatientID), nil)

	return accessRequest, nil
}

// CancelRequest withdraws a pending request. The requester may cancel their
// own request; the patient side may cancel as well.
func (s *AccessService) CancelRequest(ctx context.Context, requestID string, request *models.RequestCancelAPIRequest) (*models.AccessRequest, *serviceerror.ServiceError) {
	accessRequest, err := s.requestDAO.GetByID(ctx, requestID)
	if err != nil {
		return nil, databaseError(s.logger, "get access request", err)
	}
	if accessRequest == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "access request %s not found", requestID)
	}

	patient, svcErr := s.getPatient(ctx, accessRequest.PatientID)
	if svcErr != nil {
		return nil, svcErr
	}

	release := s.locks.Acquire(patient.PatientID)
	defer release()

	accessRequest, err = s.requestDAO.GetByID(ctx, requestID)
	if err != nil {
		return nil, databaseError(s.logger, "get access request", err)
	}
	if accessRequest == nil || accessRequest.Status != models.RequestStatusPending {
		return nil, serviceerror.Customf(serviceerror.NotPendingError, "access request %s is not pending", requestID)
	}

	if request.CancelledBy != accessRequest.RequesterIdentity {
		if svcErr := s.checkResolver(ctx, patient, request.CancelledBy); svcErr != nil {
			return nil, svcErr
		}
	}

	nowMillis := utils.TimeToMillis(s.clock.Now())
	txErr := s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.requestDAO.ResolveWithTx(ctx, tx, requestID, models.RequestStatusCancelled, request.CancelledBy, nowMillis, nil); err != nil {
			return err
		}
		return s.auditService.AppendWithTx(ctx, tx, &models.AuditEvent{
			PatientID:     patient.PatientID,
			ActorIdentity: request.CancelledBy,
			Action:        models.AuditActionCancelAccessRequest,
			Success:       true,
			Metadata:      strPtr(`{"requestId":"` + requestID + `"}`),
		})
	})
	if txErr != nil {
		return nil, databaseError(s.logger, "cancel access request", txErr)
	}

	accessRequest.Status = models.RequestStatusCancelled
	accessRequest.ResolvedAt = &nowMillis
	accessRequest.ResolvedBy = &request.CancelledBy

	return accessRequest, nil
}

// BatchApprove approves several requests with per-item isolation: one bad
// request never rolls back its siblings.
func (s *AccessService) BatchApprove(ctx context.Context, request *models.BatchApproveAPIRequest) (*models.BatchApproveResult, *serviceerror.ServiceError) {
	if len(request.RequestIDs) == 0 {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "requestIds must not be empty")
	}

	result := &models.BatchApproveResult{Results: make([]models.BatchItemOutcome, 0, len(request.RequestIDs))}
	for _, requestID := range request.RequestIDs {
		_, svcErr := s.ApproveRequest(ctx, requestID, &models.RequestApproveAPIRequest{
			AllowedRecordTypes: request.AllowedRecordTypes,
			CanCreate:          request.CanCreate,
			CanModify:          request.CanModify,
			CanView:            request.CanView,
			GrantExpiresAt:     request.GrantExpiresAt,
			ApprovedBy:         request.ApprovedBy,
		})
		outcome := models.BatchItemOutcome{RequestID: requestID, Success: svcErr == nil}
		if svcErr != nil {
			outcome.ErrorCode = svcErr.Code
			outcome.Error = svcErr.ErrorDescription
			result.Failed++
		} else {
			result.Approved++
		}
		result.Results = append(result.Results, outcome)
	}

	return result, nil
}

// ListRequests retrieves access requests matching the filters
func (s *AccessService) ListRequests(ctx context.Context, filters models.RequestSearchFilters) ([]models.AccessRequest, int, *serviceerror.ServiceError) {
	if filters.Limit <= 0 {
		filters.Limit = defaultPageSize
	}

	requests, total, err := s.requestDAO.Search(ctx, filters)
	if err != nil {
		return nil, 0, databaseError(s.logger, "list access requests", err)
	}
	if requests == nil {
		requests = []models.AccessRequest{}
	}
	return requests, total, nil
}

func (s *AccessService) getPatient(ctx context.Context, patientID string) (*models.Patient, *serviceerror.ServiceError) {
	patient, err := s.patientDAO.GetByID(ctx, patientID)
	if err != nil {
		return nil, databaseError(s.logger, "get patient", err)
	}
	if patient == nil {
		return nil, serviceerror.Customf(serviceerror.ResourceNotFoundError, "patient %s not found", patientID)
	}
	return patient, nil
}

// checkResolver verifies that an actor may resolve requests for the patient:
// the patient themselves, or a guardian holding approve capability while the
// patient is a minor.
func (s *AccessService) checkResolver(ctx context.Context, patient *models.Patient, actorIdentity string) *serviceerror.ServiceError {
	if actorIdentity == patient.Identity {
		return nil
	}

	caps, err := s.guardianService.EffectiveProxyCapabilities(ctx, patient, actorIdentity)
	if err != nil {
		return databaseError(s.logger, "resolve guardian capabilities", err)
	}
	if caps.CanApprove {
		return nil
	}

	return serviceerror.Customf(serviceerror.ValidationError, "%s may not resolve requests for patient %s", actorIdentity, patient.PatientID)
}

// notifyApprovers notifies the patient, or the approving guardians when the
// patient is a minor.
func (s *AccessService) notifyApprovers(ctx context.Context, patient *models.Patient, notificationType models.NotificationType, priority models.NotificationPriority, title, message string) {
	if !patient.IsMinor {
		s.notifier.Send(ctx, patient.Identity, notificationType, priority, title, message, nil)
		return
	}

	guardians, err := s.guardianService.ListByPatient(ctx, patient.PatientID, true)
	if err != nil {
		return
	}
	seen := make(map[string]struct{})
	for _, g := range guardians {
		if !g.CanApprove {
			continue
		}
		if _, ok := seen[g.GuardianIdentity]; ok {
			continue
		}
		seen[g.GuardianIdentity] = struct{}{}
		s.notifier.Send(ctx, g.GuardianIdentity, notificationType, priority, title, message, nil)
	}
}
