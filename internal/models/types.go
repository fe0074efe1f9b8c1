package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Role is the closed set of provider roles that may hold grants or submit
// access requests. Patients and guardians are identities, not roles.
type Role string

const (
	RoleDoctor             Role = "doctor"
	RoleHospital           Role = "hospital"
	RoleInsurer            Role = "insurer"
	RoleEmergencyResponder Role = "emergency_responder"
)

// ParseRole validates a role token against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDoctor, RoleHospital, RoleInsurer, RoleEmergencyResponder:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role: %q", s)
}

// RecordType is the closed enumeration of medical record categories.
type RecordType string

const (
	RecordTypeGeneralMedical     RecordType = "general_medical"
	RecordTypePrescription       RecordType = "prescription"
	RecordTypeLabResult          RecordType = "lab_result"
	RecordTypeVisitSummary       RecordType = "visit_summary"
	RecordTypeImmunizationRecord RecordType = "immunization_record"
	RecordTypeImaging            RecordType = "imaging"
	RecordTypeEmergency          RecordType = "emergency"
	RecordTypeBirthCertificate   RecordType = "birth_certificate"
)

// ParseRecordType validates a record type token against the closed set.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(s) {
	case RecordTypeGeneralMedical, RecordTypePrescription, RecordTypeLabResult,
		RecordTypeVisitSummary, RecordTypeImmunizationRecord, RecordTypeImaging,
		RecordTypeEmergency, RecordTypeBirthCertificate:
		return RecordType(s), nil
	}
	return "", fmt.Errorf("invalid record type: %q", s)
}

// Action is the set of operations Authorize decides on.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionModify Action = "modify"
)

// ParseAction validates an action token.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionView, ActionCreate, ActionModify:
		return Action(s), nil
	}
	return "", fmt.Errorf("invalid action: %q", s)
}

// Audit actions. The ledger only accepts values from this set.
const (
	AuditActionView                    = "view"
	AuditActionCreate                  = "create"
	AuditActionModify                  = "modify"
	AuditActionDelete                  = "delete"
	AuditActionGrantAccess             = "grant_access"
	AuditActionRevokeAccess            = "revoke_access"
	AuditActionEmergencyAccess         = "emergency_access"
	AuditActionRequestAccess           = "request_access"
	AuditActionApproveAccessRequest    = "approve_access_request"
	AuditActionDenyAccessRequest       = "deny_access_request"
	AuditActionCancelAccessRequest     = "cancel_access_request"
	AuditActionGuardianAssigned        = "guardian_assigned"
	AuditActionGuardianRevoked         = "guardian_revoked"
	AuditActionGuardianTransfer        = "guardian_transfer_complete"
	AuditActionBirthRegistered         = "birth_registered"
	AuditActionIdentityAssigned        = "identity_assigned"
	AuditActionPatientRegistered       = "patient_registered"
	AuditActionPatientDeactivated      = "patient_deactivated"
	AuditActionPatientReactivated      = "patient_reactivated"
	AuditActionEmergencyContactUpdated = "emergency_contact_updated"
)

var auditActions = map[string]struct{}{
	AuditActionView: {}, AuditActionCreate: {}, AuditActionModify: {},
	AuditActionDelete: {}, AuditActionGrantAccess: {}, AuditActionRevokeAccess: {},
	AuditActionEmergencyAccess: {}, AuditActionRequestAccess: {},
	AuditActionApproveAccessRequest: {}, AuditActionDenyAccessRequest: {},
	AuditActionCancelAccessRequest: {}, AuditActionGuardianAssigned: {},
	AuditActionGuardianRevoked: {}, AuditActionGuardianTransfer: {},
	AuditActionBirthRegistered: {}, AuditActionIdentityAssigned: {},
	AuditActionPatientRegistered: {}, AuditActionPatientDeactivated: {},
	AuditActionPatientReactivated: {}, AuditActionEmergencyContactUpdated: {},
}

// IsAuditAction reports whether s is a known audit action.
func IsAuditAction(s string) bool {
	_, ok := auditActions[s]
	return ok
}

// RecordTypeSet is the scope of a grant: either every record type or an
// explicit subset. Stored as the literal "all" or a JSON array.
type RecordTypeSet struct {
	All   bool
	Types []RecordType
}

// AllRecordTypes is the unrestricted scope.
func AllRecordTypes() RecordTypeSet {
	return RecordTypeSet{All: true}
}

// SomeRecordTypes builds an explicit scope.
func SomeRecordTypes(types ...RecordType) RecordTypeSet {
	return RecordTypeSet{Types: types}
}

// Allows reports whether the set covers the given record type.
func (s RecordTypeSet) Allows(rt RecordType) bool {
	if s.All {
		return true
	}
	for _, t := range s.Types {
		if t == rt {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (s RecordTypeSet) Value() (driver.Value, error) {
	if s.All {
		return "all", nil
	}
	b, err := json.Marshal(s.Types)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record type set: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *RecordTypeSet) Scan(value interface{}) error {
	if value == nil {
		*s = RecordTypeSet{All: true}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unsupported type for record type set: %T", value)
	}

	if raw == "all" {
		*s = RecordTypeSet{All: true}
		return nil
	}

	var types []RecordType
	if err := json.Unmarshal([]byte(raw), &types); err != nil {
		return fmt.Errorf("invalid record type set: %w", err)
	}
	*s = RecordTypeSet{Types: types}
	return nil
}

// MarshalJSON renders "all" or the explicit array.
func (s RecordTypeSet) MarshalJSON() ([]byte, error) {
	if s.All {
		return json.Marshal("all")
	}
	return json.Marshal(s.Types)
}

// UnmarshalJSON accepts "all" or an array of record types.
func (s *RecordTypeSet) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		if literal != "all" {
			return fmt.Errorf("invalid record type set literal: %q", literal)
		}
		*s = RecordTypeSet{All: true}
		return nil
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid record type set: %w", err)
	}
	types := make([]RecordType, 0, len(raw))
	for _, item := range raw {
		rt, err := ParseRecordType(item)
		if err != nil {
			return err
		}
		types = append(types, rt)
	}
	*s = RecordTypeSet{Types: types}
	return nil
}
