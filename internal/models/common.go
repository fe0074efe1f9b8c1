package models

import (
	"net/http"

	"github.com/cyphermed/record-access-api/internal/serviceerror"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message, details string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// HTTPStatusForServiceError maps a service error to an HTTP status code.
func HTTPStatusForServiceError(err *serviceerror.ServiceError) int {
	if err == nil {
		return http.StatusOK
	}
	switch err.Code {
	case serviceerror.ValidationError.Code,
		serviceerror.InvalidRoleError.Code,
		serviceerror.InvalidRecordTypeError.Code:
		return http.StatusBadRequest
	case serviceerror.ResourceNotFoundError.Code:
		return http.StatusNotFound
	case serviceerror.PatientInactiveError.Code,
		serviceerror.AccessDeniedError.Code:
		return http.StatusForbidden
	case serviceerror.DatabaseError.Code:
		return http.StatusServiceUnavailable
	case serviceerror.InternalServerError.Code:
		return http.StatusInternalServerError
	}
	if err.Type == serviceerror.ClientErrorType {
		// Remaining client errors are state conflicts.
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Decision is the outcome of an authorization check. A deny is a normal,
// logged outcome, not an error.
type Decision struct {
	Allow      bool   `json:"allow"`
	Reason     string `json:"reason"`
	ReasonCode string `json:"reasonCode"`
	Path       string `json:"path,omitempty"`
	Emergency  bool   `json:"emergency,omitempty"`
}

// Decision reason codes.
const (
	DecisionSelf           = "Self"
	DecisionGuardianProxy  = "GuardianProxy"
	DecisionGrant          = "Grant"
	DecisionEmergency      = "EmergencyOverride"
	DecisionNoActiveGrant  = "NoActiveGrant"
	DecisionEmergencyWrite = "EmergencyWriteDenied"
	DecisionInactive       = "PatientInactive"
)

// EmergencyClaim is a declared break-glass access: the actor asserts the
// emergency responder role and supplies a justification that is always
// carried into the audit trail.
type EmergencyClaim struct {
	Justification string `json:"justification"`
}

// AuthorizeAPIRequest is the API payload for an authorization check
type AuthorizeAPIRequest struct {
	PatientID      string          `json:"patientId" binding:"required"`
	ActorIdentity  string          `json:"actorIdentity" binding:"required"`
	Action         string          `json:"action" binding:"required"`
	RecordType     string          `json:"recordType" binding:"required"`
	RecordID       *string         `json:"recordId,omitempty"`
	EmergencyClaim *EmergencyClaim `json:"emergencyClaim,omitempty"`
}
