// Package serviceerror defines the service-layer error contract: every error
// carries a machine-checkable code plus a human-readable description so the
// audit trail and clients can both consume it without re-deriving intent.
package serviceerror

import "fmt"

// ServiceErrorType classifies errors as caller mistakes or server faults.
type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

// ServiceError is the error value returned by all services.
type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
}

var (
	InternalServerError = ServiceError{
		Type:             ServerErrorType,
		Code:             "RAS-5000",
		Error:            "internal_server_error",
		ErrorDescription: "An unexpected error occurred",
	}

	// DatabaseError covers storage unavailability; it is transient and safe
	// for the caller to retry.
	DatabaseError = ServiceError{
		Type:             ServerErrorType,
		Code:             "RAS-5001",
		Error:            "database_error",
		ErrorDescription: "A storage error occurred",
	}

	ValidationError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4001",
		Error:            "validation_error",
		ErrorDescription: "Validation failed",
	}

	ResourceNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4004",
		Error:            "resource_not_found",
		ErrorDescription: "Resource not found",
	}

	ConflictError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4009",
		Error:            "conflict",
		ErrorDescription: "Request conflicts with current state",
	}

	DuplicateIdentityError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4091",
		Error:            "duplicate_identity",
		ErrorDescription: "Identity is already registered",
	}

	NotAMinorError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4092",
		Error:            "not_a_minor",
		ErrorDescription: "Patient is not a minor",
	}

	StillMinorError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4093",
		Error:            "still_minor",
		ErrorDescription: "Patient has not reached the age of majority",
	}

	AlreadyTransferredError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4094",
		Error:            "already_transferred",
		ErrorDescription: "Guardian control has already been transferred",
	}

	AlreadyRevokedError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4095",
		Error:            "already_revoked",
		ErrorDescription: "Guardian is already revoked",
	}

	AlreadyInactiveError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4096",
		Error:            "already_inactive",
		ErrorDescription: "Access grant is not active",
	}

	NotPendingError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4097",
		Error:            "not_pending",
		ErrorDescription: "Access request has already been resolved",
	}

	RequestExpiredError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4098",
		Error:            "request_expired",
		ErrorDescription: "Access request has expired",
	}

	InvalidRoleError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4002",
		Error:            "invalid_role",
		ErrorDescription: "Role is not recognized",
	}

	InvalidRecordTypeError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4003",
		Error:            "invalid_record_type",
		ErrorDescription: "Record type is not recognized",
	}

	PatientInactiveError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4031",
		Error:            "patient_inactive",
		ErrorDescription: "Patient account is inactive",
	}

	AccessDeniedError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4033",
		Error:            "access_denied",
		ErrorDescription: "Actor is not authorized for this action",
	}

	PatientAlreadyActiveError = ServiceError{
		Type:             ClientErrorType,
		Code:             "RAC-4099",
		Error:            "patient_already_active",
		ErrorDescription: "Patient account is already active",
	}
)

// CustomServiceError copies a base error with a more specific description.
func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:             baseError.Type,
		Code:             baseError.Code,
		Error:            baseError.Error,
		ErrorDescription: description,
	}
}

// Customf is CustomServiceError with a format string.
func Customf(baseError ServiceError, format string, args ...interface{}) *ServiceError {
	return CustomServiceError(baseError, fmt.Sprintf(format, args...))
}

// Is reports whether err carries the same code as base.
func Is(err *ServiceError, base ServiceError) bool {
	return err != nil && err.Code == base.Code
}
