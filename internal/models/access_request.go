package models

// RequestStatus is the access request state machine: pending is the only
// non-terminal state.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusDenied    RequestStatus = "denied"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// AccessRequest represents the RA_ACCESS_REQUEST table: a provider-initiated
// ask for a grant, resolved by the patient or an approving guardian.
type AccessRequest struct {
	RequestID         string        `db:"REQUEST_ID" json:"requestId"`
	PatientID         string        `db:"PATIENT_ID" json:"patientId"`
	RequesterIdentity string        `db:"REQUESTER_IDENTITY" json:"requesterIdentity"`
	Role              Role          `db:"ROLE" json:"role"`
	Reason            *string       `db:"REASON" json:"reason,omitempty"`
	Status            RequestStatus `db:"STATUS" json:"status"`
	RequestedAt       int64         `db:"REQUESTED_AT" json:"requestedAt"`
	ExpiresAt         int64         `db:"EXPIRES_AT" json:"expiresAt"`
	ResolvedAt        *int64        `db:"RESOLVED_AT" json:"resolvedAt,omitempty"`
	ResolvedBy        *string       `db:"RESOLVED_BY" json:"resolvedBy,omitempty"`
	DenialReason      *string       `db:"DENIAL_REASON" json:"denialReason,omitempty"`
}

// RequestSubmitAPIRequest is the API payload for submitting an access request
type RequestSubmitAPIRequest struct {
	PatientID         string  `json:"patientId" binding:"required"`
	RequesterIdentity string  `json:"requesterIdentity" binding:"required"`
	Role              string  `json:"role" binding:"required"`
	Reason            *string `json:"reason,omitempty"`
	ExpiresAt         *string `json:"expiresAt,omitempty"` // RFC 3339
}

// RequestApproveAPIRequest is the API payload for approving a request
type RequestApproveAPIRequest struct {
	AllowedRecordTypes RecordTypeSet `json:"allowedRecordTypes"`
	CanCreate          bool          `json:"canCreate"`
	CanModify          bool          `json:"canModify"`
	CanView            bool          `json:"canView"`
	GrantExpiresAt     *string       `json:"grantExpiresAt,omitempty"` // RFC 3339
	ApprovedBy         string        `json:"approvedBy" binding:"required"`
}

// RequestDenyAPIRequest is the API payload for denying a request
type RequestDenyAPIRequest struct {
	Reason   *string `json:"reason,omitempty"`
	DeniedBy string  `json:"deniedBy" binding:"required"`
}

// RequestCancelAPIRequest is the API payload for cancelling a request
type RequestCancelAPIRequest struct {
	CancelledBy string `json:"cancelledBy" binding:"required"`
}

// BatchApproveAPIRequest approves several requests in one call. Failures are
// isolated per request ID.
type BatchApproveAPIRequest struct {
	RequestIDs         []string      `json:"requestIds" binding:"required"`
	AllowedRecordTypes RecordTypeSet `json:"allowedRecordTypes"`
	CanCreate          bool          `json:"canCreate"`
	CanModify          bool          `json:"canModify"`
	CanView            bool          `json:"canView"`
	GrantExpiresAt     *string       `json:"grantExpiresAt,omitempty"`
	ApprovedBy         string        `json:"approvedBy" binding:"required"`
}

// BatchApproveResult reports the per-item outcome of a batch approval.
type BatchApproveResult struct {
	Approved int                `json:"approved"`
	Failed   int                `json:"failed"`
	Results  []BatchItemOutcome `json:"results"`
}

// BatchItemOutcome is one request's outcome inside a batch.
type BatchItemOutcome struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RequestSearchFilters narrows access request listings.
type RequestSearchFilters struct {
	PatientID         string
	RequesterIdentity string
	Status            string
	Limit             int
	Offset            int
}
