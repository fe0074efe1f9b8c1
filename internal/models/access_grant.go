package models

// AccessGrant represents the RA_ACCESS_GRANT table: a standing, patient-issued
// permission for one provider. At most one active grant exists per
// (patient, provider) pair; a new grant supersedes the old one.
type AccessGrant struct {
	GrantID            string        `db:"GRANT_ID" json:"grantId"`
	PatientID          string        `db:"PATIENT_ID" json:"patientId"`
	ProviderIdentity   string        `db:"PROVIDER_IDENTITY" json:"providerIdentity"`
	Role               Role          `db:"ROLE" json:"role"`
	AllowedRecordTypes RecordTypeSet `db:"ALLOWED_RECORD_TYPES" json:"allowedRecordTypes"`
	CanCreate          bool          `db:"CAN_CREATE" json:"canCreate"`
	CanModify          bool          `db:"CAN_MODIFY" json:"canModify"`
	CanView            bool          `db:"CAN_VIEW" json:"canView"`
	ExpiresAt          *int64        `db:"EXPIRES_AT" json:"expiresAt,omitempty"`
	Active             bool          `db:"ACTIVE" json:"active"`
	GrantedAt          int64         `db:"GRANTED_AT" json:"grantedAt"`
	GrantedBy          string        `db:"GRANTED_BY" json:"grantedBy"`
	Reason             *string       `db:"REASON" json:"reason,omitempty"`
	RevokedAt          *int64        `db:"REVOKED_AT" json:"revokedAt,omitempty"`
	RevokedBy          *string       `db:"REVOKED_BY" json:"revokedBy,omitempty"`
}

// GrantCapabilities is the permission triple carried by a grant.
type GrantCapabilities struct {
	CanCreate bool `json:"canCreate"`
	CanModify bool `json:"canModify"`
	CanView   bool `json:"canView"`
}

// Covers reports whether the capability triple permits the given action.
func (c GrantCapabilities) Covers(action Action) bool {
	switch action {
	case ActionView:
		return c.CanView
	case ActionCreate:
		return c.CanCreate
	case ActionModify:
		return c.CanModify
	}
	return false
}

// GrantAPIRequest is the API payload for issuing a grant directly
type GrantAPIRequest struct {
	PatientID          string        `json:"patientId" binding:"required"`
	ProviderIdentity   string        `json:"providerIdentity" binding:"required"`
	Role               string        `json:"role" binding:"required"`
	AllowedRecordTypes RecordTypeSet `json:"allowedRecordTypes"`
	CanCreate          bool          `json:"canCreate"`
	CanModify          bool          `json:"canModify"`
	CanView            bool          `json:"canView"`
	ExpiresAt          *string       `json:"expiresAt,omitempty"` // RFC 3339
	Reason             *string       `json:"reason,omitempty"`
	GrantedBy          string        `json:"grantedBy" binding:"required"`
}
