package models

// Guardian represents the RA_GUARDIAN table. A guardian acts on behalf of a
// minor patient until the patient's 18th birthday.
type Guardian struct {
	GuardianID       string  `db:"GUARDIAN_ID" json:"guardianId"`
	PatientID        string  `db:"PATIENT_ID" json:"patientId"`
	GuardianIdentity string  `db:"GUARDIAN_IDENTITY" json:"guardianIdentity"`
	Relationship     string  `db:"RELATIONSHIP" json:"relationship"`
	CanView          bool    `db:"CAN_VIEW" json:"canView"`
	CanCreate        bool    `db:"CAN_CREATE" json:"canCreate"`
	CanApprove       bool    `db:"CAN_APPROVE" json:"canApprove"`
	Active           bool    `db:"ACTIVE" json:"active"`
	ExpiresAt        int64   `db:"EXPIRES_AT" json:"expiresAt"`
	RevokedAt        *int64  `db:"REVOKED_AT" json:"revokedAt,omitempty"`
	RevokedBy        *string `db:"REVOKED_BY" json:"revokedBy,omitempty"`
	CreatedTime      int64   `db:"CREATED_TIME" json:"createdTime"`
}

// GuardianCapabilities is the resolved proxy capability set of an actor over
// a minor patient: the union of all of the actor's active guardianships.
type GuardianCapabilities struct {
	CanView    bool `json:"canView"`
	CanCreate  bool `json:"canCreate"`
	CanApprove bool `json:"canApprove"`
}

// Covers reports whether the capability set permits the given action.
// Guardians never hold modify capability; modification of existing records
// stays with providers holding an explicit grant.
func (c GuardianCapabilities) Covers(action Action) bool {
	switch action {
	case ActionView:
		return c.CanView
	case ActionCreate:
		return c.CanCreate
	}
	return false
}

// GuardianAssignAPIRequest is the API payload for assigning a guardian
type GuardianAssignAPIRequest struct {
	PatientID        string `json:"patientId" binding:"required"`
	GuardianIdentity string `json:"guardianIdentity" binding:"required"`
	Relationship     string `json:"relationship" binding:"required"`
	CanView          *bool  `json:"canView,omitempty"`
	CanCreate        *bool  `json:"canCreate,omitempty"`
	CanApprove       *bool  `json:"canApprove,omitempty"`
}
