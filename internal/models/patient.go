package models

// Patient represents the RA_PATIENT table
type Patient struct {
	PatientID             string  `db:"PATIENT_ID" json:"patientId"`
	Identity              string  `db:"IDENTITY" json:"identity"`
	Name                  string  `db:"NAME" json:"name"`
	DateOfBirth           int64   `db:"DATE_OF_BIRTH" json:"dateOfBirth"`
	IsMinor               bool    `db:"IS_MINOR" json:"isMinor"`
	EmergencyContact      *string `db:"EMERGENCY_CONTACT" json:"emergencyContact,omitempty"`
	Active                bool    `db:"ACTIVE" json:"active"`
	GuardianTransferredAt *int64  `db:"GUARDIAN_TRANSFERRED_AT" json:"guardianTransferredAt,omitempty"`
	CreatedTime           int64   `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime           int64   `db:"UPDATED_TIME" json:"updatedTime"`
}

// PatientRegisterAPIRequest is the API payload for registering a patient
type PatientRegisterAPIRequest struct {
	Identity         string  `json:"identity" binding:"required"`
	Name             string  `json:"name" binding:"required"`
	DateOfBirth      string  `json:"dateOfBirth" binding:"required"` // RFC 3339
	EmergencyContact *string `json:"emergencyContact,omitempty"`
}

// PatientUpdateAPIRequest is the API payload for updating patient contact info
type PatientUpdateAPIRequest struct {
	EmergencyContact *string `json:"emergencyContact"`
}
