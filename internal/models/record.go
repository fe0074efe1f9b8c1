package models

// Record represents the RA_RECORD table: catalog metadata for one medical
// record. Payload bytes live in external storage behind PayloadRef.
type Record struct {
	RecordID       string     `db:"RECORD_ID" json:"recordId"`
	PatientID      string     `db:"PATIENT_ID" json:"patientId"`
	RecordType     RecordType `db:"RECORD_TYPE" json:"recordType"`
	ContentHash    string     `db:"CONTENT_HASH" json:"contentHash"`
	PayloadRef     *string    `db:"PAYLOAD_REF" json:"payloadRef,omitempty"`
	Metadata       *string    `db:"METADATA" json:"metadata,omitempty"`
	CreatedBy      string     `db:"CREATED_BY" json:"createdBy"`
	Active         bool       `db:"ACTIVE" json:"active"`
	AccessSequence int64      `db:"ACCESS_SEQUENCE" json:"accessSequence"`
	CreatedTime    int64      `db:"CREATED_TIME" json:"createdTime"`
	ModifiedTime   int64      `db:"MODIFIED_TIME" json:"modifiedTime"`
}

// RecordCreateAPIRequest is the API payload for cataloging a record
type RecordCreateAPIRequest struct {
	PatientID   string  `json:"patientId" binding:"required"`
	RecordType  string  `json:"recordType" binding:"required"`
	ContentHash string  `json:"contentHash" binding:"required"`
	PayloadRef  *string `json:"payloadRef,omitempty"`
	Metadata    *string `json:"metadata,omitempty"`
	CreatedBy   string  `json:"createdBy" binding:"required"`
	// EmergencyClaim invokes the emergency override for the creation.
	EmergencyClaim *EmergencyClaim `json:"emergencyClaim,omitempty"`
}

// RecordUpdateAPIRequest is the API payload for updating record metadata
type RecordUpdateAPIRequest struct {
	ContentHash *string `json:"contentHash,omitempty"`
	Metadata    *string `json:"metadata,omitempty"`
	UpdatedBy   string  `json:"updatedBy" binding:"required"`
	UpdateNote  string  `json:"updateNote" binding:"required"`
}

// BirthRegistration represents the RA_BIRTH_REGISTRATION table.
type BirthRegistration struct {
	RegistrationID     string   `db:"REGISTRATION_ID" json:"registrationId"`
	PatientID          string   `db:"PATIENT_ID" json:"patientId"`
	BirthCertificateID string   `db:"BIRTH_CERTIFICATE_ID" json:"birthCertificateId"`
	BirthDate          int64    `db:"BIRTH_DATE" json:"birthDate"`
	BirthPlace         string   `db:"BIRTH_PLACE" json:"birthPlace"`
	BirthWeight        *float64 `db:"BIRTH_WEIGHT" json:"birthWeight,omitempty"`
	BirthLength        *float64 `db:"BIRTH_LENGTH" json:"birthLength,omitempty"`
	MotherName         *string  `db:"MOTHER_NAME" json:"motherName,omitempty"`
	FatherName         *string  `db:"FATHER_NAME" json:"fatherName,omitempty"`
	AttendingPhysician *string  `db:"ATTENDING_PHYSICIAN" json:"attendingPhysician,omitempty"`
	RegisteredBy       string   `db:"REGISTERED_BY" json:"registeredBy"`
	CreatedTime        int64    `db:"CREATED_TIME" json:"createdTime"`
}

// BirthRegisterAPIRequest is the API payload for registering a birth
type BirthRegisterAPIRequest struct {
	BirthCertificateID   string   `json:"birthCertificateId" binding:"required"`
	ChildName            string   `json:"childName" binding:"required"`
	BirthDate            string   `json:"birthDate" binding:"required"` // RFC 3339
	BirthPlace           string   `json:"birthPlace" binding:"required"`
	BirthWeight          *float64 `json:"birthWeight,omitempty"`
	BirthLength          *float64 `json:"birthLength,omitempty"`
	MotherName           *string  `json:"motherName,omitempty"`
	FatherName           *string  `json:"fatherName,omitempty"`
	AttendingPhysician   *string  `json:"attendingPhysician,omitempty"`
	GuardianIdentity     string   `json:"guardianIdentity" binding:"required"`
	GuardianRelationship string   `json:"guardianRelationship,omitempty"`
	RegisteredBy         string   `json:"registeredBy" binding:"required"`
}
