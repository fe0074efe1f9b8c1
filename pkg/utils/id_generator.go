package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a new bare UUID
func GenerateID() string {
	return uuid.New().String()
}

// GeneratePatientID generates a unique patient ID
func GeneratePatientID() string {
	return "PAT-" + uuid.New().String()
}

// GenerateGuardianID generates a unique guardian ID
func GenerateGuardianID() string {
	return "GRD-" + uuid.New().String()
}

// GenerateGrantID generates a unique access grant ID
func GenerateGrantID() string {
	return "GRANT-" + uuid.New().String()
}

// GenerateRequestID generates a unique access request ID
func GenerateRequestID() string {
	return "REQ-" + uuid.New().String()
}

// GenerateRecordID generates a unique medical record ID
func GenerateRecordID() string {
	return "REC-" + uuid.New().String()
}

// GenerateAuditID generates a unique audit event ID
func GenerateAuditID() string {
	return "AUDIT-" + uuid.New().String()
}

// GenerateNotificationID generates a unique notification ID
func GenerateNotificationID() string {
	return "NOTIF-" + uuid.New().String()
}

// GenerateBirthRegistrationID generates a unique birth registration ID
func GenerateBirthRegistrationID() string {
	return "BIRTH-" + uuid.New().String()
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
