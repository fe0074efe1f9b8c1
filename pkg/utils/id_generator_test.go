package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIDGenerationFormats tests the per-entity ID prefixes
func TestIDGenerationFormats(t *testing.T) {
	cases := map[string]func() string{
		"PAT-":    GeneratePatientID,
		"GRD-":    GenerateGuardianID,
		"GRANT-":  GenerateGrantID,
		"REQ-":    GenerateRequestID,
		"REC-":    GenerateRecordID,
		"AUDIT-":  GenerateAuditID,
		"NOTIF-":  GenerateNotificationID,
		"BIRTH-":  GenerateBirthRegistrationID,
	}

	for prefix, generate := range cases {
		id := generate()
		assert.Contains(t, id, prefix)
		assert.True(t, IsValidUUID(id[len(prefix):]), "suffix of %s should be a UUID", id)
	}
}

// TestIDGenerationUniqueness tests collision-freeness over repeated generation
func TestIDGenerationUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateAuditID()
		assert.False(t, ids[id], "ID should be unique")
		ids[id] = true
	}
	assert.Equal(t, 100, len(ids))
}
