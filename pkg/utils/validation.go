package utils

import (
	"fmt"
	"strings"
)

// ValidateRequired checks that a required string field is non-empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMaxLength checks that a string does not exceed a maximum length
func ValidateMaxLength(fieldName, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}

// ValidateIdentity checks an external identity string (wallet address,
// federated subject, etc.)
func ValidateIdentity(fieldName, identity string) error {
	if err := ValidateRequired(fieldName, identity); err != nil {
		return err
	}
	return ValidateMaxLength(fieldName, identity, 128)
}
