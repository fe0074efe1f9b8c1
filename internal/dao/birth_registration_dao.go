package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const birthRegistrationColumns = `
	REGISTRATION_ID, PATIENT_ID, BIRTH_CERTIFICATE_ID, BIRTH_DATE, BIRTH_PLACE,
	BIRTH_WEIGHT, BIRTH_LENGTH, MOTHER_NAME, FATHER_NAME, ATTENDING_PHYSICIAN,
	REGISTERED_BY, CREATED_TIME
`

// BirthRegistrationDAO handles database operations for birth registrations
type BirthRegistrationDAO struct {
	db *database.DB
}

// NewBirthRegistrationDAO creates a new BirthRegistrationDAO instance
func NewBirthRegistrationDAO(db *database.DB) *BirthRegistrationDAO {
	return &BirthRegistrationDAO{db: db}
}

// CreateWithTx inserts a new birth registration using a transaction
func (dao *BirthRegistrationDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, registration *models.BirthRegistration) error {
	query := `
		INSERT INTO RA_BIRTH_REGISTRATION (
			REGISTRATION_ID, PATIENT_ID, BIRTH_CERTIFICATE_ID, BIRTH_DATE, BIRTH_PLACE,
			BIRTH_WEIGHT, BIRTH_LENGTH, MOTHER_NAME, FATHER_NAME, ATTENDING_PHYSICIAN,
			REGISTERED_BY, CREATED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		registration.RegistrationID,
		registration.PatientID,
		registration.BirthCertificateID,
		registration.BirthDate,
		registration.BirthPlace,
		registration.BirthWeight,
		registration.BirthLength,
		registration.MotherName,
		registration.FatherName,
		registration.AttendingPhysician,
		registration.RegisteredBy,
		registration.CreatedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create birth registration: %w", err)
	}

	return nil
}

// GetByPatientID retrieves a birth registration by the child's patient ID
func (dao *BirthRegistrationDAO) GetByPatientID(ctx context.Context, patientID string) (*models.BirthRegistration, error) {
	query := `SELECT ` + birthRegistrationColumns + ` FROM RA_BIRTH_REGISTRATION WHERE PATIENT_ID = ?`

	var registration models.BirthRegistration
	err := dao.db.GetContext(ctx, &registration, query, patientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get birth registration: %w", err)
	}

	return &registration, nil
}

// GetByCertificateID retrieves a birth registration by certificate number
func (dao *BirthRegistrationDAO) GetByCertificateID(ctx context.Context, certificateID string) (*models.BirthRegistration, error) {
	query := `SELECT ` + birthRegistrationColumns + ` FROM RA_BIRTH_REGISTRATION WHERE BIRTH_CERTIFICATE_ID = ?`

	var registration models.BirthRegistration
	err := dao.db.GetContext(ctx, &registration, query, certificateID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get birth registration: %w", err)
	}

	return &registration, nil
}
