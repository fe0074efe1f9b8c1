package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const patientColumns = `
	PATIENT_ID, IDENTITY, NAME, DATE_OF_BIRTH, IS_MINOR, EMERGENCY_CONTACT,
	ACTIVE, GUARDIAN_TRANSFERRED_AT, CREATED_TIME, UPDATED_TIME
`

// PatientDAO handles database operations for patients
type PatientDAO struct {
	db *database.DB
}

// NewPatientDAO creates a new PatientDAO instance
func NewPatientDAO(db *database.DB) *PatientDAO {
	return &PatientDAO{db: db}
}

// CreateWithTx inserts a new patient using a transaction
func (dao *PatientDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, patient *models.Patient) error {
	query := `
		INSERT INTO RA_PATIENT (
			PATIENT_ID, IDENTITY, NAME, DATE_OF_BIRTH, IS_MINOR, EMERGENCY_CONTACT,
			ACTIVE, GUARDIAN_TRANSFERRED_AT, CREATED_TIME, UPDATED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		patient.PatientID,
		patient.Identity,
		patient.Name,
		patient.DateOfBirth,
		patient.IsMinor,
		patient.EmergencyContact,
		patient.Active,
		patient.GuardianTransferredAt,
		patient.CreatedTime,
		patient.UpdatedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}

	return nil
}

// GetByID retrieves a patient by ID
func (dao *PatientDAO) GetByID(ctx context.Context, patientID string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM RA_PATIENT WHERE PATIENT_ID = ?`

	var patient models.Patient
	err := dao.db.GetContext(ctx, &patient, query, patientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return &patient, nil
}

// GetByIdentity retrieves a patient by external identity
func (dao *PatientDAO) GetByIdentity(ctx context.Context, identity string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM RA_PATIENT WHERE IDENTITY = ?`

	var patient models.Patient
	err := dao.db.GetContext(ctx, &patient, query, identity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get patient by identity: %w", err)
	}

	return &patient, nil
}

// List retrieves a paginated list of patients
func (dao *PatientDAO) List(ctx context.Context, limit, offset int) ([]models.Patient, int, error) {
	var total int
	if err := dao.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM RA_PATIENT`); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := `SELECT ` + patientColumns + `
		FROM RA_PATIENT
		ORDER BY CREATED_TIME DESC
		LIMIT ? OFFSET ?`

	var patients []models.Patient
	if err := dao.db.SelectContext(ctx, &patients, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}

	return patients, total, nil
}

// UpdateWithTx updates the mutable patient fields using a transaction
func (dao *PatientDAO) UpdateWithTx(ctx context.Context, tx *database.Transaction, patient *models.Patient) error {
	query := `
		UPDATE RA_PATIENT
		SET IDENTITY = ?, NAME = ?, IS_MINOR = ?, EMERGENCY_CONTACT = ?,
		    ACTIVE = ?, GUARDIAN_TRANSFERRED_AT = ?, UPDATED_TIME = ?
		WHERE PATIENT_ID = ?
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		patient.Identity,
		patient.Name,
		patient.IsMinor,
		patient.EmergencyContact,
		patient.Active,
		patient.GuardianTransferredAt,
		patient.UpdatedTime,
		patient.PatientID,
	)

	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("patient not found: %s", patient.PatientID)
	}

	return nil
}
