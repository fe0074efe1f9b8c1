package dao

import (
	"context"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

// The service layer depends on these contracts instead of the concrete DAOs
// so the business rules can be exercised against in-memory fakes. Lookups
// return (nil, nil) when the row does not exist.

// PatientDAOContract defines patient persistence operations
type PatientDAOContract interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, patient *models.Patient) error
	GetByID(ctx context.Context, patientID string) (*models.Patient, error)
	GetByIdentity(ctx context.Context, identity string) (*models.Patient, error)
	List(ctx context.Context, limit, offset int) ([]models.Patient, int, error)
	UpdateWithTx(ctx context.Context, tx *database.Transaction, patient *models.Patient) error
}

// GuardianDAOContract defines guardian persistence operations
type GuardianDAOContract interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, guardian *models.Guardian) error
	GetByID(ctx context.Context, guardianID string) (*models.Guardian, error)
	ListByPatient(ctx context.Context, patientID string, activeOnly bool) ([]models.Guardian, error)
	ListByGuardianIdentity(ctx context.Context, identity string, activeOnly bool) ([]models.Guardian, error)
	RevokeWithTx(ctx context.Context, tx *database.Transaction, guardianID, revokedBy string, revokedAt int64) error
	DeactivateAllForPatientWithTx(ctx context.Context, tx *database.Transaction, patientID string, revokedAt int64) error
}

// GrantDAOContract defines access grant persistence operations
type GrantDAOContract interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, grant *models.AccessGrant) error
	GetByID(ctx context.Context, grantID string) (*models.AccessGrant, error)
	GetActivePair(ctx context.Context, patientID, providerIdentity string) (*models.AccessGrant, error)
	ListByPatient(ctx context.Context, patientID string, activeOnly bool, limit, offset int) ([]models.AccessGrant, int, error)
	DeactivateWithTx(ctx context.Context, tx *database.Transaction, grantID, revokedBy string, revokedAt int64) error
	DeactivateActivePairWithTx(ctx context.Context, tx *database.Transaction, patientID, providerIdentity, revokedBy string, revokedAt int64) error
}

// RequestDAOContract defines access request persistence operations
type RequestDAOContract interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, request *models.AccessRequest) error
	GetByID(ctx context.Context, requestID string) (*models.AccessRequest, error)
	Search(ctx context.Context, filters models.RequestSearchFilters) ([]models.AccessRequest, int, error)
	ResolveWithTx(ctx context.Context, tx *database.Transaction, requestID string, status models.RequestStatus, resolvedBy string, resolvedAt int64, denialReason *string) error
}

// RecordDAOContract defines record catalog persistence operations
type RecordDAOContract interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.Record) error
	GetByID(ctx context.Context, recordID string) (*models.Record, error)
	ListByPatient(ctx context.Context, patientID string, includeDeleted bool, limit, offset int) ([]models.Record, int, error)
	UpdateContentWithTx(ctx context.Context, tx *database.Transaction, recordID string, contentHash, metadata *string, modifiedAt int64) error
	SoftDeleteWithTx(ctx context.Context, tx *database.Transaction, recordID string, deletedAt int64) error
	DeleteWithTx(ctx context.Context, tx *database.Transaction, recordID string) error
	SetAccessSequenceWithTx(ctx context.Context, tx *database.Transaction, recordID string, sequence int64) error
}

// AuditDAOContract defines audit ledger persistence operations. The ledger
// is append-only: there are no update or delete operations.
type AuditDAOContract interface {
	MaxSequenceWithTx(ctx context.Context, tx *database.Transaction, patientID string, recordID *string) (int64, error)
	CreateWithTx(ctx context.Context, tx *database.Transaction, event *models.AuditEvent) error
	Search(ctx context.Context, filters models.AuditSearchFilters) ([]models.AuditEvent, int, error)
	Summary(ctx context.Context, filters models.AuditSearchFilters) (*models.ComplianceSummary, error)
}

// NotificationDAOContract defines notification persistence operations
type NotificationDAOContract interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByTarget(ctx context.Context, targetIdentity string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, targetIdentity string) error
	UnreadCount(ctx context.Context, targetIdentity string) (int, error)
}

// BirthRegistrationDAOContract defines birth registration persistence operations
type BirthRegistrationDAOContract interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, registration *models.BirthRegistration) error
	GetByPatientID(ctx context.Context, patientID string) (*models.BirthRegistration, error)
	GetByCertificateID(ctx context.Context, certificateID string) (*models.BirthRegistration, error)
}
