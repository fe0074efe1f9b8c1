package models

// AuditEvent represents the RA_AUDIT_EVENT table. Rows are append-only: never
// mutated, never deleted, retained even after the owning patient is removed.
// Sequence is gap-free and unique per scope (record if present, else patient).
type AuditEvent struct {
	AuditID       string  `db:"AUDIT_ID" json:"auditId"`
	PatientID     string  `db:"PATIENT_ID" json:"patientId"`
	RecordID      *string `db:"RECORD_ID" json:"recordId,omitempty"`
	ActorIdentity string  `db:"ACTOR_IDENTITY" json:"actorIdentity"`
	ActorRole     *string `db:"ACTOR_ROLE" json:"actorRole,omitempty"`
	Action        string  `db:"ACTION" json:"action"`
	Success       bool    `db:"SUCCESS" json:"success"`
	IsEmergency   bool    `db:"IS_EMERGENCY" json:"isEmergency"`
	Justification *string `db:"JUSTIFICATION" json:"justification,omitempty"`
	FailureReason *string `db:"FAILURE_REASON" json:"failureReason,omitempty"`
	Metadata      *string `db:"METADATA" json:"metadata,omitempty"`
	Timestamp     int64   `db:"TIMESTAMP" json:"timestamp"`
	Sequence      int64   `db:"SEQUENCE" json:"sequence"`
}

// AuditSearchFilters narrows audit queries. Zero values mean "no filter".
type AuditSearchFilters struct {
	PatientID     string
	ActorIdentity string
	Action        string
	RecordID      string
	Success       *bool
	FromTime      *int64
	ToTime        *int64
	Limit         int
	Offset        int
}

// ActorActivity is one actor's event count in a compliance summary.
type ActorActivity struct {
	ActorIdentity string `db:"ACTOR_IDENTITY" json:"actorIdentity"`
	Count         int    `db:"CNT" json:"count"`
}

// ActionActivity is one action's event count in a compliance summary.
type ActionActivity struct {
	Action string `db:"ACTION" json:"action"`
	Count  int    `db:"CNT" json:"count"`
}

// ComplianceSummary is the aggregate view used by compliance reporting.
type ComplianceSummary struct {
	TotalEvents     int              `json:"totalEvents"`
	SuccessfulCount int              `json:"successfulCount"`
	FailedCount     int              `json:"failedCount"`
	SuccessRate     float64          `json:"successRate"`
	EmergencyCount  int              `json:"emergencyCount"`
	TopActors       []ActorActivity  `json:"topActors"`
	ActionBreakdown []ActionActivity `json:"actionBreakdown"`
}
