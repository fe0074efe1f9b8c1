package models

// NotificationType is the closed set of notification categories.
type NotificationType string

const (
	NotificationAccessRequest   NotificationType = "access_request"
	NotificationAccessGranted   NotificationType = "access_granted"
	NotificationAccessDenied    NotificationType = "access_denied"
	NotificationAccessRevoked   NotificationType = "access_revoked"
	NotificationEmergencyAccess NotificationType = "emergency_access"
	NotificationRecordCreated   NotificationType = "record_created"
	NotificationRecordUpdated   NotificationType = "record_updated"
)

// NotificationPriority orders notifications for display.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Notification represents the RA_NOTIFICATION table: a persisted, best-effort
// message to a patient-facing identity. Real-time delivery transport is an
// external collaborator.
type Notification struct {
	NotificationID string               `db:"NOTIFICATION_ID" json:"notificationId"`
	TargetIdentity string               `db:"TARGET_IDENTITY" json:"targetIdentity"`
	Type           NotificationType     `db:"TYPE" json:"type"`
	Title          string               `db:"TITLE" json:"title"`
	Message        string               `db:"MESSAGE" json:"message"`
	Priority       NotificationPriority `db:"PRIORITY" json:"priority"`
	Payload        *string              `db:"PAYLOAD" json:"payload,omitempty"`
	Read           bool                 `db:"READ_FLAG" json:"read"`
	CreatedTime    int64                `db:"CREATED_TIME" json:"createdTime"`
}
