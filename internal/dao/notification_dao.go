package dao

import (
	"context"
	"fmt"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/models"
)

const notificationColumns = `
	NOTIFICATION_ID, TARGET_IDENTITY, TYPE, TITLE, MESSAGE, PRIORITY,
	PAYLOAD, READ_FLAG, CREATED_TIME
`

// NotificationDAO handles database operations for notifications
type NotificationDAO struct {
	db *database.DB
}

// NewNotificationDAO creates a new NotificationDAO instance
func NewNotificationDAO(db *database.DB) *NotificationDAO {
	return &NotificationDAO{db: db}
}

// Create inserts a new notification. Notifications are written outside the
// business transaction: delivery is best effort.
func (dao *NotificationDAO) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO RA_NOTIFICATION (
			NOTIFICATION_ID, TARGET_IDENTITY, TYPE, TITLE, MESSAGE, PRIORITY,
			PAYLOAD, READ_FLAG, CREATED_TIME
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		notification.NotificationID,
		notification.TargetIdentity,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.Priority,
		notification.Payload,
		notification.Read,
		notification.CreatedTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByTarget retrieves notifications for an identity with pagination
func (dao *NotificationDAO) ListByTarget(ctx context.Context, targetIdentity string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error) {
	where := ` WHERE TARGET_IDENTITY = ?`
	if unreadOnly {
		where += ` AND READ_FLAG = FALSE`
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM RA_NOTIFICATION` + where
	if err := dao.db.GetContext(ctx, &total, countQuery, targetIdentity); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM RA_NOTIFICATION` + where +
		` ORDER BY CREATED_TIME DESC LIMIT ? OFFSET ?`

	var notifications []models.Notification
	if err := dao.db.SelectContext(ctx, &notifications, query, targetIdentity, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead marks a single notification as read
func (dao *NotificationDAO) MarkRead(ctx context.Context, notificationID string) error {
	query := `UPDATE RA_NOTIFICATION SET READ_FLAG = TRUE WHERE NOTIFICATION_ID = ?`

	result, err := dao.db.ExecContext(ctx, query, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("notification not found: %s", notificationID)
	}

	return nil
}

// MarkAllRead marks every unread notification for an identity as read
func (dao *NotificationDAO) MarkAllRead(ctx context.Context, targetIdentity string) error {
	query := `UPDATE RA_NOTIFICATION SET READ_FLAG = TRUE WHERE TARGET_IDENTITY = ? AND READ_FLAG = FALSE`

	if _, err := dao.db.ExecContext(ctx, query, targetIdentity); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}

// UnreadCount returns the number of unread notifications for an identity
func (dao *NotificationDAO) UnreadCount(ctx context.Context, targetIdentity string) (int, error) {
	query := `SELECT COUNT(*) FROM RA_NOTIFICATION WHERE TARGET_IDENTITY = ? AND READ_FLAG = FALSE`

	var count int
	if err := dao.db.GetContext(ctx, &count, query, targetIdentity); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}
