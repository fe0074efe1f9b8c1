package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/dao"
	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
)

// NotificationService exposes the stored notification inbox.
type NotificationService struct {
	notificationDAO dao.NotificationDAOContract
	logger          *logrus.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(notificationDAO dao.NotificationDAOContract, logger *logrus.Logger) *NotificationService {
	return &NotificationService{notificationDAO: notificationDAO, logger: logger}
}

// List retrieves an identity's notifications with pagination
func (s *NotificationService) List(ctx context.Context, targetIdentity string, unreadOnly bool, limit, offset int) ([]models.Notification, int, *serviceerror.ServiceError) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	notifications, total, err := s.notificationDAO.ListByTarget(ctx, targetIdentity, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, databaseError(s.logger, "list notifications", err)
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, total, nil
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) *serviceerror.ServiceError {
	if err := s.notificationDAO.MarkRead(ctx, notificationID); err != nil {
		return databaseError(s.logger, "mark notification read", err)
	}
	return nil
}

// MarkAllRead marks every unread notification for an identity as read
func (s *NotificationService) MarkAllRead(ctx context.Context, targetIdentity string) *serviceerror.ServiceError {
	if err := s.notificationDAO.MarkAllRead(ctx, targetIdentity); err != nil {
		return databaseError(s.logger, "mark notifications read", err)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for an identity
func (s *NotificationService) UnreadCount(ctx context.Context, targetIdentity string) (int, *serviceerror.ServiceError) {
	count, err := s.notificationDAO.UnreadCount(ctx, targetIdentity)
	if err != nil {
		return 0, databaseError(s.logger, "count unread notifications", err)
	}
	return count, nil
}
